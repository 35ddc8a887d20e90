package reserve

import (
	"github.com/code-payments/token-wrapper/pkg/config"
	"github.com/code-payments/token-wrapper/pkg/config/env"
	"github.com/code-payments/token-wrapper/pkg/config/memory"
	"github.com/code-payments/token-wrapper/pkg/config/wrapper"
)

const (
	envConfigPrefix = "RESERVE_AUDITOR_"

	// UnderlyingMintsConfigEnvName is a comma separated list of base58
	// encoded underlying mints whose vaults are audited.
	UnderlyingMintsConfigEnvName = envConfigPrefix + "UNDERLYING_MINTS"
	defaultUnderlyingMints       = ""

	MaxAuditsPerSecondConfigEnvName = envConfigPrefix + "MAX_AUDITS_PER_SECOND"
	defaultMaxAuditsPerSecond       = 5

	DisableSnapshotPersistenceConfigEnvName = envConfigPrefix + "DISABLE_SNAPSHOT_PERSISTENCE"
	defaultDisableSnapshotPersistence       = false
)

type conf struct {
	underlyingMints            config.String
	maxAuditsPerSecond         config.Uint64
	disableSnapshotPersistence config.Bool
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			underlyingMints:            env.NewStringConfig(UnderlyingMintsConfigEnvName, defaultUnderlyingMints),
			maxAuditsPerSecond:         env.NewUint64Config(MaxAuditsPerSecondConfigEnvName, defaultMaxAuditsPerSecond),
			disableSnapshotPersistence: env.NewBoolConfig(DisableSnapshotPersistenceConfigEnvName, defaultDisableSnapshotPersistence),
		}
	}
}

type testOverrides struct {
	underlyingMints            string
	maxAuditsPerSecond         uint64
	disableSnapshotPersistence bool
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	return func() *conf {
		return &conf{
			underlyingMints:            wrapper.NewStringConfig(memory.NewConfig(overrides.underlyingMints), defaultUnderlyingMints),
			maxAuditsPerSecond:         wrapper.NewUint64Config(memory.NewConfig(overrides.maxAuditsPerSecond), defaultMaxAuditsPerSecond),
			disableSnapshotPersistence: wrapper.NewBoolConfig(memory.NewConfig(overrides.disableSnapshotPersistence), defaultDisableSnapshotPersistence),
		}
	}
}
