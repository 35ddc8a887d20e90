package app

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the raw "app" section of the configuration, handed to App.Init.
// Applications decode it into their own struct.
type Config map[string]interface{}

// BaseConfig contains the base configuration for the process, as well as the
// application itself.
type BaseConfig struct {
	LogLevel string `mapstructure:"log_level"`

	AppName string `mapstructure:"app_name"`

	DebugListenAddress string `mapstructure:"debug_listen_address"`

	ShutdownGracePeriod time.Duration `mapstructure:"shutdown_grace_period"`

	EnablePprof  bool `mapstructure:"enable_pprof"`
	EnableExpvar bool `mapstructure:"enable_expvar"`

	// BallastCapacity is the fraction of total memory held as GC ballast,
	// capped at 0.5.
	EnableBallast   bool    `mapstructure:"enable_ballast"`
	BallastCapacity float32 `mapstructure:"ballast_capacity"`

	// Restart on a schedule to bound slow leaks.
	EnableMemoryLeakCron   bool   `mapstructure:"enable_memory_leak_cron"`
	MemoryLeakCronSchedule string `mapstructure:"memory_leak_cron_schedule"`

	NewRelicLicenseKey string `mapstructure:"new_relic_license_key"`

	AppConfig Config `mapstructure:"app"`
}

var defaultConfig = BaseConfig{
	LogLevel: "info",

	DebugListenAddress: ":8123",

	ShutdownGracePeriod: 30 * time.Second,

	EnablePprof:  true,
	EnableExpvar: true,

	EnableBallast:   false,
	BallastCapacity: 0.333,

	EnableMemoryLeakCron:   false,
	MemoryLeakCronSchedule: "0 5 * * *",
}

// baseConfigKeys are bound to the environment variable of the same name in
// upper case.
var baseConfigKeys = []string{
	"log_level",
	"app_name",
	"debug_listen_address",
	"shutdown_grace_period",
	"enable_pprof",
	"enable_expvar",
	"enable_ballast",
	"ballast_capacity",
	"enable_memory_leak_cron",
	"memory_leak_cron_schedule",
	"new_relic_license_key",
}

func init() {
	for _, key := range baseConfigKeys {
		_ = viper.BindEnv(key, strings.ToUpper(key))
	}
}
