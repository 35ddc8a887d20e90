package main

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/mr-tron/base58"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/token-wrapper/pkg/app"
	"github.com/code-payments/token-wrapper/pkg/metrics"
	"github.com/code-payments/token-wrapper/pkg/reserve"
	"github.com/code-payments/token-wrapper/pkg/solana"

	pg "github.com/code-payments/token-wrapper/pkg/database/postgres"
	memory_reserve_store "github.com/code-payments/token-wrapper/pkg/reserve/memory"
	postgres_reserve_store "github.com/code-payments/token-wrapper/pkg/reserve/postgres"
)

type config struct {
	SolanaEndpoint string        `mapstructure:"solana_endpoint"`
	Program        string        `mapstructure:"program"`
	AuditInterval  time.Duration `mapstructure:"audit_interval"`

	// Snapshots are kept in memory when no database host is configured.
	DbHost     string `mapstructure:"db_host"`
	DbPort     int    `mapstructure:"db_port"`
	DbUser     string `mapstructure:"db_user"`
	DbPassword string `mapstructure:"db_password"`
	DbName     string `mapstructure:"db_name"`

	DbMaxOpenConnections int `mapstructure:"db_max_open_connections"`
	DbMaxIdleConnections int `mapstructure:"db_max_idle_connections"`
}

var defaultConfig = config{
	SolanaEndpoint: "http://localhost:8899",
	AuditInterval:  time.Minute,
	DbPort:         5432,

	DbMaxOpenConnections: 10,
	DbMaxIdleConnections: 2,
}

type auditorApp struct {
	log *logrus.Entry

	db *sql.DB

	cancel     context.CancelFunc
	shutdownCh chan struct{}
	stopOnce   sync.Once
}

func (a *auditorApp) Init(appConfig app.Config, metricsProvider *newrelic.Application) error {
	a.log = logrus.StandardLogger().WithField("type", "cmd/reserve-auditor")

	cfg, err := decodeConfig(appConfig)
	if err != nil {
		return err
	}

	var program []byte
	if len(cfg.Program) > 0 {
		program, err = base58.Decode(cfg.Program)
		if err != nil {
			return errors.Wrap(err, "invalid program")
		}
	}

	var store reserve.Store
	if len(cfg.DbHost) > 0 {
		a.db, err = pg.New(&pg.Config{
			User:               cfg.DbUser,
			Password:           cfg.DbPassword,
			Host:               cfg.DbHost,
			Port:               cfg.DbPort,
			DbName:             cfg.DbName,
			MaxOpenConnections: cfg.DbMaxOpenConnections,
			MaxIdleConnections: cfg.DbMaxIdleConnections,
		})
		if err != nil {
			return errors.Wrap(err, "failed to connect to database")
		}

		store = postgres_reserve_store.New(a.db)
	} else {
		a.log.Warn("no database configured, snapshots are kept in memory")
		store = memory_reserve_store.New()
	}

	auditor := reserve.NewAuditor(solana.New(cfg.SolanaEndpoint), program)
	service := reserve.NewService(auditor, store, reserve.WithEnvConfigs())

	ctx, cancel := context.WithCancel(metrics.NewContext(context.Background(), metricsProvider))
	a.cancel = cancel
	a.shutdownCh = make(chan struct{})

	go func() {
		defer close(a.shutdownCh)

		err := service.Start(ctx, cfg.AuditInterval)
		if err != nil && !errors.Is(err, context.Canceled) {
			a.log.WithError(err).Error("reserve auditor stopped")
		}
	}()

	return nil
}

func (a *auditorApp) ShutdownChan() <-chan struct{} {
	return a.shutdownCh
}

func (a *auditorApp) Stop() {
	a.stopOnce.Do(func() {
		a.cancel()
		<-a.shutdownCh

		if a.db != nil {
			if err := a.db.Close(); err != nil {
				a.log.WithError(err).Warn("failed to close database")
			}
		}
	})
}

func decodeConfig(appConfig app.Config) (*config, error) {
	cfg := defaultConfig

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           &cfg,
	})
	if err != nil {
		return nil, err
	}

	if err := decoder.Decode(map[string]interface{}(appConfig)); err != nil {
		return nil, errors.Wrap(err, "failed to decode app config")
	}

	if len(cfg.SolanaEndpoint) == 0 {
		return nil, errors.New("solana endpoint is required")
	}
	if cfg.AuditInterval <= 0 {
		return nil, errors.New("audit interval must be positive")
	}

	return &cfg, nil
}

func main() {
	if err := app.Run(&auditorApp{}); err != nil {
		logrus.StandardLogger().WithError(err).Fatal("error running reserve auditor")
	}
}
