package app

import (
	"expvar"
	"flag"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/code-payments/token-wrapper/pkg/metrics"
	"github.com/code-payments/token-wrapper/pkg/osutil"
)

const (
	debugServerRetryDelay = 5 * time.Second
	metricsFlushTimeout   = 5 * time.Second
)

// App is a long lived application that runs background workers.
//
// The lifecycle of the App is tied to the process. The app gets initialized
// once the base configuration is loaded, and gets stopped when the process
// is asked to shut down.
type App interface {
	// Init starts the application's workers and returns once they run.
	Init(config Config, metricsProvider *newrelic.Application) error

	// ShutdownChan is closed when the application stops on its own.
	ShutdownChan() <-chan struct{}

	// Stop releases the application's resources. It must be idempotent.
	Stop()
}

var (
	configPath = flag.String("config", "config.yaml", "configuration file path")

	osSigCh = make(chan os.Signal, 1)
)

func init() {
	signal.Notify(osSigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)
}

// Run loads the base config, sets up the process wide logging, metrics and
// debug endpoints, runs app until the process is asked to stop and then
// stops it within the configured grace period.
func Run(app App) error {
	flag.Parse()

	log := logrus.StandardLogger().WithField("type", "app")

	config, err := loadConfig()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}

	metricsProvider, err := newMetricsProvider(config)
	if err != nil {
		return errors.Wrap(err, "error connecting to new relic")
	}

	configureLogger(config, metricsProvider)

	if config.EnableExpvar || config.EnablePprof {
		go serveDebug(log, config.DebugListenAddress, newDebugMux(config))
	}

	var ballast []byte
	if config.EnableBallast {
		ballast = make([]byte, ballastSize(config.BallastCapacity, osutil.GetTotalMemory()))
	}

	memoryLeakShutdownCh := make(chan struct{})
	if config.EnableMemoryLeakCron {
		stopCron, err := startMemoryLeakCron(config.MemoryLeakCronSchedule, memoryLeakShutdownCh)
		if err != nil {
			return errors.Wrap(err, "failed to initialize memory leak cron")
		}
		defer stopCron()
	}

	if err := app.Init(config.AppConfig, metricsProvider); err != nil {
		return errors.Wrap(err, "failed to initialize application")
	}

	select {
	case <-osSigCh:
		log.Info("interrupt received, shutting down")
	case <-memoryLeakShutdownCh:
		log.Info("shutdown to deal with memory leak")
	case <-app.ShutdownChan():
		log.Info("app shutdown")
	}

	stopped := make(chan struct{})
	go func() {
		app.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(config.ShutdownGracePeriod):
		return errors.Errorf("failed to stop the application within %v", config.ShutdownGracePeriod)
	}

	// Keeps the ballast reachable for the lifetime of the app.
	if len(ballast) > 0 {
		ballast[0] = 1
	}

	if metricsProvider != nil {
		metricsProvider.Shutdown(metricsFlushTimeout)
	}
	return nil
}

func loadConfig() (BaseConfig, error) {
	// viper only reports ConfigFileNotFoundError when searching for a default
	// file, so a missing explicit path is checked here.
	if _, err := os.Stat(*configPath); err == nil {
		viper.SetConfigFile(*configPath)
	} else if !os.IsNotExist(err) {
		return BaseConfig{}, errors.Wrap(err, "failed to check if config exists")
	}

	err := viper.ReadInConfig()
	if _, notFound := err.(viper.ConfigFileNotFoundError); err != nil && !notFound {
		return BaseConfig{}, errors.Wrap(err, "failed to read config")
	}

	return unmarshalConfig(viper.GetViper())
}

func unmarshalConfig(v *viper.Viper) (BaseConfig, error) {
	config := defaultConfig
	if err := v.Unmarshal(&config); err != nil {
		return BaseConfig{}, errors.Wrap(err, "failed to unmarshal config")
	}

	if len(config.AppName) == 0 {
		return BaseConfig{}, errors.New("must specify an application name")
	}

	return config, nil
}

// newMetricsProvider returns nil when no license key is configured.
func newMetricsProvider(config BaseConfig) (*newrelic.Application, error) {
	if len(config.NewRelicLicenseKey) == 0 {
		return nil, nil
	}

	return newrelic.NewApplication(
		newrelic.ConfigFromEnvironment(),
		newrelic.ConfigAppName(config.AppName),
		newrelic.ConfigLicense(config.NewRelicLicenseKey),
		newrelic.ConfigDistributedTracerEnabled(true),
		newrelic.ConfigAppLogForwardingEnabled(true),
	)
}

// newDebugMux serves the enabled debug endpoints. pprof and expvar register
// themselves on http.DefaultServeMux, which is replaced so they are only
// reachable through the returned mux.
func newDebugMux(config BaseConfig) *http.ServeMux {
	http.DefaultServeMux = http.NewServeMux()

	mux := http.NewServeMux()
	if config.EnableExpvar {
		mux.Handle("/debug/vars", expvar.Handler())
	}
	if config.EnablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	return mux
}

func serveDebug(log *logrus.Entry, address string, mux *http.ServeMux) {
	for {
		if err := http.ListenAndServe(address, mux); err != nil {
			log.WithError(err).Warnf("debug HTTP server failed, retrying in %v", debugServerRetryDelay)
		}
		time.Sleep(debugServerRetryDelay)
	}
}

// startMemoryLeakCron closes shutdownCh the first time schedule fires.
func startMemoryLeakCron(schedule string, shutdownCh chan<- struct{}) (stop func(), err error) {
	var once sync.Once
	c := cron.New(cron.WithLocation(time.Local))
	if _, err := c.AddFunc(schedule, func() {
		once.Do(func() { close(shutdownCh) })
	}); err != nil {
		return nil, err
	}

	c.Start()
	return func() { c.Stop() }, nil
}

// ballastSize is the number of bytes to reserve for a capacity fraction of
// totalMemory, capped at half of it.
func ballastSize(capacity float32, totalMemory uint64) uint64 {
	if capacity > 0.5 {
		capacity = 0.5
	}
	if capacity < 0 {
		capacity = 0
	}
	return uint64(capacity * float32(totalMemory))
}

func configureLogger(config BaseConfig, metricsProvider *newrelic.Application) {
	var formatter logrus.Formatter = &logrus.JSONFormatter{}
	if metricsProvider != nil {
		formatter = metrics.NewCustomNewRelicLogFormatter(metricsProvider, formatter)
	}
	logrus.SetFormatter(formatter)

	if level, err := logrus.ParseLevel(strings.ToLower(config.LogLevel)); err == nil {
		logrus.SetLevel(level)
	} else {
		logrus.StandardLogger().WithField("log_level", config.LogLevel).Warn("unknown log level, ignoring")
	}

	logrus.SetOutput(os.Stdout)
}
