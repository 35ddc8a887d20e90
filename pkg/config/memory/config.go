package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/code-payments/token-wrapper/pkg/config"
)

// ErrInduced is returned by Get while errors are being induced
var ErrInduced = errors.New("memory config: induced error")

// Config is a mutable in memory config.Config used for tests and overrides
type Config struct {
	mu       sync.RWMutex
	value    interface{}
	failing  bool
	shutdown bool
}

// NewConfig returns a Config holding value. A nil value means no value is set.
func NewConfig(value interface{}) *Config {
	return &Config{value: value}
}

// Get implements config.Config.Get
func (c *Config) Get(_ context.Context) (interface{}, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch {
	case c.shutdown:
		return nil, config.ErrShutdown
	case c.failing:
		return nil, ErrInduced
	case c.value == nil:
		return nil, config.ErrNoValue
	}
	return c.value, nil
}

// Shutdown implements config.Config.Shutdown
func (c *Config) Shutdown() {
	c.mu.Lock()
	c.shutdown = true
	c.mu.Unlock()
}

// SetValue replaces the value returned by Get
func (c *Config) SetValue(value interface{}) {
	c.mu.Lock()
	c.value = value
	c.mu.Unlock()
}

// ClearValue makes Get return config.ErrNoValue
func (c *Config) ClearValue() {
	c.SetValue(nil)
}

// InduceErrors makes Get return ErrInduced until StopInducingErrors is called
func (c *Config) InduceErrors() {
	c.setFailing(true)
}

func (c *Config) StopInducingErrors() {
	c.setFailing(false)
}

func (c *Config) setFailing(failing bool) {
	c.mu.Lock()
	c.failing = failing
	c.mu.Unlock()
}
