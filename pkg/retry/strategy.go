package retry

import (
	"errors"
	"math/rand"
	"time"

	"github.com/code-payments/token-wrapper/pkg/retry/backoff"
)

// Strategy decides whether an action that failed after attempts tries should
// run again. Strategies may sleep before returning.
type Strategy func(attempts uint, err error) bool

// Limit stops retrying once maxAttempts attempts have been made.
func Limit(maxAttempts uint) Strategy {
	return func(attempts uint, _ error) bool {
		return attempts < maxAttempts
	}
}

// RetriableErrors only retries errors matching one of retriable.
func RetriableErrors(retriable ...error) Strategy {
	return func(_ uint, err error) bool {
		return matchesAny(err, retriable)
	}
}

// NonRetriableErrors retries every error except those matching nonRetriable.
func NonRetriableErrors(nonRetriable ...error) Strategy {
	return func(_ uint, err error) bool {
		return !matchesAny(err, nonRetriable)
	}
}

// Backoff sleeps for the delay given by strategy, capped at maxBackoff.
func Backoff(strategy backoff.Strategy, maxBackoff time.Duration) Strategy {
	return BackoffWithJitter(strategy, maxBackoff, 0)
}

// BackoffWithJitter is Backoff with the capped delay randomly shifted by up
// to jitter (a fraction of the delay) in either direction. A capped delay of
// 100ms with a jitter of 0.1 sleeps somewhere in [90ms, 110ms].
func BackoffWithJitter(strategy backoff.Strategy, maxBackoff time.Duration, jitter float64) Strategy {
	return func(attempts uint, _ error) bool {
		delay := strategy(attempts)
		if delay > maxBackoff {
			delay = maxBackoff
		}

		if jitter > 0 {
			delay = time.Duration(float64(delay) * (1 + jitter*(2*rand.Float64()-1)))
		}

		sleeperImpl.Sleep(delay)
		return true
	}
}

func matchesAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

type sleeper interface {
	Sleep(time.Duration)
}

type realSleeper struct{}

func (realSleeper) Sleep(d time.Duration) { time.Sleep(d) }

var sleeperImpl sleeper = realSleeper{}
