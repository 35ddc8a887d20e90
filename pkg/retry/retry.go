// Package retry runs actions repeatedly until they succeed or a Strategy
// gives up.
package retry

// Action is a function to be performed in a retriable manner.
type Action func() error

// Retrier retries actions using a fixed set of strategies.
type Retrier interface {
	Retry(action Action) (uint, error)
}

type retrier []Strategy

// NewRetrier returns a Retrier that applies strategies to every action. With
// no strategies, actions are retried until they succeed.
func NewRetrier(strategies ...Strategy) Retrier {
	return retrier(strategies)
}

func (r retrier) Retry(action Action) (uint, error) {
	return Retry(action, r...)
}

// Retry calls action until it returns nil or a strategy declines another
// attempt. It returns the number of attempts made along with the last error.
//
// Strategies are consulted in order, so delaying strategies belong last.
func Retry(action Action, strategies ...Strategy) (uint, error) {
	var attempts uint
	for {
		attempts++

		err := action()
		if err == nil {
			return attempts, nil
		}

		for _, s := range strategies {
			if !s(attempts, err) {
				return attempts, err
			}
		}
	}
}
