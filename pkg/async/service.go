// Package async defines long running background services.
package async

import (
	"context"
	"time"
)

// Service runs until its context is cancelled, doing its work once per
// interval.
type Service interface {
	Start(ctx context.Context, interval time.Duration) error
}
