package metrics

import (
	"context"

	"github.com/newrelic/go-agent/v3/newrelic"
)

type newRelicContextKey struct{}

// NewRelicContextKey is the context key holding the *newrelic.Application
// metrics and events are reported to.
var NewRelicContextKey = newRelicContextKey{}

// NewContext returns a copy of ctx that reports metrics to app. A nil app
// leaves metrics disabled.
func NewContext(ctx context.Context, app *newrelic.Application) context.Context {
	if app == nil {
		return ctx
	}
	return context.WithValue(ctx, NewRelicContextKey, app)
}
