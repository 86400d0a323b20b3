package metrics

import (
	"context"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
)

// RecordCount records a count metric
func RecordCount(ctx context.Context, metricName string, count uint64) {
	withApplication(ctx, func(app *newrelic.Application) {
		app.RecordCustomMetric(metricName, float64(count))
	})
}

// RecordDuration records a duration metric in milliseconds
func RecordDuration(ctx context.Context, metricName string, duration time.Duration) {
	withApplication(ctx, func(app *newrelic.Application) {
		app.RecordCustomMetric(metricName, float64(duration/time.Millisecond))
	})
}

// RecordEvent records a custom event with a set of attributes
func RecordEvent(ctx context.Context, eventName string, attributes map[string]interface{}) {
	withApplication(ctx, func(app *newrelic.Application) {
		app.RecordCustomEvent(eventName, attributes)
	})
}

func withApplication(ctx context.Context, fn func(app *newrelic.Application)) {
	if app, ok := fromContext(ctx); ok {
		fn(app)
	}
}
