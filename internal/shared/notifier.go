package shared

import "context"

// Notifier hands an outbound email to the background queue.
type Notifier interface {
	Notify(ctx context.Context, to, subject, body string) error
}

// NopNotifier discards notifications.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(context.Context, string, string, string) error { return nil }

// StatsInvalidator drops cached aggregate figures after a write that
// changes them. Failures are handled by the implementation.
type StatsInvalidator interface {
	Invalidate(ctx context.Context)
}

// NopStatsInvalidator ignores invalidations.
type NopStatsInvalidator struct{}

// Invalidate implements StatsInvalidator.
func (NopStatsInvalidator) Invalidate(context.Context) {}
