package metrics

import "time"

// NoopSink is a no-op implementation of Sink.
// Used when metrics are disabled to avoid nil checks.
type NoopSink struct{}

// NewNoopSink returns a no-op metrics sink.
func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

func (n *NoopSink) CommandCompleted(command, outcome string, duration time.Duration)         {}
func (n *NoopSink) ValidationRejected(reason string)                                         {}
func (n *NoopSink) DashboardQueried(query string, cacheHit bool, duration time.Duration)     {}
func (n *NoopSink) CacheError()                                                              {}
func (n *NoopSink) RequestCompleted(method, route string, status int, duration time.Duration) {}
