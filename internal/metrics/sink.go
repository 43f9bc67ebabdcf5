// Package metrics records engine metrics behind a backend-neutral Sink.
package metrics

import "time"

// Sink records engine metrics. Methods are fire-and-forget: implementations
// must not block or surface errors to the caller.
type Sink interface {
	// Job Service
	CommandCompleted(command, outcome string, duration time.Duration)
	ValidationRejected(reason string)

	// Dashboard
	DashboardQueried(query string, cacheHit bool, duration time.Duration)
	CacheError()

	// HTTP transport
	RequestCompleted(method, route string, status int, duration time.Duration)
}

// Outcome values for CommandCompleted.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeNotFound = "not_found"
	OutcomeConflict = "conflict"
	OutcomeFailed   = "failed"
)

// StatusClass buckets an HTTP status code for labelling.
func StatusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "other"
	}
}
