// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Credential path metrics
	IncUserRegistered()
	IncAuthAttempt(result string) // result: "authenticated", "invalid", "error"
	IncRateLimited()
	ObserveVerifyDuration(duration time.Duration)

	// Key lifecycle metrics
	IncKeyGenerated()
	IncJWKSRequest()
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
