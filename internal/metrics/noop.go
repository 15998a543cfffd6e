package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncUserRegistered is a no-op.
func (n *NoopRecorder) IncUserRegistered() {}

// IncAuthAttempt is a no-op.
func (n *NoopRecorder) IncAuthAttempt(result string) {}

// IncRateLimited is a no-op.
func (n *NoopRecorder) IncRateLimited() {}

// ObserveVerifyDuration is a no-op.
func (n *NoopRecorder) ObserveVerifyDuration(duration time.Duration) {}

// IncKeyGenerated is a no-op.
func (n *NoopRecorder) IncKeyGenerated() {}

// IncJWKSRequest is a no-op.
func (n *NoopRecorder) IncJWKSRequest() {}
