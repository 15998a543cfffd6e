package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot is a point-in-time view of collected metrics.
type Snapshot struct {
	UsersRegistered   int64
	AuthAttempts      map[string]int64
	RateLimited       int64
	KeysGenerated     int64
	JWKSRequests      int64
	VerifyCount       int64
	VerifyTotalMillis int64
}

// InMemoryRecorder implements Recorder with atomic counters.
// Useful for tests and debug endpoints.
type InMemoryRecorder struct {
	usersRegistered   atomic.Int64
	rateLimited       atomic.Int64
	keysGenerated     atomic.Int64
	jwksRequests      atomic.Int64
	verifyCount       atomic.Int64
	verifyTotalMillis atomic.Int64

	mu           sync.Mutex
	authAttempts map[string]int64
}

// NewInMemory returns a Recorder that accumulates counts in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		authAttempts: make(map[string]int64),
	}
}

// IncUserRegistered increments the registered user counter.
func (r *InMemoryRecorder) IncUserRegistered() {
	r.usersRegistered.Add(1)
}

// IncAuthAttempt increments the attempt counter for the given result.
func (r *InMemoryRecorder) IncAuthAttempt(result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.authAttempts[result]++
}

// IncRateLimited increments the admission denial counter.
func (r *InMemoryRecorder) IncRateLimited() {
	r.rateLimited.Add(1)
}

// ObserveVerifyDuration records one password verification duration.
func (r *InMemoryRecorder) ObserveVerifyDuration(duration time.Duration) {
	r.verifyCount.Add(1)
	r.verifyTotalMillis.Add(duration.Milliseconds())
}

// IncKeyGenerated increments the generated key counter.
func (r *InMemoryRecorder) IncKeyGenerated() {
	r.keysGenerated.Add(1)
}

// IncJWKSRequest increments the JWKS request counter.
func (r *InMemoryRecorder) IncJWKSRequest() {
	r.jwksRequests.Add(1)
}

// Snapshot returns a copy of all current counters.
func (r *InMemoryRecorder) Snapshot() Snapshot {
	r.mu.Lock()
	attempts := make(map[string]int64, len(r.authAttempts))
	for k, v := range r.authAttempts {
		attempts[k] = v
	}
	r.mu.Unlock()

	return Snapshot{
		UsersRegistered:   r.usersRegistered.Load(),
		AuthAttempts:      attempts,
		RateLimited:       r.rateLimited.Load(),
		KeysGenerated:     r.keysGenerated.Load(),
		JWKSRequests:      r.jwksRequests.Load(),
		VerifyCount:       r.verifyCount.Load(),
		VerifyTotalMillis: r.verifyTotalMillis.Load(),
	}
}
