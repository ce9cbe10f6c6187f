package vault

import (
	"sync"
	"time"
)

// SecurityEvent records a crypto-relevant incident observed by the vault.
// Detail is a short operator-facing note; it never contains key material or
// plaintext.
type SecurityEvent struct {
	Time   time.Time
	Kind   string
	Detail string
}

// Security event kinds.
const (
	EventIntegrityMismatch = "integrity_mismatch"
	EventDecryptFailure    = "decrypt_failure"
	EventEnvelopeVersion   = "envelope_version"
	EventUnwrapFailure     = "unwrap_failure"
	EventKeysZeroized      = "keys_zeroized"
)

// eventRing is a bounded, thread-safe buffer for security events.
// When full, the oldest events are dropped to make room for new ones.
type eventRing struct {
	mu       sync.Mutex
	events   []SecurityEvent
	head     int // next write position
	tail     int // oldest event position
	count    int
	capacity int

	dropped int64
}

func newEventRing(capacity int) *eventRing {
	if capacity <= 0 {
		capacity = 256 // default
	}
	return &eventRing{
		events:   make([]SecurityEvent, capacity),
		capacity: capacity,
	}
}

// record adds an event, dropping the oldest if necessary.
func (r *eventRing) record(event SecurityEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count >= r.capacity {
		r.tail = (r.tail + 1) % r.capacity
		r.count--
		r.dropped++
	}

	r.events[r.head] = event
	r.head = (r.head + 1) % r.capacity
	r.count++
}

// snapshot copies the buffered events, oldest first, without consuming them.
func (r *eventRing) snapshot() []SecurityEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count == 0 {
		return nil
	}
	out := make([]SecurityEvent, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.events[(r.tail+i)%r.capacity]
	}
	return out
}

func (r *eventRing) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// droppedCount returns the total number of events discarded to stay bounded.
func (r *eventRing) droppedCount() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}
