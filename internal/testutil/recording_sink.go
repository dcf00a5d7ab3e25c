package testutil

import (
	"context"
	"sync"

	"github.com/vk/assetforge/internal/assetid"
	"github.com/vk/assetforge/internal/importer"
)

// Delivery captures one sink invocation.
type Delivery struct {
	Key                assetid.Key
	Artifact           importer.Artifact
	Err                error
	FailedDeps         []assetid.Key
	DependentsAffected []assetid.Key
}

// RecordingSink captures deliveries in order. The executor guarantees
// single-goroutine delivery, but the sink locks anyway so that a regression
// in that guarantee shows up as a data race under -race rather than silent
// corruption.
type RecordingSink struct {
	mu         sync.Mutex
	deliveries []Delivery
}

// Deliver implements sink.ResultSink.
func (r *RecordingSink) Deliver(_ context.Context, key assetid.Key, artifact importer.Artifact, failedDeps []assetid.Key) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries = append(r.deliveries, Delivery{Key: key, Artifact: artifact, FailedDeps: failedDeps})
}

// Fail implements sink.ResultSink.
func (r *RecordingSink) Fail(_ context.Context, key assetid.Key, err error, dependentsAffected []assetid.Key) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries = append(r.deliveries, Delivery{Key: key, Err: err, DependentsAffected: dependentsAffected})
}

// Deliveries returns a copy of everything delivered so far, in order.
func (r *RecordingSink) Deliveries() []Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Delivery, len(r.deliveries))
	copy(out, r.deliveries)
	return out
}

// IndexOf returns the delivery position of a key, or -1 if never delivered.
func (r *RecordingSink) IndexOf(key assetid.Key) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, d := range r.deliveries {
		if d.Key == key {
			return i
		}
	}
	return -1
}

// Find returns the delivery for a key, if any.
func (r *RecordingSink) Find(key assetid.Key) (Delivery, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.deliveries {
		if d.Key == key {
			return d, true
		}
	}
	return Delivery{}, false
}
