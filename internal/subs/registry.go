// Package subs tracks per-user connection liveness and news
// subscription state in process memory.
package subs

import (
	"errors"
	"sync"
	"time"
)

// ErrNotSubscribed is returned when unsubscribing a user that was never
// registered or subscribed.
var ErrNotSubscribed = errors.New("user has no news subscription")

// UpdatePeriod is the interval between scheduled news summaries.
const UpdatePeriod = 24 * time.Hour

// JobControl is the slice of the scheduler the registry drives: the
// recurring job is armed iff at least one user is subscribed.
type JobControl interface {
	Arm()
	Disarm()
}

type record struct {
	connected  bool
	subscribed bool
	nextUpdate time.Time
}

// Status is a snapshot of one user's subscription state.
type Status struct {
	Subscribed bool
	NextUpdate time.Time // zero when not subscribed
}

// Registry is the mutex-guarded user-state map. Records are created on
// first registration or subscription and never deleted; stale entries
// persist until process restart.
type Registry struct {
	mu   sync.Mutex
	jobs JobControl
	recs map[string]*record
	now  func() time.Time
}

func NewRegistry(jobs JobControl) *Registry {
	return &Registry{
		jobs: jobs,
		recs: make(map[string]*record),
		now:  time.Now,
	}
}

func (r *Registry) get(userID string) *record {
	rec, ok := r.recs[userID]
	if !ok {
		rec = &record{}
		r.recs[userID] = rec
	}
	return rec
}

func (r *Registry) anySubscribedLocked() bool {
	for _, rec := range r.recs {
		if rec.subscribed {
			return true
		}
	}
	return false
}

// RegisterConnection marks the user's realtime connection live. Never
// auto-subscribes.
func (r *Registry) RegisterConnection(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.get(userID).connected = true
}

// UnregisterConnection marks the connection down. Unknown users are a
// no-op, not an error.
func (r *Registry) UnregisterConnection(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.recs[userID]; ok {
		rec.connected = false
	}
}

// Subscribe turns on the news subscription. Idempotent: re-subscribing
// returns the existing next-update time unchanged. Arms the recurring
// job when this is the first subscriber. The scheduler transition
// happens inside the critical section so the armed state always tracks
// the subscriber set; the scheduler never calls back into the registry,
// so holding the lock across Arm is safe.
func (r *Registry) Subscribe(userID string) time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := r.get(userID)
	if rec.subscribed {
		return rec.nextUpdate
	}

	wasEmpty := !r.anySubscribedLocked()
	rec.subscribed = true
	rec.nextUpdate = r.now().Add(UpdatePeriod)
	if wasEmpty {
		r.jobs.Arm()
	}
	return rec.nextUpdate
}

// Unsubscribe turns the subscription off, leaving the connection flag
// untouched. Disarms the job when no subscribers remain, inside the
// same critical section as the flag flip.
func (r *Registry) Unsubscribe(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.recs[userID]
	if !ok {
		return ErrNotSubscribed
	}
	rec.subscribed = false
	if !r.anySubscribedLocked() {
		r.jobs.Disarm()
	}
	return nil
}

// Status reports the user's subscription snapshot.
func (r *Registry) Status(userID string) Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.recs[userID]
	if !ok || !rec.subscribed {
		return Status{}
	}
	return Status{Subscribed: true, NextUpdate: rec.nextUpdate}
}

// ActiveSubscribers returns users with subscribed=true and a live
// connection at this moment.
func (r *Registry) ActiveSubscribers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for userID, rec := range r.recs {
		if rec.subscribed && rec.connected {
			out = append(out, userID)
		}
	}
	return out
}

// AnySubscribed reports whether the recurring job should be armed.
func (r *Registry) AnySubscribed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.anySubscribedLocked()
}
