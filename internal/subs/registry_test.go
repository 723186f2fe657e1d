package subs

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"
)

type fakeJobControl struct {
	armed   int
	disarms int
}

func (f *fakeJobControl) Arm()    { f.armed++ }
func (f *fakeJobControl) Disarm() { f.disarms++ }

func TestSubscribeIsIdempotent(t *testing.T) {
	jobs := &fakeJobControl{}
	r := NewRegistry(jobs)

	first := r.Subscribe("alice")
	second := r.Subscribe("alice")

	if !first.Equal(second) {
		t.Errorf("re-subscribe changed next_update: first %v, second %v", first, second)
	}
	if jobs.armed != 1 {
		t.Errorf("expected 1 arm call, got %d", jobs.armed)
	}
}

func TestSubscribeComputesNextUpdate(t *testing.T) {
	r := NewRegistry(&fakeJobControl{})
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return base }

	next := r.Subscribe("alice")
	if want := base.Add(UpdatePeriod); !next.Equal(want) {
		t.Errorf("next_update = %v, want %v", next, want)
	}
}

func TestUnsubscribeUnknownUser(t *testing.T) {
	r := NewRegistry(&fakeJobControl{})
	if err := r.Unsubscribe("ghost"); !errors.Is(err, ErrNotSubscribed) {
		t.Errorf("expected ErrNotSubscribed, got %v", err)
	}
}

func TestUnregisterUnknownUserIsNoOp(t *testing.T) {
	r := NewRegistry(&fakeJobControl{})
	r.UnregisterConnection("ghost") // must not panic or create a record
	if got := r.Status("ghost"); got.Subscribed {
		t.Error("unregister must not create a subscription")
	}
}

func TestRegisterDoesNotAutoSubscribe(t *testing.T) {
	jobs := &fakeJobControl{}
	r := NewRegistry(jobs)

	r.RegisterConnection("alice")
	if r.AnySubscribed() {
		t.Error("registering a connection must not subscribe the user")
	}
	if jobs.armed != 0 {
		t.Errorf("expected no arm calls, got %d", jobs.armed)
	}
}

func TestJobArmedIffAnySubscriber(t *testing.T) {
	jobs := &fakeJobControl{}
	r := NewRegistry(jobs)

	r.Subscribe("alice")
	r.Subscribe("bob")
	if jobs.armed != 1 {
		t.Errorf("expected a single arm for the first subscriber, got %d", jobs.armed)
	}

	if err := r.Unsubscribe("alice"); err != nil {
		t.Fatal(err)
	}
	if jobs.disarms != 0 {
		t.Errorf("job disarmed while bob is still subscribed")
	}

	if err := r.Unsubscribe("bob"); err != nil {
		t.Fatal(err)
	}
	if jobs.disarms != 1 {
		t.Errorf("expected disarm when last subscriber left, got %d", jobs.disarms)
	}
}

// latchJobControl remembers the last Arm/Disarm call, like the real
// scheduler does. It never calls back into the registry.
type latchJobControl struct {
	mu    sync.Mutex
	armed bool
}

func (f *latchJobControl) Arm()    { f.mu.Lock(); f.armed = true; f.mu.Unlock() }
func (f *latchJobControl) Disarm() { f.mu.Lock(); f.armed = false; f.mu.Unlock() }

func (f *latchJobControl) isArmed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.armed
}

func TestArmedStateTracksSubscribersUnderContention(t *testing.T) {
	jobs := &latchJobControl{}
	r := NewRegistry(jobs)

	// Each worker churns its own user through subscribe/unsubscribe so
	// the any-subscribed predicate flips constantly across goroutines.
	// The arm/disarm call order must match the mutation order, or the
	// job can end up disarmed while subscribers remain (and vice versa).
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		userID := fmt.Sprintf("user-%d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				r.Subscribe(userID)
				if err := r.Unsubscribe(userID); err != nil {
					t.Errorf("unsubscribe %s: %v", userID, err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if r.AnySubscribed() {
		t.Fatal("all workers unsubscribed, but a subscription remains")
	}
	if jobs.isArmed() {
		t.Error("job left armed with no subscribers")
	}

	r.Subscribe("late")
	if !jobs.isArmed() {
		t.Error("job not armed for a fresh subscriber")
	}
}

func TestUnsubscribeKeepsConnectionFlag(t *testing.T) {
	r := NewRegistry(&fakeJobControl{})
	r.RegisterConnection("alice")
	r.Subscribe("alice")

	if err := r.Unsubscribe("alice"); err != nil {
		t.Fatal(err)
	}
	// Re-subscribing a still-connected user makes them active again.
	r.Subscribe("alice")
	if got := r.ActiveSubscribers(); len(got) != 1 || got[0] != "alice" {
		t.Errorf("connection flag lost across unsubscribe: active = %v", got)
	}
}

func TestActiveSubscribersRequiresBothFlags(t *testing.T) {
	r := NewRegistry(&fakeJobControl{})

	r.RegisterConnection("connected-only")
	r.Subscribe("subscribed-only")
	r.RegisterConnection("both")
	r.Subscribe("both")
	r.RegisterConnection("dropped")
	r.Subscribe("dropped")
	r.UnregisterConnection("dropped")

	got := r.ActiveSubscribers()
	sort.Strings(got)
	if len(got) != 1 || got[0] != "both" {
		t.Errorf("active subscribers = %v, want [both]", got)
	}
}

func TestStatus(t *testing.T) {
	r := NewRegistry(&fakeJobControl{})

	if got := r.Status("alice"); got.Subscribed {
		t.Error("unknown user reported as subscribed")
	}

	next := r.Subscribe("alice")
	got := r.Status("alice")
	if !got.Subscribed || !got.NextUpdate.Equal(next) {
		t.Errorf("status = %+v, want subscribed with next %v", got, next)
	}

	if err := r.Unsubscribe("alice"); err != nil {
		t.Fatal(err)
	}
	if got := r.Status("alice"); got.Subscribed {
		t.Error("unsubscribed user still reported as subscribed")
	}
}
