// Package sched owns the single recurring news-summary job slot.
package sched

import (
	"log"
	"sync"

	"github.com/robfig/cron/v3"
)

// spec is the fixed period between summary runs.
const spec = "@every 24h"

// Scheduler holds zero or one armed recurring job. Arm is idempotent:
// re-arming replaces the prior entry. The job body is guarded against
// concurrent re-entry, so a slow run is never overlapped by the next
// firing.
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	entryID cron.EntryID
	running sync.Mutex
	job     func()
}

// New builds a scheduler around the given job body and starts the cron
// loop. Nothing fires until Arm is called.
func New(job func()) *Scheduler {
	s := &Scheduler{cron: cron.New()}
	s.job = func() {
		// Single in-flight execution per firing.
		if !s.running.TryLock() {
			log.Println("News summary job still running, skipping this firing")
			return
		}
		defer s.running.Unlock()
		job()
	}
	s.cron.Start()
	return s
}

// Arm schedules the recurring job, replacing any prior entry.
func (s *Scheduler) Arm() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.entryID != 0 {
		s.cron.Remove(s.entryID)
	}
	entryID, err := s.cron.AddFunc(spec, s.job)
	if err != nil {
		// The spec is a compile-time constant; this cannot happen
		// outside of programmer error.
		log.Printf("Failed to arm news summary job: %v", err)
		return
	}
	s.entryID = entryID
	log.Println("News summary job armed")
}

// Disarm removes the job if armed.
func (s *Scheduler) Disarm() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.entryID != 0 {
		s.cron.Remove(s.entryID)
		s.entryID = 0
		log.Println("News summary job disarmed")
	}
}

// Armed reports whether a job entry is currently scheduled.
func (s *Scheduler) Armed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entryID != 0
}

// Stop halts the cron loop. Armed entries do not survive Stop.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}
