// Package scheduler runs keyed one-shot callbacks after a delay.
//
// TimerScheduler is backed by runtime timers. ManualScheduler keeps a virtual
// clock that only moves when Advance is called, so code driven by a
// Scheduler can be tested without sleeping.
package scheduler

import (
	"sync"
	"time"
)

// Scheduler schedules fn to run once after delay under key. Scheduling a key
// that is already pending replaces the earlier callback.
type Scheduler interface {
	Schedule(key string, delay time.Duration, fn func())
	// Cancel drops the pending callback for key and reports whether one existed.
	Cancel(key string) bool
	Now() time.Time
}

// TimerScheduler runs callbacks on their own goroutine via time.AfterFunc.
type TimerScheduler struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{timers: make(map[string]*time.Timer)}
}

func (s *TimerScheduler) Schedule(key string, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduleLocked(key, delay, fn)
}

func (s *TimerScheduler) scheduleLocked(key string, delay time.Duration, fn func()) {
	if old, ok := s.timers[key]; ok {
		old.Stop()
	}

	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		s.mu.Lock()
		// cancelled or replaced after the timer fired
		if s.timers[key] != t {
			s.mu.Unlock()
			return
		}
		delete(s.timers, key)
		s.mu.Unlock()
		fn()
	})
	s.timers[key] = t
}

func (s *TimerScheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelLocked(key)
}

func (s *TimerScheduler) cancelLocked(key string) bool {
	t, ok := s.timers[key]
	if !ok {
		return false
	}
	t.Stop()
	delete(s.timers, key)
	return true
}

func (s *TimerScheduler) Now() time.Time {
	return time.Now()
}

// Len returns the number of pending callbacks.
func (s *TimerScheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// ManualScheduler is a Scheduler whose clock is moved explicitly.
type ManualScheduler struct {
	mu    sync.Mutex
	now   time.Time
	seq   uint64
	tasks map[string]manualTask
}

type manualTask struct {
	due time.Time
	seq uint64
	fn  func()
}

func NewManualScheduler(start time.Time) *ManualScheduler {
	return &ManualScheduler{
		now:   start,
		tasks: make(map[string]manualTask),
	}
}

func (m *ManualScheduler) Schedule(key string, delay time.Duration, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	m.tasks[key] = manualTask{due: m.now.Add(delay), seq: m.seq, fn: fn}
}

func (m *ManualScheduler) Cancel(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tasks[key]; !ok {
		return false
	}
	delete(m.tasks, key)
	return true
}

func (m *ManualScheduler) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Len returns the number of pending callbacks.
func (m *ManualScheduler) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Pending reports whether a callback is scheduled for key and when it is due.
func (m *ManualScheduler) Pending(key string) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[key]
	return t.due, ok
}

// Advance moves the clock forward by d and runs every callback that falls
// due, earliest first. Callbacks scheduled while advancing run too if they
// are due within the window. Callbacks run on the caller's goroutine.
func (m *ManualScheduler) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		key, task, ok := m.earliestLocked()
		if !ok || task.due.After(target) {
			m.now = target
			m.mu.Unlock()
			return
		}
		delete(m.tasks, key)
		if task.due.After(m.now) {
			m.now = task.due
		}
		m.mu.Unlock()

		task.fn()
	}
}

// RunNext jumps the clock to the earliest pending callback and runs it.
// It returns false when nothing is pending.
func (m *ManualScheduler) RunNext() bool {
	m.mu.Lock()
	key, task, ok := m.earliestLocked()
	if !ok {
		m.mu.Unlock()
		return false
	}
	delete(m.tasks, key)
	if task.due.After(m.now) {
		m.now = task.due
	}
	m.mu.Unlock()

	task.fn()
	return true
}

func (m *ManualScheduler) earliestLocked() (string, manualTask, bool) {
	var (
		bestKey string
		best    manualTask
		found   bool
	)
	for k, t := range m.tasks {
		if !found || t.due.Before(best.due) || (t.due.Equal(best.due) && t.seq < best.seq) {
			bestKey, best, found = k, t, true
		}
	}
	return bestKey, best, found
}
