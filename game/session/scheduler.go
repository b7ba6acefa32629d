package session

import (
	"sort"
	"sync"
	"time"
)

// Timer is a cancellable scheduled callback
type Timer interface {
	// Stop prevents the callback from running. It reports whether the call
	// stopped the timer before it fired.
	Stop() bool
}

// Scheduler runs callbacks after a delay
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// RealScheduler schedules on the runtime timer heap
type RealScheduler struct{}

// AfterFunc wraps time.AfterFunc
func (RealScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// ManualScheduler fires callbacks only when Advance moves its clock past
// their deadline. It lets tests and simulations drive timers
// deterministically.
type ManualScheduler struct {
	mu    sync.Mutex
	now   time.Time
	seq   int
	tasks []*manualTask
}

type manualTask struct {
	at      time.Time
	seq     int
	f       func()
	stopped bool
	fired   bool
	owner   *ManualScheduler
}

// NewManualScheduler creates a scheduler whose clock starts at start
func NewManualScheduler(start time.Time) *ManualScheduler {
	return &ManualScheduler{now: start}
}

// Now returns the scheduler's clock
func (m *ManualScheduler) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// AfterFunc registers f to run once the clock reaches now+d
func (m *ManualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTask{at: m.now.Add(d), seq: m.seq, f: f, owner: m}
	m.tasks = append(m.tasks, t)
	return t
}

// Stop cancels the task
func (t *manualTask) Stop() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Pending returns the number of live tasks
func (m *ManualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tasks {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// Advance moves the clock forward by d, running due callbacks in deadline
// order. Callbacks scheduled by other callbacks run too if they fall due.
func (m *ManualScheduler) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		var next *manualTask
		live := m.tasks[:0]
		for _, t := range m.tasks {
			if t.stopped || t.fired {
				continue
			}
			live = append(live, t)
		}
		m.tasks = live
		sort.SliceStable(m.tasks, func(i, j int) bool {
			if m.tasks[i].at.Equal(m.tasks[j].at) {
				return m.tasks[i].seq < m.tasks[j].seq
			}
			return m.tasks[i].at.Before(m.tasks[j].at)
		})
		if len(m.tasks) > 0 && !m.tasks[0].at.After(target) {
			next = m.tasks[0]
			next.fired = true
			if next.at.After(m.now) {
				m.now = next.at
			}
		}
		if next == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.mu.Unlock()
		next.f()
	}
}
