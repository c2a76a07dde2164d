package kernel

import (
	"sync"
	"sync/atomic"
)

// Observer receives the current task name and completion percentage
type Observer func(task string, percent float64)

/*
Status is the progress and cancellation block shared between the driver and a
running engine. Engines poll Terminated between internal steps; Cancel may be
called from any goroutine of the same process.
*/
type Status struct {
	terminate atomic.Bool
	mu        sync.Mutex
	task      string
	percent   float64
	observers []Observer
}

func (s *Status) Cancel()          { s.terminate.Store(true) }
func (s *Status) Terminated() bool { return s.terminate.Load() }

// Reset clears the flag, the task and the progress before a new run
func (s *Status) Reset() {
	s.terminate.Store(false)
	s.mu.Lock()
	s.task, s.percent = "", 0
	s.mu.Unlock()
}

func (s *Status) Observe(o Observer) {
	if o == nil {
		return
	}
	s.mu.Lock()
	s.observers = append(s.observers, o)
	s.mu.Unlock()
}

// ClearObservers drops every observer, it is called when the Guard is released
func (s *Status) ClearObservers() {
	s.mu.Lock()
	s.observers = nil
	s.mu.Unlock()
}

func (s *Status) SetTask(task string) {
	s.mu.Lock()
	s.task = task
	s.mu.Unlock()
}

func (s *Status) Task() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.task
}

func (s *Status) Percent() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.percent
}

// SetPercent records progress and notifies the observers when the value changed
func (s *Status) SetPercent(percent float64) {
	s.mu.Lock()
	if percent == s.percent {
		s.mu.Unlock()
		return
	}
	s.percent = percent
	var (
		task      = s.task
		observers = append([]Observer(nil), s.observers...)
	)
	s.mu.Unlock()
	for _, o := range observers {
		o(task, percent)
	}
}
