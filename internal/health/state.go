package health

import (
	"sync/atomic"
	"time"
)

// State is the loop's progress as seen by the health endpoints. Written by the loop goroutine, read by HTTP handlers.
type State struct {
	ready     atomic.Bool
	startedAt time.Time

	cycles        atomic.Int64
	failures      atomic.Int64
	lastCycleUnix atomic.Int64 // unix seconds
	lastError     atomic.Value // string
}

func NewState() *State {
	s := &State{startedAt: time.Now()}
	s.lastError.Store("")
	return s
}

// SetReady(false) is used on shutdown; a finished cycle sets it back to true.
func (s *State) SetReady(v bool) { s.ready.Store(v) }
func (s *State) Ready() bool     { return s.ready.Load() }

// CycleDone records a finished cycle. The first one makes the bot ready.
func (s *State) CycleDone(at time.Time, err error) {
	s.cycles.Add(1)
	s.lastCycleUnix.Store(at.Unix())
	if err != nil {
		s.failures.Add(1)
		s.lastError.Store(err.Error())
	} else {
		s.lastError.Store("")
	}
	s.ready.Store(true)
}

func (s *State) Cycles() int64   { return s.cycles.Load() }
func (s *State) Failures() int64 { return s.failures.Load() }

func (s *State) LastError() string { return s.lastError.Load().(string) }

func (s *State) LastCycle() time.Time {
	u := s.lastCycleUnix.Load()
	if u == 0 {
		return time.Time{}
	}
	return time.Unix(u, 0)
}

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }
