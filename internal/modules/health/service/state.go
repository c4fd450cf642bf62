package service

import (
	"sync/atomic"
	"time"
)

// State — общее состояние процесса для проб и периодической сводки.
type State struct {
	ready     atomic.Bool
	startedAt time.Time

	lastTickUnix atomic.Int64 // unix seconds, любой инструмент
}

func NewState() *State {
	s := &State{startedAt: time.Now()}
	s.ready.Store(false)
	return s
}

func (s *State) SetReady(v bool) { s.ready.Store(v) }
func (s *State) Ready() bool     { return s.ready.Load() }

func (s *State) TouchTick(t time.Time) { s.lastTickUnix.Store(t.Unix()) }
func (s *State) LastTick() time.Time {
	u := s.lastTickUnix.Load()
	if u == 0 {
		return time.Time{}
	}
	return time.Unix(u, 0)
}

// TickFresh — приходили ли тики за последний maxAge (вне сессии фид молчит).
func (s *State) TickFresh(maxAge time.Duration) bool {
	t := s.LastTick()
	return !t.IsZero() && time.Since(t) <= maxAge
}

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }
