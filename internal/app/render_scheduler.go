package app

import "time"

const defaultRenderInterval = 50 * time.Millisecond

// RenderScheduler throttles transcript re-renders. Requests inside the
// interval are coalesced into one pending render.
type RenderScheduler interface {
	Request(now time.Time) bool
	ShouldRender(now time.Time) bool
	MarkRendered(now time.Time)
	Delay(now time.Time) time.Duration
}

type throttledRenderScheduler struct {
	minInterval  time.Duration
	lastRendered time.Time
	pending      bool
}

func NewDefaultRenderScheduler() RenderScheduler {
	return NewThrottledRenderScheduler(defaultRenderInterval)
}

func NewThrottledRenderScheduler(minInterval time.Duration) RenderScheduler {
	if minInterval < 0 {
		minInterval = 0
	}
	return &throttledRenderScheduler{minInterval: minInterval}
}

// Request reports whether a render may happen now. Otherwise the render is
// marked pending.
func (s *throttledRenderScheduler) Request(now time.Time) bool {
	if s.minInterval <= 0 || s.ready(now) {
		return true
	}
	s.pending = true
	return false
}

func (s *throttledRenderScheduler) ShouldRender(now time.Time) bool {
	if !s.pending {
		return false
	}
	return s.minInterval <= 0 || s.ready(now)
}

func (s *throttledRenderScheduler) MarkRendered(now time.Time) {
	if now.IsZero() {
		now = time.Now()
	}
	s.pending = false
	s.lastRendered = now
}

// Delay is how long a pending render still has to wait.
func (s *throttledRenderScheduler) Delay(now time.Time) time.Duration {
	if s.lastRendered.IsZero() || s.minInterval <= 0 {
		return 0
	}
	wait := s.minInterval - now.Sub(s.lastRendered)
	if wait < 0 {
		return 0
	}
	return wait
}

func (s *throttledRenderScheduler) ready(now time.Time) bool {
	if now.IsZero() {
		now = time.Now()
	}
	if s.lastRendered.IsZero() {
		return true
	}
	return now.Sub(s.lastRendered) >= s.minInterval
}
