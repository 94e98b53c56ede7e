package domain

import "time"

// WindowState is the time-driven state of a session. It is never stored;
// every call re-evaluates the window against the supplied clock.
type WindowState int

const (
	WindowNotYetOpen WindowState = iota
	WindowOpen
	WindowClosed
)

func (s WindowState) String() string {
	switch s {
	case WindowNotYetOpen:
		return "not_yet_open"
	case WindowOpen:
		return "open"
	case WindowClosed:
		return "closed"
	}
	return "unknown"
}

// WindowState evaluates the session window at the given instant. Both
// boundaries are inclusive: a submission at exactly OpenFrom or exactly
// OpenUntil is accepted.
func (s QuizSession) WindowState(now time.Time) WindowState {
	if now.Before(s.OpenFrom) {
		return WindowNotYetOpen
	}
	if s.OpenUntil != nil && now.After(*s.OpenUntil) {
		return WindowClosed
	}
	return WindowOpen
}

// ResultsVisible reports whether scored results may be shown at the given
// instant. Open-ended sessions reveal results immediately; bounded sessions
// withhold them until the window has closed, so early finishers cannot leak
// answers to participants still inside the window.
func (s QuizSession) ResultsVisible(now time.Time) bool {
	if s.OpenUntil == nil {
		return true
	}
	return s.WindowState(now) == WindowClosed
}
