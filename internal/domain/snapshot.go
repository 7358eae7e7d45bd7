package domain

import "time"

// SessionSnapshot is a copy of the scheduler state for observers. It is
// eventually consistent with launches still in flight.
type SessionSnapshot struct {
	SessionID string
	Active    bool
	StartedAt time.Time
	TakenAt   time.Time
	Config    SessionConfig
	Accounts  []AccountRuntime
}

func (s SessionSnapshot) PhaseCounts() map[Phase]int {
	counts := make(map[Phase]int, len(Phases))
	for _, account := range s.Accounts {
		counts[account.Phase]++
	}
	return counts
}
