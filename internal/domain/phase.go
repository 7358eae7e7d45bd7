package domain

type Phase string

const (
	PhaseQueued              Phase = "queued"
	PhaseQueuedPlayer        Phase = "queued-player"
	PhaseLaunching           Phase = "launching"
	PhaseRunning             Phase = "running"
	PhaseRunningPlayer       Phase = "running-player"
	PhaseRestarting          Phase = "restarting"
	PhaseRetryBackoff        Phase = "retry-backoff"
	PhaseDisconnected        Phase = "disconnected"
	PhaseDisconnectedRunning Phase = "disconnected-running"
	PhaseWaitingRejoin       Phase = "waiting-rejoin"
	PhasePlayerGrace         Phase = "player-grace"
)

var Phases = []Phase{
	PhaseQueued,
	PhaseQueuedPlayer,
	PhaseLaunching,
	PhaseRunning,
	PhaseRunningPlayer,
	PhaseRestarting,
	PhaseRetryBackoff,
	PhaseDisconnected,
	PhaseDisconnectedRunning,
	PhaseWaitingRejoin,
	PhasePlayerGrace,
}

func (p Phase) Valid() bool {
	for _, known := range Phases {
		if p == known {
			return true
		}
	}
	return false
}

// Schedulable reports whether the scheduler may launch an account sitting in
// this phase once its due time has passed.
func (p Phase) Schedulable() bool {
	switch p {
	case PhaseQueued, PhaseRunning, PhaseRestarting, PhaseRetryBackoff, PhaseWaitingRejoin, PhasePlayerGrace:
		return true
	default:
		return false
	}
}
