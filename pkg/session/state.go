// Package session implements the rig's real-time controller: the cooperative
// tick that samples inputs, classifies lever presses against the reward
// schedule, drives timed outputs, drains captured frame timestamps and
// applies host commands.
package session

// State is the link/run state of the controller.
type State int

const (
	// Idle: no host attached; inputs and outputs are dormant.
	Idle State = iota
	// Linked: host attached; the scheduler runs.
	Linked
	// Running: a session is in progress and timestamps are offset.
	Running
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Linked:
		return "linked"
	case Running:
		return "running"
	default:
		return "unknown"
	}
}

// LeverID names one of the two physical levers.
type LeverID int

const (
	RH LeverID = iota
	LH
)

func (id LeverID) String() string {
	if id == LH {
		return "LH"
	}
	return "RH"
}

// Other returns the opposite lever.
func (id LeverID) Other() LeverID {
	if id == LH {
		return RH
	}
	return LH
}

// Role is the part a lever plays in the reward schedule.
type Role int

const (
	RoleActive Role = iota
	RoleInactive
)

func (r Role) String() string {
	if r == RoleInactive {
		return "inactive"
	}
	return "active"
}
