package state

import "time"

// Status is the persisted view of one lifecycle instance.
type Status struct {
	// InstanceID is the lifecycle id.
	InstanceID string `json:"instance_id"`

	// Name is the lifecycle display name.
	Name string `json:"name"`

	// State is the lifecycle state name.
	State string `json:"state"`

	// PID is the launcher process id.
	PID int `json:"pid"`

	// ChildPID is the hosted process id, zero when not running.
	ChildPID int `json:"child_pid,omitempty"`

	// StartedAt is when the instance last reached Running.
	StartedAt time.Time `json:"started_at,omitempty"`

	// StoppedAt is when the instance last halted.
	StoppedAt time.Time `json:"stopped_at,omitempty"`

	// UpdatedAt is the time of the last write.
	UpdatedAt time.Time `json:"updated_at"`
}

// IsEmpty returns true if the status has not been initialized.
func (s Status) IsEmpty() bool {
	return s.InstanceID == ""
}

// MarkStarted records a transition to running.
func (s *Status) MarkStarted(state string, childPID int) {
	now := time.Now()
	s.State = state
	s.ChildPID = childPID
	s.StartedAt = now
	s.StoppedAt = time.Time{}
	s.UpdatedAt = now
}

// MarkStopped records a transition to halted.
func (s *Status) MarkStopped(state string) {
	now := time.Now()
	s.State = state
	s.ChildPID = 0
	s.StoppedAt = now
	s.UpdatedAt = now
}
