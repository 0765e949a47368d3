package observer

// Phase identifies a lifecycle notification point.
type Phase int

const (
	Starting Phase = iota
	Started
	Stopping
	Stopped
)

var phases = [...]Phase{Starting, Started, Stopping, Stopped}

// Phases returns all phases in lifecycle order.
func Phases() []Phase {
	return phases[:]
}

// String returns the phase name, which is also the handler method name.
func (p Phase) String() string {
	switch p {
	case Starting:
		return "Starting"
	case Started:
		return "Started"
	case Stopping:
		return "Stopping"
	case Stopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}
