package presence

// State is the lifecycle position of a single connection.
type State int

const (
	Connecting State = iota
	Authenticated
	Active
	Closed
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "CONNECTING"
	case Authenticated:
		return "AUTHENTICATED"
	case Active:
		return "ACTIVE"
	case Closed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// CanTransition reports whether the lifecycle allows moving from s to next.
// Closed is reachable from every non terminal state.
func (s State) CanTransition(next State) bool {
	if s == Closed {
		return false
	}
	switch next {
	case Authenticated:
		return s == Connecting
	case Active:
		return s == Authenticated
	case Closed:
		return true
	default:
		return false
	}
}
