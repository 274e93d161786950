package lifecycle

import "strings"

// State is the lifecycle state of one application as last reported by the device
type State int

const (
	Stopped State = iota
	Background
	Foreground
	Hibernated
)

func (s State) String() string {
	switch s {
	case Background:
		return "BACKGROUND"
	case Foreground:
		return "FOREGROUND"
	case Hibernated:
		return "HIBERNATED"
	default:
		return "STOPPED"
	}
}

// Public returns the state name reported to protocol clients, which have no
// hibernated state.
func (s State) Public() string {
	if s == Hibernated {
		return Background.String()
	}
	return s.String()
}

// IsBackground reports whether the app is running but not visible
func (s State) IsBackground() bool {
	return s == Background || s == Hibernated
}

// fromShell maps an RDKShell client state. Any listed client not suspended or
// hibernated counts as foreground.
func fromShell(state string) State {
	switch strings.ToLower(state) {
	case "suspended":
		return Background
	case "hibernated":
		return Hibernated
	default:
		return Foreground
	}
}
