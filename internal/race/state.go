package race

// State enumerates the lifecycle of a room's race.
//
// Transitions:
//
//	Waiting  -> Countdown (host start, >=2 players)
//	Countdown-> Racing    (countdown elapsed, advanced by the tick driver)
//	Racing   -> Paused    (host pause)
//	Paused   -> Racing    (host resume, race clock shifted by pause length)
//	Racing   -> Finished  (every player finished)
//	Finished -> Waiting   (host restart)
//
// Anything else is an invalid transition and the triggering command is
// rejected without side effects.
type State uint8

const (
	StateWaiting State = iota
	StateCountdown
	StateRacing
	StatePaused
	StateFinished
)

// String returns the wire name of the state.
func (s State) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StateCountdown:
		return "countdown"
	case StateRacing:
		return "racing"
	case StatePaused:
		return "paused"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// AcceptsJoins reports whether new members may enter a room in this state.
// Finished behaves as a displayable waiting room until the host restarts.
func (s State) AcceptsJoins() bool {
	return s == StateWaiting || s == StateFinished
}
