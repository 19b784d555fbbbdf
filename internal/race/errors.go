package race

import "errors"

// Command rejection reasons. Every error here is non-fatal: it is reported
// back to the originating connection only and leaves room state untouched.
var (
	// Validation
	ErrNameRequired = errors.New("display name is required")
	ErrCodeRequired = errors.New("room code is required")

	// Authorization
	ErrNotHost = errors.New("only the host can do that")

	// State
	ErrRaceInProgress   = errors.New("race already in progress")
	ErrNotEnoughPlayers = errors.New("need at least 2 players to start")
	ErrWrongState       = errors.New("not allowed in the current race state")
	ErrRoomFull         = errors.New("room is full")
	ErrTooManyRooms     = errors.New("server room limit reached")

	// Not-found. Swallowed by callers: a command racing a disconnect or a
	// room teardown is expected and benign.
	ErrRoomNotFound   = errors.New("room not found")
	ErrPlayerNotFound = errors.New("player not found")
)
