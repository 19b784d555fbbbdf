package race

import "time"

// Color palette assigned by join order, wrapping.
var playerPalette = []string{
	"#ff5252", // red
	"#40c4ff", // blue
	"#69f0ae", // green
	"#ffd740", // yellow
	"#e040fb", // purple
	"#ff6e40", // orange
	"#18ffff", // cyan
	"#f8f8f2", // white
}

// Player is the authoritative per-member race state. It is owned exclusively
// by its Room: created on join, destroyed on disconnect, and only ever
// mutated while the room is locked.
type Player struct {
	ID    string
	Name  string
	Color string

	// Client-reported intent, last write wins per field.
	LateralPosition float64 // 0..1 across the road
	WorldY          float64 // signed, decreases as the player advances
	DistanceMeters  float64 // monotonic while racing

	// Transient stun, independent of the race state machine.
	Stunned      bool
	StunnedUntil time.Time

	// Finish bookkeeping, assigned at most once per race.
	Finished       bool
	FinishTimeMs   int64
	FinishPosition int

	// Grid slot, used to reset the player on restart.
	StartLateralPosition float64
	StartWorldY          float64
}

// newPlayer places a player on the starting grid according to its join slot.
func newPlayer(id, name string, slot int, columns []float64, rowSpacing float64) *Player {
	lateral := 0.5
	if len(columns) > 0 {
		lateral = columns[slot%len(columns)]
	}
	row := 0
	if len(columns) > 0 {
		row = slot / len(columns)
	}
	startY := float64(row) * rowSpacing

	return &Player{
		ID:                   id,
		Name:                 name,
		Color:                playerPalette[slot%len(playerPalette)],
		LateralPosition:      lateral,
		WorldY:               startY,
		StartLateralPosition: lateral,
		StartWorldY:          startY,
	}
}

// ResetToGrid returns the player to its starting slot and clears all race
// progress. Called on restart.
func (p *Player) ResetToGrid() {
	p.LateralPosition = p.StartLateralPosition
	p.WorldY = p.StartWorldY
	p.DistanceMeters = 0
	p.Stunned = false
	p.StunnedUntil = time.Time{}
	p.Finished = false
	p.FinishTimeMs = 0
	p.FinishPosition = 0
}

// Stun marks the player stunned until now+duration. Idempotent while a stun
// is already active: the existing expiry is kept.
func (p *Player) Stun(now time.Time, duration time.Duration) {
	if p.Stunned && now.Before(p.StunnedUntil) {
		return
	}
	p.Stunned = true
	p.StunnedUntil = now.Add(duration)
}

// expireStun clears the stun flag once its deadline has passed.
func (p *Player) expireStun(now time.Time) {
	if p.Stunned && !now.Before(p.StunnedUntil) {
		p.Stunned = false
	}
}
