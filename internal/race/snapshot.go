package race

import "time"

// Snapshot is the per-tick outbound description of everything a client can
// observe about a room. Value types only, safe to serialize after the room
// lock is released.
type Snapshot struct {
	State          string             `json:"state"`
	DistanceMeters float64            `json:"distanceMeters"`
	RoadWidth      float64            `json:"roadWidth"`
	Speed          float64            `json:"speed"` // 0 outside racing
	ElapsedMs      int64              `json:"elapsedMs"`
	HostID         string             `json:"hostId"`
	Players        []PlayerSnapshot   `json:"players"`
	Obstacles      []ObstacleSnapshot `json:"obstacles"`
	Leaderboard    []LeaderboardEntry `json:"leaderboard"`
}

// PlayerSnapshot is one player's observable state.
type PlayerSnapshot struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Color           string  `json:"color"`
	LateralPosition float64 `json:"lateralPosition"`
	WorldY          float64 `json:"worldY"`
	DistanceMeters  float64 `json:"distanceMeters"`
	Stunned         bool    `json:"stunned"`
	Finished        bool    `json:"finished"`
	FinishPosition  int     `json:"finishPosition,omitempty"`
}

// ObstacleSnapshot is one obstacle's observable state.
type ObstacleSnapshot struct {
	ID              int     `json:"id"`
	LateralPosition float64 `json:"lateralPosition"`
	WorldY          float64 `json:"worldY"`
}

// buildSnapshot assembles the full observable state. Caller holds the room
// lock.
func (r *Room) buildSnapshot(now time.Time) Snapshot {
	snap := Snapshot{
		State:          r.state.String(),
		DistanceMeters: r.raceDistanceMeters,
		RoadWidth:      r.roadWidth,
		Speed:          r.effectiveSpeed(),
		ElapsedMs:      r.elapsedMs(now),
		HostID:         r.hostID,
		Players:        make([]PlayerSnapshot, 0, len(r.members)),
		Obstacles:      make([]ObstacleSnapshot, 0, len(r.obstacles)),
		Leaderboard:    r.buildLeaderboard(),
	}

	// Join order keeps the player list stable across ticks.
	for _, m := range r.members {
		p, ok := r.players[m.ID]
		if !ok {
			continue
		}
		snap.Players = append(snap.Players, PlayerSnapshot{
			ID:              p.ID,
			Name:            p.Name,
			Color:           p.Color,
			LateralPosition: p.LateralPosition,
			WorldY:          p.WorldY,
			DistanceMeters:  p.DistanceMeters,
			Stunned:         p.Stunned,
			Finished:        p.Finished,
			FinishPosition:  p.FinishPosition,
		})
	}

	for _, o := range r.obstacles {
		snap.Obstacles = append(snap.Obstacles, ObstacleSnapshot{
			ID:              o.ID,
			LateralPosition: o.LateralPosition,
			WorldY:          o.WorldY,
		})
	}

	return snap
}

// effectiveSpeed is the speed clients should scroll the world at: the
// controller's value while racing, exactly zero otherwise so obstacles and
// road visually freeze.
func (r *Room) effectiveSpeed() float64 {
	if r.state == StateRacing {
		return r.gameSpeed
	}
	return 0
}

// elapsedMs reports race time. Pause is free time: while paused the clock
// freezes at the pause point, and resuming shifts raceStartedAt so this
// stays a plain now-start subtraction.
func (r *Room) elapsedMs(now time.Time) int64 {
	switch r.state {
	case StateRacing, StateFinished:
		return now.Sub(r.raceStartedAt).Milliseconds()
	case StatePaused:
		return r.pausedAt.Sub(r.raceStartedAt).Milliseconds()
	default:
		return 0
	}
}
