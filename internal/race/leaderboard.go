package race

import (
	"sort"
	"time"
)

// LeaderboardEntry is one row of the per-tick standings.
type LeaderboardEntry struct {
	PlayerID       string  `json:"playerId"`
	Name           string  `json:"name"`
	DistanceMeters float64 `json:"distanceMeters"`
	Finished       bool    `json:"finished"`
	FinishPosition int     `json:"finishPosition,omitempty"`
	FinishTimeMs   int64   `json:"finishTimeMs,omitempty"`
}

// buildLeaderboard computes the standings broadcast with every snapshot:
// finished players first by finish position, then unfinished players by
// distance, truncated to the configured size. Caller holds the room lock.
func (r *Room) buildLeaderboard() []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(r.players))
	for _, p := range r.players {
		entries = append(entries, LeaderboardEntry{
			PlayerID:       p.ID,
			Name:           p.Name,
			DistanceMeters: p.DistanceMeters,
			Finished:       p.Finished,
			FinishPosition: p.FinishPosition,
			FinishTimeMs:   p.FinishTimeMs,
		})
	}

	// STABLE SORT: finished by position ascending, then unfinished by
	// distance descending, name as deterministic tie-break.
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Finished != b.Finished {
			return a.Finished
		}
		if a.Finished {
			return a.FinishPosition < b.FinishPosition
		}
		if a.DistanceMeters != b.DistanceMeters {
			return a.DistanceMeters > b.DistanceMeters
		}
		return a.Name < b.Name
	})

	if len(entries) > r.cfg.LeaderboardSize {
		entries = entries[:r.cfg.LeaderboardSize]
	}
	return entries
}

// checkFinish marks a racing player finished once it has covered the race
// distance. Appending to finishOrder is atomic per event, so positions are
// assigned 1..k with no gaps or ties. Returns the finish events to emit,
// including the room-wide finale when the last player crosses.
func (r *Room) checkFinish(p *Player, now time.Time) []Outbound {
	if r.state != StateRacing || p.Finished {
		return nil
	}
	if p.DistanceMeters < r.raceDistanceMeters {
		return nil
	}

	p.Finished = true
	p.FinishTimeMs = now.Sub(r.raceStartedAt).Milliseconds()
	r.finishOrder = append(r.finishOrder, p.ID)
	p.FinishPosition = len(r.finishOrder)

	outs := []Outbound{toRoom(EvtPlayerFinished, PlayerFinishedPayload{
		PlayerID:     p.ID,
		Name:         p.Name,
		Position:     p.FinishPosition,
		FinishTimeMs: p.FinishTimeMs,
	})}

	if r.allFinished() {
		outs = append(outs, r.finishRace()...)
	}
	return outs
}

// allFinished reports whether every current player has crossed the line.
func (r *Room) allFinished() bool {
	if len(r.players) == 0 {
		return false
	}
	for _, p := range r.players {
		if !p.Finished {
			return false
		}
	}
	return true
}

// finishRace transitions the room to Finished and publishes the final
// standings ordered by finish position.
func (r *Room) finishRace() []Outbound {
	r.state = StateFinished

	results := make([]FinishResult, 0, len(r.finishOrder))
	for _, id := range r.finishOrder {
		p, ok := r.players[id]
		if !ok {
			continue // Finished player has since disconnected
		}
		results = append(results, FinishResult{
			PlayerID:     p.ID,
			Name:         p.Name,
			Position:     p.FinishPosition,
			FinishTimeMs: p.FinishTimeMs,
		})
	}

	return []Outbound{toRoom(EvtRaceFinished, RaceFinishedPayload{Results: results})}
}
