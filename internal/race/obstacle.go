package race

// Obstacle is a road hazard owned by its room. Obstacles are created by the
// spawner only while racing and destroyed once they fall behind the trailing
// player, regardless of race state.
type Obstacle struct {
	ID              int
	LateralPosition float64 // 0..1, zone-weighted
	WorldY          float64
}

// leaderWorldY returns the most negative worldY (the most advanced player).
// ok is false when the room has no players.
func (r *Room) leaderWorldY() (float64, bool) {
	first := true
	var leader float64
	for _, p := range r.players {
		if first || p.WorldY < leader {
			leader = p.WorldY
			first = false
		}
	}
	return leader, !first
}

// trailerWorldY returns the largest worldY (the least advanced player).
func (r *Room) trailerWorldY() (float64, bool) {
	first := true
	var trailer float64
	for _, p := range r.players {
		if first || p.WorldY > trailer {
			trailer = p.WorldY
			first = false
		}
	}
	return trailer, !first
}

// spawnObstacles advances the spawn cursor in fixed steps toward
// leader-spawnAhead, creating exactly one obstacle per step. Runs only while
// racing.
func (r *Room) spawnObstacles() {
	leader, ok := r.leaderWorldY()
	if !ok {
		return
	}

	interval := r.cfg.SpawnIntervalPx()
	ahead := r.cfg.SpawnAheadPx()

	if !r.spawnCursorSet {
		r.lastSpawnWorldY = leader - interval
		r.spawnCursorSet = true
	}

	for r.lastSpawnWorldY > leader-ahead {
		if len(r.obstacles) >= r.limits.MaxObstaclesPerRoom {
			return // Safety valve, window math keeps us far below this
		}
		r.lastSpawnWorldY -= interval
		r.nextObstacleID++
		r.obstacles = append(r.obstacles, &Obstacle{
			ID:              r.nextObstacleID,
			LateralPosition: r.rollLateral(),
			WorldY:          r.lastSpawnWorldY,
		})
	}
}

// rollLateral picks a zone-weighted lateral position: each edge band gets
// EdgeZoneChance of spawns so wide driving lines stay punished, the rest
// lands in the center zone.
func (r *Room) rollLateral() float64 {
	zone := r.rng.Float64()
	edge := r.cfg.EdgeZoneWidth
	switch {
	case zone < r.cfg.EdgeZoneChance:
		return r.rng.Float64() * edge // left edge band
	case zone < 2*r.cfg.EdgeZoneChance:
		return 1 - r.rng.Float64()*edge // right edge band
	default:
		return edge + r.rng.Float64()*(1-2*edge) // center
	}
}

// despawnObstacles drops every obstacle that is no longer ahead of
// trailer+buffer. Runs every tick in every state so leftovers clear even
// after the race has finished. In-place filter, no allocation.
func (r *Room) despawnObstacles() {
	trailer, ok := r.trailerWorldY()
	if !ok {
		return
	}

	limit := trailer + r.cfg.DespawnBufferPx()
	n := 0
	for _, o := range r.obstacles {
		if o.WorldY < limit {
			r.obstacles[n] = o
			n++
		}
	}
	r.obstacles = r.obstacles[:n]
}
