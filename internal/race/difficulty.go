package race

import "time"

// advanceDifficulty runs the dynamic-difficulty controller for one tick.
// Only called while racing.
//
// Speed ramps linearly per tick toward the chaos cap. Road width grows
// geometrically once per wall-clock interval toward its cap; the growth
// timer intentionally runs on wall clock, so time spent paused still counts
// toward the next expansion.
func (r *Room) advanceDifficulty(now time.Time) {
	r.gameSpeed += r.cfg.SpeedIncrement
	if r.gameSpeed > r.cfg.ChaosSpeed {
		r.gameSpeed = r.cfg.ChaosSpeed
	}

	if now.Sub(r.lastRoadGrowth) >= r.cfg.RoadGrowthInterval {
		r.roadWidth *= r.cfg.RoadGrowthFactor
		if r.roadWidth > r.cfg.MaxRoadWidth {
			r.roadWidth = r.cfg.MaxRoadWidth
		}
		r.lastRoadGrowth = now
	}
}

// resetDifficulty returns speed and road width to their base values.
// Called at the countdown-to-racing transition and on restart.
func (r *Room) resetDifficulty(now time.Time) {
	r.gameSpeed = r.cfg.BaseSpeed
	r.roadWidth = r.cfg.BaseRoadWidth
	r.lastRoadGrowth = now
}
