package race

import (
	"testing"
	"time"
)

// TestSpeedRampIsMonotonicAndCapped verifies per-tick linear growth up to
// the chaos cap and never beyond.
func TestSpeedRampIsMonotonicAndCapped(t *testing.T) {
	r := testRoom()
	t0 := time.Now()
	joinN(t, r, 2, t0)
	startRacing(t, r, t0)

	prev := r.gameSpeed
	ticksToCap := int((r.cfg.ChaosSpeed-r.cfg.BaseSpeed)/r.cfg.SpeedIncrement) + 10
	now := t0.Add(4 * time.Second)
	for i := 0; i < ticksToCap; i++ {
		r.advanceDifficulty(now)
		if r.gameSpeed < prev {
			t.Fatalf("speed decreased at tick %d: %g -> %g", i, prev, r.gameSpeed)
		}
		if r.gameSpeed > r.cfg.ChaosSpeed {
			t.Fatalf("speed %g exceeds cap %g", r.gameSpeed, r.cfg.ChaosSpeed)
		}
		prev = r.gameSpeed
	}
	if r.gameSpeed != r.cfg.ChaosSpeed {
		t.Errorf("speed = %g after %d ticks, want cap %g", r.gameSpeed, ticksToCap, r.cfg.ChaosSpeed)
	}
}

// TestRoadGrowsOnWallClockInterval verifies geometric width growth once per
// interval, clamped at the maximum.
func TestRoadGrowsOnWallClockInterval(t *testing.T) {
	r := testRoom()
	t0 := time.Now()
	joinN(t, r, 2, t0)
	startRacing(t, r, t0)
	raceStart := r.raceStartedAt

	r.Tick(raceStart.Add(r.cfg.RoadGrowthInterval - time.Second))
	if r.roadWidth != r.cfg.BaseRoadWidth {
		t.Errorf("road grew before the interval elapsed: %g", r.roadWidth)
	}

	r.Tick(raceStart.Add(r.cfg.RoadGrowthInterval))
	want := r.cfg.BaseRoadWidth * r.cfg.RoadGrowthFactor
	if r.roadWidth != want {
		t.Errorf("road width = %g after one interval, want %g", r.roadWidth, want)
	}

	// Many intervals later the width sits at the cap.
	for i := 2; i < 60; i++ {
		r.Tick(raceStart.Add(time.Duration(i) * r.cfg.RoadGrowthInterval))
	}
	if r.roadWidth != r.cfg.MaxRoadWidth {
		t.Errorf("road width = %g, want cap %g", r.roadWidth, r.cfg.MaxRoadWidth)
	}
}

// TestRoadGrowthTimerRunsThroughPause verifies the growth timer is wall
// clock: time spent paused still counts toward the next expansion.
func TestRoadGrowthTimerRunsThroughPause(t *testing.T) {
	r := testRoom()
	t0 := time.Now()
	joinN(t, r, 2, t0)
	startRacing(t, r, t0)
	raceStart := r.raceStartedAt

	pauseAt := raceStart.Add(time.Second)
	if _, err := r.TogglePause("c1", pauseAt); err != nil {
		t.Fatalf("pause: %v", err)
	}
	resumeAt := pauseAt.Add(r.cfg.RoadGrowthInterval)
	if _, err := r.TogglePause("c1", resumeAt); err != nil {
		t.Fatalf("resume: %v", err)
	}

	// First racing tick after the resume: the full interval has passed on
	// the wall clock even though almost no race time elapsed.
	r.Tick(resumeAt.Add(time.Millisecond))
	if r.roadWidth == r.cfg.BaseRoadWidth {
		t.Error("road should have grown, pause time counts toward the interval")
	}
}

// TestDifficultyResetsOnRaceStart verifies a new race starts from base
// difficulty even after a previous race reached the caps.
func TestDifficultyResetsOnRaceStart(t *testing.T) {
	r := testRoom()
	t0 := time.Now()
	joinN(t, r, 2, t0)
	startRacing(t, r, t0)

	r.gameSpeed = r.cfg.ChaosSpeed
	r.roadWidth = r.cfg.MaxRoadWidth

	now := t0.Add(4 * time.Second)
	mustUpdate(t, r, "c1", PlayerUpdate{DistanceMeters: 1001}, now)
	mustUpdate(t, r, "c2", PlayerUpdate{DistanceMeters: 1001}, now)
	if _, err := r.Restart("c1", now); err != nil {
		t.Fatalf("restart: %v", err)
	}
	startRacing(t, r, now.Add(time.Second))

	// The transition tick already ran one difficulty step.
	if r.gameSpeed > r.cfg.BaseSpeed+2*r.cfg.SpeedIncrement {
		t.Errorf("speed = %g after restart, want near base %g", r.gameSpeed, r.cfg.BaseSpeed)
	}
	if r.roadWidth != r.cfg.BaseRoadWidth {
		t.Errorf("road width = %g after restart, want base %g", r.roadWidth, r.cfg.BaseRoadWidth)
	}
}
