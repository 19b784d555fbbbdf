package race

import (
	"math/rand"
	"testing"
	"time"
)

// TestSpawnFillsWindowAheadOfLeader verifies the spawner keeps the leader
// supplied: after a racing tick there is at least one obstacle within the
// spawn-ahead distance, and none further out than that.
func TestSpawnFillsWindowAheadOfLeader(t *testing.T) {
	r := testRoom()
	t0 := time.Now()
	joinN(t, r, 2, t0)
	startRacing(t, r, t0)

	leader, ok := r.leaderWorldY()
	if !ok {
		t.Fatal("no leader")
	}
	ahead := r.cfg.SpawnAheadPx()

	if len(r.obstacles) == 0 {
		t.Fatal("no obstacles after racing tick")
	}
	inWindow := 0
	for _, o := range r.obstacles {
		if o.WorldY < leader-ahead {
			t.Errorf("obstacle %d at %g is beyond the spawn window (leader %g, ahead %g)", o.ID, o.WorldY, leader, ahead)
		}
		if o.WorldY < leader && o.WorldY >= leader-ahead {
			inWindow++
		}
	}
	if inWindow == 0 {
		t.Error("leader has no obstacle within the spawn-ahead distance")
	}
}

// TestSpawnAdvancesWithLeader verifies new obstacles appear as the leading
// player advances and that ids stay unique.
func TestSpawnAdvancesWithLeader(t *testing.T) {
	r := testRoom()
	t0 := time.Now()
	joinN(t, r, 2, t0)
	startRacing(t, r, t0)

	before := len(r.obstacles)
	now := t0.Add(4 * time.Second)
	mustUpdate(t, r, "c1", PlayerUpdate{WorldY: -1000, DistanceMeters: 100}, now)
	r.Tick(now)

	if len(r.obstacles) <= before {
		t.Errorf("expected more obstacles after leader advanced, got %d -> %d", before, len(r.obstacles))
	}

	seen := map[int]bool{}
	for _, o := range r.obstacles {
		if seen[o.ID] {
			t.Errorf("duplicate obstacle id %d", o.ID)
		}
		seen[o.ID] = true
	}
}

// TestDespawnBehindTrailer verifies obstacles vanish once they fall behind
// the trailing player plus buffer.
func TestDespawnBehindTrailer(t *testing.T) {
	r := testRoom()
	t0 := time.Now()
	joinN(t, r, 2, t0)
	startRacing(t, r, t0)

	// Both players jump far ahead; everything spawned around the start
	// line is now behind trailer+buffer and must go.
	now := t0.Add(4 * time.Second)
	mustUpdate(t, r, "c1", PlayerUpdate{WorldY: -5000, DistanceMeters: 500}, now)
	mustUpdate(t, r, "c2", PlayerUpdate{WorldY: -5000, DistanceMeters: 500}, now)
	r.Tick(now)

	trailer, _ := r.trailerWorldY()
	limit := trailer + r.cfg.DespawnBufferPx()
	for _, o := range r.obstacles {
		if o.WorldY >= limit {
			t.Errorf("obstacle %d at %g should have despawned (limit %g)", o.ID, o.WorldY, limit)
		}
	}
}

// TestSpawnStopsWhilePaused verifies the obstacle population is frozen
// outside racing.
func TestSpawnStopsWhilePaused(t *testing.T) {
	r := testRoom()
	t0 := time.Now()
	joinN(t, r, 2, t0)
	startRacing(t, r, t0)

	now := t0.Add(4 * time.Second)
	if _, err := r.TogglePause("c1", now); err != nil {
		t.Fatalf("pause: %v", err)
	}
	before := len(r.obstacles)
	for i := 0; i < 10; i++ {
		r.Tick(now.Add(time.Duration(i) * time.Second))
	}
	if len(r.obstacles) != before {
		t.Errorf("obstacle count changed while paused: %d -> %d", before, len(r.obstacles))
	}
}

// TestObstacleCapIsRespected verifies the safety valve holds even with a
// pathological spawn window.
func TestObstacleCapIsRespected(t *testing.T) {
	r := testRoom()
	r.limits.MaxObstaclesPerRoom = 10
	t0 := time.Now()
	joinN(t, r, 2, t0)
	startRacing(t, r, t0)

	now := t0.Add(4 * time.Second)
	mustUpdate(t, r, "c1", PlayerUpdate{WorldY: -1e6, DistanceMeters: 1}, now)
	r.Tick(now)

	if len(r.obstacles) > 10 {
		t.Errorf("obstacle cap breached: %d", len(r.obstacles))
	}
}

// TestRollLateralZoneWeights samples the lateral distribution: roughly a
// quarter of spawns per edge band, half in the center, everything in [0,1].
func TestRollLateralZoneWeights(t *testing.T) {
	r := testRoom()
	r.rng = rand.New(rand.NewSource(42))

	const samples = 20000
	edge := r.cfg.EdgeZoneWidth
	var left, right, center int
	for i := 0; i < samples; i++ {
		v := r.rollLateral()
		if v < 0 || v > 1 {
			t.Fatalf("lateral %g out of [0,1]", v)
		}
		switch {
		case v < edge:
			left++
		case v > 1-edge:
			right++
		default:
			center++
		}
	}

	check := func(name string, got int, want float64) {
		ratio := float64(got) / samples
		if ratio < want-0.03 || ratio > want+0.03 {
			t.Errorf("%s zone ratio = %.3f, want %.2f±0.03", name, ratio, want)
		}
	}
	check("left", left, 0.25)
	check("right", right, 0.25)
	check("center", center, 0.50)
}
