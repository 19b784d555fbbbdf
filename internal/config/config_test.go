package config

import (
	"testing"
	"time"
)

// TestDefaultsAreInternallyConsistent sanity-checks the default tuning
// relationships the simulation relies on.
func TestDefaultsAreInternallyConsistent(t *testing.T) {
	cfg := DefaultRace()

	if cfg.BaseSpeed >= cfg.ChaosSpeed {
		t.Error("base speed must be below the chaos cap")
	}
	if cfg.BaseRoadWidth >= cfg.MaxRoadWidth {
		t.Error("base road width must be below the cap")
	}
	if cfg.RoadGrowthFactor <= 1 {
		t.Error("road growth factor must expand the road")
	}
	if cfg.MinDistanceMeters >= cfg.MaxDistanceMeters {
		t.Error("distance range is inverted")
	}
	if cfg.DefaultDistanceMeters < cfg.MinDistanceMeters || cfg.DefaultDistanceMeters > cfg.MaxDistanceMeters {
		t.Error("default distance outside its own clamp range")
	}
	if 2*cfg.EdgeZoneChance >= 1 {
		t.Error("edge zones may not consume the whole distribution")
	}
	if cfg.SpawnAheadMeters <= cfg.SpawnIntervalMeters {
		t.Error("spawn-ahead window must fit at least one interval")
	}
}

// TestUnitConversions verifies the meter-to-px helpers.
func TestUnitConversions(t *testing.T) {
	cfg := DefaultRace()

	if got := cfg.SpawnIntervalPx(); got != cfg.SpawnIntervalMeters*cfg.PixelsPerMeter {
		t.Errorf("SpawnIntervalPx = %g", got)
	}
	if got := cfg.SpawnAheadPx(); got != cfg.SpawnAheadMeters*cfg.PixelsPerMeter {
		t.Errorf("SpawnAheadPx = %g", got)
	}
	if got := cfg.CountdownDuration(); got != 3*time.Second {
		t.Errorf("CountdownDuration = %v, want 3s", got)
	}
}

// TestEnvOverrides verifies environment variables beat defaults and bad
// values fall through.
func TestEnvOverrides(t *testing.T) {
	t.Setenv("TICK_RATE", "60")
	t.Setenv("DEFAULT_DISTANCE_METERS", "2500")
	t.Setenv("PROMOTE_HOST_ON_LEAVE", "false")
	t.Setenv("MAX_ROOMS", "not-a-number")
	t.Setenv("PORT", "8088")
	t.Setenv("JOURNAL_DISABLED", "true")

	app := Load()

	if app.Race.TickRate != 60 {
		t.Errorf("TickRate = %d, want 60", app.Race.TickRate)
	}
	if app.Race.DefaultDistanceMeters != 2500 {
		t.Errorf("DefaultDistanceMeters = %g, want 2500", app.Race.DefaultDistanceMeters)
	}
	if app.Race.PromoteHostOnLeave {
		t.Error("PromoteHostOnLeave should be off")
	}
	if app.Limits.MaxRooms != DefaultLimits().MaxRooms {
		t.Errorf("garbage MAX_ROOMS should keep the default, got %d", app.Limits.MaxRooms)
	}
	if app.Server.Port != 8088 {
		t.Errorf("Port = %d, want 8088", app.Server.Port)
	}
	if app.Server.JournalPath != "" {
		t.Errorf("JOURNAL_DISABLED should clear the journal path, got %q", app.Server.JournalPath)
	}
}
