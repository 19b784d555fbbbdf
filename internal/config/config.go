// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for all race tuning and server settings.
//
// IMPORTANT: When changing values, only modify this file.
// All other parts of the codebase should reference these values.
package config

import (
	"os"
	"strconv"
	"time"
)

// =============================================================================
// RACE TUNING
// =============================================================================

// RaceConfig holds every tuning knob of the authoritative race simulation.
// All of these are balance decisions, not engineering constraints, so they
// live here as named fields rather than literals in the engine.
type RaceConfig struct {
	TickRate         int // Authoritative ticks (and snapshots) per second
	CountdownSeconds int // Length of the pre-race countdown

	// Race distance. Host-configurable while waiting, clamped to [Min, Max].
	DefaultDistanceMeters float64
	MinDistanceMeters     float64
	MaxDistanceMeters     float64

	// Forward speed ramp. Speed resets to Base at race start, climbs by
	// Increment every tick and never exceeds Chaos.
	BaseSpeed      float64 // px per tick
	ChaosSpeed     float64 // px per tick, hard cap
	SpeedIncrement float64 // px per tick, added each tick

	// Road width expansion. Width multiplies by GrowthFactor once per
	// GrowthInterval of wall-clock time, capped at MaxRoadWidth. The growth
	// timer deliberately runs on wall clock, not race clock: a paused race
	// still accrues time toward the next expansion.
	BaseRoadWidth      float64 // px
	MaxRoadWidth       float64 // px
	RoadGrowthFactor   float64
	RoadGrowthInterval time.Duration

	// World-coordinate scale. worldY is measured in px; distances reported
	// in meters convert through this factor.
	PixelsPerMeter float64

	// Obstacle window, expressed in meters (converted to px via
	// PixelsPerMeter). Obstacles spawn in SpawnInterval steps up to
	// SpawnAhead in front of the leader and despawn once DespawnBuffer
	// behind the trailer.
	SpawnIntervalMeters float64
	SpawnAheadMeters    float64
	DespawnBufferMeters float64

	// Zone-weighted lateral placement. Each edge zone (a band of
	// EdgeZoneWidth at either side of the road) receives EdgeZoneChance of
	// spawns; the remainder lands in the center zone.
	EdgeZoneWidth  float64 // fraction of road width per edge
	EdgeZoneChance float64 // probability per edge zone

	// Stun applied on a client-reported collision.
	StunDuration time.Duration

	// Leaderboard entries included in every snapshot.
	LeaderboardSize int

	// Starting grid. Players are placed column by column, stepping one row
	// back (toward positive worldY) once the columns wrap.
	GridColumns      []float64 // lateral positions, 0..1
	GridRowSpacingPx float64

	// Host succession. When the host disconnects from a non-empty room the
	// oldest remaining member is promoted if this is set; otherwise the
	// room keeps running without an authority-granting member.
	PromoteHostOnLeave bool
}

// DefaultRace returns the default race tuning.
func DefaultRace() RaceConfig {
	return RaceConfig{
		TickRate:         30,
		CountdownSeconds: 3,

		DefaultDistanceMeters: 1000,
		MinDistanceMeters:     100,
		MaxDistanceMeters:     10000,

		BaseSpeed:      6.0,
		ChaosSpeed:     14.0,
		SpeedIncrement: 0.004,

		BaseRoadWidth:      300,
		MaxRoadWidth:       900,
		RoadGrowthFactor:   1.05,
		RoadGrowthInterval: 12 * time.Second,

		PixelsPerMeter: 10,

		SpawnIntervalMeters: 25,
		SpawnAheadMeters:    200,
		DespawnBufferMeters: 60,

		EdgeZoneWidth:  0.15,
		EdgeZoneChance: 0.25,

		StunDuration: 2000 * time.Millisecond,

		LeaderboardSize: 5,

		GridColumns:      []float64{0.3, 0.5, 0.7},
		GridRowSpacingPx: 80,

		PromoteHostOnLeave: true,
	}
}

// RaceFromEnv returns race tuning with environment variable overrides.
// Environment variables take precedence over defaults.
func RaceFromEnv() RaceConfig {
	cfg := DefaultRace()

	if t := getEnvInt("TICK_RATE", 0); t > 0 {
		cfg.TickRate = t
	}
	if c := getEnvInt("COUNTDOWN_SECONDS", 0); c > 0 {
		cfg.CountdownSeconds = c
	}
	if d := getEnvFloat("DEFAULT_DISTANCE_METERS", -1); d > 0 {
		cfg.DefaultDistanceMeters = d
	}
	if s := getEnvFloat("CHAOS_SPEED", -1); s > 0 {
		cfg.ChaosSpeed = s
	}
	if w := getEnvFloat("MAX_ROAD_WIDTH", -1); w > 0 {
		cfg.MaxRoadWidth = w
	}
	if os.Getenv("PROMOTE_HOST_ON_LEAVE") == "false" {
		cfg.PromoteHostOnLeave = false
	}

	return cfg
}

// SpawnIntervalPx returns the spawn cursor step in world px.
func (c RaceConfig) SpawnIntervalPx() float64 {
	return c.SpawnIntervalMeters * c.PixelsPerMeter
}

// SpawnAheadPx returns the spawn-ahead window in world px.
func (c RaceConfig) SpawnAheadPx() float64 {
	return c.SpawnAheadMeters * c.PixelsPerMeter
}

// DespawnBufferPx returns the despawn buffer in world px.
func (c RaceConfig) DespawnBufferPx() float64 {
	return c.DespawnBufferMeters * c.PixelsPerMeter
}

// CountdownDuration returns the countdown length as a duration.
func (c RaceConfig) CountdownDuration() time.Duration {
	return time.Duration(c.CountdownSeconds) * time.Second
}

// =============================================================================
// RESOURCE LIMITS
// =============================================================================

// ResourceLimits controls DoS protection and performance limits.
type ResourceLimits struct {
	MaxRooms            int // Hard cap on concurrently active rooms
	MaxPlayersPerRoom   int // Hard cap on members per room
	MaxNameLength       int // Display name truncation length
	MaxObstaclesPerRoom int // Safety valve on the obstacle window
}

// DefaultLimits returns the default resource limits.
func DefaultLimits() ResourceLimits {
	return ResourceLimits{
		MaxRooms:            500,
		MaxPlayersPerRoom:   8,
		MaxNameLength:       24,
		MaxObstaclesPerRoom: 256,
	}
}

// LimitsFromEnv returns resource limits with environment variable overrides.
func LimitsFromEnv() ResourceLimits {
	cfg := DefaultLimits()

	if r := getEnvInt("MAX_ROOMS", 0); r > 0 {
		cfg.MaxRooms = r
	}
	if p := getEnvInt("MAX_PLAYERS_PER_ROOM", 0); p > 0 {
		cfg.MaxPlayersPerRoom = p
	}

	return cfg
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port        int
	JournalPath string // Race event journal file, empty disables file output
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:        3000,
		JournalPath: "races.jsonl",
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if path := os.Getenv("JOURNAL_PATH"); path != "" {
		cfg.JournalPath = path
	}
	if os.Getenv("JOURNAL_DISABLED") == "true" {
		cfg.JournalPath = ""
	}

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Race   RaceConfig
	Server ServerConfig
	Limits ResourceLimits
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Race:   RaceFromEnv(),
		Server: ServerFromEnv(),
		Limits: LimitsFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
