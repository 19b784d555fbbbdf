package main

import (
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"speedway/internal/api"
	"speedway/internal/config"
	"speedway/internal/race"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env if present; real environment variables win either way.
	if err := godotenv.Load(".env"); err != nil {
		log.Println("💡 No .env file found, using environment variables only")
	} else {
		log.Println("✅ Loaded environment from .env")
	}

	log.Println("🏁 ================================")
	log.Println("🏁  SPEEDWAY - RACE SERVER")
	log.Println("🏁 ================================")

	// Load centralized configuration (SSOT - Single Source of Truth)
	appConfig := config.Load()
	raceCfg := appConfig.Race
	serverCfg := appConfig.Server
	limits := appConfig.Limits

	log.Printf("🎮 Config: %d TPS, countdown %ds, default %gm, speed %.1f→%.1f",
		raceCfg.TickRate, raceCfg.CountdownSeconds, raceCfg.DefaultDistanceMeters,
		raceCfg.BaseSpeed, raceCfg.ChaosSpeed)
	log.Printf("🛡️ Resource limits: %d rooms, %d players/room, %d obstacles/room",
		limits.MaxRooms, limits.MaxPlayersPerRoom, limits.MaxObstaclesPerRoom)

	// Race journal (append-only JSONL of room lifecycle events)
	journal := race.NewJournal()
	if serverCfg.JournalPath != "" {
		if err := journal.Start(serverCfg.JournalPath); err != nil {
			log.Printf("⚠️ Journal disabled: %v", err)
		} else {
			log.Printf("📝 Journal: %s", serverCfg.JournalPath)
		}
	}

	// Room store + authoritative engine
	store := race.NewStore(raceCfg, limits)
	engine := race.NewEngine(raceCfg, store, journal)

	// API server wires the WebSocket hub in as the engine's dispatcher
	server := api.NewServer(engine, journal)

	// Prometheus gauges fed from the tick loop
	engine.OnTickStats = func(s race.TickStats) {
		api.RecordTick(s.Duration)
		api.UpdateRoomCount(s.Rooms)
		api.UpdatePlayerCount(s.Players)
		api.UpdateObstacleCount(s.Obstacles)
	}

	// Debug server (pprof + /metrics), localhost only
	if os.Getenv("DISABLE_DEBUG_SERVER") != "true" {
		if err := api.StartDebugServer(api.DefaultObservabilityConfig()); err != nil {
			log.Printf("⚠️ Debug server disabled: %v", err)
		}
	}

	engine.Start()
	log.Println("✅ Race engine started")

	go func() {
		addr := ":" + strconv.Itoa(serverCfg.Port)
		if err := server.Start(addr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	<-quit

	log.Println("🛑 Shutting down...")
	server.Stop()
	engine.Stop()
	journal.Stop()
	log.Println("👋 Goodbye!")
}
