package api

import (
	"net/http"

	"speedway/internal/race"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RoomDirectory is the read-only view of the room store used by the HTTP
// handlers. Keep this minimal - only include what the API layer actually
// reads; it enables mocking for tests without spinning up the engine.
type RoomDirectory interface {
	// List returns code, member count and state for every active room
	List() []race.RoomInfo
	// Get returns the room for a code, or nil
	Get(code string) *race.Room
	// Count returns the number of active rooms
	Count() int
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
// This struct is designed for dependency injection and testability.
//
// Example usage in tests:
//
//	cfg := api.RouterConfig{
//	    Rooms: store,
//	    RateLimitConfig: &api.RateLimitConfig{
//	        RequestsPerSecond: 1000, // High limit for tests
//	        Burst:             1000,
//	    },
//	}
//	router := api.NewRouter(cfg)
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Rooms is the room directory (required)
	Rooms RoomDirectory

	// Journal is optional; when set its counters appear under /api/stats
	Journal *race.Journal

	// WSHandler, when set, is mounted at /ws
	WSHandler http.HandlerFunc

	// ConnectionCount, when set, reports live WebSocket connections for /api/stats
	ConnectionCount func() int

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, a new one will be created using RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is optional configuration for the rate limiter.
	// Only used if RateLimiter is nil. If both are nil, uses DefaultRateLimitConfig.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins is an optional list of allowed CORS origins.
	// If nil, uses the default origins.
	CORSOrigins []string

	// DisableLogging disables the request logger middleware (useful for benchmarks).
	DisableLogging bool
}

// routerHandlers holds the handler dependencies.
type routerHandlers struct {
	rooms           RoomDirectory
	journal         *race.Journal
	connectionCount func() int
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// IMPORTANT: This function is PURE - it has no side effects beyond the rate
// limiter's cleanup goroutine when one has to be created:
//   - No network listeners are opened
//   - No background workers are launched
//
// This makes it safe to use in tests with httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware - Order matters!
	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	// Rate limiting (BEFORE CORS to reject early and save CPU)
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{
			"http://localhost:*",
			"http://127.0.0.1:*",
		}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	h := &routerHandlers{
		rooms:           cfg.Rooms,
		journal:         cfg.Journal,
		connectionCount: cfg.ConnectionCount,
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/rooms", h.handleListRooms)
		r.Get("/rooms/{code}", h.handleGetRoom)
		r.Get("/stats", h.handleGetStats)
	})

	if cfg.WSHandler != nil {
		r.Get("/ws", cfg.WSHandler)
	}

	return r
}
