package api

import (
	"log"
	"net/http"

	"speedway/internal/race"

	"github.com/go-chi/chi/v5"
)

// Server is the HTTP API server with WebSocket support. It combines the
// read-only HTTP surface with the WebSocket hub that carries all intent and
// snapshot traffic.
type Server struct {
	engine      *race.Engine
	router      *chi.Mux
	wsHub       *WebSocketHub
	rateLimiter *IPRateLimiter
}

// NewServer creates a new API server with default production configuration.
//
// IMPORTANT: Background workers do NOT start until Start() is called.
// This enables testing by allowing the server to be constructed without
// starting goroutines or opening network listeners.
//
// For testing HTTP endpoints without WebSocket support, use NewRouter() directly.
func NewServer(engine *race.Engine, journal *race.Journal) *Server {
	s := &Server{
		engine: engine,
		wsHub:  NewWebSocketHub(engine),
	}

	// The hub is the transport for every outbound event the engine produces.
	engine.SetDispatcher(s.wsHub)

	s.rateLimiter = NewIPRateLimiter(DefaultRateLimitConfig)

	s.router = NewRouter(RouterConfig{
		Rooms:           engine.Store(),
		Journal:         journal,
		WSHandler:       s.wsHub.HandleWebSocket,
		ConnectionCount: s.wsHub.ClientCount,
		RateLimiter:     s.rateLimiter,
	})

	return s
}

// Start begins the HTTP server AND starts background workers.
// This is the ONLY method that starts goroutines or opens network listeners.
//
// Call this method only once. To stop the server, signal the process.
func (s *Server) Start(addr string) error {
	go s.wsHub.Run()

	log.Printf("🌐 API server starting on %s", addr)
	return http.ListenAndServe(addr, s.router)
}

// Router returns the HTTP handler for use with httptest.
// Use this in integration tests instead of calling Start().
func (s *Server) Router() http.Handler {
	return s.router
}

// Hub returns the WebSocket hub, mainly for wiring stats.
func (s *Server) Hub() *WebSocketHub {
	return s.wsHub
}

// Stop performs graceful shutdown of background workers.
func (s *Server) Stop() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
}
