package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Handler methods for routerHandlers.
// These are used by both the standalone router (for testing) and the full Server.

func (h *routerHandlers) handleListRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.rooms.List())
}

func (h *routerHandlers) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	room := h.rooms.Get(code)
	if room == nil {
		writeError(w, "Room not found", http.StatusNotFound)
		return
	}

	writeJSON(w, room.SnapshotNow(time.Now()))
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	players := 0
	for _, info := range h.rooms.List() {
		players += info.Players
	}

	stats := map[string]interface{}{
		"rooms":   h.rooms.Count(),
		"players": players,
	}
	if h.connectionCount != nil {
		stats["connections"] = h.connectionCount()
	}
	if h.journal != nil {
		stats["journal"] = h.journal.Stats()
	}
	writeJSON(w, stats)
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
