// Package dashboard provides event handling and message formatting for the dashboard.
package dashboard

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"slicer/internal/daemon"
)

// Handler bridges watch daemon events and the WebSocket server. It tracks
// per-artifact pass/fail state so clients get aggregate statistics alongside
// individual results.
type Handler struct {
	server *Server
	logger *log.Logger

	mu        sync.Mutex
	validity  map[string]bool // artifact path -> last result
	totalRuns int
	byKind    map[string]int
}

// NewHandler creates a new event handler connected to a dashboard server
func NewHandler(server *Server, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}

	return &Handler{
		server:   server,
		logger:   logger,
		validity: make(map[string]bool),
		byKind:   make(map[string]int),
	}
}

// HandleValidation receives one daemon event and broadcasts it.
func (h *Handler) HandleValidation(ev daemon.Event) {
	if ev.Removed {
		h.onRemoved(ev.Path)
		return
	}
	h.onResult(ev)
}

func (h *Handler) onResult(ev daemon.Event) {
	data := ValidationResultData{
		Path:       ev.Path,
		SchemaName: ev.SchemaName,
	}
	if ev.Err != nil {
		data.Error = ev.Err.Error()
		h.logger.Printf("Validation error: %s: %v", ev.Path, ev.Err)
	}
	if ev.Result != nil {
		data.Valid = ev.Result.Valid
		data.Violations = ev.Result.Violations
		data.Warnings = ev.Result.Warnings
	}
	if ev.Run != nil {
		data.RunID = ev.Run.ID
	}

	h.mu.Lock()
	h.totalRuns++
	if ev.Result != nil {
		h.validity[ev.Path] = ev.Result.Valid
		for _, v := range ev.Result.Violations {
			h.byKind[string(v.Kind)]++
		}
	} else {
		// Unreadable artifacts count as failing.
		h.validity[ev.Path] = false
	}
	h.mu.Unlock()

	dataJSON, err := json.Marshal(data)
	if err != nil {
		h.logger.Printf("Failed to marshal validation data: %v", err)
		return
	}

	h.server.Broadcast(Message{
		Type:      MessageTypeValidationResult,
		Timestamp: time.Now(),
		Data:      dataJSON,
	})
	h.broadcastStats()
}

func (h *Handler) onRemoved(path string) {
	h.logger.Printf("Artifact removed: %s", path)

	h.mu.Lock()
	delete(h.validity, path)
	h.mu.Unlock()

	dataJSON, err := json.Marshal(ArtifactRemovedData{Path: path})
	if err != nil {
		h.logger.Printf("Failed to marshal removal data: %v", err)
		return
	}

	h.server.Broadcast(Message{
		Type:      MessageTypeArtifactRemoved,
		Timestamp: time.Now(),
		Data:      dataJSON,
	})
	h.broadcastStats()
}

// AnnounceWatch broadcasts the start of a watch session.
func (h *Handler) AnnounceWatch(dir string) {
	dataJSON, err := json.Marshal(WatchStartedData{Dir: dir})
	if err != nil {
		h.logger.Printf("Failed to marshal watch data: %v", err)
		return
	}

	h.server.Broadcast(Message{
		Type:      MessageTypeWatchStarted,
		Timestamp: time.Now(),
		Data:      dataJSON,
	})
}

// broadcastStats sends current statistics to all clients
func (h *Handler) broadcastStats() {
	stats := h.GetStats()

	dataJSON, err := json.Marshal(stats)
	if err != nil {
		h.logger.Printf("Failed to marshal stats: %v", err)
		return
	}

	h.server.Broadcast(Message{
		Type:      MessageTypeStats,
		Timestamp: time.Now(),
		Data:      dataJSON,
	})
}

// GetStats returns a snapshot of the current statistics.
func (h *Handler) GetStats() StatsData {
	h.mu.Lock()
	defer h.mu.Unlock()

	stats := StatsData{
		Artifacts: len(h.validity),
		TotalRuns: h.totalRuns,
		ByKind:    make(map[string]int, len(h.byKind)),
	}
	for _, valid := range h.validity {
		if valid {
			stats.Passing++
		} else {
			stats.Failing++
		}
	}
	for kind, count := range h.byKind {
		stats.ByKind[kind] = count
	}
	return stats
}
