package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"campusev/backend/services/charging-service/internal/models"
)

// StatusMessage is pushed to subscribers after a committed pile change.
type StatusMessage struct {
	PileID     int64     `json:"pile_id"`
	LocationID int64     `json:"location_id"`
	Status     string    `json:"status"`
	SessionID  *int64    `json:"session_id,omitempty"`
	Event      string    `json:"event"`
	At         time.Time `json:"at"`
}

// Hub tracks subscribers and fans pile status changes out to them.
type Hub struct {
	mu          sync.RWMutex
	connections map[*Connection]struct{}
	logger      *zap.Logger
}

// NewHub builds subscriber registry.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		connections: make(map[*Connection]struct{}),
		logger:      logger,
	}
}

// Add registers a subscriber.
func (h *Hub) Add(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[conn] = struct{}{}
}

// Remove unregisters a subscriber.
func (h *Hub) Remove(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.connections, conn)
}

// Count returns the number of live subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// Publish implements the engine event sink.
func (h *Hub) Publish(_ context.Context, event models.SessionEvent) {
	msg := StatusMessage{
		PileID:     event.PileID,
		LocationID: event.LocationID,
		Status:     string(event.PileStatus),
		Event:      string(event.Type),
		At:         event.At,
	}
	if event.Session != nil {
		id := event.Session.ID
		msg.SessionID = &id
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to encode status message", zap.Error(err))
		return
	}

	h.mu.RLock()
	targets := make([]*Connection, 0, len(h.connections))
	for conn := range h.connections {
		if conn.LocationID() == 0 || conn.LocationID() == event.LocationID {
			targets = append(targets, conn)
		}
	}
	h.mu.RUnlock()

	// Send may drop a slow subscriber, which re-enters Remove.
	for _, conn := range targets {
		conn.Send(payload)
	}
}

// CloseAll disconnects every subscriber.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	conns := make([]*Connection, 0, len(h.connections))
	for conn := range h.connections {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()
	for _, conn := range conns {
		conn.Close()
	}
}
