// Package hub maps room names to live rooms and routes connection
// lifecycle and decoded edits to them.
package hub

import (
	"log/slog"
	"sync"

	"canvas-sync-server/domain"
	"canvas-sync-server/metrics"
)

type Hub struct {
	mu    sync.RWMutex
	rooms map[string]*room
}

func New() *Hub {
	return &Hub{rooms: make(map[string]*room)}
}

// Register resolves the connection's room, creating it on first join,
// and adds the connection with a full replay of the room's log. If the
// join races a last-leave release of the same name it retries, so a
// connection never attaches to a room that is being torn down.
func (h *Hub) Register(conn domain.Connection) {
	for {
		h.mu.Lock()
		r, exists := h.rooms[conn.RoomName()]
		if !exists {
			r = newRoom(conn.RoomName())
			h.rooms[conn.RoomName()] = r
			metrics.RoomsActive.Inc()
			slog.Info("room created", "room", conn.RoomName())
		}
		h.mu.Unlock()

		if r.join(conn) {
			metrics.ConnectionsActive.Inc()
			return
		}
	}
}

// Unregister removes the connection from its room and releases the room
// when the last client leaves. Emptiness check and map removal happen
// under the registry lock so a concurrent join cannot resurrect a
// released room.
func (h *Hub) Unregister(conn domain.Connection) {
	h.mu.Lock()
	r, exists := h.rooms[conn.RoomName()]
	if !exists {
		h.mu.Unlock()
		return
	}
	remaining := r.leave(conn)
	if remaining == 0 {
		r.close()
		delete(h.rooms, conn.RoomName())
		metrics.RoomsActive.Dec()
		slog.Info("room removed", "room", conn.RoomName())
	}
	h.mu.Unlock()

	metrics.ConnectionsActive.Dec()
	slog.Info("client left", "room", conn.RoomName(), "clientId", conn.ID(), "clients", remaining)
}

// Apply hands a decoded edit to the connection's room. A missing room
// means the connection is already shutting down; the edit is dropped.
func (h *Hub) Apply(conn domain.Connection, rec domain.EditRecord) error {
	h.mu.RLock()
	r, exists := h.rooms[conn.RoomName()]
	h.mu.RUnlock()

	if !exists {
		return nil
	}
	return r.apply(rec)
}

// Stats reports the current room and client counts.
func (h *Hub) Stats() (rooms, clients int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rooms = len(h.rooms)
	for _, r := range h.rooms {
		r.mu.Lock()
		clients += len(r.clients)
		r.mu.Unlock()
	}
	return rooms, clients
}
