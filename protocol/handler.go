package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"canvas-sync-server/domain"
	"canvas-sync-server/metrics"
)

type Handler struct {
	relay domain.Relay
}

func NewHandler(relay domain.Relay) *Handler {
	return &Handler{relay: relay}
}

// Handle decodes one inbound frame and routes it to the connection's
// room. A frame that fails to decode or validate is dropped; the
// connection stays open and no room state changes.
func (h *Handler) Handle(conn domain.Connection, data []byte) {
	var rec domain.EditRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		metrics.MessagesDropped.WithLabelValues("decode").Inc()
		slog.Warn("invalid message", "room", conn.RoomName(), "clientId", conn.ID(), "error", err)
		return
	}
	if err := validate(rec); err != nil {
		metrics.MessagesDropped.WithLabelValues("decode").Inc()
		slog.Warn("rejected message", "room", conn.RoomName(), "clientId", conn.ID(), "error", err)
		return
	}

	metrics.MessagesReceived.WithLabelValues(string(rec.Kind)).Inc()

	if err := h.relay.Apply(conn, rec); err != nil {
		if errors.Is(err, domain.ErrUnknownID) {
			metrics.MessagesDropped.WithLabelValues("unknown_id").Inc()
			slog.Warn("edit for unknown id dropped", "room", conn.RoomName(),
				"clientId", conn.ID(), "recordId", rec.ID)
			return
		}
		slog.Error("apply failed", "room", conn.RoomName(), "clientId", conn.ID(), "error", err)
	}
}

func validate(rec domain.EditRecord) error {
	if !rec.Kind.Valid() {
		return fmt.Errorf("unrecognized type %q", rec.Kind)
	}
	switch rec.Kind {
	case domain.KindUpdate, domain.KindPosition:
		if rec.ID == "" {
			return fmt.Errorf("%s requires an id", rec.Kind)
		}
	}
	if rec.Kind == domain.KindPosition && rec.Position == nil {
		return domain.ErrMissingPosition
	}
	return nil
}
