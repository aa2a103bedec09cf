package hub

import (
	"encoding/json"
	"log/slog"
	"sync"

	"canvas-sync-server/domain"
	"canvas-sync-server/metrics"
	"canvas-sync-server/store"
)

// room binds one edit log to the set of connections currently joined to
// it. Every mutating operation takes the room mutex, which is what makes
// replay-before-live ordering hold for new joiners.
type room struct {
	name    string
	mu      sync.Mutex
	clients map[string]domain.Connection
	log     *store.Log
	closed  bool
}

func newRoom(name string) *room {
	return &room{
		name:    name,
		clients: make(map[string]domain.Connection),
		log:     store.NewLog(),
	}
}

// join adds conn and hands it the full log as one replay batch, records
// in insertion order. Replay delivery is guaranteed by the connection
// (it is not subject to the best-effort live send path), and any live
// broadcast serializes behind the same mutex, so it can only reach conn
// after the batch is queued. Returns false if the registry already
// released this room; the caller must resolve again.
func (r *room) join(conn domain.Connection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return false
	}
	r.clients[conn.ID()] = conn

	snap := r.log.Snapshot()
	frames := make([][]byte, 0, len(snap))
	for _, rec := range snap {
		data, err := json.Marshal(rec)
		if err != nil {
			slog.Error("marshal replay record", "room", r.name, "recordId", rec.ID, "error", err)
			continue
		}
		frames = append(frames, data)
	}
	conn.Replay(frames)

	slog.Info("client joined", "room", r.name, "clientId", conn.ID(),
		"clients", len(r.clients), "replayed", len(frames))
	return true
}

// leave removes conn and reports how many clients remain. The registry
// calls this with its own lock held so emptiness and release are atomic.
func (r *room) leave(conn domain.Connection) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, conn.ID())
	return len(r.clients)
}

// close marks the room defunct so a racing join resolves a fresh room
// instead of attaching to one already removed from the registry.
func (r *room) close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
}

// apply mutates the log according to rec's kind and fans the resulting
// record out to every client, sender included. The Create echo is how
// the originating client learns its server-assigned id.
func (r *room) apply(rec domain.EditRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out domain.EditRecord
	switch rec.Kind {
	case domain.KindCreate:
		out = r.log.Append(rec)
	case domain.KindUpdate:
		var err error
		if out, err = r.log.ApplyUpdate(rec.ID, rec.Inputs); err != nil {
			return err
		}
	case domain.KindPosition:
		if rec.Position == nil {
			return domain.ErrMissingPosition
		}
		var err error
		if out, err = r.log.ApplyPosition(rec.ID, *rec.Position); err != nil {
			return err
		}
	case domain.KindDelete:
		// Forwarded untouched. Clients decide how to hide deleted
		// components; the log keeps the record.
		out = rec
	}

	r.broadcast(out)
	return nil
}

func (r *room) broadcast(rec domain.EditRecord) {
	data, err := json.Marshal(rec)
	if err != nil {
		slog.Error("marshal record", "room", r.name, "recordId", rec.ID, "error", err)
		return
	}
	for _, conn := range r.clients {
		r.deliver(conn, data)
	}
	metrics.BroadcastFrames.Add(float64(len(r.clients)))
}

// deliver enqueues data for one client. A client that no longer accepts
// writes is skipped; its disconnect arrives through the read pump.
func (r *room) deliver(conn domain.Connection, data []byte) {
	if err := conn.Send(data); err != nil {
		slog.Debug("send skipped", "room", r.name, "clientId", conn.ID(), "error", err)
	}
}
