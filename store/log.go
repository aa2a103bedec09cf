// Package store holds the authoritative edit history of a single room.
package store

import (
	"github.com/google/uuid"

	"canvas-sync-server/domain"
)

// Log is an append/update log of edit records in insertion order.
// It is not safe for concurrent use; the owning room serializes access.
type Log struct {
	records []domain.EditRecord
	byID    map[string]int // record id -> index in records
}

func NewLog() *Log {
	return &Log{byID: make(map[string]int)}
}

// Append assigns a fresh server-side id to rec, discarding any id the
// client supplied, and adds it at the end of the log. It returns the
// stored record.
func (l *Log) Append(rec domain.EditRecord) domain.EditRecord {
	rec.ID = uuid.New().String()
	l.byID[rec.ID] = len(l.records)
	l.records = append(l.records, rec)
	return rec
}

// ApplyUpdate replaces the inputs of the record with the given id,
// preserving every other field. Returns domain.ErrUnknownID and leaves
// the log untouched if no record has that id.
func (l *Log) ApplyUpdate(id string, inputs []byte) (domain.EditRecord, error) {
	i, ok := l.byID[id]
	if !ok {
		return domain.EditRecord{}, domain.ErrUnknownID
	}
	l.records[i].Inputs = inputs
	return l.records[i], nil
}

// ApplyPosition replaces the position of the record with the given id,
// with the same lookup discipline as ApplyUpdate.
func (l *Log) ApplyPosition(id string, pos domain.Position) (domain.EditRecord, error) {
	i, ok := l.byID[id]
	if !ok {
		return domain.EditRecord{}, domain.ErrUnknownID
	}
	p := pos
	l.records[i].Position = &p
	return l.records[i], nil
}

// Snapshot returns the current records in insertion order. The returned
// slice is a copy; callers may iterate it after the room lock is released.
func (l *Log) Snapshot() []domain.EditRecord {
	out := make([]domain.EditRecord, len(l.records))
	copy(out, l.records)
	return out
}

// Len reports the number of records in the log.
func (l *Log) Len() int {
	return len(l.records)
}
