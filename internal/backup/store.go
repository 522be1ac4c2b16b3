package backup

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNoSnapshot is returned when a service has no snapshots.
var ErrNoSnapshot = errors.New("backup: no snapshot")

// Meta describes one point-in-time snapshot.
type Meta struct {
	Service   string    `json:"service"`
	Location  string    `json:"location"`
	TakenAt   time.Time `json:"taken_at"`
	SizeBytes int64     `json:"size_bytes"`
}

// Age returns how old the snapshot is at the given instant.
func (m Meta) Age(now time.Time) time.Duration {
	return now.Sub(m.TakenAt)
}

// Store produces and serves point-in-time snapshots per stateful service.
type Store interface {
	// Snapshot persists a new snapshot for the service.
	Snapshot(ctx context.Context, service string, data io.Reader) (Meta, error)

	// Latest returns metadata for the most recent snapshot.
	Latest(ctx context.Context, service string) (Meta, error)

	// Open returns the most recent snapshot's content for a restore.
	Open(ctx context.Context, service string) (io.ReadCloser, Meta, error)
}
