package store

import (
	"context"
	"errors"
)

// Predefined errors for store operations
var (
	ErrSnapshotNotFound = errors.New("store: snapshot not found")
	ErrSchemaMissing    = errors.New("store: snapshot table does not exist")
)

// SnapshotStorer persists serialized cart snapshots under a key.
// Saving replaces any previous snapshot (last write wins).
type SnapshotStorer interface {
	LoadSnapshot(ctx context.Context, key string) ([]byte, error) // ErrSnapshotNotFound when absent
	SaveSnapshot(ctx context.Context, key string, data []byte) error
}

// Backend is a SnapshotStorer that owns a connection.
type Backend interface {
	SnapshotStorer
	Ping(ctx context.Context) error
	Close() error
}
