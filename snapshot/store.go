package snapshot

import (
	"context"
	"errors"
)

// ErrNoSnapshot is returned by Load when nothing was saved yet.
var ErrNoSnapshot = errors.New("snapshot: no snapshot stored")

// A Store persists a Document.
type Store interface {
	Save(ctx context.Context, d *Document) error
	Load(ctx context.Context) (*Document, error)
	Close() error
}
