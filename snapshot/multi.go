package snapshot

import (
	"context"
	"errors"
	"log"
)

// MultiStore saves to a primary store and then to every mirror. Mirror
// failures are logged and do not fail the save. Load reads the primary and
// falls back to the mirrors only when the primary has nothing.
type MultiStore struct {
	Primary Store
	Mirrors []Store
}

func (m *MultiStore) Save(ctx context.Context, d *Document) error {
	if err := m.Primary.Save(ctx, d); err != nil {
		return err
	}

	for _, s := range m.Mirrors {
		if err := s.Save(ctx, d); err != nil {
			log.Print("[Snapshot] mirror save failed: ", err)
		}
	}

	return nil
}

func (m *MultiStore) Load(ctx context.Context) (*Document, error) {
	d, err := m.Primary.Load(ctx)
	if !errors.Is(err, ErrNoSnapshot) {
		return d, err
	}

	for _, s := range m.Mirrors {
		d, err := s.Load(ctx)
		if err == nil {
			log.Print("[Snapshot] restored from mirror")
			return d, nil
		}
		if !errors.Is(err, ErrNoSnapshot) {
			log.Print("[Snapshot] mirror load failed: ", err)
		}
	}

	return nil, ErrNoSnapshot
}

func (m *MultiStore) Close() error {
	err := m.Primary.Close()
	for _, s := range m.Mirrors {
		if e := s.Close(); err == nil {
			err = e
		}
	}

	return err
}
