package catalog

import "sync/atomic"

// Store publishes the current catalog snapshot to concurrent readers.
// Reload parses the whole file before swapping, so in-flight compilations
// keep the snapshot they started with and never see a partial update.
type Store struct {
	path string
	snap atomic.Pointer[Snapshot]
}

// NewStore loads the catalog at path and returns a store serving it.
func NewStore(path string) (*Store, error) {
	snap, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	st := &Store{path: path}
	st.snap.Store(snap)
	return st, nil
}

// Snapshot returns the current immutable catalog view.
func (s *Store) Snapshot() *Snapshot {
	return s.snap.Load()
}

// Reload re-reads the catalog file and atomically swaps the snapshot.
// On error the previous snapshot stays in place.
func (s *Store) Reload() error {
	snap, err := LoadFile(s.path)
	if err != nil {
		return err
	}
	s.snap.Store(snap)
	return nil
}
