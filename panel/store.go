// Package panel holds the mapping from generated UI panel ids to the device
// actions they trigger, plus the camera to video connector table.
package panel

import "sync"

// Store owns the current Snapshot. Writers replace it wholesale; readers get
// copies or single lookups.
type Store struct {
	mu   sync.RWMutex
	snap Snapshot
}

func NewStore() *Store {
	return &Store{snap: NewSnapshot()}
}

// Replace swaps in s. Entries from the previous snapshot are discarded, never
// merged.
func (st *Store) Replace(s Snapshot) {
	c := s.clone()
	st.mu.Lock()
	defer st.mu.Unlock()
	st.snap = c
}

// Snapshot returns a copy of the current state.
func (st *Store) Snapshot() Snapshot {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.snap.clone()
}

// Resolve looks up a panel id. Unknown ids (for example a panel left over
// from an earlier build) return false.
func (st *Store) Resolve(panelID string) (Target, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	t, ok := st.snap.Targets[panelID]
	if ok && t.Preset != nil {
		p := *t.Preset
		t.Preset = &p
	}
	return t, ok
}

// Connector returns the video input connector detected for cameraID.
func (st *Store) Connector(cameraID string) (int, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	c, ok := st.snap.Connectors[cameraID]
	return c, ok
}
