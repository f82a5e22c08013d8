// Package streamsync implements the Multi-Stem Synchronizer: one decoder
// per stem, solo/mute arbitration, per-sample gain ramping, and fixed-size
// synchronized frame emission.
package streamsync

import (
	"sync"

	"github.com/mikup/stemscope/internal/types"
)

// StateMap is the shared, concurrently-readable solo/mute state for every
// stem. Many readers (one per synced frame), occasional writers (the
// control surface); protected by a read/write lock held only for the
// duration of a single write.
type StateMap struct {
	mu     sync.RWMutex
	states types.StemStates
}

// NewStateMap returns a StateMap with every stem unmuted and not solo.
func NewStateMap(stems []types.StemID) *StateMap {
	states := make(types.StemStates, len(stems))
	for _, id := range stems {
		states[id] = types.StemState{}
	}

	return &StateMap{states: states}
}

// Set updates one stem's solo/mute flags.
func (m *StateMap) Set(id types.StemID, state types.StemState) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.states == nil {
		m.states = make(types.StemStates)
	}

	m.states[id] = state
}

// Snapshot copies the current state map for use by a single synced frame.
// A nil underlying map (never initialized) yields an empty snapshot rather
// than a panic -- the Go equivalent of the teacher's "poisoned lock" fault
// taxonomy entry, which maps here to "not yet initialized".
func (m *StateMap) Snapshot() types.StemStates {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(types.StemStates, len(m.states))
	for id, state := range m.states {
		out[id] = state
	}

	return out
}
