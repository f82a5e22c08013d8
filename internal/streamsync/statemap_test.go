package streamsync

import (
	"testing"

	"github.com/mikup/stemscope/internal/types"
)

func TestStateMapSnapshotIsIndependentCopy(t *testing.T) {
	m := NewStateMap([]types.StemID{types.StemDialogue, types.StemMusic})

	snap1 := m.Snapshot()
	m.Set(types.StemMusic, types.StemState{Muted: true})
	snap2 := m.Snapshot()

	if snap1[types.StemMusic].Muted {
		t.Error("earlier snapshot should not observe a later Set")
	}

	if !snap2[types.StemMusic].Muted {
		t.Error("snapshot taken after Set should reflect the new state")
	}
}

func TestStateMapNilUnderlyingSnapshotIsEmpty(t *testing.T) {
	m := &StateMap{}

	snap := m.Snapshot()
	if len(snap) != 0 {
		t.Errorf("len(snap) = %d, want 0 for an uninitialized StateMap", len(snap))
	}
}

func TestStateMapSetOnNilUnderlyingMap(t *testing.T) {
	m := &StateMap{}
	m.Set(types.StemDialogue, types.StemState{Solo: true})

	snap := m.Snapshot()
	if !snap[types.StemDialogue].Solo {
		t.Error("expected Set to lazily initialize the state map")
	}
}
