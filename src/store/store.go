package store

import (
	"trade-dashboard/src/models"
)

// -----------------------------------------------------------------------------
// SnapshotStore owns the MergedView and is its only writer. It is not safe
// for concurrent use: the pipeline loop is the single caller.
// -----------------------------------------------------------------------------

type SnapshotStore struct {
	view *models.MMergedView
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{view: models.NewMergedView()}
}

// View returns the live view. Callers outside the pipeline loop must Clone it.
func (s *SnapshotStore) View() *models.MMergedView {
	return s.view
}

// -----------------------------------------------------------------------------

// ApplyFull replaces the slot for kind with doc. A nil doc leaves the slot
// untouched. Field types are not checked here: the typed views read what they
// can.
func (s *SnapshotStore) ApplyFull(kind models.Kind, doc models.Document) *models.MMergedView {
	if doc == nil {
		return s.view
	}
	s.view.SetSlot(kind, doc.Clone())
	return s.view
}

// -----------------------------------------------------------------------------

// ApplyDelta merges the top-level keys of partial into the slot for kind,
// creating the slot when absent. The merge is one level deep: a nested object
// in partial replaces the stored one wholesale and keys nested below it that
// partial does not repeat are dropped.
func (s *SnapshotStore) ApplyDelta(kind models.Kind, partial models.Document) *models.MMergedView {
	if partial == nil {
		return s.view
	}

	merged := s.view.Slot(kind).Clone()
	if merged == nil {
		merged = make(models.Document, len(partial))
	}
	for k, v := range partial {
		merged[k] = v
	}
	s.view.SetSlot(kind, merged)
	return s.view
}
