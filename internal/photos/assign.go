package photos

import (
	"import-data/internal/importer"
	"import-data/internal/model"
)

// Assigner maps photo batches to events: the batch's explicit event first,
// then the manual patch table keyed by batch timestamp.
type Assigner struct {
	patches map[string]string
	logger  importer.Logger
}

// NewAssigner creates an Assigner with the given timestamp -> event id patches.
func NewAssigner(patches map[string]string, logger importer.Logger) *Assigner {
	return &Assigner{patches: patches, logger: logger}
}

// Assign distributes the photos of every batch over events. Batches are
// visited in document order and photos keep their order within a batch.
// Instructional photos never reach a gallery.
func (a *Assigner) Assign(payload model.PhotosPayload) importer.Assignment {
	result := importer.Assignment{ByEvent: make(map[string][]model.Photo)}

	for _, entry := range payload.Groups {
		batch := entry.Value

		eventID := batch.Event.String()
		if eventID == "" {
			if patched, ok := a.patches[batch.Timestamp.String()]; ok {
				a.logger.Debug("photo batch assigned by patch", "batch", entry.Key, "timestamp", batch.Timestamp, "event", patched)
				eventID = patched
			}
		}
		if eventID == "" {
			a.logger.Warn("photo batch has no event", "batch", entry.Key, "timestamp", batch.Timestamp, "photos", len(batch.Photos))
			result.Unassigned++
			result.UnassignedBatches = append(result.UnassignedBatches, entry.Key)
			continue
		}

		result.Assigned++
		for _, p := range batch.Photos {
			if p.Instructional {
				continue
			}
			result.ByEvent[eventID] = append(result.ByEvent[eventID], p)
		}
	}

	return result
}

var _ importer.PhotoAssigner = (*Assigner)(nil)
