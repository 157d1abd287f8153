package photos

import (
	"encoding/json"
	"reflect"
	"testing"

	"import-data/internal/importer"
	"import-data/internal/model"
)

func decodePhotos(t *testing.T, raw string) model.PhotosPayload {
	t.Helper()
	var p model.PhotosPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("decoding payload: %v", err)
	}
	return p
}

func locations(photos []model.Photo) []string {
	var out []string
	for _, p := range photos {
		out = append(out, p.Location)
	}
	return out
}

func TestAssigner_Assign(t *testing.T) {
	patches := map[string]string{"1676970780777": "291352411"}
	a := NewAssigner(patches, importer.NewNopLogger())

	t.Run("patch table resolves batch without event", func(t *testing.T) {
		got := a.Assign(decodePhotos(t, `{"groups": {"A": {"timestamp": 1676970780777, "photos": [{"location": "a.jpg"}]}}}`))

		if got.Assigned != 1 || got.Unassigned != 0 {
			t.Errorf("assigned/unassigned = %d/%d, want 1/0", got.Assigned, got.Unassigned)
		}
		if !reflect.DeepEqual(locations(got.ByEvent["291352411"]), []string{"a.jpg"}) {
			t.Errorf("ByEvent = %v", got.ByEvent)
		}
	})

	t.Run("explicit event wins over patch", func(t *testing.T) {
		got := a.Assign(decodePhotos(t, `{"groups": {"A": {"event": "777", "timestamp": "1676970780777", "photos": [{"location": "a.jpg"}]}}}`))

		if len(got.ByEvent["777"]) != 1 || len(got.ByEvent["291352411"]) != 0 {
			t.Errorf("ByEvent = %v", got.ByEvent)
		}
	})

	t.Run("unmatched batches are reported in order", func(t *testing.T) {
		got := a.Assign(decodePhotos(t, `{"groups": {
			"z": {"timestamp": 1, "photos": [{"location": "a.jpg"}]},
			"a": {"timestamp": 2, "photos": []}
		}}`))

		if got.Assigned != 0 || got.Unassigned != 2 {
			t.Errorf("assigned/unassigned = %d/%d, want 0/2", got.Assigned, got.Unassigned)
		}
		if !reflect.DeepEqual(got.UnassignedBatches, []string{"z", "a"}) {
			t.Errorf("UnassignedBatches = %v", got.UnassignedBatches)
		}
	})

	t.Run("order preserved and instructional excluded", func(t *testing.T) {
		got := a.Assign(decodePhotos(t, `{"groups": {
			"b2": {"event": 5, "photos": [{"location": "3.jpg"}, {"location": "how-to.jpg", "instructional": true}, {"location": "4.jpg"}]},
			"b1": {"event": "5", "photos": [{"location": "1.jpg"}, {"location": "2.jpg", "removed": true}]}
		}}`))

		want := []string{"3.jpg", "4.jpg", "1.jpg", "2.jpg"}
		if !reflect.DeepEqual(locations(got.ByEvent["5"]), want) {
			t.Errorf("photos = %v, want %v", locations(got.ByEvent["5"]), want)
		}
		if got.Assigned != 2 {
			t.Errorf("Assigned = %d, want 2", got.Assigned)
		}
	})
}
