package importer

// SlugIndex maps upstream ids to the directory slug already holding their content.
// It is built once from disk before any record is processed, so a renamed
// event keeps its original directory.
type SlugIndex struct {
	slugs map[string]string
}

// NewSlugIndex creates an empty index.
func NewSlugIndex() *SlugIndex {
	return &SlugIndex{slugs: make(map[string]string)}
}

// Lookup returns the slug recorded for id.
func (x *SlugIndex) Lookup(id string) (string, bool) {
	slug, ok := x.slugs[id]
	return slug, ok
}

// Add records slug for id unless id already has one. It reports whether the
// slug was recorded; false means a different directory claimed id first.
func (x *SlugIndex) Add(id, slug string) bool {
	if existing, ok := x.slugs[id]; ok {
		return existing == slug
	}
	x.slugs[id] = slug
	return true
}

// Len returns the number of indexed ids.
func (x *SlugIndex) Len() int {
	return len(x.slugs)
}
