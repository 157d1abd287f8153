package markdown

import "fmt"

// Field is one frontmatter key and its value.
type Field struct {
	Key   string
	Value any
}

// Literal is a plain scalar kept as its source text, such as an unquoted
// date in a hand-edited file.
type Literal struct {
	Tag   string
	Value string
}

func (l Literal) String() string { return l.Value }

// Fields is an ordered frontmatter mapping. Values may be strings, integers,
// floats, bools, Literals, string or any slices, nested Fields, or nil. Nil
// values are never rendered.
type Fields []Field

// Get returns the value stored under key.
func (f Fields) Get(key string) (any, bool) {
	for _, field := range f {
		if field.Key == key {
			return field.Value, true
		}
	}
	return nil, false
}

// String returns the value under key formatted as text, or "" when absent.
func (f Fields) String(key string) string {
	v, ok := f.Get(key)
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// Set replaces the value under key in place, or appends it.
func (f *Fields) Set(key string, value any) {
	for i := range *f {
		if (*f)[i].Key == key {
			(*f)[i].Value = value
			return
		}
	}
	*f = append(*f, Field{Key: key, Value: value})
}

// Merge overlays update on base without modifying either. Keys already in
// base keep their position, new keys are appended in update order, and nil
// values in update leave base untouched. The merge is shallow: nested Fields
// are replaced, not merged.
func Merge(base, update Fields) Fields {
	out := make(Fields, len(base), len(base)+len(update))
	copy(out, base)
	for _, field := range update {
		if field.Value == nil {
			continue
		}
		out.Set(field.Key, field.Value)
	}
	return out
}
