package frontmatter

import (
	"iter"
	"reflect"
	"slices"
	"sort"
)

// Fields is an insertion-ordered map of frontmatter keys to values.
//
// Values are nil, string, Timestamp, int, int64, uint64, float64, bool, []any
// or a nested *Fields. The zero value is not usable; call NewFields. A nil *Fields behaves
// as an empty, read-only map.
type Fields struct {
	keys   []string
	values map[string]any
}

// Timestamp is a YAML timestamp kept as its literal text, so a value like
// "2024-01-02 10:00:00" is written back exactly as read, without a time zone.
type Timestamp string

// NewFields creates an empty ordered field map.
func NewFields() *Fields {
	return &Fields{values: make(map[string]any)}
}

// Len returns the number of keys.
func (f *Fields) Len() int {
	if f == nil {
		return 0
	}
	return len(f.keys)
}

// Get returns the value stored under key.
func (f *Fields) Get(key string) (any, bool) {
	if f == nil {
		return nil, false
	}
	v, ok := f.values[key]
	return v, ok
}

// Set stores value under key. New keys are appended; existing keys keep their
// position.
func (f *Fields) Set(key string, value any) {
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = value
}

// Keys returns the keys in insertion order.
func (f *Fields) Keys() []string {
	if f == nil {
		return nil
	}
	return slices.Clone(f.keys)
}

// All iterates over key/value pairs in insertion order.
func (f *Fields) All() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		if f == nil {
			return
		}
		for _, k := range f.keys {
			if !yield(k, f.values[k]) {
				return
			}
		}
	}
}

// Clone returns a deep copy.
func (f *Fields) Clone() *Fields {
	out := NewFields()
	for k, v := range f.All() {
		out.Set(k, cloneValue(v))
	}
	return out
}

// Equal reports whether both maps hold equal values under the same keys in
// the same order. A nil map equals an empty one.
func (f *Fields) Equal(other *Fields) bool {
	if f.Len() != other.Len() {
		return false
	}
	if f.Len() == 0 {
		return true
	}
	if !slices.Equal(f.keys, other.keys) {
		return false
	}
	for _, k := range f.keys {
		if !valuesEqual(f.values[k], other.values[k]) {
			return false
		}
	}
	return true
}

// Map converts the fields to plain maps, recursively. Key order is lost.
func (f *Fields) Map() map[string]any {
	out := make(map[string]any, f.Len())
	for k, v := range f.All() {
		out[k] = plainValue(v)
	}
	return out
}

// FieldsFromMap builds ordered fields from a plain map. Keys are sorted so the
// result is deterministic; nested maps become nested *Fields.
func FieldsFromMap(m map[string]any) *Fields {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := NewFields()
	for _, k := range keys {
		out.Set(k, orderedValue(m[k]))
	}
	return out
}

func orderedValue(v any) any {
	switch vv := v.(type) {
	case map[string]any:
		return FieldsFromMap(vv)
	case []any:
		items := make([]any, len(vv))
		for i, item := range vv {
			items[i] = orderedValue(item)
		}
		return items
	default:
		return v
	}
}

func plainValue(v any) any {
	switch vv := v.(type) {
	case Timestamp:
		return string(vv)
	case *Fields:
		return vv.Map()
	case []any:
		items := make([]any, len(vv))
		for i, item := range vv {
			items[i] = plainValue(item)
		}
		return items
	default:
		return v
	}
}

func cloneValue(v any) any {
	switch vv := v.(type) {
	case *Fields:
		return vv.Clone()
	case []any:
		items := make([]any, len(vv))
		for i, item := range vv {
			items[i] = cloneValue(item)
		}
		return items
	default:
		return v
	}
}

func valuesEqual(a, b any) bool {
	switch av := a.(type) {
	case *Fields:
		bv, ok := b.(*Fields)
		return ok && av.Equal(bv)
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !valuesEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(a, b)
	}
}
