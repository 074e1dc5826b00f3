package timeline

import (
	"bytes"
	"encoding/json"
	"strings"
)

const detailsPrefix = "details_"

type FieldKind int

const (
	ScalarField FieldKind = iota
	ListField
	GroupField
)

func (k FieldKind) String() string {
	switch k {
	case ScalarField:
		return "scalar"
	case ListField:
		return "list"
	case GroupField:
		return "group"
	default:
		return "unknown"
	}
}

// Field is one entry of a detail panel. Exactly one of Scalar, List or
// Group is meaningful, selected by Kind.
type Field struct {
	Kind   FieldKind
	Scalar any
	List   []string
	Group  *Details
}

// Details is an ordered mapping of detail fields. Groups nest at most one
// level: a group only ever holds scalar and list fields.
type Details struct {
	keys   []string
	fields map[string]Field
}

func newDetails() *Details {
	return &Details{fields: make(map[string]Field)}
}

func (d *Details) Len() int {
	return len(d.keys)
}

// Keys returns field keys in the order their columns appeared.
func (d *Details) Keys() []string {
	return append([]string(nil), d.keys...)
}

func (d *Details) Get(key string) (Field, bool) {
	f, ok := d.fields[key]
	return f, ok
}

// Summary returns the top-level "summary" scalar, if any.
func (d *Details) Summary() string {
	f, ok := d.fields["summary"]
	if !ok || f.Kind != ScalarField {
		return ""
	}
	s, _ := f.Scalar.(string)
	return s
}

func (d *Details) set(key string, field Field) {
	if _, exists := d.fields[key]; !exists {
		d.keys = append(d.keys, key)
	}
	d.fields[key] = field
}

// Map converts the details into plain Go values: scalars as-is, lists as
// []string and groups as map[string]any.
func (d *Details) Map() map[string]any {
	out := make(map[string]any, len(d.keys))
	for _, key := range d.keys {
		out[key] = d.fields[key].value()
	}
	return out
}

func (f Field) value() any {
	switch f.Kind {
	case ListField:
		return append([]string(nil), f.List...)
	case GroupField:
		return f.Group.Map()
	default:
		return f.Scalar
	}
}

func (d *Details) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range d.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')

		v, err := d.fields[key].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (f Field) MarshalJSON() ([]byte, error) {
	switch f.Kind {
	case ListField:
		return json.Marshal(f.List)
	case GroupField:
		return f.Group.MarshalJSON()
	default:
		return json.Marshal(f.Scalar)
	}
}

// detailPath is a details_ column label split into at most two segments.
type detailPath struct {
	group string
	field string
}

// parseDetailPath strips the prefix, turns underscores into dots and splits
// on every dot. Only the first two segments address a value, so
// details_a_b_c and details_a_b_d both land on field "b" of group "a".
func parseDetailPath(label string) (detailPath, bool) {
	rest, ok := strings.CutPrefix(label, detailsPrefix)
	if !ok || rest == "" {
		return detailPath{}, false
	}

	segments := strings.Split(strings.ReplaceAll(rest, "_", "."), ".")
	if len(segments) == 1 {
		return detailPath{field: segments[0]}, true
	}
	return detailPath{group: segments[0], field: segments[1]}, true
}

func (p detailPath) nested() bool {
	return p.group != ""
}

// detailField turns a raw cell into a scalar, or a list when it is a string
// containing the pipe separator.
func detailField(v any) Field {
	if s, ok := v.(string); ok && strings.Contains(s, "|") {
		parts := strings.Split(s, "|")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return Field{Kind: ListField, List: parts}
	}
	return Field{Kind: ScalarField, Scalar: v}
}

// put stores a value at path. A one-level path overwrites whatever was there.
// A two-level path reuses an existing group, creates a missing one, and is
// dropped when the group key already holds a scalar or list.
func (d *Details) put(path detailPath, field Field) bool {
	if !path.nested() {
		d.set(path.field, field)
		return true
	}

	existing, ok := d.fields[path.group]
	if ok && existing.Kind != GroupField {
		return false
	}
	if !ok {
		existing = Field{Kind: GroupField, Group: newDetails()}
		d.set(path.group, existing)
	}
	existing.Group.set(path.field, field)
	return true
}
