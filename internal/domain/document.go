package domain

import (
	"bytes"
	"encoding/json"
	"math"
)

// Field is a named document value.
type Field struct {
	Value any
	Name  string
}

// Fields is an ordered mapping of field names to values. Setting an existing
// name overwrites the value and keeps the original position.
type Fields struct {
	idx  map[string]int
	list []Field
}

// NewFields returns an empty field set sized for n entries.
func NewFields(n int) *Fields {
	return &Fields{
		idx:  make(map[string]int, n),
		list: make([]Field, 0, n),
	}
}

// Set binds name to value.
func (f *Fields) Set(name string, value any) {
	if i, ok := f.idx[name]; ok {
		f.list[i].Value = value
		return
	}
	f.idx[name] = len(f.list)
	f.list = append(f.list, Field{Name: name, Value: value})
}

// Get returns the value bound to name.
func (f *Fields) Get(name string) (any, bool) {
	if f == nil {
		return nil, false
	}
	i, ok := f.idx[name]
	if !ok {
		return nil, false
	}
	return f.list[i].Value, true
}

// Len returns the number of distinct fields.
func (f *Fields) Len() int {
	if f == nil {
		return 0
	}
	return len(f.list)
}

// Names returns field names in order.
func (f *Fields) Names() []string {
	if f == nil {
		return nil
	}
	out := make([]string, len(f.list))
	for i, fl := range f.list {
		out[i] = fl.Name
	}
	return out
}

// MarshalJSON encodes fields as a JSON object in insertion order.
// Non-finite floats are written as null.
func (f *Fields) MarshalJSON() ([]byte, error) {
	if f == nil {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, fl := range f.list {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSON(&buf, fl.Name); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if v, ok := fl.Value.(float64); ok && (math.IsNaN(v) || math.IsInf(v, 0)) {
			buf.WriteString("null")
			continue
		}
		if err := writeJSON(&buf, fl.Value); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Document is one entry of a bulk request. It is built once per cycle and
// never mutated after being added to a batch.
type Document struct {
	Fields *Fields
	Index  string
	Type   MetricKind
}

// writeJSON appends the encoding of v without HTML escaping or a trailing newline.
func writeJSON(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	buf.Truncate(buf.Len() - 1)
	return nil
}
