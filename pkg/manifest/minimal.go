// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RetainedFields lists, in output order, the descriptor fields a packager
// needs. Everything else (scripts, devDependencies, ...) stays behind.
var RetainedFields = []string{
	"name",
	"displayName",
	"description",
	"version",
	"publisher",
	"engines",
	"categories",
	"keywords",
	"activationEvents",
	"main",
	"contributes",
	"repository",
}

type (
	// Field is one key of the minimal descriptor with its verbatim value.
	Field struct {
		Key   string
		Value json.RawMessage
	}

	// Minimal is the ordered projection of a Manifest onto RetainedFields.
	Minimal struct {
		fields []Field
	}
)

// Minimal projects m onto RetainedFields. Fields absent from m are omitted,
// except "repository", which is filled from defaultRepo when it is non-nil.
func (m *Manifest) Minimal(defaultRepo *Repository) (*Minimal, error) {
	mm := &Minimal{fields: make([]Field, 0, len(RetainedFields))}
	for _, key := range RetainedFields {
		if v, ok := m.raw[key]; ok {
			mm.fields = append(mm.fields, Field{Key: key, Value: v})
			continue
		}
		if key == "repository" && defaultRepo != nil {
			v, err := json.Marshal(defaultRepo)
			if err != nil {
				return nil, fmt.Errorf("encode default repository: %w", err)
			}
			mm.fields = append(mm.fields, Field{Key: key, Value: v})
		}
	}
	return mm, nil
}

// Fields returns the retained fields in output order.
func (mm *Minimal) Fields() []Field {
	out := make([]Field, len(mm.fields))
	copy(out, mm.fields)
	return out
}

// Get returns the verbatim value of key.
func (mm *Minimal) Get(key string) (json.RawMessage, bool) {
	for _, f := range mm.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// MarshalJSON encodes the fields as a compact object in RetainedFields order.
func (mm *Minimal) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range mm.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if err := json.Compact(&buf, f.Value); err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Key, err)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Encode returns the descriptor file contents: two-space indented JSON with a
// trailing newline.
func (mm *Minimal) Encode() ([]byte, error) {
	compact, err := mm.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", "  "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}
