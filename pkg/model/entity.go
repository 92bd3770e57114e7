package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Default pagination applied by Find when the caller leaves it unset.
const (
	DefaultLimit int64 = 15
	DefaultSkip  int64 = 0
)

// EntityMetadata is the envelope every service operation returns. At most one
// of Data and Error is set; neither set means the operation produced nothing.
type EntityMetadata[T any] struct {
	Data  *T         `json:"data,omitempty"`
	Error *ErrorInfo `json:"error,omitempty"`
}

// HasError reports whether the envelope carries an error.
func (m EntityMetadata[T]) HasError() bool {
	return m.Error != nil
}

// HasData reports whether the envelope carries a result.
func (m EntityMetadata[T]) HasData() bool {
	return m.Data != nil
}

// BaseEntity is embedded by stored record types.
type BaseEntity struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
}

// Filter is a document-store query condition.
type Filter map[string]any

// DeleteResult is the raw acknowledgement of a delete: OK is 1 when the store
// accepted the command, N the number of removed documents.
type DeleteResult struct {
	OK int   `json:"ok"`
	N  int64 `json:"n"`
}

// SortField orders results on one field; Direction is 1 or -1.
type SortField struct {
	Field     string
	Direction int
}

// Sort is an ordered list of sort fields. Its JSON form is an object whose key
// order is preserved, e.g. {"name": 1, "createdAt": "desc"}.
type Sort []SortField

// UnmarshalJSON reads an object of field -> direction, keeping key order.
// Directions may be 1/-1 or asc/ascending/desc/descending.
func (s *Sort) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("sort must be an object")
	}

	out := Sort{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		field, _ := keyTok.(string)

		var raw any
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		dir, err := parseDirection(raw)
		if err != nil {
			return fmt.Errorf("sort field %q: %w", field, err)
		}
		out = append(out, SortField{Field: field, Direction: dir})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*s = out
	return nil
}

// MarshalJSON writes the fields back as an ordered object.
func (s Sort) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Field)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		fmt.Fprintf(&buf, ":%d", f.Direction)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// BSON converts the sort into an ordered document for the driver.
func (s Sort) BSON() bson.D {
	d := make(bson.D, 0, len(s))
	for _, f := range s {
		d = append(d, bson.E{Key: f.Field, Value: f.Direction})
	}
	return d
}

func parseDirection(v any) (int, error) {
	switch t := v.(type) {
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return 0, err
		}
		if n == 1 || n == -1 {
			return int(n), nil
		}
	case string:
		switch strings.ToLower(t) {
		case "asc", "ascending", "1":
			return 1, nil
		case "desc", "descending", "-1":
			return -1, nil
		}
	}
	return 0, fmt.Errorf("invalid direction %v", v)
}

// FindModelOptions carries pagination and ordering for Find. Zero Limit means
// DefaultLimit.
type FindModelOptions struct {
	Limit int64 `json:"limit,omitempty"`
	Skip  int64 `json:"skip,omitempty"`
	Sort  Sort  `json:"sort,omitempty"`
}

// EffectiveLimit returns the limit to apply.
func (o *FindModelOptions) EffectiveLimit() int64 {
	if o == nil || o.Limit <= 0 {
		return DefaultLimit
	}
	return o.Limit
}

// EffectiveSkip returns the skip to apply.
func (o *FindModelOptions) EffectiveSkip() int64 {
	if o == nil || o.Skip < 0 {
		return DefaultSkip
	}
	return o.Skip
}
