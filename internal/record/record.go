// Package record defines the unit of synchronization shared by the client
// replica and the catalog server.
package record

import (
	"encoding/json"
	"errors"
	"time"
)

var ErrEmptyPayload = errors.New("row has no payload")

// Row is one server-owned record as held by a collection.
//
// UpdatedAt drives both last-write-wins merging and cursor watermarks.
// Deleted rows are tombstones: merging one removes the record locally.
// Title is the searchable text used by collection filters.
type Row struct {
	ID        string          `json:"id"`
	UpdatedAt time.Time       `json:"updatedAt"`
	Deleted   bool            `json:"deleted,omitempty"`
	Title     string          `json:"title,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Clone returns a deep copy of r.
func (r Row) Clone() Row {
	if r.Data != nil {
		r.Data = append(json.RawMessage(nil), r.Data...)
	}
	return r
}

// CloneRows deep-copies rows, preserving order. A nil input stays nil.
func CloneRows(rows []Row) []Row {
	if rows == nil {
		return nil
	}
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out
}

// Wrap encodes v as the payload of a new row.
func Wrap[T any](id, title string, updatedAt time.Time, v T) (Row, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Row{}, err
	}
	return Row{ID: id, Title: title, UpdatedAt: updatedAt, Data: b}, nil
}

// Unwrap decodes the payload of r into a T.
func Unwrap[T any](r Row) (T, error) {
	var v T
	if len(r.Data) == 0 {
		return v, ErrEmptyPayload
	}
	err := json.Unmarshal(r.Data, &v)
	return v, err
}
