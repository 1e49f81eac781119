package collection

import (
	"github.com/dmitrijs2005/shelfsync/internal/record"
)

// Merge applies incoming onto existing and returns a new slice.
//
// A row wins when its UpdatedAt is not older than the row it replaces, so a
// server row with the same timestamp replaces a local one. Winning tombstones
// remove the row; tombstones for unknown ids are dropped. Existing rows keep
// their position and new rows are appended in incoming order. Neither input
// is modified.
func Merge(existing, incoming []record.Row) []record.Row {
	out := record.CloneRows(existing)
	index := make(map[string]int, len(out)+len(incoming))
	for i, r := range out {
		index[r.ID] = i
	}

	for _, in := range incoming {
		i, known := index[in.ID]
		switch {
		case !known && in.Deleted:
			continue
		case !known:
			index[in.ID] = len(out)
			out = append(out, in.Clone())
		case in.UpdatedAt.Before(out[i].UpdatedAt):
			continue
		default:
			// A winning tombstone stays in its slot so later, older rows
			// for the same id still lose against it.
			out[i] = in.Clone()
		}
	}

	kept := make([]record.Row, 0, len(out))
	for _, r := range out {
		if !r.Deleted {
			kept = append(kept, r)
		}
	}
	return kept
}

func indexOf(rows []record.Row, id string) int {
	for i, r := range rows {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// replace puts row in place of the row with the same id, appends it when no
// such row exists, and removes it when row is a tombstone.
func replace(rows []record.Row, row record.Row) []record.Row {
	out := record.CloneRows(rows)
	i := indexOf(out, row.ID)
	switch {
	case row.Deleted && i >= 0:
		return append(out[:i], out[i+1:]...)
	case row.Deleted:
		return out
	case i >= 0:
		out[i] = row.Clone()
		return out
	}
	return append(out, row.Clone())
}

// remove drops the row with id.
func remove(rows []record.Row, id string) []record.Row {
	out := record.CloneRows(rows)
	if i := indexOf(out, id); i >= 0 {
		return append(out[:i], out[i+1:]...)
	}
	return out
}
