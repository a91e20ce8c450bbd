package registry

import (
	"github.com/pkg/errors"
)

// History is the stack of records a domain held before its current one,
// oldest first. It exists purely as an audit trail; consensus rules never
// read it.
type History struct {
	records []*Record
}

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{}
}

// Empty reports whether the history holds no records.
func (h *History) Empty() bool {
	return len(h.records) == 0
}

// Len returns the number of records in the history.
func (h *History) Len() int {
	return len(h.records)
}

// Records returns the stacked records, oldest first. The returned slice
// is the history's own backing storage and must not be modified.
func (h *History) Records() []*Record {
	return h.records
}

// Clone returns a copy of the history. The records themselves are
// shared; records are immutable.
func (h *History) Clone() *History {
	records := make([]*Record, len(h.records))
	copy(records, h.records)
	return &History{records: records}
}

// Push appends a record to the history. Heights along the stack never
// decrease; pushing a record older than the current top panics.
func (h *History) Push(record *Record) {
	if !h.Empty() {
		top := h.records[len(h.records)-1]
		if top.Height() > record.Height() {
			panic(errors.Errorf("pushed domain history record at height %d "+
				"below the current top at height %d",
				record.Height(), top.Height()))
		}
	}
	h.records = append(h.records, record)
}

// Pop removes the top record. The caller states which record it expects
// to remove; a mismatch means the history and the chain state have come
// apart, and panics.
func (h *History) Pop(expected *Record) {
	if h.Empty() {
		panic(errors.New("popped an empty domain history"))
	}
	top := h.records[len(h.records)-1]
	if !top.Equal(expected) {
		panic(errors.Errorf("popped domain history record at height %d "+
			"does not match the expected record at height %d",
			top.Height(), expected.Height()))
	}
	h.records = h.records[:len(h.records)-1]
}
