package chat

import (
	"errors"

	"github.com/google/uuid"
)

// ErrUnknownHandle is returned when a handle no longer names a record, e.g.
// after ReplaceAll discarded it.
var ErrUnknownHandle = errors.New("unknown transcript handle")

// Handle identifies one appended record.
type Handle string

type entry struct {
	handle Handle
	record MessageRecord
}

// Transcript is the ordered record sequence of the active conversation.
// Records stay in append order; timestamps are never used to sort.
type Transcript struct {
	entries []entry
}

// NewTranscript returns an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{}
}

// ReplaceAll discards every record, optimistic ones included, and installs
// records in the given order.
func (t *Transcript) ReplaceAll(records []MessageRecord) {
	entries := make([]entry, len(records))
	for i, r := range records {
		entries[i] = entry{handle: newHandle(), record: r}
	}
	t.entries = entries
}

// Append adds record at the end and returns its handle.
func (t *Transcript) Append(record MessageRecord) Handle {
	h := newHandle()
	t.entries = append(t.entries, entry{handle: h, record: record})
	return h
}

// Reconcile replaces the record at h in place and clears its optimistic flag.
func (t *Transcript) Reconcile(h Handle, updated MessageRecord) error {
	i := t.index(h)
	if i < 0 {
		return ErrUnknownHandle
	}
	updated.Optimistic = false
	t.entries[i].record = updated
	return nil
}

// Remove drops the record at h.
func (t *Transcript) Remove(h Handle) error {
	i := t.index(h)
	if i < 0 {
		return ErrUnknownHandle
	}
	t.entries = append(t.entries[:i], t.entries[i+1:]...)
	return nil
}

// Get returns the record at h.
func (t *Transcript) Get(h Handle) (MessageRecord, bool) {
	i := t.index(h)
	if i < 0 {
		return MessageRecord{}, false
	}
	return t.entries[i].record, true
}

// Contains reports whether h still names a record.
func (t *Transcript) Contains(h Handle) bool {
	return t.index(h) >= 0
}

// Records returns a copy of the records in append order.
func (t *Transcript) Records() []MessageRecord {
	out := make([]MessageRecord, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.record
	}
	return out
}

// Handles returns the handles in append order, parallel to Records.
func (t *Transcript) Handles() []Handle {
	out := make([]Handle, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.handle
	}
	return out
}

// Len returns the number of records.
func (t *Transcript) Len() int {
	return len(t.entries)
}

func (t *Transcript) index(h Handle) int {
	for i, e := range t.entries {
		if e.handle == h {
			return i
		}
	}
	return -1
}

func newHandle() Handle {
	return Handle(uuid.New().String())
}
