package accessor

import (
	"time"

	"github.com/gplg/logstore/internal/record"
)

// Recording is the append-optimised variant (schema version 1): a
// single messages table with an index on timestamp, one INSERT per
// message, no per-row joins at write time.
type Recording struct {
	*base
}

func (r *Recording) Read(fromID int64, count int) ([]record.Message, error) {
	return r.base.read(fromID, count)
}

func (r *Recording) ReadFunc(fromID int64, count int, fn func(record.Message) bool) error {
	return r.base.readFunc(fromID, count, fn)
}

func (r *Recording) Write(msgs []record.Message) (int64, error) {
	return r.base.write(msgs)
}

func (r *Recording) Clear(messagesOnly bool) error {
	return r.base.clear(messagesOnly)
}

func (r *Recording) Prune(maxCount int64, minTimestampUTC time.Time) error {
	return r.base.prune(maxCount, minTimestampUTC)
}

func (r *Recording) Vacuum() error {
	return r.base.vacuum()
}

func (r *Recording) GetNames(kind NameKind, usedOnly bool) ([]string, error) {
	return r.base.getNames(kind, usedOnly)
}

var _ Accessor = (*Recording)(nil)
