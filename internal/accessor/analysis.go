package accessor

import (
	"time"

	"github.com/gplg/logstore/internal/record"
)

// Analysis is the filter-optimised variant (schema version 2): the
// same columns as Recording plus a denormalised tag_count and a
// composite index on (level_name_id, timestamp), serving level-scoped
// time-range scans without a dictionary join.
type Analysis struct {
	*base
}

func (a *Analysis) Read(fromID int64, count int) ([]record.Message, error) {
	return a.base.read(fromID, count)
}

func (a *Analysis) ReadFunc(fromID int64, count int, fn func(record.Message) bool) error {
	return a.base.readFunc(fromID, count, fn)
}

func (a *Analysis) Write(msgs []record.Message) (int64, error) {
	return a.base.write(msgs)
}

func (a *Analysis) Clear(messagesOnly bool) error {
	return a.base.clear(messagesOnly)
}

func (a *Analysis) Prune(maxCount int64, minTimestampUTC time.Time) error {
	return a.base.prune(maxCount, minTimestampUTC)
}

func (a *Analysis) Vacuum() error {
	return a.base.vacuum()
}

func (a *Analysis) GetNames(kind NameKind, usedOnly bool) ([]string, error) {
	return a.base.getNames(kind, usedOnly)
}

var _ Accessor = (*Analysis)(nil)
