// Package record holds the canonical log message type shared by the
// accessor, cache, and collection layers. It is kept separate from the
// root package so those internal packages can operate on messages
// without importing back up into the package that imports them.
package record

import "time"

// Message is a single persisted log record. Once written, every field
// except via a full Clear is immutable; two reads of the same Id
// always compare equal field-by-field.
type Message struct {
	// Id is assigned by the store: dense, monotonic, never reused.
	// Callers leave it zero on Append; the store fills it in.
	Id int64

	// Timestamp is the wall-clock instant, timezone offset preserved.
	Timestamp time.Time

	// HighPrecisionTimestamp is a source-defined monotonic tick value,
	// opaque to the store beyond round-tripping it.
	HighPrecisionTimestamp int64

	// LostMessageCount records messages dropped upstream before this one
	// (e.g. by a lossy channel), non-negative.
	LostMessageCount uint32

	ProcessId       int32
	ProcessName     string
	ApplicationName string
	LogWriterName   string
	LogLevelName    string

	// Tags is an unordered set of interned strings; may be empty.
	Tags []string

	// Text is UTF-8 and may contain any line-break style.
	Text string

	// Protected is an in-memory flag only: the store neither persists
	// nor enforces it, so setting it does not lock the value against
	// mutation, and a message read back from the store has Protected
	// false. (The store has no per-row mutation API beyond Clear.)
	Protected bool
}

// Equal reports whether m and other have identical field values,
// comparing Tags as a set rather than an ordered slice.
func (m Message) Equal(other Message) bool {
	if m.Id != other.Id ||
		!m.Timestamp.Equal(other.Timestamp) ||
		m.HighPrecisionTimestamp != other.HighPrecisionTimestamp ||
		m.LostMessageCount != other.LostMessageCount ||
		m.ProcessId != other.ProcessId ||
		m.ProcessName != other.ProcessName ||
		m.ApplicationName != other.ApplicationName ||
		m.LogWriterName != other.LogWriterName ||
		m.LogLevelName != other.LogLevelName ||
		m.Text != other.Text ||
		m.Protected != other.Protected {
		return false
	}
	return tagSetEqual(m.Tags, other.Tags)
}

func tagSetEqual(a, b []string) bool {
	setA := make(map[string]struct{}, len(a))
	for _, t := range a {
		setA[t] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, t := range b {
		setB[t] = struct{}{}
	}
	if len(setA) != len(setB) {
		return false
	}
	for t := range setA {
		if _, ok := setB[t]; !ok {
			return false
		}
	}
	return true
}
