package logstore

import "github.com/gplg/logstore/internal/record"

// LogMessage is a single persisted log record. Once written, every
// field except via a full Clear is immutable; two reads of the same
// Id always compare equal field-by-field.
//
// LogMessage is an alias for internal/record.Message so the accessor,
// cache, and collection packages can build and compare messages
// without importing this package.
type LogMessage = record.Message
