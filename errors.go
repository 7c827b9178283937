package logstore

import "github.com/gplg/logstore/internal/errs"

// Kind classifies the failure modes the store surfaces to callers. The
// accessor and cache layers never return raw sqlite or os errors; they
// wrap them into a Kind so callers can branch without depending on the
// storage layer's error types.
type Kind = errs.Kind

const (
	// KindUnknown is never returned; it guards against a zero-value Error.
	KindUnknown = errs.KindUnknown

	// KindInvalidFormat means an existing file's application identifier
	// does not match the store's fixed tag.
	KindInvalidFormat = errs.KindInvalidFormat

	// KindUnsupportedVersion means an existing file's schema version is
	// not one this build knows how to open.
	KindUnsupportedVersion = errs.KindUnsupportedVersion

	// KindIO covers locking, disk-full, permission, and corruption errors
	// surfaced by the underlying storage engine.
	KindIO = errs.KindIO

	// KindStoreTooLarge means a 32-bit-range API was called on a store
	// whose message count exceeds 32-bit capacity.
	KindStoreTooLarge = errs.KindStoreTooLarge

	// KindArgumentOutOfRange means an id or count fell outside the
	// store's current [oldest, newest] range, or was negative.
	KindArgumentOutOfRange = errs.KindArgumentOutOfRange

	// KindOperationNotSupported means an insert/remove/set was attempted
	// on the ordered collection, which only supports append and clear.
	KindOperationNotSupported = errs.KindOperationNotSupported

	// KindDisposed means an operation was attempted on a closed store.
	KindDisposed = errs.KindDisposed

	// KindBackupCancelled means a progress callback returned false during
	// a snapshot, and the partial output file was deleted.
	KindBackupCancelled = errs.KindBackupCancelled
)

// Error is the uniform error type returned by every public operation.
// It names the operation that failed, classifies the failure via Kind,
// and wraps the underlying cause (which may be nil for pure validation
// failures like KindArgumentOutOfRange).
type Error = errs.Error

// ErrKind builds a sentinel *Error carrying only a Kind, for use with
// errors.Is(err, ErrKind(KindDisposed)).
func ErrKind(kind Kind) error {
	return errs.Sentinel(kind)
}
