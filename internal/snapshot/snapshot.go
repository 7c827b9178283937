// Package snapshot implements the two compaction strategies: an atomic
// VACUUM INTO, and a cancellable page-by-page backup with progress
// reporting driven by the sqlite backup API.
package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"os"

	"github.com/ncruces/go-sqlite3"

	"github.com/gplg/logstore/internal/errs"
	"github.com/gplg/logstore/internal/schema"
)

// pagesPerStep is chosen so each backup step copies roughly 1 MiB
// (pagesPerStep * schema.PageSize, a 64 KiB page size).
const pagesPerStep = 16

// VacuumInto writes a compacted, standalone copy of db to destPath in
// one atomic operation. Not cancellable and not progress-reporting.
func VacuumInto(db *sql.DB, destPath string) error {
	if _, err := db.ExecContext(context.Background(), "VACUUM INTO ?", destPath); err != nil {
		return errs.New("snapshot", errs.KindIO, err)
	}
	return nil
}

// Progress is called between backup steps with the fraction of pages
// copied so far, the number of bytes that represents, and whether this
// call is a duplicate report of the same step (the source database may
// be concurrently written during backup; a lock-contention retry
// reports the same progress value again rather than silently
// blocking). Returning false cancels the backup; the partial
// destination file is then deleted.
type Progress func(fraction float64, bytesCopied int64, retried bool) bool

// BackupWithProgress copies db page by page into a new file at
// destPath, opened with the journal and synchronous pragmas off for
// speed, invoking onProgress between steps. On completion the
// destination is vacuumed. On cancellation (onProgress returning
// false) the partial destination file is removed and a
// backup-cancelled error is returned.
func BackupWithProgress(ctx context.Context, db *sql.DB, destPath string, onProgress Progress) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return errs.New("snapshot", errs.KindIO, err)
	}
	defer conn.Close()

	dst, err := sqlite3.Open(destPath)
	if err != nil {
		return errs.New("snapshot", errs.KindIO, err)
	}
	defer dst.Close()
	if err := dst.Exec("PRAGMA journal_mode = OFF; PRAGMA synchronous = OFF"); err != nil {
		dst.Close()
		os.Remove(destPath)
		return errs.New("snapshot", errs.KindIO, err)
	}

	var stepErr error
	var cancelled bool
	err = conn.Raw(func(driverConn any) error {
		src, ok := driverConn.(*sqlite3.Conn)
		if !ok {
			return errs.New("snapshot", errs.KindIO, nil)
		}

		backup, err := src.Backup("main", dst, "main")
		if err != nil {
			return err
		}
		defer backup.Close()

		for {
			if ctx.Err() != nil {
				stepErr = ctx.Err()
				return stepErr
			}

			done, stepE := backup.Step(pagesPerStep)
			if stepE != nil {
				if retryable(stepE) {
					fraction, bytesCopied := backupProgress(backup)
					if !onProgress(fraction, bytesCopied, true) {
						cancelled = true
						return nil
					}
					continue
				}
				stepErr = stepE
				return stepErr
			}

			fraction, bytesCopied := backupProgress(backup)
			if !onProgress(fraction, bytesCopied, false) {
				cancelled = true
				return nil
			}
			if done {
				return nil
			}
		}
	})

	if err != nil || stepErr != nil {
		dst.Close()
		os.Remove(destPath)
		if stepErr != nil {
			return errs.New("snapshot", errs.KindIO, stepErr)
		}
		return errs.New("snapshot", errs.KindIO, err)
	}
	if cancelled {
		dst.Close()
		os.Remove(destPath)
		return errs.New("snapshot", errs.KindBackupCancelled, nil)
	}

	if err := dst.Exec("VACUUM"); err != nil {
		return errs.New("snapshot", errs.KindIO, err)
	}
	return nil
}

// retryable reports whether err represents transient lock contention
// from a concurrent writer on the source database, in which case the
// same backup step is retried rather than failing outright.
func retryable(err error) bool {
	var serr *sqlite3.Error
	if !errors.As(err, &serr) {
		return false
	}
	code := serr.Code()
	return code == sqlite3.BUSY || code == sqlite3.LOCKED
}

func backupProgress(backup *sqlite3.Backup) (fraction float64, bytesCopied int64) {
	total := backup.PageCount()
	remaining := backup.Remaining()
	if total <= 0 {
		return 0, 0
	}
	copied := total - remaining
	return float64(copied) / float64(total), int64(copied) * int64(schema.PageSize)
}
