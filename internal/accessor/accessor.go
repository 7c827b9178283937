// Package accessor owns the sqlite connection, schema variant
// selection, and every read/write/prune/vacuum operation the façade
// delegates to. It is not safe for concurrent use on its own — callers
// (the façade) must serialise access with a single mutex, per the
// store's concurrency model.
package accessor

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/gplg/logstore/internal/errs"
	"github.com/gplg/logstore/internal/record"
	"github.com/gplg/logstore/internal/schema"
)

// Purpose selects which schema variant governs a newly created file.
type Purpose int

const (
	PurposeRecording Purpose = iota
	PurposeAnalysis
)

// Mode selects the durability pragma set applied on every open.
type Mode int

const (
	ModeRobust Mode = iota
	ModeFast
)

// NameKind selects which dictionary table GetNames queries.
type NameKind int

const (
	NameKindProcess NameKind = iota
	NameKindApplication
	NameKindWriter
	NameKindLevel
	NameKindTag
)

func (k NameKind) table() string {
	switch k {
	case NameKindProcess:
		return "processes"
	case NameKindApplication:
		return "applications"
	case NameKindWriter:
		return "writers"
	case NameKindLevel:
		return "levels"
	case NameKindTag:
		return "tags"
	default:
		return ""
	}
}

func (k NameKind) messageColumn() string {
	switch k {
	case NameKindProcess:
		return "process_name_id"
	case NameKindApplication:
		return "application_name_id"
	case NameKindWriter:
		return "writer_name_id"
	case NameKindLevel:
		return "level_name_id"
	default:
		return ""
	}
}

// Accessor is the common contract both schema variants satisfy. The
// façade is chosen once, at Open, by the file's stored schema version
// (or by the requested Purpose on create), and never type-switches
// beyond that one branch.
type Accessor interface {
	Read(fromID int64, count int) ([]record.Message, error)
	ReadFunc(fromID int64, count int, fn func(record.Message) bool) error
	Write(msgs []record.Message) (firstID int64, err error)
	Clear(messagesOnly bool) error
	Prune(maxCount int64, minTimestampUTC time.Time) error
	Vacuum() error
	GetNames(kind NameKind, usedOnly bool) ([]string, error)
	OldestID() int64
	NewestID() int64
	Count() int64
	DB() *sql.DB
	Close() error
}

// Open opens path, auto-detecting new-vs-existing by stat'ing it first
// (":memory:" and "" are always treated as new). On an existing file
// the stored application id and user_version decide the variant;
// purpose is ignored in favour of whatever schema the file already
// contains. mode is not persisted anywhere in the file format, so it
// is never inferred: it is applied via applyPragmas on every open, new
// or existing, exactly as requested.
func Open(path string, purpose Purpose, mode Mode) (Accessor, error) {
	isNew := path == "" || path == ":memory:"
	if !isNew {
		if _, err := os.Stat(path); err != nil {
			if !os.IsNotExist(err) {
				return nil, errs.New("open", errs.KindIO, err)
			}
			isNew = true
		}
	}

	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errs.New("open", errs.KindIO, err)
	}
	db.SetMaxOpenConns(1)

	if isNew {
		return create(db, purpose, mode)
	}
	return openExisting(db, mode)
}

func create(db *sql.DB, purpose Purpose, mode Mode) (Accessor, error) {
	// page_size and encoding only take effect before the file's first
	// page is written, which setting application_id already does.
	if _, err := db.Exec(fmt.Sprintf("PRAGMA page_size = %d", schema.PageSize)); err != nil {
		db.Close()
		return nil, errs.New("open", errs.KindIO, err)
	}
	if _, err := db.Exec("PRAGMA encoding = 'UTF-8'"); err != nil {
		db.Close()
		return nil, errs.New("open", errs.KindIO, err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA application_id = %d", schema.ApplicationID)); err != nil {
		db.Close()
		return nil, errs.New("open", errs.KindIO, err)
	}

	version := schema.VersionRecording
	ddl := schema.RecordingDDL
	if purpose == PurposeAnalysis {
		version = schema.VersionAnalysis
		ddl = schema.AnalysisDDL
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
		db.Close()
		return nil, errs.New("open", errs.KindIO, err)
	}

	if err := applyPragmas(db, mode); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, errs.New("open", errs.KindIO, err)
	}

	b := newBase(db)
	b.analysis = purpose == PurposeAnalysis
	if err := b.loadRange(); err != nil {
		db.Close()
		return nil, err
	}
	if b.analysis {
		return &Analysis{base: b}, nil
	}
	return &Recording{base: b}, nil
}

func openExisting(db *sql.DB, mode Mode) (Accessor, error) {
	var appID int64
	if err := db.QueryRow("PRAGMA application_id").Scan(&appID); err != nil {
		db.Close()
		return nil, errs.New("open", errs.KindIO, err)
	}
	if appID != schema.ApplicationID {
		db.Close()
		return nil, errs.New("open", errs.KindInvalidFormat, nil)
	}

	var version int64
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		db.Close()
		return nil, errs.New("open", errs.KindIO, err)
	}

	if err := applyPragmas(db, mode); err != nil {
		db.Close()
		return nil, err
	}

	b := newBase(db)
	if err := b.loadRange(); err != nil {
		db.Close()
		return nil, err
	}

	switch version {
	case schema.VersionRecording:
		return &Recording{base: b}, nil
	case schema.VersionAnalysis:
		b.analysis = true
		return &Analysis{base: b}, nil
	default:
		db.Close()
		return nil, errs.New("open", errs.KindUnsupportedVersion, nil)
	}
}

func applyPragmas(db *sql.DB, mode Mode) error {
	stmts := []string{"PRAGMA locking_mode = EXCLUSIVE", "PRAGMA temp_store = MEMORY"}
	if mode == ModeFast {
		stmts = append(stmts, "PRAGMA journal_mode = OFF", "PRAGMA synchronous = OFF")
	} else {
		stmts = append(stmts, "PRAGMA journal_mode = WAL", "PRAGMA synchronous = NORMAL")
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return errs.New("open", errs.KindIO, err)
		}
	}
	return nil
}
