package logstore

// Purpose selects which schema variant a new store is created with.
// Ignored when opening an existing file — the file's stored schema
// version wins.
type Purpose int

const (
	// PurposeRecording selects the append-optimised schema (version 1).
	PurposeRecording Purpose = iota
	// PurposeAnalysis selects the filter/scan-optimised schema (version 2).
	PurposeAnalysis
)

func (p Purpose) String() string {
	if p == PurposeAnalysis {
		return "analysis"
	}
	return "recording"
}

// WriteMode selects the durability pragma set applied on every open.
type WriteMode int

const (
	// ModeRobust is synchronous, journalled, crash-safe.
	ModeRobust WriteMode = iota
	// ModeFast disables synchronous writes and the journal; crash
	// behaviour is undefined.
	ModeFast
)

func (m WriteMode) String() string {
	if m == ModeFast {
		return "fast"
	}
	return "robust"
}

// NameKind selects which dictionary table Store.Names queries.
type NameKind int

const (
	NameKindProcess NameKind = iota
	NameKindApplication
	NameKindWriter
	NameKindLevel
	NameKindTag
)

// Options configures a Store at Open time. Open replaces any
// non-positive MaxCachePageCount, PageCapacity or CopySliceSize with
// its default, so the zero value behaves like DefaultOptions.
type Options struct {
	Purpose           Purpose
	WriteMode         WriteMode
	MaxCachePageCount int
	PageCapacity      int
	CopySliceSize     int
}

// DefaultOptions returns the defaults named in the store's contract:
// 20 cached pages, 100 messages per page, a 1,000-message copy slice.
func DefaultOptions() Options {
	return Options{
		Purpose:           PurposeRecording,
		WriteMode:         ModeRobust,
		MaxCachePageCount: 20,
		PageCapacity:      100,
		CopySliceSize:     1000,
	}
}

func (o Options) withDefaults() Options {
	if o.MaxCachePageCount <= 0 {
		o.MaxCachePageCount = 20
	}
	if o.PageCapacity <= 0 {
		o.PageCapacity = 100
	}
	if o.CopySliceSize <= 0 {
		o.CopySliceSize = 1000
	}
	return o
}
