package logstore

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFreshStoreAppendReadBack(t *testing.T) {
	s, err := Open("", DefaultOptions())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	if err := s.AppendMany([]LogMessage{
		{LogLevelName: "Info", Text: "hello"},
		{LogLevelName: "Info", Text: "world"},
	}); err != nil {
		t.Fatalf("append-many: %v", err)
	}

	if s.OldestID() != 0 || s.NewestID() != 1 || s.Count() != 2 {
		t.Fatalf("expected [0,1]/2, got [%d,%d]/%d", s.OldestID(), s.NewestID(), s.Count())
	}

	msgs, err := s.Read(0, 2)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Text != "hello" || msgs[1].Text != "world" {
		t.Fatalf("unexpected read result: %+v", msgs)
	}
}

func TestSchemaMismatchOnOpenKeepsStoredPurpose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")

	opts := DefaultOptions()
	opts.Purpose = PurposeRecording
	s, err := Open(path, opts)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	opts.Purpose = PurposeAnalysis
	s2, err := Open(path, opts)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	if err := s2.Append(LogMessage{Text: "x"}); err != nil {
		t.Fatalf("append after reopen: %v", err)
	}
	if s2.Count() != 1 {
		t.Fatalf("expected the recording-variant store to still function, got count %d", s2.Count())
	}
}

func TestPruneByCountScenario(t *testing.T) {
	s, err := Open("", DefaultOptions())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	msgs := make([]LogMessage, 1000)
	for i := range msgs {
		msgs[i] = LogMessage{Text: "m"}
	}
	if err := s.AppendMany(msgs); err != nil {
		t.Fatalf("append-many: %v", err)
	}

	if err := s.Prune(100, time.Time{}); err != nil {
		t.Fatalf("prune: %v", err)
	}
	if s.Count() != 100 || s.OldestID() != 900 || s.NewestID() != 999 {
		t.Fatalf("expected count=100 oldest=900 newest=999, got count=%d oldest=%d newest=%d",
			s.Count(), s.OldestID(), s.NewestID())
	}
}

func TestPruneByAgeScenario(t *testing.T) {
	s, err := Open("", DefaultOptions())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	msgs := make([]LogMessage, 10)
	for i := range msgs {
		msgs[i] = LogMessage{Timestamp: base.Add(time.Duration(i) * time.Second), Text: "m"}
	}
	if err := s.AppendMany(msgs); err != nil {
		t.Fatalf("append-many: %v", err)
	}

	if err := s.Prune(-1, base.Add(5*time.Second)); err != nil {
		t.Fatalf("prune: %v", err)
	}

	remaining, err := s.Read(s.OldestID(), int(s.Count()))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	for _, m := range remaining {
		if m.Timestamp.Before(base.Add(5 * time.Second)) {
			t.Fatalf("expected every remaining message to be at or after the cutoff, got %v", m.Timestamp)
		}
	}
}

func TestCacheCoherenceUnderMutation(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxCachePageCount = 2
	opts.PageCapacity = 10
	s, err := Open("", opts)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	msgs := make([]LogMessage, 100)
	for i := range msgs {
		msgs[i] = LogMessage{Text: "m" + string(rune('a'+i%26))}
	}
	if err := s.AppendMany(msgs); err != nil {
		t.Fatalf("append-many: %v", err)
	}

	rng := rand.New(rand.NewSource(1))
	coll := s.Collection()
	for i := 0; i < 1000; i++ {
		idx := int64(rng.Intn(100))
		got, err := coll.GetAt(idx)
		if err != nil {
			t.Fatalf("get(%d): %v", idx, err)
		}
		if got.Id != idx || got.Text != msgs[idx].Text {
			t.Fatalf("get(%d) returned wrong message: %+v", idx, got)
		}
	}

	if err := s.Clear(true); err != nil {
		t.Fatalf("clear: %v", err)
	}

	more := make([]LogMessage, 10)
	for i := range more {
		more[i] = LogMessage{Text: "new"}
	}
	if err := s.AppendMany(more); err != nil {
		t.Fatalf("append-many after clear: %v", err)
	}
	got, err := coll.GetAt(0)
	if err != nil {
		t.Fatalf("get(0) after clear: %v", err)
	}
	if got.Id != 0 || got.Text != "new" {
		t.Fatalf("expected id 0 starting fresh after clear, got %+v", got)
	}
}

func TestAutoDeleteTemporary(t *testing.T) {
	dir := t.TempDir()

	s1, err := OpenTemp(dir, DefaultOptions())
	if err != nil {
		t.Fatalf("open-temp: %v", err)
	}
	path1 := s1.path
	if err := s1.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := os.Stat(path1); err == nil {
		t.Fatalf("expected %s to be removed after a disposed temporary store's Close", path1)
	}

	s2, err := OpenTemp(dir, DefaultOptions())
	if err != nil {
		t.Fatalf("open-temp (crash-simulated predecessor): %v", err)
	}
	path2 := s2.path
	// Simulate a crash: skip Close, leaving the marked file behind.

	s3, err := OpenTemp(dir, DefaultOptions())
	if err != nil {
		t.Fatalf("open-temp (second): %v", err)
	}
	defer s3.Close()

	if _, err := os.Stat(path2); err == nil {
		t.Fatalf("expected the crashed predecessor's file %s to be cleaned up on next OpenTemp", path2)
	}
}
