package accessor

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/gplg/logstore/internal/record"
)

func openMemory(t *testing.T, purpose Purpose) Accessor {
	t.Helper()
	acc, err := Open("", purpose, ModeRobust)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { acc.Close() })
	return acc
}

func TestWriteAssignsDenseMonotonicIDs(t *testing.T) {
	acc := openMemory(t, PurposeRecording)

	first, err := acc.Write([]record.Message{
		{Timestamp: time.Now(), ProcessName: "p", ApplicationName: "a", LogWriterName: "w", LogLevelName: "info", Text: "one"},
		{Timestamp: time.Now(), ProcessName: "p", ApplicationName: "a", LogWriterName: "w", LogLevelName: "info", Text: "two"},
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if first != 0 {
		t.Fatalf("expected first write to start at id 0, got %d", first)
	}
	if acc.OldestID() != 0 || acc.NewestID() != 1 {
		t.Fatalf("expected range [0,1], got [%d,%d]", acc.OldestID(), acc.NewestID())
	}
	if acc.Count() != 2 {
		t.Fatalf("expected count 2, got %d", acc.Count())
	}

	more, err := acc.Write([]record.Message{
		{Timestamp: time.Now(), ProcessName: "p", ApplicationName: "a", LogWriterName: "w", LogLevelName: "info", Text: "three"},
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if more != 2 {
		t.Fatalf("expected second write to start at id 2, got %d", more)
	}
}

func TestReadRoundTripsFields(t *testing.T) {
	acc := openMemory(t, PurposeRecording)

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("", 3600))
	_, err := acc.Write([]record.Message{{
		Timestamp:              ts,
		HighPrecisionTimestamp: 42,
		LostMessageCount:       1,
		ProcessId:              123,
		ProcessName:            "proc",
		ApplicationName:        "app",
		LogWriterName:          "writer",
		LogLevelName:           "Warning",
		Tags:                   []string{"b", "a"},
		Text:                   "hello\nworld",
	}})
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	msgs, err := acc.Read(0, 1)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	got := msgs[0]
	if !got.Timestamp.Equal(ts) {
		t.Fatalf("expected timestamp %v, got %v", ts, got.Timestamp)
	}
	if got.HighPrecisionTimestamp != 42 || got.LostMessageCount != 1 || got.ProcessId != 123 {
		t.Fatalf("scalar fields did not round-trip: %+v", got)
	}
	if got.ProcessName != "proc" || got.ApplicationName != "app" || got.LogWriterName != "writer" || got.LogLevelName != "Warning" {
		t.Fatalf("dictionary fields did not round-trip: %+v", got)
	}
	if got.Text != "hello\nworld" {
		t.Fatalf("text did not round-trip: %q", got.Text)
	}
	if len(got.Tags) != 2 {
		t.Fatalf("expected 2 tags, got %v", got.Tags)
	}
}

func TestReadOutOfRange(t *testing.T) {
	acc := openMemory(t, PurposeRecording)
	if _, err := acc.Write([]record.Message{{Timestamp: time.Now(), Text: "x"}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := acc.Read(5, 1); err == nil {
		t.Fatalf("expected an error reading outside [oldest,newest]")
	}
}

func TestPruneByCount(t *testing.T) {
	acc := openMemory(t, PurposeRecording)
	for i := 0; i < 10; i++ {
		if _, err := acc.Write([]record.Message{{Timestamp: time.Now(), Text: "x"}}); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	if err := acc.Prune(5, time.Time{}); err != nil {
		t.Fatalf("prune: %v", err)
	}
	if acc.Count() != 5 {
		t.Fatalf("expected 5 messages remaining, got %d", acc.Count())
	}
	if acc.OldestID() != 5 || acc.NewestID() != 9 {
		t.Fatalf("expected range [5,9], got [%d,%d]", acc.OldestID(), acc.NewestID())
	}
}

func TestPruneByAge(t *testing.T) {
	acc := openMemory(t, PurposeRecording)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		ts := base.Add(time.Duration(i) * time.Hour)
		if _, err := acc.Write([]record.Message{{Timestamp: ts, Text: "x"}}); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	cutoff := base.Add(2*time.Hour + 30*time.Minute)
	if err := acc.Prune(-1, cutoff); err != nil {
		t.Fatalf("prune: %v", err)
	}
	if acc.OldestID() != 3 {
		t.Fatalf("expected oldest id 3 after age-based prune, got %d", acc.OldestID())
	}
}

func TestClearMessagesOnlyPreservesDictionaries(t *testing.T) {
	acc := openMemory(t, PurposeRecording)
	if _, err := acc.Write([]record.Message{{Timestamp: time.Now(), ProcessName: "keep-me", Text: "x"}}); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := acc.Clear(true); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if acc.Count() != 0 {
		t.Fatalf("expected empty store after clear")
	}

	names, err := acc.GetNames(NameKindProcess, false)
	if err != nil {
		t.Fatalf("get-names: %v", err)
	}
	found := false
	for _, n := range names {
		if n == "keep-me" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected dictionary entry to survive a messages-only clear, got %v", names)
	}
}

func TestClearAllDropsDictionaries(t *testing.T) {
	acc := openMemory(t, PurposeRecording)
	if _, err := acc.Write([]record.Message{{Timestamp: time.Now(), ProcessName: "gone", Text: "x"}}); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := acc.Clear(false); err != nil {
		t.Fatalf("clear: %v", err)
	}
	names, err := acc.GetNames(NameKindProcess, false)
	if err != nil {
		t.Fatalf("get-names: %v", err)
	}
	if len(names) != 0 {
		t.Fatalf("expected no dictionary entries after a full clear, got %v", names)
	}
}

func TestGetNamesUsedOnly(t *testing.T) {
	acc := openMemory(t, PurposeRecording)
	if _, err := acc.Write([]record.Message{{Timestamp: time.Now(), ProcessName: "used", Text: "x"}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := acc.Prune(0, time.Time{}); err != nil {
		t.Fatalf("prune: %v", err)
	}

	all, err := acc.GetNames(NameKindProcess, false)
	if err != nil {
		t.Fatalf("get-names: %v", err)
	}
	used, err := acc.GetNames(NameKindProcess, true)
	if err != nil {
		t.Fatalf("get-names used-only: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected the dictionary entry to survive pruning, got %v", all)
	}
	if len(used) != 0 {
		t.Fatalf("expected no used names once the only message was pruned, got %v", used)
	}
}

func TestWriteDedupesTagsForAnalysisTagCount(t *testing.T) {
	acc := openMemory(t, PurposeAnalysis)
	if _, err := acc.Write([]record.Message{{
		Timestamp: time.Now(),
		Text:      "x",
		Tags:      []string{"dup", "dup", "unique"},
	}}); err != nil {
		t.Fatalf("write: %v", err)
	}

	var tagCount int
	if err := acc.DB().QueryRow("SELECT tag_count FROM messages WHERE id = 0").Scan(&tagCount); err != nil {
		t.Fatalf("query tag_count: %v", err)
	}
	if tagCount != 2 {
		t.Fatalf("expected tag_count to reflect 2 distinct tags, got %d", tagCount)
	}

	var assocCount int
	if err := acc.DB().QueryRow("SELECT COUNT(*) FROM message_tags WHERE message_id = 0").Scan(&assocCount); err != nil {
		t.Fatalf("query message_tags: %v", err)
	}
	if assocCount != tagCount {
		t.Fatalf("expected message_tags row count (%d) to match tag_count (%d)", assocCount, tagCount)
	}
}

func TestReopenAppliesRequestedWriteMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")

	acc, err := Open(path, PurposeRecording, ModeRobust)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	var journal string
	if err := acc.DB().QueryRow("PRAGMA journal_mode").Scan(&journal); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if journal == "off" {
		t.Fatalf("expected a robust-mode journal, got %q", journal)
	}
	if err := acc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	acc2, err := Open(path, PurposeRecording, ModeFast)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer acc2.Close()
	if err := acc2.DB().QueryRow("PRAGMA journal_mode").Scan(&journal); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if journal != "off" {
		t.Fatalf("expected reopening with ModeFast to apply journal_mode=off, got %q", journal)
	}

	var synchronous int
	if err := acc2.DB().QueryRow("PRAGMA synchronous").Scan(&synchronous); err != nil {
		t.Fatalf("query synchronous: %v", err)
	}
	if synchronous != 0 {
		t.Fatalf("expected ModeFast's synchronous=OFF to apply on reopen, got %d", synchronous)
	}
}

func TestAnalysisVariantRoundTrips(t *testing.T) {
	acc := openMemory(t, PurposeAnalysis)
	if _, err := acc.Write([]record.Message{{Timestamp: time.Now(), Text: "x", Tags: []string{"t1"}}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	msgs, err := acc.Read(0, 1)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Text != "x" {
		t.Fatalf("unexpected read result: %+v", msgs)
	}
}
