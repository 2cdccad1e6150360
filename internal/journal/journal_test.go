package journal_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"goensight/internal/journal"
	"goensight/internal/testsupport"
)

func TestAppendAndRecent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	j := testsupport.MustOpenJournal(t, cfg)

	ctx := context.Background()
	first := journal.Entry{
		ReceivedAt: time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC),
		Raw:        "grpc://guid/partlist?enum=PARTS&uid=221",
		Tag:        "partlist",
		Enum:       "PARTS",
		UID:        221,
	}
	second := journal.Entry{
		ReceivedAt: time.Date(2025, 3, 14, 9, 27, 1, 0, time.UTC),
		Raw:        "grpc://guid/vars?enum=VARIABLES&uid=300",
		Tag:        "vars",
		Enum:       "VARIABLES",
		UID:        300,
	}
	if err := j.Append(ctx, first); err != nil {
		t.Fatalf("Append(first) error = %v", err)
	}
	if err := j.Append(ctx, second); err != nil {
		t.Fatalf("Append(second) error = %v", err)
	}

	entries, err := j.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Recent() returned %d entries, want 2", len(entries))
	}
	if entries[0].Raw != second.Raw || entries[1].Raw != first.Raw {
		t.Fatalf("entries out of order: %q then %q", entries[0].Raw, entries[1].Raw)
	}
	got := entries[1]
	if got.Tag != first.Tag || got.Enum != first.Enum || got.UID != first.UID {
		t.Fatalf("decoded fields = %q/%q/%d, want %q/%q/%d",
			got.Tag, got.Enum, got.UID, first.Tag, first.Enum, first.UID)
	}
	if !got.ReceivedAt.Equal(first.ReceivedAt) {
		t.Fatalf("ReceivedAt = %v, want %v", got.ReceivedAt, first.ReceivedAt)
	}
}

func TestRecentHonorsLimit(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	j := testsupport.MustOpenJournal(t, cfg)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		entry := journal.Entry{Raw: "grpc://guid/tick", UID: int64(i)}
		if err := j.Append(ctx, entry); err != nil {
			t.Fatalf("Append(%d) error = %v", i, err)
		}
	}
	entries, err := j.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Recent(2) returned %d entries", len(entries))
	}
	if entries[0].UID != 4 || entries[1].UID != 3 {
		t.Fatalf("Recent(2) returned uids %d, %d; want 4, 3", entries[0].UID, entries[1].UID)
	}
}

func TestAppendFillsTimestamp(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	j := testsupport.MustOpenJournal(t, cfg)

	ctx := context.Background()
	if err := j.Append(ctx, journal.Entry{Raw: "grpc://guid/tick"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	entries, err := j.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 1 || entries[0].ReceivedAt.IsZero() {
		t.Fatalf("entry timestamp not assigned: %+v", entries)
	}
}

func TestOpenRejectsSecondHolder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_ = testsupport.MustOpenJournal(t, cfg)

	if _, err := journal.Open(cfg); !errors.Is(err, journal.ErrLocked) {
		t.Fatalf("second Open() error = %v, want ErrLocked", err)
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first, err := journal.Open(cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	ctx := context.Background()
	if err := first.Append(ctx, journal.Entry{Raw: "grpc://guid/partlist", Tag: "partlist"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	second := testsupport.MustOpenJournal(t, cfg)
	count, err := second.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Fatalf("Count() = %d after reopen, want 1", count)
	}
}

func TestEntryFromURL(t *testing.T) {
	at := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

	entry := journal.EntryFromURL("grpc://guid/partlist?enum=PARTS&uid=221", at)
	if entry.Tag != "partlist" || entry.Enum != "PARTS" || entry.UID != 221 {
		t.Fatalf("decoded entry = %+v", entry)
	}
	if !entry.ReceivedAt.Equal(at) {
		t.Fatalf("ReceivedAt = %v, want %v", entry.ReceivedAt, at)
	}

	entry = journal.EntryFromURL("grpc://guid/vport?w=1024?enum=WIDTH&uid=10", at)
	if entry.Tag != "vport" || entry.Enum != "WIDTH" || entry.UID != 10 {
		t.Fatalf("macro tag entry = %+v", entry)
	}
	if entry.Raw != "grpc://guid/vport?w=1024?enum=WIDTH&uid=10" {
		t.Fatalf("raw URL rewritten: %q", entry.Raw)
	}

	entry = journal.EntryFromURL("grpc://bad host/evil", at)
	if entry.Raw != "grpc://bad host/evil" || entry.Tag != "" {
		t.Fatalf("unparsable entry = %+v", entry)
	}
}
