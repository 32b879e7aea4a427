package document

import (
	"testing"
	"time"
)

func newTestSet(t *testing.T) *Set {
	t.Helper()
	s, err := New("file::memory:?cache=shared", 16)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewDocumentIsEmptyAndWarm(t *testing.T) {
	s := newTestSet(t)
	h, err := s.NewDocument("utf-8", "lf")
	if err != nil {
		t.Fatalf("NewDocument: %v", err)
	}
	if h.Text() != "" {
		t.Fatalf("Text() = %q, want empty", h.Text())
	}
	if h.Newline() != LF {
		t.Fatalf("Newline() = %v, want LF", h.Newline())
	}
}

func TestSaveThenOpenByIDRoundtripsContent(t *testing.T) {
	s := newTestSet(t)
	h, err := s.Open("hello\nworld", "/tmp/doc.txt", "utf-8", "lf")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Save(h); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := s.CloseDocument(h.ID()); err != nil {
		t.Fatalf("CloseDocument: %v", err)
	}

	reopened, err := s.OpenByID(h.ID())
	if err != nil {
		t.Fatalf("OpenByID: %v", err)
	}
	if reopened.Text() != "hello\nworld" {
		t.Fatalf("Text() after reopen = %q, want %q", reopened.Text(), "hello\nworld")
	}
	if reopened.Path() != "/tmp/doc.txt" {
		t.Fatalf("Path() after reopen = %q, want %q", reopened.Path(), "/tmp/doc.txt")
	}
}

func TestSaveIsNoOpWhenContentUnchanged(t *testing.T) {
	s := newTestSet(t)
	h, err := s.Open("same", "/tmp/same.txt", "utf-8", "lf")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Save(h); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	before, err := s.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if err := s.Save(h); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	after, err := s.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if before != after {
		t.Fatalf("Count changed on a no-op save: %d -> %d", before, after)
	}
}

func TestSweepEvictsOnlyStaleDocuments(t *testing.T) {
	s := newTestSet(t)
	h, err := s.NewDocument("utf-8", "lf")
	if err != nil {
		t.Fatalf("NewDocument: %v", err)
	}

	s.mu.Lock()
	s.lastAccessed[h.ID()] = time.Now().Add(-time.Hour)
	s.mu.Unlock()

	s.Sweep(time.Minute)

	if _, ok := s.cache.Get(h.ID()); ok {
		t.Fatalf("expected document %d to be evicted by Sweep", h.ID())
	}
}

func TestOpenByIDMissingDocumentFails(t *testing.T) {
	s := newTestSet(t)
	if _, err := s.OpenByID(99999); err == nil {
		t.Fatalf("expected an error for a nonexistent document id")
	}
}
