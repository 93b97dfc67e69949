package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *recorder) record(path string) {
	r.mu.Lock()
	r.paths = append(r.paths, path)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func (r *recorder) waitFor(t *testing.T, want int) []string {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		got := r.snapshot()
		if len(got) >= want {
			return got
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d ingests, got %v", want, r.snapshot())
	return nil
}

func TestWatcher_IngestsExistingAndNewFiles(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "existing.pdf")
	if err := os.WriteFile(existing, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	rec := &recorder{}
	w := NewWatcher([]string{dir}, []string{".pdf", ".docx"}, rec.record,
		WithDebounce(30*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	got := rec.waitFor(t, 1)
	if filepath.Base(got[0]) != "existing.pdf" {
		t.Errorf("initial scan got %v", got)
	}

	created := filepath.Join(dir, "dropped.docx")
	if err := os.WriteFile(created, []byte("y"), 0644); err != nil {
		t.Fatal(err)
	}
	got = rec.waitFor(t, 2)

	found := false
	for _, p := range got {
		if filepath.Base(p) == "dropped.docx" {
			found = true
		}
	}
	if !found {
		t.Errorf("dropped file not ingested: %v", got)
	}
}

func TestWatcher_ExtensionFilter(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	w := NewWatcher([]string{dir}, []string{".pdf"}, rec.record,
		WithDebounce(20*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "report.pdf"), []byte("y"), 0644); err != nil {
		t.Fatal(err)
	}

	got := rec.waitFor(t, 1)
	for _, p := range got {
		if filepath.Ext(p) != ".pdf" {
			t.Errorf("filtered extension leaked through: %s", p)
		}
	}
}

func TestWatcher_DebounceCollapsesWrites(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	w := NewWatcher([]string{dir}, nil, rec.record, WithDebounce(100*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	path := filepath.Join(dir, "growing.pdf")
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte("chunk chunk chunk"), 0644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	got := rec.waitFor(t, 1)
	time.Sleep(200 * time.Millisecond)
	got = rec.snapshot()
	if len(got) != 1 {
		t.Errorf("expected one debounced ingest, got %d: %v", len(got), got)
	}
}

func TestWatcher_StartTwiceIsNoop(t *testing.T) {
	w := NewWatcher([]string{t.TempDir()}, nil, func(string) {})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	if err := w.Start(ctx); err != nil {
		t.Errorf("second Start should be a no-op, got %v", err)
	}
}
