package pipeline

import (
	"errors"
	"testing"
	"time"

	"github.com/dgallion1/xml2rst/internal/convert"
)

func TestContentHashHex_Consistency(t *testing.T) {
	data := []byte("hello world")
	h1 := ContentHashHex(data)
	h2 := ContentHashHex(data)
	if h1 != h2 {
		t.Errorf("expected identical hashes, got %q and %q", h1, h2)
	}
	// SHA-256 of "hello world" is well-known.
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if h1 != want {
		t.Errorf("expected hash %q, got %q", want, h1)
	}
}

func TestContentHashHex_EmptyInput(t *testing.T) {
	h := ContentHashHex([]byte{})
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if h != want {
		t.Errorf("expected hash %q, got %q", want, h)
	}
}

func TestNewJob(t *testing.T) {
	job := NewJob("a.xml", []byte("<document/>"), convert.Options{Format: "xml", Fold: 20})
	if len(job.ID) != 26 {
		t.Errorf("expected a 26 character ULID, got %q", job.ID)
	}
	snap := job.Snapshot()
	if snap.Status != StatusQueued || snap.Phase != "queued" {
		t.Errorf("expected queued job, got %s/%s", snap.Status, snap.Phase)
	}
	if snap.Progress.InputBytes != len("<document/>") {
		t.Errorf("expected input size recorded, got %d", snap.Progress.InputBytes)
	}
	if snap.Format != "xml" {
		t.Errorf("expected format xml, got %q", snap.Format)
	}
}

func TestNewJob_ResultKey(t *testing.T) {
	data := []byte("<document/>")
	a := NewJob("a.xml", data, convert.Options{Fold: 20})
	b := NewJob("b.xml", data, convert.Options{Fold: 20})
	c := NewJob("c.xml", data, convert.Options{Fold: 30})
	if a.key != b.key {
		t.Error("expected same key for identical input and options")
	}
	if a.key == c.key {
		t.Error("expected different key when fold differs")
	}
}

func TestJob_StateTransitions(t *testing.T) {
	job := NewJob("t.xml", []byte("x"), convert.Options{})

	before := job.UpdatedAt
	time.Sleep(time.Millisecond)
	job.SetStatus(StatusConverting, "converting")
	if job.Status != StatusConverting {
		t.Errorf("expected status %q, got %q", StatusConverting, job.Status)
	}
	if !job.UpdatedAt.After(before) {
		t.Error("expected UpdatedAt to advance after SetStatus")
	}
	if _, ok := job.Output(); ok {
		t.Error("expected no output before completion")
	}

	job.Complete("done", []byte("a\nb\n"), 2)
	out, ok := job.Output()
	if !ok || string(out) != "a\nb\n" {
		t.Errorf("expected output after completion, got %q %v", out, ok)
	}
	if job.FileData() != nil {
		t.Error("expected input released after completion")
	}
	snap := job.Snapshot()
	if snap.Progress.OutputBytes != 4 || snap.Progress.Lines != 2 {
		t.Errorf("unexpected progress %+v", snap.Progress)
	}
}

func TestJob_Fail(t *testing.T) {
	job := NewJob("t.xml", []byte("x"), convert.Options{})
	cause := errors.New("boom")
	job.Fail("converting", cause)

	if job.Status != StatusFailed {
		t.Errorf("expected status %q, got %q", StatusFailed, job.Status)
	}
	if !errors.Is(job.Err(), cause) {
		t.Errorf("expected recorded error, got %v", job.Err())
	}
	snap := job.Snapshot()
	if len(snap.Progress.Errors) != 1 || snap.Progress.Errors[0] != "boom" {
		t.Errorf("unexpected errors %v", snap.Progress.Errors)
	}
	if _, ok := job.Output(); ok {
		t.Error("expected no output for failed job")
	}
}

func TestJob_SnapshotErrorsNotNil(t *testing.T) {
	job := &Job{ID: "snap-test", UpdatedAt: time.Now()}
	snap := job.Snapshot()
	if snap.Progress.Errors == nil {
		t.Error("expected non-nil errors slice in snapshot")
	}
	if len(snap.Progress.Errors) != 0 {
		t.Errorf("expected empty errors, got %d", len(snap.Progress.Errors))
	}
}

func TestJobStore_PutGet(t *testing.T) {
	store := NewJobStore(time.Hour)
	job := &Job{ID: "store-1", UpdatedAt: time.Now()}
	store.Put(job)

	got := store.Get("store-1")
	if got == nil {
		t.Fatal("expected to get job back")
	}
	if got.ID != "store-1" {
		t.Errorf("expected ID %q, got %q", "store-1", got.ID)
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 job, got %d", store.Len())
	}
	if store.Get("nonexistent") != nil {
		t.Error("expected nil for missing job")
	}
}

func TestJobStore_FindCompleted(t *testing.T) {
	store := NewJobStore(time.Hour)
	data := []byte("<document/>")
	done := NewJob("a.xml", data, convert.Options{})
	pending := NewJob("b.xml", data, convert.Options{})
	other := NewJob("c.xml", []byte("<document><paragraph/></document>"), convert.Options{})
	store.Put(done)
	store.Put(pending)
	store.Put(other)

	if store.FindCompleted(pending) != nil {
		t.Fatal("expected no match before any job completed")
	}
	done.Complete("done", []byte("x\n"), 1)
	if got := store.FindCompleted(pending); got != done {
		t.Errorf("expected completed twin, got %v", got)
	}
	if store.FindCompleted(other) != nil {
		t.Error("expected no match for different content")
	}
}

func TestJobStore_TTLCleanup(t *testing.T) {
	store := NewJobStore(50 * time.Millisecond)

	expired := &Job{ID: "old", UpdatedAt: time.Now()}
	store.Put(expired)

	// Wait for the TTL to pass.
	time.Sleep(100 * time.Millisecond)

	fresh := &Job{ID: "new", UpdatedAt: time.Now()}
	store.Put(fresh)

	store.Cleanup()

	if store.Get("old") != nil {
		t.Error("expected expired job to be cleaned up")
	}
	if store.Get("new") == nil {
		t.Error("expected fresh job to survive cleanup")
	}
}

func TestJobStore_CleanupEmpty(t *testing.T) {
	store := NewJobStore(time.Hour)
	// Should not panic on empty store.
	store.Cleanup()
}
