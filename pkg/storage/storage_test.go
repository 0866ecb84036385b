package storage

import (
	"context"
	"reflect"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/matzehuels/edgeprint/pkg/errors"
	"github.com/matzehuels/edgeprint/pkg/retry"
)

// exerciseStore runs the shared Store contract against s.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Download(ctx, "jobs/a/missing.pdf"); !IsNotFound(err) {
		t.Errorf("Download(missing) error = %v, want NOT_FOUND", err)
	}

	for _, p := range []string{"jobs/a/source/chunk-00001.pdf", "jobs/a/source/chunk-00000.pdf", "jobs/b/final.pdf"} {
		if err := s.Upload(ctx, p, []byte(p)); err != nil {
			t.Fatalf("Upload(%s) error: %v", p, err)
		}
	}

	got, err := s.Download(ctx, "jobs/b/final.pdf")
	if err != nil || string(got) != "jobs/b/final.pdf" {
		t.Errorf("Download() = %q, %v", got, err)
	}

	// Upload replaces.
	if err := s.Upload(ctx, "jobs/b/final.pdf", []byte("v2")); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.Download(ctx, "jobs/b/final.pdf"); string(got) != "v2" {
		t.Errorf("Download() after replace = %q, want v2", got)
	}

	list, err := s.List(ctx, "jobs/a/")
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	want := []string{"jobs/a/source/chunk-00000.pdf", "jobs/a/source/chunk-00001.pdf"}
	if !reflect.DeepEqual(list, want) {
		t.Errorf("List() = %v, want %v", list, want)
	}

	if err := s.Remove(ctx, "jobs/a/"); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}
	if list, _ := s.List(ctx, "jobs/a/"); len(list) != 0 {
		t.Errorf("List() after Remove = %v, want empty", list)
	}
	if err := s.Remove(ctx, "jobs/nothing/"); err != nil {
		t.Errorf("Remove(empty prefix) error: %v", err)
	}
	if err := s.Remove(ctx, ""); !errors.Is(err, errors.ErrCodeInvalidPath) {
		t.Errorf("Remove(\"\") error = %v, want INVALID_PATH", err)
	}
	if list, _ := s.List(ctx, "jobs/b/"); len(list) != 1 {
		t.Errorf("Remove touched another job: %v", list)
	}
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	exerciseStore(t, s)
}

func TestFileStoreRejectsTraversal(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	for _, p := range []string{"../escape.pdf", "/abs.pdf", ""} {
		if err := s.Upload(ctx, p, nil); !errors.Is(err, errors.ErrCodeInvalidPath) {
			t.Errorf("Upload(%q) error = %v, want INVALID_PATH", p, err)
		}
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreFaults(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	s.FailNext(OpUpload, 1)

	err := s.Upload(ctx, "a.pdf", []byte("x"))
	if !retry.IsRetryable(err) {
		t.Errorf("injected error retryable = false, want true")
	}
	if err := s.Upload(ctx, "a.pdf", []byte("x")); err != nil {
		t.Errorf("second Upload() error: %v", err)
	}
	if got := s.Calls(OpUpload); got != 2 {
		t.Errorf("Calls(upload) = %d, want 2", got)
	}
}

func fastPolicy(attempts int) retry.Policy {
	return retry.Policy{Attempts: attempts, BaseDelay: time.Millisecond}
}

func TestRetryingRecovers(t *testing.T) {
	mem := NewMemoryStore()
	s := NewRetrying(mem, fastPolicy(3), nil)
	ctx := context.Background()

	mem.FailNext(OpUpload, 2)
	if err := s.Upload(ctx, "jobs/x/final.pdf", []byte("ok")); err != nil {
		t.Fatalf("Upload() error: %v", err)
	}
	if got := mem.Calls(OpUpload); got != 3 {
		t.Errorf("upload calls = %d, want 3", got)
	}

	mem.FailNext(OpDownload, 1)
	data, err := s.Download(ctx, "jobs/x/final.pdf")
	if err != nil || string(data) != "ok" {
		t.Errorf("Download() = %q, %v", data, err)
	}
}

func TestRetryingExhausts(t *testing.T) {
	mem := NewMemoryStore()
	s := NewRetrying(mem, fastPolicy(3), nil)

	mem.FailNext(OpDownload, 5)
	_, err := s.Download(context.Background(), "jobs/x/final.pdf")
	if !errors.Is(err, errors.ErrCodeRetriesExhausted) {
		t.Errorf("error = %v, want RETRIES_EXHAUSTED", err)
	}
	if got := mem.Calls(OpDownload); got != 3 {
		t.Errorf("download calls = %d, want 3", got)
	}
}

func TestRetryingDoesNotRetryNotFound(t *testing.T) {
	mem := NewMemoryStore()
	s := NewRetrying(mem, fastPolicy(3), nil)

	if _, err := s.Download(context.Background(), "jobs/x/missing.pdf"); !IsNotFound(err) {
		t.Errorf("error = %v, want NOT_FOUND", err)
	}
	if got := mem.Calls(OpDownload); got != 1 {
		t.Errorf("download calls = %d, want 1", got)
	}
}

func TestPaths(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{SourceChunkPath("j1", 0), "jobs/j1/source/chunk-00000.pdf"},
		{ProcessedChunkPath("j1", 42), "jobs/j1/processed/chunk-00042.pdf"},
		{FinalPath("j1"), "jobs/j1/final.pdf"},
		{ManifestPath("j1"), "jobs/j1/manifest.json"},
		{SourcePrefix("j1"), "jobs/j1/source/"},
		{EdgePath("j1", "side"), "jobs/j1/edges/side"},
		{OriginalPath("j1"), "jobs/j1/original.pdf"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("path = %q, want %q", tt.got, tt.want)
		}
	}
}

func TestPrefixFilterEscapes(t *testing.T) {
	f := prefixFilter("jobs/a.b/")
	re := f["filename"].(bson.M)["$regex"]
	if want := `^jobs/a\.b/`; re != want {
		t.Errorf("regex = %v, want %s", re, want)
	}
}
