package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/park285/chess-narrator/internal/domain"
)

// users are prefixed so runs against a shared database do not see each other
func exerciseRepository(t *testing.T, repo Repository, prefix string) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		rec := &domain.Recording{
			UserID:    prefix + "u1",
			PGN:       "1. e4 e5",
			AudioURL:  "http://x/audio/" + string(rune('a'+i)) + ".wav",
			Language:  "English",
			Narration: "A B",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.SaveRecording(ctx, rec); err != nil {
			t.Fatalf("SaveRecording: %v", err)
		}
		if rec.ID == "" {
			t.Fatalf("id not assigned")
		}
	}
	if err := repo.SaveRecording(ctx, &domain.Recording{UserID: prefix + "u2", PGN: "1. d4", AudioURL: "http://x/audio/z.wav"}); err != nil {
		t.Fatalf("SaveRecording u2: %v", err)
	}

	list, err := repo.ListRecordings(ctx, prefix+"u1", 0)
	if err != nil {
		t.Fatalf("ListRecordings: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 recordings, got %d", len(list))
	}
	if !strings.HasSuffix(list[0].AudioURL, "c.wav") || !strings.HasSuffix(list[2].AudioURL, "a.wav") {
		t.Fatalf("recordings not newest first: %s .. %s", list[0].AudioURL, list[2].AudioURL)
	}
	if !list[0].CreatedAt.Equal(base.Add(2 * time.Minute)) {
		t.Fatalf("created_at not preserved: %v", list[0].CreatedAt)
	}

	limited, _ := repo.ListRecordings(ctx, prefix+"u1", 2)
	if len(limited) != 2 {
		t.Fatalf("limit ignored: %d", len(limited))
	}
	empty, err := repo.ListRecordings(ctx, prefix+"nobody", 10)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty list, got %v %v", empty, err)
	}

	got, err := repo.GetRecording(ctx, list[1].ID)
	if err != nil {
		t.Fatalf("GetRecording: %v", err)
	}
	if got.UserID != prefix+"u1" || got.Narration != "A B" {
		t.Fatalf("unexpected recording %+v", got)
	}
	if _, err := repo.GetRecording(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.SaveRecording(ctx, &domain.Recording{}); err == nil {
		t.Fatalf("expected user_id validation error")
	}
}

func TestMemoryRepository(t *testing.T) {
	repo, err := Open(context.Background(), "", nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer repo.Close()
	exerciseRepository(t, repo, "")
}

func TestSQLiteRepository(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db", "narrator.db")
	repo, err := Open(context.Background(), "sqlite://"+path, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer repo.Close()
	exerciseRepository(t, repo, "")
}

func TestOpenRejectsUnknownScheme(t *testing.T) {
	if _, err := Open(context.Background(), "mysql://localhost/x", nil); err == nil {
		t.Fatalf("expected unsupported scheme error")
	}
}

func TestBlobStorePut(t *testing.T) {
	dir := t.TempDir()
	store, err := NewBlobStore(filepath.Join(dir, "public"), "http://localhost:8000/")
	if err != nil {
		t.Fatalf("NewBlobStore: %v", err)
	}

	src := filepath.Join(dir, "tmp.wav")
	if err := os.WriteFile(src, []byte("RIFF"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	u, err := store.Put("game one.wav", src)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if u != "http://localhost:8000/audio/game%20one.wav" {
		t.Fatalf("url = %q", u)
	}
	if _, err := os.Stat(filepath.Join(store.Dir(), "game one.wav")); err != nil {
		t.Fatalf("blob missing: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatalf("source should be moved")
	}

	// already in place
	if _, err := store.Put("game one.wav", filepath.Join(store.Dir(), "game one.wav")); err != nil {
		t.Fatalf("Put in place: %v", err)
	}
	if _, err := store.Put("x.wav", filepath.Join(dir, "absent.wav")); err == nil {
		t.Fatalf("expected error for missing source")
	}
}
