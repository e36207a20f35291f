package session_test

import (
	"path/filepath"
	"testing"

	"github.com/cvscreener/cvchat/internal/models"
	"github.com/cvscreener/cvchat/internal/session"
)

func newTestStore(t *testing.T) session.BoltStore {
	t.Helper()
	store, err := session.NewBoltStore(filepath.Join(t.TempDir(), "session.db"))
	if err != nil {
		t.Fatalf("NewBoltStore() error = %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return store
}

func TestBoltStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)

	if _, ok, err := store.Load(); err != nil || ok {
		t.Fatalf("Load() on empty store = ok %v, err %v", ok, err)
	}

	want := models.Session{UserID: "7", UserName: "ada", ThreadID: "t1"}
	if err := store.Save(want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, ok, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !ok || got != want {
		t.Errorf("Load() = %+v (ok %v), want %+v", got, ok, want)
	}
}

func TestBoltStoreSaveReplaces(t *testing.T) {
	store := newTestStore(t)

	if err := store.Save(models.Session{UserID: "7", ThreadID: "t-old"}); err != nil {
		t.Fatal(err)
	}
	want := models.Session{UserID: "7", ThreadID: "t-new"}
	if err := store.Save(want); err != nil {
		t.Fatal(err)
	}

	got, ok, err := store.Load()
	if err != nil || !ok {
		t.Fatalf("Load() = ok %v, err %v", ok, err)
	}
	if got != want {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
}

func TestBoltStoreClear(t *testing.T) {
	store := newTestStore(t)

	if err := store.Save(models.Session{UserID: "7", ThreadID: "t1"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, ok, _ := store.Load(); ok {
		t.Error("session survived Clear()")
	}

	// Clearing an already-empty store is fine.
	if err := store.Clear(); err != nil {
		t.Errorf("second Clear() error = %v", err)
	}
}
