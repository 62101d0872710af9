package authstore

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSaveLoadState(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "auth.json")
	now := time.Now().UTC()

	state := State{
		Active: "u1",
		Sessions: map[string]Record{
			"u1": {UserID: "u1", SessionID: "s1", Token: "tok1", Name: "cli on Linux", CreatedAt: now},
		},
	}
	if err := Save(path, state); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Active != "u1" {
		t.Fatalf("Active = %q, want %q", loaded.Active, "u1")
	}
	rec := loaded.Sessions["u1"]
	if rec.Token != "tok1" {
		t.Fatalf("Token = %q, want %q", rec.Token, "tok1")
	}
	if !rec.CreatedAt.Equal(now) {
		t.Fatalf("CreatedAt mismatch")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestOpenMissingFile(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "auth.json"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := len(store.List()); got != 0 {
		t.Fatalf("List() len = %d, want 0", got)
	}
}

func TestRemoveSessionClearsActive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.json")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for _, id := range []string{"b", "a"} {
		if err := store.Put(Record{UserID: id, Token: "tok-" + id}); err != nil {
			t.Fatalf("Put(%s): %v", id, err)
		}
	}
	if err := store.SetActive("a"); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if err := store.SetActive("zzz"); err == nil {
		t.Fatalf("expected error for unknown account")
	}

	list := store.List()
	if len(list) != 2 || list[0].UserID != "a" || list[1].UserID != "b" {
		t.Fatalf("List() = %+v, want sorted a,b", list)
	}

	if err := store.RemoveSession("a"); err != nil {
		t.Fatalf("RemoveSession: %v", err)
	}
	if err := store.RemoveSession("missing"); err != nil {
		t.Fatalf("RemoveSession(missing): %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if reopened.Active() != "" {
		t.Fatalf("Active = %q, want empty", reopened.Active())
	}
	if _, ok := reopened.Get("a"); ok {
		t.Fatalf("record a should be removed")
	}
	if _, ok := reopened.Get("b"); !ok {
		t.Fatalf("record b should remain")
	}
}
