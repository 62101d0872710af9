package devserver

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestWatchUsersFileReloadsChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	onDisk := NewUserStore()
	if _, err := SeedTestUser(onDisk); err != nil {
		t.Fatalf("SeedTestUser: %v", err)
	}
	if err := onDisk.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	live, err := LoadUserStore(path)
	if err != nil {
		t.Fatalf("LoadUserStore: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := WatchUsersFile(ctx, path, live, nil, 10*time.Millisecond); err != nil {
		t.Fatalf("WatchUsersFile: %v", err)
	}

	if _, err := CreateUser(onDisk, NewUser{Username: "alice", Password: "pw"}, time.Now().UTC()); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := onDisk.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, ok := live.Get("alice"); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("users file change was not picked up")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWatchUsersFileRequiresPath(t *testing.T) {
	if err := WatchUsersFile(t.Context(), "", NewUserStore(), nil, 0); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
