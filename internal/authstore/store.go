package authstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Record holds one persisted account session.
type Record struct {
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id"`
	Token     string    `json:"token"`
	Name      string    `json:"name,omitempty"`
	Username  string    `json:"username,omitempty"`
	APIURL    string    `json:"api_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// State is the on-disk layout of the auth file.
type State struct {
	Active   string            `json:"active,omitempty"`
	Sessions map[string]Record `json:"sessions"`
}

// Store persists account sessions to a single JSON file. Every mutation is
// written through immediately.
type Store struct {
	mu    sync.Mutex
	path  string
	state State
}

// Open loads the auth file at path. A missing file yields an empty store.
func Open(path string) (*Store, error) {
	state, err := Load(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if state.Sessions == nil {
		state.Sessions = make(map[string]Record)
	}
	return &Store{path: path, state: state}, nil
}

// Load reads auth state from disk.
func Load(path string) (State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return State{}, err
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, err
	}
	if state.Sessions == nil {
		state.Sessions = make(map[string]Record)
	}
	for userID, rec := range state.Sessions {
		if rec.UserID == "" {
			rec.UserID = userID
			state.Sessions[userID] = rec
		}
	}
	return state, nil
}

// Save writes auth state to disk.
func Save(path string, state State) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Put stores or replaces the record for rec.UserID.
func (s *Store) Put(rec Record) error {
	if rec.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Sessions[rec.UserID] = rec
	return Save(s.path, s.state)
}

// Get returns the record for userID.
func (s *Store) Get(userID string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.state.Sessions[userID]
	return rec, ok
}

// RemoveSession drops the record for userID. The active marker is cleared
// when it pointed at the removed account.
func (s *Store) RemoveSession(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.Sessions[userID]; !ok {
		return nil
	}
	delete(s.state.Sessions, userID)
	if s.state.Active == userID {
		s.state.Active = ""
	}
	return Save(s.path, s.state)
}

// SetActive records which account is in focus. An empty id clears it.
func (s *Store) SetActive(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if userID != "" {
		if _, ok := s.state.Sessions[userID]; !ok {
			return fmt.Errorf("no stored session for %s", userID)
		}
	}
	s.state.Active = userID
	return Save(s.path, s.state)
}

// Active returns the stored active account id.
func (s *Store) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Active
}

// List returns stored records sorted by user id.
func (s *Store) List() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, 0, len(s.state.Sessions))
	for _, rec := range s.state.Sessions {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UserID < out[j].UserID
	})
	return out
}
