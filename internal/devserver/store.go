package devserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"pkt.systems/parley/internal/api"
)

const (
	storeFilename = "state.json"

	// TicketTTL bounds how long a verification challenge can be answered.
	TicketTTL = 5 * time.Minute

	defaultQueryLimit = 50
	maxQueryLimit     = 100
)

var (
	// ErrTicketNotFound is returned for an unknown or consumed ticket.
	ErrTicketNotFound = errors.New("ticket not found")
	// ErrTicketExpired is returned when a ticket outlived TicketTTL.
	ErrTicketExpired = errors.New("ticket expired")
)

// Store holds sessions, verification tickets and messages.
type Store struct {
	mu sync.RWMutex

	Sessions map[string]Session `json:"sessions"`
	Tickets  map[string]Ticket  `json:"tickets"`
	Messages []api.Message      `json:"messages"`
}

// NewStore returns an initialized store.
func NewStore() *Store {
	return &Store{
		Sessions: make(map[string]Session),
		Tickets:  make(map[string]Ticket),
	}
}

// LoadStore reads persisted state from dir if present.
func LoadStore(dir string) (*Store, error) {
	data, err := os.ReadFile(filepath.Join(dir, storeFilename))
	if err != nil {
		if os.IsNotExist(err) {
			return NewStore(), nil
		}
		return nil, err
	}
	return LoadStoreFromBytes(data)
}

// LoadStoreFromBytes unmarshals store data and ensures maps are initialized.
func LoadStoreFromBytes(data []byte) (*Store, error) {
	var s Store
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if s.Sessions == nil {
		s.Sessions = make(map[string]Session)
	}
	if s.Tickets == nil {
		s.Tickets = make(map[string]Ticket)
	}
	return &s, nil
}

// Save writes the store to dir.
func (s *Store) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	s.mu.RLock()
	data, err := json.MarshalIndent(s, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, storeFilename), data, 0o600)
}

// CreateSession issues a session token for userID.
func (s *Store) CreateSession(userID, name string, now time.Time) (Session, error) {
	if userID == "" {
		return Session{}, fmt.Errorf("user id is required")
	}
	token, err := randomToken(defaultTokenBytes)
	if err != nil {
		return Session{}, err
	}
	session := Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Token:     token,
		Name:      name,
		CreatedAt: now,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Sessions[token] = session
	return session, nil
}

// LookupToken returns the session a token belongs to.
func (s *Store) LookupToken(token string) (Session, bool) {
	if token == "" {
		return Session{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.Sessions[token]
	return session, ok
}

// RevokeSession deletes the session for token.
func (s *Store) RevokeSession(token string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.Sessions[token]
	if ok {
		delete(s.Sessions, token)
	}
	return session, ok
}

// RevokeSessionsForUser deletes every session of userID and returns them.
func (s *Store) RevokeSessionsForUser(userID string) []Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	var revoked []Session
	for token, session := range s.Sessions {
		if session.UserID == userID {
			revoked = append(revoked, session)
			delete(s.Sessions, token)
		}
	}
	return revoked
}

// SessionsForUser lists sessions of userID, oldest first.
func (s *Store) SessionsForUser(userID string) []Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sessions []Session
	for _, session := range s.Sessions {
		if session.UserID == userID {
			sessions = append(sessions, session)
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
	return sessions
}

// CreateTicket opens a verification challenge for userID.
func (s *Store) CreateTicket(userID string, now time.Time) (Ticket, error) {
	token, err := randomToken(defaultTokenBytes)
	if err != nil {
		return Ticket{}, err
	}
	ticket := Ticket{
		Token:     token,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(TicketTTL),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Tickets[token] = ticket
	return ticket, nil
}

// GetTicket returns a live ticket. Expired tickets are dropped.
func (s *Store) GetTicket(token string, now time.Time) (Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket, ok := s.Tickets[token]
	if !ok {
		return Ticket{}, ErrTicketNotFound
	}
	if ticket.IsExpired(now) {
		delete(s.Tickets, token)
		return Ticket{}, ErrTicketExpired
	}
	return ticket, nil
}

// DeleteTicket consumes a ticket.
func (s *Store) DeleteTicket(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.Tickets, token)
}

// AddMessage appends a message. Message ids are time-ordered.
func (s *Store) AddMessage(channel, author, content string) (api.Message, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return api.Message{}, err
	}
	msg := api.Message{ID: id.String(), Channel: channel, Author: author, Content: content}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Messages = append(s.Messages, msg)
	return msg, nil
}

// QueryMessages filters and orders messages for the admin query endpoint.
func (s *Store) QueryMessages(q api.MessageQuery) []api.Message {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	if limit > maxQueryLimit {
		limit = maxQueryLimit
	}
	needle := strings.ToLower(strings.TrimSpace(q.Query))

	s.mu.RLock()
	matched := make([]api.Message, 0, len(s.Messages))
	for _, msg := range s.Messages {
		if q.Channel != "" && msg.Channel != q.Channel {
			continue
		}
		if q.Author != "" && msg.Author != q.Author {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(msg.Content), needle) {
			continue
		}
		if q.Nearby == "" {
			if q.Before != "" && msg.ID >= q.Before {
				continue
			}
			if q.After != "" && msg.ID <= q.After {
				continue
			}
		}
		matched = append(matched, msg)
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	if q.Nearby != "" {
		return nearby(matched, q.Nearby, limit)
	}

	switch q.Sort {
	case api.SortOldest:
	case api.SortRelevance:
		if needle != "" {
			sort.SliceStable(matched, func(i, j int) bool {
				ci := strings.Count(strings.ToLower(matched[i].Content), needle)
				cj := strings.Count(strings.ToLower(matched[j].Content), needle)
				if ci != cj {
					return ci > cj
				}
				return matched[i].ID > matched[j].ID
			})
			break
		}
		reverse(matched)
	default:
		reverse(matched)
	}
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched
}

// nearby returns up to limit messages centred on id, oldest first.
func nearby(sorted []api.Message, id string, limit int) []api.Message {
	pivot := sort.Search(len(sorted), func(i int) bool { return sorted[i].ID >= id })
	start := pivot - limit/2
	if start < 0 {
		start = 0
	}
	end := start + limit
	if end > len(sorted) {
		end = len(sorted)
		start = end - limit
		if start < 0 {
			start = 0
		}
	}
	return append([]api.Message(nil), sorted[start:end]...)
}

func reverse(msgs []api.Message) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}
