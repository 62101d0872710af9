package protocol

import (
	"encoding/json"
	"fmt"

	"pkt.systems/parley/internal/api"
)

// EventType identifies an event socket message.
type EventType string

// Event types exchanged over the event socket.
const (
	EventAuthenticate  EventType = "Authenticate"
	EventAuthenticated EventType = "Authenticated"
	EventReady         EventType = "Ready"
	EventPing          EventType = "Ping"
	EventPong          EventType = "Pong"
	EventError         EventType = "Error"
	EventLogout        EventType = "Logout"
)

// Event is a single JSON text frame. Fields beyond Type are populated
// according to the type.
type Event struct {
	Type EventType `json:"type"`

	// Authenticate
	Token string `json:"token,omitempty"`

	// Ping, Pong
	Data int64 `json:"data,omitempty"`

	// Error
	Error string `json:"error,omitempty"`

	// Ready
	Users    []api.User `json:"users,omitempty"`
	Servers  []Server   `json:"servers,omitempty"`
	Channels []Channel  `json:"channels,omitempty"`
	Members  []Member   `json:"members,omitempty"`
}

// Server is a community the user belongs to.
type Server struct {
	ID       string   `json:"_id"`
	Name     string   `json:"name"`
	Owner    string   `json:"owner"`
	Channels []string `json:"channels,omitempty"`
}

// Channel is a text channel or direct conversation.
type Channel struct {
	ID     string `json:"_id"`
	Type   string `json:"channel_type"`
	Name   string `json:"name,omitempty"`
	Server string `json:"server,omitempty"`
}

// Member links a user to a server.
type Member struct {
	Server   string `json:"server"`
	User     string `json:"user"`
	Nickname string `json:"nickname,omitempty"`
}

// Decode parses a frame and requires a type.
func Decode(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, err
	}
	if ev.Type == "" {
		return Event{}, fmt.Errorf("event missing type")
	}
	return ev, nil
}

// Authenticate builds the first client frame.
func Authenticate(token string) Event {
	return Event{Type: EventAuthenticate, Token: token}
}

// Ping builds a keepalive carrying data.
func Ping(data int64) Event {
	return Event{Type: EventPing, Data: data}
}

// Pong answers a Ping.
func Pong(data int64) Event {
	return Event{Type: EventPong, Data: data}
}

// ErrorEvent builds a server error frame.
func ErrorEvent(kind string) Event {
	return Event{Type: EventError, Error: kind}
}

// AsError converts Error and Logout events into an *api.Error. Other events
// return nil.
func (e Event) AsError() error {
	switch e.Type {
	case EventError:
		return &api.Error{Type: e.Error}
	case EventLogout:
		return &api.Error{Type: api.TypeInvalidSession}
	}
	return nil
}
