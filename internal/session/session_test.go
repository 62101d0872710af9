package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"pkt.systems/parley/internal/api"
	"pkt.systems/parley/internal/protocol"
)

type fakeChat struct {
	t          *testing.T
	validToken string

	mu    sync.Mutex
	conns []*websocket.Conn
}

func (f *fakeChat) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		ctx := r.Context()
		var auth protocol.Event
		if err := wsjson.Read(ctx, conn, &auth); err != nil {
			return
		}
		if auth.Type != protocol.EventAuthenticate || auth.Token != f.validToken {
			_ = wsjson.Write(ctx, conn, protocol.ErrorEvent(api.TypeInvalidSession))
			_ = conn.Close(websocket.StatusPolicyViolation, "invalid session")
			return
		}
		_ = wsjson.Write(ctx, conn, protocol.Event{Type: protocol.EventAuthenticated})
		_ = wsjson.Write(ctx, conn, protocol.Event{
			Type:  protocol.EventReady,
			Users: []api.User{{ID: "u1", Username: "alice"}},
		})
		f.mu.Lock()
		f.conns = append(f.conns, conn)
		f.mu.Unlock()
		for {
			var ev protocol.Event
			if err := wsjson.Read(ctx, conn, &ev); err != nil {
				return
			}
			if ev.Type == protocol.EventPing {
				_ = wsjson.Write(ctx, conn, protocol.Pong(ev.Data))
			}
		}
	})
	return mux
}

func (f *fakeChat) revokeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, conn := range f.conns {
		_ = wsjson.Write(context.Background(), conn, protocol.Event{Type: protocol.EventLogout})
	}
}

func (f *fakeChat) sendAll(ev protocol.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, conn := range f.conns {
		_ = wsjson.Write(context.Background(), conn, ev)
	}
}

func startFakeChat(t *testing.T) (*fakeChat, *api.Client, *api.Configuration) {
	t.Helper()
	fake := &fakeChat{t: t, validToken: "good"}
	server := httptest.NewServer(fake.handler())
	t.Cleanup(server.Close)
	client, err := api.New(api.Options{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	cfg := &api.Configuration{WS: "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"}
	return fake, client, cfg
}

func loginAction(token string, cfg *api.Configuration) Action {
	return Action{
		Type:          ActionLogin,
		Session:       api.SessionInfo{ID: "s1", UserID: "u1", Token: token},
		Configuration: cfg,
		Knowledge:     KnowledgeNew,
	}
}

func TestLoginBecomesReady(t *testing.T) {
	_, client, cfg := startFakeChat(t)
	s := New(Options{API: client})
	t.Cleanup(s.Destroy)

	if s.Client() != nil || s.Ready() {
		t.Fatalf("new session should have no client and not be ready")
	}
	if err := s.Emit(context.Background(), loginAction("good", cfg)); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if !s.Ready() {
		t.Fatalf("session should be ready after LOGIN")
	}
	if s.State() != StateOnline {
		t.Fatalf("State = %q, want %q", s.State(), StateOnline)
	}
	if s.UserID() != "u1" {
		t.Fatalf("UserID = %q, want %q", s.UserID(), "u1")
	}
	c := s.Client()
	if c == nil || c.API.Token() != "good" {
		t.Fatalf("client should carry the session token")
	}
	if user, ok := c.User("u1"); !ok || user.Username != "alice" {
		t.Fatalf("User(u1) = %+v, %v", user, ok)
	}
}

func TestLoginInvalidSessionIsUnauthorized(t *testing.T) {
	_, client, cfg := startFakeChat(t)
	s := New(Options{API: client})
	t.Cleanup(s.Destroy)

	err := s.Emit(context.Background(), loginAction("stale", cfg))
	if err == nil {
		t.Fatalf("expected error")
	}
	if got := api.MapError(err); got != api.ClassUnauthorized {
		t.Fatalf("MapError = %q, want %q", got, api.ClassUnauthorized)
	}
	if s.Ready() {
		t.Fatalf("rejected session should not be ready")
	}
	if s.State() != StateDisconnected {
		t.Fatalf("State = %q, want %q", s.State(), StateDisconnected)
	}
}

func TestLaterRevocationFiresOnAuthError(t *testing.T) {
	fake, client, cfg := startFakeChat(t)
	authErr := make(chan error, 1)
	s := New(Options{
		API: client,
		OnAuthError: func(err error) {
			authErr <- err
		},
	})
	t.Cleanup(s.Destroy)

	if err := s.Emit(context.Background(), loginAction("good", cfg)); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	fake.revokeAll()

	select {
	case err := <-authErr:
		if api.MapError(err) != api.ClassUnauthorized {
			t.Fatalf("OnAuthError class = %q", api.MapError(err))
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for OnAuthError")
	}
	if s.Ready() {
		t.Fatalf("revoked session should not be ready")
	}
}

func TestServerErrorEventReportsDisconnect(t *testing.T) {
	fake, client, cfg := startFakeChat(t)
	states := make(chan State, 8)
	authErr := make(chan error, 1)
	s := New(Options{
		API:           client,
		OnAuthError:   func(err error) { authErr <- err },
		OnStateChange: func(state State) { states <- state },
	})
	t.Cleanup(s.Destroy)

	if err := s.Emit(context.Background(), loginAction("good", cfg)); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	fake.sendAll(protocol.ErrorEvent("InternalError"))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case state := <-states:
			if state != StateDisconnected {
				continue
			}
			if s.Ready() {
				t.Fatalf("disconnected session should not be ready")
			}
			select {
			case err := <-authErr:
				t.Fatalf("OnAuthError called for non-auth error: %v", err)
			default:
			}
			return
		case <-deadline:
			t.Fatalf("timed out waiting for disconnect state")
		}
	}
}

func TestDestroyIsIdempotent(t *testing.T) {
	_, client, cfg := startFakeChat(t)
	var states []State
	var mu sync.Mutex
	s := New(Options{
		API: client,
		OnStateChange: func(state State) {
			mu.Lock()
			states = append(states, state)
			mu.Unlock()
		},
	})
	if err := s.Emit(context.Background(), loginAction("good", cfg)); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	s.Destroy()
	s.Destroy()

	if s.State() != StateDestroyed {
		t.Fatalf("State = %q, want %q", s.State(), StateDestroyed)
	}
	if err := s.Emit(context.Background(), loginAction("good", cfg)); !errors.Is(err, ErrDestroyed) {
		t.Fatalf("Emit after destroy = %v, want ErrDestroyed", err)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []State{StateConnecting, StateOnline, StateDestroyed}
	if len(states) != len(want) {
		t.Fatalf("states = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("states = %v, want %v", states, want)
		}
	}
}

func TestEmitRejectsUnknownAction(t *testing.T) {
	s := New(Options{})
	if err := s.Emit(context.Background(), Action{Type: "SYNC"}); err == nil {
		t.Fatalf("expected error for unknown action")
	}
}

func TestLoginFetchesConfigurationWhenMissing(t *testing.T) {
	fake := &fakeChat{t: t, validToken: "good"}
	mux := http.NewServeMux()
	var server *httptest.Server
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(api.Configuration{
			WS: "ws" + strings.TrimPrefix(server.URL, "http") + "/ws",
		})
	})
	mux.Handle("/ws", fake.handler())
	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := api.New(api.Options{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	s := New(Options{API: client})
	t.Cleanup(s.Destroy)
	if err := s.Emit(context.Background(), loginAction("good", nil)); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if !s.Ready() {
		t.Fatalf("session should be ready")
	}
}
