package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"pkt.systems/parley/internal/api"
	"pkt.systems/parley/internal/protocol"
	"pkt.systems/pslog"
)

const (
	wsReadLimit         = 4 << 20
	defaultPingInterval = 30 * time.Second
	pingWriteTimeout    = 10 * time.Second
)

// ErrDestroyed is returned by Emit once the session has been destroyed.
var ErrDestroyed = errors.New("session destroyed")

// State is the lifecycle position of a Session.
type State string

// Lifecycle states.
const (
	StateIdle         State = "Idle"
	StateConnecting   State = "Connecting"
	StateOnline       State = "Online"
	StateDisconnected State = "Disconnected"
	StateDestroyed    State = "Destroyed"
)

// ActionType names an action accepted by Emit.
type ActionType string

// ActionLogin connects the session with a credential.
const ActionLogin ActionType = "LOGIN"

// Knowledge tells downstream logic whether a credential was just issued or
// restored from storage.
type Knowledge string

// Knowledge values.
const (
	KnowledgeNew      Knowledge = "new"
	KnowledgeExisting Knowledge = "existing"
)

// Action drives a Session transition.
type Action struct {
	Type          ActionType
	Session       api.SessionInfo
	APIURL        string
	Configuration *api.Configuration
	Knowledge     Knowledge
}

// Options configures a Session.
type Options struct {
	// API is the anonymous client whose origin and transport the session
	// builds on.
	API *api.Client
	// OnAuthError fires when the server rejects the session after it came
	// online.
	OnAuthError func(error)
	// OnStateChange fires after every lifecycle transition.
	OnStateChange func(State)

	PingInterval time.Duration
	Logger       pslog.Logger
}

// Client is the per-session protocol client: an authenticated API client
// plus the initial sync delivered by the event socket.
type Client struct {
	API   *api.Client
	Ready protocol.Event
}

// User returns the account that owns the session, looked up in the Ready
// payload.
func (c *Client) User(userID string) (api.User, bool) {
	for _, user := range c.Ready.Users {
		if user.ID == userID {
			return user, true
		}
	}
	return api.User{}, false
}

// Session is one account's connection lifecycle.
type Session struct {
	opts   Options
	logger pslog.Logger

	mu     sync.RWMutex
	userID string
	state  State
	ready  bool
	client *Client
	conn   *websocket.Conn
	cancel context.CancelFunc

	destroyOnce sync.Once
}

// New constructs an idle Session.
func New(opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = pslog.LoggerFromEnv()
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = defaultPingInterval
	}
	return &Session{opts: opts, logger: logger, state: StateIdle}
}

// UserID returns the owning user id, empty until LOGIN.
func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// State returns the lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Ready reports whether the initial sync completed.
func (s *Session) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Client returns the protocol client, nil until LOGIN has connected.
func (s *Session) Client() *Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client
}

// Emit applies an action and blocks until it completes.
func (s *Session) Emit(ctx context.Context, action Action) error {
	switch action.Type {
	case ActionLogin:
		return s.login(ctx, action)
	default:
		return fmt.Errorf("unsupported session action %q", action.Type)
	}
}

func (s *Session) login(ctx context.Context, action Action) error {
	if s.opts.API == nil {
		return fmt.Errorf("session api client is required")
	}
	if action.Session.Token == "" {
		return fmt.Errorf("session token is required")
	}

	s.mu.Lock()
	switch s.state {
	case StateDestroyed:
		s.mu.Unlock()
		return ErrDestroyed
	case StateConnecting, StateOnline:
		s.mu.Unlock()
		return fmt.Errorf("session already %s", s.state)
	}
	s.userID = action.Session.UserID
	s.mu.Unlock()
	s.setState(StateConnecting)

	logger := s.logger.With("user_id", action.Session.UserID, "knowledge", string(action.Knowledge))

	base := s.opts.API
	if action.APIURL != "" {
		override, err := base.WithBaseURL(action.APIURL)
		if err != nil {
			s.setState(StateDisconnected)
			return err
		}
		base = override
	}
	authed := base.WithSession(action.Session.Token)

	cfg := action.Configuration
	if cfg == nil {
		fetched, err := authed.FetchConfiguration(ctx)
		if err != nil {
			s.setState(StateDisconnected)
			return err
		}
		cfg = fetched
	}
	if cfg.WS == "" {
		s.setState(StateDisconnected)
		return fmt.Errorf("server configuration has no event socket url")
	}

	conn, _, err := websocket.Dial(ctx, cfg.WS, &websocket.DialOptions{HTTPClient: authed.HTTPClient()})
	if err != nil {
		s.setState(StateDisconnected)
		return err
	}
	conn.SetReadLimit(wsReadLimit)

	ready, err := handshake(ctx, conn, action.Session.Token)
	if err != nil {
		_ = conn.CloseNow()
		s.setState(StateDisconnected)
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	if s.state == StateDestroyed {
		s.mu.Unlock()
		cancel()
		_ = conn.CloseNow()
		return ErrDestroyed
	}
	s.conn = conn
	s.cancel = cancel
	s.client = &Client{API: authed, Ready: ready}
	s.ready = true
	s.mu.Unlock()
	s.setState(StateOnline)
	logger.Info("session online", "servers", len(ready.Servers), "channels", len(ready.Channels))

	go s.pingLoop(runCtx, conn)
	go s.readLoop(runCtx, conn)
	return nil
}

// handshake authenticates and waits for the Ready sync.
func handshake(ctx context.Context, conn *websocket.Conn, token string) (protocol.Event, error) {
	if err := wsjson.Write(ctx, conn, protocol.Authenticate(token)); err != nil {
		return protocol.Event{}, err
	}
	for {
		ev, err := readEvent(ctx, conn)
		if err != nil {
			return protocol.Event{}, err
		}
		if evErr := ev.AsError(); evErr != nil {
			return protocol.Event{}, evErr
		}
		switch ev.Type {
		case protocol.EventReady:
			return ev, nil
		case protocol.EventPing:
			if err := wsjson.Write(ctx, conn, protocol.Pong(ev.Data)); err != nil {
				return protocol.Event{}, err
			}
		}
	}
}

func (s *Session) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		ev, err := readEvent(ctx, conn)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Debug("event socket closed", "user_id", s.UserID(), "err", err)
			s.disconnect()
			return
		}
		if evErr := ev.AsError(); evErr != nil {
			s.logger.Warn("event socket error", "user_id", s.UserID(), "err", evErr)
			s.disconnect()
			if api.IsAuthError(evErr) && s.opts.OnAuthError != nil {
				s.opts.OnAuthError(evErr)
			}
			return
		}
		if ev.Type == protocol.EventPing {
			if err := wsjson.Write(ctx, conn, protocol.Pong(ev.Data)); err != nil {
				s.logger.Debug("pong failed", "err", err)
			}
		}
	}
}

func (s *Session) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(s.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			writeCtx, cancel := context.WithTimeout(ctx, pingWriteTimeout)
			if err := wsjson.Write(writeCtx, conn, protocol.Ping(now.UnixMilli())); err != nil {
				s.logger.Debug("event socket ping failed", "err", err)
			}
			cancel()
		}
	}
}

func (s *Session) disconnect() {
	s.mu.Lock()
	if s.state == StateDestroyed {
		s.mu.Unlock()
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
	conn := s.conn
	s.conn = nil
	s.ready = false
	s.mu.Unlock()
	if conn != nil {
		_ = conn.CloseNow()
	}
	s.setState(StateDisconnected)
}

// Destroy releases the event socket. It is safe to call more than once and
// from OnAuthError.
func (s *Session) Destroy() {
	s.destroyOnce.Do(func() {
		s.mu.Lock()
		if s.cancel != nil {
			s.cancel()
		}
		conn := s.conn
		s.conn = nil
		s.ready = false
		s.state = StateDestroyed
		s.mu.Unlock()
		if conn != nil {
			_ = conn.Close(websocket.StatusNormalClosure, "session destroyed")
		}
		if s.opts.OnStateChange != nil {
			s.opts.OnStateChange(StateDestroyed)
		}
	})
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	if s.state == StateDestroyed {
		s.mu.Unlock()
		return
	}
	s.state = state
	s.mu.Unlock()
	if s.opts.OnStateChange != nil {
		s.opts.OnStateChange(state)
	}
}

func readEvent(ctx context.Context, conn *websocket.Conn) (protocol.Event, error) {
	msgType, data, err := conn.Read(ctx)
	if err != nil {
		return protocol.Event{}, err
	}
	if msgType != websocket.MessageText {
		return protocol.Event{}, fmt.Errorf("expected text websocket frame")
	}
	return protocol.Decode(data)
}
