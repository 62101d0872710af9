// Package client implements the session controller: the single authority
// over which accounts are logged in, which one is active, and how login,
// verification, logout and eviction happen.
package client

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"pkt.systems/parley/internal/api"
	"pkt.systems/parley/internal/device"
	"pkt.systems/parley/internal/modal"
	"pkt.systems/parley/internal/session"
	"pkt.systems/pslog"
)

var (
	// ErrCancelled is returned by Login when the verification prompt is
	// dismissed without an answer.
	ErrCancelled = errors.New("login cancelled")
	// ErrAccountDisabled is returned by Login when the server reports the
	// account as disabled.
	ErrAccountDisabled = errors.New("account disabled")
)

// ClassDisabledAccount is the error modal class for a disabled account.
const ClassDisabledAccount = "DisabledAccount"

// Session is the part of a session the controller drives.
type Session interface {
	Emit(ctx context.Context, action session.Action) error
	Destroy()
	Ready() bool
	Client() *session.Client
	UserID() string
}

// AuthState is the persisted credential store. The controller only removes
// records, on eviction.
type AuthState interface {
	RemoveSession(userID string) error
}

// Entry is a credential to bring online.
type Entry struct {
	Session api.SessionInfo
	// APIURL overrides the anonymous client's origin when set.
	APIURL string
}

// Options wires a Controller to its collaborators.
type Options struct {
	// API is the anonymous client. Required.
	API *api.Client
	// AuthState receives RemoveSession on eviction. Optional.
	AuthState AuthState
	// Modals receives prompts and notifications. Optional.
	Modals modal.Surface
	// Device labels new login sessions. Defaults to device.Default().
	Device device.Provider
	// NewSession builds a session wired to hooks. Defaults to session.New.
	NewSession func(hooks SessionHooks) Session
	// OnLogin fires after Login obtains a credential and before the session
	// is added.
	OnLogin func(Entry)
	Logger  pslog.Logger
}

// SessionHooks carries the controller callbacks handed to each new session.
// OnAuthError receives authorization failures seen after login;
// OnStateChange fires on every connection state transition.
type SessionHooks struct {
	OnAuthError   func(error)
	OnStateChange func(session.State)
}

// Controller manages zero or more sessions keyed by user id.
type Controller struct {
	api        *api.Client
	authState  AuthState
	modals     modal.Surface
	device     device.Provider
	newSession func(hooks SessionHooks) Session
	onLogin    func(Entry)
	logger     pslog.Logger

	mu            sync.RWMutex
	sessions      map[string]Session
	current       string
	configuration *api.Configuration
	subscribers   map[int]func(Snapshot)
	nextSub       int

	cancel     context.CancelFunc
	configDone chan struct{}
}

// New constructs a Controller and starts fetching the server configuration
// in the background.
func New(opts Options) (*Controller, error) {
	if opts.API == nil {
		return nil, fmt.Errorf("anonymous api client is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = pslog.LoggerFromEnv()
	}
	logger = logger.With("component", "client")

	c := &Controller{
		api:         opts.API,
		authState:   opts.AuthState,
		modals:      opts.Modals,
		device:      opts.Device,
		onLogin:     opts.OnLogin,
		logger:      logger,
		sessions:    make(map[string]Session),
		subscribers: make(map[int]func(Snapshot)),
		configDone:  make(chan struct{}),
	}
	if c.modals == nil {
		c.modals = modal.SurfaceFunc(func(modal.Modal) {})
	}
	if c.device == nil {
		c.device = device.Default()
	}
	c.newSession = opts.NewSession
	if c.newSession == nil {
		c.newSession = func(hooks SessionHooks) Session {
			return session.New(session.Options{
				API:           opts.API,
				OnAuthError:   hooks.OnAuthError,
				OnStateChange: hooks.OnStateChange,
				Logger:        logger,
			})
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	go c.fetchConfiguration(ctx)
	return c, nil
}

func (c *Controller) fetchConfiguration(ctx context.Context) {
	defer close(c.configDone)
	cfg, err := c.api.FetchConfiguration(ctx)
	if err != nil {
		if ctx.Err() == nil {
			c.logger.Warn("fetch server configuration failed", "err", err)
		}
		return
	}
	c.mu.Lock()
	c.configuration = cfg
	c.mu.Unlock()
	c.notify()
}

// WaitConfiguration blocks until the construction-time configuration fetch
// finished, then returns its result, which may be nil.
func (c *Controller) WaitConfiguration(ctx context.Context) *api.Configuration {
	select {
	case <-c.configDone:
	case <-ctx.Done():
	}
	return c.ServerConfig()
}

// Close stops the configuration fetch and destroys every session.
func (c *Controller) Close() {
	c.cancel()
	c.mu.Lock()
	sessions := c.sessions
	c.sessions = make(map[string]Session)
	c.current = ""
	c.mu.Unlock()
	for _, s := range sessions {
		s.Destroy()
	}
	c.notify()
}

// AddSession registers a session for entry, makes it active when nothing
// else is, and brings it online. Authorization failures evict the session;
// other failures are pushed as an error modal and the session is kept.
func (c *Controller) AddSession(ctx context.Context, entry Entry, knowledge session.Knowledge) {
	userID := entry.Session.UserID
	var s Session
	s = c.newSession(SessionHooks{
		OnAuthError: func(err error) {
			c.handleSessionError(s, userID, err)
		},
		OnStateChange: func(state session.State) {
			c.logger.Debug("session state", "user_id", userID, "state", state)
			c.notify()
		},
	})

	c.mu.Lock()
	previous := c.sessions[userID]
	c.sessions[userID] = s
	if _, ok := c.sessions[c.current]; c.current == "" || !ok {
		c.current = userID
	}
	cfg := c.configuration
	c.mu.Unlock()
	if previous != nil {
		previous.Destroy()
	}
	c.notify()

	err := s.Emit(ctx, session.Action{
		Type:          session.ActionLogin,
		Session:       entry.Session,
		APIURL:        entry.APIURL,
		Configuration: cfg,
		Knowledge:     knowledge,
	})
	if err != nil {
		c.handleSessionError(s, userID, err)
		return
	}
	c.notify()
}

func (c *Controller) handleSessionError(s Session, userID string, err error) {
	c.mu.RLock()
	registered := c.sessions[userID] == s
	c.mu.RUnlock()
	if !registered {
		c.logger.Debug("session error after removal", "user_id", userID, "err", err)
		return
	}

	class := api.MapError(err)
	switch class {
	case api.ClassUnauthorized, api.ClassForbidden:
		c.evict(s, userID, class)
	default:
		c.logger.Warn("session error", "user_id", userID, "class", class, "err", err)
		c.modals.Push(modal.Modal{Type: modal.TypeError, Error: class})
		c.notify()
	}
}

func (c *Controller) evict(s Session, userID, class string) {
	c.mu.Lock()
	if c.sessions[userID] != s {
		c.mu.Unlock()
		s.Destroy()
		return
	}
	delete(c.sessions, userID)
	if c.current == userID {
		c.current = ""
	}
	c.pickNextLocked()
	c.mu.Unlock()

	c.logger.Info("session evicted", "user_id", userID, "class", class)
	if c.authState != nil {
		if err := c.authState.RemoveSession(userID); err != nil {
			c.logger.Warn("remove stored session failed", "user_id", userID, "err", err)
		}
	}
	c.modals.Push(modal.Modal{Type: modal.TypeSignedOut})
	s.Destroy()
	c.notify()
}

// Login authenticates with credentials, answering verification challenges
// through the modal surface until the server accepts or the user cancels.
func (c *Controller) Login(ctx context.Context, data api.DataLogin) error {
	label := c.device.Label()
	data.FriendlyName = label

	resp, err := c.api.Login(ctx, data)
	if err != nil {
		c.modals.Push(modal.Modal{Type: modal.TypeError, Error: api.MapError(err)})
		return fmt.Errorf("login: %w", err)
	}

	for resp.Result == api.LoginMFA {
		answer := c.promptMFA(ctx, resp.AllowedMethods)
		if answer == nil {
			return ErrCancelled
		}
		next, err := c.api.Login(ctx, api.DataLogin{
			MFAResponse:  answer,
			MFATicket:    resp.Ticket,
			FriendlyName: label,
		})
		if err != nil {
			c.logger.Warn("failed login", "err", err)
			continue
		}
		resp = next
	}

	switch resp.Result {
	case api.LoginSuccess:
	case api.LoginDisabled:
		c.modals.Push(modal.Modal{Type: modal.TypeError, Error: ClassDisabledAccount})
		return ErrAccountDisabled
	default:
		c.modals.Push(modal.Modal{Type: modal.TypeError, Error: api.ClassUnknown})
		return fmt.Errorf("login: unexpected result %q", resp.Result)
	}

	entry := Entry{Session: resp.Session()}
	if c.onLogin != nil {
		c.onLogin(entry)
	}
	c.AddSession(ctx, entry, session.KnowledgeNew)
	return nil
}

func (c *Controller) promptMFA(ctx context.Context, methods []api.MFAMethod) *api.MFAResponse {
	answer := make(chan *api.MFAResponse, 1)
	var once sync.Once
	c.modals.Push(modal.Modal{
		Type:             modal.TypeMFAFlow,
		State:            modal.MFAStateUnknown,
		AvailableMethods: methods,
		Callback: func(resp *api.MFAResponse) {
			once.Do(func() { answer <- resp })
		},
	})
	select {
	case resp := <-answer:
		return resp
	case <-ctx.Done():
		return nil
	}
}

// Logout removes and destroys the session for userID. A missing id is a
// no-op.
func (c *Controller) Logout(userID string) {
	c.mu.Lock()
	s, ok := c.sessions[userID]
	if !ok {
		c.mu.Unlock()
		return
	}
	delete(c.sessions, userID)
	if c.current == userID {
		c.current = ""
		c.pickNextLocked()
	}
	c.mu.Unlock()

	s.Destroy()
	c.notify()
}

// LogoutCurrent logs out the active session, if any.
func (c *Controller) LogoutCurrent() {
	c.mu.RLock()
	current := c.current
	c.mu.RUnlock()
	if current == "" {
		return
	}
	c.Logout(current)
}

// SwitchAccount makes userID current without checking that a session
// exists for it. Reads for a missing id behave as if nothing is active.
func (c *Controller) SwitchAccount(userID string) {
	c.mu.Lock()
	c.current = userID
	c.mu.Unlock()
	c.notify()
}

// PickNextSession keeps current when it names a session, otherwise selects
// the lowest remaining user id, or none.
func (c *Controller) PickNextSession() {
	c.mu.Lock()
	before := c.current
	c.pickNextLocked()
	changed := before != c.current
	c.mu.Unlock()
	if changed {
		c.notify()
	}
}

func (c *Controller) pickNextLocked() {
	if _, ok := c.sessions[c.current]; ok && c.current != "" {
		return
	}
	ids := c.userIDsLocked()
	if len(ids) == 0 {
		c.current = ""
		return
	}
	c.current = ids[0]
}

func (c *Controller) userIDsLocked() []string {
	ids := make([]string, 0, len(c.sessions))
	for id := range c.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Current returns the active user id, which may not name a session after
// SwitchAccount.
func (c *Controller) Current() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Session returns the session registered under userID.
func (c *Controller) Session(userID string) Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessions[userID]
}

// ActiveSession returns the current session, nil when none is active.
func (c *Controller) ActiveSession() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == "" {
		return nil
	}
	return c.sessions[c.current]
}

// ReadyClient returns the active session's protocol client once it is
// ready.
func (c *Controller) ReadyClient() *session.Client {
	s := c.ActiveSession()
	if s == nil || !s.Ready() {
		return nil
	}
	return s.Client()
}

// ReadyClients returns the protocol clients of every ready session ordered
// by user id.
func (c *Controller) ReadyClients() []*session.Client {
	c.mu.RLock()
	ids := c.userIDsLocked()
	sessions := make([]Session, 0, len(ids))
	for _, id := range ids {
		sessions = append(sessions, c.sessions[id])
	}
	c.mu.RUnlock()

	var out []*session.Client
	for _, s := range sessions {
		if !s.Ready() {
			continue
		}
		if cl := s.Client(); cl != nil {
			out = append(out, cl)
		}
	}
	return out
}

// AnonymousClient returns the unauthenticated API client.
func (c *Controller) AnonymousClient() *api.Client {
	return c.api
}

// AvailableClient returns the active session's API client, falling back to
// the anonymous client.
func (c *Controller) AvailableClient() *api.Client {
	if s := c.ActiveSession(); s != nil {
		if cl := s.Client(); cl != nil && cl.API != nil {
			return cl.API
		}
	}
	return c.api
}

// ServerConfig returns the cached server configuration, nil until fetched.
func (c *Controller) ServerConfig() *api.Configuration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.configuration
}

// IsLoggedIn reports whether a session is active.
func (c *Controller) IsLoggedIn() bool {
	return c.ActiveSession() != nil
}

// IsReady reports whether the active session completed its initial sync.
func (c *Controller) IsReady() bool {
	s := c.ActiveSession()
	return s != nil && s.Ready()
}

// LoginFunc returns Login bound to c.
func (c *Controller) LoginFunc() func(context.Context, api.DataLogin) error {
	return c.Login
}

// LogoutCurrentFunc returns LogoutCurrent bound to c.
func (c *Controller) LogoutCurrentFunc() func() {
	return c.LogoutCurrent
}
