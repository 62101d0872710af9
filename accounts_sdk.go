package parley

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"pkt.systems/parley/internal/api"
	"pkt.systems/parley/internal/authstore"
	"pkt.systems/parley/internal/client"
	"pkt.systems/parley/internal/device"
	"pkt.systems/parley/internal/modal"
	"pkt.systems/parley/internal/session"
	"pkt.systems/pslog"
)

// Controller is the multi-account session controller.
type Controller = client.Controller

// ModalSurface receives prompts and notifications from the controller.
type ModalSurface = modal.Surface

var (
	// ErrLoginCancelled is returned when the verification prompt is dismissed.
	ErrLoginCancelled = client.ErrCancelled
	// ErrAccountDisabled is returned when the server reports a disabled account.
	ErrAccountDisabled = client.ErrAccountDisabled
	// ErrUnknownAccount is returned for an account reference that matches
	// nothing stored.
	ErrUnknownAccount = errors.New("unknown account")
)

// AccountsOptions configures OpenAccounts.
type AccountsOptions struct {
	Config ClientConfig
	Modals ModalSurface
	Logger pslog.Logger
}

// AccountStatus describes one stored account.
type AccountStatus struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username,omitempty"`
	Session   string    `json:"session_name,omitempty"`
	Active    bool      `json:"active"`
	Online    bool      `json:"online"`
	CreatedAt time.Time `json:"created_at"`
}

// Accounts joins the session controller with the persisted account file.
// Credentials obtained by Login are written to the file, evicted accounts
// are dropped from it, and the active account follows the controller.
type Accounts struct {
	ctrl        *client.Controller
	auth        *authstore.Store
	api         *api.Client
	logger      pslog.Logger
	unsubscribe func()

	mu        sync.Mutex
	lastLogin string
}

// OpenAccounts loads the auth file and builds a controller for cfg.
func OpenAccounts(opts AccountsOptions) (*Accounts, error) {
	logger := opts.Logger
	if logger == nil {
		logger = pslog.LoggerFromEnv()
	}
	authPath := opts.Config.AuthFile
	if authPath == "" {
		authPath = DefaultAuthPath()
	}
	auth, err := authstore.Open(authPath)
	if err != nil {
		return nil, fmt.Errorf("open auth file: %w", err)
	}
	apiClient, err := NewAPIClient(opts.Config)
	if err != nil {
		return nil, err
	}

	a := &Accounts{auth: auth, api: apiClient, logger: logger.With("component", "accounts")}
	ctrl, err := client.New(client.Options{
		API:       apiClient,
		AuthState: auth,
		Modals:    opts.Modals,
		Device:    &device.Host{Override: opts.Config.DeviceName},
		OnLogin:   a.remember,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	a.ctrl = ctrl
	a.unsubscribe = ctrl.Subscribe(a.followActive)
	return a, nil
}

// Controller returns the underlying session controller.
func (a *Accounts) Controller() *Controller {
	return a.ctrl
}

// Close disconnects every session. Stored credentials are kept.
func (a *Accounts) Close() {
	a.unsubscribe()
	a.ctrl.Close()
}

func (a *Accounts) remember(entry client.Entry) {
	rec := authstore.Record{
		UserID:    entry.Session.UserID,
		SessionID: entry.Session.ID,
		Token:     entry.Session.Token,
		Name:      entry.Session.Name,
		APIURL:    a.api.BaseURL(),
		CreatedAt: time.Now().UTC(),
	}
	if entry.APIURL != "" {
		rec.APIURL = entry.APIURL
	}
	a.mu.Lock()
	a.lastLogin = rec.UserID
	a.mu.Unlock()
	if err := a.auth.Put(rec); err != nil {
		a.logger.Error("failed to store session", "user_id", rec.UserID, "err", err)
	}
}

func (a *Accounts) followActive(snap client.Snapshot) {
	if snap.Current == a.auth.Active() {
		return
	}
	if snap.Current != "" {
		if _, ok := a.auth.Get(snap.Current); !ok {
			return
		}
	}
	if err := a.auth.SetActive(snap.Current); err != nil {
		a.logger.Warn("failed to store active account", "user_id", snap.Current, "err", err)
	}
}

// Restore brings every stored account online and re-selects the stored
// active account. Accounts the server rejects are evicted by the
// controller. It returns the number of accounts that came online.
func (a *Accounts) Restore(ctx context.Context) int {
	active := a.auth.Active()
	a.ctrl.WaitConfiguration(ctx)
	for _, rec := range a.auth.List() {
		entry := client.Entry{Session: api.SessionInfo{
			ID:     rec.SessionID,
			UserID: rec.UserID,
			Token:  rec.Token,
			Name:   rec.Name,
		}}
		if rec.APIURL != "" && rec.APIURL != a.api.BaseURL() {
			entry.APIURL = rec.APIURL
		}
		a.ctrl.AddSession(ctx, entry, session.KnowledgeExisting)
	}
	if active != "" && a.ctrl.Session(active) != nil {
		a.ctrl.SwitchAccount(active)
	}
	return len(a.ctrl.ReadyClients())
}

// Login signs in with an email and password. Verification challenges go
// through the modal surface. The new account becomes active.
func (a *Accounts) Login(ctx context.Context, email, password string) (AccountStatus, error) {
	if err := a.ctrl.Login(ctx, api.DataLogin{Email: email, Password: password}); err != nil {
		return AccountStatus{}, err
	}
	a.mu.Lock()
	userID := a.lastLogin
	a.mu.Unlock()
	if userID == "" || a.ctrl.Session(userID) == nil {
		return AccountStatus{}, fmt.Errorf("session for %s was rejected by the server", email)
	}
	a.ctrl.SwitchAccount(userID)
	a.recordUsername(userID)
	return a.status(userID), nil
}

func (a *Accounts) recordUsername(userID string) {
	s := a.ctrl.Session(userID)
	if s == nil || s.Client() == nil {
		return
	}
	user, ok := s.Client().User(userID)
	if !ok {
		return
	}
	rec, ok := a.auth.Get(userID)
	if !ok || rec.Username == user.Username {
		return
	}
	rec.Username = user.Username
	if err := a.auth.Put(rec); err != nil {
		a.logger.Warn("failed to store username", "user_id", userID, "err", err)
	}
}

// Resolve maps a user id or username to a stored user id.
func (a *Accounts) Resolve(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("account is required")
	}
	if _, ok := a.auth.Get(ref); ok {
		return ref, nil
	}
	for _, rec := range a.auth.List() {
		if strings.EqualFold(rec.Username, ref) {
			return rec.UserID, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownAccount, ref)
}

// Switch makes a stored account active.
func (a *Accounts) Switch(ref string) (AccountStatus, error) {
	userID, err := a.Resolve(ref)
	if err != nil {
		return AccountStatus{}, err
	}
	a.ctrl.SwitchAccount(userID)
	if a.auth.Active() != userID {
		return AccountStatus{}, fmt.Errorf("failed to store active account %s", userID)
	}
	return a.status(userID), nil
}

// Logout revokes the account's session on the server, drops it from the
// controller and forgets the stored credential. A server that already
// revoked the session is not an error.
func (a *Accounts) Logout(ctx context.Context, ref string) error {
	userID, err := a.Resolve(ref)
	if err != nil {
		return err
	}
	// Drop the local session first so the server's Logout push is not
	// mistaken for an eviction.
	a.ctrl.Logout(userID)
	if rec, ok := a.auth.Get(userID); ok {
		apiClient := a.api
		if rec.APIURL != "" && rec.APIURL != a.api.BaseURL() {
			if other, err := a.api.WithBaseURL(rec.APIURL); err == nil {
				apiClient = other
			}
		}
		if err := apiClient.WithSession(rec.Token).Logout(ctx); err != nil {
			if class := api.MapError(err); class != api.ClassUnauthorized {
				a.logger.Warn("server logout failed", "user_id", userID, "class", class, "err", err)
			}
		}
	}
	return a.auth.RemoveSession(userID)
}

// List returns every stored account ordered by user id.
func (a *Accounts) List() []AccountStatus {
	recs := a.auth.List()
	out := make([]AccountStatus, 0, len(recs))
	for _, rec := range recs {
		out = append(out, a.status(rec.UserID))
	}
	return out
}

func (a *Accounts) status(userID string) AccountStatus {
	st := AccountStatus{UserID: userID}
	if rec, ok := a.auth.Get(userID); ok {
		st.Username = rec.Username
		st.Session = rec.Name
		st.CreatedAt = rec.CreatedAt
	}
	current := a.ctrl.Current()
	if current == "" {
		current = a.auth.Active()
	}
	st.Active = current == userID
	if s := a.ctrl.Session(userID); s != nil {
		st.Online = s.Ready()
	}
	return st
}

// Self returns the active account's user.
func (a *Accounts) Self(ctx context.Context) (api.User, error) {
	cl := a.ctrl.ReadyClient()
	if cl == nil {
		return api.User{}, fmt.Errorf("no active account is online")
	}
	return cl.API.Self(ctx)
}

// QueryMessages runs an administrative message search as the active
// account.
func (a *Accounts) QueryMessages(ctx context.Context, q api.MessageQuery) (api.MessageQueryResponse, error) {
	return a.ctrl.AvailableClient().QueryMessages(ctx, q)
}
