package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"pkt.systems/parley/internal/api"
	"pkt.systems/parley/internal/protocol"
	"pkt.systems/pslog"
)

const (
	wsReadLimit         = 1 << 20
	wsAuthTimeout       = 10 * time.Second
	defaultPingInterval = 30 * time.Second
	maxRequestBody      = 1 << 20

	// Version is reported in the server configuration.
	Version = "0.1.0"
)

// Error types returned in {"type": ...} bodies.
const (
	TypeInvalidCredentials = "InvalidCredentials"
	TypeInvalidToken       = "InvalidToken"
	TypeUnauthorized       = "Unauthorized"
	TypeNotFound           = "NotFound"
	TypeFailedValidation   = "FailedValidation"
	TypeInternalError      = "InternalError"
)

// Seeded community the dev server reports in Ready.
const (
	DefaultServerID    = "01PARLEYDEVSERVER000000000"
	DefaultServerName  = "Parley Dev"
	DefaultChannelID   = "01PARLEYGENERAL00000000000"
	DefaultChannelName = "general"
)

// HTTPServer exposes the chat REST API and event socket.
type HTTPServer struct {
	Store         *Store
	Users         *UserStore
	Authenticator *Authenticator
	Hub           *Hub
	Logger        pslog.Logger

	DataDir   string
	UsersFile string
	// BasePath is the prefix the handler is mounted under, used to build
	// the advertised event socket URL.
	BasePath string
	// PublicWS overrides the advertised event socket URL.
	PublicWS     string
	PingInterval time.Duration
}

// NewHTTPServer constructs a dev server.
func NewHTTPServer(store *Store, users *UserStore, auth *Authenticator, logger pslog.Logger, hub *Hub) *HTTPServer {
	if logger == nil {
		logger = pslog.LoggerFromEnv()
	}
	if hub == nil {
		hub = NewHub(logger)
	}
	return &HTTPServer{Store: store, Users: users, Authenticator: auth, Logger: logger, Hub: hub}
}

// Handler returns the HTTP handler for the dev server endpoints.
func (s *HTTPServer) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleConfiguration).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/auth/session/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/auth/session/logout", s.handleLogout).Methods(http.MethodPost)
	r.HandleFunc("/auth/session/all", s.handleListSessions).Methods(http.MethodGet)
	r.HandleFunc("/auth/session/{id}", s.handleRevokeSession).Methods(http.MethodDelete)
	r.HandleFunc("/users/@me", s.handleSelf).Methods(http.MethodGet)
	r.HandleFunc("/channels/{channel}/messages", s.handleSendMessage).Methods(http.MethodPost)
	r.HandleFunc("/admin/messages", s.handleQueryMessages).Methods(http.MethodPost)
	r.HandleFunc("/ws", s.handleWS).Methods(http.MethodGet)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, TypeNotFound)
	})
	return r
}

type sessionSummary struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleConfiguration(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.Configuration{
		Revolt: Version,
		WS:     s.eventSocketURL(r),
		App:    "parley",
		Build:  api.Build{Semver: Version},
	})
}

func (s *HTTPServer) eventSocketURL(r *http.Request) string {
	if s.PublicWS != "" {
		return s.PublicWS
	}
	scheme := "ws"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "wss"
	}
	return scheme + "://" + r.Host + strings.TrimRight(s.BasePath, "/") + "/ws"
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.Users == nil || s.Store == nil || s.Authenticator == nil {
		writeError(w, http.StatusInternalServerError, TypeInternalError)
		return
	}
	var req api.DataLogin
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, TypeFailedValidation)
		return
	}
	now := time.Now().UTC()
	logger := s.loggerWithContext(r.Context())

	var user User
	if req.MFATicket != "" {
		ticket, err := s.Store.GetTicket(req.MFATicket, now)
		if err != nil {
			writeError(w, http.StatusUnauthorized, TypeInvalidToken)
			return
		}
		found, ok := s.Users.GetByID(ticket.UserID)
		if !ok {
			s.Store.DeleteTicket(ticket.Token)
			writeError(w, http.StatusUnauthorized, TypeInvalidToken)
			return
		}
		if err := s.Authenticator.VerifyMFA(found, req.MFAResponse, now); err != nil {
			logger.Info("verification rejected", "user", found.Username)
			writeError(w, http.StatusUnauthorized, TypeInvalidToken)
			return
		}
		s.Store.DeleteTicket(ticket.Token)
		if req.MFAResponse != nil && req.MFAResponse.RecoveryCode != "" {
			if err := s.persistUsers(); err != nil {
				writeError(w, http.StatusInternalServerError, TypeInternalError)
				return
			}
		}
		user = found
	} else {
		found, err := s.Authenticator.CheckPassword(req.Email, req.Password)
		if err != nil {
			writeError(w, http.StatusUnauthorized, TypeInvalidCredentials)
			return
		}
		user = found
		if user.Disabled {
			writeJSON(w, http.StatusOK, api.LoginResponse{Result: api.LoginDisabled, UserID: user.ID})
			return
		}
		if user.MFAEnabled() {
			ticket, err := s.Store.CreateTicket(user.ID, now)
			if err != nil {
				writeError(w, http.StatusInternalServerError, TypeInternalError)
				return
			}
			writeJSON(w, http.StatusOK, api.LoginResponse{
				Result:         api.LoginMFA,
				Ticket:         ticket.Token,
				AllowedMethods: s.Authenticator.AllowedMethods(user),
			})
			return
		}
	}

	if user.Disabled {
		writeJSON(w, http.StatusOK, api.LoginResponse{Result: api.LoginDisabled, UserID: user.ID})
		return
	}
	name := strings.TrimSpace(req.FriendlyName)
	if name == "" {
		name = "Unknown"
	}
	session, err := s.Store.CreateSession(user.ID, name, now)
	if err != nil {
		writeError(w, http.StatusInternalServerError, TypeInternalError)
		return
	}
	if err := s.persist(); err != nil {
		writeError(w, http.StatusInternalServerError, TypeInternalError)
		return
	}
	logger.Info("login succeeded", "user", user.Username, "session", session.ID)
	writeJSON(w, http.StatusOK, api.LoginResponse{
		Result: api.LoginSuccess,
		ID:     session.ID,
		UserID: session.UserID,
		Token:  session.Token,
		Name:   session.Name,
	})
}

func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	session, _, err := s.requireSession(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, TypeUnauthorized)
		return
	}
	s.revoke(r.Context(), session)
	if err := s.persist(); err != nil {
		writeError(w, http.StatusInternalServerError, TypeInternalError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleListSessions(w http.ResponseWriter, r *http.Request) {
	session, _, err := s.requireSession(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, TypeUnauthorized)
		return
	}
	sessions := s.Store.SessionsForUser(session.UserID)
	resp := make([]sessionSummary, 0, len(sessions))
	for _, item := range sessions {
		resp = append(resp, sessionSummary{ID: item.ID, Name: item.Name})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handleRevokeSession(w http.ResponseWriter, r *http.Request) {
	session, _, err := s.requireSession(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, TypeUnauthorized)
		return
	}
	id := mux.Vars(r)["id"]
	for _, item := range s.Store.SessionsForUser(session.UserID) {
		if item.ID != id {
			continue
		}
		s.revoke(r.Context(), item)
		if err := s.persist(); err != nil {
			writeError(w, http.StatusInternalServerError, TypeInternalError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeError(w, http.StatusNotFound, TypeNotFound)
}

// RevokeUserSessions revokes every session of userID and pushes Logout to
// their sockets.
func (s *HTTPServer) RevokeUserSessions(ctx context.Context, userID string) int {
	revoked := s.Store.RevokeSessionsForUser(userID)
	for _, session := range revoked {
		s.Hub.Revoke(ctx, session.Token)
	}
	if len(revoked) > 0 {
		_ = s.persist()
	}
	return len(revoked)
}

func (s *HTTPServer) revoke(ctx context.Context, session Session) {
	s.Store.RevokeSession(session.Token)
	s.Hub.Revoke(ctx, session.Token)
}

func (s *HTTPServer) handleSelf(w http.ResponseWriter, r *http.Request) {
	_, user, err := s.requireSession(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, TypeUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, s.publicUser(user))
}

func (s *HTTPServer) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	_, user, err := s.requireSession(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, TypeUnauthorized)
		return
	}
	var req sendMessageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, TypeFailedValidation)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, TypeFailedValidation)
		return
	}
	msg, err := s.Store.AddMessage(mux.Vars(r)["channel"], user.ID, req.Content)
	if err != nil {
		writeError(w, http.StatusInternalServerError, TypeInternalError)
		return
	}
	if err := s.persist(); err != nil {
		writeError(w, http.StatusInternalServerError, TypeInternalError)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (s *HTTPServer) handleQueryMessages(w http.ResponseWriter, r *http.Request) {
	if _, _, err := s.requireSession(r); err != nil {
		writeError(w, http.StatusUnauthorized, TypeUnauthorized)
		return
	}
	var query api.MessageQuery
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&query); err != nil {
		writeError(w, http.StatusBadRequest, TypeFailedValidation)
		return
	}
	messages := s.Store.QueryMessages(query)
	seen := make(map[string]bool)
	users := make([]api.User, 0)
	for _, msg := range messages {
		if seen[msg.Author] {
			continue
		}
		seen[msg.Author] = true
		if user, ok := s.Users.GetByID(msg.Author); ok {
			users = append(users, s.publicUser(user))
		}
	}
	writeJSON(w, http.StatusOK, api.MessageQueryResponse{Messages: messages, Users: users})
}

func (s *HTTPServer) handleWS(w http.ResponseWriter, r *http.Request) {
	logger := s.loggerWithContext(r.Context()).With("role", "events")
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: false,
	})
	if err != nil {
		return
	}
	ws := newWSConn(uuid.NewString(), conn, logger)
	defer func() {
		_ = conn.CloseNow()
		s.Hub.Unregister(ws)
	}()

	ctx := r.Context()
	authCtx, cancel := context.WithTimeout(ctx, wsAuthTimeout)
	ev, err := readEvent(authCtx, conn, wsReadLimit)
	cancel()
	if err != nil {
		logger.Debug("failed to read authenticate", "err", err)
		return
	}
	if ev.Type != protocol.EventAuthenticate {
		_ = ws.Send(ctx, protocol.ErrorEvent("InvalidSession"))
		_ = ws.Close("authenticate first")
		return
	}
	session, ok := s.Store.LookupToken(ev.Token)
	var user User
	if ok {
		user, ok = s.Users.GetByID(session.UserID)
	}
	if !ok || user.Disabled {
		_ = ws.Send(ctx, protocol.ErrorEvent(api.TypeInvalidSession))
		_ = ws.Close("invalid session")
		return
	}
	ws.userID = user.ID
	ws.token = session.Token
	s.Hub.Register(ws)

	if err := ws.Send(ctx, protocol.Event{Type: protocol.EventAuthenticated}); err != nil {
		return
	}
	if err := ws.Send(ctx, s.ready(user)); err != nil {
		return
	}
	logger.Info("event socket authenticated", "user", user.Username, "session", session.ID)

	pingCtx, stop := context.WithCancel(ctx)
	defer stop()
	go s.pingLoop(pingCtx, ws)

	for {
		ev, err := readEvent(ctx, conn, wsReadLimit)
		if err != nil {
			return
		}
		switch ev.Type {
		case protocol.EventPing:
			if err := ws.Send(ctx, protocol.Pong(ev.Data)); err != nil {
				return
			}
		case protocol.EventPong:
		default:
			logger.Debug("ignoring event", "type", string(ev.Type))
		}
	}
}

func (s *HTTPServer) ready(user User) protocol.Event {
	return protocol.Event{
		Type:  protocol.EventReady,
		Users: []api.User{s.publicUser(user)},
		Servers: []protocol.Server{{
			ID:       DefaultServerID,
			Name:     DefaultServerName,
			Channels: []string{DefaultChannelID},
		}},
		Channels: []protocol.Channel{{
			ID:     DefaultChannelID,
			Type:   "TextChannel",
			Name:   DefaultChannelName,
			Server: DefaultServerID,
		}},
		Members: []protocol.Member{{Server: DefaultServerID, User: user.ID}},
	}
}

func (s *HTTPServer) pingLoop(ctx context.Context, conn *wsConn) {
	interval := s.PingInterval
	if interval <= 0 {
		interval = defaultPingInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if err := conn.Send(ctx, protocol.Ping(now.UnixMilli())); err != nil {
				conn.logger.Debug("websocket ping failed", "err", err)
				return
			}
		}
	}
}

func (s *HTTPServer) publicUser(user User) api.User {
	return api.User{
		ID:       user.ID,
		Username: user.Username,
		Online:   s.Hub.Online(user.ID),
	}
}

var errUnauthorized = errors.New("unauthorized")

func (s *HTTPServer) requireSession(r *http.Request) (Session, User, error) {
	if s.Store == nil || s.Users == nil {
		return Session{}, User{}, errUnauthorized
	}
	token := strings.TrimSpace(r.Header.Get(api.SessionTokenHeader))
	session, ok := s.Store.LookupToken(token)
	if !ok {
		return Session{}, User{}, errUnauthorized
	}
	user, ok := s.Users.GetByID(session.UserID)
	if !ok || user.Disabled {
		return Session{}, User{}, errUnauthorized
	}
	return session, user, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, kind string) {
	writeJSON(w, status, map[string]string{"type": kind})
}

func (s *HTTPServer) persist() error {
	if s.Store == nil || s.DataDir == "" {
		return nil
	}
	if err := s.Store.Save(s.DataDir); err != nil {
		s.Logger.Error("failed to persist dev server state", "err", err)
		return err
	}
	return nil
}

func (s *HTTPServer) persistUsers() error {
	if s.Users == nil || s.UsersFile == "" {
		return nil
	}
	if err := s.Users.Save(s.UsersFile); err != nil {
		s.Logger.Error("failed to persist users", "err", err)
		return err
	}
	return nil
}

func (s *HTTPServer) loggerWithContext(ctx context.Context) pslog.Logger {
	if ctx == nil {
		return s.Logger
	}
	logger := pslog.Ctx(ctx)
	if logger != nil {
		return logger
	}
	return s.Logger
}
