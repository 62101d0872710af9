package api

// LoginResult discriminates the login endpoint's response payloads.
type LoginResult string

// Login result values.
const (
	LoginSuccess  LoginResult = "Success"
	LoginMFA      LoginResult = "MFA"
	LoginDisabled LoginResult = "Disabled"
)

// MFAMethod names a second factor the server accepts for a ticket.
type MFAMethod string

// MFA methods.
const (
	MFAPassword MFAMethod = "Password"
	MFARecovery MFAMethod = "Recovery"
	MFATotp     MFAMethod = "Totp"
)

// MFAResponse answers a verification challenge. Exactly one field is set.
type MFAResponse struct {
	Password     string `json:"password,omitempty"`
	RecoveryCode string `json:"recovery_code,omitempty"`
	TOTPCode     string `json:"totp_code,omitempty"`
}

// DataLogin is the body of POST /auth/session/login. The first submission
// carries Email and Password, a verification resubmission carries
// MFAResponse and MFATicket instead.
type DataLogin struct {
	Email        string       `json:"email,omitempty"`
	Password     string       `json:"password,omitempty"`
	MFAResponse  *MFAResponse `json:"mfa_response,omitempty"`
	MFATicket    string       `json:"mfa_ticket,omitempty"`
	FriendlyName string       `json:"friendly_name,omitempty"`
}

// LoginResponse is the union of the Success, MFA and Disabled payloads.
type LoginResponse struct {
	Result LoginResult `json:"result"`

	// Success
	ID     string `json:"_id,omitempty"`
	UserID string `json:"user_id,omitempty"`
	Token  string `json:"token,omitempty"`
	Name   string `json:"name,omitempty"`

	// MFA
	Ticket         string      `json:"ticket,omitempty"`
	AllowedMethods []MFAMethod `json:"allowed_methods,omitempty"`
}

// SessionInfo is the private session credential issued on login.
type SessionInfo struct {
	ID     string `json:"_id"`
	UserID string `json:"user_id"`
	Token  string `json:"token"`
	Name   string `json:"name,omitempty"`
}

// Session extracts the credential from a Success response.
func (r LoginResponse) Session() SessionInfo {
	return SessionInfo{ID: r.ID, UserID: r.UserID, Token: r.Token, Name: r.Name}
}

// Configuration is the server's public configuration served at GET /.
type Configuration struct {
	Revolt   string   `json:"revolt"`
	Features Features `json:"features"`
	WS       string   `json:"ws"`
	App      string   `json:"app"`
	Vapid    string   `json:"vapid"`
	Build    Build    `json:"build"`
}

// Features lists optional server features.
type Features struct {
	Captcha    Feature `json:"captcha"`
	Email      bool    `json:"email"`
	InviteOnly bool    `json:"invite_only"`
	Autumn     Feature `json:"autumn"`
	January    Feature `json:"january"`
	Voso       Feature `json:"voso"`
}

// Feature describes an optional service endpoint.
type Feature struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url,omitempty"`
	Key     string `json:"key,omitempty"`
	WS      string `json:"ws,omitempty"`
}

// Build identifies the server build.
type Build struct {
	CommitSHA string `json:"commit_sha"`
	Semver    string `json:"semver"`
}

// User is the public user object.
type User struct {
	ID          string `json:"_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	Online      bool   `json:"online,omitempty"`
}

// Message is a chat message.
type Message struct {
	ID      string `json:"_id"`
	Channel string `json:"channel"`
	Author  string `json:"author"`
	Content string `json:"content,omitempty"`
}

// MessageSort orders admin query results.
type MessageSort string

// Message sort orders.
const (
	SortRelevance MessageSort = "Relevance"
	SortLatest    MessageSort = "Latest"
	SortOldest    MessageSort = "Oldest"
)

// MessageQuery is the body of POST /admin/messages.
type MessageQuery struct {
	Nearby  string      `json:"nearby,omitempty"`
	Before  string      `json:"before,omitempty"`
	After   string      `json:"after,omitempty"`
	Sort    MessageSort `json:"sort,omitempty"`
	Limit   int         `json:"limit,omitempty"`
	Channel string      `json:"channel,omitempty"`
	Author  string      `json:"author,omitempty"`
	Query   string      `json:"query,omitempty"`
}

// MessageQueryResponse bundles messages with the users they reference.
type MessageQueryResponse struct {
	Messages []Message `json:"messages"`
	Users    []User    `json:"users"`
}
