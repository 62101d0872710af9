package devserver

import "time"

// User is a dev server account.
type User struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email,omitempty"`
	PasswordHash  string    `json:"password_hash"`
	TOTPSecret    string    `json:"totp_secret,omitempty"`
	RecoveryCodes []string  `json:"recovery_codes,omitempty"`
	Disabled      bool      `json:"disabled,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// MFAEnabled reports whether login requires a second factor.
func (u User) MFAEnabled() bool {
	return u.TOTPSecret != ""
}

// Session is an issued login session.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Token     string    `json:"token"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Ticket is a pending verification challenge. It is consumed by the first
// successful answer and expires after TicketTTL.
type Ticket struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired reports whether the ticket can no longer be answered.
func (t Ticket) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
