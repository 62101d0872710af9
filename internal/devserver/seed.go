package devserver

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Default test credentials for local development.
const (
	DefaultTestUsername   = "test"
	DefaultTestEmail      = "test@parley.local"
	DefaultTestPassword   = "test"
	DefaultTestTOTPSecret = "JBSWY3DPEHPK3PXP"
	DefaultTestUserID     = "01TESTUSER0000000000000000"
)

// DefaultTestRecoveryCodes are the seeded user's recovery codes.
var DefaultTestRecoveryCodes = []string{"aaaaa-bbbbb", "ccccc-ddddd"}

// SeedTestUser ensures the test user exists in the store.
func SeedTestUser(store *UserStore) (User, error) {
	if user, ok := store.Get(DefaultTestUsername); ok {
		return user, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultTestPassword), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	user := User{
		ID:            DefaultTestUserID,
		Username:      DefaultTestUsername,
		Email:         DefaultTestEmail,
		PasswordHash:  string(hash),
		TOTPSecret:    DefaultTestTOTPSecret,
		RecoveryCodes: append([]string(nil), DefaultTestRecoveryCodes...),
		CreatedAt:     time.Now().UTC(),
	}
	store.Upsert(user)
	return user, nil
}

// SeedMessages adds a few messages to the default channel when the store
// has none.
func SeedMessages(store *Store, authorID string) error {
	store.mu.RLock()
	empty := len(store.Messages) == 0
	store.mu.RUnlock()
	if !empty {
		return nil
	}
	for _, content := range []string{
		"Welcome to the parley development server.",
		"Use `parley messages --query welcome` to search messages.",
		"Sessions revoked on the server sign you out of every client.",
	} {
		if _, err := store.AddMessage(DefaultChannelID, authorID, content); err != nil {
			return err
		}
	}
	return nil
}
