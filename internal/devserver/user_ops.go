package devserver

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrUserExists indicates a duplicate username.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound indicates a missing user.
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameRequired indicates a missing username.
	ErrUsernameRequired = errors.New("username is required")
)

// NewUser describes an account to create. An empty Password is generated.
type NewUser struct {
	Username string
	Email    string
	Password string
	// MFA enrolls a TOTP secret and recovery codes.
	MFA bool
}

// UserCreateResult is returned when creating a user.
type UserCreateResult struct {
	User          User
	Password      string
	TOTPSecret    string
	TOTPURL       string
	RecoveryCodes []string
}

// UserTOTPResult contains a rotated TOTP secret and fresh recovery codes.
type UserTOTPResult struct {
	User          User
	TOTPSecret    string
	TOTPURL       string
	RecoveryCodes []string
}

// UserPasswordResult contains a changed password.
type UserPasswordResult struct {
	User     User
	Password string
}

// CreateUser adds a new user.
func CreateUser(store *UserStore, in NewUser, now time.Time) (UserCreateResult, error) {
	if store == nil {
		return UserCreateResult{}, errors.New("user store is nil")
	}
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return UserCreateResult{}, ErrUsernameRequired
	}
	if _, exists := store.Get(username); exists {
		return UserCreateResult{}, ErrUserExists
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	password := in.Password
	if strings.TrimSpace(password) == "" {
		generated, err := generatePassword()
		if err != nil {
			return UserCreateResult{}, err
		}
		password = generated
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return UserCreateResult{}, err
	}
	user := User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: string(hash),
		CreatedAt:    now,
	}
	result := UserCreateResult{Password: password}
	if in.MFA {
		secret, url, err := generateTOTP(username)
		if err != nil {
			return UserCreateResult{}, err
		}
		codes, err := generateRecoveryCodes(recoveryCodeCount)
		if err != nil {
			return UserCreateResult{}, err
		}
		user.TOTPSecret = secret
		user.RecoveryCodes = codes
		result.TOTPSecret = secret
		result.TOTPURL = url
		result.RecoveryCodes = codes
	}
	store.Upsert(user)
	result.User = user
	return result, nil
}

// RotateUserTOTP regenerates the TOTP secret and recovery codes for a user,
// enabling MFA if it was off.
func RotateUserTOTP(store *UserStore, username string) (UserTOTPResult, error) {
	user, err := lookupUser(store, username)
	if err != nil {
		return UserTOTPResult{}, err
	}
	secret, url, err := generateTOTP(user.Username)
	if err != nil {
		return UserTOTPResult{}, err
	}
	codes, err := generateRecoveryCodes(recoveryCodeCount)
	if err != nil {
		return UserTOTPResult{}, err
	}
	user.TOTPSecret = secret
	user.RecoveryCodes = codes
	store.Upsert(user)
	return UserTOTPResult{
		User:          user,
		TOTPSecret:    secret,
		TOTPURL:       url,
		RecoveryCodes: codes,
	}, nil
}

// ChangeUserPassword updates a user's password, generating one if empty.
func ChangeUserPassword(store *UserStore, username, password string) (UserPasswordResult, error) {
	user, err := lookupUser(store, username)
	if err != nil {
		return UserPasswordResult{}, err
	}
	if strings.TrimSpace(password) == "" {
		generated, err := generatePassword()
		if err != nil {
			return UserPasswordResult{}, err
		}
		password = generated
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return UserPasswordResult{}, err
	}
	user.PasswordHash = string(hash)
	store.Upsert(user)
	return UserPasswordResult{User: user, Password: password}, nil
}

// SetUserDisabled disables or re-enables logins for a user.
func SetUserDisabled(store *UserStore, username string, disabled bool) (User, error) {
	user, err := lookupUser(store, username)
	if err != nil {
		return User{}, err
	}
	user.Disabled = disabled
	store.Upsert(user)
	return user, nil
}

// DeleteUser removes a user by username.
func DeleteUser(store *UserStore, username string) (User, error) {
	if store == nil {
		return User{}, errors.New("user store is nil")
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return User{}, ErrUsernameRequired
	}
	user, ok := store.Delete(username)
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func lookupUser(store *UserStore, username string) (User, error) {
	if store == nil {
		return User{}, errors.New("user store is nil")
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return User{}, ErrUsernameRequired
	}
	user, ok := store.Get(username)
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}
