package devserver

import (
	"errors"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"

	"pkt.systems/parley/internal/api"
)

var (
	// ErrInvalidCredentials is returned when the login or password is wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken is returned when a verification answer is wrong.
	ErrInvalidToken = errors.New("invalid verification code")
)

// TOTPOpts are the parameters shared by code generation and validation.
var TOTPOpts = totp.ValidateOpts{
	Period:    30,
	Skew:      1,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// Authenticator validates login credentials and verification answers.
type Authenticator struct {
	Users *UserStore
}

// NewAuthenticator returns an Authenticator.
func NewAuthenticator(users *UserStore) *Authenticator {
	return &Authenticator{Users: users}
}

// CheckPassword validates a login (username or email) and password.
func (a *Authenticator) CheckPassword(login, password string) (User, error) {
	if a.Users == nil {
		return User{}, ErrInvalidCredentials
	}
	user, ok := a.Users.Lookup(login)
	if !ok {
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

// AllowedMethods lists the verification methods user can answer with.
func (a *Authenticator) AllowedMethods(user User) []api.MFAMethod {
	methods := []api.MFAMethod{api.MFAPassword}
	if user.TOTPSecret != "" {
		methods = append(methods, api.MFATotp)
	}
	if len(user.RecoveryCodes) > 0 {
		methods = append(methods, api.MFARecovery)
	}
	return methods
}

// VerifyMFA checks a verification answer. A matching recovery code is
// consumed.
func (a *Authenticator) VerifyMFA(user User, resp *api.MFAResponse, now time.Time) error {
	if resp == nil || a.Users == nil {
		return ErrInvalidToken
	}
	switch {
	case resp.TOTPCode != "":
		if user.TOTPSecret == "" {
			return ErrInvalidToken
		}
		valid, err := totp.ValidateCustom(resp.TOTPCode, user.TOTPSecret, now, TOTPOpts)
		if err != nil || !valid {
			return ErrInvalidToken
		}
		return nil
	case resp.RecoveryCode != "":
		if !a.Users.ConsumeRecoveryCode(user.Username, resp.RecoveryCode) {
			return ErrInvalidToken
		}
		return nil
	case resp.Password != "":
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(resp.Password)); err != nil {
			return ErrInvalidToken
		}
		return nil
	}
	return ErrInvalidToken
}
