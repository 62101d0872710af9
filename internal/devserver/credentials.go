package devserver

import (
	"crypto/rand"
	"encoding/base32"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/pquerna/otp/totp"
)

const (
	totpIssuer        = "Parley"
	recoveryCodeCount = 10
	defaultTokenBytes = 32
)

func generatePassword() (string, error) {
	buf := make([]byte, 18)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func generateTOTP(username string) (string, string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: username,
	})
	if err != nil {
		return "", "", err
	}
	secret := strings.TrimSpace(key.Secret())
	if secret == "" {
		return "", "", fmt.Errorf("totp secret missing")
	}
	return secret, key.URL(), nil
}

// generateRecoveryCodes returns codes formatted as xxxxx-xxxxx.
func generateRecoveryCodes(n int) ([]string, error) {
	codes := make([]string, 0, n)
	for i := 0; i < n; i++ {
		value, err := randomToken(7)
		if err != nil {
			return nil, err
		}
		value = strings.ToLower(value[:10])
		codes = append(codes, value[:5]+"-"+value[5:])
	}
	return codes, nil
}

func randomToken(size int) (string, error) {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	enc := base32.StdEncoding.WithPadding(base32.NoPadding)
	return enc.EncodeToString(buf), nil
}
