package modal

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/term"

	"pkt.systems/parley/internal/api"
)

// Terminal renders modals on a text terminal. Notifications are printed;
// mfa_flow modals are answered interactively on a separate goroutine so Push
// never blocks. Prompts run one at a time and share a single line reader, so
// typed-ahead input survives from one prompt to the next.
type Terminal struct {
	In  *os.File
	Out io.Writer

	mu     sync.Mutex
	reader *bufio.Reader
}

// NewTerminal returns a Terminal on stdin/stderr.
func NewTerminal() *Terminal {
	return &Terminal{In: os.Stdin, Out: os.Stderr}
}

// Push renders m.
func (t *Terminal) Push(m Modal) {
	switch m.Type {
	case TypeSignedOut:
		_, _ = fmt.Fprintln(t.Out, "You have been signed out. Run `parley login` to sign in again.")
	case TypeError:
		_, _ = fmt.Fprintf(t.Out, "Error: %s\n", m.Error)
	case TypeMFAFlow:
		if m.Callback == nil {
			return
		}
		go func() {
			m.Callback(t.promptMFA(m.AvailableMethods))
		}()
	}
}

func (t *Terminal) promptMFA(methods []api.MFAMethod) *api.MFAResponse {
	if len(methods) == 0 {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.reader == nil {
		t.reader = bufio.NewReader(t.In)
	}
	reader := t.reader
	method := methods[0]
	if len(methods) > 1 {
		_, _ = fmt.Fprintln(t.Out, "Verification required. Available methods:")
		for i, m := range methods {
			_, _ = fmt.Fprintf(t.Out, "  [%d] %s\n", i+1, MethodLabel(m))
		}
		for {
			_, _ = fmt.Fprintf(t.Out, "Select method [1-%d]: ", len(methods))
			line, err := reader.ReadString('\n')
			if err != nil {
				return nil
			}
			line = strings.TrimSpace(line)
			if line == "" {
				return nil
			}
			choice, err := strconv.Atoi(line)
			if err != nil || choice < 1 || choice > len(methods) {
				_, _ = fmt.Fprintln(t.Out, "Invalid selection")
				continue
			}
			method = methods[choice-1]
			break
		}
	}

	_, _ = fmt.Fprintf(t.Out, "%s (empty to cancel): ", MethodLabel(method))
	value, err := t.readSecret(reader)
	if err != nil || value == "" {
		return nil
	}
	return Response(method, value)
}

func (t *Terminal) readSecret(reader *bufio.Reader) (string, error) {
	if reader.Buffered() == 0 && term.IsTerminal(int(t.In.Fd())) {
		data, err := term.ReadPassword(int(t.In.Fd()))
		_, _ = fmt.Fprintln(t.Out)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(data)), nil
	}
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// MethodLabel returns a human-readable prompt for an MFA method.
func MethodLabel(m api.MFAMethod) string {
	switch m {
	case api.MFATotp:
		return "Authenticator code"
	case api.MFARecovery:
		return "Recovery code"
	case api.MFAPassword:
		return "Password"
	}
	return string(m)
}

// Response builds the MFA answer for method.
func Response(method api.MFAMethod, value string) *api.MFAResponse {
	switch method {
	case api.MFATotp:
		return &api.MFAResponse{TOTPCode: value}
	case api.MFARecovery:
		return &api.MFAResponse{RecoveryCode: value}
	case api.MFAPassword:
		return &api.MFAResponse{Password: value}
	}
	return nil
}
