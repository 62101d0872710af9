package modal

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"pkt.systems/parley/internal/api"
)

func TestQueueAnswerResolvesOldestPending(t *testing.T) {
	q := NewQueue()
	q.Push(Modal{Type: TypeError, Error: "NetworkError"})

	got := make(chan *api.MFAResponse, 1)
	q.Push(Modal{
		Type:             TypeMFAFlow,
		AvailableMethods: []api.MFAMethod{api.MFATotp},
		Callback:         func(r *api.MFAResponse) { got <- r },
	})

	answered := q.Answer(&api.MFAResponse{TOTPCode: "123456"})
	if answered.Type != TypeMFAFlow {
		t.Fatalf("answered.Type = %q, want %q", answered.Type, TypeMFAFlow)
	}
	select {
	case resp := <-got:
		if resp == nil || resp.TOTPCode != "123456" {
			t.Fatalf("callback got %+v", resp)
		}
	case <-time.After(time.Second):
		t.Fatalf("callback not invoked")
	}

	types := q.Types()
	if len(types) != 2 || types[0] != TypeError || types[1] != TypeMFAFlow {
		t.Fatalf("Types() = %v", types)
	}
}

func TestQueueAnswerWaitsForPush(t *testing.T) {
	q := NewQueue()
	done := make(chan struct{})
	go func() {
		q.Answer(nil)
		close(done)
	}()

	select {
	case <-done:
		t.Fatalf("Answer returned before any modal was pushed")
	case <-time.After(50 * time.Millisecond):
	}

	var cancelled bool
	q.Push(Modal{Type: TypeMFAFlow, Callback: func(r *api.MFAResponse) { cancelled = r == nil }})
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Answer did not return after push")
	}
	if !cancelled {
		t.Fatalf("expected nil response")
	}
}

func pipeInput(t *testing.T, input string) *os.File {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	if _, err := w.WriteString(input); err != nil {
		t.Fatalf("WriteString: %v", err)
	}
	_ = w.Close()
	return r
}

func pushMFA(t *testing.T, term *Terminal, methods []api.MFAMethod) *api.MFAResponse {
	t.Helper()
	got := make(chan *api.MFAResponse, 1)
	term.Push(Modal{
		Type:             TypeMFAFlow,
		AvailableMethods: methods,
		Callback:         func(resp *api.MFAResponse) { got <- resp },
	})
	select {
	case resp := <-got:
		return resp
	case <-time.After(2 * time.Second):
		t.Fatalf("terminal prompt did not resolve")
	}
	return nil
}

func runTerminalMFA(t *testing.T, input string, methods []api.MFAMethod) (*api.MFAResponse, string) {
	t.Helper()
	var out bytes.Buffer
	term := &Terminal{In: pipeInput(t, input), Out: &out}
	resp := pushMFA(t, term, methods)
	return resp, out.String()
}

func TestTerminalPromptsForChosenMethod(t *testing.T) {
	resp, out := runTerminalMFA(t, "2\n654321\n", []api.MFAMethod{api.MFAPassword, api.MFATotp})
	if resp == nil || resp.TOTPCode != "654321" {
		t.Fatalf("resp = %+v, want totp 654321", resp)
	}
	if !strings.Contains(out, "Authenticator code") {
		t.Fatalf("expected method label in output, got %q", out)
	}
}

func TestTerminalRetryReadsTypedAheadAnswer(t *testing.T) {
	var out bytes.Buffer
	term := &Terminal{In: pipeInput(t, "000000\n123456\n"), Out: &out}
	methods := []api.MFAMethod{api.MFATotp}

	first := pushMFA(t, term, methods)
	if first == nil || first.TOTPCode != "000000" {
		t.Fatalf("first = %+v, want totp 000000", first)
	}
	second := pushMFA(t, term, methods)
	if second == nil || second.TOTPCode != "123456" {
		t.Fatalf("second = %+v, want totp 123456", second)
	}
}

func TestTerminalEmptyAnswerCancels(t *testing.T) {
	resp, _ := runTerminalMFA(t, "\n", []api.MFAMethod{api.MFARecovery})
	if resp != nil {
		t.Fatalf("resp = %+v, want nil", resp)
	}
}

func TestTerminalPrintsNotifications(t *testing.T) {
	var out bytes.Buffer
	term := &Terminal{Out: &out}
	term.Push(Modal{Type: TypeSignedOut})
	term.Push(Modal{Type: TypeError, Error: "RateLimited"})
	if !strings.Contains(out.String(), "signed out") {
		t.Fatalf("missing signed out notice: %q", out.String())
	}
	if !strings.Contains(out.String(), "Error: RateLimited") {
		t.Fatalf("missing error notice: %q", out.String())
	}
}

func TestResponseForMethod(t *testing.T) {
	if r := Response(api.MFARecovery, "abcd-efgh"); r == nil || r.RecoveryCode != "abcd-efgh" {
		t.Fatalf("Recovery response = %+v", r)
	}
	if r := Response(api.MFAPassword, "pw"); r == nil || r.Password != "pw" {
		t.Fatalf("Password response = %+v", r)
	}
	if r := Response("Sms", "x"); r != nil {
		t.Fatalf("unknown method should yield nil, got %+v", r)
	}
}
