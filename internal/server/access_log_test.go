package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pkt.systems/pslog"
)

func TestAccessLogFields(t *testing.T) {
	var buf bytes.Buffer
	logger := pslog.NewWithOptions(&buf, pslog.Options{
		Mode:             pslog.ModeStructured,
		DisableTimestamp: true,
		NoColor:          true,
	})
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	req := httptest.NewRequest(http.MethodGet, "/users/@me", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	req.Header.Set(SessionTokenHeader, "secret-token")
	AccessLog(logger, handler).ServeHTTP(httptest.NewRecorder(), req)

	logs := buf.String()
	for _, want := range []string{`"status":401`, `"ip":"203.0.113.9"`, `"session":true`} {
		if !strings.Contains(logs, want) {
			t.Fatalf("expected %s in log, got %s", want, logs)
		}
	}
	if strings.Contains(logs, "secret-token") {
		t.Fatalf("session token leaked into log: %s", logs)
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	srv := New(Config{ListenAddr: "127.0.0.1:0"}, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	resp, err := http.Get("http://" + srv.Addr().String() + "/")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Serve did not return after cancel")
	}
}
