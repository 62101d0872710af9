package parley

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"pkt.systems/parley/internal/api"
	"pkt.systems/parley/internal/devserver"
	"pkt.systems/parley/internal/modal"
)

func TestServeEndToEnd(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Server.Listen = "127.0.0.1:0"
	cfg.Server.DataDir = filepath.Join(dir, "data")
	cfg.Server.UsersFile = filepath.Join(dir, "users.json")
	cfg.Server.TLS.Mode = "off"

	ctx, cancel := context.WithCancel(context.Background())
	addrCh := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, ServeOptions{
			Config:       cfg,
			SeedTestUser: true,
			OnListen:     func(addr string) { addrCh <- addr },
			Logger:       quietLogger(),
		})
	}()

	var addr string
	select {
	case addr = <-addrCh:
	case err := <-done:
		t.Fatalf("Serve exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not start")
	}
	endpoint := "http://" + addr + DefaultBasePath

	resp, err := http.Get(endpoint + "/")
	if err != nil {
		t.Fatalf("GET configuration: %v", err)
	}
	var conf api.Configuration
	err = json.NewDecoder(resp.Body).Decode(&conf)
	_ = resp.Body.Close()
	if err != nil {
		t.Fatalf("decode configuration: %v", err)
	}
	if want := "ws://" + addr + DefaultBasePath + "/ws"; conf.WS != want {
		t.Fatalf("Configuration.WS = %q, want %q", conf.WS, want)
	}

	queue := modal.NewQueue()
	accounts, err := OpenAccounts(AccountsOptions{
		Config: ClientConfig{Endpoint: endpoint, AuthFile: filepath.Join(dir, "auth.json"), DeviceName: "serve test"},
		Modals: queue,
		Logger: quietLogger(),
	})
	if err != nil {
		t.Fatalf("OpenAccounts: %v", err)
	}
	defer accounts.Close()
	code := totpCode(t)
	go queue.Answer(modal.Response(api.MFATotp, code))
	st, err := accounts.Login(ctx, devserver.DefaultTestUsername, devserver.DefaultTestPassword)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !st.Online {
		t.Fatalf("expected online session, got %+v", st)
	}
	msgs, err := accounts.QueryMessages(ctx, api.MessageQuery{Sort: api.SortOldest})
	if err != nil {
		t.Fatalf("QueryMessages: %v", err)
	}
	if len(msgs.Messages) != 3 {
		t.Fatalf("seeded messages = %d, want 3", len(msgs.Messages))
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("Serve did not stop")
	}
}

func TestServeRejectsBadBasePath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.BasePath = "/../x"
	if err := Serve(t.Context(), ServeOptions{Config: cfg, Logger: quietLogger()}); err == nil {
		t.Fatalf("expected base path error")
	}
}
