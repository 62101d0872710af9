// Package tlsmgr builds TLS configuration for the development chat server
// and the CA pool clients use to reach it.
package tlsmgr

import (
	"crypto/tls"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/acme"
	"golang.org/x/crypto/acme/autocert"
	"pkt.systems/pslog"
)

// Mode selects how the server terminates TLS.
type Mode string

const (
	// ModeOff serves plain HTTP.
	ModeOff Mode = "off"
	// ModeBundle loads a certificate chain and key from PEM files.
	ModeBundle Mode = "bundle"
	// ModeACME obtains certificates with TLS-ALPN-01.
	ModeACME Mode = "acme"
)

// Config configures server TLS.
type Config struct {
	Mode        Mode
	BundleFiles []string
	Hostname    string
	CacheDir    string
}

// ResolveMode picks the effective mode. An empty mode means bundle when
// bundle files are given and off otherwise.
func ResolveMode(cfg Config) (Mode, error) {
	mode := Mode(strings.ToLower(strings.TrimSpace(string(cfg.Mode))))
	switch mode {
	case "":
		if len(cfg.BundleFiles) > 0 {
			return ModeBundle, nil
		}
		return ModeOff, nil
	case ModeOff, ModeBundle, ModeACME:
		return mode, nil
	default:
		return "", fmt.Errorf("unsupported tls mode: %s", cfg.Mode)
	}
}

// BuildServerTLSConfig returns the server TLS config, or nil in ModeOff.
func BuildServerTLSConfig(cfg Config, logger pslog.Logger) (*tls.Config, error) {
	mode, err := ResolveMode(cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = pslog.LoggerFromEnv()
	}

	switch mode {
	case ModeOff:
		logger.Warn("tls disabled, serving plain http")
		return nil, nil
	case ModeBundle:
		if len(cfg.BundleFiles) == 0 {
			return nil, fmt.Errorf("tls bundle mode requires at least one bundle file")
		}
		cert, err := LoadBundle(cfg.BundleFiles)
		if err != nil {
			return nil, err
		}
		return &tls.Config{
			MinVersion:   tls.VersionTLS12,
			Certificates: []tls.Certificate{cert},
		}, nil
	default:
		if cfg.Hostname == "" {
			return nil, fmt.Errorf("acme mode requires --tls-hostname")
		}
		if cfg.CacheDir == "" {
			return nil, fmt.Errorf("acme mode requires tls cache dir")
		}
		if err := os.MkdirAll(cfg.CacheDir, 0o700); err != nil {
			return nil, err
		}
		manager := &autocert.Manager{
			Prompt:     autocert.AcceptTOS,
			Cache:      autocert.DirCache(cfg.CacheDir),
			HostPolicy: autocert.HostWhitelist(cfg.Hostname),
		}
		logger.Info("acme tls enabled", "hostname", cfg.Hostname, "cache_dir", cfg.CacheDir)
		return &tls.Config{
			MinVersion:     tls.VersionTLS12,
			GetCertificate: manager.GetCertificate,
			NextProtos:     []string{"h2", "http/1.1", acme.ALPNProto},
		}, nil
	}
}
