package parley

import (
	"net/http"

	"pkt.systems/parley/internal/api"
	"pkt.systems/parley/internal/tlsmgr"
)

// APIClient talks to the chat REST API.
type APIClient = api.Client

func newHTTPClient(caFiles []string) (*http.Client, error) {
	tlsCfg, err := tlsmgr.ClientTLSConfig(caFiles)
	if err != nil {
		return nil, err
	}
	if tlsCfg == nil {
		return &http.Client{}, nil
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsCfg
	return &http.Client{Transport: transport}, nil
}

// NewAPIClient returns an anonymous API client for cfg.Endpoint that trusts
// cfg.CAFiles in addition to the system roots.
func NewAPIClient(cfg ClientConfig) (*APIClient, error) {
	httpClient, err := newHTTPClient(cfg.CAFiles)
	if err != nil {
		return nil, err
	}
	return api.New(api.Options{BaseURL: cfg.Endpoint, HTTPClient: httpClient})
}
