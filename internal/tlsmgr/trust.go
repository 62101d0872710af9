package tlsmgr

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// RootPool returns the system roots extended with the CA certificates in
// caFiles. Clients use it to trust a dev server running a private bundle.
func RootPool(caFiles []string) (*x509.CertPool, error) {
	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	for _, file := range caFiles {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read ca file %s: %w", file, err)
		}
		if !pool.AppendCertsFromPEM(data) {
			return nil, fmt.Errorf("no certificates in ca file %s", file)
		}
	}
	return pool, nil
}

// ClientTLSConfig returns a client config trusting caFiles, or nil when no
// extra roots are needed.
func ClientTLSConfig(caFiles []string) (*tls.Config, error) {
	if len(caFiles) == 0 {
		return nil, nil
	}
	pool, err := RootPool(caFiles)
	if err != nil {
		return nil, err
	}
	return &tls.Config{MinVersion: tls.VersionTLS12, RootCAs: pool}, nil
}
