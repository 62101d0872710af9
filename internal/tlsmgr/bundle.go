package tlsmgr

import (
	"bytes"
	"crypto/tls"
	"encoding/pem"
	"fmt"
	"os"
)

// LoadBundle assembles a certificate chain and the first private key found
// across one or more PEM files. Certificates keep their file order.
func LoadBundle(files []string) (tls.Certificate, error) {
	var chain, key bytes.Buffer
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return tls.Certificate{}, fmt.Errorf("read tls bundle %s: %w", file, err)
		}
		for block, rest := pem.Decode(data); block != nil; block, rest = pem.Decode(rest) {
			switch block.Type {
			case "CERTIFICATE":
				_ = pem.Encode(&chain, block)
			case "PRIVATE KEY", "RSA PRIVATE KEY", "EC PRIVATE KEY":
				if key.Len() == 0 {
					_ = pem.Encode(&key, block)
				}
			}
		}
	}
	if chain.Len() == 0 {
		return tls.Certificate{}, fmt.Errorf("no certificates found in tls bundle")
	}
	if key.Len() == 0 {
		return tls.Certificate{}, fmt.Errorf("no private key found in tls bundle")
	}
	return tls.X509KeyPair(chain.Bytes(), key.Bytes())
}
