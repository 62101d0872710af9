package server

import (
	"fmt"
	"net/http"
	"path"
	"strings"
)

// NormalizeBasePath cleans a mount prefix. The root ("/" or empty) becomes
// "".
func NormalizeBasePath(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "/" {
		return "", nil
	}
	if strings.Contains(trimmed, "://") || strings.ContainsAny(trimmed, "?#") {
		return "", fmt.Errorf("base path must be a URL path without scheme, query, or fragment")
	}
	for _, seg := range strings.Split(strings.Trim(trimmed, "/"), "/") {
		if seg == "." || seg == ".." {
			return "", fmt.Errorf("base path must not contain '.' or '..' segments")
		}
	}
	cleaned := path.Clean("/" + strings.TrimPrefix(trimmed, "/"))
	if cleaned == "/" {
		return "", nil
	}
	return cleaned, nil
}

// Mount serves handler under base. Requests for base itself redirect to
// base + "/", which the API treats as its root.
func Mount(base string, handler http.Handler) http.Handler {
	if base == "" {
		return handler
	}
	root := http.NewServeMux()
	root.Handle(base+"/", http.StripPrefix(base, handler))
	root.HandleFunc(base, func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, base+"/", http.StatusMovedPermanently)
	})
	return root
}
