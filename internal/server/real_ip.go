package server

import (
	"net"
	"net/http"
	"strings"
)

// RealIP returns the best-effort client IP address for a request, trusting
// Forwarded, X-Forwarded-For and X-Real-IP in that order.
func RealIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	for _, candidate := range forwardedFor(r.Header.Get("Forwarded")) {
		if ip := cleanIP(candidate); ip != "" {
			return ip
		}
	}
	for _, candidate := range strings.Split(r.Header.Get("X-Forwarded-For"), ",") {
		if ip := cleanIP(candidate); ip != "" {
			return ip
		}
	}
	if ip := cleanIP(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}

// forwardedFor extracts the for= values of an RFC 7239 header.
func forwardedFor(header string) []string {
	if header == "" {
		return nil
	}
	var out []string
	for _, element := range strings.Split(header, ",") {
		for _, pair := range strings.Split(element, ";") {
			key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
			if ok && strings.EqualFold(key, "for") {
				out = append(out, value)
			}
		}
	}
	return out
}

func cleanIP(value string) string {
	value = strings.Trim(strings.TrimSpace(value), "\"")
	if value == "" || strings.EqualFold(value, "unknown") {
		return ""
	}
	if strings.HasPrefix(value, "[") {
		if end := strings.Index(value, "]"); end > 0 {
			value = value[1:end]
		}
	}
	if host, _, err := net.SplitHostPort(value); err == nil && host != "" {
		value = host
	}
	if ip := net.ParseIP(value); ip != nil {
		return ip.String()
	}
	return value
}
