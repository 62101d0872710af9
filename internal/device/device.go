// Package device derives the friendly name a new login session is registered
// under.
package device

import (
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/host"

	"pkt.systems/parley/internal/config"
)

const product = "parley"

// Provider yields a human-readable device label. Label never fails; a
// provider that cannot detect anything returns config.DefaultDeviceName.
type Provider interface {
	Label() string
}

// Static always returns the same label.
type Static string

// Label returns s, or the default device name when s is empty.
func (s Static) Label() string {
	if strings.TrimSpace(string(s)) == "" {
		return config.DefaultDeviceName
	}
	return string(s)
}

// Host labels the device from the operating system's host information.
type Host struct {
	// Override, when set, is returned verbatim.
	Override string

	info func() (*host.InfoStat, error)
}

// Default returns the host-backed provider.
func Default() *Host {
	return &Host{}
}

// Label returns "parley on <platform>".
func (h *Host) Label() string {
	if name := strings.TrimSpace(h.Override); name != "" {
		return name
	}
	lookup := h.info
	if lookup == nil {
		lookup = host.Info
	}
	// host.Info can fill some fields and still report an error for the
	// rest; whatever it returned is used.
	info, _ := lookup()
	return labelFor(info, runtime.GOOS)
}

func labelFor(info *host.InfoStat, goos string) string {
	var platform string
	if info != nil {
		platform = strings.TrimSpace(strings.Join(nonEmpty(titleCase(info.Platform), info.PlatformVersion), " "))
		if platform == "" {
			platform = titleCase(info.OS)
		}
	}
	if platform == "" {
		platform = titleCase(goos)
	}
	if platform == "" {
		return config.DefaultDeviceName
	}
	return product + " on " + platform
}

func nonEmpty(values ...string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func titleCase(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
