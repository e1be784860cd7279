// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package offline answers "does this host have a network at all" and
// validates backend URLs.
package offline

import (
	"errors"
	"net"
	"net/url"
	"strings"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrInvalidURLScheme is returned when a URL scheme is not http or https.
	ErrInvalidURLScheme = errors.New("only http and https schemes are allowed")

	// ErrMissingHost is returned when a URL has no host component.
	ErrMissingHost = errors.New("url has no host")
)

// =============================================================================
// DETECTOR
// =============================================================================

// Detector reports host-level connectivity. It does not say anything about a
// particular server being up.
type Detector interface {
	Online() bool
}

// DetectorFunc adapts a function to Detector.
type DetectorFunc func() bool

// Online calls f.
func (f DetectorFunc) Online() bool { return f() }

// Always is a Detector with a fixed answer.
func Always(online bool) Detector {
	return DetectorFunc(func() bool { return online })
}

// Monitor inspects network interfaces. A backend on loopback is always
// considered reachable at the network level.
type Monitor struct {
	loopbackTarget bool

	// interfaces is swapped in tests.
	interfaces func() ([]net.Interface, error)
	addrs      func(net.Interface) ([]net.Addr, error)
}

// NewMonitor creates a Monitor for a backend at baseURL.
func NewMonitor(baseURL string) *Monitor {
	m := &Monitor{
		interfaces: net.Interfaces,
		addrs:      func(i net.Interface) ([]net.Addr, error) { return i.Addrs() },
	}
	if u, err := url.Parse(baseURL); err == nil {
		m.loopbackTarget = IsLocalhost(u.Hostname())
	}
	return m
}

// Online returns true if some non-loopback interface is up with an address.
func (m *Monitor) Online() bool {
	if m.loopbackTarget {
		return true
	}

	ifaces, err := m.interfaces()
	if err != nil {
		// Can't tell; let the reachability probe decide.
		return true
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := m.addrs(iface)
		if err != nil {
			continue
		}
		for _, a := range addrs {
			var ip net.IP
			switch v := a.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip != nil && !ip.IsLoopback() && !ip.IsLinkLocalUnicast() {
				return true
			}
		}
	}
	return false
}

// =============================================================================
// URL VALIDATION
// =============================================================================

// IsLocalhost checks if a host string refers to localhost. Accepts
// "localhost", the whole 127.0.0.0/8 range and any IPv6 loopback spelling,
// with or without port and brackets.
func IsLocalhost(host string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(strings.Trim(host, "[]"))

	if host == "localhost" {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}

// ValidateURL rejects anything that is not an absolute http(s) URL. file://,
// javascript: and friends never reach the HTTP client.
func ValidateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return ErrInvalidURLScheme
	}
	if parsed.Host == "" {
		return ErrMissingHost
	}
	return nil
}
