// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package offline

import (
	"errors"
	"net"
	"testing"
)

// =============================================================================
// URL VALIDATION TESTS
// =============================================================================

func TestIsLocalhost(t *testing.T) {
	tests := []struct {
		host string
		want bool
	}{
		{"localhost", true},
		{"LOCALHOST", true},
		{"127.0.0.1", true},
		{"127.0.0.1:8000", true},
		{"127.1.2.3", true},
		{"::1", true},
		{"[::1]:8000", true},
		{"0:0:0:0:0:0:0:1", true},
		{"example.com", false},
		{"192.168.1.10", false},
		{"", false},
	}
	for _, tc := range tests {
		if got := IsLocalhost(tc.host); got != tc.want {
			t.Errorf("IsLocalhost(%q) = %v, want %v", tc.host, got, tc.want)
		}
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		url     string
		wantErr error
	}{
		{"http://localhost:8000", nil},
		{"https://api.example.com/v1", nil},
		{"file:///etc/passwd", ErrInvalidURLScheme},
		{"javascript:alert(1)", ErrInvalidURLScheme},
		{"localhost:8000", ErrInvalidURLScheme},
		{"http://", ErrMissingHost},
	}
	for _, tc := range tests {
		err := ValidateURL(tc.url)
		if tc.wantErr == nil && err != nil {
			t.Errorf("ValidateURL(%q) = %v, want nil", tc.url, err)
		}
		if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
			t.Errorf("ValidateURL(%q) = %v, want %v", tc.url, err, tc.wantErr)
		}
	}
}

// =============================================================================
// MONITOR TESTS
// =============================================================================

func fakeMonitor(base string, ifaces []net.Interface, addrs map[string][]net.Addr) *Monitor {
	m := NewMonitor(base)
	m.interfaces = func() ([]net.Interface, error) { return ifaces, nil }
	m.addrs = func(i net.Interface) ([]net.Addr, error) { return addrs[i.Name], nil }
	return m
}

func TestMonitor_NoUsableInterface(t *testing.T) {
	m := fakeMonitor("https://api.example.com",
		[]net.Interface{
			{Name: "lo", Flags: net.FlagUp | net.FlagLoopback},
			{Name: "eth0", Flags: 0},
		},
		map[string][]net.Addr{
			"lo":   {&net.IPNet{IP: net.ParseIP("127.0.0.1")}},
			"eth0": {&net.IPNet{IP: net.ParseIP("10.0.0.5")}},
		})

	if m.Online() {
		t.Error("Online() = true with only loopback up, want false")
	}
}

func TestMonitor_UpInterface(t *testing.T) {
	m := fakeMonitor("https://api.example.com",
		[]net.Interface{{Name: "eth0", Flags: net.FlagUp}},
		map[string][]net.Addr{"eth0": {&net.IPNet{IP: net.ParseIP("10.0.0.5")}}})

	if !m.Online() {
		t.Error("Online() = false with eth0 up, want true")
	}
}

func TestMonitor_LinkLocalOnlyIsOffline(t *testing.T) {
	m := fakeMonitor("https://api.example.com",
		[]net.Interface{{Name: "eth0", Flags: net.FlagUp}},
		map[string][]net.Addr{"eth0": {&net.IPNet{IP: net.ParseIP("169.254.3.4")}}})

	if m.Online() {
		t.Error("Online() = true with only a link-local address, want false")
	}
}

func TestMonitor_LoopbackBackendAlwaysOnline(t *testing.T) {
	m := fakeMonitor("http://127.0.0.1:8000", nil, nil)
	if !m.Online() {
		t.Error("Online() = false for loopback backend, want true")
	}
}

func TestAlways(t *testing.T) {
	if !Always(true).Online() || Always(false).Online() {
		t.Error("Always returned the wrong answer")
	}
}
