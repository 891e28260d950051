package jwt

import (
	"strings"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		AccessTTL:     "15m",
		RefreshTTL:    "7d",
		AccessSecret:  []byte("access-secret-0123456789-0123456789!"),
		RefreshSecret: []byte("refresh-secret-0123456789-012345678!"),
		Issuer:        "authkit-test",
	}
}

func testManager(t *testing.T) *Manager {
	t.Helper()

	m, err := NewManager(testConfig())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m
}

func TestIssuePairRoundTrip(t *testing.T) {
	m := testManager(t)

	pair, err := m.IssuePair("u1", "a@b.com", "manager")
	if err != nil {
		t.Fatalf("IssuePair failed: %v", err)
	}
	if pair.ExpiresIn != 900 {
		t.Fatalf("ExpiresIn = %d, want 900", pair.ExpiresIn)
	}

	access, err := m.ParseAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("ParseAccess failed: %v", err)
	}
	if access.Subject != "u1" || access.Email != "a@b.com" || access.Role != "manager" {
		t.Fatalf("unexpected access claims: %+v", access)
	}

	refresh, err := m.ParseRefresh(pair.RefreshToken)
	if err != nil {
		t.Fatalf("ParseRefresh failed: %v", err)
	}
	if refresh.Subject != "u1" || refresh.Role != "manager" {
		t.Fatalf("unexpected refresh claims: %+v", refresh)
	}
}

func TestTokenKindsAreNotInterchangeable(t *testing.T) {
	m := testManager(t)

	pair, err := m.IssuePair("u1", "a@b.com", "employee")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := m.ParseAccess(pair.RefreshToken); err == nil {
		t.Fatal("refresh token accepted as access token")
	}
	if _, err := m.ParseRefresh(pair.AccessToken); err == nil {
		t.Fatal("access token accepted as refresh token")
	}
}

func TestParseRejectsTampering(t *testing.T) {
	m := testManager(t)

	pair, err := m.IssuePair("u1", "a@b.com", "employee")
	if err != nil {
		t.Fatal(err)
	}

	tampered := pair.AccessToken[:len(pair.AccessToken)-2] + "xx"
	if _, err := m.ParseAccess(tampered); err == nil {
		t.Fatal("tampered token accepted")
	}

	if _, err := m.ParseAccess(strings.Repeat("a", 40)); err == nil {
		t.Fatal("garbage token accepted")
	}
}

func TestParseRejectsForeignIssuer(t *testing.T) {
	cfg := testConfig()
	cfg.Issuer = "other-issuer"
	other, err := NewManager(cfg)
	if err != nil {
		t.Fatal(err)
	}

	pair, err := other.IssuePair("u1", "a@b.com", "employee")
	if err != nil {
		t.Fatal(err)
	}

	m := testManager(t)
	if _, err := m.ParseAccess(pair.AccessToken); err == nil {
		t.Fatal("token from foreign issuer accepted")
	}
}

func TestNewManagerRejectsSharedSecret(t *testing.T) {
	cfg := testConfig()
	cfg.RefreshSecret = cfg.AccessSecret

	if _, err := NewManager(cfg); err == nil {
		t.Fatal("shared access/refresh secret accepted")
	}
}

func TestNewManagerRejectsShortSecret(t *testing.T) {
	cfg := testConfig()
	cfg.AccessSecret = []byte("short")

	if _, err := NewManager(cfg); err == nil {
		t.Fatal("short secret accepted")
	}
}

func TestParseTTL(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"30s", 30 * time.Second},
		{"15m", 15 * time.Minute},
		{"2h", 2 * time.Hour},
		{"7d", 7 * 24 * time.Hour},
		{"900x", 900 * time.Second}, // unknown unit -> fallback
		{"", 900 * time.Second},
		{"m", 900 * time.Second},
		{"-5m", 900 * time.Second},
		{"abc", 900 * time.Second},
	}

	for _, tc := range cases {
		if got := ParseTTL(tc.in); got != tc.want {
			t.Fatalf("ParseTTL(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
