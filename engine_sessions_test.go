package authkit

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestSessionCapEvictsOldest(t *testing.T) {
	store := newMockUserStore()
	cfg := testConfig()
	cfg.Session.MaxPerUser = 3
	engine, _, done := newTestEngine(t, cfg, store, nil)
	defer done()

	seedUser(t, engine, store, "u1", "alice@corp.test", "Str0ng!passw0rd", "employee")

	responses := make([]*AuthResponse, 0, 4)
	for i := 0; i < 4; i++ {
		res, err := engine.Login(context.Background(), "alice@corp.test", "Str0ng!passw0rd")
		if err != nil {
			t.Fatalf("login %d failed: %v", i, err)
		}
		responses = append(responses, res)
	}

	live, err := engine.Sessions(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Sessions failed: %v", err)
	}
	if len(live) != 3 {
		t.Fatalf("expected 3 live sessions after eviction, got %d", len(live))
	}
	alive := make(map[string]bool, len(live))
	for _, s := range live {
		alive[s.ID] = true
	}
	// The newest session is never the one pushed out.
	if !alive[responses[3].SessionID] {
		t.Fatal("expected the newest session to survive eviction")
	}

	// Exactly one of the four logins was evicted, and eviction pulled its
	// refresh token and CSRF token out of circulation with it.
	evictions := 0
	for i, res := range responses {
		if alive[res.SessionID] {
			if _, err := engine.Refresh(context.Background(), res.SessionID, res.RefreshToken); err != nil {
				t.Fatalf("session %d: refresh for surviving session failed: %v", i, err)
			}
			continue
		}
		evictions++
		if _, err := engine.Refresh(context.Background(), res.SessionID, res.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
			t.Fatalf("session %d: expected ErrRefreshInvalid for evicted session's token, got %v", i, err)
		}
		if _, err := engine.CSRFToken(context.Background(), res.SessionID); !errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("session %d: expected ErrSessionNotFound for evicted session's CSRF token, got %v", i, err)
		}
	}
	if evictions != 1 {
		t.Fatalf("expected exactly 1 evicted session, got %d", evictions)
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	store := newMockUserStore()
	engine, _, done := newTestEngine(t, testConfig(), store, nil)
	defer done()

	res := loginTestUser(t, engine, store)

	for i := 0; i < 2; i++ {
		if err := engine.Logout(context.Background(), res.RefreshToken, res.SessionID); err != nil {
			t.Fatalf("logout %d failed: %v", i, err)
		}
	}

	if _, err := engine.Refresh(context.Background(), res.SessionID, res.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("expected ErrRefreshInvalid after logout, got %v", err)
	}
	if _, err := engine.CSRFToken(context.Background(), res.SessionID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after logout, got %v", err)
	}

	live, err := engine.Sessions(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Sessions failed: %v", err)
	}
	if len(live) != 0 {
		t.Fatalf("expected 0 live sessions, got %d", len(live))
	}
}

func TestLogoutAllClearsEverything(t *testing.T) {
	store := newMockUserStore()
	engine, _, done := newTestEngine(t, testConfig(), store, nil)
	defer done()

	seedUser(t, engine, store, "u1", "alice@corp.test", "Str0ng!passw0rd", "employee")

	responses := make([]*AuthResponse, 0, 3)
	for i := 0; i < 3; i++ {
		res, err := engine.Login(context.Background(), "alice@corp.test", "Str0ng!passw0rd")
		if err != nil {
			t.Fatalf("login %d failed: %v", i, err)
		}
		responses = append(responses, res)
	}

	if err := engine.LogoutAll(context.Background(), "u1"); err != nil {
		t.Fatalf("LogoutAll failed: %v", err)
	}

	live, err := engine.Sessions(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Sessions failed: %v", err)
	}
	if len(live) != 0 {
		t.Fatalf("expected 0 live sessions, got %d", len(live))
	}
	for i, res := range responses {
		if _, err := engine.Refresh(context.Background(), res.SessionID, res.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
			t.Fatalf("session %d: expected ErrRefreshInvalid after LogoutAll, got %v", i, err)
		}
	}
	if len(store.get("u1").RefreshTokenHashes) != 0 {
		t.Fatal("expected principal's tracked refresh hashes to be cleared")
	}
}

func TestLogoutAllUnknownUser(t *testing.T) {
	store := newMockUserStore()
	engine, _, done := newTestEngine(t, testConfig(), store, nil)
	defer done()

	if err := engine.LogoutAll(context.Background(), "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestValidateCSRF(t *testing.T) {
	store := newMockUserStore()
	engine, _, done := newTestEngine(t, testConfig(), store, nil)
	defer done()

	res := loginTestUser(t, engine, store)

	if err := engine.ValidateCSRF(context.Background(), res.SessionID, res.CSRFToken); err != nil {
		t.Fatalf("ValidateCSRF rejected the issued token: %v", err)
	}
	if err := engine.ValidateCSRF(context.Background(), res.SessionID, "forged"); !errors.Is(err, ErrCSRFInvalid) {
		t.Fatalf("expected ErrCSRFInvalid for forged token, got %v", err)
	}
	if err := engine.ValidateCSRF(context.Background(), "no-such-session", res.CSRFToken); !errors.Is(err, ErrCSRFInvalid) {
		t.Fatalf("expected ErrCSRFInvalid for unknown session, got %v", err)
	}

	// A refresh rotates the CSRF token and invalidates the one before it.
	rotated, err := engine.Refresh(context.Background(), res.SessionID, res.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if err := engine.ValidateCSRF(context.Background(), res.SessionID, res.CSRFToken); !errors.Is(err, ErrCSRFInvalid) {
		t.Fatalf("expected the pre-rotation CSRF token to be rejected, got %v", err)
	}
	if err := engine.ValidateCSRF(context.Background(), res.SessionID, rotated.CSRFToken); err != nil {
		t.Fatalf("ValidateCSRF rejected the rotated token: %v", err)
	}
}

func TestValidateCSRFDisabled(t *testing.T) {
	store := newMockUserStore()
	cfg := testConfig()
	cfg.CSRF.Enabled = false
	engine, _, done := newTestEngine(t, cfg, store, nil)
	defer done()

	res := loginTestUser(t, engine, store)
	if res.CSRFToken != "" {
		t.Fatal("expected no CSRF token when the guard is disabled")
	}
	if err := engine.ValidateCSRF(context.Background(), res.SessionID, "anything"); err != nil {
		t.Fatalf("expected ValidateCSRF to pass when disabled, got %v", err)
	}
}

func TestCSRFTokenUnknownSession(t *testing.T) {
	store := newMockUserStore()
	engine, _, done := newTestEngine(t, testConfig(), store, nil)
	defer done()

	res := loginTestUser(t, engine, store)

	token, err := engine.CSRFToken(context.Background(), res.SessionID)
	if err != nil {
		t.Fatalf("CSRFToken failed for a live session: %v", err)
	}
	if token != res.CSRFToken {
		t.Fatal("CSRFToken returned a token other than the issued one")
	}

	if _, err := engine.CSRFToken(context.Background(), "no-such-session"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound for unknown session, got %v", err)
	}
}

func TestInvalidateSession(t *testing.T) {
	store := newMockUserStore()
	engine, _, done := newTestEngine(t, testConfig(), store, nil)
	defer done()

	res := loginTestUser(t, engine, store)

	if err := engine.InvalidateSession(context.Background(), res.SessionID); err != nil {
		t.Fatalf("InvalidateSession failed: %v", err)
	}
	live, err := engine.Sessions(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Sessions failed: %v", err)
	}
	if len(live) != 0 {
		t.Fatalf("expected 0 live sessions, got %d", len(live))
	}

	// Unknown ids are a no-op.
	if err := engine.InvalidateSession(context.Background(), "no-such-session"); err != nil {
		t.Fatalf("expected no error for unknown session, got %v", err)
	}
}

func TestSessionsPerDistinctDevice(t *testing.T) {
	store := newMockUserStore()
	engine, _, done := newTestEngine(t, testConfig(), store, nil)
	defer done()

	seedUser(t, engine, store, "u1", "alice@corp.test", "Str0ng!passw0rd", "employee")

	agents := []string{
		"Mozilla/5.0 (Windows NT 10.0) Chrome/120.0",
		"Mozilla/5.0 (Macintosh) Safari/605.1.15",
	}
	for i, ua := range agents {
		ctx := WithUserAgent(context.Background(), ua)
		ctx = WithClientIP(ctx, fmt.Sprintf("10.0.0.%d", i+1))
		if _, err := engine.Login(ctx, "alice@corp.test", "Str0ng!passw0rd"); err != nil {
			t.Fatalf("login %d failed: %v", i, err)
		}
	}

	live, err := engine.Sessions(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Sessions failed: %v", err)
	}
	if len(live) != 2 {
		t.Fatalf("expected 2 live sessions, got %d", len(live))
	}
	ips := map[string]bool{}
	for _, s := range live {
		ips[s.Device.IP] = true
	}
	if !ips["10.0.0.1"] || !ips["10.0.0.2"] {
		t.Fatalf("expected device IPs to be recorded, got %v", ips)
	}
}
