package authkit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLoginSuccess(t *testing.T) {
	store := newMockUserStore()
	engine, _, done := newTestEngine(t, testConfig(), store, nil)
	defer done()

	seedUser(t, engine, store, "u1", "alice@corp.test", "Str0ng!passw0rd", "manager")

	ctx := WithUserAgent(WithClientIP(context.Background(), "10.1.2.3"), "Mozilla/5.0 (Windows NT 10.0) Chrome/120.0")
	res, err := engine.Login(ctx, "alice@corp.test", "Str0ng!passw0rd")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if res.AccessToken == "" || res.RefreshToken == "" {
		t.Fatal("expected a token pair")
	}
	if res.ExpiresIn != 900 {
		t.Fatalf("expected ExpiresIn 900, got %d", res.ExpiresIn)
	}
	if res.SessionID == "" {
		t.Fatal("expected a session id")
	}
	if res.CSRFToken == "" {
		t.Fatal("expected a CSRF token")
	}
	if res.User.Email != "alice@corp.test" || res.User.Role != "manager" {
		t.Fatalf("unexpected user summary %+v", res.User)
	}

	stored := store.get("u1")
	if len(stored.RefreshTokenHashes) != 1 {
		t.Fatalf("expected 1 tracked refresh hash, got %d", len(stored.RefreshTokenHashes))
	}
	if stored.LastLoginAt == 0 {
		t.Fatal("expected last-login timestamp to be set")
	}

	sess, err := engine.sessionStore.Get(ctx, res.SessionID)
	if err != nil {
		t.Fatalf("session lookup failed: %v", err)
	}
	if sess.Device.Browser != "chrome" || sess.Device.IP != "10.1.2.3" {
		t.Fatalf("unexpected device info %+v", sess.Device)
	}
}

func TestLoginGenericFailure(t *testing.T) {
	store := newMockUserStore()
	engine, _, done := newTestEngine(t, testConfig(), store, nil)
	defer done()

	seedUser(t, engine, store, "u1", "alice@corp.test", "Str0ng!passw0rd", "employee")

	// Unknown email and wrong password must be indistinguishable.
	if _, err := engine.Login(context.Background(), "nobody@corp.test", "Str0ng!passw0rd"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
	if _, err := engine.Login(context.Background(), "alice@corp.test", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
}

func TestLoginInactiveAccount(t *testing.T) {
	store := newMockUserStore()
	engine, _, done := newTestEngine(t, testConfig(), store, nil)
	defer done()

	principal := seedUser(t, engine, store, "u1", "alice@corp.test", "Str0ng!passw0rd", "employee")
	suspended := StatusSuspended
	if err := store.Update(context.Background(), principal.ID, PrincipalUpdate{Status: &suspended}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if _, err := engine.Login(context.Background(), "alice@corp.test", "Str0ng!passw0rd"); !errors.Is(err, ErrAccountNotActive) {
		t.Fatalf("expected ErrAccountNotActive, got %v", err)
	}
}

func TestLoginLockoutAfterThreshold(t *testing.T) {
	store := newMockUserStore()
	engine, mr, done := newTestEngine(t, testConfig(), store, nil)
	defer done()

	seedUser(t, engine, store, "u1", "alice@corp.test", "Str0ng!passw0rd", "employee")

	for i := 0; i < 5; i++ {
		if _, err := engine.Login(context.Background(), "alice@corp.test", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}

	// 6th attempt with CORRECT credentials is still rejected.
	_, err := engine.Login(context.Background(), "alice@corp.test", "Str0ng!passw0rd")
	if !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked, got %v", err)
	}
	var lockErr *LockoutError
	if !errors.As(err, &lockErr) {
		t.Fatalf("expected *LockoutError, got %T", err)
	}
	if lockErr.RetryAfter <= 0 || lockErr.RetryAfter > 15*time.Minute {
		t.Fatalf("unexpected RetryAfter %v", lockErr.RetryAfter)
	}

	// After the lockout window elapses, the correct password works again.
	mr.FastForward(16 * time.Minute)
	if _, err := engine.Login(context.Background(), "alice@corp.test", "Str0ng!passw0rd"); err != nil {
		t.Fatalf("post-lockout login failed: %v", err)
	}

	// Success cleared the counter: a single new failure does not lock.
	if _, err := engine.Login(context.Background(), "alice@corp.test", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := engine.Login(context.Background(), "alice@corp.test", "Str0ng!passw0rd"); err != nil {
		t.Fatalf("login after single failure should succeed, got %v", err)
	}
}

func TestLoginUpgradesWeakHash(t *testing.T) {
	cfg := testConfig()
	cfg.Password.UpgradeOnLogin = true
	cfg.Password.Memory = 16384

	store := newMockUserStore()
	engine, _, done := newTestEngine(t, cfg, store, nil)
	defer done()

	// Seed with a hash produced at lower cost than the engine now runs.
	weak := testConfig()
	weakEngine, _, weakDone := newTestEngine(t, weak, newMockUserStore(), nil)
	defer weakDone()

	hash, err := weakEngine.policy.Hash("Str0ng!passw0rd")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	principal := &Principal{
		ID:           "u1",
		Email:        "alice@corp.test",
		PasswordHash: hash,
		Role:         "employee",
		Status:       StatusActive,
	}
	if err := store.Create(context.Background(), principal); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := engine.Login(context.Background(), "alice@corp.test", "Str0ng!passw0rd"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	upgraded := store.get("u1")
	if upgraded.PasswordHash == hash {
		t.Fatal("expected the stored hash to be upgraded")
	}
	ok, err := engine.policy.Verify("Str0ng!passw0rd", upgraded.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("upgraded hash does not verify, ok=%v err=%v", ok, err)
	}
}

func TestLoginEmitsAuditEvents(t *testing.T) {
	cfg := testConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.DropIfFull = false

	sink := NewChannelSink(16)
	store := newMockUserStore()
	engine, _, done := newTestEngine(t, cfg, store, sink)
	defer done()

	seedUser(t, engine, store, "u1", "alice@corp.test", "Str0ng!passw0rd", "employee")

	if _, err := engine.Login(context.Background(), "alice@corp.test", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	select {
	case event := <-sink.Events():
		if event.Action != auditActionLoginFailure {
			t.Fatalf("expected %s, got %s", auditActionLoginFailure, event.Action)
		}
		if event.Reason != string(auditReasonInvalidCredentials) {
			t.Fatalf("expected reason %s, got %s", auditReasonInvalidCredentials, event.Reason)
		}
		if event.Email != "alice@corp.test" {
			t.Fatalf("expected email on event, got %q", event.Email)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for audit event")
	}
}
