package authkit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPasswordResetFlow(t *testing.T) {
	store := newMockUserStore()
	engine, _, done := newTestEngine(t, testConfig(), store, nil)
	defer done()

	res := loginTestUser(t, engine, store)

	token, err := engine.ForgotPassword(context.Background(), "alice@corp.test")
	if err != nil {
		t.Fatalf("ForgotPassword failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected a reset token for a known email")
	}

	if err := engine.ResetPassword(context.Background(), token, "N3w!secretValue"); err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}

	if _, err := engine.Login(context.Background(), "alice@corp.test", "N3w!secretValue"); err != nil {
		t.Fatalf("login with reset password failed: %v", err)
	}
	if _, err := engine.Login(context.Background(), "alice@corp.test", "Str0ng!passw0rd"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected old password to be rejected, got %v", err)
	}
	// A reset is a credential rotation like any other.
	if _, err := engine.Refresh(context.Background(), res.SessionID, res.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("expected pre-reset refresh token to be rejected, got %v", err)
	}

	// Single use: replaying the consumed token fails.
	if err := engine.ResetPassword(context.Background(), token, "An0ther!secret"); !errors.Is(err, ErrResetInvalid) {
		t.Fatalf("expected ErrResetInvalid on replay, got %v", err)
	}
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	store := newMockUserStore()
	engine, _, done := newTestEngine(t, testConfig(), store, nil)
	defer done()

	// No disclosure: unknown addresses get the same observable result as
	// known ones minus the out-of-band delivery.
	token, err := engine.ForgotPassword(context.Background(), "ghost@corp.test")
	if err != nil {
		t.Fatalf("expected silent no-op, got %v", err)
	}
	if token != "" {
		t.Fatal("expected empty token for unknown email")
	}
}

func TestForgotPasswordSupersedesOldToken(t *testing.T) {
	store := newMockUserStore()
	engine, _, done := newTestEngine(t, testConfig(), store, nil)
	defer done()

	seedUser(t, engine, store, "u1", "alice@corp.test", "Str0ng!passw0rd", "employee")

	first, err := engine.ForgotPassword(context.Background(), "alice@corp.test")
	if err != nil {
		t.Fatalf("first ForgotPassword failed: %v", err)
	}
	second, err := engine.ForgotPassword(context.Background(), "alice@corp.test")
	if err != nil {
		t.Fatalf("second ForgotPassword failed: %v", err)
	}

	if err := engine.ResetPassword(context.Background(), first, "N3w!secretValue"); !errors.Is(err, ErrResetInvalid) {
		t.Fatalf("expected superseded token to be rejected, got %v", err)
	}
	if err := engine.ResetPassword(context.Background(), second, "N3w!secretValue"); err != nil {
		t.Fatalf("reset with current token failed: %v", err)
	}
}

func TestResetPasswordExpiredToken(t *testing.T) {
	store := newMockUserStore()
	cfg := testConfig()
	cfg.PasswordReset.ResetTTL = time.Minute
	engine, mr, done := newTestEngine(t, cfg, store, nil)
	defer done()

	seedUser(t, engine, store, "u1", "alice@corp.test", "Str0ng!passw0rd", "employee")

	token, err := engine.ForgotPassword(context.Background(), "alice@corp.test")
	if err != nil {
		t.Fatalf("ForgotPassword failed: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if err := engine.ResetPassword(context.Background(), token, "N3w!secretValue"); !errors.Is(err, ErrResetInvalid) {
		t.Fatalf("expected ErrResetInvalid for expired token, got %v", err)
	}
}

func TestResetPasswordRejectsWeakAndReused(t *testing.T) {
	store := newMockUserStore()
	engine, _, done := newTestEngine(t, testConfig(), store, nil)
	defer done()

	seedUser(t, engine, store, "u1", "alice@corp.test", "Str0ng!passw0rd", "employee")

	token, err := engine.ForgotPassword(context.Background(), "alice@corp.test")
	if err != nil {
		t.Fatalf("ForgotPassword failed: %v", err)
	}

	var violation *PolicyViolationError
	if err := engine.ResetPassword(context.Background(), token, "short"); !errors.As(err, &violation) {
		t.Fatalf("expected PolicyViolationError, got %v", err)
	}

	// Policy rejection consumes the index entry, so the user must request a
	// fresh token before trying again.
	token, err = engine.ForgotPassword(context.Background(), "alice@corp.test")
	if err != nil {
		t.Fatalf("ForgotPassword failed: %v", err)
	}
	if err := engine.ResetPassword(context.Background(), token, "Str0ng!passw0rd"); !errors.Is(err, ErrPasswordReuse) {
		t.Fatalf("expected ErrPasswordReuse, got %v", err)
	}
}

func TestPasswordResetDisabled(t *testing.T) {
	store := newMockUserStore()
	cfg := testConfig()
	cfg.PasswordReset.Enabled = false
	engine, _, done := newTestEngine(t, cfg, store, nil)
	defer done()

	seedUser(t, engine, store, "u1", "alice@corp.test", "Str0ng!passw0rd", "employee")

	if _, err := engine.ForgotPassword(context.Background(), "alice@corp.test"); err == nil {
		t.Fatal("expected an error when the reset feature is disabled")
	}
	if err := engine.ResetPassword(context.Background(), "anything", "N3w!secretValue"); err == nil {
		t.Fatal("expected an error when the reset feature is disabled")
	}
}
