package authkit

import (
	"context"
	"errors"
	"testing"
)

func TestChangePasswordSuccess(t *testing.T) {
	store := newMockUserStore()
	engine, _, done := newTestEngine(t, testConfig(), store, nil)
	defer done()

	res := loginTestUser(t, engine, store)

	if err := engine.ChangePassword(context.Background(), "u1", "Str0ng!passw0rd", "N3w!secretValue"); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}

	// The old password no longer works, the new one does.
	if _, err := engine.Login(context.Background(), "alice@corp.test", "Str0ng!passw0rd"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected old password to be rejected, got %v", err)
	}
	if _, err := engine.Login(context.Background(), "alice@corp.test", "N3w!secretValue"); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}

	// A password change is a credential rotation: everything issued before
	// it is dead.
	if _, err := engine.Refresh(context.Background(), res.SessionID, res.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("expected pre-change refresh token to be rejected, got %v", err)
	}
}

func TestPasswordExpiryStamped(t *testing.T) {
	store := newMockUserStore()
	engine, _, done := newTestEngine(t, testConfig(), store, nil)
	defer done()

	res, err := engine.Register(context.Background(), RegisterRequest{
		Email:     "alice@corp.test",
		Password:  "Str0ng!passw0rd",
		FirstName: "Alice",
		LastName:  "Reed",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	userID := res.User.ID

	expiryWindow := int64(90 * 24 * 60 * 60)

	created := store.get(userID)
	if created.PasswordExpiresAt != created.PasswordChangedAt+expiryWindow {
		t.Fatalf("register stamped expiry %d, want changedAt+90d = %d",
			created.PasswordExpiresAt, created.PasswordChangedAt+expiryWindow)
	}

	if err := engine.ChangePassword(context.Background(), userID, "Str0ng!passw0rd", "N3w!secretValue"); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}

	changed := store.get(userID)
	if changed.PasswordExpiresAt != changed.PasswordChangedAt+expiryWindow {
		t.Fatalf("change stamped expiry %d, want changedAt+90d = %d",
			changed.PasswordExpiresAt, changed.PasswordChangedAt+expiryWindow)
	}
	if changed.PasswordExpiresAt < created.PasswordExpiresAt {
		t.Fatal("expiry horizon moved backwards across a password change")
	}
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	store := newMockUserStore()
	engine, _, done := newTestEngine(t, testConfig(), store, nil)
	defer done()

	seedUser(t, engine, store, "u1", "alice@corp.test", "Str0ng!passw0rd", "employee")

	if err := engine.ChangePassword(context.Background(), "u1", "wrong-current", "N3w!secretValue"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestChangePasswordUnknownUser(t *testing.T) {
	store := newMockUserStore()
	engine, _, done := newTestEngine(t, testConfig(), store, nil)
	defer done()

	if err := engine.ChangePassword(context.Background(), "ghost", "a", "b"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestChangePasswordRejectsReuse(t *testing.T) {
	store := newMockUserStore()
	engine, _, done := newTestEngine(t, testConfig(), store, nil)
	defer done()

	seedUser(t, engine, store, "u1", "alice@corp.test", "Str0ng!passw0rd", "employee")

	// The current password is in the history by construction.
	if err := engine.ChangePassword(context.Background(), "u1", "Str0ng!passw0rd", "Str0ng!passw0rd"); !errors.Is(err, ErrPasswordReuse) {
		t.Fatalf("expected ErrPasswordReuse, got %v", err)
	}

	// A previously used password stays rejected after rotating away from it.
	if err := engine.ChangePassword(context.Background(), "u1", "Str0ng!passw0rd", "N3w!secretValue"); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}
	if err := engine.ChangePassword(context.Background(), "u1", "N3w!secretValue", "Str0ng!passw0rd"); !errors.Is(err, ErrPasswordReuse) {
		t.Fatalf("expected ErrPasswordReuse for historical password, got %v", err)
	}
}

func TestChangePasswordRejectsWeak(t *testing.T) {
	store := newMockUserStore()
	engine, _, done := newTestEngine(t, testConfig(), store, nil)
	defer done()

	seedUser(t, engine, store, "u1", "alice@corp.test", "Str0ng!passw0rd", "employee")

	err := engine.ChangePassword(context.Background(), "u1", "Str0ng!passw0rd", "short")
	var violation *PolicyViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected PolicyViolationError, got %v", err)
	}
	if len(violation.Result.Feedback) == 0 {
		t.Fatal("expected feedback explaining the rejection")
	}
}
