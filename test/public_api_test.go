package test

import (
	"context"
	"net/http"
	"testing"

	authkit "github.com/peopleops/authkit"
	"github.com/peopleops/authkit/middleware"
)

// This test intentionally guards public API compile-compat for consumers.
func TestPublicAPISurfaceCompile(t *testing.T) {
	_ = authkit.New
	_ = authkit.DefaultConfig

	var _ *authkit.Engine
	var _ authkit.Config
	var _ authkit.AuthResult
	var _ *authkit.AuthResponse
	var _ authkit.RegisterRequest
	var _ authkit.Principal
	var _ authkit.PrincipalUpdate
	var _ authkit.UserStore
	var _ authkit.AuditSink
	var _ authkit.SecurityReport

	var _ error = authkit.ErrInvalidCredentials
	var _ error = authkit.ErrUserNotFound
	var _ error = authkit.ErrAccountLocked
	var _ error = authkit.ErrAccountNotActive
	var _ error = authkit.ErrDuplicateEmail
	var _ error = authkit.ErrRefreshInvalid
	var _ error = authkit.ErrTokenInvalid
	var _ error = authkit.ErrSessionNotFound
	var _ error = authkit.ErrCSRFInvalid
	var _ error = authkit.ErrPasswordReuse
	var _ error = authkit.ErrResetInvalid
	var _ error = authkit.ErrPermissionDenied

	var _ func(*authkit.Engine, *middleware.PolicyTable) func(http.Handler) http.Handler = middleware.Guard

	var _ func(*authkit.Engine, context.Context, string, string) (*authkit.AuthResponse, error) = (*authkit.Engine).Login
	var _ func(*authkit.Engine, context.Context, string, string) (*authkit.AuthResponse, error) = (*authkit.Engine).Refresh
	var _ func(*authkit.Engine, context.Context, authkit.RegisterRequest) (*authkit.AuthResponse, error) = (*authkit.Engine).Register
	var _ func(*authkit.Engine, context.Context, string) (*authkit.AuthResult, error) = (*authkit.Engine).Validate
	var _ func(*authkit.Engine, context.Context, string, string) error = (*authkit.Engine).Logout
	var _ func(*authkit.Engine, context.Context, string) error = (*authkit.Engine).LogoutAll
	var _ func(*authkit.Engine, context.Context, string, string, string) error = (*authkit.Engine).ChangePassword
	var _ func(*authkit.Engine, context.Context, string) (string, error) = (*authkit.Engine).ForgotPassword
	var _ func(*authkit.Engine, context.Context, string, string) error = (*authkit.Engine).ResetPassword
}
