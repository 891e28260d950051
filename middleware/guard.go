package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	authkit "github.com/peopleops/authkit"
)

type authResultContextKey struct{}

// AuthResultFromContext retrieves the validated identity stored by [Guard].
func AuthResultFromContext(ctx context.Context) (*authkit.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*authkit.AuthResult)
	return res, ok
}

// Guard enforces the policy table in front of an HTTP handler. Every route
// must have a registered requirement: unknown routes and missing or invalid
// bearer tokens get 401, an authenticated caller whose permissions do not
// satisfy the requirement gets 403. On success the validated
// [authkit.AuthResult] is injected into the request context.
func Guard(engine *authkit.Engine, table *PolicyTable) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil || table == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			req, ok := table.Lookup(r.Method, r.URL.Path)
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if req.public() {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := requestContext(r)
			res, err := engine.Validate(ctx, token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			if !req.Satisfied(res.Permissions) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, authResultContextKey{}, res)))
		})
	}
}

// requestContext enriches the request context with the caller's IP and
// User-Agent so downstream Engine calls audit them.
func requestContext(r *http.Request) context.Context {
	ctx := r.Context()
	if ip := clientIP(r); ip != "" {
		ctx = authkit.WithClientIP(ctx, ip)
	}
	if ua := r.UserAgent(); ua != "" {
		ctx = authkit.WithUserAgent(ctx, ua)
	}
	return ctx
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if idx := strings.IndexByte(forwarded, ','); idx >= 0 {
			return strings.TrimSpace(forwarded[:idx])
		}
		return strings.TrimSpace(forwarded)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
