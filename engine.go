package authkit

import (
	"context"
	"time"

	"github.com/peopleops/authkit/csrf"
	"github.com/peopleops/authkit/internal"
	internalaudit "github.com/peopleops/authkit/internal/audit"
	"github.com/peopleops/authkit/internal/limiters"
	"github.com/peopleops/authkit/jwt"
	"github.com/peopleops/authkit/password"
	"github.com/peopleops/authkit/permission"
	"github.com/peopleops/authkit/session"
)

// Engine defines a public type used by authkit APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config       Config
	resolver     *permission.Resolver
	policy       *password.Policy
	hasher       *password.Hasher
	jwtManager   *jwt.Manager
	tokens       *tokenService
	sessionStore *session.Store
	csrfStore    *csrf.Store
	lockout      *limiters.LockoutLimiter
	resetStore   *passwordResetStore
	audit        *internalaudit.Dispatcher
	metrics      *Metrics
	userStore    UserStore
	defaultRole  string
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events have been discarded because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Resolver exposes the role hierarchy resolver for host-side authorization
// helpers outside the request path.
func (e *Engine) Resolver() *permission.Resolver {
	if e == nil {
		return nil
	}
	return e.resolver
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) csrfTTL() time.Duration {
	if e.config.CSRF.TTL > 0 {
		return e.config.CSRF.TTL
	}
	return e.jwtManager.RefreshTTL()
}

// startSession builds the post-authentication state shared by login,
// register, and refresh: session creation with concurrent-limit eviction,
// token issuance with refresh tracking, session/refresh binding, and CSRF
// issuance. Eviction also revokes the refresh hash bound to each evicted
// session so a pushed-out device cannot silently re-enter.
func (e *Engine) startSession(ctx context.Context, principal *Principal) (*AuthResponse, error) {
	sessionID, err := internal.NewSessionID()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sess := &session.Session{
		ID:           sessionID.String(),
		UserID:       principal.ID,
		Device:       session.ParseUserAgent(userAgentFromContext(ctx), clientIPFromContext(ctx)),
		CreatedAt:    now.Unix(),
		LastActivity: now.Unix(),
		ExpiresAt:    now.Add(e.jwtManager.RefreshTTL()).Unix(),
		Active:       true,
	}

	evicted, err := e.sessionStore.Create(ctx, sess, e.jwtManager.RefreshTTL(), e.config.Session.MaxPerUser)
	if err != nil {
		return nil, err
	}
	for _, old := range evicted {
		e.metricInc(MetricSessionEvicted)
		if old.RefreshHash != "" {
			if err := e.tokens.RevokeHash(ctx, old.UserID, old.RefreshHash); err != nil {
				e.emitAudit(ctx, auditActionSessionEvicted, false, old.UserID, principal.Email, old.ID, err, nil)
				continue
			}
		}
		e.emitAudit(ctx, auditActionSessionEvicted, true, old.UserID, principal.Email, old.ID, nil, func() map[string]string {
			return map[string]string{
				"replaced_by": sess.ID,
			}
		})
		_ = e.csrfStore.Invalidate(ctx, old.ID)
	}

	pair, err := e.tokens.Issue(ctx, principal)
	if err != nil {
		return nil, err
	}

	if err := e.sessionStore.SetRefreshHash(ctx, sess.ID, internal.HashToken(pair.RefreshToken)); err != nil {
		return nil, err
	}

	response := &AuthResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
		SessionID:    sess.ID,
		User: UserSummary{
			ID:        principal.ID,
			Email:     principal.Email,
			FirstName: principal.FirstName,
			LastName:  principal.LastName,
			Role:      principal.Role,
		},
	}

	if e.config.CSRF.Enabled {
		token, err := e.csrfStore.Generate(ctx, sess.ID, e.csrfTTL())
		if err != nil {
			return nil, err
		}
		e.metricInc(MetricCSRFIssued)
		response.CSRFToken = token
	}

	e.metricInc(MetricSessionCreated)

	return response, nil
}
