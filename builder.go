package authkit

import (
	"errors"

	"github.com/peopleops/authkit/csrf"
	internalaudit "github.com/peopleops/authkit/internal/audit"
	"github.com/peopleops/authkit/internal/limiters"
	"github.com/peopleops/authkit/jwt"
	"github.com/peopleops/authkit/password"
	"github.com/peopleops/authkit/permission"
	"github.com/peopleops/authkit/session"
	"github.com/redis/go-redis/v9"
)

// Builder defines a public type used by authkit APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	roleDefinitions []permission.RoleDefinition
	roleRanking     []string
	defaultRole     string

	userStore UserStore
	auditSink AuditSink

	built bool
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig may return an error when input validation, dependency calls, or security checks fail.
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
//
// WithRedis may return an error when input validation, dependency calls, or security checks fail.
// WithRedis does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithRoles installs the role hierarchy and the fixed ranking used for
// role-vs-role comparisons. Every role referenced by InheritsFrom must be
// present; cycles fail Build.
func (b *Builder) WithRoles(definitions []permission.RoleDefinition, ranking []string) *Builder {
	b.roleDefinitions = definitions
	b.roleRanking = ranking
	return b
}

// WithDefaultRole sets the role assigned to registrations that do not name
// one. Must be one of the roles installed by WithRoles.
func (b *Builder) WithDefaultRole(role string) *Builder {
	b.defaultRole = role
	return b
}

// WithUserStore describes the withuserstore operation and its observable behavior.
//
// WithUserStore may return an error when input validation, dependency calls, or security checks fail.
// WithUserStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithUserStore(store UserStore) *Builder {
	b.userStore = store
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink may return an error when input validation, dependency calls, or security checks fail.
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder has already been used")
	}

	if b.redis == nil {
		return nil, errors.New("redis client is required")
	}
	if b.userStore == nil {
		return nil, errors.New("user store is required")
	}
	if len(b.roleDefinitions) == 0 {
		return nil, errors.New("at least one role definition is required")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// -------- ROLE HIERARCHY --------
	resolver, err := permission.NewResolver(b.roleDefinitions, b.roleRanking)
	if err != nil {
		return nil, err
	}

	if b.defaultRole != "" && !resolver.IsDefined(b.defaultRole) {
		return nil, errors.New("default role does not exist in the role hierarchy")
	}

	// -------- PASSWORD --------
	hasher, err := password.NewHasher(password.Params{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}
	policy := password.NewPolicy(cfg.Password.Rules, hasher)

	// -------- TOKENS --------
	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		AccessSecret:  cloneBytes(cfg.JWT.AccessSecret),
		RefreshSecret: cloneBytes(cfg.JWT.RefreshSecret),
		Issuer:        cfg.JWT.Issuer,
		Leeway:        cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:       cloneConfig(cfg),
		resolver:     resolver,
		policy:       policy,
		hasher:       hasher,
		jwtManager:   jm,
		userStore:    b.userStore,
		defaultRole:  b.defaultRole,
		sessionStore: session.NewStore(b.redis, cfg.Session.RedisPrefix),
		csrfStore:    csrf.NewStore(b.redis, cfg.Session.RedisPrefix),
		resetStore:   newPasswordResetStore(b.redis, cfg.Session.RedisPrefix),
	}

	engine.tokens = newTokenService(jm, b.userStore)
	engine.lockout = limiters.NewLockoutLimiter(b.redis, limiters.LockoutConfig{
		Enabled:   cfg.Lockout.Enabled,
		Threshold: cfg.Lockout.Threshold,
		Window:    cfg.Lockout.Window,
		Duration:  cfg.Lockout.Duration,
	})
	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return engine, nil
}
