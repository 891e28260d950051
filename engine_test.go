package authkit

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/peopleops/authkit/permission"
	"github.com/redis/go-redis/v9"
)

type mockUserStore struct {
	mu      sync.Mutex
	users   map[string]*Principal
	byEmail map[string]string

	createErr error
	updateErr error

	findByEmailCalls int
	findByIDCalls    int
	createCalls      int
	updateCalls      int
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{
		users:   make(map[string]*Principal),
		byEmail: make(map[string]string),
	}
}

func clonePrincipal(p *Principal) *Principal {
	out := *p
	out.PasswordHistory = append([]string(nil), p.PasswordHistory...)
	out.PermissionOverrides = append([]string(nil), p.PermissionOverrides...)
	out.RefreshTokenHashes = append([]string(nil), p.RefreshTokenHashes...)
	return &out
}

func (m *mockUserStore) FindByEmail(_ context.Context, email string) (*Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findByEmailCalls++

	id, ok := m.byEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	return clonePrincipal(m.users[id]), nil
}

func (m *mockUserStore) FindByID(_ context.Context, id string) (*Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findByIDCalls++

	p, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return clonePrincipal(p), nil
}

func (m *mockUserStore) Create(_ context.Context, principal *Principal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++

	if m.createErr != nil {
		return m.createErr
	}
	if _, exists := m.byEmail[principal.Email]; exists {
		return ErrDuplicateEmail
	}
	if principal.ID == "" {
		principal.ID = "u" + strconv.Itoa(len(m.users)+1)
	}
	m.users[principal.ID] = clonePrincipal(principal)
	m.byEmail[principal.Email] = principal.ID
	return nil
}

func (m *mockUserStore) Update(_ context.Context, id string, update PrincipalUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++

	if m.updateErr != nil {
		return m.updateErr
	}
	p, ok := m.users[id]
	if !ok {
		return ErrUserNotFound
	}

	if update.PasswordHash != nil {
		p.PasswordHash = *update.PasswordHash
	}
	if update.PasswordHistory != nil {
		p.PasswordHistory = append([]string(nil), (*update.PasswordHistory)...)
	}
	if update.PasswordChangedAt != nil {
		p.PasswordChangedAt = *update.PasswordChangedAt
	}
	if update.PasswordExpiresAt != nil {
		p.PasswordExpiresAt = *update.PasswordExpiresAt
	}
	if update.Role != nil {
		p.Role = *update.Role
	}
	if update.Status != nil {
		p.Status = *update.Status
	}
	if update.RefreshTokenHashes != nil {
		p.RefreshTokenHashes = append([]string(nil), (*update.RefreshTokenHashes)...)
	}
	if update.ResetTokenHash != nil {
		p.ResetTokenHash = *update.ResetTokenHash
	}
	if update.ResetTokenExpiresAt != nil {
		p.ResetTokenExpiresAt = *update.ResetTokenExpiresAt
	}
	if update.LastLoginAt != nil {
		p.LastLoginAt = *update.LastLoginAt
	}
	return nil
}

func (m *mockUserStore) get(id string) *Principal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return clonePrincipal(m.users[id])
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

func testConfig() Config {
	cfg := defaultConfig()
	cfg.JWT.AccessSecret = []byte("test-access-secret-0123456789abcdef")
	cfg.JWT.RefreshSecret = []byte("test-refresh-secret-0123456789abcdef")
	// Minimum argon2id cost keeps the suite fast.
	cfg.Password.Memory = 8192
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.KeyLength = 16
	cfg.Password.UpgradeOnLogin = false
	return cfg
}

func testRoles() ([]permission.RoleDefinition, []string) {
	definitions := []permission.RoleDefinition{
		{Name: "employee", Permissions: []string{"profile:read", "project:read"}},
		{Name: "manager", Permissions: []string{"project:write", "report:read"}, InheritsFrom: []string{"employee"}},
		{Name: "admin", Permissions: []string{"user:admin"}, InheritsFrom: []string{"manager"}},
	}
	// Highest role first, the order NewResolver expects.
	ranking := []string{"admin", "manager", "employee"}
	return definitions, ranking
}

func newTestEngine(t *testing.T, cfg Config, store *mockUserStore, sink AuditSink) (*Engine, *miniredis.Miniredis, func()) {
	t.Helper()

	mr, rdb := newTestRedis(t)

	definitions, ranking := testRoles()
	builder := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserStore(store).
		WithRoles(definitions, ranking).
		WithDefaultRole("employee")
	if sink != nil {
		builder = builder.WithAuditSink(sink)
	}

	engine, err := builder.Build()
	if err != nil {
		mr.Close()
		t.Fatalf("Build failed: %v", err)
	}

	return engine, mr, func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	}
}

func seedUser(t *testing.T, engine *Engine, store *mockUserStore, id, email, plaintext, role string) *Principal {
	t.Helper()

	hash, err := engine.policy.Hash(plaintext)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	principal := &Principal{
		ID:                id,
		Email:             email,
		FirstName:         "Test",
		LastName:          "User",
		PasswordHash:      hash,
		PasswordHistory:   []string{hash},
		PasswordChangedAt: time.Now().Unix(),
		Role:              role,
		Status:            StatusActive,
	}
	if err := store.Create(context.Background(), principal); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return principal
}
