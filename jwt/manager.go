package jwt

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// fallbackTTLSeconds is applied when a configured TTL string carries an
// unrecognized unit suffix.
const fallbackTTLSeconds = 900

// Config defines the token manager configuration. Access and refresh
// tokens are signed with distinct secrets so a leaked access secret never
// lets an attacker mint refresh tokens.
//
// Config instances are intended to be configured during initialization and
// then treated as immutable unless documented otherwise.
type Config struct {
	AccessTTL     string // e.g. "15m"
	RefreshTTL    string // e.g. "7d"
	AccessSecret  []byte
	RefreshSecret []byte
	Issuer        string
	Leeway        time.Duration
}

// Claims is the claim set embedded in both token kinds. Subject carries
// the principal id; Email and Role ride along so downstream guards can
// authorize without a store round-trip.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// TokenPair bundles a freshly issued access/refresh token pair.
// ExpiresIn is the access-token lifetime in seconds.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// Manager issues and verifies HS256-signed access and refresh tokens.
//
// Manager instances are intended to be configured during initialization
// and then treated as immutable unless documented otherwise.
type Manager struct {
	config     Config
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewManager validates the configuration and resolves the TTL strings.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.AccessSecret) < 32 {
		return nil, errors.New("access secret must be at least 32 bytes")
	}
	if len(cfg.RefreshSecret) < 32 {
		return nil, errors.New("refresh secret must be at least 32 bytes")
	}
	if string(cfg.AccessSecret) == string(cfg.RefreshSecret) {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}

	accessTTL := ParseTTL(cfg.AccessTTL)
	refreshTTL := ParseTTL(cfg.RefreshTTL)
	if refreshTTL <= accessTTL {
		return nil, errors.New("refresh TTL must exceed access TTL")
	}

	return &Manager{
		config:     cfg,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

// IssuePair signs a new access/refresh token pair for the principal.
func (m *Manager) IssuePair(userID, email, role string) (TokenPair, error) {
	now := time.Now()

	access, err := m.sign(userID, email, role, now, m.accessTTL, m.config.AccessSecret)
	if err != nil {
		return TokenPair{}, err
	}

	refresh, err := m.sign(userID, email, role, now, m.refreshTTL, m.config.RefreshSecret)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(m.accessTTL.Seconds()),
	}, nil
}

// ParseAccess verifies and decodes an access token.
func (m *Manager) ParseAccess(tokenStr string) (*Claims, error) {
	return m.parse(tokenStr, m.config.AccessSecret)
}

// ParseRefresh verifies and decodes a refresh token. Cryptographic
// validity alone is not sufficient for a refresh: the caller must also
// check the token against the principal's tracked list.
func (m *Manager) ParseRefresh(tokenStr string) (*Claims, error) {
	return m.parse(tokenStr, m.config.RefreshSecret)
}

// AccessTTL returns the resolved access-token lifetime.
func (m *Manager) AccessTTL() time.Duration {
	return m.accessTTL
}

// RefreshTTL returns the resolved refresh-token lifetime. Session
// lifetimes are bounded by it.
func (m *Manager) RefreshTTL() time.Duration {
	return m.refreshTTL
}

func (m *Manager) sign(userID, email, role string, now time.Time, ttl time.Duration, secret []byte) (string, error) {
	claims := Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.config.Issuer,
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (m *Manager) parse(tokenStr string, secret []byte) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Subject == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}

	return claims, nil
}

// ParseTTL resolves a duration string of the form <number><unit> where
// unit is one of s, m, h, or d. An unparseable value or unrecognized unit
// falls back to 900 seconds rather than failing issuance.
func ParseTTL(value string) time.Duration {
	value = strings.TrimSpace(value)
	if len(value) < 2 {
		return fallbackTTLSeconds * time.Second
	}

	unit := value[len(value)-1]
	n, err := strconv.ParseInt(value[:len(value)-1], 10, 64)
	if err != nil || n <= 0 {
		return fallbackTTLSeconds * time.Second
	}

	switch unit {
	case 's':
		return time.Duration(n) * time.Second
	case 'm':
		return time.Duration(n) * time.Minute
	case 'h':
		return time.Duration(n) * time.Hour
	case 'd':
		return time.Duration(n) * 24 * time.Hour
	default:
		return fallbackTTLSeconds * time.Second
	}
}
