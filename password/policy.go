package password

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Strength buckets a complexity score into five coarse bands for UI display.
type Strength uint8

const (
	// StrengthVeryWeak is an exported constant used by complexity scoring.
	StrengthVeryWeak Strength = iota
	// StrengthWeak is an exported constant used by complexity scoring.
	StrengthWeak
	// StrengthFair is an exported constant used by complexity scoring.
	StrengthFair
	// StrengthGood is an exported constant used by complexity scoring.
	StrengthGood
	// StrengthStrong is an exported constant used by complexity scoring.
	StrengthStrong
)

// String describes the strength bucket.
func (s Strength) String() string {
	switch s {
	case StrengthVeryWeak:
		return "very-weak"
	case StrengthWeak:
		return "weak"
	case StrengthFair:
		return "fair"
	case StrengthGood:
		return "good"
	default:
		return "strong"
	}
}

// Rules holds the configurable complexity constraints. Zero values fall
// back to the defaults applied by [NewPolicy].
type Rules struct {
	MinLength    int
	MaxLength    int
	MinUppercase int
	MinLowercase int
	MinDigits    int
	MinSpecial   int
	HistoryDepth int
	ExpiryDays   int
	Blocklist    []string
}

// UserInfo carries the identity fields a password must not contain.
type UserInfo struct {
	Email     string
	FirstName string
	LastName  string
}

// ComplexityResult is the structured outcome of a complexity check.
// Valid requires every hard constraint to pass regardless of Score;
// Feedback lists each violated rule so callers can surface per-field
// errors instead of a bare rejection.
type ComplexityResult struct {
	Valid    bool
	Score    int
	Strength Strength
	Feedback []string
}

// Policy validates password complexity, blocks reuse against history, and
// computes the expiration horizon. Hashing is delegated to the embedded
// [Hasher].
//
// Policy instances are intended to be configured during initialization and
// then treated as immutable unless documented otherwise.
type Policy struct {
	rules  Rules
	hasher *Hasher
}

// DefaultRules returns the rule set [NewPolicy] applies when callers leave
// a field zero.
func DefaultRules() Rules {
	return Rules{
		MinLength:    8,
		MaxLength:    128,
		HistoryDepth: 5,
		ExpiryDays:   90,
		Blocklist:    commonPasswords,
	}
}

// NewPolicy applies defaults to zero-valued rules and returns a Policy
// bound to the given hasher.
func NewPolicy(rules Rules, hasher *Hasher) *Policy {
	if rules.MinLength <= 0 {
		rules.MinLength = 8
	}
	if rules.MaxLength <= 0 {
		rules.MaxLength = 128
	}
	if rules.MinUppercase < 0 {
		rules.MinUppercase = 0
	}
	if rules.HistoryDepth <= 0 {
		rules.HistoryDepth = 5
	}
	if rules.ExpiryDays <= 0 {
		rules.ExpiryDays = 90
	}
	if rules.Blocklist == nil {
		rules.Blocklist = commonPasswords
	}

	return &Policy{rules: rules, hasher: hasher}
}

// ValidateComplexity checks password against every configured rule and
// returns structured feedback. info may be nil when no identity fields are
// available (e.g. admin-driven resets).
func (p *Policy) ValidateComplexity(password string, info *UserInfo) ComplexityResult {
	var (
		upper, lower, digits, special int
		feedback                      []string
	)

	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper++
		case unicode.IsLower(r):
			lower++
		case unicode.IsDigit(r):
			digits++
		default:
			special++
		}
	}

	length := len(password)
	if length < p.rules.MinLength {
		feedback = append(feedback, fmt.Sprintf("must be at least %d characters", p.rules.MinLength))
	}
	if length > p.rules.MaxLength {
		feedback = append(feedback, fmt.Sprintf("must be at most %d characters", p.rules.MaxLength))
	}
	if upper < p.rules.MinUppercase {
		feedback = append(feedback, fmt.Sprintf("must contain at least %d uppercase letters", p.rules.MinUppercase))
	}
	if lower < p.rules.MinLowercase {
		feedback = append(feedback, fmt.Sprintf("must contain at least %d lowercase letters", p.rules.MinLowercase))
	}
	if digits < p.rules.MinDigits {
		feedback = append(feedback, fmt.Sprintf("must contain at least %d digits", p.rules.MinDigits))
	}
	if special < p.rules.MinSpecial {
		feedback = append(feedback, fmt.Sprintf("must contain at least %d special characters", p.rules.MinSpecial))
	}
	if containsUserInfo(password, info) {
		feedback = append(feedback, "must not contain your name or email address")
	}
	if p.isBlocked(password) {
		feedback = append(feedback, "is too common; choose a less predictable password")
	}

	score := p.score(password, upper, lower, digits, special)

	return ComplexityResult{
		Valid:    len(feedback) == 0,
		Score:    score,
		Strength: strengthFor(score),
		Feedback: feedback,
	}
}

// Hash delegates to the hasher.
func (p *Policy) Hash(password string) (string, error) {
	return p.hasher.Hash(password)
}

// Verify delegates to the hasher.
func (p *Policy) Verify(password, encodedHash string) (bool, error) {
	return p.hasher.Verify(password, encodedHash)
}

// InHistory reports whether candidate matches any hash in history.
// Verification errors on corrupt entries are skipped: a damaged history
// entry must not block a password change.
func (p *Policy) InHistory(candidate string, history []string) bool {
	for _, h := range history {
		ok, err := p.hasher.Verify(candidate, h)
		if err != nil {
			continue
		}
		if ok {
			return true
		}
	}

	return false
}

// AppendHistory prepends newHash and truncates to the configured depth.
// The input slice is never mutated.
func (p *Policy) AppendHistory(newHash string, history []string) []string {
	out := make([]string, 0, len(history)+1)
	out = append(out, newHash)
	out = append(out, history...)

	if len(out) > p.rules.HistoryDepth {
		out = out[:p.rules.HistoryDepth]
	}

	return out
}

// ExpiresAt returns the policy expiration horizon for a password changed
// at the given time.
func (p *Policy) ExpiresAt(changedAt time.Time) time.Time {
	return changedAt.Add(time.Duration(p.rules.ExpiryDays) * 24 * time.Hour)
}

// HistoryDepth exposes the configured history bound.
func (p *Policy) HistoryDepth() int {
	return p.rules.HistoryDepth
}

func containsUserInfo(password string, info *UserInfo) bool {
	if info == nil {
		return false
	}

	lowered := strings.ToLower(password)

	pieces := make([]string, 0, 4)
	if info.Email != "" {
		local := info.Email
		if at := strings.IndexByte(local, '@'); at > 0 {
			local = local[:at]
		}
		pieces = append(pieces, local)
	}
	pieces = append(pieces, info.FirstName, info.LastName)

	for _, piece := range pieces {
		piece = strings.ToLower(strings.TrimSpace(piece))
		// Fragments shorter than 3 runes match too aggressively.
		if len(piece) < 3 {
			continue
		}
		if strings.Contains(lowered, piece) {
			return true
		}
	}

	return false
}

func (p *Policy) isBlocked(password string) bool {
	lowered := strings.ToLower(password)
	for _, blocked := range p.rules.Blocklist {
		if lowered == blocked {
			return true
		}
	}

	return false
}

// score is a weighted accumulation: length carries the most weight,
// character-class variety the rest. The score feeds Strength only; it
// never decides validity.
func (p *Policy) score(password string, upper, lower, digits, special int) int {
	score := 0

	length := len(password)
	switch {
	case length >= 16:
		score += 40
	case length >= 12:
		score += 30
	case length >= p.rules.MinLength:
		score += 20
	case length > 0:
		score += 5
	}

	if upper > 0 {
		score += 10
	}
	if lower > 0 {
		score += 10
	}
	if digits > 0 {
		score += 10
	}
	if special > 0 {
		score += 15
	}
	if upper > 1 && digits > 1 {
		score += 5
	}
	if special > 1 {
		score += 10
	}

	if p.isBlocked(password) {
		score = 0
	}

	return score
}

func strengthFor(score int) Strength {
	switch {
	case score >= 80:
		return StrengthStrong
	case score >= 60:
		return StrengthGood
	case score >= 40:
		return StrengthFair
	case score >= 20:
		return StrengthWeak
	default:
		return StrengthVeryWeak
	}
}
