package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/boardAuth/clock"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MinSecretLength is the shortest HMAC secret NewManager accepts.
const MinSecretLength = 32

// Config holds the codec settings. Secret is the single shared HS256 key.
type Config struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string
	Leeway     time.Duration
	Clock      clock.Clock
}

// Manager issues and verifies access and refresh tokens.
//
// Manager instances are intended to be configured during initialization and then treated as immutable.
type Manager struct {
	config Config
	clock  clock.Clock
	method jwt.SigningMethod
}

// Pair is the result of a single issuance of both token kinds.
type Pair struct {
	Access        string
	Refresh       string
	AccessClaims  *Claims
	RefreshClaims *Claims
}

// NewManager validates cfg and returns a ready codec.
//
// NewManager may return an error when input validation fails.
// NewManager does not mutate shared global state.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, fmt.Errorf("hs256 secret must be at least %d bytes", MinSecretLength)
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.RefreshTTL <= cfg.AccessTTL {
		return nil, errors.New("refresh TTL must exceed access TTL")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	cfg.Issuer = strings.TrimSpace(cfg.Issuer)
	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)
	cfg.Secret = secret

	return &Manager{
		config: cfg,
		clock:  clock.OrSystem(cfg.Clock),
		method: jwt.SigningMethodHS256,
	}, nil
}

// Leeway returns the clock skew tolerated past exp.
func (j *Manager) Leeway() time.Duration {
	return j.config.Leeway
}

// TTL returns the configured lifetime for kind.
func (j *Manager) TTL(kind Kind) time.Duration {
	if kind == KindRefresh {
		return j.config.RefreshTTL
	}
	return j.config.AccessTTL
}

// Issue signs a token of the given kind for the member. iat and exp come from
// the injected clock. Authorities are dropped for refresh tokens.
// Issue may return an error when the kind is unknown or signing fails.
func (j *Manager) Issue(subject, memberID string, authorities []string, kind Kind) (string, *Claims, error) {
	if !kind.Valid() {
		return "", nil, fmt.Errorf("unknown token kind %q", kind)
	}
	if memberID == "" {
		return "", nil, errors.New("member id is required")
	}

	now := j.clock.Now()
	claims := &Claims{
		MemberID: memberID,
		Kind:     kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.TTL(kind))),
			Issuer:    j.config.Issuer,
		},
	}
	if kind == KindAccess && len(authorities) > 0 {
		claims.Authorities = append([]string(nil), authorities...)
	}

	signed, err := jwt.NewWithClaims(j.method, claims).SignedString(j.config.Secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// IssuePair signs a fresh access token and refresh token for the member.
func (j *Manager) IssuePair(subject, memberID string, authorities []string) (Pair, error) {
	access, accessClaims, err := j.Issue(subject, memberID, authorities, KindAccess)
	if err != nil {
		return Pair{}, err
	}
	refresh, refreshClaims, err := j.Issue(subject, memberID, nil, KindRefresh)
	if err != nil {
		return Pair{}, err
	}
	return Pair{
		Access:        access,
		Refresh:       refresh,
		AccessClaims:  accessClaims,
		RefreshClaims: refreshClaims,
	}, nil
}

// Verify checks structure, algorithm, signature and expiry. It never touches
// any session state.
//
// Every failure is a *VerifyError.
func (j *Manager) Verify(tokenStr string) (*Claims, error) {
	return j.parse(tokenStr, true)
}

// VerifyKind is Verify followed by a kind check. A token of the other kind is
// reported as malformed.
func (j *Manager) VerifyKind(tokenStr string, kind Kind) (*Claims, error) {
	claims, err := j.Verify(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.Kind != kind {
		return nil, malformed(fmt.Errorf("expected %s token, got %s", kind, claims.Kind))
	}
	return claims, nil
}

// ExtractClaimsIgnoringExpiry runs the same structure, algorithm and
// signature checks as Verify but does not enforce exp. It never reports
// FailureExpired.
func (j *Manager) ExtractClaimsIgnoringExpiry(tokenStr string) (*Claims, error) {
	return j.parse(tokenStr, false)
}

func (j *Manager) parse(tokenStr string, enforceExpiry bool) (*Claims, error) {
	if tokenStr == "" {
		return nil, malformed(errors.New("empty token"))
	}
	// Revocation markers are keyed by the exact string, so only the
	// canonical encoding may verify.
	if strings.TrimSpace(tokenStr) != tokenStr {
		return nil, malformed(errors.New("token has surrounding whitespace"))
	}
	if err := j.checkHeader(tokenStr); err != nil {
		return nil, err
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{j.method.Alg()}),
		jwt.WithoutClaimsValidation(),
		jwt.WithStrictDecoding(),
	)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != j.method.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return j.config.Secret, nil
	})
	if err != nil {
		return nil, classifyParseError(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, malformed(jwt.ErrTokenInvalidClaims)
	}
	if !claims.Kind.Valid() {
		return nil, malformed(fmt.Errorf("unknown token kind %q", claims.Kind))
	}
	if claims.MemberID == "" {
		return nil, malformed(errors.New("missing member id"))
	}
	if j.config.Issuer != "" && claims.Issuer != j.config.Issuer {
		return nil, malformed(jwt.ErrTokenInvalidIssuer)
	}

	if enforceExpiry {
		if err := j.validator().Validate(claims); err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return nil, expired(err)
			}
			return nil, malformed(err)
		}
	}

	return claims, nil
}

func (j *Manager) validator() *jwt.Validator {
	opts := []jwt.ParserOption{
		jwt.WithTimeFunc(j.clock.Now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if j.config.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(j.config.Leeway))
	}
	return jwt.NewValidator(opts...)
}

// checkHeader separates tokens signed with a foreign algorithm from
// tokens that cannot be decoded at all.
func (j *Manager) checkHeader(tokenStr string) error {
	token, _, err := jwt.NewParser(jwt.WithStrictDecoding()).ParseUnverified(tokenStr, &Claims{})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenUnverifiable) {
			return unsupported(err)
		}
		return malformed(err)
	}
	if typ, ok := token.Header["typ"]; ok {
		if s, _ := typ.(string); !strings.EqualFold(s, "JWT") {
			return unsupported(fmt.Errorf("unsupported token type %v", typ))
		}
	}
	if token.Method == nil || token.Method.Alg() != j.method.Alg() {
		alg, _ := token.Header["alg"].(string)
		return unsupported(fmt.Errorf("unsupported signing algorithm %q", alg))
	}
	return nil
}

func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return malformed(err)
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return unsupported(err)
	default:
		return malformed(err)
	}
}
