package session

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheUnavailable wraps every connectivity, timeout or protocol failure
// reported by Redis.
var ErrCacheUnavailable = errors.New("session cache unavailable")

// ErrRefreshMismatch is returned when the stored refresh token is absent or
// differs from the presented one. The two cases are not distinguishable.
var ErrRefreshMismatch = errors.New("refresh token mismatch")

// RevokedMarker is the value stored under revocation keys.
const RevokedMarker = "logout"

const (
	// DefaultSessionPrefix namespaces refresh-token records.
	DefaultSessionPrefix = "session"
	// DefaultRevokedPrefix namespaces revoked access tokens.
	DefaultRevokedPrefix = "revoked"
	// DefaultOperationTimeout bounds each cache round trip.
	DefaultOperationTimeout = 500 * time.Millisecond
)

const (
	rotateStatusMissing  int64 = 0
	rotateStatusMismatch int64 = 1
	rotateStatusRotated  int64 = 2
)

const rotateRefreshScript = `
local current = redis.call("GET", KEYS[1])
if not current then
  return 0
end
if current ~= ARGV[1] then
  return 1
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 2
`

var rotateRefreshLua = redis.NewScript(rotateRefreshScript)

// Options configures a [Store]. Zero values fall back to the defaults above.
type Options struct {
	SessionPrefix    string
	RevokedPrefix    string
	OperationTimeout time.Duration
}

// Store is the Redis-backed session cache. It holds one refresh token per
// member and a revocation marker per logged-out access token.
type Store struct {
	redis         redis.UniversalClient
	sessionPrefix string
	revokedPrefix string
	timeout       time.Duration
}

// NewStore creates a session [Store] backed by the given Redis client.
func NewStore(rdb redis.UniversalClient, opts Options) *Store {
	if opts.SessionPrefix == "" {
		opts.SessionPrefix = DefaultSessionPrefix
	}
	if opts.RevokedPrefix == "" {
		opts.RevokedPrefix = DefaultRevokedPrefix
	}
	if opts.OperationTimeout <= 0 {
		opts.OperationTimeout = DefaultOperationTimeout
	}
	return &Store{
		redis:         rdb,
		sessionPrefix: opts.SessionPrefix,
		revokedPrefix: opts.RevokedPrefix,
		timeout:       opts.OperationTimeout,
	}
}

// SessionKey returns the key holding memberID's refresh token.
func (s *Store) SessionKey(memberID string) string {
	return s.sessionPrefix + ":" + memberID
}

// RevokedKey returns the revocation key for an access token.
func (s *Store) RevokedKey(accessToken string) string {
	return s.revokedPrefix + ":" + accessToken
}

func (s *Store) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
}

// Get returns the value at key. found is false when the key does not exist.
func (s *Store) Get(ctx context.Context, key string) (value string, found bool, err error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	value, err = s.redis.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, unavailable(err)
	}
	return value, true, nil
}

// Set stores value at key with the given TTL. A non-positive TTL stores the
// key without expiry.
func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	if err := s.redis.Set(ctx, key, value, ttl).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	if err := s.redis.Del(ctx, key).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// RemainingTTL reports how long key has left. found is false when the key
// does not exist; a key without expiry reports a negative duration.
func (s *Store) RemainingTTL(ctx context.Context, key string) (ttl time.Duration, found bool, err error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	ttl, err = s.redis.PTTL(ctx, key).Result()
	if err != nil {
		return 0, false, unavailable(err)
	}
	// go-redis reports -2 (missing) and -1 (no expiry) unscaled.
	if ttl == -2 {
		return 0, false, nil
	}
	return ttl, true, nil
}

// PutRefreshToken stores token as memberID's only refresh token, replacing
// any previous one.
//
//	Performance: 1 Redis SET.
func (s *Store) PutRefreshToken(ctx context.Context, memberID, token string, ttl time.Duration) error {
	return s.Set(ctx, s.SessionKey(memberID), token, ttl)
}

// CompareRefreshToken returns nil only when the stored refresh token for
// memberID equals provided. A missing record and a different token both
// yield [ErrRefreshMismatch].
//
//	Performance: 1 Redis GET.
func (s *Store) CompareRefreshToken(ctx context.Context, memberID, provided string) error {
	stored, found, err := s.Get(ctx, s.SessionKey(memberID))
	if err != nil {
		return err
	}
	if !found || !tokensEqual(stored, provided) {
		return ErrRefreshMismatch
	}
	return nil
}

// DeleteRefreshToken removes memberID's refresh token if present.
func (s *Store) DeleteRefreshToken(ctx context.Context, memberID string) error {
	return s.Delete(ctx, s.SessionKey(memberID))
}

// RotateRefreshToken atomically replaces memberID's refresh token with next,
// but only if the stored value equals provided. Concurrent callers presenting
// the same token see exactly one success.
//
//	Performance: 1 Lua EVALSHA (atomic compare-and-swap).
func (s *Store) RotateRefreshToken(ctx context.Context, memberID, provided, next string, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("rotation requires a positive ttl")
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	status, err := rotateRefreshLua.Run(
		ctx,
		s.redis,
		[]string{s.SessionKey(memberID)},
		provided,
		next,
		ttl.Milliseconds(),
	).Int64()
	if err != nil {
		return unavailable(err)
	}

	switch status {
	case rotateStatusRotated:
		return nil
	case rotateStatusMissing, rotateStatusMismatch:
		return ErrRefreshMismatch
	default:
		return fmt.Errorf("%w: unknown rotate script status %d", ErrCacheUnavailable, status)
	}
}

// RevokeAccessToken records token as revoked for ttl, which callers set to
// the token's remaining lifetime. A non-positive ttl writes nothing: an
// already expired token needs no marker.
func (s *Store) RevokeAccessToken(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return s.Set(ctx, s.RevokedKey(token), RevokedMarker, ttl)
}

// IsRevoked reports whether a revocation marker exists for token.
//
//	Performance: 1 Redis EXISTS.
func (s *Store) IsRevoked(ctx context.Context, token string) (bool, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	n, err := s.redis.Exists(ctx, s.RevokedKey(token)).Result()
	if err != nil {
		return false, unavailable(err)
	}
	return n > 0, nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), unavailable(err)
	}
	return time.Since(start), nil
}

// tokensEqual compares fixed-size digests so timing does not depend on
// where the inputs first differ or on their lengths.
func tokensEqual(a, b string) bool {
	ha := sha256.Sum256([]byte(a))
	hb := sha256.Sum256([]byte(b))
	return subtle.ConstantTimeCompare(ha[:], hb[:]) == 1
}
