package auth

import (
	"time"

	"github.com/hms/hms/internal/platform/cache"
)

const revokedKeyPrefix = "revoked"

// TokenRevocationStore tracks revoked token IDs (JWT "jti" claims). Entries
// live in a TTL cache and disappear once the token would have expired on
// its own, since a naturally expired token is rejected anyway.
type TokenRevocationStore struct {
	entries *cache.Cache[string]
	now     func() time.Time
}

// NewTokenRevocationStore wraps entries, which the caller owns and sweeps.
func NewTokenRevocationStore(entries *cache.Cache[string]) *TokenRevocationStore {
	return &TokenRevocationStore{entries: entries, now: time.Now}
}

// Revoke marks jti as revoked until expiresAt and reports whether this call
// did it. Check and mark happen under one cache lock, so of several
// concurrent callers exactly one wins. Empty or already expired tokens are
// not recorded.
func (s *TokenRevocationStore) Revoke(jti, userID string, expiresAt time.Time) bool {
	ttl := expiresAt.Sub(s.now())
	if jti == "" || ttl <= 0 {
		return false
	}
	return s.entries.SetIfAbsent(revokedKey(jti), userID, ttl)
}

// IsRevoked reports whether jti has been revoked.
func (s *TokenRevocationStore) IsRevoked(jti string) bool {
	_, ok := s.entries.Get(revokedKey(jti))
	return ok
}

// Count returns the number of tracked revocations.
func (s *TokenRevocationStore) Count() int {
	return s.entries.Len()
}

func revokedKey(jti string) string {
	return revokedKeyPrefix + ":" + jti
}
