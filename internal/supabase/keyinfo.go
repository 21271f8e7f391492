package supabase

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// KeyInfo is what an unverified decode of a Supabase API key reveals.
// Supabase keys are JWTs whose "role" claim decides which row-level
// security policies apply.
type KeyInfo struct {
	Role      string
	ProjectID string
	ExpiresAt time.Time
}

// Expired reports whether the key's exp claim is in the past.
func (k KeyInfo) Expired(now time.Time) bool {
	return !k.ExpiresAt.IsZero() && k.ExpiresAt.Before(now)
}

// InspectKey decodes the key as a JWT without verifying its signature.
// Verification is impossible client-side (the signing secret stays in the
// project), but the claims are enough to catch an expired key or a
// non-anon role before making any network call.
func InspectKey(key string) (KeyInfo, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(key, claims); err != nil {
		return KeyInfo{}, fmt.Errorf("decode api key: %w", err)
	}

	info := KeyInfo{}
	if role, ok := claims["role"].(string); ok {
		info.Role = role
	}
	if ref, ok := claims["ref"].(string); ok {
		info.ProjectID = ref
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}
	return info, nil
}
