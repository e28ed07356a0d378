package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotJWT is returned by Claims for opaque (non-JWT) tokens.
var ErrNotJWT = errors.New("token is not a JWT")

// TokenClaims is the subset of JWT claims shown by `drivectl status`.
// The signature is not verified; the server remains the only authority.
type TokenClaims struct {
	Subject   string
	UserID    string
	Username  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the token carries an expiry that has passed.
func (c TokenClaims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// ParseClaims decodes display-only claims from a JWT without verifying it.
func ParseClaims(token string) (TokenClaims, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	parsed, _, err := parser.ParseUnverified(NormalizeToken(token), jwt.MapClaims{})
	if err != nil {
		return TokenClaims{}, ErrNotJWT
	}

	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return TokenClaims{}, ErrNotJWT
	}

	var out TokenClaims
	out.Subject, _ = mc.GetSubject()
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		out.IssuedAt = iat.Time
	}
	// Common backends put the user id under "id", "userId" or "_id"
	for _, key := range []string{"id", "userId", "_id"} {
		if v, ok := mc[key].(string); ok && v != "" {
			out.UserID = v
			break
		}
	}
	if v, ok := mc["username"].(string); ok {
		out.Username = v
	}
	return out, nil
}

// Claims decodes the current token. Returns ErrEmptyToken when logged out.
func (s *Store) Claims() (TokenClaims, error) {
	token, ok := s.CurrentToken()
	if !ok {
		return TokenClaims{}, ErrEmptyToken
	}
	return ParseClaims(token)
}
