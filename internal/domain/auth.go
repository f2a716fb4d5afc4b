package domain

import "time"

// TokenIssuer mints signed, time-bound bearer tokens.
type TokenIssuer interface {
	Issue(claims Claims) (string, error)
	TTL() time.Duration
}

// TokenVerifier checks a bearer token and returns its claims. Failures wrap
// ErrTokenExpired or ErrTokenInvalid.
type TokenVerifier interface {
	Verify(token string) (Claims, error)
}
