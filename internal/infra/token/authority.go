package token

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"securepay/internal/domain"
)

const (
	Algorithm = "RS256"

	DefaultIssuer = "securepay"
	DefaultTTL    = 300 * time.Second

	claimClientID  = "clientId"
	claimIssuedAt  = "iat"
	claimExpiresAt = "exp"
	claimIssuer    = "iss"
)

var reservedClaims = map[string]struct{}{
	claimClientID:  {},
	claimIssuedAt:  {},
	claimExpiresAt: {},
	claimIssuer:    {},
}

// Authority issues and verifies RS256 bearer tokens with a fixed issuer and
// an absolute lifetime. It holds no mutable state and is safe for concurrent
// use.
type Authority struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	issuer     string
	ttl        time.Duration
	clock      func() time.Time
	parser     *jwt.Parser
}

type Option func(*Authority)

func WithClock(clock func() time.Time) Option {
	return func(a *Authority) {
		if clock != nil {
			a.clock = clock
		}
	}
}

func WithIssuer(issuer string) Option {
	return func(a *Authority) {
		if issuer = strings.TrimSpace(issuer); issuer != "" {
			a.issuer = issuer
		}
	}
}

func WithTTL(ttl time.Duration) Option {
	return func(a *Authority) {
		if ttl > 0 {
			a.ttl = ttl
		}
	}
}

// NewAuthority builds an authority from the auth keypair. Either half may be
// nil; Issue and Verify then fail with domain.ErrKeyMissing.
func NewAuthority(privateKey *rsa.PrivateKey, publicKey *rsa.PublicKey, opts ...Option) *Authority {
	a := &Authority{
		privateKey: privateKey,
		publicKey:  publicKey,
		issuer:     DefaultIssuer,
		ttl:        DefaultTTL,
		clock:      time.Now,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{Algorithm}),
			jwt.WithoutClaimsValidation(),
		),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Authority) TTL() time.Duration {
	return a.ttl
}

func (a *Authority) Issuer() string {
	return a.issuer
}

func (a *Authority) Issue(claims domain.Claims) (string, error) {
	if a == nil || a.privateKey == nil {
		return "", fmt.Errorf("auth private key: %w", domain.ErrKeyMissing)
	}
	now := a.clock()
	body := jwt.MapClaims{}
	for key, value := range claims.Extra {
		if _, reserved := reservedClaims[key]; reserved {
			continue
		}
		body[key] = value
	}
	body[claimClientID] = claims.ClientID
	body[claimIssuedAt] = jwt.NewNumericDate(now)
	body[claimExpiresAt] = jwt.NewNumericDate(now.Add(a.ttl))
	body[claimIssuer] = a.issuer

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, body).SignedString(a.privateKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, algorithm, issuer and expiry, in that order. A
// token whose signature does not verify is invalid even if it is also past
// its expiry.
func (a *Authority) Verify(tokenString string) (domain.Claims, error) {
	if a == nil || a.publicKey == nil {
		return domain.Claims{}, fmt.Errorf("auth public key: %w", domain.ErrKeyMissing)
	}
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return domain.Claims{}, invalid(errors.New("empty token"))
	}

	raw := jwt.MapClaims{}
	_, err := a.parser.ParseWithClaims(tokenString, raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		if typ, ok := t.Header["typ"].(string); ok && typ != "" && !strings.EqualFold(typ, "JWT") {
			return nil, fmt.Errorf("unexpected token type %q", typ)
		}
		return a.publicKey, nil
	})
	if err != nil {
		return domain.Claims{}, invalid(err)
	}

	if iss, _ := raw.GetIssuer(); iss != a.issuer {
		return domain.Claims{}, invalid(errors.New("issuer mismatch"))
	}
	exp, err := raw.GetExpirationTime()
	if err != nil || exp == nil {
		return domain.Claims{}, invalid(errors.New("exp claim required"))
	}
	clientID, _ := raw[claimClientID].(string)
	if clientID == "" {
		return domain.Claims{}, invalid(errors.New("clientId claim required"))
	}
	if !a.clock().Before(exp.Time) {
		return domain.Claims{}, fmt.Errorf("%w: expired at %s", domain.ErrTokenExpired, exp.Time.UTC().Format(time.RFC3339))
	}

	claims := domain.Claims{
		ClientID:  clientID,
		ExpiresAt: exp.Time,
		Issuer:    a.issuer,
	}
	if iat, err := raw.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}
	for key, value := range raw {
		if _, reserved := reservedClaims[key]; reserved {
			continue
		}
		if claims.Extra == nil {
			claims.Extra = make(map[string]any)
		}
		claims.Extra[key] = value
	}
	return claims, nil
}

func invalid(cause error) error {
	return fmt.Errorf("%w: %v", domain.ErrTokenInvalid, cause)
}
