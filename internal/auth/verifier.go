package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
)

// Verification failure modes.
var (
	ErrInvalidToken    = errors.New("invalid token")
	ErrInvalidClaims   = errors.New("invalid token claims")
	ErrInvalidAudience = errors.New("invalid token audience")
	ErrInvalidIssuer   = errors.New("invalid token issuer")
	ErrMissingSubject  = errors.New("token missing sub claim")
)

// Verifier validates bearer tokens against the identity provider's JWKS.
// It never issues tokens and holds no local credentials.
type Verifier struct {
	keyFunc  jwt.Keyfunc
	jwks     *keyfunc.JWKS
	audience string
	issuer   string
}

// NewVerifier fetches the JWKS and returns a Verifier. The key set
// refreshes in the background until Close is called.
func NewVerifier(ctx context.Context, jwksURL, audience, issuer string) (*Verifier, error) {
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		Ctx:               ctx,
		RefreshInterval:   time.Hour,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch jwks: %w", err)
	}

	return &Verifier{
		keyFunc:  jwks.Keyfunc,
		jwks:     jwks,
		audience: audience,
		issuer:   issuer,
	}, nil
}

// NewVerifierWithKeyfunc builds a Verifier around a caller-supplied key
// function instead of a remote JWKS.
func NewVerifierWithKeyfunc(kf jwt.Keyfunc, audience, issuer string) *Verifier {
	return &Verifier{
		keyFunc:  kf,
		audience: audience,
		issuer:   issuer,
	}
}

// Verify parses and validates a raw bearer token and returns the caller's
// principal.
func (v *Verifier) Verify(ctx context.Context, raw string) (*Principal, error) {
	token, err := jwt.Parse(raw, v.keyFunc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidClaims
	}
	if v.audience != "" && !claims.VerifyAudience(v.audience, true) {
		return nil, ErrInvalidAudience
	}
	if v.issuer != "" && !claims.VerifyIssuer(v.issuer, true) {
		return nil, ErrInvalidIssuer
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return nil, ErrMissingSubject
	}

	p := &Principal{Subject: sub}
	if email, ok := claims["email"].(string); ok {
		p.Email = email
	}
	if name, ok := claims["name"].(string); ok {
		p.Name = name
	}
	return p, nil
}

// Close stops the background JWKS refresh, if any.
func (v *Verifier) Close() {
	if v.jwks != nil {
		v.jwks.EndBackground()
	}
}
