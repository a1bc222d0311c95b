// Package auth verifies bearer tokens issued by an external identity
// provider and carries the resulting principal through request contexts.
package auth

import "context"

// Principal is the authenticated caller extracted from a verified token.
type Principal struct {
	Subject string
	Email   string
	Name    string
}

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const principalContextKey contextKey = "auth_principal"

// ContextWithPrincipal adds a Principal to the context.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// PrincipalFromContext retrieves the Principal from the context.
// Returns nil if not present.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, ok := ctx.Value(principalContextKey).(*Principal)
	if !ok {
		return nil
	}
	return p
}

// SubjectFromContext is a convenience function to get the caller's subject.
// Returns empty string if not authenticated.
func SubjectFromContext(ctx context.Context) string {
	p := PrincipalFromContext(ctx)
	if p == nil {
		return ""
	}
	return p.Subject
}
