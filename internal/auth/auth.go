// Package auth resolves bearer tokens to principals with scoped access.
// The single api_key from the config acts as an admin credential; the
// optional token list carries per-resource scopes like "agent:ro".
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

// TokenConfig is a bearer token with a set of scopes.
type TokenConfig struct {
	Token  string
	Scopes []string
}

// ScopeSet is the normalized scope lookup for a principal. The "*"
// scope grants everything.
type ScopeSet map[string]struct{}

func (s ScopeSet) has(scope string) bool {
	_, ok := s[scope]
	return ok
}

// Principal is an authenticated caller.
type Principal struct {
	Token  string
	Scopes ScopeSet
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// ExtractBearerToken pulls the token out of the Authorization header.
func ExtractBearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errors.New("missing Authorization header")
	}
	rest, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", errors.New("invalid Authorization header format")
	}
	token := strings.TrimSpace(rest)
	if token == "" {
		return "", errors.New("missing API key")
	}
	return token, nil
}

func constantTimeEqual(a, b string) bool {
	if a == "" || b == "" || len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Authenticate matches a presented bearer token against the admin key
// and the scoped token list. The admin key yields scope "*".
func Authenticate(presented, apiKey string, tokens []TokenConfig) (Principal, bool) {
	if constantTimeEqual(presented, apiKey) {
		return Principal{Token: presented, Scopes: ScopeSet{"*": {}}}, true
	}
	for _, t := range tokens {
		if constantTimeEqual(presented, t.Token) {
			return Principal{Token: presented, Scopes: normalizeScopes(t.Scopes)}, true
		}
	}
	return Principal{}, false
}

// normalizeScopes builds the scope set, expanding "resource:rw" to also
// grant "resource:ro".
func normalizeScopes(scopes []string) ScopeSet {
	out := make(ScopeSet, len(scopes))
	for _, s := range scopes {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out[s] = struct{}{}
		if resource, ok := strings.CutSuffix(s, ":rw"); ok {
			out[resource+":ro"] = struct{}{}
		}
	}
	return out
}

// HasAnyScope reports whether the principal holds at least one of the
// required scopes. No required scopes means the route is open to any
// authenticated caller.
func HasAnyScope(p Principal, required ...string) bool {
	if len(required) == 0 || p.Scopes.has("*") {
		return true
	}
	for _, s := range required {
		if p.Scopes.has(s) {
			return true
		}
	}
	return false
}
