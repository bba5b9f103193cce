// Package auth verifies identities issued by the external auth provider
// (Supabase) and talks to its admin API.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/model"
)

// ErrInvalidToken is returned for tokens that fail signature, expiry or
// claim checks.
var ErrInvalidToken = errors.New("invalid token")

// appMetadata is the provider-controlled claim block. Users cannot edit it,
// so it is the only place the administrator flag is read from.
type appMetadata struct {
	Role    string `json:"role"`
	IsAdmin bool   `json:"is_admin"`
}

type claims struct {
	Email        string         `json:"email"`
	AppMetadata  appMetadata    `json:"app_metadata"`
	UserMetadata map[string]any `json:"user_metadata"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 access tokens signed with the project JWT secret.
type Verifier struct {
	secret    []byte
	adminRole string
}

// NewVerifier constructs a Verifier. Besides the is_admin flag, an
// app_metadata role equal to adminRole grants admin access.
func NewVerifier(secret, adminRole string) *Verifier {
	return &Verifier{secret: []byte(secret), adminRole: adminRole}
}

// Verify parses the token and returns the caller identity.
func (v *Verifier) Verify(token string) (*model.Identity, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return &model.Identity{
		UserID:  c.Subject,
		Email:   strings.ToLower(c.Email),
		Name:    displayName(c.UserMetadata),
		IsAdmin: c.AppMetadata.IsAdmin || (v.adminRole != "" && c.AppMetadata.Role == v.adminRole),
	}, nil
}

func displayName(meta map[string]any) string {
	for _, key := range []string{"full_name", "name"} {
		if s, ok := meta[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

type ctxKey struct{}

// WithIdentity stores the caller identity in the context.
func WithIdentity(ctx context.Context, id *model.Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the caller identity, or nil for anonymous requests.
func FromContext(ctx context.Context) *model.Identity {
	id, _ := ctx.Value(ctxKey{}).(*model.Identity)
	return id
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}
