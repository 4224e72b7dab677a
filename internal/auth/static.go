// Package auth supplies the bearer credential of the signed-in user.
package auth

import (
	"context"

	"github.com/hammamikhairi/guidedcook/internal/domain"
)

// Compile-time interface check.
var _ domain.AuthProvider = StaticProvider{}

// StaticProvider returns a fixed credential, typically from config.
type StaticProvider struct {
	cred domain.Credential
}

// Static creates a provider for token and userID.
func Static(token, userID string) StaticProvider {
	return StaticProvider{cred: domain.Credential{Token: token, UserID: userID}}
}

// Credential returns the configured credential, or ErrMissingCredential
// when no token is set.
func (p StaticProvider) Credential(ctx context.Context) (domain.Credential, error) {
	if p.cred.Token == "" {
		return domain.Credential{}, domain.ErrMissingCredential
	}
	return p.cred, nil
}
