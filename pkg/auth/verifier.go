package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/EnvSync-Cloud/envsync-api/pkg/apperrors"
)

// TokenVerifier checks a raw identity token and returns its subject claim
type TokenVerifier interface {
	Subject(ctx context.Context, rawToken string) (string, error)
}

// OIDCVerifier verifies tokens against the identity provider's JWKS,
// discovered from the issuer's well-known document.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// OIDCConfig holds the verifier settings
type OIDCConfig struct {
	IssuerURL string
	Audience  string
}

// NewOIDCVerifier discovers the provider and builds a verifier.
// The provider's key set is fetched lazily and cached, keyed by the kid of
// each presented token.
func NewOIDCVerifier(ctx context.Context, cfg OIDCConfig) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}

	verifier := provider.Verifier(&oidc.Config{
		ClientID: cfg.Audience,
	})

	return &OIDCVerifier{verifier: verifier}, nil
}

// Subject verifies the token and returns its sub claim. Malformed tokens
// are rejected before any cryptographic work.
func (v *OIDCVerifier) Subject(ctx context.Context, rawToken string) (string, error) {
	if strings.Count(rawToken, ".") != 2 {
		return "", apperrors.Authentication("malformed token")
	}

	token, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindAuthentication, "token verification failed", err)
	}

	if token.Subject == "" {
		return "", apperrors.Authentication("token has no subject")
	}
	return token.Subject, nil
}
