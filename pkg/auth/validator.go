package auth

import (
	"context"
	"net/http"

	"github.com/EnvSync-Cloud/envsync-api/pkg/observability"
)

// Validator turns a request into an authenticated user id.
// It owns nothing beyond validation: role resolution happens separately so
// the two pipeline stages stay independently testable.
type Validator struct {
	verifier TokenVerifier
	store    *Store
	metrics  *observability.Metrics
}

// NewValidator creates a credential validator
func NewValidator(verifier TokenVerifier, store *Store, metrics *observability.Metrics) *Validator {
	return &Validator{verifier: verifier, store: store, metrics: metrics}
}

// Validate extracts and checks the request credential, returning the user id
// and which credential kind authenticated it
func (v *Validator) Validate(ctx context.Context, r *http.Request) (string, CredentialType, error) {
	cred, err := ExtractCredential(r)
	if err != nil {
		v.count("none", "rejected")
		return "", "", err
	}

	switch cred.Type {
	case CredentialToken:
		subject, err := v.verifier.Subject(ctx, cred.Value)
		if err != nil {
			v.count("token", "rejected")
			return "", "", err
		}
		userID, err := v.store.UserIDByExternalID(ctx, subject)
		if err != nil {
			v.count("token", "rejected")
			return "", "", err
		}
		v.count("token", "accepted")
		return userID, CredentialToken, nil

	default:
		userID, err := v.store.UserIDByAPIKey(ctx, cred.Value)
		if err != nil {
			v.count("api_key", "rejected")
			return "", "", err
		}
		v.count("api_key", "accepted")
		return userID, CredentialAPIKey, nil
	}
}

func (v *Validator) count(credential, outcome string) {
	if v.metrics != nil {
		v.metrics.AuthAttempts.WithLabelValues(credential, outcome).Inc()
	}
}
