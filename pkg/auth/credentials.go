package auth

import (
	"net/http"
	"strings"

	"github.com/EnvSync-Cloud/envsync-api/pkg/apperrors"
)

// ExtractCredential picks exactly one credential from the request.
// Precedence: bearer token (Authorization header, then access_token query
// param, then access_token cookie), then API key (X-API-Key header, then
// api_key query param). When both kinds are present the token wins.
func ExtractCredential(r *http.Request) (Credential, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			return Credential{}, apperrors.Authentication("invalid authorization header format")
		}
		return Credential{Type: CredentialToken, Value: parts[1]}, nil
	}

	if token := r.URL.Query().Get("access_token"); token != "" {
		return Credential{Type: CredentialToken, Value: token}, nil
	}

	if cookie, err := r.Cookie("access_token"); err == nil && cookie.Value != "" {
		return Credential{Type: CredentialToken, Value: cookie.Value}, nil
	}

	if key := r.Header.Get("X-API-Key"); key != "" {
		return Credential{Type: CredentialAPIKey, Value: key}, nil
	}

	if key := r.URL.Query().Get("api_key"); key != "" {
		return Credential{Type: CredentialAPIKey, Value: key}, nil
	}

	return Credential{}, apperrors.Authentication("missing credentials")
}
