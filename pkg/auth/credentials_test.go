package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/EnvSync-Cloud/envsync-api/pkg/apperrors"
)

func TestExtractCredential(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(r *http.Request)
		wantType  CredentialType
		wantValue string
		wantErr   bool
	}{
		{
			name:      "bearer header",
			setup:     func(r *http.Request) { r.Header.Set("Authorization", "Bearer tok-1") },
			wantType:  CredentialToken,
			wantValue: "tok-1",
		},
		{
			name:    "malformed header",
			setup:   func(r *http.Request) { r.Header.Set("Authorization", "Basic abc") },
			wantErr: true,
		},
		{
			name:      "query token",
			setup:     func(r *http.Request) { r.URL.RawQuery = "access_token=tok-2" },
			wantType:  CredentialToken,
			wantValue: "tok-2",
		},
		{
			name:      "cookie token",
			setup:     func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "access_token", Value: "tok-3"}) },
			wantType:  CredentialToken,
			wantValue: "tok-3",
		},
		{
			name:      "api key header",
			setup:     func(r *http.Request) { r.Header.Set("X-API-Key", "eVs_secret") },
			wantType:  CredentialAPIKey,
			wantValue: "eVs_secret",
		},
		{
			name:      "api key query",
			setup:     func(r *http.Request) { r.URL.RawQuery = "api_key=eVs_other" },
			wantType:  CredentialAPIKey,
			wantValue: "eVs_other",
		},
		{
			name: "token wins over api key",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer tok-4")
				r.Header.Set("X-API-Key", "eVs_secret")
			},
			wantType:  CredentialToken,
			wantValue: "tok-4",
		},
		{
			name: "header token wins over query token",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer header-tok")
				r.URL.RawQuery = "access_token=query-tok"
			},
			wantType:  CredentialToken,
			wantValue: "header-tok",
		},
		{
			name:    "no credential",
			setup:   func(r *http.Request) {},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/env", nil)
			tt.setup(r)

			cred, err := ExtractCredential(r)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if !apperrors.IsAuthentication(err) {
					t.Errorf("error kind = %v, want authentication", apperrors.KindOf(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractCredential: %v", err)
			}
			if cred.Type != tt.wantType || cred.Value != tt.wantValue {
				t.Errorf("got %s/%q, want %s/%q", cred.Type, cred.Value, tt.wantType, tt.wantValue)
			}
		})
	}
}
