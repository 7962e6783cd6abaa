// Package auth implements credential validation and per-request identity
// resolution. A request becomes AUTHENTICATED when exactly one credential
// maps to a user id, and AUTHORIZED once the user's role snapshot passes the
// route's policy requirement.
package auth

import (
	"context"
	"net/http"

	"github.com/EnvSync-Cloud/envsync-api/pkg/contextkeys"
	"github.com/EnvSync-Cloud/envsync-api/pkg/rbac"
)

// CredentialType distinguishes the two accepted credential kinds
type CredentialType string

const (
	CredentialToken  CredentialType = "token"
	CredentialAPIKey CredentialType = "api_key"
)

// Credential is a raw credential extracted from a request
type Credential struct {
	Type  CredentialType
	Value string
}

// Context is the immutable authenticated identity for one request.
// It is resolved fresh per request; role edits take effect on the next one.
type Context struct {
	UserID   string
	OrgID    string
	RoleID   string
	RoleName string
	Perms    rbac.PermissionSnapshot

	// Credential records how the caller authenticated
	Credential CredentialType
}

// FromContext retrieves the auth context, or nil when the request is
// unauthenticated
func FromContext(ctx context.Context) *Context {
	value := ctx.Value(contextkeys.AuthKey)
	if value == nil {
		return nil
	}
	authCtx, ok := value.(*Context)
	if !ok {
		return nil
	}
	return authCtx
}

// FromRequest retrieves the auth context from an HTTP request
func FromRequest(r *http.Request) *Context {
	return FromContext(r.Context())
}
