// Package onboarding implements invite-driven signup: an org invite grows
// into a whole organization (default roles, default environment types, an
// admin bound to the master role), and user invites add members to an
// existing org.
package onboarding

import (
	"context"
	"time"

	"github.com/EnvSync-Cloud/envsync-api/pkg/orgs"
	"github.com/EnvSync-Cloud/envsync-api/pkg/rbac"
	"github.com/EnvSync-Cloud/envsync-api/pkg/users"
)

// OrgInvite is a pending organization signup
type OrgInvite struct {
	ID        string                 `json:"id"`
	Email     string                 `json:"email"`
	Token     string                 `json:"invite_token"`
	Accepted  bool                   `json:"accepted"`
	OrgData   map[string]interface{} `json:"org_data,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// UserInvite is a pending member addition to an existing org
type UserInvite struct {
	ID        string    `json:"id"`
	OrgID     string    `json:"org_id"`
	Email     string    `json:"email"`
	RoleID    string    `json:"role_id"`
	Token     string    `json:"invite_token"`
	Accepted  bool      `json:"accepted"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateOrgInviteRequest starts an org signup
type CreateOrgInviteRequest struct {
	Email string `json:"email"`
}

// AcceptOrgInviteRequest completes an org signup
type AcceptOrgInviteRequest struct {
	OrgName  string `json:"org_name"`
	OrgSlug  string `json:"org_slug"`
	UserName string `json:"user_name"`
	Password string `json:"password"`
}

// CreateUserInviteRequest invites a member into the caller's org
type CreateUserInviteRequest struct {
	Email  string `json:"email"`
	RoleID string `json:"role_id"`
}

// UpdateUserInviteRequest edits a pending user invite
type UpdateUserInviteRequest struct {
	RoleID *string `json:"role_id,omitempty"`
}

// AcceptUserInviteRequest completes a member signup
type AcceptUserInviteRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// orgCreator is the slice of the org store onboarding needs
type orgCreator interface {
	CreateOrg(ctx context.Context, name, slug string) (*orgs.Org, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
}

// roleSeeder creates the default role set for a new org
type roleSeeder interface {
	CreateRole(ctx context.Context, orgID string, req rbac.CreateRoleRequest) (*rbac.Role, error)
}

// envTypeSeeder creates the default environment types for a new org
type envTypeSeeder interface {
	Seed(ctx context.Context, orgID string) error
}

// userCreator inserts the accepted user's row
type userCreator interface {
	CreateUser(ctx context.Context, orgID, roleID, externalID, email, name string) (*users.User, error)
}

// accountProvisioner creates the login at the identity provider
type accountProvisioner interface {
	CreateUser(ctx context.Context, email, password, name string) (string, error)
}
