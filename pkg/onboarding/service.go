package onboarding

import (
	"context"
	"fmt"

	"github.com/EnvSync-Cloud/envsync-api/pkg/apperrors"
	"github.com/EnvSync-Cloud/envsync-api/pkg/orgs"
	"github.com/EnvSync-Cloud/envsync-api/pkg/rbac"
	"github.com/EnvSync-Cloud/envsync-api/pkg/users"
)

// Service runs the accept flows, which span several stores and the
// identity provider
type Service struct {
	store    *Store
	orgs     orgCreator
	roles    roleSeeder
	envTypes envTypeSeeder
	users    userCreator
	idp      accountProvisioner
}

// NewService wires the accept flows
func NewService(store *Store, orgStore orgCreator, roleStore roleSeeder, envTypeStore envTypeSeeder, userStore userCreator, idp accountProvisioner) *Service {
	return &Service{
		store:    store,
		orgs:     orgStore,
		roles:    roleStore,
		envTypes: envTypeStore,
		users:    userStore,
		idp:      idp,
	}
}

// OrgSignupResult is what accepting an org invite produces
type OrgSignupResult struct {
	Org  *orgs.Org   `json:"org"`
	User *users.User `json:"user"`
}

// AcceptOrgInvite turns a pending invite into a live organization: the
// login at the identity provider, the org row, the default role set, the
// default environment types, and the admin user bound to the master role.
// The invite flips to accepted last, so a half-failed signup can be
// retried with the same token.
func (s *Service) AcceptOrgInvite(ctx context.Context, token string, req AcceptOrgInviteRequest) (*OrgSignupResult, error) {
	invite, err := s.store.GetOrgInviteByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if invite.Accepted {
		return nil, apperrors.Conflict("invite has already been accepted")
	}
	if req.OrgName == "" {
		return nil, apperrors.Validation("org_name is required")
	}
	if req.OrgSlug == "" {
		return nil, apperrors.Validation("org_slug is required")
	}
	if req.Password == "" {
		return nil, apperrors.Validation("password is required")
	}

	taken, err := s.orgs.SlugExists(ctx, req.OrgSlug)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperrors.Conflict("organization slug is already taken")
	}

	externalID, err := s.idp.CreateUser(ctx, invite.Email, req.Password, req.UserName)
	if err != nil {
		return nil, err
	}

	org, err := s.orgs.CreateOrg(ctx, req.OrgName, req.OrgSlug)
	if err != nil {
		return nil, err
	}

	var masterRoleID string
	for _, roleReq := range rbac.DefaultRoles() {
		role, err := s.roles.CreateRole(ctx, org.ID, roleReq)
		if err != nil {
			return nil, fmt.Errorf("failed to seed role %q: %w", roleReq.Name, err)
		}
		if role.IsMaster {
			masterRoleID = role.ID
		}
	}
	if masterRoleID == "" {
		return nil, fmt.Errorf("default role set produced no master role")
	}

	if err := s.envTypes.Seed(ctx, org.ID); err != nil {
		return nil, err
	}

	admin, err := s.users.CreateUser(ctx, org.ID, masterRoleID, externalID, invite.Email, req.UserName)
	if err != nil {
		return nil, err
	}

	err = s.store.MarkOrgInviteAccepted(ctx, invite.ID, map[string]interface{}{
		"org_id":   org.ID,
		"org_name": org.Name,
		"org_slug": org.Slug,
	})
	if err != nil {
		return nil, err
	}

	return &OrgSignupResult{Org: org, User: admin}, nil
}

// AcceptUserInvite provisions the login and inserts the member with the
// role the invite carries
func (s *Service) AcceptUserInvite(ctx context.Context, token string, req AcceptUserInviteRequest) (*users.User, error) {
	invite, err := s.store.GetUserInviteByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if invite.Accepted {
		return nil, apperrors.Conflict("invite has already been accepted")
	}
	if req.Password == "" {
		return nil, apperrors.Validation("password is required")
	}

	externalID, err := s.idp.CreateUser(ctx, invite.Email, req.Password, req.Name)
	if err != nil {
		return nil, err
	}

	member, err := s.users.CreateUser(ctx, invite.OrgID, invite.RoleID, externalID, invite.Email, req.Name)
	if err != nil {
		return nil, err
	}

	if err := s.store.MarkUserInviteAccepted(ctx, invite.ID); err != nil {
		return nil, err
	}
	return member, nil
}
