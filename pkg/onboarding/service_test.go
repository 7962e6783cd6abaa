package onboarding

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"github.com/EnvSync-Cloud/envsync-api/pkg/apperrors"
	"github.com/EnvSync-Cloud/envsync-api/pkg/orgs"
	"github.com/EnvSync-Cloud/envsync-api/pkg/rbac"
	"github.com/EnvSync-Cloud/envsync-api/pkg/users"
)

type fakeOrgs struct {
	slugTaken bool
	created   []string
}

func (f *fakeOrgs) CreateOrg(_ context.Context, name, slug string) (*orgs.Org, error) {
	f.created = append(f.created, slug)
	return &orgs.Org{ID: "org-new", Name: name, Slug: slug}, nil
}

func (f *fakeOrgs) SlugExists(context.Context, string) (bool, error) {
	return f.slugTaken, nil
}

type fakeRoles struct {
	created []rbac.CreateRoleRequest
}

func (f *fakeRoles) CreateRole(_ context.Context, orgID string, req rbac.CreateRoleRequest) (*rbac.Role, error) {
	f.created = append(f.created, req)
	role := &rbac.Role{ID: uuid.NewString(), OrgID: orgID, Name: req.Name}
	role.IsMaster = req.IsMaster
	return role, nil
}

type fakeEnvTypes struct {
	seeded []string
}

func (f *fakeEnvTypes) Seed(_ context.Context, orgID string) error {
	f.seeded = append(f.seeded, orgID)
	return nil
}

type fakeUsers struct {
	created []users.User
}

func (f *fakeUsers) CreateUser(_ context.Context, orgID, roleID, externalID, email, name string) (*users.User, error) {
	user := users.User{ID: "user-new", OrgID: orgID, RoleID: roleID, ExternalID: externalID, Email: email, Name: name}
	f.created = append(f.created, user)
	return &user, nil
}

type fakeProvisioner struct {
	accounts []string
	err      error
}

func (f *fakeProvisioner) CreateUser(_ context.Context, email, _, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.accounts = append(f.accounts, email)
	return "auth0|" + email, nil
}

var orgInviteCols = []string{"id", "email", "invite_token", "accepted", "org_data", "created_at", "updated_at"}

func orgInviteRow(accepted bool) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(orgInviteCols).
		AddRow("inv-1", "founder@acme.io", "tok-1", accepted, nil, now, now)
}

func newService(t *testing.T) (*Service, sqlmock.Sqlmock, *fakeOrgs, *fakeRoles, *fakeEnvTypes, *fakeUsers) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	orgStore := &fakeOrgs{}
	roleStore := &fakeRoles{}
	envTypeStore := &fakeEnvTypes{}
	userStore := &fakeUsers{}
	service := NewService(NewStore(db), orgStore, roleStore, envTypeStore, userStore, &fakeProvisioner{})
	return service, mock, orgStore, roleStore, envTypeStore, userStore
}

func TestAcceptOrgInvite(t *testing.T) {
	service, mock, orgStore, roleStore, envTypeStore, userStore := newService(t)

	mock.ExpectQuery(`SELECT .+ FROM org_invites WHERE invite_token = \$1`).
		WithArgs("tok-1").
		WillReturnRows(orgInviteRow(false))
	mock.ExpectExec(`UPDATE org_invites`).
		WithArgs(sqlmock.AnyArg(), "inv-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	result, err := service.AcceptOrgInvite(context.Background(), "tok-1", AcceptOrgInviteRequest{
		OrgName: "Acme", OrgSlug: "acme", UserName: "Founder", Password: "hunter22",
	})
	if err != nil {
		t.Fatalf("AcceptOrgInvite: %v", err)
	}

	if len(orgStore.created) != 1 {
		t.Error("org was not created")
	}
	if len(roleStore.created) != len(rbac.DefaultRoles()) {
		t.Errorf("seeded %d roles, want %d", len(roleStore.created), len(rbac.DefaultRoles()))
	}
	if len(envTypeStore.seeded) != 1 {
		t.Error("env types were not seeded")
	}
	if len(userStore.created) != 1 {
		t.Fatal("admin user was not created")
	}

	admin := userStore.created[0]
	if admin.OrgID != "org-new" {
		t.Errorf("admin org = %q", admin.OrgID)
	}
	if admin.ExternalID != "auth0|founder@acme.io" {
		t.Errorf("admin external id = %q", admin.ExternalID)
	}
	if result.User.RoleID != admin.RoleID {
		t.Error("result user mismatch")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestAcceptOrgInviteAlreadyAccepted(t *testing.T) {
	service, mock, _, _, _, _ := newService(t)

	mock.ExpectQuery(`SELECT .+ FROM org_invites WHERE invite_token = \$1`).
		WithArgs("tok-1").
		WillReturnRows(orgInviteRow(true))

	_, err := service.AcceptOrgInvite(context.Background(), "tok-1", AcceptOrgInviteRequest{
		OrgName: "Acme", OrgSlug: "acme", Password: "pw",
	})
	if !apperrors.IsConflict(err) {
		t.Errorf("err = %v, want conflict", err)
	}
}

func TestAcceptOrgInviteSlugTaken(t *testing.T) {
	service, mock, orgStore, _, _, _ := newService(t)
	orgStore.slugTaken = true

	mock.ExpectQuery(`SELECT .+ FROM org_invites WHERE invite_token = \$1`).
		WithArgs("tok-1").
		WillReturnRows(orgInviteRow(false))

	_, err := service.AcceptOrgInvite(context.Background(), "tok-1", AcceptOrgInviteRequest{
		OrgName: "Acme", OrgSlug: "acme", Password: "pw",
	})
	if !apperrors.IsConflict(err) {
		t.Errorf("err = %v, want conflict", err)
	}
	if len(orgStore.created) != 0 {
		t.Error("org must not be created on a taken slug")
	}
}

var userInviteCols = []string{"id", "org_id", "email", "role_id", "invite_token", "accepted", "created_at", "updated_at"}

func TestAcceptUserInvite(t *testing.T) {
	service, mock, _, _, _, userStore := newService(t)

	now := time.Now()
	mock.ExpectQuery(`SELECT .+ FROM user_invites WHERE invite_token = \$1`).
		WithArgs("tok-2").
		WillReturnRows(sqlmock.NewRows(userInviteCols).
			AddRow("inv-2", "org-1", "new@acme.io", "role-dev", "tok-2", false, now, now))
	mock.ExpectExec(`UPDATE user_invites`).
		WithArgs("inv-2").
		WillReturnResult(sqlmock.NewResult(0, 1))

	member, err := service.AcceptUserInvite(context.Background(), "tok-2", AcceptUserInviteRequest{
		Name: "New Dev", Password: "pw",
	})
	if err != nil {
		t.Fatalf("AcceptUserInvite: %v", err)
	}
	if member.OrgID != "org-1" || member.RoleID != "role-dev" {
		t.Errorf("member = %+v", member)
	}
	if len(userStore.created) != 1 {
		t.Error("member row was not created")
	}
}
