package rbac

import (
	"testing"

	"github.com/EnvSync-Cloud/envsync-api/pkg/apperrors"
)

var (
	master = PermissionSnapshot{
		CanEdit: true, CanView: true,
		HaveAPIAccess: true, HaveBillingOptions: true, HaveWebhookAccess: true,
		IsAdmin: true, IsMaster: true,
	}
	admin = PermissionSnapshot{
		CanEdit: true, CanView: true, HaveAPIAccess: true, IsAdmin: true,
	}
	developer = PermissionSnapshot{
		CanEdit: true, CanView: true, HaveAPIAccess: true,
	}
	viewer = PermissionSnapshot{CanView: true}
	none   = PermissionSnapshot{}
)

func TestSatisfies(t *testing.T) {
	tests := []struct {
		name string
		p    PermissionSnapshot
		req  Requirement
		want bool
	}{
		{"master passes everything ordinary", master, CanEdit, true},
		{"master passes master only", master, MasterOnly, true},
		{"master passes api key gate", master, APIKeyAccess, true},

		{"admin passes admin only", admin, AdminOnly, true},
		{"admin fails master only", admin, MasterOnly, false},
		{"admin alone fails api key gate", admin, APIKeyAccess, false},
		{"admin overrides missing view flag", PermissionSnapshot{IsAdmin: true}, CanView, true},
		{"admin overrides missing edit flag", PermissionSnapshot{IsAdmin: true}, CanEdit, true},

		{"developer edits", developer, CanEdit, true},
		{"developer fails admin only", developer, AdminOnly, false},
		{"developer fails api key gate despite api access", developer, APIKeyAccess, false},

		{"viewer views", viewer, CanView, true},
		{"viewer cannot edit", viewer, CanEdit, false},

		{"empty snapshot fails everything", none, CanView, false},
		{"billing flag grants billing", PermissionSnapshot{HaveBillingOptions: true}, BillingAccess, true},
		{"webhook flag grants webhook", PermissionSnapshot{HaveWebhookAccess: true}, WebhookAccess, true},
		{"unknown requirement denied", master, Requirement("bogus"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.Satisfies(tt.req); got != tt.want {
				t.Errorf("Satisfies(%s) = %v, want %v", tt.req, got, tt.want)
			}
		})
	}
}

func TestCheckReturnsAuthorizationError(t *testing.T) {
	err := Check(viewer, CanEdit)
	if err == nil {
		t.Fatal("expected error")
	}
	if !apperrors.IsAuthorization(err) {
		t.Errorf("error kind = %v, want authorization", apperrors.KindOf(err))
	}
	if Check(master, CanEdit) != nil {
		t.Error("master must pass CanEdit")
	}
}

func TestCheckEnvAccess(t *testing.T) {
	tests := []struct {
		name    string
		p       PermissionSnapshot
		envName string
		req     Requirement
		wantErr bool
	}{
		{"developer edits staging", developer, "Staging", CanEdit, false},
		{"developer blocked from production despite can_edit", developer, "Production", CanEdit, true},
		{"developer blocked from reading production", developer, "Production", CanView, true},
		{"admin edits production", admin, "Production", CanEdit, false},
		{"master edits production", master, "Production", CanEdit, false},
		{"viewer reads development", viewer, "Development", CanView, false},
		{"viewer cannot edit development", viewer, "Development", CanEdit, true},
		{"name match is exact", developer, "production", CanEdit, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckEnvAccess(tt.p, tt.envName, tt.req)
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckEnvAccess() err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !apperrors.IsAuthorization(err) {
				t.Errorf("error kind = %v, want authorization", apperrors.KindOf(err))
			}
		})
	}
}

func TestDefaultRolesHaveOneMaster(t *testing.T) {
	masters := 0
	for _, role := range DefaultRoles() {
		if role.IsMaster {
			masters++
			if role.Name != "Org Admin" {
				t.Errorf("master role is %q, want Org Admin", role.Name)
			}
			if !role.IsAdmin {
				t.Error("master role must also be admin")
			}
		}
	}
	if masters != 1 {
		t.Errorf("default set has %d master roles, want exactly 1", masters)
	}
}
