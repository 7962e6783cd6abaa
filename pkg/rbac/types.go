// Package rbac implements role storage and the permission policy engine.
//
// Every authorization decision in the API flows through Check with one of
// the Requirement values defined in policy.go, so the rules live in exactly
// one place instead of being copy-pasted across handlers.
package rbac

import "time"

// PermissionSnapshot is the set of permission flags captured from a role at
// resolution time. It is immutable for the lifetime of a request.
type PermissionSnapshot struct {
	CanEdit            bool `json:"can_edit"`
	CanView            bool `json:"can_view"`
	HaveAPIAccess      bool `json:"have_api_access"`
	HaveBillingOptions bool `json:"have_billing_options"`
	HaveWebhookAccess  bool `json:"have_webhook_access"`
	IsAdmin            bool `json:"is_admin"`
	IsMaster           bool `json:"is_master"`
}

// Role is an org-scoped role row
type Role struct {
	ID        string    `json:"id"`
	OrgID     string    `json:"org_id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	PermissionSnapshot
}

// CreateRoleRequest is the payload for creating a role
type CreateRoleRequest struct {
	Name               string `json:"name"`
	Color              string `json:"color"`
	CanEdit            bool   `json:"can_edit"`
	CanView            bool   `json:"can_view"`
	HaveAPIAccess      bool   `json:"have_api_access"`
	HaveBillingOptions bool   `json:"have_billing_options"`
	HaveWebhookAccess  bool   `json:"have_webhook_access"`
	IsAdmin            bool   `json:"is_admin"`
	IsMaster           bool   `json:"is_master"`
}

// UpdateRoleRequest is the payload for updating a role. Nil fields are left
// unchanged. IsMaster is accepted in the payload only so its presence can be
// rejected: the master flag is immutable after onboarding.
type UpdateRoleRequest struct {
	Name               *string `json:"name,omitempty"`
	Color              *string `json:"color,omitempty"`
	CanEdit            *bool   `json:"can_edit,omitempty"`
	CanView            *bool   `json:"can_view,omitempty"`
	HaveAPIAccess      *bool   `json:"have_api_access,omitempty"`
	HaveBillingOptions *bool   `json:"have_billing_options,omitempty"`
	HaveWebhookAccess  *bool   `json:"have_webhook_access,omitempty"`
	IsAdmin            *bool   `json:"is_admin,omitempty"`
	IsMaster           *bool   `json:"is_master,omitempty"`
}

// RoleStats pairs a role with the number of users holding it
type RoleStats struct {
	Role      Role  `json:"role"`
	UserCount int64 `json:"user_count"`
}

// DefaultRoles returns the role set seeded for every new organization.
// Exactly one role carries is_master.
func DefaultRoles() []CreateRoleRequest {
	return []CreateRoleRequest{
		{
			Name: "Org Admin", Color: "#E11D48",
			CanEdit: true, CanView: true,
			HaveAPIAccess: true, HaveBillingOptions: true, HaveWebhookAccess: true,
			IsAdmin: true, IsMaster: true,
		},
		{
			Name: "Billing Admin", Color: "#F59E0B",
			CanView: true, HaveBillingOptions: true,
		},
		{
			Name: "Manager", Color: "#8B5CF6",
			CanEdit: true, CanView: true,
			HaveAPIAccess: true, HaveWebhookAccess: true,
			IsAdmin: true,
		},
		{
			Name: "Developer", Color: "#3B82F6",
			CanEdit: true, CanView: true, HaveAPIAccess: true,
		},
		{
			Name: "Viewer", Color: "#10B981",
			CanView: true,
		},
	}
}
