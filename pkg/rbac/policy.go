package rbac

import "github.com/EnvSync-Cloud/envsync-api/pkg/apperrors"

// Requirement names a permission rule evaluated against a snapshot
type Requirement string

const (
	// CanView allows read access; admins and the master always pass
	CanView Requirement = "can_view"
	// CanEdit allows mutations; admins and the master always pass
	CanEdit Requirement = "can_edit"
	// AdminOnly requires the admin or master flag
	AdminOnly Requirement = "admin_only"
	// MasterOnly requires the master flag
	MasterOnly Requirement = "master_only"
	// APIKeyAccess gates the credential-issuing surface. It deliberately
	// stays stricter than AdminOnly: api access, admin and master all at once.
	APIKeyAccess Requirement = "api_key_access"
	// BillingAccess requires the billing flag; admins and the master pass
	BillingAccess Requirement = "billing_access"
	// WebhookAccess requires the webhook flag; admins and the master pass
	WebhookAccess Requirement = "webhook_access"
)

// Satisfies reports whether the snapshot meets the requirement
func (p PermissionSnapshot) Satisfies(req Requirement) bool {
	elevated := p.IsAdmin || p.IsMaster

	switch req {
	case CanView:
		return p.CanView || elevated
	case CanEdit:
		return p.CanEdit || elevated
	case AdminOnly:
		return elevated
	case MasterOnly:
		return p.IsMaster
	case APIKeyAccess:
		return p.HaveAPIAccess && p.IsAdmin && p.IsMaster
	case BillingAccess:
		return p.HaveBillingOptions || elevated
	case WebhookAccess:
		return p.HaveWebhookAccess || elevated
	default:
		return false
	}
}

// Check returns an authorization error when the snapshot does not meet the
// requirement. Checks never mutate anything, so callers are free to run them
// before touching state.
func Check(p PermissionSnapshot, req Requirement) error {
	if !p.Satisfies(req) {
		return apperrors.Authorization("permission denied")
	}
	return nil
}

// ProductionEnvName is the environment type name that triggers escalation
const ProductionEnvName = "Production"

// CheckEnvAccess gates environment variable operations. Access to an env
// type named exactly "Production" requires admin or master before the
// ordinary flag is consulted.
func CheckEnvAccess(p PermissionSnapshot, envTypeName string, req Requirement) error {
	if envTypeName == ProductionEnvName && !p.Satisfies(AdminOnly) {
		return apperrors.Authorization("production environments require admin access")
	}
	return Check(p, req)
}
