// Package audit records who did what after the fact. Entries are queued
// asynchronously after a mutation succeeds; an audit failure never fails or
// rolls back the operation it describes.
package audit

import "time"

// Action identifies the audited operation
type Action string

const (
	ActionEnvCreated       Action = "env_created"
	ActionEnvUpdated       Action = "env_updated"
	ActionEnvDeleted       Action = "env_deleted"
	ActionEnvViewed        Action = "env_viewed"
	ActionEnvsViewed       Action = "envs_viewed"
	ActionEnvsBatchCreated Action = "envs_batch_created"
	ActionEnvsBatchUpdated Action = "envs_batch_updated"
	ActionEnvsBatchDeleted Action = "envs_batch_deleted"

	ActionEnvTypeCreated Action = "env_type_created"
	ActionEnvTypeUpdated Action = "env_type_updated"
	ActionEnvTypeDeleted Action = "env_type_deleted"

	ActionAppCreated Action = "app_created"
	ActionAppUpdated Action = "app_updated"
	ActionAppDeleted Action = "app_deleted"

	ActionRoleCreated Action = "role_created"
	ActionRoleUpdated Action = "role_updated"
	ActionRoleDeleted Action = "role_deleted"

	ActionUserUpdated       Action = "user_updated"
	ActionUserRoleUpdated   Action = "user_role_updated"
	ActionUserDeleted       Action = "user_deleted"
	ActionPasswordRequested Action = "password_update_requested"

	ActionOrgUpdated Action = "org_updated"

	ActionAPIKeyCreated     Action = "api_key_created"
	ActionAPIKeyUpdated     Action = "api_key_updated"
	ActionAPIKeyDeleted     Action = "api_key_deleted"
	ActionAPIKeyRegenerated Action = "api_key_regenerated"

	ActionOrgInviteCreated   Action = "org_invite_created"
	ActionOrgInviteAccepted  Action = "org_invite_accepted"
	ActionUserInviteCreated  Action = "user_invite_created"
	ActionUserInviteUpdated  Action = "user_invite_updated"
	ActionUserInviteDeleted  Action = "user_invite_deleted"
	ActionUserInviteAccepted Action = "user_invite_accepted"

	ActionSettingsUpdated Action = "settings_updated"
	ActionFileUploaded    Action = "file_uploaded"

	ActionAuditLogsViewed     Action = "get_audit_logs"
	ActionCLICommandExecuted  Action = "cli_command_executed"
)

// Entry is one audit log row
type Entry struct {
	ID        string                 `json:"id"`
	OrgID     string                 `json:"org_id"`
	UserID    string                 `json:"user_id"`
	Action    Action                 `json:"action"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// Page is a paginated slice of entries
type Page struct {
	Entries    []Entry `json:"data"`
	Page       int     `json:"page"`
	PerPage    int     `json:"per_page"`
	Total      int64   `json:"total"`
	TotalPages int64   `json:"total_pages"`
}
