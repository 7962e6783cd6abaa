// Package envs manages environment variables, the payload the whole system
// exists to guard. Every operation resolves the target environment type
// first so the production escalation rule runs before any flag check.
package envs

import "time"

// EnvVar is an environment variable row scoped to (org, app, env type)
type EnvVar struct {
	ID        string    `json:"id"`
	OrgID     string    `json:"org_id"`
	AppID     string    `json:"app_id"`
	EnvTypeID string    `json:"env_type_id"`
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// KeyValue is one key/value pair inside a batch payload
type KeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// CreateEnvRequest is the payload for creating a variable
type CreateEnvRequest struct {
	AppID     string `json:"app_id"`
	EnvTypeID string `json:"env_type_id"`
	Key       string `json:"key"`
	Value     string `json:"value"`
}

// UpdateEnvRequest updates a variable's value
type UpdateEnvRequest struct {
	AppID     string `json:"app_id"`
	EnvTypeID string `json:"env_type_id"`
	Key       string `json:"key"`
	Value     string `json:"value"`
}

// BatchRequest carries several variables for one (app, env type) scope
type BatchRequest struct {
	AppID     string     `json:"app_id"`
	EnvTypeID string     `json:"env_type_id"`
	Envs      []KeyValue `json:"envs"`
}

// BatchDeleteRequest removes several keys from one scope
type BatchDeleteRequest struct {
	AppID     string   `json:"app_id"`
	EnvTypeID string   `json:"env_type_id"`
	Keys      []string `json:"keys"`
}

// ScopeSummary counts the variables per environment type for one app
type ScopeSummary struct {
	EnvTypeID   string `json:"env_type_id"`
	EnvTypeName string `json:"env_type_name"`
	Count       int64  `json:"count"`
}
