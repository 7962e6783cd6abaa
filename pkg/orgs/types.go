// Package orgs manages organization profiles. Every other resource in the
// system is partitioned by the org id held here.
package orgs

import "time"

// Org is an organization row
type Org struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	LogoURL   string    `json:"logo_url"`
	Website   string    `json:"website"`
	Size      string    `json:"size"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UpdateOrgRequest is a partial org profile update. Nil fields are left
// unchanged.
type UpdateOrgRequest struct {
	Name    *string `json:"name,omitempty"`
	Slug    *string `json:"slug,omitempty"`
	LogoURL *string `json:"logo_url,omitempty"`
	Website *string `json:"website,omitempty"`
	Size    *string `json:"size,omitempty"`
}
