// Package users manages org members: listing, profile updates mirrored to
// the identity provider, role assignment, and removal.
package users

import (
	"context"
	"time"
)

// User is an org member row
type User struct {
	ID                string    `json:"id"`
	OrgID             string    `json:"org_id"`
	RoleID            string    `json:"role_id"`
	ExternalID        string    `json:"-"`
	Email             string    `json:"email"`
	Name              string    `json:"name"`
	ProfilePictureURL string    `json:"profile_picture_url"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// UpdateProfileRequest is a partial profile update for the calling user
type UpdateProfileRequest struct {
	Name              *string `json:"name,omitempty"`
	ProfilePictureURL *string `json:"profile_picture_url,omitempty"`
}

// UpdateRoleRequest reassigns a user's role
type UpdateRoleRequest struct {
	RoleID string `json:"role_id"`
}

// IdentityProvider is the slice of the identity provider's management API
// the user module needs. Profile changes are mirrored there so logins show
// the same data.
type IdentityProvider interface {
	UpdateUser(ctx context.Context, externalID, name, pictureURL string) error
	DeleteUser(ctx context.Context, externalID string) error
	TriggerPasswordReset(ctx context.Context, email string) error
}
