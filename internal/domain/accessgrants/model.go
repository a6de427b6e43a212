package accessgrants

import "time"

// Scope coincide uno a uno con pets.Permission.
type Scope string

const (
	ScopePetRead        Scope = "pet:read"
	ScopePetEditProfile Scope = "pet:edit_profile"
	ScopeRecordsRead    Scope = "records:read"
	ScopeRecordsWrite   Scope = "records:write"
)

type Status string

const (
	StatusInvited Status = "invited"
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
)

type Grant struct {
	ID string

	PetID string

	OwnerUserID   string // quien comparte
	GranteeUserID string // delegado

	Scopes []Scope
	Status Status

	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}
