package profile

import "context"

// UserID identifies one member of a profile group.
type UserID int32

// Role classifies a profile group member.
type Role string

const (
	RolePersonal Role = "personal"
	RoleWork     Role = "work"
	RolePrivate  Role = "private"
	RoleClone    Role = "clone"
)

// User is one member of the profile group.
type User struct {
	ID   UserID `json:"id"`
	Role Role   `json:"role"`
}

// Record is one entry of the authoritative profile-group listing.
type Record struct {
	User      User
	QuietMode bool
	IsProfile bool
	ParentID  UserID
}

// Lister enumerates the enabled members of a profile group from the platform.
type Lister interface {
	ListProfileGroup(ctx context.Context, parent UserID) ([]Record, error)
}

// Controller flips quiet mode for a profile on the platform. Confirmation
// arrives later as an AvailabilityChanged event, not as a return value.
type Controller interface {
	SetQuietMode(ctx context.Context, user UserID, quiet bool) error
}
