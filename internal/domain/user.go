package domain

import (
	"fmt"
	"time"
)

// Role is what a user does in the system. Roles are not enforced on any
// operation; they only label directory entries.
type Role string

const (
	RoleCaseWorker Role = "case_worker"
	RoleSiteAdmin  Role = "site_admin"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleCaseWorker, RoleSiteAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
}

func (r Role) String() string {
	return string(r)
}

// User is a directory entry. A case worker's ID is the owner id carried by
// their holds and reservations. SiteID is set only for site admins.
type User struct {
	ID        string
	Email     string
	Name      string
	Role      Role
	SiteID    string
	CreatedAt time.Time
}

// UnknownOwnerName labels reservations whose owner is not in the directory.
const UnknownOwnerName = "Unknown"
