package domain

import "github.com/google/uuid"

// Role scopes which workflow operations a caller may perform.
type Role string

const (
	RoleManager Role = "MANAGER"
	RoleWorker  Role = "WORKER"
	RoleAdmin   Role = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleManager, RoleWorker, RoleAdmin:
		return true
	}
	return false
}

// User is the directory view of a party: the resolved contact identity for a
// user id. The directory service owns the full record; this is the slice the
// pipeline needs.
type User struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Role  Role      `json:"role"`
}
