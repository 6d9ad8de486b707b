package domain

import "time"

// Role identifies which portal an actor belongs to.
type Role string

const (
	RoleStudent   Role = "student"
	RoleRepairman Role = "repairman"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleRepairman, RoleAdmin:
		return true
	}
	return false
}

// User is a student, repairman or administrator account.
type User struct {
	ID           int64
	Username     string
	Name         string
	Phone        string
	Role         Role
	PasswordHash string
	Specialty    []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Actor is the authenticated caller requesting an operation.
type Actor struct {
	ID   int64
	Role Role
}
