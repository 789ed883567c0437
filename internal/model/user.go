// Package model defines the data structures used throughout the application.
package model

import "time"

// Role is the typed role enumeration. Role checks compare against these
// constants instead of scattering string literals per route.
type Role string

const (
	RoleStudent Role = "student"
	RoleTutor   Role = "tutor"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTutor, RoleAdmin:
		return true
	}
	return false
}

// User represents a registered account. The identity key is the email,
// asserted by the external identity provider; we never mint identities
// ourselves, only mirror them on first sign-in.
//
// Role defaults to student. Only an admin can change it.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Photo     string    `json:"photo"` // profile picture URL, may be empty
	Role      Role      `json:"role"`
	LastLogin time.Time `json:"lastLogin"`
	CreatedAt time.Time `json:"createdAt"`
}
