package model

import "time"

// RoleName identifies one of the fixed portal roles.
type RoleName string

const (
	RoleRoot          RoleName = "root"
	RoleAdmin         RoleName = "admin"
	RoleManager       RoleName = "manager"
	RoleClassTeacher  RoleName = "class-teacher"
	RoleTeacher       RoleName = "teacher"
	RoleCandidate     RoleName = "candidate"
	RoleNewRegistrant RoleName = "new-registrant"
)

// AllRoleNames lists every role name the portal knows about.
var AllRoleNames = []RoleName{
	RoleRoot,
	RoleAdmin,
	RoleManager,
	RoleClassTeacher,
	RoleTeacher,
	RoleCandidate,
	RoleNewRegistrant,
}

// Valid reports whether n is one of the fixed role names.
func (n RoleName) Valid() bool {
	for _, known := range AllRoleNames {
		if n == known {
			return true
		}
	}
	return false
}

// Role is a row of the roles table. A lower Order means more privilege;
// DisplayName, Color and Order are data-driven.
type Role struct {
	ID          int       `json:"id"`
	Name        RoleName  `json:"name"`
	DisplayName string    `json:"display_name"`
	Color       string    `json:"color"`
	Order       int       `json:"order"`
	CreatedAt   time.Time `json:"created_at"`
}
