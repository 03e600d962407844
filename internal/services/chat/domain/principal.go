// Package domain defines the identity model shared by the chat service.
package domain

import (
	"fmt"
	"strings"
)

// Role identifies one membership role within the fire department.
//
// The set is closed: every broadcast-eligibility decision switches over it
// exhaustively, so adding a role forces those call sites to be revisited.
type Role string

const (
	// RoleVolunteer is a regular volunteer firefighter.
	RoleVolunteer Role = "volunteer"
	// RoleDriver is a vehicle driver/operator.
	RoleDriver Role = "driver"
	// RoleMedic is a certified first responder.
	RoleMedic Role = "medic"
	// RoleCommander leads operations and training.
	RoleCommander Role = "commander"
	// RoleSuperuser has cross-cutting visibility into every room,
	// independent of explicit membership.
	RoleSuperuser Role = "superuser"
)

// KnownRoles returns every valid role, in a stable order.
func KnownRoles() []Role {
	return []Role{RoleVolunteer, RoleDriver, RoleMedic, RoleCommander, RoleSuperuser}
}

// ParseRole validates a raw role string against the closed set.
func ParseRole(value string) (Role, error) {
	switch Role(strings.TrimSpace(strings.ToLower(value))) {
	case RoleVolunteer:
		return RoleVolunteer, nil
	case RoleDriver:
		return RoleDriver, nil
	case RoleMedic:
		return RoleMedic, nil
	case RoleCommander:
		return RoleCommander, nil
	case RoleSuperuser:
		return RoleSuperuser, nil
	default:
		return "", fmt.Errorf("unknown role %q", value)
	}
}

// Principal is the authenticated identity behind a live connection.
//
// It is produced by the token verifier and threaded explicitly through
// handlers; the chat service never mutates it.
type Principal struct {
	ID    int64
	Name  string
	Roles []Role
}

// HasRole reports whether the principal holds the given role.
func (p Principal) HasRole(role Role) bool {
	for _, held := range p.Roles {
		if held == role {
			return true
		}
	}
	return false
}

// IsSuperuser reports whether the principal holds the superuser role.
func (p Principal) IsSuperuser() bool {
	return p.HasRole(RoleSuperuser)
}
