package enums

import "fmt"

// ActorRole distinguishes tenant operators from their members.
type ActorRole string

const (
	ActorRoleMember ActorRole = "member"
	ActorRoleOwner  ActorRole = "owner"
)

var validActorRoles = []ActorRole{
	ActorRoleMember,
	ActorRoleOwner,
}

// String implements fmt.Stringer.
func (r ActorRole) String() string {
	return string(r)
}

// IsValid reports whether the value is known.
func (r ActorRole) IsValid() bool {
	for _, candidate := range validActorRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseActorRole converts raw input into an ActorRole.
func ParseActorRole(value string) (ActorRole, error) {
	for _, candidate := range validActorRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor role %q", value)
}
