package enums

import "fmt"

// ActorRole is the authenticated caller's role as carried in the access token.
type ActorRole string

const (
	RoleUser     ActorRole = "user"
	RoleAdmin    ActorRole = "admin"
	RoleDelivery ActorRole = "delivery"
)

var validActorRoles = []ActorRole{RoleUser, RoleAdmin, RoleDelivery}

// IsValid reports whether the value is a known ActorRole.
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
