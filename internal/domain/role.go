package domain

// Role of an authenticated actor, supplied by the auth collaborator
type Role string

const (
	RoleUser         Role = "user"
	RoleStationOwner Role = "station_owner"
	RoleAdmin        Role = "admin"
	// RoleSystem is used by internal callers such as a completion job
	RoleSystem Role = "system"
)

// ParseRole maps an external role string; unknown values degrade to RoleUser
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleStationOwner, RoleAdmin:
		return Role(s)
	default:
		return RoleUser
	}
}

// Actor who performs an operation
type Actor struct {
	UserID int64
	Role   Role
}

// SystemActor actor for scheduled jobs
var SystemActor = Actor{Role: RoleSystem}
