package models

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// MessageResponse represents a plain confirmation message
type MessageResponse struct {
	Message string `json:"message"`
}

// Role is a user's position in the fixed access hierarchy.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleGerente    Role = "gerente"
	RoleSupervisor Role = "supervisor"
	RoleAgente     Role = "agente"
	RoleMaestro    Role = "maestro"
)

// Roles lists every valid role.
var Roles = []Role{RoleAdmin, RoleGerente, RoleSupervisor, RoleAgente, RoleMaestro}

// IsValidRole reports whether r is one of the known roles.
func IsValidRole(r Role) bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// IsManager reports whether the role may resolve approvals and manage catalogs.
func (r Role) IsManager() bool {
	return r == RoleAdmin || r == RoleGerente
}
