package auth

import "strings"

// Role names understood by the service. RoleEmployee is the default for
// any identity absent from the configured administrator map.
const (
	RoleEmployee   = "employee"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super-admin"
)

// Identity is a verified caller with a resolved role.
type Identity struct {
	Email string
	Name  string
	Role  string
}

// RoleResolver maps administrator emails to elevated roles. The map is
// injected from configuration at startup so role changes do not require
// a redeploy.
type RoleResolver struct {
	roles map[string]string
}

// NewRoleResolver normalizes the configured email->role map. Unknown
// role values are ignored rather than granting access.
func NewRoleResolver(adminRoles map[string]string) *RoleResolver {
	roles := make(map[string]string, len(adminRoles))
	for email, role := range adminRoles {
		normalizedEmail := strings.ToLower(strings.TrimSpace(email))
		normalizedRole := strings.ToLower(strings.TrimSpace(role))
		if normalizedEmail == "" {
			continue
		}
		if normalizedRole != RoleAdmin && normalizedRole != RoleSuperAdmin {
			continue
		}
		roles[normalizedEmail] = normalizedRole
	}
	return &RoleResolver{roles: roles}
}

// Resolve returns the elevated role for the email, or RoleEmployee.
func (r *RoleResolver) Resolve(email string) string {
	if r == nil {
		return RoleEmployee
	}
	if role, ok := r.roles[strings.ToLower(strings.TrimSpace(email))]; ok {
		return role
	}
	return RoleEmployee
}

// Identify combines verified claims with the resolved role.
func (r *RoleResolver) Identify(claims Claims) Identity {
	return Identity{
		Email: claims.Email,
		Name:  claims.Name,
		Role:  r.Resolve(claims.Email),
	}
}
