package auth

import "testing"

func TestResolveDefaultsToEmployee(t *testing.T) {
	resolver := NewRoleResolver(map[string]string{
		"lead@example.com":  "super-admin",
		"admin@example.com": "admin",
	})

	tests := []struct {
		name  string
		email string
		want  string
	}{
		{name: "super-admin", email: "lead@example.com", want: RoleSuperAdmin},
		{name: "admin", email: "admin@example.com", want: RoleAdmin},
		{name: "unlisted", email: "someone@example.com", want: RoleEmployee},
		{name: "case-insensitive-lookup", email: "Admin@Example.COM", want: RoleAdmin},
		{name: "empty", email: "", want: RoleEmployee},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolver.Resolve(tt.email); got != tt.want {
				t.Fatalf("Resolve(%q) = %q, want %q", tt.email, got, tt.want)
			}
		})
	}
}

func TestNewRoleResolverIgnoresUnknownRoles(t *testing.T) {
	resolver := NewRoleResolver(map[string]string{
		"root@example.com": "owner",
		"":                 "admin",
	})

	if got := resolver.Resolve("root@example.com"); got != RoleEmployee {
		t.Fatalf("unknown role value must not grant access, got %q", got)
	}
}

func TestIdentifyCombinesClaimsWithRole(t *testing.T) {
	resolver := NewRoleResolver(map[string]string{"admin@example.com": "admin"})

	identity := resolver.Identify(Claims{Email: "admin@example.com", Name: "Admin"})
	if identity.Role != RoleAdmin {
		t.Fatalf("unexpected role %q", identity.Role)
	}
	if identity.Email != "admin@example.com" || identity.Name != "Admin" {
		t.Fatalf("claims not carried over: %+v", identity)
	}
}

func TestNilResolverResolvesEmployee(t *testing.T) {
	var resolver *RoleResolver
	if got := resolver.Resolve("anyone@example.com"); got != RoleEmployee {
		t.Fatalf("nil resolver should default to employee, got %q", got)
	}
}
