package auth

import "testing"

func TestRolePermissionsSubset(t *testing.T) {
	allowed := map[string]struct{}{}
	for _, perm := range DefaultPermissions {
		allowed[perm] = struct{}{}
	}
	for role, perms := range RolePermissions {
		if len(perms) == 0 {
			t.Fatalf("role %s has no permissions", role)
		}
		for _, perm := range perms {
			if _, ok := allowed[perm]; !ok {
				t.Fatalf("role %s has unknown permission %s", role, perm)
			}
		}
	}
}

func TestOnlyEmployeesVote(t *testing.T) {
	if !HasPermission(RoleEmployee, PermVote) {
		t.Fatal("employees must be able to vote")
	}
	if HasPermission(RoleAdmin, PermVote) {
		t.Fatal("admins are not voters")
	}
	if HasPermission(RoleEmployee, PermEmployeesImport) {
		t.Fatal("employees must not import")
	}
	if HasPermission("", PermLeaderboardRead) {
		t.Fatal("unknown role must have no permissions")
	}
}
