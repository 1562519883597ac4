package rbac

import "testing"

func TestCanPerformRuleTable(t *testing.T) {
	cases := []struct {
		role    Role
		action  Action
		allowed bool
	}{
		{RoleOwner, ActionInviteCreate, true},
		{RoleAdmin, ActionInviteCreate, true},
		{RoleMember, ActionInviteCreate, false},
		{RoleBuyer, ActionInviteCreate, false},
		{RoleOwner, ActionInviteList, true},
		{RoleAdmin, ActionInviteList, true},
		{RoleMember, ActionInviteList, false},
		{RoleOwner, ActionInviteRevoke, true},
		{RoleAdmin, ActionInviteRevoke, true},
		{RoleBuyer, ActionInviteRevoke, false},
	}

	for _, tc := range cases {
		if got := CanPerform(tc.role, tc.action); got != tc.allowed {
			t.Fatalf("CanPerform(%s, %s) = %v, want %v", tc.role, tc.action, got, tc.allowed)
		}
	}
}

func TestCanPerformUnknownActionDenied(t *testing.T) {
	if CanPerform(RoleOwner, Action("invite.delete")) {
		t.Fatal("unknown actions must be denied")
	}
}

func TestCanPerformUnknownRoleDenied(t *testing.T) {
	if CanPerform(Role("superuser"), ActionInviteCreate) {
		t.Fatal("unknown roles must be denied")
	}
}

func TestCanGrantRole(t *testing.T) {
	if !CanGrantRole(RoleOwner, RoleOwner) {
		t.Fatal("owner must be allowed to grant owner")
	}
	if CanGrantRole(RoleAdmin, RoleOwner) {
		t.Fatal("admin must not grant owner even though admin can create invitations")
	}
	if !CanGrantRole(RoleAdmin, RoleMember) {
		t.Fatal("admin must be allowed to grant member")
	}
	if !CanGrantRole(RoleOwner, RoleBuyer) {
		t.Fatal("owner must be allowed to grant buyer")
	}
	if CanGrantRole(RoleOwner, Role("root")) {
		t.Fatal("unknown granted roles must be denied")
	}
}

func TestValidRole(t *testing.T) {
	for _, role := range []Role{RoleOwner, RoleAdmin, RoleMember, RoleBuyer} {
		if !ValidRole(role) {
			t.Fatalf("expected %s to be valid", role)
		}
	}
	if ValidRole(Role("guest")) {
		t.Fatal("guest is not a known role")
	}
}
