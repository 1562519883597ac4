package rbac

// Role identifies the privilege level a user holds within one account.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleBuyer  Role = "buyer"
)

// Action names an operation subject to role gating.
type Action string

const (
	ActionInviteCreate Action = "invite.create"
	ActionInviteList   Action = "invite.list"
	ActionInviteRevoke Action = "invite.revoke"
)

// allowedRoles is the static rule table. Accept and decline are gated by the
// invitation's own identity rather than a tenant role, so they never appear here.
var allowedRoles = map[Action]map[Role]struct{}{
	ActionInviteCreate: {RoleOwner: {}, RoleAdmin: {}},
	ActionInviteList:   {RoleOwner: {}, RoleAdmin: {}},
	ActionInviteRevoke: {RoleOwner: {}, RoleAdmin: {}},
}

var validRoles = map[Role]struct{}{
	RoleOwner:  {},
	RoleAdmin:  {},
	RoleMember: {},
	RoleBuyer:  {},
}

// ValidRole reports whether the value is one of the four known roles.
func ValidRole(role Role) bool {
	_, ok := validRoles[role]
	return ok
}

// CanPerform reports whether the role may perform the action. Unknown actions
// and unknown roles are always denied.
func CanPerform(role Role, action Action) bool {
	roles, ok := allowedRoles[action]
	if !ok {
		return false
	}
	_, ok = roles[role]
	return ok
}

// CanGrantRole reports whether an inviter holding inviterRole may offer the
// granted role through an invitation. Granting owner is reserved for owners;
// this rule layers on top of the action table, it is not a separate action.
func CanGrantRole(inviterRole, granted Role) bool {
	if !ValidRole(granted) {
		return false
	}
	if granted == RoleOwner {
		return inviterRole == RoleOwner
	}
	return true
}
