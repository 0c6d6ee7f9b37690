package session

// Admin roles. The set is fixed; roles are not user-defined.
const (
	RoleSuperAdmin = "super-admin"
	RoleAdmin      = "admin"
	RoleModerator  = "moderator"
	RoleAnalyst    = "analyst"
)

// Permission tokens gating dashboard actions.
const (
	PermAll                 = "ALL"
	PermManageUsers         = "manage_users"
	PermManageReports       = "manage_reports"
	PermManageAdmins        = "manage_admins"
	PermViewLogs            = "view_logs"
	PermManageTokens        = "manage_tokens"
	PermManageMessages      = "manage_messages"
	PermManageVideos        = "manage_videos"
	PermManageAnnouncements = "manage_announcements"
	PermViewAnalytics       = "view_analytics"
)

var roleGrants = map[string][]string{
	RoleSuperAdmin: {PermAll},
	RoleAdmin: {
		PermManageUsers,
		PermManageReports,
		PermManageAdmins,
		PermViewLogs,
		PermManageTokens,
		PermManageMessages,
		PermManageVideos,
		PermManageAnnouncements,
		PermViewAnalytics,
	},
	RoleModerator: {
		PermManageUsers,
		PermManageReports,
		PermViewLogs,
		PermManageMessages,
	},
	RoleAnalyst: {
		PermViewLogs,
		PermViewAnalytics,
	},
}

// KnownRole reports whether role is one of the fixed role names.
func KnownRole(role string) bool {
	_, ok := roleGrants[role]
	return ok
}

// HasPermission reports whether role grants the permission token.
// super-admin satisfies every check regardless of the grant table; an
// unknown role satisfies none.
func HasPermission(role, permission string) bool {
	if role == RoleSuperAdmin {
		return true
	}
	grants, ok := roleGrants[role]
	if !ok {
		return false
	}
	for _, g := range grants {
		if g == permission || g == PermAll {
			return true
		}
	}
	return false
}
