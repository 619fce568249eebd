package auth

const (
	RoleEmployee = "employee"
	RoleAdmin    = "admin"
)

const (
	PermVote              = "voting.cast"
	PermCandidatesRead    = "candidates.read"
	PermLeaderboardRead   = "leaderboard.read"
	PermEmployeesImport   = "employees.import"
	PermEmployeesRead     = "employees.read"
	PermLeaderboardExport = "leaderboard.export"
	PermQRGenerate        = "qr.generate"
	PermAuditRead         = "audit.read"
)

var DefaultPermissions = []string{
	PermVote,
	PermCandidatesRead,
	PermLeaderboardRead,
	PermEmployeesImport,
	PermEmployeesRead,
	PermLeaderboardExport,
	PermQRGenerate,
	PermAuditRead,
}

var RolePermissions = map[string][]string{
	RoleEmployee: {
		PermVote,
		PermCandidatesRead,
		PermLeaderboardRead,
	},
	RoleAdmin: {
		PermLeaderboardRead,
		PermEmployeesImport,
		PermEmployeesRead,
		PermLeaderboardExport,
		PermQRGenerate,
		PermAuditRead,
	},
}

func HasPermission(role, permission string) bool {
	for _, perm := range RolePermissions[role] {
		if perm == permission {
			return true
		}
	}
	return false
}
