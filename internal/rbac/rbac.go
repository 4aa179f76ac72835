// Package rbac maps per-organization membership roles to permitted actions.
package rbac

type Role string
type Action string

const (
	RoleViewer      Role = "viewer"
	RoleFoster      Role = "foster"
	RoleCoordinator Role = "coordinator"
	RoleAdmin       Role = "admin"
)

const (
	ActionRead     Action = "read"
	ActionComment  Action = "comment"
	ActionWrite    Action = "write"
	ActionSchedule Action = "schedule"
	ActionAdmin    Action = "admin"
)

func Can(role Role, action Action) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleCoordinator:
		return action == ActionRead || action == ActionComment || action == ActionWrite || action == ActionSchedule
	case RoleFoster:
		return action == ActionRead || action == ActionComment
	case RoleViewer:
		return action == ActionRead
	default:
		return false
	}
}

func Normalize(role string) Role {
	switch Role(role) {
	case RoleViewer, RoleFoster, RoleCoordinator, RoleAdmin:
		return Role(role)
	default:
		return RoleViewer
	}
}
