package rbac

import "slices"

// 权限常量
const (
	PermissionManageOwnProjects = "project:manage_own"
	PermissionManageOwnTasks    = "task:manage_own"

	// 管理操作权限
	PermissionReadOutbox   = "outbox:read"
	PermissionReplayOutbox = "outbox:replay"
)

// 角色常量
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// DefaultRole 注册时未指定 role 使用的角色
const DefaultRole = RoleUser

// 角色权限映射
var rolePermissions = map[string][]string{
	RoleUser: {
		PermissionManageOwnProjects,
		PermissionManageOwnTasks,
	},
	RoleAdmin: {
		PermissionManageOwnProjects,
		PermissionManageOwnTasks,
		PermissionReadOutbox,
		PermissionReplayOutbox,
	},
}

// KnownRoles 返回所有已定义的角色
func KnownRoles() []string {
	roles := make([]string, 0, len(rolePermissions))
	for role := range rolePermissions {
		roles = append(roles, role)
	}
	slices.Sort(roles)
	return roles
}

// IsKnownRole 判断角色是否已定义
func IsKnownRole(role string) bool {
	_, ok := rolePermissions[role]
	return ok
}

// HasPermission 检查角色是否有指定权限；未定义的角色没有任何权限
func HasPermission(role string, permission string) bool {
	return slices.Contains(rolePermissions[role], permission)
}

// CheckPermission 检查用户是否有指定权限（返回错误而不是布尔值，便于处理）
func CheckPermission(userID int64, role string, permission string) error {
	if !HasPermission(role, permission) {
		return &PermissionDeniedError{
			UserID:     userID,
			Permission: permission,
		}
	}
	return nil
}

// PermissionDeniedError 表示权限不足的错误
type PermissionDeniedError struct {
	UserID     int64
	Permission string
}

func (e *PermissionDeniedError) Error() string {
	return "insufficient permissions"
}
