package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Role is the ordered permission level a user holds within a project.
// Levels are strictly ordered: Viewer < Member < Admin < Owner.
type Role int

const (
	// RoleViewer grants read-only access to a project.
	RoleViewer Role = 1

	// RoleMember may create, edit, and complete todos.
	RoleMember Role = 2

	// RoleAdmin may additionally manage members and project settings.
	RoleAdmin Role = 3

	// RoleOwner holds every permission, including project deletion.
	// Exactly one Owner exists per project, and the role is never
	// assignable through invites or role changes.
	RoleOwner Role = 4
)

var roleNames = map[Role]string{
	RoleViewer: "VIEWER",
	RoleMember: "MEMBER",
	RoleAdmin:  "ADMIN",
	RoleOwner:  "OWNER",
}

// String returns the wire name of the role.
func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("ROLE(%d)", int(r))
}

// Valid reports whether the role is one of the four known levels.
func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

// ParseRole parses a role name case-insensitively.
// Unrecognized names are an error so that a mistyped role in a request
// fails instead of silently landing on a different level.
func ParseRole(value string) (Role, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "VIEWER":
		return RoleViewer, nil
	case "MEMBER":
		return RoleMember, nil
	case "ADMIN":
		return RoleAdmin, nil
	case "OWNER":
		return RoleOwner, nil
	default:
		return 0, fmt.Errorf("unknown role %q", value)
	}
}

// HasPermissionOf reports whether the role is at least the required level.
func (r Role) HasPermissionOf(required Role) bool {
	return r >= required
}

// HasHigherPermissionThan reports whether the role is strictly above other.
func (r Role) HasHigherPermissionThan(other Role) bool {
	return r > other
}

// CanCreateTodo reports whether the role alone permits creating todos.
func (r Role) CanCreateTodo() bool { return r.HasPermissionOf(RoleMember) }

// CanEditTodo reports whether the role alone permits editing todos.
// Services additionally allow a todo's creator or assignee to edit it.
func (r Role) CanEditTodo() bool { return r.HasPermissionOf(RoleMember) }

// CanDeleteTodo reports whether the role alone permits deleting todos.
// Services additionally allow a todo's creator to delete it.
func (r Role) CanDeleteTodo() bool { return r.HasPermissionOf(RoleAdmin) }

// CanManageProject reports whether the role permits editing project settings.
func (r Role) CanManageProject() bool { return r.HasPermissionOf(RoleAdmin) }

// CanInviteMembers reports whether the role permits inviting members.
func (r Role) CanInviteMembers() bool { return r.HasPermissionOf(RoleAdmin) }

// CanManageMembers reports whether the role permits changing or removing members.
func (r Role) CanManageMembers() bool { return r.HasPermissionOf(RoleAdmin) }

// MarshalJSON encodes the role as its wire name.
func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON decodes a role from its wire name.
func (r *Role) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	role, err := ParseRole(name)
	if err != nil {
		return err
	}
	*r = role
	return nil
}

// Project groups todos into a shared workspace with role-based membership.
type Project struct {
	// ID is the unique identifier of the project, assigned sequentially.
	ID int64 `json:"id"`

	// Name is the project name (1-100 characters).
	Name string `json:"name"`

	// Description is an optional free-form description (up to 500 characters).
	Description string `json:"description,omitempty"`

	// OwnerID is the user id of the project creator, who holds the Owner role.
	OwnerID string `json:"owner_id"`

	// IsPrivate marks the project as private.
	IsPrivate bool `json:"is_private"`

	// MemberCount caches the number of active memberships. It is maintained
	// by the store on every add/remove, never recomputed.
	MemberCount int `json:"member_count"`

	// TodoCount caches the number of todos in the project.
	TodoCount int `json:"todo_count"`

	// CreatedAt is the timestamp at which the project was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the project.
	UpdatedAt time.Time `json:"updated_at"`
}

// ProjectUpdate carries the optional fields of a project update.
// Nil fields keep their stored value.
type ProjectUpdate struct {
	Name        *string
	Description *string
	IsPrivate   *bool
}

// Empty reports whether the update changes nothing.
func (u ProjectUpdate) Empty() bool {
	return u.Name == nil && u.Description == nil && u.IsPrivate == nil
}

// ProjectMember is the join record associating a user with a project and a role.
type ProjectMember struct {
	// ID is the unique identifier of the membership row.
	ID int64 `json:"id"`

	// ProjectID is the project this membership belongs to.
	ProjectID int64 `json:"project_id"`

	// UserID is the member's user id.
	UserID string `json:"user_id"`

	// Role is the member's permission level within the project.
	Role Role `json:"role"`

	// JoinedAt is the timestamp at which the user joined the project.
	JoinedAt time.Time `json:"joined_at"`

	// InvitedBy is the user id of the inviter, empty for the project creator.
	InvitedBy string `json:"invited_by,omitempty"`

	// IsActive marks the membership as active.
	IsActive bool `json:"is_active"`
}

// ProjectMemberInfo is a membership joined with the member's user identity.
type ProjectMemberInfo struct {
	ID        int64     `json:"id"`
	ProjectID int64     `json:"project_id"`
	UserID    string    `json:"user_id"`
	UserEmail string    `json:"user_email"`
	UserName  string    `json:"user_name"`
	Role      Role      `json:"role"`
	JoinedAt  time.Time `json:"joined_at"`
	InvitedBy string    `json:"invited_by,omitempty"`
	IsActive  bool      `json:"is_active"`
}

// ProjectDetail is a project together with the requesting user's role.
type ProjectDetail struct {
	Project         Project `json:"project"`
	CurrentUserRole Role    `json:"current_user_role"`
}
