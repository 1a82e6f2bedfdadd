package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/taskhive/apiserver/internal/apperrors"
	"github.com/taskhive/apiserver/types"
)

// ProjectStore defines the store operations the project use-cases need.
type ProjectStore interface {
	SaveProject(project types.Project) types.Project
	ProjectByID(id int64) (types.Project, error)
	ProjectsByUser(userID string) []types.Project
	UpdateProject(id int64, upd types.ProjectUpdate) (types.Project, error)
	DeleteProject(id int64) error
	AddMember(projectID int64, userID string, role types.Role, invitedBy string) (types.ProjectMember, error)
	Members(projectID int64) []types.ProjectMember
	Member(projectID int64, userID string) (types.ProjectMember, error)
	UpdateMemberRole(projectID int64, userID string, role types.Role) (types.ProjectMember, error)
	RemoveMember(projectID int64, userID string) error
}

// UserDirectory resolves user identities for invites and member listings.
type UserDirectory interface {
	ByID(id string) (types.User, error)
	ByEmail(email string) (types.User, error)
}

// ProjectService encapsulates project and membership use-cases.
type ProjectService struct {
	store  ProjectStore
	users  UserDirectory
	events ActivityPublisher
}

func NewProjectService(store ProjectStore, users UserDirectory, events ActivityPublisher) *ProjectService {
	if events == nil {
		events = NopPublisher{}
	}
	return &ProjectService{store: store, users: users, events: events}
}

func (s *ProjectService) membership(projectID int64, userID string) (types.ProjectMember, error) {
	member, err := s.store.Member(projectID, userID)
	if err != nil || !member.IsActive {
		return types.ProjectMember{}, fmt.Errorf("no access to project %d: %w", projectID, apperrors.ErrPermission)
	}
	return member, nil
}

// Create validates and stores a project. The creator becomes its Owner in
// the same store operation.
func (s *ProjectService) Create(ctx context.Context, ownerID string, project types.Project) (types.Project, error) {
	if err := validateText("project name", project.Name, maxProjectNameLen); err != nil {
		return types.Project{}, err
	}
	if err := validateOptionalText("project description", project.Description, maxProjectDescLen); err != nil {
		return types.Project{}, err
	}

	project.OwnerID = ownerID
	return s.store.SaveProject(project), nil
}

// ListForUser returns the projects the caller is a member of.
func (s *ProjectService) ListForUser(ctx context.Context, userID string) []types.Project {
	return s.store.ProjectsByUser(userID)
}

// Get returns a project together with the caller's role in it.
func (s *ProjectService) Get(ctx context.Context, userID string, projectID int64) (types.ProjectDetail, error) {
	if err := validateID("project id", projectID); err != nil {
		return types.ProjectDetail{}, err
	}

	project, err := s.store.ProjectByID(projectID)
	if err != nil {
		return types.ProjectDetail{}, fmt.Errorf("project %d: %w", projectID, err)
	}

	member, err := s.membership(projectID, userID)
	if err != nil {
		return types.ProjectDetail{}, err
	}

	return types.ProjectDetail{Project: project, CurrentUserRole: member.Role}, nil
}

// Update merges the non-nil fields onto the project. Requires Admin or above.
func (s *ProjectService) Update(ctx context.Context, userID string, projectID int64, upd types.ProjectUpdate) (types.Project, error) {
	if err := validateID("project id", projectID); err != nil {
		return types.Project{}, err
	}
	if upd.Empty() {
		return types.Project{}, validationError("nothing to update")
	}
	if upd.Name != nil {
		if err := validateText("project name", *upd.Name, maxProjectNameLen); err != nil {
			return types.Project{}, err
		}
	}
	if upd.Description != nil {
		if err := validateOptionalText("project description", *upd.Description, maxProjectDescLen); err != nil {
			return types.Project{}, err
		}
	}

	if _, err := s.store.ProjectByID(projectID); err != nil {
		return types.Project{}, fmt.Errorf("project %d: %w", projectID, err)
	}

	member, err := s.membership(projectID, userID)
	if err != nil {
		return types.Project{}, err
	}
	if !member.Role.CanManageProject() {
		return types.Project{}, fmt.Errorf("role %s cannot update the project: %w", member.Role, apperrors.ErrPermission)
	}

	return s.store.UpdateProject(projectID, upd)
}

// Delete removes a project with all of its todos and memberships.
// Owner only, no special cases.
func (s *ProjectService) Delete(ctx context.Context, userID string, projectID int64) error {
	if err := validateID("project id", projectID); err != nil {
		return err
	}

	if _, err := s.store.ProjectByID(projectID); err != nil {
		return fmt.Errorf("project %d: %w", projectID, err)
	}

	member, err := s.membership(projectID, userID)
	if err != nil {
		return err
	}
	if member.Role != types.RoleOwner {
		return fmt.Errorf("only the owner can delete a project: %w", apperrors.ErrPermission)
	}

	if err := s.store.DeleteProject(projectID); err != nil {
		return fmt.Errorf("project %d: %w", projectID, err)
	}
	s.events.ProjectDeleted(ctx, projectID)
	return nil
}

// Members returns the project's memberships joined with user identities.
// Any member may list members.
func (s *ProjectService) Members(ctx context.Context, userID string, projectID int64) ([]types.ProjectMemberInfo, error) {
	if err := validateID("project id", projectID); err != nil {
		return nil, err
	}
	if _, err := s.store.ProjectByID(projectID); err != nil {
		return nil, fmt.Errorf("project %d: %w", projectID, err)
	}
	if _, err := s.membership(projectID, userID); err != nil {
		return nil, err
	}

	members := s.store.Members(projectID)
	infos := make([]types.ProjectMemberInfo, 0, len(members))
	for _, member := range members {
		info := types.ProjectMemberInfo{
			ID:        member.ID,
			ProjectID: member.ProjectID,
			UserID:    member.UserID,
			Role:      member.Role,
			JoinedAt:  member.JoinedAt,
			InvitedBy: member.InvitedBy,
			IsActive:  member.IsActive,
		}
		if user, err := s.users.ByID(member.UserID); err == nil {
			info.UserEmail = user.Email
			info.UserName = user.Name
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Invite adds the user with the given email to the project. Requires Admin
// or above; the Owner role is never assignable, and no one can grant a role
// above their own.
func (s *ProjectService) Invite(ctx context.Context, inviterID string, projectID int64, email string, role types.Role) (types.ProjectMember, error) {
	if err := validateID("project id", projectID); err != nil {
		return types.ProjectMember{}, err
	}
	if err := validateEmail(email); err != nil {
		return types.ProjectMember{}, err
	}
	if !role.Valid() {
		role = types.RoleMember
	}
	if role == types.RoleOwner {
		return types.ProjectMember{}, validationError("the owner role cannot be granted")
	}

	if _, err := s.store.ProjectByID(projectID); err != nil {
		return types.ProjectMember{}, fmt.Errorf("project %d: %w", projectID, err)
	}

	inviter, err := s.membership(projectID, inviterID)
	if err != nil {
		return types.ProjectMember{}, err
	}
	if !inviter.Role.CanInviteMembers() {
		return types.ProjectMember{}, fmt.Errorf("role %s cannot invite members: %w", inviter.Role, apperrors.ErrPermission)
	}
	if role.HasHigherPermissionThan(inviter.Role) {
		return types.ProjectMember{}, fmt.Errorf("cannot grant a role above your own: %w", apperrors.ErrPermission)
	}

	user, err := s.users.ByEmail(email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return types.ProjectMember{}, fmt.Errorf("no user with email %s: %w", email, apperrors.ErrNotFound)
		}
		return types.ProjectMember{}, err
	}

	if existing, err := s.store.Member(projectID, user.ID); err == nil && existing.IsActive {
		return types.ProjectMember{}, fmt.Errorf("user is already a project member: %w", apperrors.ErrConflict)
	}

	member, err := s.store.AddMember(projectID, user.ID, role, inviterID)
	if err != nil {
		return types.ProjectMember{}, fmt.Errorf("project %d: %w", projectID, err)
	}
	s.events.MemberInvited(ctx, member)
	return member, nil
}

// UpdateMemberRole changes a member's role. The requester must hold Admin or
// above and outrank the target strictly; the Owner role can be neither
// granted nor taken away.
func (s *ProjectService) UpdateMemberRole(ctx context.Context, requesterID string, projectID int64, targetUserID string, newRole types.Role) (types.ProjectMember, error) {
	if err := validateID("project id", projectID); err != nil {
		return types.ProjectMember{}, err
	}
	if newRole == types.RoleOwner {
		return types.ProjectMember{}, validationError("the owner role cannot be granted")
	}
	if !newRole.Valid() {
		return types.ProjectMember{}, validationError("unknown role")
	}

	if _, err := s.store.ProjectByID(projectID); err != nil {
		return types.ProjectMember{}, fmt.Errorf("project %d: %w", projectID, err)
	}

	requester, err := s.membership(projectID, requesterID)
	if err != nil {
		return types.ProjectMember{}, err
	}
	if !requester.Role.CanManageMembers() {
		return types.ProjectMember{}, fmt.Errorf("role %s cannot manage members: %w", requester.Role, apperrors.ErrPermission)
	}

	target, err := s.store.Member(projectID, targetUserID)
	if err != nil {
		return types.ProjectMember{}, fmt.Errorf("target user is not a project member: %w", apperrors.ErrNotFound)
	}
	if target.Role == types.RoleOwner {
		return types.ProjectMember{}, fmt.Errorf("the owner's role cannot be changed: %w", apperrors.ErrPermission)
	}
	if target.Role.HasPermissionOf(requester.Role) {
		return types.ProjectMember{}, fmt.Errorf("cannot modify a member of equal or higher role: %w", apperrors.ErrPermission)
	}
	if newRole.HasHigherPermissionThan(requester.Role) {
		return types.ProjectMember{}, fmt.Errorf("cannot grant a role above your own: %w", apperrors.ErrPermission)
	}

	return s.store.UpdateMemberRole(projectID, targetUserID, newRole)
}

// RemoveMember removes a member from the project. Any non-owner may remove
// themself; removing someone else requires Admin or above and the target
// must not outrank the requester. The Owner can never be removed.
func (s *ProjectService) RemoveMember(ctx context.Context, requesterID string, projectID int64, targetUserID string) error {
	if err := validateID("project id", projectID); err != nil {
		return err
	}

	if _, err := s.store.ProjectByID(projectID); err != nil {
		return fmt.Errorf("project %d: %w", projectID, err)
	}

	requester, err := s.membership(projectID, requesterID)
	if err != nil {
		return err
	}

	target, err := s.store.Member(projectID, targetUserID)
	if err != nil {
		return fmt.Errorf("target user is not a project member: %w", apperrors.ErrNotFound)
	}
	if target.Role == types.RoleOwner {
		return fmt.Errorf("the project owner cannot be removed: %w", apperrors.ErrPermission)
	}

	if targetUserID != requesterID {
		if !requester.Role.CanManageMembers() {
			return fmt.Errorf("role %s cannot remove members: %w", requester.Role, apperrors.ErrPermission)
		}
		if target.Role.HasHigherPermissionThan(requester.Role) {
			return fmt.Errorf("cannot remove a member of higher role: %w", apperrors.ErrPermission)
		}
	}

	if err := s.store.RemoveMember(projectID, targetUserID); err != nil {
		return fmt.Errorf("project %d: %w", projectID, err)
	}
	s.events.MemberRemoved(ctx, projectID, targetUserID)
	return nil
}

// Leave removes the caller's own membership. Owners cannot leave their
// project; they must delete it instead.
func (s *ProjectService) Leave(ctx context.Context, userID string, projectID int64) error {
	return s.RemoveMember(ctx, userID, projectID, userID)
}
