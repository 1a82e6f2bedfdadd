package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/taskhive/apiserver/internal/apperrors"
	"github.com/taskhive/apiserver/internal/store"
	"github.com/taskhive/apiserver/types"
)

// recordingPublisher captures published activity for assertions.
type recordingPublisher struct {
	assigned []types.Todo
	invited  []types.ProjectMember
	removed  []string
	deleted  []int64
}

func (r *recordingPublisher) TodoAssigned(_ context.Context, todo types.Todo) {
	r.assigned = append(r.assigned, todo)
}

func (r *recordingPublisher) MemberInvited(_ context.Context, member types.ProjectMember) {
	r.invited = append(r.invited, member)
}

func (r *recordingPublisher) MemberRemoved(_ context.Context, _ int64, userID string) {
	r.removed = append(r.removed, userID)
}

func (r *recordingPublisher) ProjectDeleted(_ context.Context, projectID int64) {
	r.deleted = append(r.deleted, projectID)
}

type projectFixture struct {
	svc     *ProjectService
	store   *store.Store
	users   *store.UserStore
	events  *recordingPublisher
	project types.Project
	userIDs map[string]string
}

// newProjectFixture registers a user per role name, creates a project owned
// by "owner", and adds the rest as members with their namesake role.
func newProjectFixture(t *testing.T) projectFixture {
	t.Helper()
	st := store.NewStore()
	users := store.NewUserStore()
	events := &recordingPublisher{}
	svc := NewProjectService(st, users, events)

	userIDs := make(map[string]string)
	for _, name := range []string{"owner", "admin", "member", "viewer", "outsider"} {
		user, err := users.Create(types.User{Email: name + "@example.com", Name: name})
		require.NoError(t, err)
		userIDs[name] = user.ID
	}

	project, err := svc.Create(context.Background(), userIDs["owner"], types.Project{Name: "workspace"})
	require.NoError(t, err)

	for name, role := range map[string]types.Role{
		"admin":  types.RoleAdmin,
		"member": types.RoleMember,
		"viewer": types.RoleViewer,
	} {
		_, err := st.AddMember(project.ID, userIDs[name], role, userIDs["owner"])
		require.NoError(t, err)
	}

	return projectFixture{
		svc:     svc,
		store:   st,
		users:   users,
		events:  events,
		project: project,
		userIDs: userIDs,
	}
}

func TestProjectCreateMakesCreatorOwner(t *testing.T) {
	f := newProjectFixture(t)

	detail, err := f.svc.Get(context.Background(), f.userIDs["owner"], f.project.ID)
	require.NoError(t, err)
	require.Equal(t, types.RoleOwner, detail.CurrentUserRole)
	require.Equal(t, 4, detail.Project.MemberCount)
}

func TestProjectCreateValidation(t *testing.T) {
	f := newProjectFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.userIDs["owner"], types.Project{Name: ""})
	require.ErrorIs(t, err, apperrors.ErrValidation)

	long := make([]byte, 101)
	for i := range long {
		long[i] = 'x'
	}
	_, err = f.svc.Create(ctx, f.userIDs["owner"], types.Project{Name: string(long)})
	require.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestProjectGetHidesExistenceFromNonMembers(t *testing.T) {
	f := newProjectFixture(t)

	_, err := f.svc.Get(context.Background(), f.userIDs["outsider"], f.project.ID)
	require.ErrorIs(t, err, apperrors.ErrPermission)

	_, err = f.svc.Get(context.Background(), f.userIDs["owner"], 999)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestProjectUpdateRequiresAdmin(t *testing.T) {
	f := newProjectFixture(t)
	ctx := context.Background()
	name := "renamed"

	_, err := f.svc.Update(ctx, f.userIDs["member"], f.project.ID, types.ProjectUpdate{Name: &name})
	require.ErrorIs(t, err, apperrors.ErrPermission)

	updated, err := f.svc.Update(ctx, f.userIDs["admin"], f.project.ID, types.ProjectUpdate{Name: &name})
	require.NoError(t, err)
	require.Equal(t, "renamed", updated.Name)
}

func TestProjectDeleteOwnerOnly(t *testing.T) {
	f := newProjectFixture(t)
	ctx := context.Background()

	// Even admins cannot delete the project.
	err := f.svc.Delete(ctx, f.userIDs["admin"], f.project.ID)
	require.ErrorIs(t, err, apperrors.ErrPermission)

	require.NoError(t, f.svc.Delete(ctx, f.userIDs["owner"], f.project.ID))
	require.Equal(t, []int64{f.project.ID}, f.events.deleted)

	_, err = f.svc.Get(ctx, f.userIDs["owner"], f.project.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestInviteMember(t *testing.T) {
	f := newProjectFixture(t)
	ctx := context.Background()

	// Members cannot invite.
	_, err := f.svc.Invite(ctx, f.userIDs["member"], f.project.ID, "outsider@example.com", types.RoleMember)
	require.ErrorIs(t, err, apperrors.ErrPermission)

	// Unknown email.
	_, err = f.svc.Invite(ctx, f.userIDs["admin"], f.project.ID, "nobody@example.com", types.RoleMember)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	// Owner role is never assignable.
	_, err = f.svc.Invite(ctx, f.userIDs["admin"], f.project.ID, "outsider@example.com", types.RoleOwner)
	require.ErrorIs(t, err, apperrors.ErrValidation)

	member, err := f.svc.Invite(ctx, f.userIDs["admin"], f.project.ID, "outsider@example.com", types.RoleViewer)
	require.NoError(t, err)
	require.Equal(t, f.userIDs["outsider"], member.UserID)
	require.Equal(t, types.RoleViewer, member.Role)
	require.Equal(t, f.userIDs["admin"], member.InvitedBy)
	require.Len(t, f.events.invited, 1)

	// Inviting an existing member conflicts.
	_, err = f.svc.Invite(ctx, f.userIDs["admin"], f.project.ID, "outsider@example.com", types.RoleViewer)
	require.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestUpdateMemberRoleMatrix(t *testing.T) {
	f := newProjectFixture(t)
	ctx := context.Background()

	// Members cannot manage roles.
	_, err := f.svc.UpdateMemberRole(ctx, f.userIDs["member"], f.project.ID, f.userIDs["viewer"], types.RoleMember)
	require.ErrorIs(t, err, apperrors.ErrPermission)

	// The owner's role is untouchable.
	_, err = f.svc.UpdateMemberRole(ctx, f.userIDs["admin"], f.project.ID, f.userIDs["owner"], types.RoleMember)
	require.ErrorIs(t, err, apperrors.ErrPermission)

	// No one can grant the owner role.
	_, err = f.svc.UpdateMemberRole(ctx, f.userIDs["owner"], f.project.ID, f.userIDs["viewer"], types.RoleOwner)
	require.ErrorIs(t, err, apperrors.ErrValidation)

	// An admin cannot modify a peer admin.
	second, err := f.svc.Invite(ctx, f.userIDs["owner"], f.project.ID, "outsider@example.com", types.RoleAdmin)
	require.NoError(t, err)
	_, err = f.svc.UpdateMemberRole(ctx, f.userIDs["admin"], f.project.ID, second.UserID, types.RoleMember)
	require.ErrorIs(t, err, apperrors.ErrPermission)

	// An admin can promote a viewer up to their own level.
	promoted, err := f.svc.UpdateMemberRole(ctx, f.userIDs["admin"], f.project.ID, f.userIDs["viewer"], types.RoleAdmin)
	require.NoError(t, err)
	require.Equal(t, types.RoleAdmin, promoted.Role)

	// Unknown target.
	_, err = f.svc.UpdateMemberRole(ctx, f.userIDs["owner"], f.project.ID, "ghost", types.RoleMember)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRemoveMember(t *testing.T) {
	f := newProjectFixture(t)
	ctx := context.Background()

	// The owner can never be removed, not even by themself.
	err := f.svc.RemoveMember(ctx, f.userIDs["owner"], f.project.ID, f.userIDs["owner"])
	require.ErrorIs(t, err, apperrors.ErrPermission)

	// A member cannot remove someone else.
	err = f.svc.RemoveMember(ctx, f.userIDs["member"], f.project.ID, f.userIDs["viewer"])
	require.ErrorIs(t, err, apperrors.ErrPermission)

	// An admin cannot remove the owner.
	err = f.svc.RemoveMember(ctx, f.userIDs["admin"], f.project.ID, f.userIDs["owner"])
	require.ErrorIs(t, err, apperrors.ErrPermission)

	// Admins can remove lower-ranked members.
	require.NoError(t, f.svc.RemoveMember(ctx, f.userIDs["admin"], f.project.ID, f.userIDs["viewer"]))
	require.Equal(t, []string{f.userIDs["viewer"]}, f.events.removed)
}

func TestLeaveProject(t *testing.T) {
	f := newProjectFixture(t)
	ctx := context.Background()

	// Any non-owner may leave on their own.
	require.NoError(t, f.svc.Leave(ctx, f.userIDs["viewer"], f.project.ID))

	// Owners must delete the project instead.
	err := f.svc.Leave(ctx, f.userIDs["owner"], f.project.ID)
	require.ErrorIs(t, err, apperrors.ErrPermission)

	detail, err := f.svc.Get(ctx, f.userIDs["owner"], f.project.ID)
	require.NoError(t, err)
	require.Equal(t, 3, detail.Project.MemberCount)
}

func TestMembersJoinsUserIdentity(t *testing.T) {
	f := newProjectFixture(t)

	members, err := f.svc.Members(context.Background(), f.userIDs["viewer"], f.project.ID)
	require.NoError(t, err)
	require.Len(t, members, 4)

	byID := make(map[string]types.ProjectMemberInfo)
	for _, m := range members {
		byID[m.UserID] = m
	}
	require.Equal(t, "owner@example.com", byID[f.userIDs["owner"]].UserEmail)
	require.Equal(t, "admin", byID[f.userIDs["admin"]].UserName)

	_, err = f.svc.Members(context.Background(), f.userIDs["outsider"], f.project.ID)
	require.ErrorIs(t, err, apperrors.ErrPermission)
}
