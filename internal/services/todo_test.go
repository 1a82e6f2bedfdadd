package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/taskhive/apiserver/internal/apperrors"
	"github.com/taskhive/apiserver/internal/store"
	"github.com/taskhive/apiserver/types"
)

// todoFixture wires a real in-memory store behind the service with one
// project owned by "owner" and a member for each role.
type todoFixture struct {
	svc     *TodoService
	store   *store.Store
	project types.Project
}

func newTodoFixture(t *testing.T) todoFixture {
	t.Helper()
	st := store.NewStore()
	project := st.SaveProject(types.Project{Name: "workspace", OwnerID: "owner"})
	for user, role := range map[string]types.Role{
		"admin":  types.RoleAdmin,
		"member": types.RoleMember,
		"viewer": types.RoleViewer,
	} {
		_, err := st.AddMember(project.ID, user, role, "owner")
		require.NoError(t, err)
	}
	return todoFixture{
		svc:     NewTodoService(st, nil),
		store:   st,
		project: project,
	}
}

func TestTodoCreateRequiresMemberRole(t *testing.T) {
	f := newTodoFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, "viewer", types.Todo{Title: "forbidden", ProjectID: f.project.ID})
	require.ErrorIs(t, err, apperrors.ErrPermission)

	created, err := f.svc.Create(ctx, "member", types.Todo{Title: "allowed", ProjectID: f.project.ID})
	require.NoError(t, err)
	require.Equal(t, "member", created.CreatedBy)
	require.Equal(t, types.PriorityMedium, created.Priority, "priority defaults to medium")
	require.False(t, created.IsCompleted)
}

func TestTodoCreateValidation(t *testing.T) {
	f := newTodoFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, "member", types.Todo{Title: "   ", ProjectID: f.project.ID})
	require.ErrorIs(t, err, apperrors.ErrValidation)

	long := make([]byte, 256)
	for i := range long {
		long[i] = 'x'
	}
	_, err = f.svc.Create(ctx, "member", types.Todo{Title: string(long), ProjectID: f.project.ID})
	require.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.svc.Create(ctx, "member", types.Todo{Title: "<script>alert(1)</script>", ProjectID: f.project.ID})
	require.ErrorIs(t, err, apperrors.ErrValidation)

	// Limits count characters, not bytes: 200 three-byte runes fit in 255.
	multibyte := strings.Repeat("あ", 200)
	_, err = f.svc.Create(ctx, "member", types.Todo{Title: multibyte, ProjectID: f.project.ID})
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, "member", types.Todo{Title: strings.Repeat("あ", 256), ProjectID: f.project.ID})
	require.ErrorIs(t, err, apperrors.ErrValidation)

	past := time.Now().Add(-time.Hour)
	_, err = f.svc.Create(ctx, "member", types.Todo{Title: "late", ProjectID: f.project.ID, DueDate: &past})
	require.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.svc.Create(ctx, "member", types.Todo{Title: "orphan", ProjectID: 999})
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestTodoCreateAssigneeMustBeMember(t *testing.T) {
	f := newTodoFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, "member", types.Todo{Title: "for stranger", ProjectID: f.project.ID, AssignedTo: "stranger"})
	require.ErrorIs(t, err, apperrors.ErrValidation)

	created, err := f.svc.Create(ctx, "member", types.Todo{Title: "for admin", ProjectID: f.project.ID, AssignedTo: "admin"})
	require.NoError(t, err)
	require.Equal(t, "admin", created.AssignedTo)
}

func TestTodoGetRequiresMembership(t *testing.T) {
	f := newTodoFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, "member", types.Todo{Title: "secret", ProjectID: f.project.ID})
	require.NoError(t, err)

	// A non-member gets a permission error, not a not-found, so existence
	// does not leak.
	_, err = f.svc.Get(ctx, "stranger", created.ID)
	require.ErrorIs(t, err, apperrors.ErrPermission)

	got, err := f.svc.Get(ctx, "viewer", created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)

	_, err = f.svc.Get(ctx, "member", 999)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestTodoUpdatePermissions(t *testing.T) {
	f := newTodoFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, "member", types.Todo{Title: "shared", ProjectID: f.project.ID, AssignedTo: "viewer"})
	require.NoError(t, err)

	// The assignee may update even as a viewer.
	completed := true
	updated, err := f.svc.Update(ctx, "viewer", created.ID, types.TodoUpdate{IsCompleted: &completed})
	require.NoError(t, err)
	require.True(t, updated.IsCompleted)

	// A viewer who is neither creator nor assignee may not.
	unassigned, err := f.svc.Create(ctx, "admin", types.Todo{Title: "locked", ProjectID: f.project.ID})
	require.NoError(t, err)
	title := "renamed"
	_, err = f.svc.Update(ctx, "viewer", unassigned.ID, types.TodoUpdate{Title: &title})
	require.ErrorIs(t, err, apperrors.ErrPermission)

	// An empty update is rejected before any lookup.
	_, err = f.svc.Update(ctx, "member", created.ID, types.TodoUpdate{})
	require.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestTodoDeletePermissions(t *testing.T) {
	f := newTodoFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, "admin", types.Todo{Title: "admin's", ProjectID: f.project.ID})
	require.NoError(t, err)

	// A plain member who is not the creator cannot delete.
	err = f.svc.Delete(ctx, "member", created.ID)
	require.ErrorIs(t, err, apperrors.ErrPermission)

	// The creator can, regardless of role.
	mine, err := f.svc.Create(ctx, "member", types.Todo{Title: "mine", ProjectID: f.project.ID})
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, "member", mine.ID))

	// Admins can delete anything in the project.
	require.NoError(t, f.svc.Delete(ctx, "admin", created.ID))
}

func TestTodoListScopedToMemberProjects(t *testing.T) {
	f := newTodoFixture(t)
	ctx := context.Background()

	other := f.store.SaveProject(types.Project{Name: "private", OwnerID: "stranger"})
	f.store.SaveTodo(types.Todo{Title: "hidden", ProjectID: other.ID})

	_, err := f.svc.Create(ctx, "member", types.Todo{Title: "visible", ProjectID: f.project.ID})
	require.NoError(t, err)

	todos := f.svc.List(ctx, "member", types.TodoFilter{})
	require.Len(t, todos, 1)
	require.Equal(t, "visible", todos[0].Title)
}

func TestTodoListByProject(t *testing.T) {
	f := newTodoFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, "member", types.Todo{Title: "one", ProjectID: f.project.ID})
	require.NoError(t, err)

	todos, err := f.svc.ListByProject(ctx, "viewer", f.project.ID, types.TodoFilter{})
	require.NoError(t, err)
	require.Len(t, todos, 1)

	_, err = f.svc.ListByProject(ctx, "stranger", f.project.ID, types.TodoFilter{})
	require.ErrorIs(t, err, apperrors.ErrPermission)

	_, err = f.svc.ListByProject(ctx, "member", 999, types.TodoFilter{})
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}
