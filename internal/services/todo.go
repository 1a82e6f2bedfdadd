package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/taskhive/apiserver/internal/apperrors"
	"github.com/taskhive/apiserver/types"
)

// TodoStore defines the store operations the todo use-cases need.
type TodoStore interface {
	SaveTodo(todo types.Todo) types.Todo
	TodoByID(id int64) (types.Todo, error)
	UpdateTodo(id int64, upd types.TodoUpdate) (types.Todo, error)
	Todos(filter types.TodoFilter) []types.Todo
	DeleteTodo(id int64) error
	ProjectByID(id int64) (types.Project, error)
	ProjectsByUser(userID string) []types.Project
	Member(projectID int64, userID string) (types.ProjectMember, error)
}

// TodoService encapsulates todo use-cases: validation, project-scoped
// permission checks, then store mutation.
type TodoService struct {
	store  TodoStore
	events ActivityPublisher
}

func NewTodoService(store TodoStore, events ActivityPublisher) *TodoService {
	if events == nil {
		events = NopPublisher{}
	}
	return &TodoService{store: store, events: events}
}

// membership loads the caller's active membership in a project. A missing
// or inactive membership is a permission failure, not a not-found: callers
// without access must not learn whether the entity exists.
func (s *TodoService) membership(projectID int64, userID string) (types.ProjectMember, error) {
	member, err := s.store.Member(projectID, userID)
	if err != nil || !member.IsActive {
		return types.ProjectMember{}, fmt.Errorf("no access to project %d: %w", projectID, apperrors.ErrPermission)
	}
	return member, nil
}

// Create validates the todo, checks the caller holds Member or better in the
// target project, and stores it. An assignee must be an active member of the
// same project.
func (s *TodoService) Create(ctx context.Context, userID string, todo types.Todo) (types.Todo, error) {
	if err := validateText("title", todo.Title, maxTodoTitleLen); err != nil {
		return types.Todo{}, err
	}
	if err := validateOptionalText("description", todo.Description, maxTodoDescriptionLen); err != nil {
		return types.Todo{}, err
	}
	if err := validateDueDate(todo.DueDate); err != nil {
		return types.Todo{}, err
	}
	if err := validateID("project id", todo.ProjectID); err != nil {
		return types.Todo{}, err
	}

	if _, err := s.store.ProjectByID(todo.ProjectID); err != nil {
		return types.Todo{}, fmt.Errorf("project %d: %w", todo.ProjectID, err)
	}

	member, err := s.membership(todo.ProjectID, userID)
	if err != nil {
		return types.Todo{}, err
	}
	if !member.Role.CanCreateTodo() {
		return types.Todo{}, fmt.Errorf("role %s cannot create todos: %w", member.Role, apperrors.ErrPermission)
	}

	if todo.AssignedTo != "" {
		if err := s.requireMember(todo.ProjectID, todo.AssignedTo); err != nil {
			return types.Todo{}, err
		}
	}

	if !todo.Priority.Valid() {
		todo.Priority = types.PriorityMedium
	}
	todo.CreatedBy = userID

	created := s.store.SaveTodo(todo)
	if created.AssignedTo != "" {
		s.events.TodoAssigned(ctx, created)
	}
	return created, nil
}

func (s *TodoService) requireMember(projectID int64, userID string) error {
	member, err := s.store.Member(projectID, userID)
	if err != nil || !member.IsActive {
		return validationError("assignee %s is not a member of project %d", userID, projectID)
	}
	return nil
}

// Get returns a todo if the caller is a member of its project.
func (s *TodoService) Get(ctx context.Context, userID string, id int64) (types.Todo, error) {
	if err := validateID("todo id", id); err != nil {
		return types.Todo{}, err
	}

	todo, err := s.store.TodoByID(id)
	if err != nil {
		return types.Todo{}, fmt.Errorf("todo %d: %w", id, err)
	}
	if _, err := s.membership(todo.ProjectID, userID); err != nil {
		return types.Todo{}, err
	}
	return todo, nil
}

// Update merges the non-nil fields onto the todo. Allowed for the todo's
// creator or assignee regardless of role, and otherwise for Member and above.
func (s *TodoService) Update(ctx context.Context, userID string, id int64, upd types.TodoUpdate) (types.Todo, error) {
	if err := validateID("todo id", id); err != nil {
		return types.Todo{}, err
	}
	if upd.Empty() {
		return types.Todo{}, validationError("nothing to update")
	}
	if upd.Title != nil {
		if err := validateText("title", *upd.Title, maxTodoTitleLen); err != nil {
			return types.Todo{}, err
		}
	}
	if upd.Description != nil {
		if err := validateOptionalText("description", *upd.Description, maxTodoDescriptionLen); err != nil {
			return types.Todo{}, err
		}
	}
	// Completing a todo is always allowed, even past its due date.
	if upd.IsCompleted == nil || !*upd.IsCompleted {
		if err := validateDueDate(upd.DueDate); err != nil {
			return types.Todo{}, err
		}
	}

	todo, err := s.store.TodoByID(id)
	if err != nil {
		return types.Todo{}, fmt.Errorf("todo %d: %w", id, err)
	}

	member, err := s.membership(todo.ProjectID, userID)
	if err != nil {
		return types.Todo{}, err
	}

	canEdit := todo.IsCreatedBy(userID) || todo.IsAssignedTo(userID) || member.Role.CanEditTodo()
	if !canEdit {
		return types.Todo{}, fmt.Errorf("role %s cannot edit this todo: %w", member.Role, apperrors.ErrPermission)
	}

	if upd.AssignedTo != nil && *upd.AssignedTo != "" {
		if err := s.requireMember(todo.ProjectID, *upd.AssignedTo); err != nil {
			return types.Todo{}, err
		}
	}

	updated, err := s.store.UpdateTodo(id, upd)
	if err != nil {
		return types.Todo{}, fmt.Errorf("todo %d: %w", id, err)
	}

	if upd.AssignedTo != nil && updated.AssignedTo != "" && updated.AssignedTo != todo.AssignedTo {
		s.events.TodoAssigned(ctx, updated)
	}
	return updated, nil
}

// List returns todos matching the filter across every project the caller
// belongs to.
func (s *TodoService) List(ctx context.Context, userID string, filter types.TodoFilter) []types.Todo {
	accessible := make(map[int64]struct{})
	for _, project := range s.store.ProjectsByUser(userID) {
		accessible[project.ID] = struct{}{}
	}

	todos := s.store.Todos(filter)
	result := make([]types.Todo, 0, len(todos))
	for _, todo := range todos {
		if _, ok := accessible[todo.ProjectID]; ok {
			result = append(result, todo)
		}
	}
	return result
}

// ListByProject returns the todos of one project the caller is a member of.
func (s *TodoService) ListByProject(ctx context.Context, userID string, projectID int64, filter types.TodoFilter) ([]types.Todo, error) {
	if err := validateID("project id", projectID); err != nil {
		return nil, err
	}
	if _, err := s.store.ProjectByID(projectID); err != nil {
		return nil, fmt.Errorf("project %d: %w", projectID, err)
	}
	if _, err := s.membership(projectID, userID); err != nil {
		return nil, err
	}

	filter.ProjectID = &projectID
	return s.store.Todos(filter), nil
}

// Delete removes a todo. Allowed for the todo's creator regardless of role,
// and otherwise for Admin and above.
func (s *TodoService) Delete(ctx context.Context, userID string, id int64) error {
	if err := validateID("todo id", id); err != nil {
		return err
	}

	todo, err := s.store.TodoByID(id)
	if err != nil {
		return fmt.Errorf("todo %d: %w", id, err)
	}

	member, err := s.membership(todo.ProjectID, userID)
	if err != nil {
		return err
	}

	canDelete := todo.IsCreatedBy(userID) || member.Role.CanDeleteTodo()
	if !canDelete {
		return fmt.Errorf("role %s cannot delete this todo: %w", member.Role, apperrors.ErrPermission)
	}

	if err := s.store.DeleteTodo(id); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("todo %d: %w", id, err)
		}
		return err
	}
	return nil
}
