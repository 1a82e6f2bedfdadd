// Package store is the authoritative, single-process keeper of all todo,
// project, and membership records. State lives in plain maps guarded by one
// mutex per store instance, so every operation — including the project
// delete cascade — is atomic with respect to concurrent callers. Nothing is
// persisted; state is lost on restart.
package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/taskhive/apiserver/internal/apperrors"
	"github.com/taskhive/apiserver/types"
)

// Store holds projects, memberships, and todos together because they are
// linked by manually maintained foreign keys: the cached member and todo
// counts on a project, and the cascade on project deletion.
type Store struct {
	mu sync.RWMutex

	todos    map[int64]types.Todo
	projects map[int64]types.Project
	members  map[int64]types.ProjectMember

	nextTodoID    int64
	nextProjectID int64
	nextMemberID  int64
}

func NewStore() *Store {
	return &Store{
		todos:         make(map[int64]types.Todo),
		projects:      make(map[int64]types.Project),
		members:       make(map[int64]types.ProjectMember),
		nextTodoID:    1,
		nextProjectID: 1,
		nextMemberID:  1,
	}
}

// SaveTodo assigns the next id and default timestamps, stores the todo, and
// bumps the owning project's cached todo count.
func (s *Store) SaveTodo(todo types.Todo) types.Todo {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	todo.ID = s.nextTodoID
	todo.IsCompleted = false
	todo.CreatedAt = now
	todo.UpdatedAt = now
	s.nextTodoID++

	s.todos[todo.ID] = todo

	if project, ok := s.projects[todo.ProjectID]; ok {
		project.TodoCount++
		project.UpdatedAt = now
		s.projects[todo.ProjectID] = project
	}
	return todo
}

// TodoByID looks up a todo by id.
func (s *Store) TodoByID(id int64) (types.Todo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	todo, ok := s.todos[id]
	if !ok {
		return types.Todo{}, apperrors.ErrNotFound
	}
	return todo, nil
}

// UpdateTodo merges the non-nil fields of upd onto the stored record and
// refreshes UpdatedAt.
func (s *Store) UpdateTodo(id int64, upd types.TodoUpdate) (types.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	todo, ok := s.todos[id]
	if !ok {
		return types.Todo{}, apperrors.ErrNotFound
	}

	if upd.Title != nil {
		todo.Title = *upd.Title
	}
	if upd.Description != nil {
		todo.Description = *upd.Description
	}
	if upd.IsCompleted != nil {
		todo.IsCompleted = *upd.IsCompleted
	}
	if upd.Priority != nil {
		todo.Priority = *upd.Priority
	}
	if upd.AssignedTo != nil {
		todo.AssignedTo = *upd.AssignedTo
	}
	if upd.DueDate != nil {
		todo.DueDate = upd.DueDate
	}
	todo.UpdatedAt = time.Now()

	s.todos[id] = todo
	return todo, nil
}

// Todos applies the filter's equality predicates with a sequential scan,
// then sorts by the requested field and direction. Todos without a due date
// sort after dated ones regardless of direction.
func (s *Store) Todos(filter types.TodoFilter) []types.Todo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]types.Todo, 0, len(s.todos))
	for _, todo := range s.todos {
		if filter.ProjectID != nil && todo.ProjectID != *filter.ProjectID {
			continue
		}
		if filter.AssignedTo != nil && todo.AssignedTo != *filter.AssignedTo {
			continue
		}
		if filter.CreatedBy != nil && todo.CreatedBy != *filter.CreatedBy {
			continue
		}
		if filter.Completed != nil && todo.IsCompleted != *filter.Completed {
			continue
		}
		if filter.Priority != nil && todo.Priority != *filter.Priority {
			continue
		}
		result = append(result, todo)
	}

	sortTodos(result, filter.Sort, filter.Order)
	return result
}

func sortTodos(todos []types.Todo, field types.SortField, order types.SortOrder) {
	// Deterministic base order; map iteration is randomized.
	sort.Slice(todos, func(i, j int) bool { return todos[i].ID < todos[j].ID })

	desc := order == types.SortDesc
	sort.SliceStable(todos, func(i, j int) bool {
		a, b := todos[i], todos[j]
		switch field {
		case types.SortByUpdatedAt:
			if a.UpdatedAt.Equal(b.UpdatedAt) {
				return false
			}
			return a.UpdatedAt.Before(b.UpdatedAt) != desc
		case types.SortByPriority:
			if a.Priority == b.Priority {
				return false
			}
			return (a.Priority < b.Priority) != desc
		case types.SortByDueDate:
			// Undated todos always sort last.
			switch {
			case a.DueDate == nil && b.DueDate == nil:
				return false
			case a.DueDate == nil:
				return false
			case b.DueDate == nil:
				return true
			case a.DueDate.Equal(*b.DueDate):
				return false
			default:
				return a.DueDate.Before(*b.DueDate) != desc
			}
		case types.SortByTitle:
			c := strings.Compare(a.Title, b.Title)
			if c == 0 {
				return false
			}
			return (c < 0) != desc
		default: // SortByCreatedAt
			if a.CreatedAt.Equal(b.CreatedAt) {
				return false
			}
			return a.CreatedAt.Before(b.CreatedAt) != desc
		}
	})
}

// DeleteTodo removes a todo and decrements the project's cached todo count.
func (s *Store) DeleteTodo(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	todo, ok := s.todos[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	delete(s.todos, id)

	if project, ok := s.projects[todo.ProjectID]; ok {
		project.TodoCount--
		project.UpdatedAt = time.Now()
		s.projects[todo.ProjectID] = project
	}
	return nil
}

// SaveProject assigns the next id and, in the same critical section, inserts
// the creator's Owner membership with the member count initialized to 1.
func (s *Store) SaveProject(project types.Project) types.Project {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	project.ID = s.nextProjectID
	project.MemberCount = 1
	project.TodoCount = 0
	project.CreatedAt = now
	project.UpdatedAt = now
	s.nextProjectID++

	s.projects[project.ID] = project

	owner := types.ProjectMember{
		ID:        s.nextMemberID,
		ProjectID: project.ID,
		UserID:    project.OwnerID,
		Role:      types.RoleOwner,
		JoinedAt:  now,
		IsActive:  true,
	}
	s.members[owner.ID] = owner
	s.nextMemberID++

	return project
}

// ProjectByID looks up a project by id.
func (s *Store) ProjectByID(id int64) (types.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	project, ok := s.projects[id]
	if !ok {
		return types.Project{}, apperrors.ErrNotFound
	}
	return project, nil
}

// ProjectsByUser returns the projects the user is an active member of:
// a scan over memberships followed by a scan over projects.
func (s *Store) ProjectsByUser(userID string) []types.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make(map[int64]struct{})
	for _, member := range s.members {
		if member.UserID == userID && member.IsActive {
			ids[member.ProjectID] = struct{}{}
		}
	}

	result := make([]types.Project, 0, len(ids))
	for id := range ids {
		if project, ok := s.projects[id]; ok {
			result = append(result, project)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// UpdateProject merges the non-nil fields of upd onto the stored record.
func (s *Store) UpdateProject(id int64, upd types.ProjectUpdate) (types.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	project, ok := s.projects[id]
	if !ok {
		return types.Project{}, apperrors.ErrNotFound
	}

	if upd.Name != nil {
		project.Name = *upd.Name
	}
	if upd.Description != nil {
		project.Description = *upd.Description
	}
	if upd.IsPrivate != nil {
		project.IsPrivate = *upd.IsPrivate
	}
	project.UpdatedAt = time.Now()

	s.projects[id] = project
	return project, nil
}

// DeleteProject removes the project together with all of its todos and
// memberships. The whole cascade runs under the store lock, so concurrent
// readers never observe a partially deleted project.
func (s *Store) DeleteProject(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(s.projects, id)

	for todoID, todo := range s.todos {
		if todo.ProjectID == id {
			delete(s.todos, todoID)
		}
	}
	for memberID, member := range s.members {
		if member.ProjectID == id {
			delete(s.members, memberID)
		}
	}
	return nil
}

// AddMember inserts an active membership and bumps the project's cached
// member count.
func (s *Store) AddMember(projectID int64, userID string, role types.Role, invitedBy string) (types.ProjectMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	project, ok := s.projects[projectID]
	if !ok {
		return types.ProjectMember{}, apperrors.ErrNotFound
	}

	now := time.Now()
	member := types.ProjectMember{
		ID:        s.nextMemberID,
		ProjectID: projectID,
		UserID:    userID,
		Role:      role,
		JoinedAt:  now,
		InvitedBy: invitedBy,
		IsActive:  true,
	}
	s.members[member.ID] = member
	s.nextMemberID++

	project.MemberCount++
	project.UpdatedAt = now
	s.projects[projectID] = project

	return member, nil
}

// Members returns all memberships of a project.
func (s *Store) Members(projectID int64) []types.ProjectMember {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]types.ProjectMember, 0)
	for _, member := range s.members {
		if member.ProjectID == projectID {
			result = append(result, member)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Member returns the membership of a user in a project.
func (s *Store) Member(projectID int64, userID string) (types.ProjectMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.memberLocked(projectID, userID)
}

func (s *Store) memberLocked(projectID int64, userID string) (types.ProjectMember, error) {
	for _, member := range s.members {
		if member.ProjectID == projectID && member.UserID == userID {
			return member, nil
		}
	}
	return types.ProjectMember{}, apperrors.ErrNotFound
}

// UpdateMemberRole replaces the member's role.
func (s *Store) UpdateMemberRole(projectID int64, userID string, role types.Role) (types.ProjectMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	member, err := s.memberLocked(projectID, userID)
	if err != nil {
		return types.ProjectMember{}, err
	}

	member.Role = role
	s.members[member.ID] = member
	return member, nil
}

// RemoveMember deletes the membership row and decrements the project's
// cached member count.
func (s *Store) RemoveMember(projectID int64, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	member, err := s.memberLocked(projectID, userID)
	if err != nil {
		return err
	}
	delete(s.members, member.ID)

	if project, ok := s.projects[projectID]; ok {
		project.MemberCount--
		project.UpdatedAt = time.Now()
		s.projects[projectID] = project
	}
	return nil
}
