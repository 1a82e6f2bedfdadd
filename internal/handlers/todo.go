package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/taskhive/apiserver/internal/services"
	"github.com/taskhive/apiserver/types"
)

// TodoHandler provides HTTP handlers for todos.
type TodoHandler struct {
	todoService *services.TodoService
}

func NewTodoHandler(todoService *services.TodoService) *TodoHandler {
	return &TodoHandler{todoService: todoService}
}

// TodoRouter registers todo routes on the given router. All routes require
// authentication.
func TodoRouter(r chi.Router, todoService *services.TodoService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewTodoHandler(todoService)

	r.Use(authMiddleware)
	r.Post("/", handler.CreateTodo)
	r.Get("/", handler.ListTodos)
	r.Route("/{todoID}", func(r chi.Router) {
		r.Get("/", handler.GetTodo)
		r.Put("/", handler.UpdateTodo)
		r.Delete("/", handler.DeleteTodo)
	})
}

// CreateTodoRequest is the payload for creating a todo.
type CreateTodoRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Priority    *types.Priority `json:"priority"`
	ProjectID   int64           `json:"project_id"`
	AssignedTo  string          `json:"assigned_to"`
	DueDate     *time.Time      `json:"due_date"`
}

// UpdateTodoRequest is the payload for a partial todo update. Absent fields
// keep their stored value.
type UpdateTodoRequest struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	IsCompleted *bool           `json:"is_completed"`
	Priority    *types.Priority `json:"priority"`
	AssignedTo  *string         `json:"assigned_to"`
	DueDate     *time.Time      `json:"due_date"`
}

// TodoResponse is a todo with its derived status, recomputed on every read.
type TodoResponse struct {
	types.Todo
	Status types.TodoStatus `json:"status"`
}

func todoResponse(todo types.Todo) TodoResponse {
	return TodoResponse{Todo: todo, Status: todo.Status(time.Now())}
}

func todoListResponse(todos []types.Todo) []TodoResponse {
	now := time.Now()
	result := make([]TodoResponse, 0, len(todos))
	for _, todo := range todos {
		result = append(result, TodoResponse{Todo: todo, Status: todo.Status(now)})
	}
	return result
}

func (h *TodoHandler) CreateTodo(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	todo := types.Todo{
		Title:       req.Title,
		Description: req.Description,
		ProjectID:   req.ProjectID,
		AssignedTo:  req.AssignedTo,
		DueDate:     req.DueDate,
	}
	if req.Priority != nil {
		todo.Priority = *req.Priority
	}

	created, err := h.todoService.Create(r.Context(), userID, todo)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, todoResponse(created))
}

func (h *TodoHandler) GetTodo(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseTodoID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	todo, err := h.todoService.Get(r.Context(), userID, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, todoResponse(todo))
}

func (h *TodoHandler) ListTodos(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	filter, err := parseTodoFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	todos := h.todoService.List(r.Context(), userID, filter)
	writeJSON(w, http.StatusOK, todoListResponse(todos))
}

func (h *TodoHandler) UpdateTodo(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseTodoID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req UpdateTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	updated, err := h.todoService.Update(r.Context(), userID, id, types.TodoUpdate{
		Title:       req.Title,
		Description: req.Description,
		IsCompleted: req.IsCompleted,
		Priority:    req.Priority,
		AssignedTo:  req.AssignedTo,
		DueDate:     req.DueDate,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, todoResponse(updated))
}

func (h *TodoHandler) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseTodoID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.todoService.Delete(r.Context(), userID, id); err != nil {
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parseTodoID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "todoID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, errors.New("invalid todo id")
	}
	return id, nil
}

// parseTodoFilter reads the optional equality filters and ordering from
// query parameters.
func parseTodoFilter(r *http.Request) (types.TodoFilter, error) {
	query := r.URL.Query()
	filter := types.TodoFilter{
		Sort:  types.SortFieldFromString(query.Get("sort")),
		Order: types.SortOrderFromString(query.Get("order")),
	}

	if raw := strings.TrimSpace(query.Get("project_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id < 1 {
			return types.TodoFilter{}, errors.New("invalid project_id filter")
		}
		filter.ProjectID = &id
	}
	if raw := strings.TrimSpace(query.Get("assigned_to")); raw != "" {
		filter.AssignedTo = &raw
	}
	if raw := strings.TrimSpace(query.Get("created_by")); raw != "" {
		filter.CreatedBy = &raw
	}
	if raw := strings.TrimSpace(query.Get("completed")); raw != "" {
		completed, err := strconv.ParseBool(raw)
		if err != nil {
			return types.TodoFilter{}, errors.New("invalid completed filter")
		}
		filter.Completed = &completed
	}
	if raw := strings.TrimSpace(query.Get("priority")); raw != "" {
		priority := types.PriorityFromString(raw)
		filter.Priority = &priority
	}
	return filter, nil
}
