package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Priority is the importance level of a todo.
type Priority int

const (
	PriorityLow    Priority = 1
	PriorityMedium Priority = 2
	PriorityHigh   Priority = 3
)

var priorityNames = map[Priority]string{
	PriorityLow:    "LOW",
	PriorityMedium: "MEDIUM",
	PriorityHigh:   "HIGH",
}

// String returns the wire name of the priority.
func (p Priority) String() string {
	if name, ok := priorityNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PRIORITY(%d)", int(p))
}

// Valid reports whether the priority is one of the three known levels.
func (p Priority) Valid() bool {
	_, ok := priorityNames[p]
	return ok
}

// PriorityFromString parses a priority name case-insensitively.
// Unknown names fall back to Medium.
func PriorityFromString(value string) Priority {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "LOW":
		return PriorityLow
	case "HIGH":
		return PriorityHigh
	default:
		return PriorityMedium
	}
}

// MarshalJSON encodes the priority as its wire name.
func (p Priority) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON decodes a priority from its wire name, defaulting to Medium.
func (p *Priority) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	*p = PriorityFromString(name)
	return nil
}

// TodoStatus is the derived state of a todo. Overdue is a computed view,
// recomputed on every read; only the completion flag is stored.
type TodoStatus string

const (
	TodoStatusPending   TodoStatus = "PENDING"
	TodoStatusCompleted TodoStatus = "COMPLETED"
	TodoStatusOverdue   TodoStatus = "OVERDUE"
)

// Todo is a unit of work inside a project.
type Todo struct {
	// ID is the unique identifier of the todo, assigned sequentially.
	ID int64 `json:"id"`

	// Title is the todo title (1-255 characters).
	Title string `json:"title"`

	// Description is an optional description (up to 1000 characters).
	Description string `json:"description,omitempty"`

	// IsCompleted is the stored completion flag.
	IsCompleted bool `json:"is_completed"`

	// Priority is the importance level, defaulting to Medium.
	Priority Priority `json:"priority"`

	// ProjectID is the project the todo belongs to.
	ProjectID int64 `json:"project_id"`

	// CreatedBy is the user id of the todo's creator.
	CreatedBy string `json:"created_by"`

	// AssignedTo is the user id of the assignee, empty when unassigned.
	// A non-empty assignee must be an active member of the todo's project.
	AssignedTo string `json:"assigned_to,omitempty"`

	// CreatedAt is the timestamp at which the todo was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the todo.
	UpdatedAt time.Time `json:"updated_at"`

	// DueDate is the optional due date.
	DueDate *time.Time `json:"due_date,omitempty"`
}

// IsOverdue reports whether the due date has passed as of now.
func (t Todo) IsOverdue(now time.Time) bool {
	return t.DueDate != nil && now.After(*t.DueDate)
}

// Status derives the display state from the completion flag and due date.
func (t Todo) Status(now time.Time) TodoStatus {
	switch {
	case t.IsCompleted:
		return TodoStatusCompleted
	case t.IsOverdue(now):
		return TodoStatusOverdue
	default:
		return TodoStatusPending
	}
}

// IsCreatedBy reports whether the todo was created by the given user.
func (t Todo) IsCreatedBy(userID string) bool { return t.CreatedBy == userID }

// IsAssignedTo reports whether the todo is assigned to the given user.
func (t Todo) IsAssignedTo(userID string) bool { return t.AssignedTo != "" && t.AssignedTo == userID }

// TodoUpdate carries the optional fields of a todo update.
// Nil fields keep their stored value.
type TodoUpdate struct {
	Title       *string
	Description *string
	IsCompleted *bool
	Priority    *Priority
	AssignedTo  *string
	DueDate     *time.Time
}

// Empty reports whether the update changes nothing.
func (u TodoUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.IsCompleted == nil &&
		u.Priority == nil && u.AssignedTo == nil && u.DueDate == nil
}

// SortField selects the todo list ordering key.
type SortField string

const (
	SortByCreatedAt SortField = "CREATED_AT"
	SortByUpdatedAt SortField = "UPDATED_AT"
	SortByPriority  SortField = "PRIORITY"
	SortByDueDate   SortField = "DUE_DATE"
	SortByTitle     SortField = "TITLE"
)

// SortFieldFromString parses a sort field name case-insensitively,
// defaulting to CreatedAt.
func SortFieldFromString(value string) SortField {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "UPDATED_AT":
		return SortByUpdatedAt
	case "PRIORITY":
		return SortByPriority
	case "DUE_DATE":
		return SortByDueDate
	case "TITLE":
		return SortByTitle
	default:
		return SortByCreatedAt
	}
}

// SortOrder is the list ordering direction.
type SortOrder string

const (
	SortAsc  SortOrder = "ASC"
	SortDesc SortOrder = "DESC"
)

// SortOrderFromString parses a sort order case-insensitively, defaulting
// to descending (newest first).
func SortOrderFromString(value string) SortOrder {
	if strings.EqualFold(strings.TrimSpace(value), string(SortAsc)) {
		return SortAsc
	}
	return SortDesc
}

// TodoFilter carries the optional equality filters and ordering for todo
// listings. Nil filters match everything.
type TodoFilter struct {
	ProjectID  *int64
	AssignedTo *string
	CreatedBy  *string
	Completed  *bool
	Priority   *Priority
	Sort       SortField
	Order      SortOrder
}
