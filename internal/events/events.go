// Package events publishes collaboration activity to a message broker.
// Publishing is best-effort: a broker failure is logged and never blocks
// the request that triggered the event.
package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/taskhive/apiserver/types"
	"go.uber.org/zap"
)

// Channels carrying activity events.
const (
	ChannelTodoEvents    = "todo.events"
	ChannelProjectEvents = "project.events"
)

// Event type attribute values.
const (
	EventTodoAssigned   = "todo.assigned"
	EventMemberInvited  = "member.invited"
	EventMemberRemoved  = "member.removed"
	EventProjectDeleted = "project.deleted"
)

// Backend defines the broker-agnostic operations used by the publisher.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Close() error
}

// Publisher serializes activity events and sends them through a backend.
type Publisher struct {
	backend Backend
	logger  *zap.Logger
}

// NewPublisher constructs a Publisher for the provided backend.
func NewPublisher(backend Backend, logger *zap.Logger) *Publisher {
	return &Publisher{backend: backend, logger: logger}
}

// TodoAssignedEvent is emitted when a todo is created with an assignee or
// reassigned.
type TodoAssignedEvent struct {
	TodoID     int64     `json:"todo_id"`
	ProjectID  int64     `json:"project_id"`
	Title      string    `json:"title"`
	AssignedTo string    `json:"assigned_to"`
	OccurredAt time.Time `json:"occurred_at"`
}

// MemberInvitedEvent is emitted when a user joins a project.
type MemberInvitedEvent struct {
	ProjectID  int64     `json:"project_id"`
	UserID     string    `json:"user_id"`
	Role       string    `json:"role"`
	InvitedBy  string    `json:"invited_by"`
	OccurredAt time.Time `json:"occurred_at"`
}

// MemberRemovedEvent is emitted when a membership ends.
type MemberRemovedEvent struct {
	ProjectID  int64     `json:"project_id"`
	UserID     string    `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ProjectDeletedEvent is emitted when a project and its todos are removed.
type ProjectDeletedEvent struct {
	ProjectID  int64     `json:"project_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (p *Publisher) TodoAssigned(ctx context.Context, todo types.Todo) {
	p.publish(ctx, ChannelTodoEvents, EventTodoAssigned, TodoAssignedEvent{
		TodoID:     todo.ID,
		ProjectID:  todo.ProjectID,
		Title:      todo.Title,
		AssignedTo: todo.AssignedTo,
		OccurredAt: time.Now().UTC(),
	}, map[string]string{
		"project_id": strconv.FormatInt(todo.ProjectID, 10),
	})
}

func (p *Publisher) MemberInvited(ctx context.Context, member types.ProjectMember) {
	p.publish(ctx, ChannelProjectEvents, EventMemberInvited, MemberInvitedEvent{
		ProjectID:  member.ProjectID,
		UserID:     member.UserID,
		Role:       member.Role.String(),
		InvitedBy:  member.InvitedBy,
		OccurredAt: time.Now().UTC(),
	}, map[string]string{
		"project_id": strconv.FormatInt(member.ProjectID, 10),
	})
}

func (p *Publisher) MemberRemoved(ctx context.Context, projectID int64, userID string) {
	p.publish(ctx, ChannelProjectEvents, EventMemberRemoved, MemberRemovedEvent{
		ProjectID:  projectID,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
	}, map[string]string{
		"project_id": strconv.FormatInt(projectID, 10),
	})
}

func (p *Publisher) ProjectDeleted(ctx context.Context, projectID int64) {
	p.publish(ctx, ChannelProjectEvents, EventProjectDeleted, ProjectDeletedEvent{
		ProjectID:  projectID,
		OccurredAt: time.Now().UTC(),
	}, map[string]string{
		"project_id": strconv.FormatInt(projectID, 10),
	})
}

// Close closes the underlying backend.
func (p *Publisher) Close() error {
	return p.backend.Close()
}

func (p *Publisher) publish(ctx context.Context, channel, eventType string, payload any, attrs map[string]string) {
	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("marshal activity event",
			zap.String("event", eventType),
			zap.Error(err))
		return
	}
	if attrs == nil {
		attrs = map[string]string{}
	}
	attrs["event"] = eventType

	if _, err := p.backend.Publish(ctx, channel, data, attrs); err != nil {
		p.logger.Warn("publish activity event",
			zap.String("channel", channel),
			zap.String("event", eventType),
			zap.Error(err))
	}
}
