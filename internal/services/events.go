package services

import (
	"context"

	"github.com/taskhive/apiserver/types"
)

// ActivityPublisher receives notifications about collaboration-relevant
// mutations. Publishing is best-effort: implementations log failures and
// never surface them to the caller.
type ActivityPublisher interface {
	TodoAssigned(ctx context.Context, todo types.Todo)
	MemberInvited(ctx context.Context, member types.ProjectMember)
	MemberRemoved(ctx context.Context, projectID int64, userID string)
	ProjectDeleted(ctx context.Context, projectID int64)
}

// NopPublisher discards all activity events. It is the default when no
// broker is configured.
type NopPublisher struct{}

func (NopPublisher) TodoAssigned(context.Context, types.Todo)           {}
func (NopPublisher) MemberInvited(context.Context, types.ProjectMember) {}
func (NopPublisher) MemberRemoved(context.Context, int64, string)       {}
func (NopPublisher) ProjectDeleted(context.Context, int64)              {}
