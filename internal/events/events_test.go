package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/taskhive/apiserver/types"
	"go.uber.org/zap"
)

type published struct {
	channel string
	data    []byte
	attrs   map[string]string
}

// memBackend records publishes; fail makes every publish error.
type memBackend struct {
	published []published
	fail      bool
}

func (m *memBackend) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if m.fail {
		return "", errors.New("broker down")
	}
	m.published = append(m.published, published{channel: channel, data: data, attrs: attrs})
	return "msg-1", nil
}

func (m *memBackend) Close() error { return nil }

func TestPublisherTodoAssigned(t *testing.T) {
	backend := &memBackend{}
	publisher := NewPublisher(backend, zap.NewNop())

	due := time.Now().Add(time.Hour)
	publisher.TodoAssigned(context.Background(), types.Todo{
		ID:         7,
		ProjectID:  3,
		Title:      "ship it",
		AssignedTo: "user-1",
		DueDate:    &due,
	})

	require.Len(t, backend.published, 1)
	msg := backend.published[0]
	require.Equal(t, ChannelTodoEvents, msg.channel)
	require.Equal(t, EventTodoAssigned, msg.attrs["event"])
	require.Equal(t, "3", msg.attrs["project_id"])

	var event TodoAssignedEvent
	require.NoError(t, json.Unmarshal(msg.data, &event))
	require.Equal(t, int64(7), event.TodoID)
	require.Equal(t, "user-1", event.AssignedTo)
	require.False(t, event.OccurredAt.IsZero())
}

func TestPublisherMemberLifecycle(t *testing.T) {
	backend := &memBackend{}
	publisher := NewPublisher(backend, zap.NewNop())
	ctx := context.Background()

	publisher.MemberInvited(ctx, types.ProjectMember{ProjectID: 3, UserID: "user-2", Role: types.RoleViewer, InvitedBy: "user-1"})
	publisher.MemberRemoved(ctx, 3, "user-2")
	publisher.ProjectDeleted(ctx, 3)

	require.Len(t, backend.published, 3)
	for _, msg := range backend.published {
		require.Equal(t, ChannelProjectEvents, msg.channel)
		require.Equal(t, "3", msg.attrs["project_id"])
	}
	require.Equal(t, EventMemberInvited, backend.published[0].attrs["event"])
	require.Equal(t, EventMemberRemoved, backend.published[1].attrs["event"])
	require.Equal(t, EventProjectDeleted, backend.published[2].attrs["event"])

	var invited MemberInvitedEvent
	require.NoError(t, json.Unmarshal(backend.published[0].data, &invited))
	require.Equal(t, "VIEWER", invited.Role)
}

func TestPublisherSwallowsBrokerErrors(t *testing.T) {
	backend := &memBackend{fail: true}
	publisher := NewPublisher(backend, zap.NewNop())

	// Must not panic or surface the error.
	publisher.ProjectDeleted(context.Background(), 1)
	require.Empty(t, backend.published)
}
