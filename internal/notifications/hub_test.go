package notifications

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(hub *Hub, userID uuid.UUID) *Client {
	return &Client{
		hub:    hub,
		userID: userID,
		send:   make(chan []byte, sendBuffer),
		logger: zap.NewNop(),
	}
}

func TestHubPushReachesAllUserConnections(t *testing.T) {
	hub := NewHub(zap.NewNop())
	userID := uuid.New()

	a := newTestClient(hub, userID)
	b := newTestClient(hub, userID)
	hub.add(a)
	hub.add(b)

	hub.Push(userID, []byte(`{"title":"hi"}`))

	require.Equal(t, []byte(`{"title":"hi"}`), <-a.send)
	require.Equal(t, []byte(`{"title":"hi"}`), <-b.send)
}

func TestHubPushToUnknownUserIsNoop(t *testing.T) {
	hub := NewHub(zap.NewNop())
	hub.Push(uuid.New(), []byte("x"))
}

func TestHubPushSkipsOtherUsers(t *testing.T) {
	hub := NewHub(zap.NewNop())
	mine := newTestClient(hub, uuid.New())
	other := newTestClient(hub, uuid.New())
	hub.add(mine)
	hub.add(other)

	hub.Push(mine.userID, []byte("only-mine"))

	require.Len(t, mine.send, 1)
	require.Len(t, other.send, 0)
}

func TestHubRemoveClosesSendChannel(t *testing.T) {
	hub := NewHub(zap.NewNop())
	c := newTestClient(hub, uuid.New())
	hub.add(c)

	hub.remove(c)
	_, open := <-c.send
	require.False(t, open)

	// Removing again must not panic or double-close.
	hub.remove(c)

	hub.Push(c.userID, []byte("gone"))
}
