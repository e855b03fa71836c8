package notifications

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/evex-campus/backend/internal/models"
	redispkg "github.com/evex-campus/backend/pkg/redis"
)

// PubSubChannel carries persisted notifications between server instances
// so the websocket push reaches the instance holding the connection.
const PubSubChannel = "notifications:push"

// Publish broadcasts a persisted notification to all instances.
func Publish(ctx context.Context, rdb *redispkg.Client, n *models.Notification) error {
	raw, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return rdb.Publish(ctx, PubSubChannel, raw).Err()
}

// RunSubscriber consumes the pub/sub channel and routes each message to
// the local hub. Blocks until ctx is cancelled.
func RunSubscriber(ctx context.Context, rdb *redispkg.Client, hub *Hub, logger *zap.Logger) {
	sub := rdb.Subscribe(ctx, PubSubChannel)
	defer sub.Close()

	ch := sub.Channel()
	logger.Info("notification subscriber started", zap.String("channel", PubSubChannel))
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var n models.Notification
			if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
				logger.Warn("invalid notification payload", zap.Error(err))
				continue
			}
			hub.Push(n.UserID, []byte(msg.Payload))
		}
	}
}
