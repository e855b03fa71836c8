package notifications

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evex-campus/backend/internal/models"
	"github.com/evex-campus/backend/pkg/queue"
	redispkg "github.com/evex-campus/backend/pkg/redis"
)

// emailTypes are the notification types that also get an email.
var emailTypes = map[string]struct{}{
	models.NotifyRegistrationConfirmation: {},
	models.NotifyWaitlistPromotion:        {},
	models.NotifyEventCancelled:           {},
}

// Notifier persists notifications and fans them out over websocket and
// email. Called after the triggering transaction has committed; every
// failure here is logged and swallowed so delivery problems can never
// fail a registration.
type Notifier struct {
	repo   *Repository
	hub    *Hub
	rdb    *redispkg.Client
	queue  *queue.Queue
	logger *zap.Logger
}

// NewNotifier creates a notifier. rdb and q may be nil when Redis is not
// configured; delivery then degrades to local websocket push only.
func NewNotifier(repo *Repository, hub *Hub, rdb *redispkg.Client, q *queue.Queue, logger *zap.Logger) *Notifier {
	return &Notifier{repo: repo, hub: hub, rdb: rdb, queue: q, logger: logger}
}

// Notify records and delivers one notification.
func (n *Notifier) Notify(ctx context.Context, userID uuid.UUID, notificationType, title, message string, eventID *uuid.UUID) {
	note := &models.Notification{
		UserID:         userID,
		Title:          title,
		Message:        message,
		Type:           notificationType,
		RelatedEventID: eventID,
	}
	if err := n.repo.Create(ctx, note); err != nil {
		n.logger.Error("persisting notification", zap.Error(err),
			zap.String("user_id", userID.String()), zap.String("type", notificationType))
		return
	}

	if n.rdb != nil {
		if err := Publish(ctx, n.rdb, note); err != nil {
			n.logger.Warn("publishing notification", zap.Error(err), zap.String("id", note.ID.String()))
			n.pushLocal(note)
		}
	} else {
		n.pushLocal(note)
	}

	if _, ok := emailTypes[notificationType]; ok && n.queue != nil {
		email, err := n.repo.RecipientEmail(ctx, userID)
		if err != nil {
			n.logger.Warn("resolving recipient email", zap.Error(err), zap.String("user_id", userID.String()))
			return
		}
		err = n.queue.EnqueueEmail(ctx, queue.EmailPayload{
			NotificationType: notificationType,
			RecipientEmail:   email,
			Subject:          title,
			Body:             message,
			EventID:          eventID,
		})
		if err != nil {
			n.logger.Warn("enqueueing notification email", zap.Error(err), zap.String("id", note.ID.String()))
		}
	}
}

func (n *Notifier) pushLocal(note *models.Notification) {
	raw, err := json.Marshal(note)
	if err != nil {
		n.logger.Warn("marshalling notification", zap.Error(err))
		return
	}
	n.hub.Push(note.UserID, raw)
}
