package registrations

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/evex-campus/backend/internal/auth"
	"github.com/evex-campus/backend/internal/eligibility"
	"github.com/evex-campus/backend/internal/models"
)

// ErrNotOwner means the caller does not manage the event.
var ErrNotOwner = errors.New("not your event")

func manages(actor auth.Identity, e *models.Event) bool {
	return actor.IsStaff || actor.Role == string(models.RoleAdmin) || e.OrganizerID == actor.UserID
}

// Notifier delivers a user notification. Called strictly after commit;
// implementations must never fail the triggering operation.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, notificationType, title, message string, eventID *uuid.UUID)
}

// ActivityRecorder appends to a user's activity feed. Called strictly
// after commit; failures are the implementation's problem.
type ActivityRecorder interface {
	Record(ctx context.Context, userID, eventID uuid.UUID, action string)
}

// Service owns the registration lifecycle transactions. Every transition
// for an event happens under SELECT ... FOR UPDATE on its row, with a
// lock timeout so pile-ups surface as retryable contention instead of
// hanging requests.
type Service struct {
	pool          beginner
	repo          *Repository
	notifier      Notifier
	activity      ActivityRecorder
	logger        *zap.Logger
	lockTimeoutMS int
}

// beginner is the slice of pgxpool.Pool the service needs.
type beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// NewService creates the registration service.
func NewService(pool beginner, repo *Repository, notifier Notifier, activity ActivityRecorder, logger *zap.Logger, lockTimeoutMS int) *Service {
	return &Service{
		pool:          pool,
		repo:          repo,
		notifier:      notifier,
		activity:      activity,
		logger:        logger,
		lockTimeoutMS: lockTimeoutMS,
	}
}

func (s *Service) begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeoutMS)); err != nil {
		_ = tx.Rollback(ctx)
		return nil, err
	}
	return tx, nil
}

// RegisterResult is the committed outcome of a register call.
type RegisterResult struct {
	Outcome      Outcome               `json:"outcome"`
	Registration *models.Registration  `json:"registration"`
	Waitlist     *models.WaitlistEntry `json:"waitlist_entry,omitempty"`
}

// Register places the user on the event, either as a registrant or at the
// tail of the waitlist when the event is full. Eligibility and schedule
// clash are checked inside the lock so the decision is race-free.
func (s *Service) Register(ctx context.Context, identity auth.Identity, eventID uuid.UUID) (*RegisterResult, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	event, err := s.repo.LockEvent(ctx, tx, eventID)
	if err != nil {
		return nil, err
	}
	if event.Status != models.EventPublished {
		return nil, ErrEventNotOpen
	}

	allowed, err := s.repo.AllowedUniversities(ctx, tx, eventID)
	if err != nil {
		return nil, err
	}
	if err := eligibility.Check(event.Visibility, event.HostUniversityID, allowed, identity.UniversityID); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetRegistration(ctx, tx, eventID, identity.UserID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		switch {
		case existing.Status.Active():
			return nil, ErrAlreadyRegistered
		case existing.Status == models.Waitlisted:
			return nil, ErrAlreadyWaitlisted
		}
	}

	clash, err := s.repo.PersonalClashExists(ctx, tx, identity.UserID, event.StartsAt, eventID)
	if err != nil {
		return nil, err
	}
	if clash {
		return nil, ErrScheduleClash
	}

	active, err := s.repo.ActiveCount(ctx, tx, eventID)
	if err != nil {
		return nil, err
	}
	outcome := DecideRegister(Snapshot{Capacity: event.Capacity, ActiveCount: active})

	result := &RegisterResult{Outcome: outcome}
	switch outcome {
	case OutcomeRegistered:
		reg, err := s.repo.UpsertRegistration(ctx, tx, eventID, identity.UserID, models.Registered)
		if err != nil {
			return nil, err
		}
		result.Registration = reg
	case OutcomeWaitlisted:
		reg, err := s.repo.UpsertRegistration(ctx, tx, eventID, identity.UserID, models.Waitlisted)
		if err != nil {
			return nil, err
		}
		max, err := s.repo.MaxWaitlistPosition(ctx, tx, eventID)
		if err != nil {
			return nil, err
		}
		entry, err := s.repo.AppendWaitlist(ctx, tx, eventID, identity.UserID, NextPosition(max))
		if err != nil {
			return nil, err
		}
		result.Registration = reg
		result.Waitlist = entry
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	if outcome == OutcomeRegistered {
		s.notifier.Notify(ctx, identity.UserID, models.NotifyRegistrationConfirmation,
			"Registration confirmed",
			fmt.Sprintf("You are registered for %q.", event.Title), &event.ID)
		s.activity.Record(ctx, identity.UserID, event.ID, models.ActionRegistered)
	} else {
		s.notifier.Notify(ctx, identity.UserID, models.NotifyWaitlistJoined,
			"Added to waitlist",
			fmt.Sprintf("%q is full. You are #%d on the waitlist.", event.Title, result.Waitlist.Position), &event.ID)
		s.activity.Record(ctx, identity.UserID, event.ID, models.ActionWaitlisted)
	}
	return result, nil
}

// CancelResult is the committed outcome of a cancellation.
type CancelResult struct {
	Registration   *models.Registration `json:"registration"`
	PromotedUserID *uuid.UUID           `json:"promoted_user_id,omitempty"`
}

// Cancel releases the user's spot. When an active registration is
// cancelled the waitlist head, if any, is promoted in the same
// transaction so the freed seat can never be lost or double-filled.
func (s *Service) Cancel(ctx context.Context, identity auth.Identity, eventID uuid.UUID) (*CancelResult, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	event, err := s.repo.LockEvent(ctx, tx, eventID)
	if err != nil {
		return nil, err
	}

	reg, err := s.repo.GetRegistration(ctx, tx, eventID, identity.UserID)
	if err != nil {
		return nil, err
	}
	if reg == nil || reg.Status == models.Cancelled {
		return nil, ErrNotRegistered
	}

	result := &CancelResult{}
	wasActive := reg.Status.Active()

	if reg.Status == models.Waitlisted {
		entry, err := s.repo.GetWaitlistEntry(ctx, tx, eventID, identity.UserID)
		if err != nil {
			return nil, err
		}
		if entry != nil {
			if err := s.repo.RemoveWaitlistEntry(ctx, tx, entry); err != nil {
				return nil, err
			}
		}
	}
	if err := s.repo.SetStatus(ctx, tx, reg.ID, models.Cancelled); err != nil {
		return nil, err
	}
	reg.Status = models.Cancelled
	result.Registration = reg

	if wasActive {
		promoted, err := s.promoteHead(ctx, tx, event)
		if err != nil {
			return nil, err
		}
		result.PromotedUserID = promoted
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.activity.Record(ctx, identity.UserID, event.ID, models.ActionCancelled)
	if result.PromotedUserID != nil {
		s.notifyPromotion(ctx, *result.PromotedUserID, event)
	}
	return result, nil
}

// promoteHead moves the waitlist head to registered inside the caller's
// transaction. Returns the promoted user ID, or nil when the waitlist is
// empty or the event has no free seat.
func (s *Service) promoteHead(ctx context.Context, tx pgx.Tx, event *models.Event) (*uuid.UUID, error) {
	head, err := s.repo.WaitlistHead(ctx, tx, event.ID)
	if err != nil {
		return nil, err
	}
	if head == nil {
		return nil, nil
	}
	active, err := s.repo.ActiveCount(ctx, tx, event.ID)
	if err != nil {
		return nil, err
	}
	if !(Snapshot{Capacity: event.Capacity, ActiveCount: active}).HasRoom() {
		return nil, nil
	}
	if err := s.repo.RemoveWaitlistEntry(ctx, tx, head); err != nil {
		return nil, err
	}
	reg, err := s.repo.GetRegistration(ctx, tx, event.ID, head.UserID)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		return nil, fmt.Errorf("waitlist entry without registration row: event %s user %s", event.ID, head.UserID)
	}
	if err := s.repo.SetStatus(ctx, tx, reg.ID, models.Registered); err != nil {
		return nil, err
	}
	return &head.UserID, nil
}

func (s *Service) notifyPromotion(ctx context.Context, userID uuid.UUID, event *models.Event) {
	s.notifier.Notify(ctx, userID, models.NotifyWaitlistPromotion,
		"Promoted from waitlist",
		fmt.Sprintf("A spot opened up: you are now registered for %q.", event.Title), &event.ID)
	s.activity.Record(ctx, userID, event.ID, models.ActionPromoted)
}

// MarkAttended records attendance for a registered user. Runs under the
// event lock like every other transition; attended still consumes the
// seat, so no promotion happens here.
func (s *Service) MarkAttended(ctx context.Context, actor auth.Identity, eventID, userID uuid.UUID, notes string) (*models.Attendance, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	event, err := s.repo.LockEvent(ctx, tx, eventID)
	if err != nil {
		return nil, err
	}
	if !manages(actor, event) {
		return nil, ErrNotOwner
	}

	reg, err := s.repo.GetRegistration(ctx, tx, eventID, userID)
	if err != nil {
		return nil, err
	}
	if reg == nil || reg.Status == models.Cancelled || reg.Status == models.Waitlisted {
		return nil, ErrNotRegistered
	}
	if reg.Status == models.Attended {
		return nil, ErrAlreadyAttended
	}

	if err := s.repo.SetStatus(ctx, tx, reg.ID, models.Attended); err != nil {
		return nil, err
	}
	att, err := s.repo.RecordAttendance(ctx, tx, eventID, userID, reg.ID, &actor.UserID, notes)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, userID, models.NotifyAttendanceConfirmed,
		"Attendance recorded",
		fmt.Sprintf("Your attendance at %q has been recorded.", event.Title), &event.ID)
	return att, nil
}

// SetCapacity changes the event's capacity and promotes as many
// waitlisted users as the new capacity admits, in position order, all in
// one transaction.
func (s *Service) SetCapacity(ctx context.Context, actor auth.Identity, eventID uuid.UUID, capacity *int) ([]uuid.UUID, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	event, err := s.repo.LockEvent(ctx, tx, eventID)
	if err != nil {
		return nil, err
	}
	if !manages(actor, event) {
		return nil, ErrNotOwner
	}
	if err := s.repo.SetEventCapacity(ctx, tx, eventID, capacity); err != nil {
		return nil, err
	}
	event.Capacity = capacity

	var promoted []uuid.UUID
	for {
		userID, err := s.promoteHead(ctx, tx, event)
		if err != nil {
			return nil, err
		}
		if userID == nil {
			break
		}
		promoted = append(promoted, *userID)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	for _, userID := range promoted {
		s.notifyPromotion(ctx, userID, event)
	}
	return promoted, nil
}

// NotifyEventCancelled fans out a cancellation notice to everyone holding
// a registration or waitlist spot. Best-effort, called after the event's
// own status change has committed.
func (s *Service) NotifyEventCancelled(ctx context.Context, event *models.Event) {
	userIDs, err := s.repo.ActiveUserIDs(ctx, event.ID)
	if err != nil {
		s.logger.Error("listing registrants for cancellation notice", zap.Error(err), zap.String("event_id", event.ID.String()))
		return
	}
	for _, userID := range userIDs {
		s.notifier.Notify(ctx, userID, models.NotifyEventCancelled,
			"Event cancelled",
			fmt.Sprintf("%q has been cancelled.", event.Title), &event.ID)
	}
}

// NotifyEventUpdated fans out an update notice to active registrants.
func (s *Service) NotifyEventUpdated(ctx context.Context, event *models.Event) {
	userIDs, err := s.repo.ActiveUserIDs(ctx, event.ID)
	if err != nil {
		s.logger.Error("listing registrants for update notice", zap.Error(err), zap.String("event_id", event.ID.String()))
		return
	}
	for _, userID := range userIDs {
		s.notifier.Notify(ctx, userID, models.NotifyEventUpdated,
			"Event updated",
			fmt.Sprintf("Details for %q have changed.", event.Title), &event.ID)
	}
}
