package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stablehq/paddock/internal/clock"
	"github.com/stablehq/paddock/internal/guardian"
	horsecaredomain "github.com/stablehq/paddock/internal/horsecare/domain"
	identitydomain "github.com/stablehq/paddock/internal/identity/domain"
	"github.com/stablehq/paddock/internal/notification"
	notificationdomain "github.com/stablehq/paddock/internal/notification/domain"
	"github.com/stablehq/paddock/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	clk    clock.Clock
	users  identitydomain.Repository
	outbox *notification.Outbox
}

type ServiceParam struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Users  identitydomain.Repository
	Outbox *notification.Outbox
}

func NewService(p ServiceParam) horsecaredomain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("horsecare.service"),
		genID:  p.GenID,
		clk:    p.Clock,
		users:  p.Users,
		outbox: p.Outbox,
	}
}

func (s *Service) CreateHorse(ctx context.Context, ownerID snowflake.ID, req horsecaredomain.CreateHorseRequest) (*horsecaredomain.Horse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, horsecaredomain.ErrInvalidHorseName
	}

	now := time.Now().UTC()
	horse := &horsecaredomain.Horse{
		ID:        s.genID.Generate(),
		Name:      name,
		OwnerID:   ownerID,
		Stable:    strings.TrimSpace(req.Stable),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(horse).Error; err != nil {
		return nil, err
	}
	return horse, nil
}

func (s *Service) ListHorses(ctx context.Context, ownerID snowflake.ID) ([]horsecaredomain.Horse, error) {
	var horses []horsecaredomain.Horse
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("name").
		Find(&horses).Error
	if err != nil {
		return nil, err
	}
	return horses, nil
}

func (s *Service) CreateEvent(ctx context.Context, ownerID snowflake.ID, req horsecaredomain.CreateEventRequest) (*horsecaredomain.CareEvent, error) {
	horseID, err := snowflake.ParseString(strings.TrimSpace(req.HorseID))
	if err != nil {
		return nil, horsecaredomain.ErrHorseNotFound
	}
	eventType := strings.TrimSpace(req.EventType)
	if eventType == "" {
		return nil, horsecaredomain.ErrInvalidEventType
	}
	if req.EventDate.IsZero() {
		return nil, horsecaredomain.ErrInvalidEventDate
	}
	if req.IsRecurring && req.RecurrenceWeeks <= 0 {
		return nil, horsecaredomain.ErrInvalidRecurrence
	}

	horse, err := s.loadHorse(ctx, horseID)
	if err != nil {
		return nil, err
	}
	if horse == nil {
		return nil, horsecaredomain.ErrHorseNotFound
	}
	if horse.OwnerID != ownerID {
		return nil, horsecaredomain.ErrNotHorseOwner
	}

	now := time.Now().UTC()
	event := &horsecaredomain.CareEvent{
		ID:                  s.genID.Generate(),
		HorseID:             horseID,
		EventType:           eventType,
		EventDate:           req.EventDate.UTC(),
		IsRecurring:         req.IsRecurring,
		RecurrenceWeeks:     req.RecurrenceWeeks,
		ReminderWeeksBefore: req.ReminderWeeksBefore,
		ReminderEmail:       strings.TrimSpace(req.ReminderEmail),
		ProviderName:        strings.TrimSpace(req.ProviderName),
		Description:         strings.TrimSpace(req.Description),
		CostCents:           req.CostCents,
		Notes:               strings.TrimSpace(req.Notes),
		Status:              horsecaredomain.EventStatusScheduled,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if req.NextDueDate != nil {
		due := req.NextDueDate.UTC()
		event.NextDueDate = &due
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(event).Error; err != nil {
			return err
		}
		if event.NextDueDate != nil {
			return s.enqueueReminder(ctx, tx, horse, event)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

func (s *Service) ListEvents(ctx context.Context, ownerID, horseID snowflake.ID) ([]horsecaredomain.CareEvent, error) {
	horse, err := s.loadHorse(ctx, horseID)
	if err != nil {
		return nil, err
	}
	if horse == nil {
		return nil, horsecaredomain.ErrHorseNotFound
	}
	if horse.OwnerID != ownerID {
		return nil, horsecaredomain.ErrNotHorseOwner
	}

	var events []horsecaredomain.CareEvent
	err = s.db.WithContext(ctx).
		Where("horse_id = ?", horseID).
		Order("event_date DESC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

// CompleteEvent closes a scheduled event and, when the event recurs and a due
// date exists, inserts the next occurrence in the same transaction. The status
// transition is guarded at the storage layer, so two concurrent completions
// cannot both roll the schedule forward.
func (s *Service) CompleteEvent(ctx context.Context, ownerID, eventID snowflake.ID) (*horsecaredomain.CareEvent, *horsecaredomain.CareEvent, error) {
	event, horse, err := s.loadOwnedEvent(ctx, ownerID, eventID)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	var successor *horsecaredomain.CareEvent

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Exec(
			`UPDATE care_events
			 SET status = ?, completed_date = ?, updated_at = ?
			 WHERE id = ? AND status = ?`,
			horsecaredomain.EventStatusCompleted,
			now,
			now,
			eventID,
			horsecaredomain.EventStatusScheduled,
		)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return horsecaredomain.ErrEventNotScheduled
		}

		if !event.IsRecurring || event.RecurrenceWeeks <= 0 || event.NextDueDate == nil {
			return nil
		}

		nextDue := event.NextDueDate.Add(time.Duration(event.RecurrenceWeeks) * 7 * 24 * time.Hour)
		parentID := event.ID
		successor = &horsecaredomain.CareEvent{
			ID:                  s.genID.Generate(),
			HorseID:             event.HorseID,
			EventType:           event.EventType,
			EventDate:           *event.NextDueDate,
			NextDueDate:         &nextDue,
			IsRecurring:         true,
			RecurrenceWeeks:     event.RecurrenceWeeks,
			ReminderWeeksBefore: event.ReminderWeeksBefore,
			ReminderEmail:       event.ReminderEmail,
			ProviderName:        event.ProviderName,
			Description:         event.Description,
			CostCents:           event.CostCents,
			Status:              horsecaredomain.EventStatusScheduled,
			ParentEventID:       &parentID,
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		if err := tx.Create(successor).Error; err != nil {
			return err
		}
		metrics.CareEventRollovers.Inc()
		return s.enqueueReminder(ctx, tx, horse, successor)
	})
	if err != nil {
		return nil, nil, err
	}

	event.Status = horsecaredomain.EventStatusCompleted
	event.CompletedDate = &now
	event.UpdatedAt = now
	if successor != nil {
		s.log.Info("care event rolled over",
			zap.String("event_id", event.ID.String()),
			zap.String("successor_id", successor.ID.String()),
			zap.Time("next_due_date", *successor.NextDueDate),
		)
	}
	return event, successor, nil
}

func (s *Service) CancelEvent(ctx context.Context, ownerID, eventID snowflake.ID) (*horsecaredomain.CareEvent, error) {
	event, _, err := s.loadOwnedEvent(ctx, ownerID, eventID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	result := s.db.WithContext(ctx).Exec(
		`UPDATE care_events SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		horsecaredomain.EventStatusCancelled,
		now,
		eventID,
		horsecaredomain.EventStatusScheduled,
	)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, horsecaredomain.ErrEventNotScheduled
	}

	event.Status = horsecaredomain.EventStatusCancelled
	event.UpdatedAt = now
	return event, nil
}

// enqueueReminder targets the event's explicit reminder address when present,
// otherwise the horse owner's resolved billing contact.
func (s *Service) enqueueReminder(ctx context.Context, tx *gorm.DB, horse *horsecaredomain.Horse, event *horsecaredomain.CareEvent) error {
	recipient := event.ReminderEmail
	if recipient == "" {
		owner, err := s.users.FindByID(ctx, tx, horse.OwnerID)
		if err != nil {
			return err
		}
		if owner == nil {
			return identitydomain.ErrUserNotFound
		}
		recipient = guardian.ResolveTarget(guardian.Person{
			Email:       owner.Email,
			Birthday:    owner.Birthday,
			ParentEmail: owner.ParentEmailOrEmpty(),
		}, s.clk.Now())
	}

	return s.outbox.EnqueueTx(ctx, tx, notification.Request{
		Recipient: recipient,
		Template:  notificationdomain.TemplateCareReminder,
		Params: map[string]any{
			"title":      fmt.Sprintf("%s due for %s", event.EventType, horse.Name),
			"message":    fmt.Sprintf("%s for %s is due on %s", event.EventType, horse.Name, event.NextDueDate.Format("2006-01-02")),
			"horse_name": horse.Name,
			"event_type": event.EventType,
			"due_date":   event.NextDueDate.Format("2006-01-02"),
		},
		DedupeKey: fmt.Sprintf("care_reminder|%s", event.ID),
	})
}

func (s *Service) loadOwnedEvent(ctx context.Context, ownerID, eventID snowflake.ID) (*horsecaredomain.CareEvent, *horsecaredomain.Horse, error) {
	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, nil, err
	}
	if event == nil {
		return nil, nil, horsecaredomain.ErrEventNotFound
	}
	horse, err := s.loadHorse(ctx, event.HorseID)
	if err != nil {
		return nil, nil, err
	}
	if horse == nil {
		return nil, nil, horsecaredomain.ErrHorseNotFound
	}
	if horse.OwnerID != ownerID {
		return nil, nil, horsecaredomain.ErrNotHorseOwner
	}
	return event, horse, nil
}

func (s *Service) loadHorse(ctx context.Context, id snowflake.ID) (*horsecaredomain.Horse, error) {
	var horse horsecaredomain.Horse
	err := s.db.WithContext(ctx).Raw(
		`SELECT id, name, owner_id, stable, created_at, updated_at FROM horses WHERE id = ?`,
		id,
	).Scan(&horse).Error
	if err != nil {
		return nil, err
	}
	if horse.ID == 0 {
		return nil, nil
	}
	return &horse, nil
}

func (s *Service) loadEvent(ctx context.Context, id snowflake.ID) (*horsecaredomain.CareEvent, error) {
	var event horsecaredomain.CareEvent
	err := s.db.WithContext(ctx).Raw(
		`SELECT * FROM care_events WHERE id = ?`,
		id,
	).Scan(&event).Error
	if err != nil {
		return nil, err
	}
	if event.ID == 0 {
		return nil, nil
	}
	return &event, nil
}
