package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/campuslink/campuslink-server/internal/models"
	apperrors "github.com/campuslink/campuslink-server/pkg/errors"
)

var (
	// ErrEventFull signals the event reached its participant cap.
	ErrEventFull = apperrors.New("EVENT_FULL", "Event has no places left", 409)
	// ErrAlreadyJoined signals a duplicate join attempt.
	ErrAlreadyJoined = apperrors.New("ALREADY_JOINED", "You already joined this event", 409)
	// ErrNotJoined signals a leave attempt without a prior join.
	ErrNotJoined = apperrors.New("NOT_JOINED", "You have not joined this event", 400)
)

// CreateEventInput describes a new calendar entry.
type CreateEventInput struct {
	Title       string
	Description string
	Category    models.EventCategory
	StartAt     time.Time
	EndAt       *time.Time
	Location    string
	OrganizerID string

	MaxParticipants      *int
	IsPublic             *bool
	RequiresRegistration bool
}

// UpdateEventInput enumerates mutable event attributes.
type UpdateEventInput struct {
	Title       *string
	Description *string
	Category    *models.EventCategory
	StartAt     *time.Time
	EndAt       *time.Time
	Location    *string

	MaxParticipants *int
	IsPublic        *bool
}

// EventFilters narrows event listings.
type EventFilters struct {
	Category    models.EventCategory
	OrganizerID string
	From        *time.Time
	To          *time.Time
	Query       string
}

// CalendarEntry is the compact event shape served to the month view.
type CalendarEntry struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Time     string `json:"time"`
	Category string `json:"category"`
	Location string `json:"location"`
}

// EventService manages campus events, participation, and the calendar view.
type EventService struct {
	db  *gorm.DB
	now func() time.Time
}

// EventOption customises the EventService.
type EventOption func(*EventService)

// WithEventClock injects a custom time source.
func WithEventClock(clock func() time.Time) EventOption {
	return func(s *EventService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// NewEventService constructs an EventService instance.
func NewEventService(db *gorm.DB, opts ...EventOption) (*EventService, error) {
	if db == nil {
		return nil, errors.New("event service: db is required")
	}

	service := &EventService{db: db, now: time.Now}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Create schedules a new event.
func (s *EventService) Create(ctx context.Context, input CreateEventInput) (*models.Event, error) {
	ctx = ensureContext(ctx)

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewBadRequest("title is required")
	}
	if input.StartAt.IsZero() {
		return nil, apperrors.NewBadRequest("start time is required")
	}
	if input.EndAt != nil && input.EndAt.Before(input.StartAt) {
		return nil, apperrors.NewBadRequest("end time must not precede start time")
	}
	category := input.Category
	if category == "" {
		category = models.EventUniversity
	}
	if !models.ValidEventCategory(category) {
		return nil, apperrors.NewBadRequest("unknown event category")
	}
	if input.MaxParticipants != nil && *input.MaxParticipants <= 0 {
		return nil, apperrors.NewBadRequest("max participants must be positive")
	}

	event := &models.Event{
		Title:                title,
		Description:          strings.TrimSpace(input.Description),
		Category:             category,
		StartAt:              input.StartAt,
		EndAt:                input.EndAt,
		Location:             strings.TrimSpace(input.Location),
		OrganizerID:          input.OrganizerID,
		MaxParticipants:      input.MaxParticipants,
		IsPublic:             true,
		RequiresRegistration: input.RequiresRegistration,
	}
	if input.IsPublic != nil {
		event.IsPublic = *input.IsPublic
	}

	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		return nil, fmt.Errorf("event service: create event: %w", err)
	}

	return s.Get(ctx, event.ID, input.OrganizerID)
}

// Get returns an event visible to the viewer. Private events are visible to
// their organizer only.
func (s *EventService) Get(ctx context.Context, id, viewerID string) (*models.Event, error) {
	ctx = ensureContext(ctx)

	var event models.Event
	err := s.db.WithContext(ctx).
		Preload("Organizer").
		Preload("Participants.User").
		Take(&event, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("event service: get event: %w", err)
	}

	if !event.IsPublic && event.OrganizerID != viewerID {
		return nil, apperrors.ErrNotFound
	}

	return &event, nil
}

// List returns events matching the filters, soonest-first. Private events of
// other users are excluded.
func (s *EventService) List(ctx context.Context, filters EventFilters, viewerID string, page, pageSize int) ([]models.Event, int64, error) {
	ctx = ensureContext(ctx)

	page, perPage := normalisePage(page, pageSize)

	query := s.db.WithContext(ctx).Model(&models.Event{})
	if viewerID != "" {
		query = query.Where("is_public = ? OR organizer_id = ?", true, viewerID)
	} else {
		query = query.Where("is_public = ?", true)
	}
	if filters.Category != "" {
		query = query.Where("category = ?", filters.Category)
	}
	if filters.OrganizerID != "" {
		query = query.Where("organizer_id = ?", filters.OrganizerID)
	}
	if filters.From != nil {
		query = query.Where("start_at >= ?", *filters.From)
	}
	if filters.To != nil {
		query = query.Where("start_at <= ?", *filters.To)
	}
	if q := strings.TrimSpace(filters.Query); q != "" {
		pattern := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("event service: count events: %w", err)
	}

	var events []models.Event
	if err := query.
		Preload("Organizer").
		Order("start_at ASC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&events).Error; err != nil {
		return nil, 0, fmt.Errorf("event service: list events: %w", err)
	}

	return events, total, nil
}

// Update edits an event. Only the organizer may edit.
func (s *EventService) Update(ctx context.Context, id, actorID string, input UpdateEventInput) (*models.Event, error) {
	ctx = ensureContext(ctx)

	event, err := s.Get(ctx, id, actorID)
	if err != nil {
		return nil, err
	}
	if event.OrganizerID != actorID {
		return nil, apperrors.ErrForbidden
	}

	updates := map[string]any{}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, apperrors.NewBadRequest("title is required")
		}
		updates["title"] = title
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.Category != nil {
		if !models.ValidEventCategory(*input.Category) {
			return nil, apperrors.NewBadRequest("unknown event category")
		}
		updates["category"] = *input.Category
	}
	if input.StartAt != nil {
		updates["start_at"] = *input.StartAt
	}
	if input.EndAt != nil {
		updates["end_at"] = *input.EndAt
	}
	if input.Location != nil {
		updates["location"] = strings.TrimSpace(*input.Location)
	}
	if input.MaxParticipants != nil {
		if *input.MaxParticipants <= 0 {
			return nil, apperrors.NewBadRequest("max participants must be positive")
		}
		updates["max_participants"] = *input.MaxParticipants
	}
	if input.IsPublic != nil {
		updates["is_public"] = *input.IsPublic
	}

	if len(updates) == 0 {
		return event, nil
	}

	if err := s.db.WithContext(ctx).Model(event).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("event service: update event: %w", err)
	}

	return s.Get(ctx, id, actorID)
}

// Delete removes an event along with participants and reviews. Organizers
// delete their own events; admins may delete any.
func (s *EventService) Delete(ctx context.Context, id, actorID string, actorRole models.Role) error {
	ctx = ensureContext(ctx)

	event, err := s.Get(ctx, id, actorID)
	if err != nil {
		return err
	}
	if event.OrganizerID != actorID && actorRole != models.RoleAdmin {
		return apperrors.ErrForbidden
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_id = ?", id).Delete(&models.EventParticipant{}).Error; err != nil {
			return fmt.Errorf("event service: delete participants: %w", err)
		}
		if err := tx.Where("event_id = ?", id).Delete(&models.EventReview{}).Error; err != nil {
			return fmt.Errorf("event service: delete reviews: %w", err)
		}
		return tx.Delete(&models.Event{}, "id = ?", id).Error
	})
}

// Join registers the user for an event, honouring the participant cap. Events
// that require registration hand out the registered status for the organizer
// to confirm; the rest confirm immediately.
func (s *EventService) Join(ctx context.Context, eventID, userID string) (*models.EventParticipant, error) {
	ctx = ensureContext(ctx)

	event, err := s.Get(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}

	var participant *models.EventParticipant
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.EventParticipant
		err := tx.Where("event_id = ? AND user_id = ?", eventID, userID).Take(&existing).Error
		if err == nil {
			if existing.Status == models.ParticipationCancelled {
				participant = &existing
				status := models.ParticipationConfirmed
				if event.RequiresRegistration {
					status = models.ParticipationRegistered
				}
				return tx.Model(&existing).Updates(map[string]any{
					"status":        status,
					"registered_at": s.now(),
				}).Error
			}
			return ErrAlreadyJoined
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("find participant: %w", err)
		}

		if event.MaxParticipants != nil {
			var count int64
			if err := tx.Model(&models.EventParticipant{}).
				Where("event_id = ? AND status <> ?", eventID, models.ParticipationCancelled).
				Count(&count).Error; err != nil {
				return fmt.Errorf("count participants: %w", err)
			}
			if count >= int64(*event.MaxParticipants) {
				return ErrEventFull
			}
		}

		status := models.ParticipationConfirmed
		if event.RequiresRegistration {
			status = models.ParticipationRegistered
		}

		participant = &models.EventParticipant{
			EventID:      eventID,
			UserID:       userID,
			Status:       status,
			RegisteredAt: s.now(),
		}
		return tx.Create(participant).Error
	})
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		Take(participant).Error; err != nil {
		return nil, fmt.Errorf("event service: load participant: %w", err)
	}

	return participant, nil
}

// Leave cancels the user's participation.
func (s *EventService) Leave(ctx context.Context, eventID, userID string) error {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Model(&models.EventParticipant{}).
		Where("event_id = ? AND user_id = ? AND status <> ?", eventID, userID, models.ParticipationCancelled).
		Update("status", models.ParticipationCancelled)
	if result.Error != nil {
		return fmt.Errorf("event service: leave event: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotJoined
	}
	return nil
}

// SubmitReview records or replaces the author's review of an event.
func (s *EventService) SubmitReview(ctx context.Context, eventID, authorID string, rating int, comment string) (*models.EventReview, error) {
	ctx = ensureContext(ctx)

	if rating < 1 || rating > 5 {
		return nil, apperrors.NewBadRequest("rating must be between 1 and 5")
	}

	if _, err := s.Get(ctx, eventID, authorID); err != nil {
		return nil, err
	}

	review := &models.EventReview{
		EventID:  eventID,
		AuthorID: authorID,
		Rating:   rating,
		Comment:  strings.TrimSpace(comment),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_id = ? AND author_id = ?", eventID, authorID).
			Delete(&models.EventReview{}).Error; err != nil {
			return fmt.Errorf("replace previous review: %w", err)
		}
		return tx.Create(review).Error
	})
	if err != nil {
		return nil, fmt.Errorf("event service: submit review: %w", err)
	}

	return review, nil
}

// Calendar groups the month's public events by day. Keys are the day of
// month; entries are sorted by start time within each day.
func (s *EventService) Calendar(ctx context.Context, year int, month time.Month) (map[int][]CalendarEntry, error) {
	ctx = ensureContext(ctx)

	if year < 1 || month < time.January || month > time.December {
		return nil, apperrors.NewBadRequest("invalid year or month")
	}

	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	var events []models.Event
	if err := s.db.WithContext(ctx).
		Where("is_public = ? AND start_at >= ? AND start_at < ?", true, from, to).
		Order("start_at ASC").
		Find(&events).Error; err != nil {
		return nil, fmt.Errorf("event service: load calendar: %w", err)
	}

	calendar := make(map[int][]CalendarEntry)
	for _, event := range events {
		start := event.StartAt.UTC()
		day := start.Day()
		calendar[day] = append(calendar[day], CalendarEntry{
			ID:       event.ID,
			Title:    event.Title,
			Time:     start.Format("15:04"),
			Category: string(event.Category),
			Location: event.Location,
		})
	}

	return calendar, nil
}
