package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campuslink/campuslink-server/internal/models"
	"github.com/campuslink/campuslink-server/internal/services"
	apperrors "github.com/campuslink/campuslink-server/pkg/errors"
	"github.com/campuslink/campuslink-server/pkg/response"
)

// EventHandler serves campus events and the calendar view.
type EventHandler struct {
	events *services.EventService
}

func NewEventHandler(events *services.EventService) *EventHandler {
	return &EventHandler{events: events}
}

type createEventRequest struct {
	Title       string     `json:"title" validate:"required,max=255"`
	Description string     `json:"description" validate:"max=4000"`
	Category    string     `json:"category" validate:"omitempty,max=32"`
	StartAt     time.Time  `json:"start_at" validate:"required"`
	EndAt       *time.Time `json:"end_at"`
	Location    string     `json:"location" validate:"max=255"`

	MaxParticipants      *int  `json:"max_participants" validate:"omitempty,min=1"`
	IsPublic             *bool `json:"is_public"`
	RequiresRegistration bool  `json:"requires_registration"`
}

// POST /api/events
func (h *EventHandler) Create(c *gin.Context) {
	var req createEventRequest
	if !bindAndValidate(c, &req) {
		return
	}

	event, err := h.events.Create(requestContext(c), services.CreateEventInput{
		Title:                req.Title,
		Description:          req.Description,
		Category:             models.EventCategory(req.Category),
		StartAt:              req.StartAt,
		EndAt:                req.EndAt,
		Location:             req.Location,
		OrganizerID:          c.GetString("userID"),
		MaxParticipants:      req.MaxParticipants,
		IsPublic:             req.IsPublic,
		RequiresRegistration: req.RequiresRegistration,
	})
	if err != nil {
		response.Error(c, apperrors.FromError(err))
		return
	}

	response.Success(c, http.StatusCreated, event)
}

// GET /api/events
func (h *EventHandler) List(c *gin.Context) {
	page := parseIntQuery(c, "page", 1)
	pageSize := parseIntQuery(c, "page_size", 20)

	filters := services.EventFilters{
		Category:    models.EventCategory(c.Query("category")),
		OrganizerID: c.Query("organizer_id"),
		Query:       c.Query("q"),
	}
	if from := c.Query("from"); from != "" {
		if parsed, err := time.Parse(time.RFC3339, from); err == nil {
			filters.From = &parsed
		}
	}
	if to := c.Query("to"); to != "" {
		if parsed, err := time.Parse(time.RFC3339, to); err == nil {
			filters.To = &parsed
		}
	}

	events, total, err := h.events.List(requestContext(c), filters, c.GetString("userID"), page, pageSize)
	if err != nil {
		response.Error(c, apperrors.FromError(err))
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, events, paginationMeta(page, pageSize, total))
}

// GET /api/events/:id
func (h *EventHandler) Get(c *gin.Context) {
	event, err := h.events.Get(requestContext(c), c.Param("id"), c.GetString("userID"))
	if err != nil {
		response.Error(c, apperrors.FromError(err))
		return
	}

	response.Success(c, http.StatusOK, event)
}

type updateEventRequest struct {
	Title       *string    `json:"title" validate:"omitempty,max=255"`
	Description *string    `json:"description" validate:"omitempty,max=4000"`
	Category    *string    `json:"category" validate:"omitempty,max=32"`
	StartAt     *time.Time `json:"start_at"`
	EndAt       *time.Time `json:"end_at"`
	Location    *string    `json:"location" validate:"omitempty,max=255"`

	MaxParticipants *int  `json:"max_participants" validate:"omitempty,min=1"`
	IsPublic        *bool `json:"is_public"`
}

// PUT /api/events/:id
func (h *EventHandler) Update(c *gin.Context) {
	var req updateEventRequest
	if !bindAndValidate(c, &req) {
		return
	}

	input := services.UpdateEventInput{
		Title:           req.Title,
		Description:     req.Description,
		StartAt:         req.StartAt,
		EndAt:           req.EndAt,
		Location:        req.Location,
		MaxParticipants: req.MaxParticipants,
		IsPublic:        req.IsPublic,
	}
	if req.Category != nil {
		category := models.EventCategory(*req.Category)
		input.Category = &category
	}

	event, err := h.events.Update(requestContext(c), c.Param("id"), c.GetString("userID"), input)
	if err != nil {
		response.Error(c, apperrors.FromError(err))
		return
	}

	response.Success(c, http.StatusOK, event)
}

// DELETE /api/events/:id
func (h *EventHandler) Delete(c *gin.Context) {
	err := h.events.Delete(requestContext(c), c.Param("id"), c.GetString("userID"), models.Role(c.GetString("userRole")))
	if err != nil {
		response.Error(c, apperrors.FromError(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// POST /api/events/:id/join
func (h *EventHandler) Join(c *gin.Context) {
	participant, err := h.events.Join(requestContext(c), c.Param("id"), c.GetString("userID"))
	if err != nil {
		response.Error(c, apperrors.FromError(err))
		return
	}

	response.Success(c, http.StatusOK, participant)
}

// POST /api/events/:id/leave
func (h *EventHandler) Leave(c *gin.Context) {
	if err := h.events.Leave(requestContext(c), c.Param("id"), c.GetString("userID")); err != nil {
		response.Error(c, apperrors.FromError(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"left": true})
}

type submitEventReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

// POST /api/events/:id/reviews
func (h *EventHandler) SubmitReview(c *gin.Context) {
	var req submitEventReviewRequest
	if !bindAndValidate(c, &req) {
		return
	}

	review, err := h.events.SubmitReview(requestContext(c), c.Param("id"), c.GetString("userID"), req.Rating, req.Comment)
	if err != nil {
		response.Error(c, apperrors.FromError(err))
		return
	}

	response.Success(c, http.StatusCreated, review)
}

// GET /api/events/calendar/:year/:month
func (h *EventHandler) Calendar(c *gin.Context) {
	year := parseIntParam(c, "year")
	month := parseIntParam(c, "month")
	if year <= 0 || month < 1 || month > 12 {
		response.Error(c, apperrors.NewBadRequest("year and month must be valid"))
		return
	}

	calendar, err := h.events.Calendar(requestContext(c), year, time.Month(month))
	if err != nil {
		response.Error(c, apperrors.FromError(err))
		return
	}

	response.Success(c, http.StatusOK, calendar)
}
