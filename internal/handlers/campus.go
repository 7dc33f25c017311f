package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuslink/campuslink-server/internal/models"
	"github.com/campuslink/campuslink-server/internal/services"
	apperrors "github.com/campuslink/campuslink-server/pkg/errors"
	"github.com/campuslink/campuslink-server/pkg/response"
)

// CampusHandler serves the buildings and rooms directory.
type CampusHandler struct {
	campus *services.CampusService
}

func NewCampusHandler(campus *services.CampusService) *CampusHandler {
	return &CampusHandler{campus: campus}
}

type createBuildingRequest struct {
	Name        string   `json:"name" validate:"required,max=255"`
	Address     string   `json:"address" validate:"required,max=512"`
	Description string   `json:"description" validate:"max=2000"`
	ImageURL    string   `json:"image_url" validate:"omitempty,max=512"`
	Floors      int      `json:"floors" validate:"omitempty,min=1,max=100"`
	Latitude    *float64 `json:"latitude" validate:"omitempty,min=-90,max=90"`
	Longitude   *float64 `json:"longitude" validate:"omitempty,min=-180,max=180"`
}

// POST /api/campus/buildings (admin)
func (h *CampusHandler) CreateBuilding(c *gin.Context) {
	var req createBuildingRequest
	if !bindAndValidate(c, &req) {
		return
	}

	building, err := h.campus.CreateBuilding(requestContext(c), services.CreateBuildingInput{
		Name:        req.Name,
		Address:     req.Address,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Floors:      req.Floors,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
	})
	if err != nil {
		response.Error(c, apperrors.FromError(err))
		return
	}

	response.Success(c, http.StatusCreated, building)
}

// GET /api/campus/buildings
func (h *CampusHandler) ListBuildings(c *gin.Context) {
	buildings, err := h.campus.ListBuildings(requestContext(c))
	if err != nil {
		response.Error(c, apperrors.FromError(err))
		return
	}

	response.Success(c, http.StatusOK, buildings)
}

// GET /api/campus/buildings/:id
func (h *CampusHandler) GetBuilding(c *gin.Context) {
	building, err := h.campus.GetBuilding(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, apperrors.FromError(err))
		return
	}

	response.Success(c, http.StatusOK, building)
}

// DELETE /api/campus/buildings/:id (admin)
func (h *CampusHandler) DeleteBuilding(c *gin.Context) {
	if err := h.campus.DeleteBuilding(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, apperrors.FromError(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

type createRoomRequest struct {
	BuildingID   string   `json:"building_id" validate:"required,uuid4"`
	Number       string   `json:"number" validate:"required,max=32"`
	Floor        int      `json:"floor" validate:"min=0,max=100"`
	RoomType     string   `json:"room_type" validate:"omitempty,max=32"`
	Capacity     int      `json:"capacity" validate:"omitempty,min=0"`
	Description  string   `json:"description" validate:"max=2000"`
	Equipment    []string `json:"equipment" validate:"omitempty,dive,max=128"`
	IsAccessible *bool    `json:"is_accessible"`
}

// POST /api/campus/rooms (admin)
func (h *CampusHandler) CreateRoom(c *gin.Context) {
	var req createRoomRequest
	if !bindAndValidate(c, &req) {
		return
	}

	room, err := h.campus.CreateRoom(requestContext(c), services.CreateRoomInput{
		BuildingID:   req.BuildingID,
		Number:       req.Number,
		Floor:        req.Floor,
		RoomType:     models.RoomType(req.RoomType),
		Capacity:     req.Capacity,
		Description:  req.Description,
		Equipment:    req.Equipment,
		IsAccessible: req.IsAccessible,
	})
	if err != nil {
		response.Error(c, apperrors.FromError(err))
		return
	}

	response.Success(c, http.StatusCreated, room)
}

// GET /api/campus/rooms
func (h *CampusHandler) ListRooms(c *gin.Context) {
	page := parseIntQuery(c, "page", 1)
	pageSize := parseIntQuery(c, "page_size", 20)

	filters := services.RoomFilters{
		BuildingID: c.Query("building_id"),
		RoomType:   models.RoomType(c.Query("room_type")),
		Query:      c.Query("q"),
	}
	if floor := c.Query("floor"); floor != "" {
		value := parseIntQuery(c, "floor", 0)
		filters.Floor = &value
	}

	rooms, total, err := h.campus.ListRooms(requestContext(c), filters, page, pageSize)
	if err != nil {
		response.Error(c, apperrors.FromError(err))
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, rooms, paginationMeta(page, pageSize, total))
}

// GET /api/campus/rooms/:id
func (h *CampusHandler) GetRoom(c *gin.Context) {
	room, err := h.campus.GetRoom(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, apperrors.FromError(err))
		return
	}

	response.Success(c, http.StatusOK, room)
}

type submitRoomReviewRequest struct {
	Rating   int    `json:"rating" validate:"required,min=1,max=5"`
	Category string `json:"category" validate:"omitempty,max=32"`
	Comment  string `json:"comment" validate:"max=2000"`

	CleanlinessRating *int `json:"cleanliness_rating" validate:"omitempty,min=1,max=5"`
	EquipmentRating   *int `json:"equipment_rating" validate:"omitempty,min=1,max=5"`
	ComfortRating     *int `json:"comfort_rating" validate:"omitempty,min=1,max=5"`
}

// POST /api/campus/rooms/:id/reviews
func (h *CampusHandler) SubmitRoomReview(c *gin.Context) {
	var req submitRoomReviewRequest
	if !bindAndValidate(c, &req) {
		return
	}

	review, err := h.campus.SubmitRoomReview(requestContext(c), services.SubmitRoomReviewInput{
		RoomID:            c.Param("id"),
		AuthorID:          c.GetString("userID"),
		Rating:            req.Rating,
		Category:          models.ReviewCategory(req.Category),
		Comment:           req.Comment,
		CleanlinessRating: req.CleanlinessRating,
		EquipmentRating:   req.EquipmentRating,
		ComfortRating:     req.ComfortRating,
	})
	if err != nil {
		response.Error(c, apperrors.FromError(err))
		return
	}

	response.Success(c, http.StatusCreated, review)
}

// GET /api/campus/rooms/:id/stats
func (h *CampusHandler) RoomStats(c *gin.Context) {
	stats, err := h.campus.RoomStats(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, apperrors.FromError(err))
		return
	}

	response.Success(c, http.StatusOK, stats)
}

// DELETE /api/campus/reviews/:id
func (h *CampusHandler) DeleteRoomReview(c *gin.Context) {
	err := h.campus.DeleteRoomReview(requestContext(c), c.Param("id"), c.GetString("userID"), models.Role(c.GetString("userRole")))
	if err != nil {
		response.Error(c, apperrors.FromError(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// GET /api/campus/buildings/:id/stats
func (h *CampusHandler) BuildingStats(c *gin.Context) {
	stats, err := h.campus.BuildingStats(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, apperrors.FromError(err))
		return
	}

	response.Success(c, http.StatusOK, stats)
}
