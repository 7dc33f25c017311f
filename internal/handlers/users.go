package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuslink/campuslink-server/internal/models"
	"github.com/campuslink/campuslink-server/internal/services"
	apperrors "github.com/campuslink/campuslink-server/pkg/errors"
	"github.com/campuslink/campuslink-server/pkg/response"
)

// UserHandler serves the people directory.
type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// GET /api/users
func (h *UserHandler) List(c *gin.Context) {
	opts := services.ListUsersOptions{
		Page:     parseIntQuery(c, "page", 1),
		PageSize: parseIntQuery(c, "page_size", 20),
		Filters: services.UserFilters{
			Role:    models.Role(c.Query("role")),
			Faculty: c.Query("faculty"),
			Query:   c.Query("q"),
		},
	}

	users, total, err := h.users.List(requestContext(c), opts)
	if err != nil {
		response.Error(c, apperrors.FromError(err))
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, users, paginationMeta(opts.Page, opts.PageSize, total))
}

// GET /api/users/:username
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.users.GetByUsername(requestContext(c), c.Param("username"))
	if err != nil {
		response.Error(c, apperrors.FromError(err))
		return
	}

	response.Success(c, http.StatusOK, user)
}

type setActiveRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// PUT /api/admin/users/:id/active
func (h *UserHandler) SetActive(c *gin.Context) {
	var req setActiveRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.users.SetActive(requestContext(c), c.Param("id"), *req.IsActive); err != nil {
		response.Error(c, apperrors.FromError(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"is_active": *req.IsActive})
}
