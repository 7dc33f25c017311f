package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campuslink/campuslink-server/internal/services"
	apperrors "github.com/campuslink/campuslink-server/pkg/errors"
	"github.com/campuslink/campuslink-server/pkg/response"
)

// ProfileHandler lets the authenticated user manage their own profile.
type ProfileHandler struct {
	users *services.UserService
}

func NewProfileHandler(users *services.UserService) *ProfileHandler {
	return &ProfileHandler{users: users}
}

// GET /api/profile
func (h *ProfileHandler) Get(c *gin.Context) {
	user, err := h.users.GetByID(requestContext(c), c.GetString("userID"))
	if err != nil {
		response.Error(c, apperrors.FromError(err))
		return
	}
	response.Success(c, http.StatusOK, user)
}

type updateProfileRequest struct {
	FirstName  *string    `json:"first_name" validate:"omitempty,max=64"`
	LastName   *string    `json:"last_name" validate:"omitempty,max=64"`
	MiddleName *string    `json:"middle_name" validate:"omitempty,max=64"`
	AvatarURL  *string    `json:"avatar_url" validate:"omitempty,max=512"`
	Bio        *string    `json:"bio" validate:"omitempty,max=500"`
	BirthDate  *time.Time `json:"birth_date"`

	Faculty    *string `json:"faculty" validate:"omitempty,max=128"`
	StudyGroup *string `json:"study_group" validate:"omitempty,max=64"`
	Course     *int    `json:"course" validate:"omitempty,min=1,max=8"`

	Department *string `json:"department" validate:"omitempty,max=128"`
	Position   *string `json:"position" validate:"omitempty,max=128"`
}

// PUT /api/profile
func (h *ProfileHandler) Update(c *gin.Context) {
	var req updateProfileRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.UpdateProfile(requestContext(c), c.GetString("userID"), services.UpdateProfileInput{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		MiddleName: req.MiddleName,
		AvatarURL:  req.AvatarURL,
		Bio:        req.Bio,
		BirthDate:  req.BirthDate,
		Faculty:    req.Faculty,
		StudyGroup: req.StudyGroup,
		Course:     req.Course,
		Department: req.Department,
		Position:   req.Position,
	})
	if err != nil {
		response.Error(c, apperrors.FromError(err))
		return
	}

	response.Success(c, http.StatusOK, user)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6"`
}

// POST /api/profile/password
func (h *ProfileHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	err := h.users.ChangePassword(requestContext(c), c.GetString("userID"), req.CurrentPassword, req.NewPassword)
	if err != nil {
		response.Error(c, apperrors.FromError(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"changed": true})
}
