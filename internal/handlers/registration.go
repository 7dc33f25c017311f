package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	iauth "github.com/campuslink/campuslink-server/internal/auth"
	"github.com/campuslink/campuslink-server/internal/middleware"
	"github.com/campuslink/campuslink-server/internal/services"
	apperrors "github.com/campuslink/campuslink-server/pkg/errors"
	"github.com/campuslink/campuslink-server/pkg/response"
)

// A single address gets this many codes per window before requests are
// refused, independent of the caller's IP.
const (
	codeRequestsPerEmail = 3
	codeRequestWindow    = 15 * time.Minute
	codeRequestKeyPrefix = "ratelimit:request-code:"
)

// RegistrationHandler exposes the three-step signup flow.
type RegistrationHandler struct {
	registration *services.RegistrationService
	sessions     *iauth.SessionService
	codeLimiter  middleware.RateStore
}

// NewRegistrationHandler builds the handler. codeLimiter may be nil, in which
// case only the IP-based route limiter applies to code requests.
func NewRegistrationHandler(registration *services.RegistrationService, sessions *iauth.SessionService, codeLimiter middleware.RateStore) *RegistrationHandler {
	return &RegistrationHandler{registration: registration, sessions: sessions, codeLimiter: codeLimiter}
}

type requestCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// POST /api/auth/register/request-code
func (h *RegistrationHandler) RequestCode(c *gin.Context) {
	var req requestCodeRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if h.codeLimiter != nil {
		key := codeRequestKeyPrefix + strings.ToLower(strings.TrimSpace(req.Email))
		count, _, err := h.codeLimiter.Increment(requestContext(c), key, codeRequestWindow)
		// Fail open on limiter errors.
		if err == nil && count > codeRequestsPerEmail {
			response.Error(c, apperrors.ErrRateLimit)
			return
		}
	}

	err := h.registration.RequestCode(requestContext(c), req.Email, requestMeta(c))
	if err != nil {
		response.Error(c, apperrors.FromError(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"sent": true})
}

type verifyCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

// POST /api/auth/register/verify-code
func (h *RegistrationHandler) VerifyCode(c *gin.Context) {
	var req verifyCodeRequest
	if !bindAndValidate(c, &req) {
		return
	}

	err := h.registration.SubmitCode(requestContext(c), req.Email, req.Code, requestMeta(c))
	if err != nil {
		response.Error(c, apperrors.FromError(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"verified": true})
}

type completeRegistrationRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Username  string `json:"username" validate:"required,min=3,max=32"`
	Password  string `json:"password" validate:"required,min=6"`
	FirstName string `json:"first_name" validate:"max=64"`
	LastName  string `json:"last_name" validate:"max=64"`

	MiddleName string     `json:"middle_name" validate:"max=64"`
	BirthDate  *time.Time `json:"birth_date"`

	Faculty    string `json:"faculty" validate:"max=128"`
	StudyGroup string `json:"study_group" validate:"max=64"`
	Course     *int   `json:"course" validate:"omitempty,min=1,max=8"`

	Department string `json:"department" validate:"max=128"`
	Position   string `json:"position" validate:"max=128"`
}

// POST /api/auth/register/complete
func (h *RegistrationHandler) Complete(c *gin.Context) {
	var req completeRegistrationRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.registration.CompleteRegistration(requestContext(c), services.CompleteRegistrationInput{
		Email:      req.Email,
		Username:   req.Username,
		Password:   req.Password,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		MiddleName: req.MiddleName,
		BirthDate:  req.BirthDate,
		Faculty:    req.Faculty,
		StudyGroup: req.StudyGroup,
		Course:     req.Course,
		Department: req.Department,
		Position:   req.Position,
	}, requestMeta(c))
	if err != nil {
		response.Error(c, apperrors.FromError(err))
		return
	}

	// The account is created active; hand out a session right away.
	pair, _, err := h.sessions.Issue(user.ID, iauth.SessionMetadata{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		response.Error(c, apperrors.FromError(err))
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"user":   user,
		"tokens": tokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken},
	})
}

func requestMeta(c *gin.Context) services.RequestMetadata {
	return services.RequestMetadata{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}
