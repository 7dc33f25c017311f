package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuslink/campuslink-server/internal/models"
	"github.com/campuslink/campuslink-server/internal/services"
	apperrors "github.com/campuslink/campuslink-server/pkg/errors"
	"github.com/campuslink/campuslink-server/pkg/response"
)

// PostHandler serves the social feed.
type PostHandler struct {
	posts *services.PostService
}

func NewPostHandler(posts *services.PostService) *PostHandler {
	return &PostHandler{posts: posts}
}

type createPostRequest struct {
	Content  string `json:"content" validate:"required,max=4000"`
	ImageURL string `json:"image_url" validate:"omitempty,max=512"`
}

// POST /api/posts
func (h *PostHandler) Create(c *gin.Context) {
	var req createPostRequest
	if !bindAndValidate(c, &req) {
		return
	}

	post, err := h.posts.Create(requestContext(c), services.CreatePostInput{
		AuthorID: c.GetString("userID"),
		Content:  req.Content,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		response.Error(c, apperrors.FromError(err))
		return
	}

	response.Success(c, http.StatusCreated, post)
}

// GET /api/posts
func (h *PostHandler) List(c *gin.Context) {
	opts := services.ListPostsOptions{
		Page:     parseIntQuery(c, "page", 1),
		PageSize: parseIntQuery(c, "page_size", 20),
		AuthorID: c.Query("author_id"),
	}

	posts, total, err := h.posts.List(requestContext(c), opts, c.GetString("userID"))
	if err != nil {
		response.Error(c, apperrors.FromError(err))
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, posts, paginationMeta(opts.Page, opts.PageSize, total))
}

// GET /api/posts/:id
func (h *PostHandler) Get(c *gin.Context) {
	post, err := h.posts.Get(requestContext(c), c.Param("id"), c.GetString("userID"))
	if err != nil {
		response.Error(c, apperrors.FromError(err))
		return
	}

	response.Success(c, http.StatusOK, post)
}

type updatePostRequest struct {
	Content  *string `json:"content" validate:"omitempty,max=4000"`
	ImageURL *string `json:"image_url" validate:"omitempty,max=512"`
}

// PUT /api/posts/:id
func (h *PostHandler) Update(c *gin.Context) {
	var req updatePostRequest
	if !bindAndValidate(c, &req) {
		return
	}

	post, err := h.posts.Update(requestContext(c), c.Param("id"), c.GetString("userID"), services.UpdatePostInput{
		Content:  req.Content,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		response.Error(c, apperrors.FromError(err))
		return
	}

	response.Success(c, http.StatusOK, post)
}

// DELETE /api/posts/:id
func (h *PostHandler) Delete(c *gin.Context) {
	err := h.posts.Delete(requestContext(c), c.Param("id"), c.GetString("userID"), models.Role(c.GetString("userRole")))
	if err != nil {
		response.Error(c, apperrors.FromError(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// POST /api/posts/:id/like
func (h *PostHandler) ToggleLike(c *gin.Context) {
	liked, likes, err := h.posts.ToggleLike(requestContext(c), c.Param("id"), c.GetString("userID"))
	if err != nil {
		response.Error(c, apperrors.FromError(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"liked": liked, "likes": likes})
}

type createCommentRequest struct {
	Content string `json:"content" validate:"required,max=2000"`
}

// POST /api/posts/:id/comments
func (h *PostHandler) AddComment(c *gin.Context) {
	var req createCommentRequest
	if !bindAndValidate(c, &req) {
		return
	}

	comment, err := h.posts.AddComment(requestContext(c), c.Param("id"), c.GetString("userID"), req.Content)
	if err != nil {
		response.Error(c, apperrors.FromError(err))
		return
	}

	response.Success(c, http.StatusCreated, comment)
}

// GET /api/posts/:id/comments
func (h *PostHandler) ListComments(c *gin.Context) {
	page := parseIntQuery(c, "page", 1)
	pageSize := parseIntQuery(c, "page_size", 20)

	comments, total, err := h.posts.ListComments(requestContext(c), c.Param("id"), page, pageSize)
	if err != nil {
		response.Error(c, apperrors.FromError(err))
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, comments, paginationMeta(page, pageSize, total))
}

// DELETE /api/comments/:id
func (h *PostHandler) DeleteComment(c *gin.Context) {
	err := h.posts.DeleteComment(requestContext(c), c.Param("id"), c.GetString("userID"), models.Role(c.GetString("userRole")))
	if err != nil {
		response.Error(c, apperrors.FromError(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
