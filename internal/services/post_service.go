package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/campuslink/campuslink-server/internal/models"
	apperrors "github.com/campuslink/campuslink-server/pkg/errors"
)

// CreatePostInput describes a new feed entry.
type CreatePostInput struct {
	AuthorID string
	Content  string
	ImageURL string
}

// UpdatePostInput enumerates mutable post attributes.
type UpdatePostInput struct {
	Content  *string
	ImageURL *string
}

// ListPostsOptions controls feed pagination and filtering.
type ListPostsOptions struct {
	Page     int
	PageSize int
	AuthorID string
}

// PostView is a post decorated with viewer-dependent state.
type PostView struct {
	models.Post
	CommentCount int64 `json:"comment_count"`
	IsLiked      bool  `json:"is_liked"`
}

// PostService manages the feed: posts, comments, and like toggles.
type PostService struct {
	db *gorm.DB
}

// NewPostService constructs a PostService instance.
func NewPostService(db *gorm.DB) (*PostService, error) {
	if db == nil {
		return nil, errors.New("post service: db is required")
	}
	return &PostService{db: db}, nil
}

// Create publishes a new post.
func (s *PostService) Create(ctx context.Context, input CreatePostInput) (*models.Post, error) {
	ctx = ensureContext(ctx)

	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, apperrors.NewBadRequest("content is required")
	}

	post := &models.Post{
		AuthorID: input.AuthorID,
		Content:  content,
		ImageURL: strings.TrimSpace(input.ImageURL),
	}

	if err := s.db.WithContext(ctx).Create(post).Error; err != nil {
		return nil, fmt.Errorf("post service: create post: %w", err)
	}

	return s.getPost(ctx, post.ID)
}

// Get returns a single post and counts a view against it.
func (s *PostService) Get(ctx context.Context, id, viewerID string) (*PostView, error) {
	ctx = ensureContext(ctx)

	post, err := s.getPost(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).
		Model(post).
		Update("views", gorm.Expr("views + 1")).Error; err != nil {
		return nil, fmt.Errorf("post service: count view: %w", err)
	}
	post.Views++

	return s.decorate(ctx, post, viewerID)
}

// List returns the feed newest-first, decorated for the viewer.
func (s *PostService) List(ctx context.Context, opts ListPostsOptions, viewerID string) ([]PostView, int64, error) {
	ctx = ensureContext(ctx)

	page, perPage := normalisePage(opts.Page, opts.PageSize)

	query := s.db.WithContext(ctx).Model(&models.Post{})
	if opts.AuthorID != "" {
		query = query.Where("author_id = ?", opts.AuthorID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("post service: count posts: %w", err)
	}

	var posts []models.Post
	if err := query.
		Preload("Author").
		Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&posts).Error; err != nil {
		return nil, 0, fmt.Errorf("post service: list posts: %w", err)
	}

	views := make([]PostView, 0, len(posts))
	for i := range posts {
		view, err := s.decorate(ctx, &posts[i], viewerID)
		if err != nil {
			return nil, 0, err
		}
		views = append(views, *view)
	}

	return views, total, nil
}

// Update edits a post. Only the author may edit.
func (s *PostService) Update(ctx context.Context, id, actorID string, input UpdatePostInput) (*models.Post, error) {
	ctx = ensureContext(ctx)

	post, err := s.getPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != actorID {
		return nil, apperrors.ErrForbidden
	}

	updates := map[string]any{}
	if input.Content != nil {
		content := strings.TrimSpace(*input.Content)
		if content == "" {
			return nil, apperrors.NewBadRequest("content is required")
		}
		updates["content"] = content
	}
	if input.ImageURL != nil {
		updates["image_url"] = strings.TrimSpace(*input.ImageURL)
	}

	if len(updates) == 0 {
		return post, nil
	}

	if err := s.db.WithContext(ctx).Model(post).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("post service: update post: %w", err)
	}

	return s.getPost(ctx, id)
}

// Delete removes a post together with its comments and likes. Authors delete
// their own posts; admins may delete any.
func (s *PostService) Delete(ctx context.Context, id, actorID string, actorRole models.Role) error {
	ctx = ensureContext(ctx)

	post, err := s.getPost(ctx, id)
	if err != nil {
		return err
	}
	if post.AuthorID != actorID && actorRole != models.RoleAdmin {
		return apperrors.ErrForbidden
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return fmt.Errorf("post service: delete comments: %w", err)
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return fmt.Errorf("post service: delete likes: %w", err)
		}
		return tx.Delete(post).Error
	})
}

// ToggleLike flips the viewer's like on a post and returns the liked state
// and the updated counter. The counter never drops below zero.
func (s *PostService) ToggleLike(ctx context.Context, postID, userID string) (bool, int, error) {
	ctx = ensureContext(ctx)

	post, err := s.getPost(ctx, postID)
	if err != nil {
		return false, 0, err
	}

	var liked bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var like models.Like
		err := tx.Where("post_id = ? AND user_id = ?", postID, userID).Take(&like).Error
		switch {
		case err == nil:
			if err := tx.Delete(&like).Error; err != nil {
				return fmt.Errorf("remove like: %w", err)
			}
			post.Likes--
			if post.Likes < 0 {
				post.Likes = 0
			}
			liked = false

		case errors.Is(err, gorm.ErrRecordNotFound):
			like = models.Like{PostID: postID, UserID: userID}
			if err := tx.Create(&like).Error; err != nil {
				return fmt.Errorf("add like: %w", err)
			}
			post.Likes++
			liked = true

		default:
			return fmt.Errorf("find like: %w", err)
		}

		return tx.Model(&models.Post{}).
			Where("id = ?", postID).
			Update("likes", post.Likes).Error
	})
	if err != nil {
		return false, 0, fmt.Errorf("post service: toggle like: %w", err)
	}

	return liked, post.Likes, nil
}

// AddComment attaches a comment to a post.
func (s *PostService) AddComment(ctx context.Context, postID, authorID, content string) (*models.Comment, error) {
	ctx = ensureContext(ctx)

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewBadRequest("content is required")
	}

	if _, err := s.getPost(ctx, postID); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		PostID:   postID,
		AuthorID: authorID,
		Content:  content,
	}
	if err := s.db.WithContext(ctx).Create(comment).Error; err != nil {
		return nil, fmt.Errorf("post service: create comment: %w", err)
	}

	if err := s.db.WithContext(ctx).
		Preload("Author").
		Take(comment, "id = ?", comment.ID).Error; err != nil {
		return nil, fmt.Errorf("post service: load comment: %w", err)
	}

	return comment, nil
}

// ListComments returns a post's comments oldest-first.
func (s *PostService) ListComments(ctx context.Context, postID string, page, pageSize int) ([]models.Comment, int64, error) {
	ctx = ensureContext(ctx)

	if _, err := s.getPost(ctx, postID); err != nil {
		return nil, 0, err
	}

	page, perPage := normalisePage(page, pageSize)

	query := s.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("post_id = ?", postID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("post service: count comments: %w", err)
	}

	var comments []models.Comment
	if err := query.
		Preload("Author").
		Order("created_at ASC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&comments).Error; err != nil {
		return nil, 0, fmt.Errorf("post service: list comments: %w", err)
	}

	return comments, total, nil
}

// DeleteComment removes a comment. Comment authors, the post author, and
// admins may delete.
func (s *PostService) DeleteComment(ctx context.Context, commentID, actorID string, actorRole models.Role) error {
	ctx = ensureContext(ctx)

	var comment models.Comment
	err := s.db.WithContext(ctx).Take(&comment, "id = ?", commentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("post service: find comment: %w", err)
	}

	if comment.AuthorID != actorID && actorRole != models.RoleAdmin {
		post, err := s.getPost(ctx, comment.PostID)
		if err != nil {
			return err
		}
		if post.AuthorID != actorID {
			return apperrors.ErrForbidden
		}
	}

	return s.db.WithContext(ctx).Delete(&comment).Error
}

func (s *PostService) getPost(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	err := s.db.WithContext(ctx).
		Preload("Author").
		Take(&post, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("post service: find post: %w", err)
	}
	return &post, nil
}

func (s *PostService) decorate(ctx context.Context, post *models.Post, viewerID string) (*PostView, error) {
	view := PostView{Post: *post}

	if err := s.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("post_id = ?", post.ID).
		Count(&view.CommentCount).Error; err != nil {
		return nil, fmt.Errorf("post service: count comments: %w", err)
	}

	if viewerID != "" {
		var liked int64
		if err := s.db.WithContext(ctx).
			Model(&models.Like{}).
			Where("post_id = ? AND user_id = ?", post.ID, viewerID).
			Count(&liked).Error; err != nil {
			return nil, fmt.Errorf("post service: check like: %w", err)
		}
		view.IsLiked = liked > 0
	}

	return &view, nil
}
