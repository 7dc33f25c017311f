package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/campuslink/campuslink-server/internal/database/testutil"
	"github.com/campuslink/campuslink-server/internal/models"
	apperrors "github.com/campuslink/campuslink-server/pkg/errors"
)

func newPostFixture(t *testing.T) (*PostService, *gorm.DB) {
	t.Helper()

	db := testutil.MustOpenTestDB(t)
	svc, err := NewPostService(db)
	require.NoError(t, err)
	return svc, db
}

func TestCreateAndListPosts(t *testing.T) {
	svc, db := newPostFixture(t)
	author := seedUser(t, db, "writer", models.RoleStudent)
	viewer := seedUser(t, db, "reader", models.RoleStudent)

	first, err := svc.Create(context.Background(), CreatePostInput{
		AuthorID: author.ID,
		Content:  "first post",
	})
	require.NoError(t, err)
	require.NotNil(t, first.Author)

	_, err = svc.Create(context.Background(), CreatePostInput{
		AuthorID: author.ID,
		Content:  "second post",
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreatePostInput{AuthorID: author.ID, Content: "   "})
	require.Error(t, err)

	views, total, err := svc.List(context.Background(), ListPostsOptions{}, viewer.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, views, 2)
	// Newest first.
	require.Equal(t, "second post", views[0].Content)
	require.False(t, views[0].IsLiked)
}

func TestToggleLike(t *testing.T) {
	svc, db := newPostFixture(t)
	author := seedUser(t, db, "writer", models.RoleStudent)
	fan := seedUser(t, db, "fan", models.RoleStudent)

	post, err := svc.Create(context.Background(), CreatePostInput{AuthorID: author.ID, Content: "like me"})
	require.NoError(t, err)

	liked, count, err := svc.ToggleLike(context.Background(), post.ID, fan.ID)
	require.NoError(t, err)
	require.True(t, liked)
	require.Equal(t, 1, count)

	liked, count, err = svc.ToggleLike(context.Background(), post.ID, fan.ID)
	require.NoError(t, err)
	require.False(t, liked)
	require.Equal(t, 0, count)

	// A stale counter never drops below zero on unlike.
	_, _, err = svc.ToggleLike(context.Background(), post.ID, fan.ID)
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.Post{}).Where("id = ?", post.ID).Update("likes", 0).Error)
	_, count, err = svc.ToggleLike(context.Background(), post.ID, fan.ID)
	require.NoError(t, err)
	require.Equal(t, 0, count)
}

func TestGetCountsViews(t *testing.T) {
	svc, db := newPostFixture(t)
	author := seedUser(t, db, "writer", models.RoleStudent)

	post, err := svc.Create(context.Background(), CreatePostInput{AuthorID: author.ID, Content: "views"})
	require.NoError(t, err)

	view, err := svc.Get(context.Background(), post.ID, author.ID)
	require.NoError(t, err)
	require.Equal(t, 1, view.Views)

	view, err = svc.Get(context.Background(), post.ID, author.ID)
	require.NoError(t, err)
	require.Equal(t, 2, view.Views)
}

func TestUpdatePostOnlyAuthor(t *testing.T) {
	svc, db := newPostFixture(t)
	author := seedUser(t, db, "writer", models.RoleStudent)
	other := seedUser(t, db, "other", models.RoleStudent)

	post, err := svc.Create(context.Background(), CreatePostInput{AuthorID: author.ID, Content: "original"})
	require.NoError(t, err)

	content := "edited"
	_, err = svc.Update(context.Background(), post.ID, other.ID, UpdatePostInput{Content: &content})
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	updated, err := svc.Update(context.Background(), post.ID, author.ID, UpdatePostInput{Content: &content})
	require.NoError(t, err)
	require.Equal(t, "edited", updated.Content)
}

func TestDeletePostCascades(t *testing.T) {
	svc, db := newPostFixture(t)
	author := seedUser(t, db, "writer", models.RoleStudent)
	fan := seedUser(t, db, "fan", models.RoleStudent)
	admin := seedUser(t, db, "admin", models.RoleAdmin)

	post, err := svc.Create(context.Background(), CreatePostInput{AuthorID: author.ID, Content: "doomed"})
	require.NoError(t, err)

	_, err = svc.AddComment(context.Background(), post.ID, fan.ID, "nice")
	require.NoError(t, err)
	_, _, err = svc.ToggleLike(context.Background(), post.ID, fan.ID)
	require.NoError(t, err)

	require.ErrorIs(t, svc.Delete(context.Background(), post.ID, fan.ID, models.RoleStudent), apperrors.ErrForbidden)
	require.NoError(t, svc.Delete(context.Background(), post.ID, admin.ID, models.RoleAdmin))

	var comments, likes int64
	require.NoError(t, db.Model(&models.Comment{}).Where("post_id = ?", post.ID).Count(&comments).Error)
	require.NoError(t, db.Model(&models.Like{}).Where("post_id = ?", post.ID).Count(&likes).Error)
	require.Zero(t, comments)
	require.Zero(t, likes)
}

func TestCommentsLifecycle(t *testing.T) {
	svc, db := newPostFixture(t)
	author := seedUser(t, db, "writer", models.RoleStudent)
	commenter := seedUser(t, db, "talker", models.RoleStudent)
	stranger := seedUser(t, db, "stranger", models.RoleStudent)

	post, err := svc.Create(context.Background(), CreatePostInput{AuthorID: author.ID, Content: "discuss"})
	require.NoError(t, err)

	comment, err := svc.AddComment(context.Background(), post.ID, commenter.ID, "first!")
	require.NoError(t, err)
	require.NotNil(t, comment.Author)

	_, err = svc.AddComment(context.Background(), "missing", commenter.ID, "hello")
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	comments, total, err := svc.ListComments(context.Background(), post.ID, 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Len(t, comments, 1)

	// Strangers cannot delete; the post author can.
	require.ErrorIs(t,
		svc.DeleteComment(context.Background(), comment.ID, stranger.ID, models.RoleStudent),
		apperrors.ErrForbidden)
	require.NoError(t, svc.DeleteComment(context.Background(), comment.ID, author.ID, models.RoleStudent))
}
