package models

// Like marks that a user liked a post. The composite unique index backs the
// toggle semantics: a second like request removes the row.
type Like struct {
	BaseModel

	PostID string `gorm:"type:uuid;not null;uniqueIndex:idx_likes_post_user" json:"post_id"`
	UserID string `gorm:"type:uuid;not null;uniqueIndex:idx_likes_post_user" json:"user_id"`
}
