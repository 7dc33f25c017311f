package models

// Comment belongs to a post and is removed together with it.
type Comment struct {
	BaseModel

	PostID   string `gorm:"type:uuid;not null;index" json:"post_id"`
	AuthorID string `gorm:"type:uuid;not null;index" json:"author_id"`
	Author   *User  `gorm:"foreignKey:AuthorID" json:"author,omitempty"`

	Content string `gorm:"not null" json:"content"`
}
