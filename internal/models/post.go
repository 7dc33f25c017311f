package models

// Post is a feed entry authored by a user. Likes and Views are denormalised
// counters kept in step by the post service.
type Post struct {
	BaseModel

	AuthorID string `gorm:"type:uuid;not null;index" json:"author_id"`
	Author   *User  `gorm:"foreignKey:AuthorID" json:"author,omitempty"`

	Content  string `gorm:"not null" json:"content"`
	ImageURL string `json:"image_url"`

	Likes int `gorm:"default:0" json:"likes"`
	Views int `gorm:"default:0" json:"views"`

	Comments []Comment `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"comments,omitempty"`
}
