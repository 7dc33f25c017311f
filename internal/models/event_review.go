package models

// EventReview rates a past event on a 1-5 scale, one per event and author.
type EventReview struct {
	BaseModel

	EventID  string `gorm:"type:uuid;not null;uniqueIndex:idx_event_reviews_event_author" json:"event_id"`
	AuthorID string `gorm:"type:uuid;not null;uniqueIndex:idx_event_reviews_event_author" json:"author_id"`
	Author   *User  `gorm:"foreignKey:AuthorID" json:"author,omitempty"`

	Rating  int    `gorm:"not null" json:"rating"`
	Comment string `json:"comment"`
}
