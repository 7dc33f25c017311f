package models

// ReviewCategory classifies what aspect of a room a review focuses on.
type ReviewCategory string

const (
	CategoryCleanliness   ReviewCategory = "cleanliness"
	CategoryEquipment     ReviewCategory = "equipment"
	CategoryComfort       ReviewCategory = "comfort"
	CategoryAccessibility ReviewCategory = "accessibility"
	CategoryLighting      ReviewCategory = "lighting"
	CategoryAcoustics     ReviewCategory = "acoustics"
	CategoryTemperature   ReviewCategory = "temperature"
	CategoryGeneral       ReviewCategory = "general"
)

// RoomReview rates a room on a 1-5 scale. One review per room and author;
// submitting again replaces the earlier review.
type RoomReview struct {
	BaseModel

	RoomID   string `gorm:"type:uuid;not null;uniqueIndex:idx_room_reviews_room_author" json:"room_id"`
	AuthorID string `gorm:"type:uuid;not null;uniqueIndex:idx_room_reviews_room_author" json:"author_id"`
	Author   *User  `gorm:"foreignKey:AuthorID" json:"author,omitempty"`

	Rating   int            `gorm:"not null" json:"rating"`
	Category ReviewCategory `gorm:"default:general" json:"category"`
	Comment  string         `json:"comment"`

	CleanlinessRating *int `json:"cleanliness_rating"`
	EquipmentRating   *int `json:"equipment_rating"`
	ComfortRating     *int `json:"comfort_rating"`
}
