package models

import "time"

// EventCategory classifies calendar events.
type EventCategory string

const (
	EventUniversity EventCategory = "university"
	EventPersonal   EventCategory = "personal"
	EventAcademic   EventCategory = "academic"
	EventCultural   EventCategory = "cultural"
	EventSports     EventCategory = "sports"
	EventConference EventCategory = "conference"
	EventWorkshop   EventCategory = "workshop"
	EventMeeting    EventCategory = "meeting"
	EventExam       EventCategory = "exam"
	EventDeadline   EventCategory = "deadline"
)

// ValidEventCategory reports whether c is one of the supported categories.
func ValidEventCategory(c EventCategory) bool {
	switch c {
	case EventUniversity, EventPersonal, EventAcademic, EventCultural,
		EventSports, EventConference, EventWorkshop, EventMeeting,
		EventExam, EventDeadline:
		return true
	}
	return false
}

// Event is a campus or personal calendar entry.
type Event struct {
	BaseModel

	Title       string        `gorm:"not null" json:"title"`
	Description string        `json:"description"`
	Category    EventCategory `gorm:"not null;default:university;index" json:"category"`

	StartAt  time.Time  `gorm:"not null;index" json:"start_at"`
	EndAt    *time.Time `json:"end_at"`
	Location string     `json:"location"`

	OrganizerID string `gorm:"type:uuid;not null;index" json:"organizer_id"`
	Organizer   *User  `gorm:"foreignKey:OrganizerID" json:"organizer,omitempty"`

	MaxParticipants      *int `json:"max_participants"`
	IsPublic             bool `gorm:"default:true" json:"is_public"`
	RequiresRegistration bool `gorm:"default:false" json:"requires_registration"`

	Participants []EventParticipant `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE" json:"participants,omitempty"`
	Reviews      []EventReview      `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE" json:"reviews,omitempty"`
}
