package models

import "time"

// ParticipationStatus tracks a participant through an event's lifecycle.
type ParticipationStatus string

const (
	ParticipationRegistered ParticipationStatus = "registered"
	ParticipationConfirmed  ParticipationStatus = "confirmed"
	ParticipationAttended   ParticipationStatus = "attended"
	ParticipationCancelled  ParticipationStatus = "cancelled"
)

// EventParticipant links a user to an event they joined.
type EventParticipant struct {
	BaseModel

	EventID string `gorm:"type:uuid;not null;uniqueIndex:idx_event_participants_event_user" json:"event_id"`
	UserID  string `gorm:"type:uuid;not null;uniqueIndex:idx_event_participants_event_user" json:"user_id"`
	User    *User  `gorm:"foreignKey:UserID" json:"user,omitempty"`

	Status       ParticipationStatus `gorm:"not null;default:registered" json:"status"`
	RegisteredAt time.Time           `json:"registered_at"`
	Notes        string              `json:"notes"`
}
