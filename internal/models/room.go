package models

import "gorm.io/datatypes"

// RoomType enumerates the kinds of rooms listed in the campus directory.
type RoomType string

const (
	RoomClassroom   RoomType = "classroom"
	RoomLaboratory  RoomType = "laboratory"
	RoomLectureHall RoomType = "lecture"
	RoomAdmin       RoomType = "admin"
	RoomLibrary     RoomType = "library"
	RoomComputerLab RoomType = "computer"
	RoomConference  RoomType = "conference"
	RoomWorkshop    RoomType = "workshop"
)

// ValidRoomType reports whether t is one of the supported room types.
func ValidRoomType(t RoomType) bool {
	switch t {
	case RoomClassroom, RoomLaboratory, RoomLectureHall, RoomAdmin,
		RoomLibrary, RoomComputerLab, RoomConference, RoomWorkshop:
		return true
	}
	return false
}

// Room is a single room inside a building. Numbers are unique per building.
type Room struct {
	BaseModel

	BuildingID string    `gorm:"type:uuid;not null;uniqueIndex:idx_rooms_building_number" json:"building_id"`
	Building   *Building `gorm:"foreignKey:BuildingID" json:"building,omitempty"`

	Number      string   `gorm:"not null;uniqueIndex:idx_rooms_building_number" json:"number"`
	Floor       int      `gorm:"not null" json:"floor"`
	RoomType    RoomType `gorm:"not null;default:classroom" json:"room_type"`
	Capacity    int      `gorm:"default:0" json:"capacity"`
	Description string   `json:"description"`

	Equipment datatypes.JSON `json:"equipment"`

	IsAccessible bool `gorm:"default:true" json:"is_accessible"`

	Reviews []RoomReview `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE" json:"reviews,omitempty"`
}
