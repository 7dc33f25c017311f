package models

// Building describes a campus building with optional map coordinates.
type Building struct {
	BaseModel

	Name        string `gorm:"not null" json:"name"`
	Address     string `gorm:"not null" json:"address"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	Floors      int    `gorm:"default:1" json:"floors"`

	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`

	Rooms []Room `gorm:"foreignKey:BuildingID;constraint:OnDelete:CASCADE" json:"rooms,omitempty"`
}
