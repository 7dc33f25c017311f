package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/campuslink/campuslink-server/internal/models"
	apperrors "github.com/campuslink/campuslink-server/pkg/errors"
)

// CreateBuildingInput describes a new campus building.
type CreateBuildingInput struct {
	Name        string
	Address     string
	Description string
	ImageURL    string
	Floors      int
	Latitude    *float64
	Longitude   *float64
}

// CreateRoomInput describes a new room within a building.
type CreateRoomInput struct {
	BuildingID   string
	Number       string
	Floor        int
	RoomType     models.RoomType
	Capacity     int
	Description  string
	Equipment    []string
	IsAccessible *bool
}

// RoomFilters narrows room listings.
type RoomFilters struct {
	BuildingID string
	Floor      *int
	RoomType   models.RoomType
	Query      string
}

// SubmitRoomReviewInput carries a room rating. Submitting twice for the same
// room replaces the author's earlier review.
type SubmitRoomReviewInput struct {
	RoomID   string
	AuthorID string
	Rating   int
	Category models.ReviewCategory
	Comment  string

	CleanlinessRating *int
	EquipmentRating   *int
	ComfortRating     *int
}

// RoomStatistics aggregates review data for a room.
type RoomStatistics struct {
	ReviewCount        int64              `json:"review_count"`
	AverageRating      float64            `json:"average_rating"`
	RatingDistribution map[int]int64      `json:"rating_distribution"`
	CategoryAverages   map[string]float64 `json:"category_averages"`
}

// BuildingStatistics aggregates room and review data for a building.
type BuildingStatistics struct {
	RoomCount         int64            `json:"room_count"`
	RatedRoomCount    int64            `json:"rated_room_count"`
	AverageRating     float64          `json:"average_rating"`
	RoomTypeBreakdown map[string]int64 `json:"room_type_breakdown"`
}

// CampusService manages the physical campus directory: buildings, rooms, and
// room reviews.
type CampusService struct {
	db *gorm.DB
}

// NewCampusService constructs a CampusService instance.
func NewCampusService(db *gorm.DB) (*CampusService, error) {
	if db == nil {
		return nil, errors.New("campus service: db is required")
	}
	return &CampusService{db: db}, nil
}

// CreateBuilding registers a building in the directory.
func (s *CampusService) CreateBuilding(ctx context.Context, input CreateBuildingInput) (*models.Building, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	address := strings.TrimSpace(input.Address)
	if name == "" || address == "" {
		return nil, apperrors.NewBadRequest("name and address are required")
	}

	floors := input.Floors
	if floors <= 0 {
		floors = 1
	}

	building := &models.Building{
		Name:        name,
		Address:     address,
		Description: strings.TrimSpace(input.Description),
		ImageURL:    strings.TrimSpace(input.ImageURL),
		Floors:      floors,
		Latitude:    input.Latitude,
		Longitude:   input.Longitude,
	}

	if err := s.db.WithContext(ctx).Create(building).Error; err != nil {
		return nil, fmt.Errorf("campus service: create building: %w", err)
	}

	return building, nil
}

// ListBuildings returns every building ordered by name.
func (s *CampusService) ListBuildings(ctx context.Context) ([]models.Building, error) {
	ctx = ensureContext(ctx)

	var buildings []models.Building
	if err := s.db.WithContext(ctx).
		Order("name ASC").
		Find(&buildings).Error; err != nil {
		return nil, fmt.Errorf("campus service: list buildings: %w", err)
	}
	return buildings, nil
}

// GetBuilding loads a building together with its rooms.
func (s *CampusService) GetBuilding(ctx context.Context, id string) (*models.Building, error) {
	ctx = ensureContext(ctx)

	var building models.Building
	err := s.db.WithContext(ctx).
		Preload("Rooms").
		Take(&building, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("campus service: get building: %w", err)
	}
	return &building, nil
}

// DeleteBuilding removes a building and its rooms.
func (s *CampusService) DeleteBuilding(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var roomIDs []string
		if err := tx.Model(&models.Room{}).
			Where("building_id = ?", id).
			Pluck("id", &roomIDs).Error; err != nil {
			return fmt.Errorf("campus service: list rooms: %w", err)
		}
		if len(roomIDs) > 0 {
			if err := tx.Where("room_id IN ?", roomIDs).Delete(&models.RoomReview{}).Error; err != nil {
				return fmt.Errorf("campus service: delete reviews: %w", err)
			}
			if err := tx.Where("building_id = ?", id).Delete(&models.Room{}).Error; err != nil {
				return fmt.Errorf("campus service: delete rooms: %w", err)
			}
		}

		result := tx.Delete(&models.Building{}, "id = ?", id)
		if result.Error != nil {
			return fmt.Errorf("campus service: delete building: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return apperrors.ErrNotFound
		}
		return nil
	})
}

// CreateRoom adds a room to a building. Numbers are unique per building.
func (s *CampusService) CreateRoom(ctx context.Context, input CreateRoomInput) (*models.Room, error) {
	ctx = ensureContext(ctx)

	number := strings.TrimSpace(input.Number)
	if number == "" {
		return nil, apperrors.NewBadRequest("room number is required")
	}
	roomType := input.RoomType
	if roomType == "" {
		roomType = models.RoomClassroom
	}
	if !models.ValidRoomType(roomType) {
		return nil, apperrors.NewBadRequest("unknown room type")
	}

	if _, err := s.GetBuilding(ctx, input.BuildingID); err != nil {
		return nil, err
	}

	room := &models.Room{
		BuildingID:  input.BuildingID,
		Number:      number,
		Floor:       input.Floor,
		RoomType:    roomType,
		Capacity:    input.Capacity,
		Description: strings.TrimSpace(input.Description),
	}
	if input.IsAccessible != nil {
		room.IsAccessible = *input.IsAccessible
	} else {
		room.IsAccessible = true
	}
	if len(input.Equipment) > 0 {
		payload, err := equipmentJSON(input.Equipment)
		if err != nil {
			return nil, err
		}
		room.Equipment = payload
	}

	if err := s.db.WithContext(ctx).Create(room).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewBadRequest("room number already exists in this building")
		}
		return nil, fmt.Errorf("campus service: create room: %w", err)
	}

	return room, nil
}

// ListRooms returns rooms matching the filters, ordered by building and number.
func (s *CampusService) ListRooms(ctx context.Context, filters RoomFilters, page, pageSize int) ([]models.Room, int64, error) {
	ctx = ensureContext(ctx)

	page, perPage := normalisePage(page, pageSize)

	query := s.db.WithContext(ctx).Model(&models.Room{})
	if filters.BuildingID != "" {
		query = query.Where("building_id = ?", filters.BuildingID)
	}
	if filters.Floor != nil {
		query = query.Where("floor = ?", *filters.Floor)
	}
	if filters.RoomType != "" {
		query = query.Where("room_type = ?", filters.RoomType)
	}
	if q := strings.TrimSpace(filters.Query); q != "" {
		pattern := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(number) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("campus service: count rooms: %w", err)
	}

	var rooms []models.Room
	if err := query.
		Preload("Building").
		Order("building_id ASC, number ASC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&rooms).Error; err != nil {
		return nil, 0, fmt.Errorf("campus service: list rooms: %w", err)
	}

	return rooms, total, nil
}

// GetRoom loads a room with its building and reviews.
func (s *CampusService) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	ctx = ensureContext(ctx)

	var room models.Room
	err := s.db.WithContext(ctx).
		Preload("Building").
		Preload("Reviews.Author").
		Take(&room, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("campus service: get room: %w", err)
	}
	return &room, nil
}

// SubmitRoomReview records or replaces the author's review of a room.
func (s *CampusService) SubmitRoomReview(ctx context.Context, input SubmitRoomReviewInput) (*models.RoomReview, error) {
	ctx = ensureContext(ctx)

	if input.Rating < 1 || input.Rating > 5 {
		return nil, apperrors.NewBadRequest("rating must be between 1 and 5")
	}
	category := input.Category
	if category == "" {
		category = models.CategoryGeneral
	}

	if _, err := s.GetRoom(ctx, input.RoomID); err != nil {
		return nil, err
	}

	review := &models.RoomReview{
		RoomID:            input.RoomID,
		AuthorID:          input.AuthorID,
		Rating:            input.Rating,
		Category:          category,
		Comment:           strings.TrimSpace(input.Comment),
		CleanlinessRating: input.CleanlinessRating,
		EquipmentRating:   input.EquipmentRating,
		ComfortRating:     input.ComfortRating,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_id = ? AND author_id = ?", input.RoomID, input.AuthorID).
			Delete(&models.RoomReview{}).Error; err != nil {
			return fmt.Errorf("replace previous review: %w", err)
		}
		return tx.Create(review).Error
	})
	if err != nil {
		return nil, fmt.Errorf("campus service: submit review: %w", err)
	}

	return review, nil
}

// DeleteRoomReview removes a review. Only the author or an admin may delete.
func (s *CampusService) DeleteRoomReview(ctx context.Context, reviewID, actorID string, actorRole models.Role) error {
	ctx = ensureContext(ctx)

	var review models.RoomReview
	if err := s.db.WithContext(ctx).Take(&review, "id = ?", reviewID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("campus service: find review: %w", err)
	}
	if review.AuthorID != actorID && actorRole != models.RoleAdmin {
		return apperrors.ErrForbidden
	}

	if err := s.db.WithContext(ctx).Delete(&models.RoomReview{}, "id = ?", reviewID).Error; err != nil {
		return fmt.Errorf("campus service: delete review: %w", err)
	}
	return nil
}

// RoomStats aggregates review ratings for a room.
func (s *CampusService) RoomStats(ctx context.Context, roomID string) (*RoomStatistics, error) {
	ctx = ensureContext(ctx)

	if _, err := s.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}

	var reviews []models.RoomReview
	if err := s.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Find(&reviews).Error; err != nil {
		return nil, fmt.Errorf("campus service: load reviews: %w", err)
	}

	stats := &RoomStatistics{
		ReviewCount:        int64(len(reviews)),
		RatingDistribution: map[int]int64{1: 0, 2: 0, 3: 0, 4: 0, 5: 0},
		CategoryAverages:   map[string]float64{},
	}
	if len(reviews) == 0 {
		return stats, nil
	}

	var sum int
	var cleanSum, cleanCount, equipSum, equipCount, comfortSum, comfortCount int
	for _, review := range reviews {
		sum += review.Rating
		if review.Rating >= 1 && review.Rating <= 5 {
			stats.RatingDistribution[review.Rating]++
		}
		if review.CleanlinessRating != nil {
			cleanSum += *review.CleanlinessRating
			cleanCount++
		}
		if review.EquipmentRating != nil {
			equipSum += *review.EquipmentRating
			equipCount++
		}
		if review.ComfortRating != nil {
			comfortSum += *review.ComfortRating
			comfortCount++
		}
	}

	stats.AverageRating = roundToTenth(float64(sum) / float64(len(reviews)))
	if cleanCount > 0 {
		stats.CategoryAverages["cleanliness"] = roundToTenth(float64(cleanSum) / float64(cleanCount))
	}
	if equipCount > 0 {
		stats.CategoryAverages["equipment"] = roundToTenth(float64(equipSum) / float64(equipCount))
	}
	if comfortCount > 0 {
		stats.CategoryAverages["comfort"] = roundToTenth(float64(comfortSum) / float64(comfortCount))
	}

	return stats, nil
}

// BuildingStats summarises a building: how many rooms of each type it has and
// the average rating across its rated rooms.
func (s *CampusService) BuildingStats(ctx context.Context, buildingID string) (*BuildingStatistics, error) {
	ctx = ensureContext(ctx)

	if _, err := s.GetBuilding(ctx, buildingID); err != nil {
		return nil, err
	}

	stats := &BuildingStatistics{
		RoomTypeBreakdown: map[string]int64{},
	}

	type typeCount struct {
		RoomType string
		Count    int64
	}
	var byType []typeCount
	if err := s.db.WithContext(ctx).
		Model(&models.Room{}).
		Select("room_type, COUNT(*) AS count").
		Where("building_id = ?", buildingID).
		Group("room_type").
		Scan(&byType).Error; err != nil {
		return nil, fmt.Errorf("campus service: room type breakdown: %w", err)
	}
	for _, entry := range byType {
		stats.RoomCount += entry.Count
		stats.RoomTypeBreakdown[entry.RoomType] = entry.Count
	}

	// Average of per-room averages, so heavily reviewed rooms do not dominate.
	type roomAvg struct {
		Avg float64
	}
	var avgs []roomAvg
	if err := s.db.WithContext(ctx).
		Model(&models.RoomReview{}).
		Select("AVG(room_reviews.rating) AS avg").
		Joins("JOIN rooms ON rooms.id = room_reviews.room_id").
		Where("rooms.building_id = ?", buildingID).
		Group("room_reviews.room_id").
		Scan(&avgs).Error; err != nil {
		return nil, fmt.Errorf("campus service: building ratings: %w", err)
	}

	stats.RatedRoomCount = int64(len(avgs))
	if len(avgs) > 0 {
		var sum float64
		for _, entry := range avgs {
			sum += entry.Avg
		}
		stats.AverageRating = roundToTenth(sum / float64(len(avgs)))
	}

	return stats, nil
}

func roundToTenth(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}

func equipmentJSON(items []string) (datatypes.JSON, error) {
	payload, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("campus service: encode equipment: %w", err)
	}
	return datatypes.JSON(payload), nil
}
