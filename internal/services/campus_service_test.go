package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/campuslink/campuslink-server/internal/database/testutil"
	"github.com/campuslink/campuslink-server/internal/models"
	apperrors "github.com/campuslink/campuslink-server/pkg/errors"
)

func newCampusFixture(t *testing.T) (*CampusService, *gorm.DB) {
	t.Helper()

	db := testutil.MustOpenTestDB(t)
	svc, err := NewCampusService(db)
	require.NoError(t, err)
	return svc, db
}

func seedBuildingWithRoom(t *testing.T, svc *CampusService) (*models.Building, *models.Room) {
	t.Helper()

	building, err := svc.CreateBuilding(context.Background(), CreateBuildingInput{
		Name:    "Main Hall",
		Address: "1 Campus Way",
		Floors:  4,
	})
	require.NoError(t, err)

	room, err := svc.CreateRoom(context.Background(), CreateRoomInput{
		BuildingID: building.ID,
		Number:     "101",
		Floor:      1,
		RoomType:   models.RoomLectureHall,
		Capacity:   120,
		Equipment:  []string{"projector", "whiteboard"},
	})
	require.NoError(t, err)

	return building, room
}

func TestCreateBuildingAndRoom(t *testing.T) {
	svc, _ := newCampusFixture(t)
	building, room := seedBuildingWithRoom(t, svc)

	require.Equal(t, 4, building.Floors)
	require.Equal(t, models.RoomLectureHall, room.RoomType)
	require.JSONEq(t, `["projector","whiteboard"]`, string(room.Equipment))

	loaded, err := svc.GetBuilding(context.Background(), building.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Rooms, 1)
}

func TestCreateRoomRejectsDuplicateNumber(t *testing.T) {
	svc, _ := newCampusFixture(t)
	building, _ := seedBuildingWithRoom(t, svc)

	_, err := svc.CreateRoom(context.Background(), CreateRoomInput{
		BuildingID: building.ID,
		Number:     "101",
		Floor:      1,
	})
	require.Error(t, err)

	// The same number is fine in another building.
	other, err := svc.CreateBuilding(context.Background(), CreateBuildingInput{
		Name:    "Annex",
		Address: "2 Campus Way",
	})
	require.NoError(t, err)

	_, err = svc.CreateRoom(context.Background(), CreateRoomInput{
		BuildingID: other.ID,
		Number:     "101",
		Floor:      1,
	})
	require.NoError(t, err)
}

func TestCreateRoomValidatesType(t *testing.T) {
	svc, _ := newCampusFixture(t)
	building, _ := seedBuildingWithRoom(t, svc)

	_, err := svc.CreateRoom(context.Background(), CreateRoomInput{
		BuildingID: building.ID,
		Number:     "102",
		RoomType:   "garage",
	})
	require.Error(t, err)
}

func TestListRoomsFilters(t *testing.T) {
	svc, _ := newCampusFixture(t)
	building, _ := seedBuildingWithRoom(t, svc)

	_, err := svc.CreateRoom(context.Background(), CreateRoomInput{
		BuildingID:  building.ID,
		Number:      "201",
		Floor:       2,
		RoomType:    models.RoomLaboratory,
		Description: "chemistry lab",
	})
	require.NoError(t, err)

	floor := 2
	rooms, total, err := svc.ListRooms(context.Background(), RoomFilters{Floor: &floor}, 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, "201", rooms[0].Number)

	rooms, total, err = svc.ListRooms(context.Background(), RoomFilters{Query: "chemistry"}, 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, models.RoomLaboratory, rooms[0].RoomType)
}

func TestSubmitRoomReviewReplacesPrevious(t *testing.T) {
	svc, db := newCampusFixture(t)
	_, room := seedBuildingWithRoom(t, svc)
	reviewer := seedUser(t, db, "critic", models.RoleStudent)

	_, err := svc.SubmitRoomReview(context.Background(), SubmitRoomReviewInput{
		RoomID:   room.ID,
		AuthorID: reviewer.ID,
		Rating:   2,
		Comment:  "cold",
	})
	require.NoError(t, err)

	review, err := svc.SubmitRoomReview(context.Background(), SubmitRoomReviewInput{
		RoomID:   room.ID,
		AuthorID: reviewer.ID,
		Rating:   4,
		Comment:  "fixed the heating",
	})
	require.NoError(t, err)
	require.Equal(t, 4, review.Rating)

	var count int64
	require.NoError(t, db.Model(&models.RoomReview{}).
		Where("room_id = ? AND author_id = ?", room.ID, reviewer.ID).
		Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestSubmitRoomReviewValidatesRating(t *testing.T) {
	svc, db := newCampusFixture(t)
	_, room := seedBuildingWithRoom(t, svc)
	reviewer := seedUser(t, db, "critic", models.RoleStudent)

	_, err := svc.SubmitRoomReview(context.Background(), SubmitRoomReviewInput{
		RoomID:   room.ID,
		AuthorID: reviewer.ID,
		Rating:   6,
	})
	require.Error(t, err)
}

func TestRoomStats(t *testing.T) {
	svc, db := newCampusFixture(t)
	_, room := seedBuildingWithRoom(t, svc)

	clean5, comfort3 := 5, 3
	reviewers := []struct {
		rating  int
		clean   *int
		comfort *int
	}{
		{rating: 5, clean: &clean5},
		{rating: 4, comfort: &comfort3},
		{rating: 5},
	}
	for i, r := range reviewers {
		author := seedUser(t, db, "critic"+string(rune('a'+i)), models.RoleStudent)
		_, err := svc.SubmitRoomReview(context.Background(), SubmitRoomReviewInput{
			RoomID:            room.ID,
			AuthorID:          author.ID,
			Rating:            r.rating,
			CleanlinessRating: r.clean,
			ComfortRating:     r.comfort,
		})
		require.NoError(t, err)
	}

	stats, err := svc.RoomStats(context.Background(), room.ID)
	require.NoError(t, err)
	require.EqualValues(t, 3, stats.ReviewCount)
	require.InDelta(t, 4.7, stats.AverageRating, 0.01)
	require.EqualValues(t, 2, stats.RatingDistribution[5])
	require.EqualValues(t, 1, stats.RatingDistribution[4])
	require.EqualValues(t, 0, stats.RatingDistribution[1])
	require.InDelta(t, 5.0, stats.CategoryAverages["cleanliness"], 0.01)
	require.InDelta(t, 3.0, stats.CategoryAverages["comfort"], 0.01)

	// A room without reviews reports an empty distribution.
	_, fresh := seedBuildingWithRoomNumber(t, svc, "B2", "301")
	empty, err := svc.RoomStats(context.Background(), fresh.ID)
	require.NoError(t, err)
	require.Zero(t, empty.ReviewCount)
	require.Zero(t, empty.AverageRating)
}

func seedBuildingWithRoomNumber(t *testing.T, svc *CampusService, name, number string) (*models.Building, *models.Room) {
	t.Helper()

	building, err := svc.CreateBuilding(context.Background(), CreateBuildingInput{
		Name:    name,
		Address: name + " street",
	})
	require.NoError(t, err)

	room, err := svc.CreateRoom(context.Background(), CreateRoomInput{
		BuildingID: building.ID,
		Number:     number,
		Floor:      3,
	})
	require.NoError(t, err)

	return building, room
}

func TestDeleteBuildingRemovesRoomsAndReviews(t *testing.T) {
	svc, db := newCampusFixture(t)
	building, room := seedBuildingWithRoom(t, svc)
	reviewer := seedUser(t, db, "critic", models.RoleStudent)

	_, err := svc.SubmitRoomReview(context.Background(), SubmitRoomReviewInput{
		RoomID:   room.ID,
		AuthorID: reviewer.ID,
		Rating:   3,
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteBuilding(context.Background(), building.ID))

	var rooms, reviews int64
	require.NoError(t, db.Model(&models.Room{}).Count(&rooms).Error)
	require.NoError(t, db.Model(&models.RoomReview{}).Count(&reviews).Error)
	require.Zero(t, rooms)
	require.Zero(t, reviews)

	require.ErrorIs(t, svc.DeleteBuilding(context.Background(), building.ID), apperrors.ErrNotFound)
}

func TestDeleteRoomReviewAuthorOnly(t *testing.T) {
	svc, db := newCampusFixture(t)
	_, room := seedBuildingWithRoom(t, svc)
	author := seedUser(t, db, "critic", models.RoleStudent)
	other := seedUser(t, db, "bystander", models.RoleStudent)
	admin := seedUser(t, db, "dean", models.RoleAdmin)

	review, err := svc.SubmitRoomReview(context.Background(), SubmitRoomReviewInput{
		RoomID:   room.ID,
		AuthorID: author.ID,
		Rating:   4,
	})
	require.NoError(t, err)

	err = svc.DeleteRoomReview(context.Background(), review.ID, other.ID, models.RoleStudent)
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	require.NoError(t, svc.DeleteRoomReview(context.Background(), review.ID, author.ID, models.RoleStudent))
	require.ErrorIs(t, svc.DeleteRoomReview(context.Background(), review.ID, author.ID, models.RoleStudent), apperrors.ErrNotFound)

	// Admins can remove any review.
	review, err = svc.SubmitRoomReview(context.Background(), SubmitRoomReviewInput{
		RoomID:   room.ID,
		AuthorID: author.ID,
		Rating:   2,
	})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteRoomReview(context.Background(), review.ID, admin.ID, models.RoleAdmin))
}

func TestBuildingStats(t *testing.T) {
	svc, db := newCampusFixture(t)
	building, lectureRoom := seedBuildingWithRoom(t, svc)

	room2, err := svc.CreateRoom(context.Background(), CreateRoomInput{
		BuildingID: building.ID,
		Number:     "102",
		Floor:      1,
		RoomType:   models.RoomClassroom,
	})
	require.NoError(t, err)

	_, err = svc.CreateRoom(context.Background(), CreateRoomInput{
		BuildingID: building.ID,
		Number:     "103",
		Floor:      1,
		RoomType:   models.RoomClassroom,
	})
	require.NoError(t, err)

	reviews := []struct {
		roomID string
		rating int
	}{
		{lectureRoom.ID, 5},
		{lectureRoom.ID, 4},
		{room2.ID, 3},
	}
	for i, r := range reviews {
		author := seedUser(t, db, "rater"+string(rune('a'+i)), models.RoleStudent)
		_, err := svc.SubmitRoomReview(context.Background(), SubmitRoomReviewInput{
			RoomID:   r.roomID,
			AuthorID: author.ID,
			Rating:   r.rating,
		})
		require.NoError(t, err)
	}

	stats, err := svc.BuildingStats(context.Background(), building.ID)
	require.NoError(t, err)
	require.EqualValues(t, 3, stats.RoomCount)
	require.EqualValues(t, 2, stats.RatedRoomCount)
	// Room averages are 4.5 and 3; unrated rooms stay out of the mean.
	require.InDelta(t, 3.8, stats.AverageRating, 0.01)
	require.EqualValues(t, 1, stats.RoomTypeBreakdown[string(models.RoomLectureHall)])
	require.EqualValues(t, 2, stats.RoomTypeBreakdown[string(models.RoomClassroom)])

	_, err = svc.BuildingStats(context.Background(), "missing")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}
