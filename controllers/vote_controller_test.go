package controllers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mydayiart/dayart/middleware"
	"github.com/mydayiart/dayart/models"
)

func newVoteEngine(db *gorm.DB) *gin.Engine {
	vc := NewVoteController(db)
	r := gin.New()
	user := r.Group("/user")
	user.Use(middleware.AuthRequired())
	user.POST("/vote", vc.Vote)
	user.GET("/has_voted", vc.HasVoted)
	return r
}

func TestVoteSuccess(t *testing.T) {
	db := setupTest(t)
	day := seedDay(t, db, utcTomorrow(), 0, 0, 0)
	user := seedUser(t, db, "voter@mydayiart.com", "Password1")
	r := newVoteEngine(db)

	target := day.Themes[1]
	w, _ := doJSON(t, r, "POST", "/user/vote", gin.H{"id": target.ID}, bearerFor(t, user))
	require.Equal(t, http.StatusOK, w.Code)

	var theme models.Theme
	require.NoError(t, db.First(&theme, target.ID).Error)
	assert.Equal(t, 1, theme.NbVote)

	var fresh models.User
	require.NoError(t, db.First(&fresh, user.ID).Error)
	require.NotNil(t, fresh.LastVoteDate)
	assert.True(t, sameDay(*fresh.LastVoteDate, utcToday()))

	count := db.Model(&fresh).Association("Themes").Count()
	assert.Equal(t, int64(1), count)
}

func TestVoteRejectedWhenAlreadyVotedToday(t *testing.T) {
	db := setupTest(t)
	day := seedDay(t, db, utcTomorrow(), 0, 0, 0)
	user := seedUser(t, db, "voter@mydayiart.com", "Password1")
	today := utcToday()
	require.NoError(t, db.Model(&user).UpdateColumn("last_vote_date", today).Error)
	r := newVoteEngine(db)

	w, _ := doJSON(t, r, "POST", "/user/vote", gin.H{"id": day.Themes[0].ID}, bearerFor(t, user))
	assert.Equal(t, http.StatusForbidden, w.Code)

	var theme models.Theme
	require.NoError(t, db.First(&theme, day.Themes[0].ID).Error)
	assert.Equal(t, 0, theme.NbVote)
}

func TestVoteRejectedWhenThemeNotForTomorrow(t *testing.T) {
	db := setupTest(t)
	day := seedDay(t, db, utcToday(), 0, 0, 0) // today, not tomorrow
	user := seedUser(t, db, "voter@mydayiart.com", "Password1")
	r := newVoteEngine(db)

	w, body := doJSON(t, r, "POST", "/user/vote", gin.H{"id": day.Themes[0].ID}, bearerFor(t, user))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, body["error"], "not for tomorrow")
}

func TestVoteThemeNotFound(t *testing.T) {
	db := setupTest(t)
	user := seedUser(t, db, "voter@mydayiart.com", "Password1")
	r := newVoteEngine(db)

	w, _ := doJSON(t, r, "POST", "/user/vote", gin.H{"id": 12345}, bearerFor(t, user))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVoteMissingThemeID(t *testing.T) {
	db := setupTest(t)
	user := seedUser(t, db, "voter@mydayiart.com", "Password1")
	r := newVoteEngine(db)

	w, _ := doJSON(t, r, "POST", "/user/vote", gin.H{}, bearerFor(t, user))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVoteRequiresAuth(t *testing.T) {
	db := setupTest(t)
	r := newVoteEngine(db)

	w, _ := doJSON(t, r, "POST", "/user/vote", gin.H{"id": 1}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// Voting on consecutive days for different themes keeps the voter set per theme
// correct: each theme ends up with the user exactly once.
func TestVoteIdempotentVoterRelation(t *testing.T) {
	db := setupTest(t)
	day := seedDay(t, db, utcTomorrow(), 0, 0, 0)
	user := seedUser(t, db, "voter@mydayiart.com", "Password1")
	r := newVoteEngine(db)

	w, _ := doJSON(t, r, "POST", "/user/vote", gin.H{"id": day.Themes[0].ID}, bearerFor(t, user))
	require.Equal(t, http.StatusOK, w.Code)

	// simulate the date rolling over, then vote for the same theme again
	yesterday := utcToday().AddDate(0, 0, -1)
	require.NoError(t, db.Model(&models.User{ID: user.ID}).UpdateColumn("last_vote_date", yesterday).Error)

	w, _ = doJSON(t, r, "POST", "/user/vote", gin.H{"id": day.Themes[0].ID}, bearerFor(t, user))
	require.Equal(t, http.StatusOK, w.Code)

	var theme models.Theme
	require.NoError(t, db.First(&theme, day.Themes[0].ID).Error)
	assert.Equal(t, 2, theme.NbVote)

	count := db.Model(&models.User{ID: user.ID}).Association("Themes").Count()
	assert.Equal(t, int64(1), count, "re-adding an existing voter relation is a no-op")
}

func TestHasVotedListsTomorrowThemes(t *testing.T) {
	db := setupTest(t)
	day := seedDay(t, db, utcTomorrow(), 0, 0, 0)
	user := seedUser(t, db, "voter@mydayiart.com", "Password1")
	r := newVoteEngine(db)

	w, body := doJSON(t, r, "GET", "/user/has_voted", nil, bearerFor(t, user))
	require.Equal(t, http.StatusOK, w.Code)

	themes := body["data"].(map[string]interface{})["themes"].([]interface{})
	require.Len(t, themes, 3)
	first := themes[0].(map[string]interface{})
	assert.Equal(t, float64(day.Themes[0].ID), first["id"])
	assert.Equal(t, day.Themes[0].Title, first["title"])
}

func TestHasVotedAfterVoting(t *testing.T) {
	db := setupTest(t)
	seedDay(t, db, utcTomorrow(), 0, 0, 0)
	user := seedUser(t, db, "voter@mydayiart.com", "Password1")
	require.NoError(t, db.Model(&user).UpdateColumn("last_vote_date", utcToday()).Error)
	r := newVoteEngine(db)

	w, body := doJSON(t, r, "GET", "/user/has_voted", nil, bearerFor(t, user))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, body["error"], "already voted")
}

func TestHasVotedNoTomorrowDay(t *testing.T) {
	db := setupTest(t)
	user := seedUser(t, db, "voter@mydayiart.com", "Password1")
	r := newVoteEngine(db)

	w, _ := doJSON(t, r, "GET", "/user/has_voted", nil, bearerFor(t, user))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVoteDateGranularityIsUTC(t *testing.T) {
	db := setupTest(t)
	day := seedDay(t, db, utcTomorrow(), 0, 0, 0)
	user := seedUser(t, db, "voter@mydayiart.com", "Password1")
	// a vote recorded yesterday does not block today
	yesterday := utcToday().Add(-24 * time.Hour)
	require.NoError(t, db.Model(&user).UpdateColumn("last_vote_date", yesterday).Error)
	r := newVoteEngine(db)

	w, _ := doJSON(t, r, "POST", "/user/vote", gin.H{"id": day.Themes[0].ID}, bearerFor(t, user))
	assert.Equal(t, http.StatusOK, w.Code)
}
