package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mydayiart/dayart/middleware"
	"github.com/mydayiart/dayart/models"
	"github.com/mydayiart/dayart/utils"
)

// VoteController lets authenticated users vote on tomorrow's themes, one vote
// per user per calendar day.
type VoteController struct {
	db *gorm.DB
}

// NewVoteController creates a VoteController.
func NewVoteController(db *gorm.DB) *VoteController {
	return &VoteController{db: db}
}

// currentUser resolves the authenticated user from the JWT claims placed in the
// context by the auth middleware. Writes the error response itself on failure.
func (v *VoteController) currentUser(ctx *gin.Context) (*models.User, bool) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return nil, false
	}
	var user models.User
	if err := v.db.First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusUnauthorized, 40111, "account no longer exists")
			return nil, false
		}
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to load user")
		return nil, false
	}
	return &user, true
}

// Vote casts the caller's daily vote for a theme scheduled for tomorrow.
// The vote counter increment and the voter relation are committed atomically.
func (v *VoteController) Vote(ctx *gin.Context) {
	user, ok := v.currentUser(ctx)
	if !ok {
		return
	}

	today := utcToday()
	tomorrow := utcTomorrow()
	if user.LastVoteDate != nil && sameDay(*user.LastVoteDate, today) {
		utils.Error(ctx, http.StatusForbidden, 40302, "user has already voted today")
		return
	}

	type request struct {
		ID uint `json:"id"`
	}
	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil || req.ID == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40010, "theme id is required")
		return
	}

	var theme models.Theme
	if err := v.db.Preload("Day").First(&theme, req.ID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40403, "theme not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50011, "failed to load theme")
		return
	}

	if theme.Day == nil || !sameDay(theme.Day.DayDate, tomorrow) {
		utils.Error(ctx, http.StatusBadRequest, 40011, "theme is not for tomorrow")
		return
	}

	err := v.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{ID: user.ID}).
			UpdateColumn("last_vote_date", today).Error; err != nil {
			return err
		}

		// The join row insert is an upsert: re-adding an existing voter is a no-op.
		if err := tx.Model(&models.User{ID: user.ID}).
			Association("Themes").Append(&models.Theme{ID: theme.ID}); err != nil {
			return err
		}

		return tx.Model(&models.Theme{}).Where("id = ?", theme.ID).
			UpdateColumn("nb_vote", gorm.Expr("nb_vote + 1")).Error
	})
	if err != nil {
		utils.Sugar.Errorf("vote failed user=%d theme=%d: %v", user.ID, theme.ID, err)
		utils.Error(ctx, http.StatusInternalServerError, 50012, "failed to record vote")
		return
	}

	utils.SuccessMessage(ctx, "vote added successfully")
}

func themesCacheKey(date time.Time) string {
	return "cache:themes:" + date.Format("2006-01-02")
}

// HasVoted lists the themes open for voting (tomorrow's candidates) when the
// caller has not voted yet today, and rejects with 400 once they have.
func (v *VoteController) HasVoted(ctx *gin.Context) {
	user, ok := v.currentUser(ctx)
	if !ok {
		return
	}

	today := utcToday()
	tomorrow := utcTomorrow()
	if user.LastVoteDate != nil && sameDay(*user.LastVoteDate, today) {
		utils.Error(ctx, http.StatusBadRequest, 40012, "user has already voted today for tomorrow")
		return
	}

	if b, cached := utils.CacheGetBytes(themesCacheKey(tomorrow)); cached {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	start, end := dayBounds(tomorrow)
	var day models.Day
	if err := v.db.Where("day_date >= ? AND day_date < ?", start, end).First(&day).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40404, "no themes available for tomorrow")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50013, "failed to load day")
		return
	}

	var themes []models.Theme
	if err := v.db.Where("day_id = ?", day.ID).Order("id").Find(&themes).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50014, "failed to load themes")
		return
	}

	list := make([]gin.H, 0, len(themes))
	for _, t := range themes {
		list = append(list, gin.H{"id": t.ID, "title": t.Title})
	}

	payload := utils.JSONResponse{Code: 0, Message: "success", Data: gin.H{"themes": list}}
	utils.CacheSetJSON(themesCacheKey(tomorrow), payload, time.Minute)
	utils.Success(ctx, gin.H{"themes": list})
}
