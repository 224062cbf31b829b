package controllers

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mydayiart/dayart/config"
	"github.com/mydayiart/dayart/models"
	"github.com/mydayiart/dayart/utils"
)

const (
	generationTimeout = 60 * time.Second
	generationLockTTL = 2 * time.Minute
)

// DayController resolves "today" (winning theme, image generation, counters)
// and seeds upcoming days with candidate themes.
type DayController struct {
	db     *gorm.DB
	images utils.ImageGenerator
	rng    *rand.Rand
	rngMu  sync.Mutex
}

// NewDayController creates a DayController backed by the OpenAI image client.
func NewDayController(db *gorm.DB) *DayController {
	return &DayController{
		db:     db,
		images: utils.NewOpenAIImageClient(),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// dayFor loads the Day row for a calendar date. When none exists it writes the
// 404 response itself and returns found=false.
func (d *DayController) dayFor(ctx *gin.Context, date time.Time) (*models.Day, bool) {
	start, end := dayBounds(date)
	var day models.Day
	if err := d.db.Where("day_date >= ? AND day_date < ?", start, end).First(&day).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40401, "no day found for today: "+date.Format("02/01/2006"))
			return nil, false
		}
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to load day")
		return nil, false
	}
	return &day, true
}

// Today returns today's image URL, generating the image on the first call after
// voting closed. Generation happens at most once per day: the persisted URL
// short-circuits later calls and a per-day lock covers concurrent first calls.
func (d *DayController) Today(ctx *gin.Context) {
	day, ok := d.dayFor(ctx, utcToday())
	if !ok {
		return
	}

	if day.ImageURL == "" {
		if !d.generateImage(ctx, day) {
			return
		}
	}

	if err := d.db.Model(&models.Day{}).Where("id = ?", day.ID).
		UpdateColumn("nb_view", gorm.Expr("nb_view + 1")).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to update view count")
		return
	}

	utils.Success(ctx, gin.H{
		"id":        day.ID,
		"day_date":  day.DayDate.Format("2006-01-02"),
		"image_url": day.ImageURL,
	})
}

// generateImage picks the winning theme, calls the generator and persists the
// resulting file. It writes the error response itself and returns false on
// failure; on success day.ImageURL is filled in.
func (d *DayController) generateImage(ctx *gin.Context, day *models.Day) bool {
	dateKey := day.DayDate.Format("2006-01-02")
	if !utils.AcquireDayLock(dateKey, generationLockTTL) {
		utils.Error(ctx, http.StatusConflict, 40901, "image generation already in progress, retry shortly")
		return false
	}
	defer utils.ReleaseDayLock(dateKey)

	// Re-check under the lock: a concurrent request may have finished first.
	var fresh models.Day
	if err := d.db.First(&fresh, day.ID).Error; err == nil && fresh.ImageURL != "" {
		day.ImageURL = fresh.ImageURL
		return true
	}

	var themes []models.Theme
	if err := d.db.Where("day_id = ?", day.ID).Order("nb_vote DESC").Find(&themes).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to load themes")
		return false
	}
	if len(themes) == 0 {
		utils.Error(ctx, http.StatusNotFound, 40402, "no theme for today: "+day.DayDate.Format("02/01/2006"))
		return false
	}

	winner := d.pickWinner(themes)

	genCtx, cancel := context.WithTimeout(ctx.Request.Context(), generationTimeout)
	defer cancel()

	remoteURL, err := d.images.GenerateImage(genCtx, winner.Title)
	if err != nil {
		utils.Sugar.Errorf("image generation failed for %s (%q): %v", dateKey, winner.Title, err)
		utils.Error(ctx, http.StatusBadGateway, 50201, "image generation failed")
		return false
	}

	content, err := utils.DownloadImage(genCtx, remoteURL)
	if err != nil {
		utils.Sugar.Errorf("image download failed for %s: %v", dateKey, err)
		utils.Error(ctx, http.StatusBadGateway, 50202, "image download failed")
		return false
	}

	cfg := config.Get()
	if err := os.MkdirAll(cfg.ImagesDir, 0o755); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to store image")
		return false
	}
	fileName := fmt.Sprintf("image_%s.png", day.DayDate.Format("02-01-2006"))
	if err := os.WriteFile(filepath.Join(cfg.ImagesDir, fileName), content, 0o644); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to store image")
		return false
	}

	imageURL := "/images/" + fileName
	if err := d.db.Model(&models.Day{}).Where("id = ?", day.ID).
		UpdateColumn("image_url", imageURL).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50005, "failed to save image url")
		return false
	}
	day.ImageURL = imageURL
	utils.Sugar.Infof("generated image for %s from theme %q (%d votes)", dateKey, winner.Title, winner.NbVote)
	return true
}

// pickWinner selects uniformly at random among the themes tied at the highest
// vote count. The slice must be sorted by nb_vote descending and non-empty.
func (d *DayController) pickWinner(themes []models.Theme) models.Theme {
	maxVotes := themes[0].NbVote
	top := 1
	for top < len(themes) && themes[top].NbVote == maxVotes {
		top++
	}
	d.rngMu.Lock()
	idx := d.rng.Intn(top)
	d.rngMu.Unlock()
	return themes[idx]
}

// Finished increments today's finish counter.
func (d *DayController) Finished(ctx *gin.Context) {
	day, ok := d.dayFor(ctx, utcToday())
	if !ok {
		return
	}

	if err := d.db.Model(&models.Day{}).Where("id = ?", day.ID).
		UpdateColumn("nb_finish", gorm.Expr("nb_finish + 1")).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50006, "failed to update finish count")
		return
	}

	var fresh models.Day
	if err := d.db.First(&fresh, day.ID).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50006, "failed to update finish count")
		return
	}
	utils.Success(ctx, gin.H{"nbFinish": fresh.NbFinish})
}

// Instagram increments today's instagram share counter.
func (d *DayController) Instagram(ctx *gin.Context) {
	day, ok := d.dayFor(ctx, utcToday())
	if !ok {
		return
	}

	if err := d.db.Model(&models.Day{}).Where("id = ?", day.ID).
		UpdateColumn("nb_post_instagram", gorm.Expr("nb_post_instagram + 1")).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50007, "failed to update instagram count")
		return
	}

	var fresh models.Day
	if err := d.db.First(&fresh, day.ID).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50007, "failed to update instagram count")
		return
	}
	utils.Success(ctx, gin.H{"nbPostInstagram": fresh.NbPostInstagram})
}

// AddDays seeds upcoming days from an admin supplied list of theme titles.
// Titles are grouped in threes; each group becomes one new day chained one
// calendar day after the latest existing day. The trailing remainder that does
// not fill a group of three is discarded.
func (d *DayController) AddDays(ctx *gin.Context) {
	type themeInput struct {
		Theme string `json:"theme"`
	}
	type request struct {
		Themes []themeInput `json:"themes"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil || len(req.Themes) == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40001, "no themes provided")
		return
	}

	titles := make([]string, 0, len(req.Themes))
	for _, t := range req.Themes {
		title := utils.SanitizeTitle(t.Theme)
		if title == "" {
			utils.Error(ctx, http.StatusBadRequest, 40002, "empty theme title")
			return
		}
		titles = append(titles, title)
	}

	validCount := len(titles) / 3 * 3
	if validCount == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40003, "need at least 3 themes")
		return
	}
	titles = titles[:validCount]

	var lastDay models.Day
	startDate := utcToday()
	if err := d.db.Order("day_date DESC").First(&lastDay).Error; err == nil {
		startDate = models.Midnight(lastDay.DayDate)
	} else if err != gorm.ErrRecordNotFound {
		utils.Error(ctx, http.StatusInternalServerError, 50008, "failed to load days")
		return
	}

	daysCreated := 0
	err := d.db.Transaction(func(tx *gorm.DB) error {
		for i := 0; i < validCount; i += 3 {
			startDate = startDate.AddDate(0, 0, 1)
			day := models.Day{
				DayDate: startDate,
				Themes: []models.Theme{
					{Title: titles[i]},
					{Title: titles[i+1]},
					{Title: titles[i+2]},
				},
			}
			if err := tx.Create(&day).Error; err != nil {
				return err
			}
			daysCreated++
		}
		return nil
	})
	if err != nil {
		utils.Sugar.Errorf("seeding days failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50009, "failed to add days")
		return
	}

	// The tomorrow theme list may have just changed.
	utils.CacheDelete(themesCacheKey(utcTomorrow()))

	utils.Respond(ctx, http.StatusOK, 0, "days added successfully", gin.H{"days_created": daysCreated})
}
