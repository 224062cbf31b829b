package models

import (
	"time"

	"gorm.io/gorm"
)

// Day is one calendar date of the game: it owns the three candidate themes,
// the engagement counters and, once resolved, the generated image.
type Day struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	DayDate         time.Time `gorm:"type:date;uniqueIndex;not null" json:"day_date"`
	ImageURL        string    `gorm:"type:text" json:"image_url"`
	NbView          int       `gorm:"not null;default:0" json:"nb_view"`
	NbFinish        int       `gorm:"not null;default:0" json:"nb_finish"`
	NbPostInstagram int       `gorm:"not null;default:0" json:"nb_post_instagram"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Themes          []Theme   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"themes,omitempty"`
}

// BeforeCreate normalizes the date to UTC midnight so the unique index
// really is one row per calendar date.
func (d *Day) BeforeCreate(tx *gorm.DB) error {
	d.DayDate = Midnight(d.DayDate)
	now := time.Now()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	return nil
}

// Midnight truncates a timestamp to its UTC calendar date.
func Midnight(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
