package models

import "time"

// Theme is a titled voting candidate scheduled for exactly one Day.
// The day_id never changes after creation; votes only go up.
type Theme struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	DayID     uint      `gorm:"index;not null" json:"day_id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	NbVote    int       `gorm:"not null;default:0" json:"nb_vote"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Day       *Day      `json:"-"`
	Voters    []User    `gorm:"many2many:user_theme;constraint:OnDelete:CASCADE;" json:"-"`
}
