package controllers

import (
	"time"

	"github.com/mydayiart/dayart/models"
)

// All game dates are calendar dates in UTC: "today" rolls over at UTC midnight
// regardless of where the caller is.

func utcToday() time.Time {
	return models.Midnight(time.Now())
}

func utcTomorrow() time.Time {
	return utcToday().AddDate(0, 0, 1)
}

func sameDay(a, b time.Time) bool {
	au, bu := a.UTC(), b.UTC()
	return au.Year() == bu.Year() && au.YearDay() == bu.YearDay()
}

// dayBounds returns the [start, end) range covering one calendar date, used for
// date-column lookups that behave the same on MySQL DATE and SQLite datetime.
func dayBounds(date time.Time) (time.Time, time.Time) {
	start := models.Midnight(date)
	return start, start.AddDate(0, 0, 1)
}
