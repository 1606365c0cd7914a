package parsing

import (
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	minDateSerial = 20000 // 1954-10-03
	maxDateSerial = 80000 // 2119-01-10
)

// excelEpoch is day zero of the 1900 date system, adjusted for the 1900 leap-year bug.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// Day-first locale layouts come before month-name forms; ISO is tried first.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"02.01.2006",
	"02/01/06",
	"2-Jan-2006",
	"02-Jan-2006",
	"2-Jan-06",
	"02-Jan-06",
	"2 Jan 2006",
	"02 Jan 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Mon, 2 Jan 2006",
	"Monday, 2 January 2006",
}

// ParseDate reads a header or completion cell as a calendar date in UTC.
// It accepts spreadsheet day serials, ISO strings and day-first locale forms.
func ParseDate(cell string) (time.Time, bool) {
	v := strings.TrimSpace(cell)
	if v == "" || isErrorCell(v) {
		return time.Time{}, false
	}
	if serial, err := strconv.ParseFloat(v, 64); err == nil {
		return fromSerial(serial)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return civilDate(t), true
		}
	}
	return time.Time{}, false
}

func fromSerial(serial float64) (time.Time, bool) {
	if math.IsNaN(serial) || serial < minDateSerial || serial > maxDateSerial {
		return time.Time{}, false
	}
	return excelEpoch.AddDate(0, 0, int(serial)), true
}

// civilDate drops the time of day and location, keeping the wall-clock date.
func civilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func datePtr(cell string) *time.Time {
	t, ok := ParseDate(cell)
	if !ok {
		return nil
	}
	return &t
}
