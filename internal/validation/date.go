package validation

import (
	"regexp"
	"strconv"
	"time"

	"github.com/chxlky/project-board/internal/apperrors"
	"github.com/jinzhu/now"
)

const (
	minDueYear       = 2000
	maxDueYear       = 2100
	maxYearsInFuture = 5
)

var longYearPattern = regexp.MustCompile(`\d{5,}`)

// dueDateFormats only has layouts carrying a full year, month and day, so
// time-only or yearless input is not completed from the clock.
var dueDateFormats = &now.Config{
	TimeFormats: []string{
		"2006-1-2",
		"2006/1/2",
		"2006-1-2 15:4",
		"2006-1-2 15:4:5",
		"2006-1-2T15:4",
		"2006-1-2T15:4:5",
		time.RFC3339,
		time.RFC3339Nano,
	},
}

// ParseDueDate parses raw and checks it against the due date window
// relative to the validator's clock.
func (v *Validator) ParseDueDate(raw string) (time.Time, error) {
	if longYearPattern.MatchString(raw) {
		return time.Time{}, apperrors.Validation("Year must be 4 digits or less")
	}

	current := v.now()
	parsed, err := dueDateFormats.With(current).Parse(raw)
	if err != nil {
		return time.Time{}, apperrors.Validation("Invalid date format. Please use YYYY-MM-DD or ISO format")
	}

	year := parsed.Year()
	if len(strconv.Itoa(year)) > 4 {
		return time.Time{}, apperrors.Validation("Year must be 4 digits or less")
	}

	if parsed.Before(now.New(current).BeginningOfDay()) {
		return time.Time{}, apperrors.Validation("Due date cannot be in the past")
	}

	if parsed.After(current.AddDate(maxYearsInFuture, 0, 0)) {
		return time.Time{}, apperrors.Validation("Due date cannot be more than 5 years in the future")
	}

	if year < minDueYear || year > maxDueYear {
		return time.Time{}, apperrors.Validation("Year must be between 2000 and 2100")
	}

	return parsed, nil
}
