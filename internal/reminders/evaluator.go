// Package reminders implements the due-reminder pipeline: selecting due
// entries, composing per-channel content, and dispatching across email,
// push, and in-app channels with at-most-once send marking.
package reminders

import (
	"time"

	"github.com/nguyenvh/custodesk/internal/models"
	"github.com/nguyenvh/custodesk/internal/worktime"
)

// Excluded describes a reminder dropped from a due-selection batch because
// its stored due date could not be parsed.
type Excluded struct {
	Reminder models.Reminder
	Reason   string
}

// SelectDue filters reminders to those due or overdue at now and not yet
// marked sent. Input order is preserved. Malformed due dates never fail the
// batch; they are returned for the caller to report.
func SelectDue(reminders []models.Reminder, now time.Time) ([]models.Reminder, []Excluded) {
	var due []models.Reminder
	var excluded []Excluded

	for _, r := range reminders {
		if r.IsSent {
			continue
		}

		dm, err := worktime.ParseDayMonth(r.DueDayMonth)
		if err != nil {
			excluded = append(excluded, Excluded{Reminder: r, Reason: err.Error()})
			continue
		}

		if worktime.IsDueOrOverdue(dm, now) {
			due = append(due, r)
		}
	}

	return due, excluded
}
