package reminders

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nguyenvh/custodesk/internal/models"
	"github.com/nguyenvh/custodesk/internal/worktime"
)

func at(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 9, 30, 0, 0, worktime.Location)
}

func TestSelectDueFiltersByDateAndSentFlag(t *testing.T) {
	input := []models.Reminder{
		{SubjectName: "past due", DueDayMonth: "15-03"},
		{SubjectName: "not yet", DueDayMonth: "20-11"},
		{SubjectName: "already sent", DueDayMonth: "15-03", IsSent: true},
	}

	due, excluded := SelectDue(input, at(2024, time.March, 20))
	require.Empty(t, excluded)
	require.Len(t, due, 1)
	require.Equal(t, "past due", due[0].SubjectName)
}

func TestSelectDueExcludesSentEvenWhenDateStillDue(t *testing.T) {
	input := []models.Reminder{
		{SubjectName: "acknowledged", DueDayMonth: "01-01", IsSent: true},
	}

	due, excluded := SelectDue(input, at(2024, time.June, 1))
	require.Empty(t, due)
	require.Empty(t, excluded)
}

func TestSelectDueReportsMalformedEntries(t *testing.T) {
	input := []models.Reminder{
		{SubjectName: "bad month", DueDayMonth: "31-13"},
		{SubjectName: "fine", DueDayMonth: "01-01"},
	}

	due, excluded := SelectDue(input, at(2024, time.June, 1))
	require.Len(t, due, 1)
	require.Equal(t, "fine", due[0].SubjectName)
	require.Len(t, excluded, 1)
	require.Equal(t, "bad month", excluded[0].Reminder.SubjectName)
	require.Contains(t, excluded[0].Reason, "31-13")
}

func TestSelectDuePreservesInputOrder(t *testing.T) {
	input := []models.Reminder{
		{SubjectName: "c", DueDayMonth: "03-01"},
		{SubjectName: "a", DueDayMonth: "01-01"},
		{SubjectName: "b", DueDayMonth: "02-01"},
	}

	due, _ := SelectDue(input, at(2024, time.June, 1))
	require.Len(t, due, 3)
	require.Equal(t, "c", due[0].SubjectName)
	require.Equal(t, "a", due[1].SubjectName)
	require.Equal(t, "b", due[2].SubjectName)
}
