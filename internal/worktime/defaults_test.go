package worktime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nguyenvh/custodesk/internal/models"
)

func TestResolveDefaultsHeadquartersMorning(t *testing.T) {
	staff := &models.Staff{Department: "QLN"}
	monday := date(2024, time.June, 10, 9, 0)

	got := ResolveDefaults(staff, monday)
	require.Equal(t, "QLN", got.Room)
	require.Equal(t, models.ShiftMorning, got.PartsDay)
	require.Empty(t, got.Note, "headquarters room needs no escort note")
	require.Equal(t, date(2024, time.June, 10, 0, 0), got.TransactionDate)
}

func TestResolveDefaultsWeekdayAfternoonRollsToTomorrow(t *testing.T) {
	staff := &models.Staff{Department: "DVKH"}
	tuesday := date(2024, time.June, 11, 14, 30)

	got := ResolveDefaults(staff, tuesday)
	require.Equal(t, date(2024, time.June, 12, 0, 0), got.TransactionDate)
	require.Equal(t, models.ShiftAfternoon, got.PartsDay)
	require.Equal(t, "DVKH", got.Room)
	require.NotEmpty(t, got.Note)
}

func TestResolveDefaultsFridayAfternoonRollsToMonday(t *testing.T) {
	staff := &models.Staff{Department: "QLN"}
	friday := date(2024, time.June, 7, 13, 0)

	got := ResolveDefaults(staff, friday)
	require.Equal(t, date(2024, time.June, 10, 0, 0), got.TransactionDate)
}

func TestResolveDefaultsWeekendRollsToMonday(t *testing.T) {
	staff := &models.Staff{Department: "QLN"}

	saturday := date(2024, time.June, 8, 10, 0)
	require.Equal(t, date(2024, time.June, 10, 0, 0), ResolveDefaults(staff, saturday).TransactionDate)

	sunday := date(2024, time.June, 9, 10, 0)
	require.Equal(t, date(2024, time.June, 10, 0, 0), ResolveDefaults(staff, sunday).TransactionDate)
}

func TestResolveDefaultsUnknownDepartmentForcesExplicitRoom(t *testing.T) {
	staff := &models.Staff{Department: "HR"}
	monday := date(2024, time.June, 10, 9, 0)

	got := ResolveDefaults(staff, monday)
	require.Empty(t, got.Room)
	require.NotEmpty(t, got.Note)
}

func TestResolveDefaultsShiftMatrixOutsideBusinessHours(t *testing.T) {
	evening := date(2024, time.June, 10, 19, 0)

	office := ResolveDefaults(&models.Staff{Department: "QLN"}, evening)
	require.Equal(t, models.ShiftMorning, office.PartsDay, "office rooms target the next morning run")

	archive := ResolveDefaults(&models.Staff{Department: "CMT8"}, evening)
	require.Equal(t, models.ShiftAfternoon, archive.PartsDay, "archive rooms target the next afternoon run")
}

func TestResolveDefaultsDeterministic(t *testing.T) {
	staff := &models.Staff{Department: "CMT8"}
	now := date(2024, time.June, 7, 16, 45)

	first := ResolveDefaults(staff, now)
	second := ResolveDefaults(staff, now)
	require.Equal(t, first, second)
}

func TestResolveDefaultsNilStaff(t *testing.T) {
	got := ResolveDefaults(nil, date(2024, time.June, 10, 9, 0))
	require.Empty(t, got.Room)
	require.Equal(t, models.ShiftMorning, got.PartsDay)
}
