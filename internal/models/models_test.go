package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReminderPartiesRoundTrip(t *testing.T) {
	r := Reminder{SubjectName: "Kiểm kê kho CRC", DueDayMonth: "15-03"}

	parties := []AssignedParty{
		{Name: "Trưởng phòng QLN", Email: "qln@bank.example"},
		{Name: "Thủ kho"},
	}
	require.NoError(t, r.SetParties(parties))

	got, err := r.Parties()
	require.NoError(t, err)
	require.Equal(t, parties, got)
}

func TestReminderPartiesEmpty(t *testing.T) {
	r := Reminder{}
	got, err := r.Parties()
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestStaffStatusHelpers(t *testing.T) {
	s := Staff{Role: RoleAdmin, AccountStatus: StaffStatusActive}
	require.True(t, s.IsActive())
	require.True(t, s.IsAdmin())

	s.AccountStatus = StaffStatusLocked
	require.False(t, s.IsActive())
}
