package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nguyenvh/custodesk/internal/database/testutil"
	"github.com/nguyenvh/custodesk/internal/models"
)

func createStaff(t *testing.T, db *gorm.DB, username, password, status string) *models.Staff {
	t.Helper()
	hash, err := HashPassword(password)
	require.NoError(t, err)

	staff := models.Staff{
		Username:      username,
		Password:      hash,
		Role:          models.RoleUser,
		Department:    "QLN",
		AccountStatus: status,
	}
	require.NoError(t, db.Create(&staff).Error)
	return &staff
}

func TestAuthenticateSuccess(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	createStaff(t, db, "lan.tran", "s3cret", models.StaffStatusActive)

	provider, err := NewLocalProvider(db, LocalConfig{})
	require.NoError(t, err)

	staff, err := provider.Authenticate("lan.tran", "s3cret")
	require.NoError(t, err)
	require.Equal(t, "lan.tran", staff.Username)
}

func TestAuthenticateWrongPassword(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	createStaff(t, db, "lan.tran", "s3cret", models.StaffStatusActive)

	provider, err := NewLocalProvider(db, LocalConfig{})
	require.NoError(t, err)

	_, err = provider.Authenticate("lan.tran", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	var staff models.Staff
	require.NoError(t, db.Where("username = ?", "lan.tran").Take(&staff).Error)
	require.Equal(t, 1, staff.FailedLoginAttempts)
}

func TestAuthenticateLocksAtThreshold(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	createStaff(t, db, "lan.tran", "s3cret", models.StaffStatusActive)

	provider, err := NewLocalProvider(db, LocalConfig{LockoutThreshold: 3})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = provider.Authenticate("lan.tran", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	_, err = provider.Authenticate("lan.tran", "wrong")
	require.ErrorIs(t, err, ErrAccountLocked)

	// Even the correct password is rejected once locked.
	_, err = provider.Authenticate("lan.tran", "s3cret")
	require.ErrorIs(t, err, ErrAccountLocked)
}

func TestAuthenticateResetsCounterOnSuccess(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	createStaff(t, db, "lan.tran", "s3cret", models.StaffStatusActive)

	provider, err := NewLocalProvider(db, LocalConfig{LockoutThreshold: 5})
	require.NoError(t, err)

	_, err = provider.Authenticate("lan.tran", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	staff, err := provider.Authenticate("lan.tran", "s3cret")
	require.NoError(t, err)
	require.Zero(t, staff.FailedLoginAttempts)
}

func TestAuthenticateInactiveAccount(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	createStaff(t, db, "lan.tran", "s3cret", models.StaffStatusInactive)

	provider, err := NewLocalProvider(db, LocalConfig{})
	require.NoError(t, err)

	_, err = provider.Authenticate("lan.tran", "s3cret")
	require.ErrorIs(t, err, ErrAccountDisabled)
}

func TestUnlockRestoresAccess(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	createStaff(t, db, "lan.tran", "s3cret", models.StaffStatusLocked)

	provider, err := NewLocalProvider(db, LocalConfig{})
	require.NoError(t, err)

	require.NoError(t, provider.Unlock("lan.tran"))

	staff, err := provider.Authenticate("lan.tran", "s3cret")
	require.NoError(t, err)
	require.Equal(t, models.StaffStatusActive, staff.AccountStatus)
}

func TestUnlockUnknownUser(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	provider, err := NewLocalProvider(db, LocalConfig{})
	require.NoError(t, err)

	require.ErrorIs(t, provider.Unlock("ghost"), gorm.ErrRecordNotFound)
}
