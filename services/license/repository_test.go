package license

import (
	"context"
	"testing"
	"time"

	"heartbeat-controlplane/services/team"
	"heartbeat-controlplane/services/testutil"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

const (
	testTeamID    = "2f9c6f0e-3d4b-4a7e-9c1d-5b8a7e6f4d01"
	testLicenseID = "8d1e2f3a-4b5c-4d6e-8f7a-9b0c1d2e3f04"
)

func strPtr(s string) *string { return &s }

func newTestRepo(t *testing.T) (Repository, *gorm.DB) {
	t.Helper()
	models := append(team.Models(), Models()...)
	db := testutil.NewTestDB(t, models...)

	require.NoError(t, db.Create(&team.Team{ID: testTeamID, Name: "acme"}).Error)
	return NewRepository(db), db
}

func TestFindByLookup(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()

	lic := &License{
		ID:               testLicenseID,
		TeamID:           testTeamID,
		LicenseKeyLookup: "lookup-1",
		ExpirationType:   ExpirationNone,
		Customers:        []Customer{{ID: "c6a1b2c3-d4e5-4f60-8a7b-9c0d1e2f3a11", TeamID: testTeamID}},
		Products:         []Product{{ID: "p6a1b2c3-d4e5-4f60-8a7b-9c0d1e2f3a12", TeamID: testTeamID}},
	}
	require.NoError(t, repo.Create(ctx, lic))

	now := time.Now().UTC()
	require.NoError(t, repo.CreateRequestLog(ctx, &RequestLog{ID: "1", TeamID: testTeamID, LicenseID: testLicenseID, IPAddress: strPtr("1.1.1.1"), Status: StatusValid, CreatedAt: now}))
	require.NoError(t, repo.CreateRequestLog(ctx, &RequestLog{ID: "2", TeamID: testTeamID, LicenseID: testLicenseID, IPAddress: strPtr("2.2.2.2"), Status: StatusIPLimitReached, CreatedAt: now}))
	require.NoError(t, repo.CreateRequestLog(ctx, &RequestLog{ID: "3", TeamID: testTeamID, LicenseID: testLicenseID, IPAddress: strPtr("3.3.3.3"), Status: StatusValid, CreatedAt: now.AddDate(-1, 0, 0)}))

	found, err := repo.FindByLookup(ctx, testTeamID, "lookup-1", now.Add(-180*24*time.Hour))
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Len(t, found.Customers, 1)
	require.Len(t, found.Products, 1)
	require.Len(t, found.RequestLogs, 1)
	require.Equal(t, "1.1.1.1", *found.RequestLogs[0].IPAddress)

	missing, err := repo.FindByLookup(ctx, testTeamID, "other", now)
	require.NoError(t, err)
	require.Nil(t, missing)

	require.NoError(t, db.Delete(&team.Team{ID: testTeamID}).Error)
	hidden, err := repo.FindByLookup(ctx, testTeamID, "lookup-1", now)
	require.NoError(t, err)
	require.Nil(t, hidden)
}

func TestActivateExpirationOnce(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()

	days := 30
	require.NoError(t, repo.Create(ctx, &License{ID: testLicenseID, TeamID: testTeamID, LicenseKeyLookup: "l", ExpirationType: ExpirationDuration, ExpirationDays: &days}))

	first := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	ok, err := repo.ActivateExpiration(ctx, testLicenseID, first)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.ActivateExpiration(ctx, testLicenseID, first.Add(time.Hour))
	require.NoError(t, err)
	require.False(t, ok)

	var stored License
	require.NoError(t, db.First(&stored, "id = ?", testLicenseID).Error)
	require.NotNil(t, stored.ExpirationDate)
	require.True(t, first.Equal(*stored.ExpirationDate))
}

func TestUpsertHeartbeatIsIdempotent(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &License{ID: testLicenseID, TeamID: testTeamID, LicenseKeyLookup: "l", ExpirationType: ExpirationNone}))

	t0 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpsertHeartbeat(ctx, &Heartbeat{ID: "h1", TeamID: testTeamID, LicenseID: testLicenseID, DeviceIdentifier: "dev-1", LastBeatAt: t0, IPAddress: strPtr("1.1.1.1")}))
	require.NoError(t, repo.UpsertHeartbeat(ctx, &Heartbeat{ID: "h2", TeamID: testTeamID, LicenseID: testLicenseID, DeviceIdentifier: "dev-1", LastBeatAt: t0.Add(time.Minute), IPAddress: strPtr("2.2.2.2")}))

	var count int64
	require.NoError(t, db.Model(&Heartbeat{}).Where("license_id = ?", testLicenseID).Count(&count).Error)
	require.EqualValues(t, 1, count)

	heartbeats, err := repo.ListHeartbeats(ctx, testLicenseID)
	require.NoError(t, err)
	require.Len(t, heartbeats, 1)
	require.Equal(t, "h1", heartbeats[0].ID)
	require.True(t, t0.Add(time.Minute).Equal(heartbeats[0].LastBeatAt))
	require.Equal(t, "2.2.2.2", *heartbeats[0].IPAddress)
}

func TestTransactionRollsBack(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &License{ID: testLicenseID, TeamID: testTeamID, LicenseKeyLookup: "l", ExpirationType: ExpirationNone}))

	err := repo.Transaction(ctx, func(tx Repository) error {
		require.NoError(t, tx.LockLicense(ctx, testLicenseID))
		require.NoError(t, tx.UpsertHeartbeat(ctx, &Heartbeat{ID: "h1", TeamID: testTeamID, LicenseID: testLicenseID, DeviceIdentifier: "dev-1", LastBeatAt: time.Now()}))
		return gorm.ErrInvalidTransaction
	})
	require.ErrorIs(t, err, gorm.ErrInvalidTransaction)

	heartbeats, err := repo.ListHeartbeats(ctx, testLicenseID)
	require.NoError(t, err)
	require.Empty(t, heartbeats)
}

func TestPurgeRequestLogs(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, repo.CreateRequestLog(ctx, &RequestLog{ID: "old", TeamID: testTeamID, LicenseID: testLicenseID, Status: StatusValid, CreatedAt: now.AddDate(-1, 0, 0)}))
	require.NoError(t, repo.CreateRequestLog(ctx, &RequestLog{ID: "new", TeamID: testTeamID, LicenseID: testLicenseID, Status: StatusValid, CreatedAt: now}))
	// redelivery of the same task is a no-op
	require.NoError(t, repo.CreateRequestLog(ctx, &RequestLog{ID: "new", TeamID: testTeamID, LicenseID: testLicenseID, Status: StatusValid, CreatedAt: now}))

	n, err := repo.PurgeRequestLogs(ctx, now.Add(-180*24*time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}
