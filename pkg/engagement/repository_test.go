package engagement

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/agencydesk/agencydesk/internal/test_utils"
	"github.com/agencydesk/agencydesk/internal/utils"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDB *test_utils.TestDB

func TestMain(m *testing.M) {
	test_utils.RunWithDB(m, &testDB)
}

func setupTestRepository(t *testing.T) (context.Context, *RepositoryImpl, *pgxpool.Pool, int) {
	ctx := context.Background()
	db := testDB.Pool(t)
	tenantId := test_utils.InsertOrganization(t, ctx, db, "acme")
	return ctx, NewRepository(db), db, tenantId
}

var dentistCampaign = Campaign{
	StartDate:            utils.Date(2025, time.January, 15),
	EndDate:              utils.Date(2025, time.April, 15),
	TotalHours:           60,
	MonthlyContentQuota:  2,
	MonthlyBacklinkQuota: 1,
}

func TestRepositoryImpl_SaveTerms(t *testing.T) {
	t.Run("should switch campaign to retainer and back without leftovers", func(t *testing.T) {
		// given
		ctx, repo, db, tenantId := setupTestRepository(t)
		launch := utils.Date(2025, time.January, 10)
		created, err := repo.Create(ctx, tenantId, Engagement{
			Name:       "Dentist",
			Status:     StatusActive,
			Tier:       1,
			LaunchDate: &launch,
			Terms:      dentistCampaign,
		})
		require.NoError(t, err)
		retainer := Retainer{
			MonthlyHours: 20,
			RecurringDeliverables: []RecurringDeliverable{
				{Type: DeliverableListingPost, Count: 4},
				{Type: DeliverableContent, Count: 2},
				{Type: DeliverableBacklink, Count: 1},
			},
			Rollover: RolloverCarryPreviousMonth,
		}

		// when
		require.NoError(t, repo.SaveTerms(ctx, tenantId, created.ClientId, retainer))
		asRetainer, err := repo.Get(ctx, tenantId, created.ClientId)
		require.NoError(t, err)

		// then
		assert.Equal(t, retainer, asRetainer.Terms)
		var startDate, endDate *time.Time
		var totalHours *float64
		var contentQuota, backlinkQuota *int
		err = db.QueryRow(ctx, `SELECT start_date, end_date, total_hours, monthly_content_quota, monthly_backlink_quota
			FROM engagement WHERE id = $1`, created.ClientId).Scan(&startDate, &endDate, &totalHours, &contentQuota, &backlinkQuota)
		require.NoError(t, err)
		assert.Nil(t, startDate)
		assert.Nil(t, endDate)
		assert.Nil(t, totalHours)
		assert.Nil(t, contentQuota)
		assert.Nil(t, backlinkQuota)

		// when
		require.NoError(t, repo.SaveTerms(ctx, tenantId, created.ClientId, dentistCampaign))
		asCampaign, err := repo.Get(ctx, tenantId, created.ClientId)
		require.NoError(t, err)

		// then
		assert.Equal(t, dentistCampaign, asCampaign.Terms)
		assert.Equal(t, launch, *asCampaign.LaunchDate)
		var monthlyHours *float64
		var rollover string
		var recurringRows int
		err = db.QueryRow(ctx, `SELECT monthly_hours, rollover FROM engagement WHERE id = $1`, created.ClientId).Scan(&monthlyHours, &rollover)
		require.NoError(t, err)
		err = db.QueryRow(ctx, `SELECT count(*) FROM engagement_recurring_deliverable WHERE engagement_id = $1`, created.ClientId).Scan(&recurringRows)
		require.NoError(t, err)
		assert.Nil(t, monthlyHours)
		assert.Equal(t, string(RolloverNone), rollover)
		assert.Zero(t, recurringRows)
	})

	t.Run("should keep recurring deliverables in the order they were given", func(t *testing.T) {
		// given
		ctx, repo, _, tenantId := setupTestRepository(t)
		created, err := repo.Create(ctx, tenantId, Engagement{Name: "Bakery", Status: StatusActive, Tier: 2, Terms: Retainer{
			MonthlyHours:          10,
			RecurringDeliverables: []RecurringDeliverable{{Type: DeliverableContent, Count: 1}},
		}})
		require.NoError(t, err)
		reordered := Retainer{
			MonthlyHours: 12,
			RecurringDeliverables: []RecurringDeliverable{
				{Type: DeliverableBacklink, Count: 3},
				{Type: DeliverableContent, Count: 0},
			},
			Rollover: RolloverNone,
		}

		// when
		err = repo.SaveTerms(ctx, tenantId, created.ClientId, reordered)

		// then
		require.NoError(t, err)
		loaded, err := repo.Get(ctx, tenantId, created.ClientId)
		require.NoError(t, err)
		assert.Equal(t, reordered, loaded.Terms)
	})

	t.Run("should store the default rollover as none", func(t *testing.T) {
		ctx, repo, _, tenantId := setupTestRepository(t)

		created, err := repo.Create(ctx, tenantId, Engagement{Name: "Gym", Status: StatusOnboarding, Tier: 3, Terms: Retainer{MonthlyHours: 8}})
		require.NoError(t, err)

		loaded, err := repo.Get(ctx, tenantId, created.ClientId)
		require.NoError(t, err)
		assert.Equal(t, RolloverNone, loaded.Terms.(Retainer).Rollover)
	})

	t.Run("should not touch engagements of another tenant", func(t *testing.T) {
		// given
		ctx, repo, db, tenantId := setupTestRepository(t)
		otherTenant := test_utils.InsertOrganization(t, ctx, db, "other")
		created, err := repo.Create(ctx, tenantId, Engagement{Name: "Dentist", Status: StatusActive, Tier: 1, Terms: dentistCampaign})
		require.NoError(t, err)

		// when
		err = repo.SaveTerms(ctx, otherTenant, created.ClientId, Retainer{MonthlyHours: 1})

		// then
		assert.ErrorIs(t, err, ErrEngagementNotFound)
		loaded, err := repo.Get(ctx, tenantId, created.ClientId)
		require.NoError(t, err)
		assert.Equal(t, dentistCampaign, loaded.Terms)
	})
}

func TestRepositoryImpl_List(t *testing.T) {
	// given
	ctx, repo, _, tenantId := setupTestRepository(t)
	for _, name := range []string{"Plumber", "Bakery", "Archived shop"} {
		_, err := repo.Create(ctx, tenantId, Engagement{Name: name, Status: StatusActive, Tier: 2, Terms: Retainer{MonthlyHours: 5}})
		require.NoError(t, err)
	}
	list, err := repo.List(ctx, tenantId)
	require.NoError(t, err)
	require.NoError(t, repo.UpdateStatus(ctx, tenantId, list[0].ClientId, StatusArchived))

	// when
	count, err := repo.Count(ctx, tenantId)

	// then
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, []string{"Archived shop", "Bakery", "Plumber"}, []string{list[0].Name, list[1].Name, list[2].Name})
	assert.ErrorIs(t, repo.UpdateStatus(ctx, tenantId, 9999, StatusPaused), ErrEngagementNotFound)
}

func TestRepositoryImpl_IncrementUsage(t *testing.T) {
	t.Run("should sum concurrent increments exactly", func(t *testing.T) {
		// given
		ctx, repo, _, tenantId := setupTestRepository(t)
		created, err := repo.Create(ctx, tenantId, Engagement{Name: "Bakery", Status: StatusActive, Tier: 2, Terms: Retainer{MonthlyHours: 20}})
		require.NoError(t, err)
		window := utils.Date(2025, time.March, 1)
		const writers = 20

		// when
		var wg sync.WaitGroup
		errs := make(chan error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- repo.IncrementUsage(ctx, tenantId, created.ClientId, window, 0.25)
			}()
		}
		wg.Wait()
		close(errs)

		// then
		for err := range errs {
			require.NoError(t, err)
		}
		hours, err := repo.GetUsage(ctx, tenantId, created.ClientId, window)
		require.NoError(t, err)
		assert.Equal(t, 5.0, hours)
	})

	t.Run("should keep windows apart and let a rebuild overwrite", func(t *testing.T) {
		// given
		ctx, repo, _, tenantId := setupTestRepository(t)
		created, err := repo.Create(ctx, tenantId, Engagement{Name: "Bakery", Status: StatusActive, Tier: 2, Terms: Retainer{MonthlyHours: 20}})
		require.NoError(t, err)
		march := utils.Date(2025, time.March, 1)
		april := utils.Date(2025, time.April, 1)
		require.NoError(t, repo.IncrementUsage(ctx, tenantId, created.ClientId, march, 3))
		require.NoError(t, repo.IncrementUsage(ctx, tenantId, created.ClientId, april, 1.5))

		// when
		err = repo.SetUsage(ctx, tenantId, created.ClientId, march, 2)

		// then
		require.NoError(t, err)
		marchHours, _ := repo.GetUsage(ctx, tenantId, created.ClientId, march)
		aprilHours, _ := repo.GetUsage(ctx, tenantId, created.ClientId, april)
		mayHours, err := repo.GetUsage(ctx, tenantId, created.ClientId, utils.Date(2025, time.May, 1))
		require.NoError(t, err)
		assert.Equal(t, 2.0, marchHours)
		assert.Equal(t, 1.5, aprilHours)
		assert.Zero(t, mayHours)
	})
}
