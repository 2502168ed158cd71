package app

import (
	"context"
	"testing"

	"github.com/agencydesk/agencydesk/internal/config"
	"github.com/agencydesk/agencydesk/pkg/engagement"
	"github.com/agencydesk/agencydesk/pkg/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDependencies(t *testing.T) {
	t.Run("should wire every handler with default configuration", func(t *testing.T) {
		// when
		deps, err := BuildDependencies(nil, config.Defaults())

		// then
		require.NoError(t, err)
		assert.NotNil(t, deps.TimelogHandler)
		assert.NotNil(t, deps.PeriodPlanHandler)
		assert.NotNil(t, deps.DashboardHandler)
	})

	t.Run("should reject unknown anchor weekday", func(t *testing.T) {
		// given
		cfg := config.Defaults()
		cfg.Planner.AnchorWeekday = "someday"

		// when
		_, err := BuildDependencies(nil, cfg)

		// then
		assert.Error(t, err)
	})

	t.Run("should reject unknown risk rule", func(t *testing.T) {
		// given
		cfg := config.Defaults()
		cfg.Risk.Rule = "lenient"

		// when
		_, err := BuildDependencies(nil, cfg)

		// then
		assert.Error(t, err)
	})

	t.Run("should reject unknown rollover policy", func(t *testing.T) {
		// given
		cfg := config.Defaults()
		cfg.Engagement.Rollover = "forever"

		// when
		_, err := BuildDependencies(nil, cfg)

		// then
		assert.Error(t, err)
	})
}

func TestClientDirectory_ClientExists(t *testing.T) {
	repo := engagement.NewRepositoryStub()
	t.Cleanup(repo.Cleanup)
	e, err := repo.Create(context.Background(), 1, engagement.Engagement{Name: "Bakery", Tier: 2, Terms: engagement.Retainer{MonthlyHours: 20}})
	require.NoError(t, err)
	directory := clientDirectory{repo: repo}

	t.Run("should find client of the current tenant", func(t *testing.T) {
		// given
		ctx := tenant.WithIdentity(context.Background(), tenant.Identity{TenantId: 1, UserId: 10, Role: tenant.RoleMember})

		// when
		exists, err := directory.ClientExists(ctx, e.ClientId)

		// then
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("should not see client of another tenant", func(t *testing.T) {
		// given
		ctx := tenant.WithIdentity(context.Background(), tenant.Identity{TenantId: 2, UserId: 10, Role: tenant.RoleMember})

		// when
		exists, err := directory.ClientExists(ctx, e.ClientId)

		// then
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("should fail without tenant", func(t *testing.T) {
		// when
		_, err := directory.ClientExists(context.Background(), e.ClientId)

		// then
		assert.ErrorIs(t, err, tenant.ErrNoTenant)
	})
}
