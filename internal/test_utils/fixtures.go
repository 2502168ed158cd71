package test_utils

import (
	"context"
	"testing"
	"time"

	"github.com/agencydesk/agencydesk/internal/utils"
	"github.com/agencydesk/agencydesk/pkg/tenant"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// InsertOrganization creates a bare organization row and returns its id.
func InsertOrganization(t *testing.T, ctx context.Context, db *pgxpool.Pool, slug string) int {
	t.Helper()
	var id int
	err := db.QueryRow(ctx,
		`INSERT INTO organization (name, slug, plan, subscription_status) VALUES ($1, $1, 'agency', 'active') RETURNING id`,
		slug,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

// InsertRetainer creates an active retainer engagement launched on launch and returns its id.
func InsertRetainer(t *testing.T, ctx context.Context, db *pgxpool.Pool, tenantId int, name string, launch time.Time, monthlyHours float64) int {
	t.Helper()
	var id int
	err := db.QueryRow(ctx,
		`INSERT INTO engagement (tenant_id, name, status, model, launch_date, monthly_hours) VALUES ($1, $2, 'active', 'retainer', $3, $4) RETURNING id`,
		tenantId, name, launch, monthlyHours,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

// TenantContext returns a context acting as userId with role inside tenantId.
func TenantContext(tenantId int, userId int, role tenant.Role) context.Context {
	return tenant.WithIdentity(context.Background(), tenant.Identity{TenantId: tenantId, UserId: userId, Role: role})
}

// FixedClock is a clock frozen at noon UTC of the given day.
func FixedClock(year int, month time.Month, day int) *utils.MockClock {
	return &utils.MockClock{FixedNow: time.Date(year, month, day, 12, 0, 0, 0, time.UTC)}
}
