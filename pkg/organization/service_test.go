package organization

import (
	"context"
	"testing"

	"github.com/agencydesk/agencydesk/internal/apperror"
	"github.com/agencydesk/agencydesk/pkg/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var repoStub = NewRepositoryStub()

func setup(t *testing.T, plan Plan) (*ServiceImpl, context.Context) {
	t.Cleanup(repoStub.Cleanup)
	org, err := repoStub.Create(context.Background(), Organization{
		Name:               "Acme SEO",
		Slug:               "acme",
		Plan:               plan,
		SubscriptionStatus: SubscriptionActive,
	}, 10)
	require.NoError(t, err)
	ctx := tenant.WithIdentity(context.Background(), tenant.Identity{TenantId: org.Id, UserId: 10, Role: tenant.RoleOwner})
	return NewService(repoStub), ctx
}

func as(ctx context.Context, userId int, role tenant.Role) context.Context {
	identity, _ := tenant.CurrentIdentity(ctx)
	return tenant.WithIdentity(context.Background(), tenant.Identity{TenantId: identity.TenantId, UserId: userId, Role: role})
}

func TestCanAddClient(t *testing.T) {
	tests := []struct {
		plan  Plan
		count int
		want  bool
	}{
		{PlanStarter, 2, true},
		{PlanStarter, 3, false},
		{PlanPro, 14, true},
		{PlanAgency, 50, false},
		{PlanEnterprise, 9999, true},
		{Plan("unknown"), 3, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.plan), func(t *testing.T) {
			assert.Equal(t, tt.want, CanAddClient(tt.plan, tt.count))
		})
	}
}

func TestServiceImpl_TimeTrackingEnabled(t *testing.T) {
	t.Run("should be disabled on starter plan", func(t *testing.T) {
		service, ctx := setup(t, PlanStarter)

		enabled, err := service.TimeTrackingEnabled(ctx)

		require.NoError(t, err)
		assert.False(t, enabled)
	})

	t.Run("should be disabled after subscription is canceled", func(t *testing.T) {
		// given
		service, ctx := setup(t, PlanPro)
		_, err := service.SetSubscriptionStatus(ctx, SubscriptionCanceled)
		require.NoError(t, err)

		// when
		enabled, err := service.TimeTrackingEnabled(ctx)

		// then
		require.NoError(t, err)
		assert.False(t, enabled)
	})
}

func TestServiceImpl_SetSubscriptionStatus(t *testing.T) {
	t.Run("should reject unknown status", func(t *testing.T) {
		service, ctx := setup(t, PlanPro)

		_, err := service.SetSubscriptionStatus(ctx, SubscriptionStatus("frozen"))

		assert.ErrorIs(t, err, apperror.ErrValidation)
	})

	t.Run("should fail without tenant", func(t *testing.T) {
		service, _ := setup(t, PlanPro)

		_, err := service.SetSubscriptionStatus(context.Background(), SubscriptionActive)

		assert.ErrorIs(t, err, tenant.ErrNoTenant)
	})

	for _, role := range []tenant.Role{tenant.RoleViewer, tenant.RoleMember, tenant.RoleAdmin} {
		t.Run("should reject "+string(role)+" changing the subscription", func(t *testing.T) {
			// given
			service, ownerCtx := setup(t, PlanPro)
			ctx := as(ownerCtx, 20, role)

			// when
			_, err := service.SetSubscriptionStatus(ctx, SubscriptionCanceled)

			// then
			assert.ErrorIs(t, err, apperror.ErrForbidden)
			assert.ErrorIs(t, err, tenant.ErrNotOwner)
			org, err := service.Current(ownerCtx)
			require.NoError(t, err)
			assert.Equal(t, SubscriptionActive, org.SubscriptionStatus)
			enabled, err := service.TimeTrackingEnabled(ownerCtx)
			require.NoError(t, err)
			assert.True(t, enabled)
		})
	}
}

func TestServiceImpl_Create(t *testing.T) {
	t.Run("should set up a trialing organization owned by the caller", func(t *testing.T) {
		// given
		t.Cleanup(repoStub.Cleanup)
		service := NewService(repoStub)

		// when
		org, err := service.Create(context.Background(), Organization{Name: "Bright Links", Slug: "bright-links", SubscriptionStatus: SubscriptionCanceled}, 42)

		// then
		require.NoError(t, err)
		assert.Equal(t, PlanStarter, org.Plan)
		assert.Equal(t, SubscriptionTrialing, org.SubscriptionStatus)
		member, err := service.GetMember(context.Background(), org.Id, 42)
		require.NoError(t, err)
		assert.Equal(t, tenant.RoleOwner, member.Role)
	})

	t.Run("should reject a slug that is already taken", func(t *testing.T) {
		// given
		service, _ := setup(t, PlanPro)

		// when
		_, err := service.Create(context.Background(), Organization{Name: "Other", Slug: "acme"}, 42)

		// then
		assert.ErrorIs(t, err, ErrSlugTaken)
		assert.ErrorIs(t, err, apperror.ErrValidation)
	})

	t.Run("should reject invalid organizations", func(t *testing.T) {
		t.Cleanup(repoStub.Cleanup)
		service := NewService(repoStub)

		tests := []struct {
			name  string
			org   Organization
			owner int
		}{
			{"missing name", Organization{Slug: "x"}, 1},
			{"uppercase slug", Organization{Name: "X", Slug: "Acme"}, 1},
			{"unknown plan", Organization{Name: "X", Slug: "x", Plan: Plan("gold")}, 1},
			{"no owner", Organization{Name: "X", Slug: "x"}, 0},
		}
		for _, tt := range tests {
			_, err := service.Create(context.Background(), tt.org, tt.owner)
			assert.ErrorIs(t, err, apperror.ErrValidation, tt.name)
		}
	})
}

func TestServiceImpl_AddMember(t *testing.T) {
	t.Run("should add a member within the plan limit", func(t *testing.T) {
		// given
		service, ctx := setup(t, PlanPro)
		tenantId, _ := tenant.CurrentId(ctx)

		// when
		member, err := service.AddMember(ctx, 20, tenant.RoleMember)

		// then
		require.NoError(t, err)
		assert.Equal(t, Member{TenantId: tenantId, UserId: 20, Role: tenant.RoleMember}, member)
		stored, err := service.GetMember(ctx, tenantId, 20)
		require.NoError(t, err)
		assert.Equal(t, tenant.RoleMember, stored.Role)
	})

	t.Run("should stop at the plan member limit", func(t *testing.T) {
		// given
		service, ctx := setup(t, PlanPro)
		for userId := 20; userId < 24; userId++ {
			_, err := service.AddMember(ctx, userId, tenant.RoleMember)
			require.NoError(t, err)
		}

		// when
		_, err := service.AddMember(ctx, 99, tenant.RoleViewer)

		// then
		assert.ErrorIs(t, err, ErrMemberLimitReached)
		assert.ErrorIs(t, err, apperror.ErrValidation)
	})

	t.Run("should let a full organization change an existing role", func(t *testing.T) {
		// given
		service, ctx := setup(t, PlanPro)
		for userId := 20; userId < 24; userId++ {
			_, err := service.AddMember(ctx, userId, tenant.RoleMember)
			require.NoError(t, err)
		}

		// when
		member, err := service.AddMember(ctx, 21, tenant.RoleAdmin)

		// then
		require.NoError(t, err)
		assert.Equal(t, tenant.RoleAdmin, member.Role)
	})

	t.Run("should not allow a second member on starter", func(t *testing.T) {
		service, ctx := setup(t, PlanStarter)

		_, err := service.AddMember(ctx, 20, tenant.RoleViewer)

		assert.ErrorIs(t, err, ErrMemberLimitReached)
	})

	t.Run("should let admins add members", func(t *testing.T) {
		// given
		service, ownerCtx := setup(t, PlanAgency)
		_, err := service.AddMember(ownerCtx, 20, tenant.RoleAdmin)
		require.NoError(t, err)

		// when
		_, err = service.AddMember(as(ownerCtx, 20, tenant.RoleAdmin), 30, tenant.RoleMember)

		// then
		require.NoError(t, err)
	})

	for _, role := range []tenant.Role{tenant.RoleViewer, tenant.RoleMember} {
		t.Run("should reject "+string(role)+" adding members", func(t *testing.T) {
			// given
			service, ownerCtx := setup(t, PlanAgency)

			// when
			_, err := service.AddMember(as(ownerCtx, 20, role), 30, tenant.RoleAdmin)

			// then
			assert.ErrorIs(t, err, apperror.ErrForbidden)
			tenantId, _ := tenant.CurrentId(ownerCtx)
			_, err = service.GetMember(ownerCtx, tenantId, 30)
			assert.ErrorIs(t, err, ErrMemberNotFound)
		})
	}

	t.Run("should not hand out or take away ownership", func(t *testing.T) {
		service, ctx := setup(t, PlanAgency)

		_, err := service.AddMember(ctx, 20, tenant.RoleOwner)
		assert.ErrorIs(t, err, apperror.ErrValidation)

		_, err = service.AddMember(ctx, 10, tenant.RoleViewer)
		assert.ErrorIs(t, err, apperror.ErrValidation)
	})
}

func TestServiceImpl_GetMember(t *testing.T) {
	service, ctx := setup(t, PlanPro)
	tenantId, _ := tenant.CurrentId(ctx)

	member, err := service.GetMember(ctx, tenantId, 10)
	require.NoError(t, err)
	assert.Equal(t, tenant.RoleOwner, member.Role)

	_, err = service.GetMember(ctx, tenantId, 99)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestServiceImpl_Usable(t *testing.T) {
	t.Run("should skip organizations with a canceled subscription", func(t *testing.T) {
		// given
		service, ctx := setup(t, PlanPro)
		_, err := repoStub.Create(ctx, Organization{Name: "Gone", Slug: "gone", Plan: PlanPro, SubscriptionStatus: SubscriptionCanceled}, 11)
		require.NoError(t, err)
		pastDue, err := repoStub.Create(ctx, Organization{Name: "Late", Slug: "late", Plan: PlanPro, SubscriptionStatus: SubscriptionPastDue}, 12)
		require.NoError(t, err)

		// when
		orgs, err := service.Usable(ctx)

		// then
		require.NoError(t, err)
		require.Len(t, orgs, 2)
		assert.Equal(t, "acme", orgs[0].Slug)
		assert.Equal(t, pastDue.Id, orgs[1].Id)
	})
}
