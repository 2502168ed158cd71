package deliverable

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/agencydesk/agencydesk/internal/apperror"
	"github.com/agencydesk/agencydesk/internal/event_bus"
	"github.com/agencydesk/agencydesk/internal/utils"
	"github.com/agencydesk/agencydesk/pkg/engagement"
	"github.com/agencydesk/agencydesk/pkg/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tenantId = 1

var ctx = tenant.WithIdentity(context.Background(), tenant.Identity{TenantId: tenantId, UserId: 10, Role: tenant.RoleMember})
var adminCtx = tenant.WithIdentity(context.Background(), tenant.Identity{TenantId: tenantId, UserId: 11, Role: tenant.RoleAdmin})
var viewerCtx = tenant.WithIdentity(context.Background(), tenant.Identity{TenantId: tenantId, UserId: 12, Role: tenant.RoleViewer})

type engagementsStub map[int]engagement.Engagement

func (e engagementsStub) Get(ctx context.Context, clientId int) (engagement.Engagement, error) {
	found, ok := e[clientId]
	if !ok {
		return engagement.Engagement{}, engagement.ErrEngagementNotFound
	}
	return found, nil
}

func (e engagementsStub) List(ctx context.Context) ([]engagement.Engagement, error) {
	var result []engagement.Engagement
	for _, found := range e {
		result = append(result, found)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ClientId < result[j].ClientId })
	return result, nil
}

var launch = utils.Date(2025, 2, 1)

var engagements = engagementsStub{
	1: {ClientId: 1, Name: "Bakery", Status: engagement.StatusActive, LaunchDate: &launch, Terms: engagement.Retainer{
		MonthlyHours: 20,
		RecurringDeliverables: []engagement.RecurringDeliverable{
			{Type: engagement.DeliverableContent, Count: 2},
			{Type: engagement.DeliverableListingPost, Count: 1},
		},
	}},
	2: {ClientId: 2, Name: "Dentist", Status: engagement.StatusActive, Terms: engagement.Campaign{
		StartDate:            utils.Date(2025, 1, 15),
		EndDate:              utils.Date(2025, 3, 10),
		TotalHours:           60,
		MonthlyContentQuota:  2,
		MonthlyBacklinkQuota: 1,
	}},
	3: {ClientId: 3, Name: "Paused gym", Status: engagement.StatusPaused, Terms: engagement.Retainer{
		RecurringDeliverables: []engagement.RecurringDeliverable{{Type: engagement.DeliverableContent, Count: 4}},
	}},
}

type fixture struct {
	service *ServiceImpl
	repo    *RepositoryStub
	clock   *utils.MockClock
	events  *[]event_bus.DeliverableStatusUpdated
}

func setup(t *testing.T) fixture {
	repo := NewRepositoryStub()
	bus := event_bus.NewEventBus()
	events := &[]event_bus.DeliverableStatusUpdated{}
	event_bus.SubscribeTyped(bus, event_bus.DeliverableStatusChanged, func(e event_bus.EventT[event_bus.DeliverableStatusUpdated]) error {
		*events = append(*events, e.Data)
		return nil
	})
	clock := &utils.MockClock{FixedNow: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
	t.Cleanup(repo.Cleanup)
	return fixture{
		service: NewService(repo, engagements, bus, clock),
		repo:    repo,
		clock:   clock,
		events:  events,
	}
}

func (f fixture) create(t *testing.T) Deliverable {
	d, err := f.service.Create(ctx, Deliverable{
		ClientId: 1,
		Type:     engagement.DeliverableContent,
		Title:    "Spring menu blog post",
		DueDate:  utils.Date(2025, 3, 28),
	})
	require.NoError(t, err)
	return d
}

func TestServiceImpl_Create(t *testing.T) {
	t.Run("should create pending deliverable", func(t *testing.T) {
		f := setup(t)

		d := f.create(t)

		assert.Equal(t, StatusPending, d.Status)
		assert.Nil(t, d.CompletedDate)
		assert.Equal(t, f.clock.Now(), d.StatusChangedAt)
	})

	t.Run("should reject unknown client", func(t *testing.T) {
		f := setup(t)

		_, err := f.service.Create(ctx, Deliverable{ClientId: 42, Type: engagement.DeliverableOther, Title: "x", DueDate: utils.Date(2025, 3, 1)})

		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})

	t.Run("should reject unsupported type and bad link", func(t *testing.T) {
		f := setup(t)
		link := "not a link"

		_, typeErr := f.service.Create(ctx, Deliverable{ClientId: 1, Type: "video", Title: "x", DueDate: utils.Date(2025, 3, 1)})
		_, linkErr := f.service.Create(ctx, Deliverable{ClientId: 1, Type: engagement.DeliverableBacklink, Title: "x", DueDate: utils.Date(2025, 3, 1), ExternalLink: &link})

		assert.ErrorIs(t, typeErr, apperror.ErrValidation)
		assert.ErrorIs(t, linkErr, apperror.ErrValidation)
	})
}

func TestServiceImpl_Advance(t *testing.T) {
	t.Run("should walk the lifecycle including a revision", func(t *testing.T) {
		// given
		f := setup(t)
		d := f.create(t)
		steps := []Status{StatusInProgress, StatusReview, StatusInProgress, StatusReview, StatusApproved, StatusPublished}

		// when
		var err error
		for _, step := range steps {
			d, err = f.service.Advance(ctx, d.Id, step)
			require.NoError(t, err)
		}

		// then
		assert.Equal(t, StatusPublished, d.Status)
		require.NotNil(t, d.CompletedDate)
		assert.Equal(t, utils.Date(2025, 3, 10), *d.CompletedDate)
		require.Len(t, *f.events, len(steps))
		assert.Equal(t, "approved", (*f.events)[5].From)
		assert.Equal(t, "published", (*f.events)[5].To)
	})

	t.Run("should refuse skipping states", func(t *testing.T) {
		// given
		f := setup(t)
		d := f.create(t)

		// when
		_, err := f.service.Advance(ctx, d.Id, StatusPublished)

		// then
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.ErrorIs(t, err, apperror.ErrValidation)
		stored, _ := f.service.Get(ctx, d.Id)
		assert.Equal(t, StatusPending, stored.Status)
		assert.Empty(t, *f.events)
	})

	t.Run("should report a conflict when the caller saw a stale status", func(t *testing.T) {
		// given
		f := setup(t)
		d := f.create(t)
		_, err := f.service.Advance(ctx, d.Id, StatusInProgress)
		require.NoError(t, err)

		// when
		_, err = f.service.AdvanceFrom(ctx, d.Id, StatusPending, StatusInProgress)

		// then
		assert.ErrorIs(t, err, apperror.ErrConcurrencyConflict)
	})

	t.Run("should return not found for other tenant", func(t *testing.T) {
		f := setup(t)
		d := f.create(t)
		otherTenant := tenant.WithIdentity(context.Background(), tenant.Identity{TenantId: 2, UserId: 20, Role: tenant.RoleOwner})

		_, err := f.service.Advance(otherTenant, d.Id, StatusInProgress)

		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})
}

func TestRepositoryStub_SaveStatus(t *testing.T) {
	t.Run("should let only one of two racing transitions win", func(t *testing.T) {
		// given
		f := setup(t)
		d := f.create(t)

		// when
		first := f.repo.SaveStatus(ctx, tenantId, d.Id, StatusInProgress, StatusPending, f.clock.Now())
		second := f.repo.SaveStatus(ctx, tenantId, d.Id, StatusInProgress, StatusPending, f.clock.Now())

		// then
		assert.NoError(t, first)
		assert.ErrorIs(t, second, ErrStatusChanged)
	})
}

func TestServiceImpl_PendingApprovals(t *testing.T) {
	f := setup(t)
	d := f.create(t)
	_, _ = f.service.Advance(ctx, d.Id, StatusInProgress)
	_, err := f.service.Advance(ctx, d.Id, StatusReview)
	require.NoError(t, err)
	f.clock.SetNow(f.clock.Now().AddDate(0, 0, 8))

	pending, err := f.service.PendingApprovals(ctx, 1)

	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 8, pending[0].AgeDays)
}

func TestServiceImpl_MaterializeRecurring(t *testing.T) {
	t.Run("should create recurring deliverables once per month", func(t *testing.T) {
		// given
		f := setup(t)

		// when
		first, err := f.service.MaterializeRecurring(adminCtx, utils.Date(2025, 3, 1))
		require.NoError(t, err)
		again, err := f.service.MaterializeRecurring(adminCtx, utils.Date(2025, 3, 20))
		require.NoError(t, err)

		// then
		assert.Equal(t, 3, first)
		assert.Equal(t, 0, again)
		deliverables, _ := f.service.ListForClient(ctx, 1)
		require.Len(t, deliverables, 3)
		assert.Equal(t, "Content 1 of 2 (Mar 2025)", deliverables[0].Title)
		assert.Equal(t, utils.Date(2025, 3, 31), deliverables[0].DueDate)
		paused, _ := f.service.ListForClient(ctx, 3)
		assert.Empty(t, paused)
	})

	t.Run("should skip months before launch", func(t *testing.T) {
		f := setup(t)

		created, err := f.service.MaterializeRecurring(adminCtx, utils.Date(2025, 1, 10))

		require.NoError(t, err)
		assert.Equal(t, 0, created)
	})
}

func TestServiceImpl_UnrollCampaignQuota(t *testing.T) {
	t.Run("should create monthly quotas over the campaign window idempotently", func(t *testing.T) {
		// given
		f := setup(t)

		// when
		created, err := f.service.UnrollCampaignQuota(adminCtx, 2)
		require.NoError(t, err)
		again, err := f.service.UnrollCampaignQuota(adminCtx, 2)
		require.NoError(t, err)

		// then
		assert.Equal(t, 9, created)
		assert.Equal(t, 0, again)
		deliverables, _ := f.service.ListForClient(ctx, 2)
		last := deliverables[len(deliverables)-1]
		assert.Equal(t, utils.Date(2025, 3, 10), last.DueDate)
	})

	t.Run("should reject retainer clients", func(t *testing.T) {
		f := setup(t)

		_, err := f.service.UnrollCampaignQuota(adminCtx, 1)

		assert.ErrorIs(t, err, ErrNotCampaign)
	})
}

func TestServiceImpl_RoleGates(t *testing.T) {
	t.Run("should reject viewers creating deliverables", func(t *testing.T) {
		f := setup(t)

		_, err := f.service.Create(viewerCtx, Deliverable{ClientId: 1, Type: engagement.DeliverableContent, Title: "x", DueDate: utils.Date(2025, 3, 1)})

		assert.ErrorIs(t, err, apperror.ErrForbidden)
		assert.ErrorIs(t, err, tenant.ErrReadOnly)
		all, _ := f.service.List(ctx)
		assert.Empty(t, all)
	})

	t.Run("should reject viewers advancing deliverables", func(t *testing.T) {
		// given
		f := setup(t)
		d := f.create(t)

		// when
		_, err := f.service.AdvanceFrom(viewerCtx, d.Id, StatusPending, StatusInProgress)

		// then
		assert.ErrorIs(t, err, apperror.ErrForbidden)
		stored, _ := f.service.Get(ctx, d.Id)
		assert.Equal(t, StatusPending, stored.Status)
		assert.Empty(t, *f.events)
	})

	for _, caller := range []struct {
		name string
		ctx  context.Context
	}{{"viewers", viewerCtx}, {"members", ctx}} {
		t.Run("should reject "+caller.name+" generating deliverables", func(t *testing.T) {
			f := setup(t)

			_, materializeErr := f.service.MaterializeRecurring(caller.ctx, utils.Date(2025, 3, 1))
			_, unrollErr := f.service.UnrollCampaignQuota(caller.ctx, 2)

			assert.ErrorIs(t, materializeErr, apperror.ErrForbidden)
			assert.ErrorIs(t, unrollErr, apperror.ErrForbidden)
			all, _ := f.service.List(ctx)
			assert.Empty(t, all)
		})
	}
}
