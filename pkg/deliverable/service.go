package deliverable

import (
	"context"
	"fmt"
	"time"

	"github.com/agencydesk/agencydesk/internal/apperror"
	"github.com/agencydesk/agencydesk/internal/event_bus"
	"github.com/agencydesk/agencydesk/internal/utils"
	"github.com/agencydesk/agencydesk/pkg/engagement"
	"github.com/agencydesk/agencydesk/pkg/tenant"
	log "github.com/sirupsen/logrus"
)

var ErrInvalidTransition = fmt.Errorf("invalid status transition: %w", apperror.ErrValidation)
var ErrNotCampaign = fmt.Errorf("client is not on a campaign: %w", apperror.ErrValidation)

type Service interface {
	Create(ctx context.Context, d Deliverable) (Deliverable, error)
	Get(ctx context.Context, id int) (Deliverable, error)
	List(ctx context.Context) ([]Deliverable, error)
	ListForClient(ctx context.Context, clientId int) ([]Deliverable, error)
	// Advance moves a deliverable one edge along its lifecycle.
	Advance(ctx context.Context, id int, target Status) (Deliverable, error)
	// AdvanceFrom is Advance for callers that saw the deliverable in status expected. It fails with a
	// concurrency conflict when the stored status differs.
	AdvanceFrom(ctx context.Context, id int, expected Status, target Status) (Deliverable, error)
	PendingApprovals(ctx context.Context, clientId int) ([]PendingApproval, error)
	// MaterializeRecurring creates the recurring deliverables of every retainer for the month containing month.
	MaterializeRecurring(ctx context.Context, month time.Time) (int, error)
	// UnrollCampaignQuota creates the monthly content and backlink quota of a campaign over its whole window.
	UnrollCampaignQuota(ctx context.Context, clientId int) (int, error)
}

type EngagementSource interface {
	Get(ctx context.Context, clientId int) (engagement.Engagement, error)
	List(ctx context.Context) ([]engagement.Engagement, error)
}

type ServiceImpl struct {
	repo        Repository
	engagements EngagementSource
	eventBus    *event_bus.EventBus
	clock       utils.Clock
}

func NewService(repo Repository, engagements EngagementSource, eventBus *event_bus.EventBus, clock utils.Clock) *ServiceImpl {
	return &ServiceImpl{
		repo:        repo,
		engagements: engagements,
		eventBus:    eventBus,
		clock:       clock,
	}
}

func (s *ServiceImpl) Create(ctx context.Context, d Deliverable) (Deliverable, error) {
	identity, err := tenant.Contributor(ctx)
	if err != nil {
		return Deliverable{}, err
	}
	tenantId := identity.TenantId
	d.Status = StatusPending
	d.CompletedDate = nil
	d.StatusChangedAt = s.clock.Now()
	if !d.DueDate.IsZero() {
		d.DueDate = utils.DateOf(d.DueDate)
	}
	if err := apperror.ValidateStruct(d); err != nil {
		return Deliverable{}, err
	}
	if _, err := s.engagements.Get(ctx, d.ClientId); err != nil {
		return Deliverable{}, err
	}
	return s.repo.Create(ctx, tenantId, d)
}

func (s *ServiceImpl) Get(ctx context.Context, id int) (Deliverable, error) {
	tenantId, err := tenant.CurrentId(ctx)
	if err != nil {
		return Deliverable{}, fmt.Errorf("failed to get current tenant: %w", err)
	}
	return s.repo.Get(ctx, tenantId, id)
}

func (s *ServiceImpl) List(ctx context.Context) ([]Deliverable, error) {
	tenantId, err := tenant.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current tenant: %w", err)
	}
	return s.repo.List(ctx, tenantId)
}

func (s *ServiceImpl) ListForClient(ctx context.Context, clientId int) ([]Deliverable, error) {
	tenantId, err := tenant.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current tenant: %w", err)
	}
	return s.repo.ListForClient(ctx, tenantId, clientId)
}

func (s *ServiceImpl) Advance(ctx context.Context, id int, target Status) (Deliverable, error) {
	return s.AdvanceFrom(ctx, id, "", target)
}

func (s *ServiceImpl) AdvanceFrom(ctx context.Context, id int, expected Status, target Status) (Deliverable, error) {
	identity, err := tenant.Contributor(ctx)
	if err != nil {
		return Deliverable{}, err
	}
	tenantId := identity.TenantId
	if !target.Valid() {
		return Deliverable{}, apperror.Invalid("status", "has an unsupported value")
	}
	current, err := s.repo.Get(ctx, tenantId, id)
	if err != nil {
		return Deliverable{}, err
	}
	if expected != "" && expected != current.Status {
		return Deliverable{}, ErrStatusChanged
	}
	if !current.Status.CanAdvanceTo(target) {
		return Deliverable{}, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, current.Status, target)
	}

	changedAt := s.clock.Now()
	if err := s.repo.SaveStatus(ctx, tenantId, id, target, current.Status, changedAt); err != nil {
		return Deliverable{}, err
	}
	updated, err := s.repo.Get(ctx, tenantId, id)
	if err != nil {
		return Deliverable{}, err
	}

	err = s.eventBus.Publish(event_bus.NewEvent(
		ctx,
		event_bus.DeliverableStatusChanged,
		event_bus.DeliverableStatusUpdated{
			DeliverableId: id,
			TenantId:      tenantId,
			ClientId:      updated.ClientId,
			From:          string(current.Status),
			To:            string(target),
			ChangedAt:     changedAt,
		},
	))
	if err != nil {
		log.Errorf("failed to publish deliverable status event: %v", err)
	}
	return updated, nil
}

func (s *ServiceImpl) PendingApprovals(ctx context.Context, clientId int) ([]PendingApproval, error) {
	deliverables, err := s.ListForClient(ctx, clientId)
	if err != nil {
		return nil, err
	}
	return PendingApprovals(deliverables, s.clock.Now()), nil
}

func (s *ServiceImpl) MaterializeRecurring(ctx context.Context, month time.Time) (int, error) {
	identity, err := tenant.Manager(ctx)
	if err != nil {
		return 0, err
	}
	tenantId := identity.TenantId
	engagements, err := s.engagements.List(ctx)
	if err != nil {
		return 0, err
	}
	start, end := engagement.MonthWindow(month)
	created := 0
	for _, e := range engagements {
		retainer, ok := e.Terms.(engagement.Retainer)
		if !ok || !materializable(e.Status) || !e.ActiveOn(end) {
			continue
		}
		for _, recurring := range retainer.RecurringDeliverables {
			for i := 1; i <= recurring.Count; i++ {
				d := s.generated(e.ClientId, recurring.Type, end, fmt.Sprintf("%s %d of %d (%s)", typeLabel(recurring.Type), i, recurring.Count, start.Format("Jan 2006")))
				d.SourceKey = sourceKey("recurring", e.ClientId, start, recurring.Type, i)
				stored, err := s.repo.CreateIfAbsent(ctx, tenantId, d)
				if err != nil {
					return created, err
				}
				if stored {
					created++
				}
			}
		}
	}
	log.Infof("materialized %d recurring deliverables for tenant %d in %s", created, tenantId, start.Format("2006-01"))
	return created, nil
}

func (s *ServiceImpl) UnrollCampaignQuota(ctx context.Context, clientId int) (int, error) {
	identity, err := tenant.Manager(ctx)
	if err != nil {
		return 0, err
	}
	tenantId := identity.TenantId
	e, err := s.engagements.Get(ctx, clientId)
	if err != nil {
		return 0, err
	}
	campaign, ok := e.Terms.(engagement.Campaign)
	if !ok {
		return 0, ErrNotCampaign
	}
	quotas := []struct {
		t     Type
		count int
	}{
		{engagement.DeliverableContent, campaign.MonthlyContentQuota},
		{engagement.DeliverableBacklink, campaign.MonthlyBacklinkQuota},
	}

	created := 0
	firstMonth, _ := engagement.MonthWindow(campaign.StartDate)
	for monthStart := firstMonth; !monthStart.After(campaign.EndDate); monthStart = monthStart.AddDate(0, 1, 0) {
		_, monthEnd := engagement.MonthWindow(monthStart)
		due := monthEnd
		if due.After(campaign.EndDate) {
			due = utils.DateOf(campaign.EndDate)
		}
		for _, quota := range quotas {
			for i := 1; i <= quota.count; i++ {
				d := s.generated(clientId, quota.t, due, fmt.Sprintf("%s %d of %d (%s)", typeLabel(quota.t), i, quota.count, monthStart.Format("Jan 2006")))
				d.SourceKey = sourceKey("campaign", clientId, monthStart, quota.t, i)
				stored, err := s.repo.CreateIfAbsent(ctx, tenantId, d)
				if err != nil {
					return created, err
				}
				if stored {
					created++
				}
			}
		}
	}
	log.Infof("unrolled %d campaign deliverables for client %d", created, clientId)
	return created, nil
}

func (s *ServiceImpl) generated(clientId int, t Type, due time.Time, title string) Deliverable {
	return Deliverable{
		ClientId:          clientId,
		Type:              t,
		Title:             title,
		Status:            StatusPending,
		DueDate:           due,
		CountsTowardHours: true,
		StatusChangedAt:   s.clock.Now(),
	}
}

func materializable(status engagement.Status) bool {
	return status == engagement.StatusActive || status == engagement.StatusOnboarding
}

func sourceKey(origin string, clientId int, month time.Time, t Type, index int) *string {
	key := fmt.Sprintf("%s:%d:%s:%s:%d", origin, clientId, month.Format("2006-01"), t, index)
	return &key
}

func typeLabel(t Type) string {
	switch t {
	case engagement.DeliverableContent:
		return "Content"
	case engagement.DeliverableBacklink:
		return "Backlink"
	case engagement.DeliverableListingPost:
		return "Listing post"
	default:
		return "Deliverable"
	}
}
