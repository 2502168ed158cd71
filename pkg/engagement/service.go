package engagement

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/agencydesk/agencydesk/internal/apperror"
	"github.com/agencydesk/agencydesk/internal/event_bus"
	"github.com/agencydesk/agencydesk/internal/utils"
	"github.com/agencydesk/agencydesk/pkg/tenant"
	log "github.com/sirupsen/logrus"
)

var ErrPlanLimitReached = fmt.Errorf("client limit of the current plan reached: %w", apperror.ErrValidation)
var ErrNotPermitted = fmt.Errorf("member may not manage engagements: %w", apperror.ErrForbidden)

type Service interface {
	Onboard(ctx context.Context, e Engagement) (Engagement, error)
	Get(ctx context.Context, clientId int) (Engagement, error)
	List(ctx context.Context) ([]Engagement, error)
	Configure(ctx context.Context, clientId int, terms Terms) (Engagement, error)
	SetStatus(ctx context.Context, clientId int, status Status) (Engagement, error)
	CurrentWindow(ctx context.Context, clientId int, asOf time.Time) (Window, error)
	// HoursUsed sums billable ledger hours inside the current window. It is always recomputed.
	HoursUsed(ctx context.Context, clientId int, asOf time.Time) (float64, error)
	Budget(ctx context.Context, clientId int, asOf time.Time) (BudgetStatus, error)
	BudgetFor(ctx context.Context, e Engagement, asOf time.Time) (BudgetStatus, error)
	// CachedHoursUsed reads the display cache maintained from ledger events. Not authoritative.
	CachedHoursUsed(ctx context.Context, clientId int, asOf time.Time) (float64, error)
	ClientExists(ctx context.Context, clientId int) (bool, error)
}

type LedgerReader interface {
	SumBillableHours(ctx context.Context, clientId int, from, to time.Time) (float64, error)
}

type ClientLimiter interface {
	CanAddClient(ctx context.Context, currentClientCount int) (bool, error)
}

type ServiceImpl struct {
	repo            Repository
	ledger          LedgerReader
	limiter         ClientLimiter
	clock           utils.Clock
	defaultRollover RolloverPolicy
}

func NewService(repo Repository, ledger LedgerReader, limiter ClientLimiter, eventBus *event_bus.EventBus, clock utils.Clock, defaultRollover RolloverPolicy) *ServiceImpl {
	if defaultRollover == RolloverDefault || !defaultRollover.Valid() {
		defaultRollover = RolloverNone
	}
	service := &ServiceImpl{
		repo:            repo,
		ledger:          ledger,
		limiter:         limiter,
		clock:           clock,
		defaultRollover: defaultRollover,
	}
	event_bus.SubscribeTyped[event_bus.TimeEntryAppended](
		eventBus,
		event_bus.TimeEntryRecorded,
		func(e event_bus.EventT[event_bus.TimeEntryAppended]) error {
			log.Debugf("received time entry recorded event: %v", e.Data.EntryId)
			if err := service.handleTimeEntryAppended(e.Context(), e.Data); err != nil {
				log.Errorf("failed to update usage cache: %v", err)
				return err
			}
			return nil
		},
	)
	return service
}

func (s *ServiceImpl) Onboard(ctx context.Context, e Engagement) (Engagement, error) {
	identity, err := s.manager(ctx)
	if err != nil {
		return Engagement{}, err
	}
	if e.Status == "" {
		e.Status = StatusOnboarding
	}
	if e.Tier == 0 {
		e.Tier = 2
	}
	if err := validateEngagement(e); err != nil {
		return Engagement{}, err
	}

	count, err := s.repo.Count(ctx, identity.TenantId)
	if err != nil {
		return Engagement{}, err
	}
	allowed, err := s.limiter.CanAddClient(ctx, count)
	if err != nil {
		return Engagement{}, err
	}
	if !allowed {
		return Engagement{}, ErrPlanLimitReached
	}

	created, err := s.repo.Create(ctx, identity.TenantId, e)
	if err != nil {
		return Engagement{}, err
	}
	log.Infof("onboarded client %d (%s) as %s", created.ClientId, created.Name, created.Terms.Model())
	return created, nil
}

func (s *ServiceImpl) Get(ctx context.Context, clientId int) (Engagement, error) {
	tenantId, err := tenant.CurrentId(ctx)
	if err != nil {
		return Engagement{}, fmt.Errorf("failed to get current tenant: %w", err)
	}
	return s.repo.Get(ctx, tenantId, clientId)
}

func (s *ServiceImpl) List(ctx context.Context) ([]Engagement, error) {
	tenantId, err := tenant.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current tenant: %w", err)
	}
	return s.repo.List(ctx, tenantId)
}

func (s *ServiceImpl) ClientExists(ctx context.Context, clientId int) (bool, error) {
	_, err := s.Get(ctx, clientId)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrEngagementNotFound) {
		return false, nil
	}
	return false, err
}

func (s *ServiceImpl) Configure(ctx context.Context, clientId int, terms Terms) (Engagement, error) {
	identity, err := s.manager(ctx)
	if err != nil {
		return Engagement{}, err
	}
	if err := ValidateTerms(terms); err != nil {
		return Engagement{}, err
	}
	if err := s.repo.SaveTerms(ctx, identity.TenantId, clientId, terms); err != nil {
		return Engagement{}, err
	}
	e, err := s.repo.Get(ctx, identity.TenantId, clientId)
	if err != nil {
		return Engagement{}, err
	}

	// the window may have moved, so rebuild the cache row for it from the ledger
	window := e.CurrentWindow(s.clock.Now())
	used, err := s.ledger.SumBillableHours(ctx, clientId, window.Start, window.End)
	if err != nil {
		return Engagement{}, err
	}
	if err := s.repo.SetUsage(ctx, identity.TenantId, clientId, window.Start, used); err != nil {
		return Engagement{}, err
	}
	return e, nil
}

func (s *ServiceImpl) SetStatus(ctx context.Context, clientId int, status Status) (Engagement, error) {
	identity, err := s.manager(ctx)
	if err != nil {
		return Engagement{}, err
	}
	if !status.Valid() {
		return Engagement{}, apperror.Invalid("status", "has an unsupported value")
	}
	if err := s.repo.UpdateStatus(ctx, identity.TenantId, clientId, status); err != nil {
		return Engagement{}, err
	}
	return s.repo.Get(ctx, identity.TenantId, clientId)
}

func (s *ServiceImpl) CurrentWindow(ctx context.Context, clientId int, asOf time.Time) (Window, error) {
	e, err := s.Get(ctx, clientId)
	if err != nil {
		return Window{}, err
	}
	return e.CurrentWindow(asOf), nil
}

func (s *ServiceImpl) HoursUsed(ctx context.Context, clientId int, asOf time.Time) (float64, error) {
	e, err := s.Get(ctx, clientId)
	if err != nil {
		return 0, err
	}
	window := e.CurrentWindow(asOf)
	return s.ledger.SumBillableHours(ctx, clientId, window.Start, window.End)
}

func (s *ServiceImpl) Budget(ctx context.Context, clientId int, asOf time.Time) (BudgetStatus, error) {
	e, err := s.Get(ctx, clientId)
	if err != nil {
		return BudgetStatus{}, err
	}
	return s.BudgetFor(ctx, e, asOf)
}

func (s *ServiceImpl) BudgetFor(ctx context.Context, e Engagement, asOf time.Time) (BudgetStatus, error) {
	window := e.CurrentWindow(asOf)
	used, err := s.ledger.SumBillableHours(ctx, e.ClientId, window.Start, window.End)
	if err != nil {
		return BudgetStatus{}, err
	}
	carried, err := s.carriedHours(ctx, e, window)
	if err != nil {
		return BudgetStatus{}, err
	}
	total := window.Budget + carried
	return BudgetStatus{
		Window:    window,
		Allocated: window.Budget,
		Carried:   carried,
		Total:     total,
		Used:      used,
		Remaining: total - used,
	}, nil
}

// carriedHours returns the unused hours of the previous retainer month when the rollover policy
// allows it. The previous month's own carry is not included, so rollover never compounds.
func (s *ServiceImpl) carriedHours(ctx context.Context, e Engagement, window Window) (float64, error) {
	retainer, ok := e.Terms.(Retainer)
	if !ok || s.rolloverOf(retainer) != RolloverCarryPreviousMonth {
		return 0, nil
	}
	previousEnd := window.Start.AddDate(0, 0, -1)
	if !e.ActiveOn(previousEnd) {
		return 0, nil
	}
	previousStart, _ := MonthWindow(previousEnd)
	previousUsed, err := s.ledger.SumBillableHours(ctx, e.ClientId, previousStart, previousEnd)
	if err != nil {
		return 0, err
	}
	return math.Max(0, retainer.MonthlyHours-previousUsed), nil
}

func (s *ServiceImpl) rolloverOf(r Retainer) RolloverPolicy {
	if r.Rollover == RolloverDefault {
		return s.defaultRollover
	}
	return r.Rollover
}

func (s *ServiceImpl) CachedHoursUsed(ctx context.Context, clientId int, asOf time.Time) (float64, error) {
	e, err := s.Get(ctx, clientId)
	if err != nil {
		return 0, err
	}
	return s.repo.GetUsage(ctx, e.TenantId, clientId, e.CurrentWindow(asOf).Start)
}

func (s *ServiceImpl) handleTimeEntryAppended(ctx context.Context, entry event_bus.TimeEntryAppended) error {
	if !entry.Billable {
		return nil
	}
	e, err := s.repo.Get(ctx, entry.TenantId, entry.ClientId)
	if err != nil {
		return err
	}
	window := e.CurrentWindow(entry.Date)
	if !window.Contains {
		return nil
	}
	return s.repo.IncrementUsage(ctx, entry.TenantId, entry.ClientId, window.Start, entry.Hours)
}

func (s *ServiceImpl) manager(ctx context.Context) (tenant.Identity, error) {
	identity, err := tenant.CurrentIdentity(ctx)
	if err != nil {
		return tenant.Identity{}, fmt.Errorf("failed to get current tenant: %w", err)
	}
	if !identity.Role.CanManageEngagements() {
		return tenant.Identity{}, ErrNotPermitted
	}
	return identity, nil
}
