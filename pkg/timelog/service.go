package timelog

import (
	"context"
	"fmt"
	"time"

	"github.com/agencydesk/agencydesk/internal/apperror"
	"github.com/agencydesk/agencydesk/internal/event_bus"
	"github.com/agencydesk/agencydesk/internal/utils"
	"github.com/agencydesk/agencydesk/pkg/tenant"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

var ErrLoggingNotPermitted = fmt.Errorf("member may not log time: %w: %w", apperror.ErrValidation, apperror.ErrForbidden)
var ErrTimeTrackingDisabled = fmt.Errorf("time tracking is not included in the current plan: %w", apperror.ErrValidation)
var ErrCannotReverseReversal = fmt.Errorf("a reversal entry cannot be reversed: %w", apperror.ErrValidation)

type Service interface {
	RecordEntry(ctx context.Context, entry Entry) (uuid.UUID, error)
	// RecordReversal appends an entry cancelling entryId. The original is never modified.
	RecordReversal(ctx context.Context, entryId uuid.UUID, description string) (uuid.UUID, error)
	EntriesFor(ctx context.Context, clientId int, from, to time.Time) ([]Entry, error)
	SumHours(ctx context.Context, clientId int, from, to time.Time) (float64, error)
	SumBillableHours(ctx context.Context, clientId int, from, to time.Time) (float64, error)
}

type ClientChecker interface {
	ClientExists(ctx context.Context, clientId int) (bool, error)
}

type TaskChecker interface {
	BelongsToClient(ctx context.Context, taskId int, clientId int) (bool, error)
}

type FeatureChecker interface {
	TimeTrackingEnabled(ctx context.Context) (bool, error)
}

type ServiceImpl struct {
	repo     Repository
	clients  ClientChecker
	tasks    TaskChecker
	features FeatureChecker
	eventBus *event_bus.EventBus
	clock    utils.Clock
}

func NewService(repo Repository, clients ClientChecker, tasks TaskChecker, features FeatureChecker, eventBus *event_bus.EventBus, clock utils.Clock) *ServiceImpl {
	return &ServiceImpl{
		repo:     repo,
		clients:  clients,
		tasks:    tasks,
		features: features,
		eventBus: eventBus,
		clock:    clock,
	}
}

func (s *ServiceImpl) RecordEntry(ctx context.Context, entry Entry) (uuid.UUID, error) {
	identity, err := s.logger(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	entry.Id = uuid.New()
	entry.UserId = identity.UserId
	entry.Kind = KindRegular
	entry.ReversesId = nil
	if !entry.Date.IsZero() {
		entry.Date = utils.DateOf(entry.Date)
	}
	if err := apperror.ValidateStruct(entry); err != nil {
		return uuid.Nil, err
	}
	if err := s.checkReferences(ctx, entry); err != nil {
		return uuid.Nil, err
	}

	stored, err := s.repo.AppendEntry(ctx, identity.TenantId, entry)
	if err != nil {
		return uuid.Nil, err
	}
	log.Debugf("recorded %.2fh for client %d on %s", stored.Hours, stored.ClientId, stored.Date.Format(time.DateOnly))
	s.publish(ctx, stored)
	return stored.Id, nil
}

func (s *ServiceImpl) RecordReversal(ctx context.Context, entryId uuid.UUID, description string) (uuid.UUID, error) {
	identity, err := s.logger(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	original, err := s.repo.GetEntry(ctx, identity.TenantId, entryId)
	if err != nil {
		return uuid.Nil, err
	}
	if original.IsReversal() {
		return uuid.Nil, ErrCannotReverseReversal
	}
	if description == "" {
		description = fmt.Sprintf("reversal of %s", original.Id)
	}

	reversal := Entry{
		Id:          uuid.New(),
		ClientId:    original.ClientId,
		TaskId:      original.TaskId,
		UserId:      identity.UserId,
		Date:        original.Date,
		Hours:       original.Hours,
		Description: description,
		Billable:    original.Billable,
		Kind:        KindReversal,
		ReversesId:  &original.Id,
	}
	stored, err := s.repo.AppendEntry(ctx, identity.TenantId, reversal)
	if err != nil {
		return uuid.Nil, err
	}
	log.Infof("reversed time entry %s for client %d", original.Id, original.ClientId)
	s.publish(ctx, stored)
	return stored.Id, nil
}

func (s *ServiceImpl) EntriesFor(ctx context.Context, clientId int, from, to time.Time) ([]Entry, error) {
	tenantId, err := tenant.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current tenant: %w", err)
	}
	if to.Before(from) {
		return nil, apperror.Invalid("to", "must not be before from")
	}
	return s.repo.FindEntries(ctx, tenantId, clientId, utils.DateOf(from), utils.DateOf(to))
}

func (s *ServiceImpl) SumHours(ctx context.Context, clientId int, from, to time.Time) (float64, error) {
	return s.sum(ctx, clientId, from, to, false)
}

// SumBillableHours is the budget consumption of a client in [from, to]. Non-billable entries are excluded.
func (s *ServiceImpl) SumBillableHours(ctx context.Context, clientId int, from, to time.Time) (float64, error) {
	return s.sum(ctx, clientId, from, to, true)
}

func (s *ServiceImpl) sum(ctx context.Context, clientId int, from, to time.Time, billableOnly bool) (float64, error) {
	tenantId, err := tenant.CurrentId(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get current tenant: %w", err)
	}
	if to.Before(from) {
		return 0, nil
	}
	return s.repo.SumHours(ctx, tenantId, clientId, utils.DateOf(from), utils.DateOf(to), billableOnly)
}

func (s *ServiceImpl) logger(ctx context.Context) (tenant.Identity, error) {
	identity, err := tenant.CurrentIdentity(ctx)
	if err != nil {
		return tenant.Identity{}, fmt.Errorf("failed to get current tenant: %w", err)
	}
	if !identity.Role.CanLogTime() {
		return tenant.Identity{}, ErrLoggingNotPermitted
	}
	enabled, err := s.features.TimeTrackingEnabled(ctx)
	if err != nil {
		return tenant.Identity{}, err
	}
	if !enabled {
		return tenant.Identity{}, ErrTimeTrackingDisabled
	}
	return identity, nil
}

func (s *ServiceImpl) checkReferences(ctx context.Context, entry Entry) error {
	exists, err := s.clients.ClientExists(ctx, entry.ClientId)
	if err != nil {
		return err
	}
	if !exists {
		return apperror.Invalid("clientId", "references an unknown client")
	}
	if entry.TaskId == nil {
		return nil
	}
	belongs, err := s.tasks.BelongsToClient(ctx, *entry.TaskId, entry.ClientId)
	if err != nil {
		return err
	}
	if !belongs {
		return apperror.Invalid("taskId", "references an unknown task")
	}
	return nil
}

// publish notifies subscribers about a stored entry. The entry stays in the ledger even when a subscriber
// fails, because everything derived from it can be recomputed from the ledger.
func (s *ServiceImpl) publish(ctx context.Context, entry Entry) {
	err := s.eventBus.Publish(event_bus.NewEvent(
		ctx,
		event_bus.TimeEntryRecorded,
		event_bus.TimeEntryAppended{
			EntryId:  entry.Id,
			TenantId: entry.TenantId,
			ClientId: entry.ClientId,
			Date:     entry.Date,
			Hours:    entry.SignedHours(),
			Billable: entry.Billable,
		},
	))
	if err != nil {
		log.Errorf("failed to publish time entry recorded event: %v", err)
	}
}
