package app

import (
	"context"
	"fmt"
	"time"

	"github.com/agencydesk/agencydesk/internal/utils"
	"github.com/agencydesk/agencydesk/pkg/organization"
	"github.com/agencydesk/agencydesk/pkg/tenant"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// cronParser accepts standard 5-field expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

type OrganizationSource interface {
	Usable(ctx context.Context) ([]organization.Organization, error)
}

type RecurringMaterializer interface {
	MaterializeRecurring(ctx context.Context, month time.Time) (int, error)
}

// Scheduler creates the recurring deliverables of every retainer at the start of each period.
type Scheduler struct {
	orgs         OrganizationSource
	deliverables RecurringMaterializer
	clock        utils.Clock
	cron         *cron.Cron
}

func NewScheduler(orgs OrganizationSource, deliverables RecurringMaterializer, clock utils.Clock) *Scheduler {
	return &Scheduler{
		orgs:         orgs,
		deliverables: deliverables,
		clock:        clock,
		cron:         cron.New(cron.WithParser(cronParser)),
	}
}

// Start registers the materialization job under expr and starts the cron runner in the background.
func (s *Scheduler) Start(expr string) error {
	if _, err := cronParser.Parse(expr); err != nil {
		return fmt.Errorf("invalid scheduler cron %q: %w", expr, err)
	}
	_, err := s.cron.AddFunc(expr, func() {
		if _, err := s.RunOnce(context.Background()); err != nil {
			log.Errorf("recurring deliverables run failed: %v", err)
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	log.Infof("Scheduler started with cron %q", expr)
	return nil
}

// Stop waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunOnce materializes the current month for every organization with a usable subscription.
// A failing organization does not stop the others; the first error is returned.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	orgs, err := s.orgs.Usable(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list organizations: %w", err)
	}
	month := utils.Today(s.clock)
	total := 0
	var firstErr error
	for _, org := range orgs {
		orgCtx := tenant.WithIdentity(ctx, tenant.Identity{TenantId: org.Id, Role: tenant.RoleOwner})
		created, err := s.deliverables.MaterializeRecurring(orgCtx, month)
		total += created
		if err != nil {
			log.Errorf("failed to materialize recurring deliverables for tenant %d: %v", org.Id, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	log.Infof("Scheduler run for %s created %d deliverables across %d organizations", month.Format("2006-01"), total, len(orgs))
	return total, firstErr
}
