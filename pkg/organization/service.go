package organization

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/agencydesk/agencydesk/internal/apperror"
	"github.com/agencydesk/agencydesk/pkg/tenant"
	log "github.com/sirupsen/logrus"
)

var ErrMemberLimitReached = fmt.Errorf("member limit of the current plan reached: %w", apperror.ErrValidation)

type Service interface {
	// Create sets up a new organization owned by ownerUserId. New organizations start on a trial.
	Create(ctx context.Context, org Organization, ownerUserId int) (Organization, error)
	// AddMember adds userId with role, or changes the role of an existing member.
	AddMember(ctx context.Context, userId int, role tenant.Role) (Member, error)
	// GetMember resolves a member before any identity is in the context, so it takes ids explicitly.
	GetMember(ctx context.Context, tenantId int, userId int) (Member, error)
	Current(ctx context.Context) (Organization, error)
	// Usable lists organizations whose subscription allows work to continue. Used by background jobs.
	Usable(ctx context.Context) ([]Organization, error)
	CanAddClient(ctx context.Context, currentClientCount int) (bool, error)
	TimeTrackingEnabled(ctx context.Context) (bool, error)
	// SetSubscriptionStatus is called by the external billing integration.
	SetSubscriptionStatus(ctx context.Context, status SubscriptionStatus) (Organization, error)
}

type ServiceImpl struct {
	repo Repository
}

func NewService(repo Repository) *ServiceImpl {
	return &ServiceImpl{repo: repo}
}

func (s *ServiceImpl) Create(ctx context.Context, org Organization, ownerUserId int) (Organization, error) {
	if ownerUserId <= 0 {
		return Organization{}, apperror.Invalid("ownerUserId", "must be a positive number")
	}
	org.Id = 0
	org.Slug = strings.TrimSpace(org.Slug)
	if org.Plan == "" {
		org.Plan = PlanStarter
	}
	org.SubscriptionStatus = SubscriptionTrialing
	if err := apperror.ValidateStruct(org); err != nil {
		return Organization{}, err
	}
	created, err := s.repo.Create(ctx, org, ownerUserId)
	if err != nil {
		return Organization{}, err
	}
	log.Infof("organization %d (%s) set up by user %d on plan %s", created.Id, created.Slug, ownerUserId, created.Plan)
	return created, nil
}

func (s *ServiceImpl) AddMember(ctx context.Context, userId int, role tenant.Role) (Member, error) {
	identity, err := tenant.Manager(ctx)
	if err != nil {
		return Member{}, err
	}
	if userId <= 0 {
		return Member{}, apperror.Invalid("userId", "must be a positive number")
	}
	if !role.Valid() || role == tenant.RoleOwner {
		return Member{}, apperror.Invalid("role", "must be admin, member or viewer")
	}

	existing, err := s.repo.GetMember(ctx, identity.TenantId, userId)
	switch {
	case err == nil && existing.Role == tenant.RoleOwner:
		return Member{}, apperror.Invalid("userId", "is the owner of the organization")
	case errors.Is(err, ErrMemberNotFound):
		if err := s.checkMemberLimit(ctx, identity.TenantId); err != nil {
			return Member{}, err
		}
	case err != nil:
		return Member{}, err
	}

	member := Member{TenantId: identity.TenantId, UserId: userId, Role: role}
	if err := s.repo.AddMember(ctx, member); err != nil {
		return Member{}, err
	}
	log.Infof("user %d is now %s of organization %d", userId, role, identity.TenantId)
	return member, nil
}

func (s *ServiceImpl) checkMemberLimit(ctx context.Context, tenantId int) error {
	org, err := s.repo.Get(ctx, tenantId)
	if err != nil {
		return err
	}
	count, err := s.repo.CountMembers(ctx, tenantId)
	if err != nil {
		return err
	}
	if !CanAddMember(org.Plan, count) {
		return ErrMemberLimitReached
	}
	return nil
}

func (s *ServiceImpl) GetMember(ctx context.Context, tenantId int, userId int) (Member, error) {
	return s.repo.GetMember(ctx, tenantId, userId)
}

func (s *ServiceImpl) Current(ctx context.Context) (Organization, error) {
	tenantId, err := tenant.CurrentId(ctx)
	if err != nil {
		return Organization{}, fmt.Errorf("failed to get current tenant: %w", err)
	}
	return s.repo.Get(ctx, tenantId)
}

func (s *ServiceImpl) Usable(ctx context.Context) ([]Organization, error) {
	orgs, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	usable := make([]Organization, 0, len(orgs))
	for _, org := range orgs {
		if org.SubscriptionStatus.Usable() {
			usable = append(usable, org)
		}
	}
	return usable, nil
}

func (s *ServiceImpl) CanAddClient(ctx context.Context, currentClientCount int) (bool, error) {
	org, err := s.Current(ctx)
	if err != nil {
		return false, err
	}
	return CanAddClient(org.Plan, currentClientCount), nil
}

func (s *ServiceImpl) TimeTrackingEnabled(ctx context.Context) (bool, error) {
	org, err := s.Current(ctx)
	if err != nil {
		return false, err
	}
	return LimitsFor(org.Plan).TimeTracking && org.SubscriptionStatus.Usable(), nil
}

func (s *ServiceImpl) SetSubscriptionStatus(ctx context.Context, status SubscriptionStatus) (Organization, error) {
	identity, err := tenant.Owner(ctx)
	if err != nil {
		return Organization{}, err
	}
	tenantId := identity.TenantId
	if !status.Valid() {
		return Organization{}, apperror.Invalid("subscriptionStatus", "has an unsupported value")
	}
	org, err := s.repo.UpdateSubscriptionStatus(ctx, tenantId, status)
	if err != nil {
		return Organization{}, err
	}
	log.Infof("organization %d subscription status changed to %s", tenantId, status)
	return org, nil
}
