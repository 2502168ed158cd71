package task

import (
	"context"
	"errors"
	"fmt"

	"github.com/agencydesk/agencydesk/internal/apperror"
	"github.com/agencydesk/agencydesk/pkg/tenant"
)

type Service interface {
	Create(ctx context.Context, t Task) (Task, error)
	Get(ctx context.Context, id int) (Task, error)
	List(ctx context.Context) ([]Task, error)
	UpdateStatus(ctx context.Context, id int, status Status) (Task, error)
	// BelongsToClient reports whether the task exists and, when it is tied to a client, that it is clientId.
	BelongsToClient(ctx context.Context, taskId int, clientId int) (bool, error)
}

type ServiceImpl struct {
	repo Repository
}

func NewService(repo Repository) *ServiceImpl {
	return &ServiceImpl{repo: repo}
}

func (s *ServiceImpl) Create(ctx context.Context, t Task) (Task, error) {
	identity, err := tenant.Contributor(ctx)
	if err != nil {
		return Task{}, err
	}
	tenantId := identity.TenantId
	if t.Status == "" {
		t.Status = StatusTodo
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if err := apperror.ValidateStruct(t); err != nil {
		return Task{}, err
	}
	return s.repo.Create(ctx, tenantId, t)
}

func (s *ServiceImpl) Get(ctx context.Context, id int) (Task, error) {
	tenantId, err := tenant.CurrentId(ctx)
	if err != nil {
		return Task{}, fmt.Errorf("failed to get current tenant: %w", err)
	}
	return s.repo.Get(ctx, tenantId, id)
}

func (s *ServiceImpl) List(ctx context.Context) ([]Task, error) {
	tenantId, err := tenant.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current tenant: %w", err)
	}
	return s.repo.List(ctx, tenantId)
}

func (s *ServiceImpl) UpdateStatus(ctx context.Context, id int, status Status) (Task, error) {
	identity, err := tenant.Contributor(ctx)
	if err != nil {
		return Task{}, err
	}
	tenantId := identity.TenantId
	if !status.Valid() {
		return Task{}, apperror.Invalid("status", "has an unsupported value")
	}
	return s.repo.UpdateStatus(ctx, tenantId, id, status)
}

func (s *ServiceImpl) BelongsToClient(ctx context.Context, taskId int, clientId int) (bool, error) {
	t, err := s.Get(ctx, taskId)
	if err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			return false, nil
		}
		return false, err
	}
	return t.ClientId == nil || *t.ClientId == clientId, nil
}
