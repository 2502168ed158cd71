package deliverable

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/agencydesk/agencydesk/internal/utils"
)

type RepositoryStub struct {
	mu           sync.RWMutex
	deliverables map[int]Deliverable
	nextId       int
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{deliverables: make(map[int]Deliverable)}
}

func (r *RepositoryStub) Create(ctx context.Context, tenantId int, d Deliverable) (Deliverable, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insert(tenantId, d), nil
}

func (r *RepositoryStub) insert(tenantId int, d Deliverable) Deliverable {
	r.nextId++
	d.Id = r.nextId
	d.TenantId = tenantId
	r.deliverables[d.Id] = d
	return d
}

func (r *RepositoryStub) CreateIfAbsent(ctx context.Context, tenantId int, d Deliverable) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d.SourceKey != nil {
		for _, existing := range r.deliverables {
			if existing.TenantId == tenantId && existing.SourceKey != nil && *existing.SourceKey == *d.SourceKey {
				return false, nil
			}
		}
	}
	r.insert(tenantId, d)
	return true, nil
}

func (r *RepositoryStub) Get(ctx context.Context, tenantId int, id int) (Deliverable, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.deliverables[id]
	if !ok || d.TenantId != tenantId {
		return Deliverable{}, ErrDeliverableNotFound
	}
	return d, nil
}

func (r *RepositoryStub) List(ctx context.Context, tenantId int) ([]Deliverable, error) {
	return r.filter(func(d Deliverable) bool { return d.TenantId == tenantId }), nil
}

func (r *RepositoryStub) ListForClient(ctx context.Context, tenantId int, clientId int) ([]Deliverable, error) {
	return r.filter(func(d Deliverable) bool { return d.TenantId == tenantId && d.ClientId == clientId }), nil
}

func (r *RepositoryStub) filter(keep func(Deliverable) bool) []Deliverable {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []Deliverable
	for _, d := range r.deliverables {
		if keep(d) {
			result = append(result, d)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].DueDate.Equal(result[j].DueDate) {
			return result[i].DueDate.Before(result[j].DueDate)
		}
		return result[i].Id < result[j].Id
	})
	return result
}

func (r *RepositoryStub) SaveStatus(ctx context.Context, tenantId int, id int, status Status, expectedPrior Status, changedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.deliverables[id]
	if !ok || d.TenantId != tenantId {
		return ErrDeliverableNotFound
	}
	if d.Status != expectedPrior {
		return ErrStatusChanged
	}
	d.Status = status
	d.StatusChangedAt = changedAt
	if status.Completed() {
		if d.CompletedDate == nil {
			completed := utils.DateOf(changedAt)
			d.CompletedDate = &completed
		}
	} else {
		d.CompletedDate = nil
	}
	r.deliverables[id] = d
	return nil
}

func (r *RepositoryStub) Cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliverables = make(map[int]Deliverable)
	r.nextId = 0
}
