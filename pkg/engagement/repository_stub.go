package engagement

import (
	"context"
	"sort"
	"sync"
	"time"
)

type usageKey struct {
	tenantId    int
	clientId    int
	windowStart time.Time
}

type RepositoryStub struct {
	mu          sync.RWMutex
	engagements map[int]Engagement
	usage       map[usageKey]float64
	nextId      int
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{
		engagements: make(map[int]Engagement),
		usage:       make(map[usageKey]float64),
	}
}

func (r *RepositoryStub) Create(ctx context.Context, tenantId int, e Engagement) (Engagement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextId++
	e.ClientId = r.nextId
	e.TenantId = tenantId
	if retainer, ok := e.Terms.(Retainer); ok && retainer.Rollover == RolloverDefault {
		retainer.Rollover = RolloverNone
		e.Terms = retainer
	}
	r.engagements[e.ClientId] = e
	return e, nil
}

func (r *RepositoryStub) Get(ctx context.Context, tenantId int, clientId int) (Engagement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.engagements[clientId]
	if !ok || e.TenantId != tenantId {
		return Engagement{}, ErrEngagementNotFound
	}
	return e, nil
}

func (r *RepositoryStub) List(ctx context.Context, tenantId int) ([]Engagement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []Engagement
	for _, e := range r.engagements {
		if e.TenantId == tenantId {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ClientId < result[j].ClientId
	})
	return result, nil
}

func (r *RepositoryStub) Count(ctx context.Context, tenantId int) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, e := range r.engagements {
		if e.TenantId == tenantId && e.Status != StatusArchived && e.Status != StatusCancelled {
			count++
		}
	}
	return count, nil
}

func (r *RepositoryStub) SaveTerms(ctx context.Context, tenantId int, clientId int, terms Terms) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.engagements[clientId]
	if !ok || e.TenantId != tenantId {
		return ErrEngagementNotFound
	}
	if retainer, ok := terms.(Retainer); ok && retainer.Rollover == RolloverDefault {
		retainer.Rollover = RolloverNone
		terms = retainer
	}
	e.Terms = terms
	r.engagements[clientId] = e
	return nil
}

func (r *RepositoryStub) UpdateStatus(ctx context.Context, tenantId int, clientId int, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.engagements[clientId]
	if !ok || e.TenantId != tenantId {
		return ErrEngagementNotFound
	}
	e.Status = status
	r.engagements[clientId] = e
	return nil
}

func (r *RepositoryStub) IncrementUsage(ctx context.Context, tenantId int, clientId int, windowStart time.Time, hours float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.usage[usageKey{tenantId, clientId, windowStart}] += hours
	return nil
}

func (r *RepositoryStub) SetUsage(ctx context.Context, tenantId int, clientId int, windowStart time.Time, hours float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.usage[usageKey{tenantId, clientId, windowStart}] = hours
	return nil
}

func (r *RepositoryStub) GetUsage(ctx context.Context, tenantId int, clientId int, windowStart time.Time) (float64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.usage[usageKey{tenantId, clientId, windowStart}], nil
}

func (r *RepositoryStub) Cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engagements = make(map[int]Engagement)
	r.usage = make(map[usageKey]float64)
	r.nextId = 0
}
