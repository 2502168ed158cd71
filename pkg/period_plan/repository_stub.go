package period_plan

import (
	"context"
	"sort"
	"sync"
	"time"
)

type overrideKey struct {
	tenantId  int
	clientId  int
	weekStart time.Time
}

type RepositoryStub struct {
	mu        sync.RWMutex
	overrides map[overrideKey]PlanOverride
	nextId    int
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{overrides: make(map[overrideKey]PlanOverride)}
}

func (r *RepositoryStub) Upsert(ctx context.Context, tenantId int, override PlanOverride) (PlanOverride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := overrideKey{tenantId, override.ClientId, override.WeekStart}
	if existing, ok := r.overrides[key]; ok {
		override.Id = existing.Id
	} else {
		r.nextId++
		override.Id = r.nextId
	}
	r.overrides[key] = override
	return override, nil
}

func (r *RepositoryStub) FindOverrides(ctx context.Context, tenantId int, clientId int, from, to time.Time) ([]PlanOverride, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []PlanOverride
	for key, o := range r.overrides {
		if key.tenantId != tenantId || key.clientId != clientId {
			continue
		}
		if key.weekStart.Before(from) || key.weekStart.After(to) {
			continue
		}
		result = append(result, o)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].WeekStart.Before(result[j].WeekStart) })
	return result, nil
}

func (r *RepositoryStub) Delete(ctx context.Context, tenantId int, clientId int, weekStart time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := overrideKey{tenantId, clientId, weekStart}
	if _, ok := r.overrides[key]; !ok {
		return ErrOverrideNotFound
	}
	delete(r.overrides, key)
	return nil
}

func (r *RepositoryStub) Cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides = make(map[overrideKey]PlanOverride)
	r.nextId = 0
}
