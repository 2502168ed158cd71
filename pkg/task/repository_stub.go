package task

import (
	"context"
	"sort"
	"sync"
)

type RepositoryStub struct {
	mu     sync.RWMutex
	tasks  map[int]Task
	nextId int
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{tasks: make(map[int]Task)}
}

func (r *RepositoryStub) Create(ctx context.Context, tenantId int, t Task) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextId++
	t.Id = r.nextId
	t.TenantId = tenantId
	r.tasks[t.Id] = t
	return t, nil
}

func (r *RepositoryStub) Get(ctx context.Context, tenantId int, id int) (Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[id]
	if !ok || t.TenantId != tenantId {
		return Task{}, ErrTaskNotFound
	}
	return t, nil
}

func (r *RepositoryStub) List(ctx context.Context, tenantId int) ([]Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []Task
	for _, t := range r.tasks {
		if t.TenantId == tenantId {
			result = append(result, t)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Id < result[j].Id })
	return result, nil
}

func (r *RepositoryStub) UpdateStatus(ctx context.Context, tenantId int, id int, status Status) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok || t.TenantId != tenantId {
		return Task{}, ErrTaskNotFound
	}
	t.Status = status
	r.tasks[id] = t
	return t, nil
}

func (r *RepositoryStub) Cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = make(map[int]Task)
	r.nextId = 0
}
