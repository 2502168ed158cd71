package timelog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type RepositoryStub struct {
	mu      sync.RWMutex
	entries []Entry
	seq     int64
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{}
}

func (r *RepositoryStub) AppendEntry(ctx context.Context, tenantId int, entry Entry) (Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry.ReversesId != nil {
		for _, e := range r.entries {
			if e.ReversesId != nil && *e.ReversesId == *entry.ReversesId {
				return Entry{}, ErrAlreadyReversed
			}
		}
	}
	r.seq++
	entry.Seq = r.seq
	entry.TenantId = tenantId
	entry.CreatedAt = time.Now()
	r.entries = append(r.entries, entry)
	return entry, nil
}

func (r *RepositoryStub) GetEntry(ctx context.Context, tenantId int, id uuid.UUID) (Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.Id == id && e.TenantId == tenantId {
			return e, nil
		}
	}
	return Entry{}, ErrEntryNotFound
}

func (r *RepositoryStub) FindEntries(ctx context.Context, tenantId int, clientId int, from, to time.Time) ([]Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []Entry
	for _, e := range r.entries {
		if e.TenantId != tenantId || e.ClientId != clientId {
			continue
		}
		if e.Date.Before(from) || e.Date.After(to) {
			continue
		}
		result = append(result, e)
	}
	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].Seq < result[j].Seq
	})
	return result, nil
}

func (r *RepositoryStub) SumHours(ctx context.Context, tenantId int, clientId int, from, to time.Time, billableOnly bool) (float64, error) {
	entries, _ := r.FindEntries(ctx, tenantId, clientId, from, to)
	return Sum(entries, billableOnly), nil
}

func (r *RepositoryStub) Cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
	r.seq = 0
}
