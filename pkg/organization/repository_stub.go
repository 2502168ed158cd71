package organization

import (
	"context"
	"sync"

	"github.com/agencydesk/agencydesk/pkg/tenant"
)

type RepositoryStub struct {
	mu      sync.RWMutex
	orgs    map[int]Organization
	members map[[2]int]Member
	nextId  int
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{
		orgs:    make(map[int]Organization),
		members: make(map[[2]int]Member),
	}
}

func (r *RepositoryStub) Create(ctx context.Context, org Organization, ownerUserId int) (Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.orgs {
		if existing.Slug == org.Slug {
			return Organization{}, ErrSlugTaken
		}
	}
	r.nextId++
	org.Id = r.nextId
	r.orgs[org.Id] = org
	r.members[[2]int{org.Id, ownerUserId}] = Member{TenantId: org.Id, UserId: ownerUserId, Role: tenant.RoleOwner}
	return org, nil
}

func (r *RepositoryStub) Get(ctx context.Context, tenantId int) (Organization, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	org, ok := r.orgs[tenantId]
	if !ok {
		return Organization{}, ErrOrganizationNotFound
	}
	return org, nil
}

func (r *RepositoryStub) List(ctx context.Context) ([]Organization, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	orgs := make([]Organization, 0, len(r.orgs))
	for id := 1; id <= r.nextId; id++ {
		if org, ok := r.orgs[id]; ok {
			orgs = append(orgs, org)
		}
	}
	return orgs, nil
}

func (r *RepositoryStub) UpdateSubscriptionStatus(ctx context.Context, tenantId int, status SubscriptionStatus) (Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	org, ok := r.orgs[tenantId]
	if !ok {
		return Organization{}, ErrOrganizationNotFound
	}
	org.SubscriptionStatus = status
	r.orgs[tenantId] = org
	return org, nil
}

func (r *RepositoryStub) AddMember(ctx context.Context, member Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[[2]int{member.TenantId, member.UserId}] = member
	return nil
}

func (r *RepositoryStub) GetMember(ctx context.Context, tenantId int, userId int) (Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	member, ok := r.members[[2]int{tenantId, userId}]
	if !ok {
		return Member{}, ErrMemberNotFound
	}
	return member, nil
}

func (r *RepositoryStub) CountMembers(ctx context.Context, tenantId int) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for key := range r.members {
		if key[0] == tenantId {
			count++
		}
	}
	return count, nil
}

func (r *RepositoryStub) Cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orgs = make(map[int]Organization)
	r.members = make(map[[2]int]Member)
	r.nextId = 0
}
