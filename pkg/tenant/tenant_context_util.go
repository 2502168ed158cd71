package tenant

import (
	"context"
	"errors"
	"fmt"

	"github.com/agencydesk/agencydesk/internal/apperror"
	log "github.com/sirupsen/logrus"
)

type contextKey string

const (
	IdentityKey contextKey = "identity"
	userKey     contextKey = "user"
)

var ErrNoTenant = errors.New("tenant not found")
var ErrNoUser = errors.New("user not found")

var (
	ErrReadOnly   = fmt.Errorf("viewers may not change data: %w", apperror.ErrForbidden)
	ErrNotManager = fmt.Errorf("only owners and admins may do this: %w", apperror.ErrForbidden)
	ErrNotOwner   = fmt.Errorf("only the owner may do this: %w", apperror.ErrForbidden)
)

// CurrentId retrieves the current tenant's ID from the context. Returns ErrNoTenant if not present.
func CurrentId(ctx context.Context) (int, error) {
	identity, err := CurrentIdentity(ctx)
	if err != nil {
		return 0, err
	}
	return identity.TenantId, nil
}

func CurrentIdentity(ctx context.Context) (Identity, error) {
	identity, ok := ctx.Value(IdentityKey).(Identity)
	if !ok || identity.TenantId == 0 {
		log.Trace("tenant not found in context")
		return Identity{}, ErrNoTenant
	}
	return identity, nil
}

func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}

// WithUser marks the request as made by userId before any organization is chosen, e.g. while
// setting one up.
func WithUser(ctx context.Context, userId int) context.Context {
	return context.WithValue(ctx, userKey, userId)
}

// CurrentUserId returns the acting user, taken from the tenant identity when there is one.
func CurrentUserId(ctx context.Context) (int, error) {
	if identity, ok := ctx.Value(IdentityKey).(Identity); ok && identity.UserId != 0 {
		return identity.UserId, nil
	}
	if userId, ok := ctx.Value(userKey).(int); ok && userId != 0 {
		return userId, nil
	}
	return 0, ErrNoUser
}

// Contributor returns the caller's identity unless the caller is a viewer.
func Contributor(ctx context.Context) (Identity, error) {
	return gate(ctx, Role.CanContribute, ErrReadOnly)
}

// Manager returns the caller's identity if the caller is an owner or admin.
func Manager(ctx context.Context) (Identity, error) {
	return gate(ctx, Role.CanManageEngagements, ErrNotManager)
}

// Owner returns the caller's identity if the caller owns the organization.
func Owner(ctx context.Context) (Identity, error) {
	return gate(ctx, func(r Role) bool { return r == RoleOwner }, ErrNotOwner)
}

func gate(ctx context.Context, allowed func(Role) bool, denied error) (Identity, error) {
	identity, err := CurrentIdentity(ctx)
	if err != nil {
		return Identity{}, fmt.Errorf("failed to get current tenant: %w", err)
	}
	if !allowed(identity.Role) {
		log.Debugf("user %d with role %s denied in tenant %d", identity.UserId, identity.Role, identity.TenantId)
		return Identity{}, denied
	}
	return identity, nil
}
