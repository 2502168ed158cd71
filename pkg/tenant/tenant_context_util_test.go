package tenant

import (
	"context"
	"testing"

	"github.com/agencydesk/agencydesk/internal/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentIdentity(t *testing.T) {
	t.Run("should return identity stored in context", func(t *testing.T) {
		// given
		ctx := WithIdentity(context.Background(), Identity{TenantId: 7, UserId: 3, Role: RoleMember})

		// when
		tenantId, err := CurrentId(ctx)

		// then
		assert.NoError(t, err)
		assert.Equal(t, 7, tenantId)
	})

	t.Run("should fail when context has no tenant", func(t *testing.T) {
		_, err := CurrentId(context.Background())
		assert.ErrorIs(t, err, ErrNoTenant)
	})
}

func TestRole(t *testing.T) {
	assert.True(t, RoleMember.CanLogTime())
	assert.False(t, RoleViewer.CanLogTime())
	assert.True(t, RoleAdmin.CanManageEngagements())
	assert.False(t, RoleMember.CanManageEngagements())
	assert.False(t, Role("guest").Valid())
	assert.False(t, RoleViewer.CanContribute())
}

func as(role Role) context.Context {
	return WithIdentity(context.Background(), Identity{TenantId: 7, UserId: 3, Role: role})
}

func TestRoleGates(t *testing.T) {
	t.Run("should reject viewers as contributors", func(t *testing.T) {
		_, err := Contributor(as(RoleViewer))
		assert.ErrorIs(t, err, ErrReadOnly)
		assert.ErrorIs(t, err, apperror.ErrForbidden)
	})

	t.Run("should accept members as contributors", func(t *testing.T) {
		identity, err := Contributor(as(RoleMember))
		require.NoError(t, err)
		assert.Equal(t, 7, identity.TenantId)
	})

	t.Run("should accept only owners and admins as managers", func(t *testing.T) {
		_, err := Manager(as(RoleAdmin))
		assert.NoError(t, err)
		_, err = Manager(as(RoleMember))
		assert.ErrorIs(t, err, ErrNotManager)
	})

	t.Run("should accept only the owner as owner", func(t *testing.T) {
		_, err := Owner(as(RoleOwner))
		assert.NoError(t, err)
		_, err = Owner(as(RoleAdmin))
		assert.ErrorIs(t, err, ErrNotOwner)
	})

	t.Run("should report missing tenant before role", func(t *testing.T) {
		_, err := Contributor(context.Background())
		assert.ErrorIs(t, err, ErrNoTenant)
	})
}

func TestCurrentUserId(t *testing.T) {
	t.Run("should return user of a tenant identity", func(t *testing.T) {
		userId, err := CurrentUserId(as(RoleMember))
		require.NoError(t, err)
		assert.Equal(t, 3, userId)
	})

	t.Run("should return user without tenant", func(t *testing.T) {
		userId, err := CurrentUserId(WithUser(context.Background(), 12))
		require.NoError(t, err)
		assert.Equal(t, 12, userId)
	})

	t.Run("should fail without user", func(t *testing.T) {
		_, err := CurrentUserId(context.Background())
		assert.ErrorIs(t, err, ErrNoUser)
	})
}
