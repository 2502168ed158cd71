package task

import (
	"context"
	"testing"

	"github.com/agencydesk/agencydesk/internal/apperror"
	"github.com/agencydesk/agencydesk/pkg/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ctx = tenant.WithIdentity(context.Background(), tenant.Identity{TenantId: 1, UserId: 10, Role: tenant.RoleMember})

var repoStub = NewRepositoryStub()

func setup(t *testing.T) *ServiceImpl {
	t.Cleanup(repoStub.Cleanup)
	return NewService(repoStub)
}

func TestServiceImpl_Create(t *testing.T) {
	t.Run("should default status and priority", func(t *testing.T) {
		service := setup(t)

		created, err := service.Create(ctx, Task{Title: "Write GBP post"})

		require.NoError(t, err)
		assert.Equal(t, StatusTodo, created.Status)
		assert.Equal(t, PriorityMedium, created.Priority)
	})

	t.Run("should reject task without title", func(t *testing.T) {
		service := setup(t)

		_, err := service.Create(ctx, Task{})

		assert.ErrorIs(t, err, apperror.ErrValidation)
	})
}

func TestServiceImpl_BelongsToClient(t *testing.T) {
	service := setup(t)
	clientId := 5
	bound, err := service.Create(ctx, Task{Title: "Audit", ClientId: &clientId})
	require.NoError(t, err)
	internal, err := service.Create(ctx, Task{Title: "Team sync"})
	require.NoError(t, err)

	tests := []struct {
		name     string
		taskId   int
		clientId int
		want     bool
	}{
		{"same client", bound.Id, 5, true},
		{"other client", bound.Id, 6, false},
		{"task without client", internal.Id, 6, true},
		{"missing task", 999, 5, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := service.BelongsToClient(ctx, tt.taskId, tt.clientId)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestTask_Unassigned(t *testing.T) {
	assert.True(t, Task{}.Unassigned())
	assert.True(t, Task{Assignees: []string{UnassignedLabel}}.Unassigned())
	assert.False(t, Task{Assignees: []string{"Ana"}}.Unassigned())
}

func TestServiceImpl_Viewers(t *testing.T) {
	viewer := tenant.WithIdentity(context.Background(), tenant.Identity{TenantId: 1, UserId: 20, Role: tenant.RoleViewer})

	t.Run("should reject viewers creating tasks", func(t *testing.T) {
		service := setup(t)

		_, err := service.Create(viewer, Task{Title: "Write GBP post"})

		assert.ErrorIs(t, err, apperror.ErrForbidden)
		tasks, err := service.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, tasks)
	})

	t.Run("should reject viewers moving tasks", func(t *testing.T) {
		// given
		service := setup(t)
		created, err := service.Create(ctx, Task{Title: "Write GBP post"})
		require.NoError(t, err)

		// when
		_, err = service.UpdateStatus(viewer, created.Id, StatusDone)

		// then
		assert.ErrorIs(t, err, apperror.ErrForbidden)
		stored, err := service.Get(ctx, created.Id)
		require.NoError(t, err)
		assert.Equal(t, StatusTodo, stored.Status)
	})

	t.Run("should let viewers read tasks", func(t *testing.T) {
		service := setup(t)
		_, err := service.Create(ctx, Task{Title: "Write GBP post"})
		require.NoError(t, err)

		tasks, err := service.List(viewer)

		require.NoError(t, err)
		assert.Len(t, tasks, 1)
	})
}
