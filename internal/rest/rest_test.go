package rest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/agencydesk/agencydesk/internal/apperror"
	"github.com/agencydesk/agencydesk/pkg/tenant"
	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperror.Invalid("hours", "must be a positive number"), http.StatusBadRequest},
		{fmt.Errorf("load: %w", apperror.NotFound("deliverable")), http.StatusNotFound},
		{apperror.ErrConcurrencyConflict, http.StatusConflict},
		{fmt.Errorf("failed to get current tenant: %w", tenant.ErrNoTenant), http.StatusForbidden},
		{tenant.ErrReadOnly, http.StatusForbidden},
		{tenant.ErrNoUser, http.StatusForbidden},
		{fmt.Errorf("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteError(rec, apperror.ErrConcurrencyConflict)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"error":"Conflict","details":"concurrency conflict"}`, rec.Body.String())
}
