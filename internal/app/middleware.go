package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/agencydesk/agencydesk/internal/apperror"
	"github.com/agencydesk/agencydesk/internal/rest"
	"github.com/agencydesk/agencydesk/pkg/organization"
	"github.com/agencydesk/agencydesk/pkg/tenant"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const (
	tenantHeader = "X-Tenant-Id"
	userHeader   = "X-User-Id"
	// setupPath creates an organization, so the caller cannot be a member of one yet.
	setupPath = "/api/organization/setup"
)

type MemberLookup interface {
	GetMember(ctx context.Context, tenantId int, userId int) (organization.Member, error)
}

// SetupMiddleware wires all HTTP middlewares for the application.
func SetupMiddleware(r *mux.Router, members MemberLookup) {
	r.Use(identityMiddleware(members))
}

// identityMiddleware resolves X-Tenant-Id and X-User-Id into a tenant identity on the request
// context. Requests outside /api pass through untouched.
func identityMiddleware(members MemberLookup) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if !strings.HasPrefix(req.URL.Path, "/api/") {
				next.ServeHTTP(w, req)
				return
			}
			if req.URL.Path == setupPath {
				userId, err := strconv.Atoi(req.Header.Get(userHeader))
				if err != nil || userId <= 0 {
					rest.WriteError(w, tenant.ErrNoUser)
					return
				}
				next.ServeHTTP(w, req.WithContext(tenant.WithUser(req.Context(), userId)))
				return
			}

			tenantId, errT := strconv.Atoi(req.Header.Get(tenantHeader))
			userId, errU := strconv.Atoi(req.Header.Get(userHeader))
			if errT != nil || errU != nil {
				log.Debugf("missing or malformed identity headers on %s", req.URL.Path)
				rest.WriteError(w, tenant.ErrNoTenant)
				return
			}

			ctx := req.Context()
			member, err := members.GetMember(ctx, tenantId, userId)
			if err != nil {
				if errors.Is(err, organization.ErrMemberNotFound) {
					log.Debugf("user %d is not a member of tenant %d", userId, tenantId)
					rest.WriteError(w, fmt.Errorf("not a member: %w", apperror.ErrForbidden))
					return
				}
				log.Errorf("failed to get member: %v", err)
				rest.WriteError(w, err)
				return
			}

			ctx = tenant.WithIdentity(ctx, tenant.Identity{TenantId: member.TenantId, UserId: member.UserId, Role: member.Role})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
}
