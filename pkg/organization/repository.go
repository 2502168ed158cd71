package organization

import (
	"context"
	"errors"
	"fmt"

	"github.com/agencydesk/agencydesk/internal/apperror"
	"github.com/agencydesk/agencydesk/internal/database"
	"github.com/agencydesk/agencydesk/pkg/tenant"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

var ErrOrganizationNotFound = apperror.NotFound("organization")
var ErrMemberNotFound = apperror.NotFound("member")
var ErrSlugTaken = fmt.Errorf("organization slug is already taken: %w", apperror.ErrValidation)

const uniqueViolation = "23505"

type Repository interface {
	Create(ctx context.Context, org Organization, ownerUserId int) (Organization, error)
	Get(ctx context.Context, tenantId int) (Organization, error)
	List(ctx context.Context) ([]Organization, error)
	UpdateSubscriptionStatus(ctx context.Context, tenantId int, status SubscriptionStatus) (Organization, error)
	AddMember(ctx context.Context, member Member) error
	GetMember(ctx context.Context, tenantId int, userId int) (Member, error)
	CountMembers(ctx context.Context, tenantId int) (int, error)
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) Create(ctx context.Context, org Organization, ownerUserId int) (Organization, error) {
	err := database.WithTransaction(ctx, r.db, func(tx pgx.Tx) error {
		query := `INSERT INTO organization (name, slug, plan, subscription_status) VALUES ($1, $2, $3, $4) RETURNING id`
		if err := tx.QueryRow(ctx, query, org.Name, org.Slug, org.Plan, org.SubscriptionStatus).Scan(&org.Id); err != nil {
			return fmt.Errorf("could not insert organization: %w", err)
		}
		return addMember(ctx, tx, Member{TenantId: org.Id, UserId: ownerUserId, Role: tenant.RoleOwner})
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Organization{}, ErrSlugTaken
		}
		log.Error(err)
		return Organization{}, err
	}
	return org, nil
}

func (r *RepositoryImpl) Get(ctx context.Context, tenantId int) (Organization, error) {
	query := `SELECT id, name, slug, plan, subscription_status FROM organization WHERE id = $1`
	var org Organization
	err := r.db.QueryRow(ctx, query, tenantId).Scan(&org.Id, &org.Name, &org.Slug, &org.Plan, &org.SubscriptionStatus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Organization{}, ErrOrganizationNotFound
		}
		log.Error(err)
		return Organization{}, err
	}
	return org, nil
}

func (r *RepositoryImpl) List(ctx context.Context) ([]Organization, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, slug, plan, subscription_status FROM organization ORDER BY id`)
	if err != nil {
		log.Error(err)
		return nil, err
	}
	orgs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Organization, error) {
		var org Organization
		err := row.Scan(&org.Id, &org.Name, &org.Slug, &org.Plan, &org.SubscriptionStatus)
		return org, err
	})
	if err != nil {
		log.Error(err)
		return nil, err
	}
	return orgs, nil
}

func (r *RepositoryImpl) UpdateSubscriptionStatus(ctx context.Context, tenantId int, status SubscriptionStatus) (Organization, error) {
	query := `UPDATE organization SET subscription_status = $1 WHERE id = $2
			  RETURNING id, name, slug, plan, subscription_status`
	var org Organization
	err := r.db.QueryRow(ctx, query, status, tenantId).Scan(&org.Id, &org.Name, &org.Slug, &org.Plan, &org.SubscriptionStatus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Organization{}, ErrOrganizationNotFound
		}
		log.Error(err)
		return Organization{}, err
	}
	return org, nil
}

func (r *RepositoryImpl) AddMember(ctx context.Context, member Member) error {
	return addMember(ctx, r.db, member)
}

func addMember(ctx context.Context, q database.Queryer, member Member) error {
	query := `INSERT INTO member (tenant_id, user_id, role) VALUES ($1, $2, $3)
			  ON CONFLICT (tenant_id, user_id) DO UPDATE SET role = EXCLUDED.role`
	if _, err := q.Exec(ctx, query, member.TenantId, member.UserId, member.Role); err != nil {
		err = fmt.Errorf("could not store member: %w", err)
		log.Error(err)
		return err
	}
	return nil
}

func (r *RepositoryImpl) GetMember(ctx context.Context, tenantId int, userId int) (Member, error) {
	query := `SELECT tenant_id, user_id, role FROM member WHERE tenant_id = $1 AND user_id = $2`
	var member Member
	err := r.db.QueryRow(ctx, query, tenantId, userId).Scan(&member.TenantId, &member.UserId, &member.Role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Member{}, ErrMemberNotFound
		}
		log.Error(err)
		return Member{}, err
	}
	return member, nil
}

func (r *RepositoryImpl) CountMembers(ctx context.Context, tenantId int) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM member WHERE tenant_id = $1`, tenantId).Scan(&count)
	if err != nil {
		log.Error(err)
		return 0, err
	}
	return count, nil
}
