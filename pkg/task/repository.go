package task

import (
	"context"
	"errors"
	"fmt"

	"github.com/agencydesk/agencydesk/internal/apperror"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

var ErrTaskNotFound = apperror.NotFound("task")

type Repository interface {
	Create(ctx context.Context, tenantId int, t Task) (Task, error)
	Get(ctx context.Context, tenantId int, id int) (Task, error)
	List(ctx context.Context, tenantId int) ([]Task, error)
	UpdateStatus(ctx context.Context, tenantId int, id int, status Status) (Task, error)
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

const selectTask = `SELECT id, tenant_id, engagement_id, title, status, priority, assignees, due_date FROM task`

func scanTask(row pgx.Row) (Task, error) {
	var t Task
	err := row.Scan(&t.Id, &t.TenantId, &t.ClientId, &t.Title, &t.Status, &t.Priority, &t.Assignees, &t.DueDate)
	return t, err
}

func (r *RepositoryImpl) Create(ctx context.Context, tenantId int, t Task) (Task, error) {
	query := `INSERT INTO task (tenant_id, engagement_id, title, status, priority, assignees, due_date)
			  VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	if t.Assignees == nil {
		t.Assignees = []string{}
	}
	err := r.db.QueryRow(ctx, query, tenantId, t.ClientId, t.Title, t.Status, t.Priority, t.Assignees, t.DueDate).Scan(&t.Id)
	if err != nil {
		err = fmt.Errorf("could not insert task: %w", err)
		log.Error(err)
		return Task{}, err
	}
	t.TenantId = tenantId
	return t, nil
}

func (r *RepositoryImpl) Get(ctx context.Context, tenantId int, id int) (Task, error) {
	t, err := scanTask(r.db.QueryRow(ctx, selectTask+` WHERE tenant_id = $1 AND id = $2`, tenantId, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Task{}, ErrTaskNotFound
		}
		log.Error(err)
		return Task{}, err
	}
	return t, nil
}

func (r *RepositoryImpl) List(ctx context.Context, tenantId int) ([]Task, error) {
	rows, err := r.db.Query(ctx, selectTask+` WHERE tenant_id = $1 ORDER BY id`, tenantId)
	if err != nil {
		log.Error(err)
		return nil, err
	}
	tasks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Task, error) {
		return scanTask(row)
	})
	if err != nil {
		log.Error(err)
		return nil, err
	}
	return tasks, nil
}

func (r *RepositoryImpl) UpdateStatus(ctx context.Context, tenantId int, id int, status Status) (Task, error) {
	query := `UPDATE task SET status = $1 WHERE tenant_id = $2 AND id = $3
			  RETURNING id, tenant_id, engagement_id, title, status, priority, assignees, due_date`
	t, err := scanTask(r.db.QueryRow(ctx, query, status, tenantId, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Task{}, ErrTaskNotFound
		}
		log.Error(err)
		return Task{}, err
	}
	return t, nil
}
