package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/ironladytech/onboarding/core/task"
)

const taskColumns = "id, candidate_id, title, description, due_at, status, snoozed_until, completed_at, created_at, updated_at"

type taskRow struct {
	ID           string      `db:"id"`
	CandidateID  null.String `db:"candidate_id"`
	Title        string      `db:"title"`
	Description  string      `db:"description"`
	DueAt        time.Time   `db:"due_at"`
	Status       string      `db:"status"`
	SnoozedUntil null.Time   `db:"snoozed_until"`
	CompletedAt  null.Time   `db:"completed_at"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
}

func toTaskRow(t task.Task) taskRow {
	return taskRow{
		ID:           t.ID,
		CandidateID:  nullID(t.CandidateID),
		Title:        t.Title,
		Description:  t.Description,
		DueAt:        t.DueAt.UTC(),
		Status:       string(t.Status),
		SnoozedUntil: nullUTC(t.SnoozedUntil),
		CompletedAt:  nullUTC(t.CompletedAt),
		CreatedAt:    t.CreatedAt.UTC(),
		UpdatedAt:    t.UpdatedAt.UTC(),
	}
}

func (r taskRow) task() task.Task {
	return task.Task{
		ID:           r.ID,
		CandidateID:  r.CandidateID.Ptr(),
		Title:        r.Title,
		Description:  r.Description,
		DueAt:        r.DueAt.UTC(),
		Status:       task.Status(r.Status),
		SnoozedUntil: utcPtr(r.SnoozedUntil),
		CompletedAt:  utcPtr(r.CompletedAt),
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

type taskRepository struct {
	db *sqlx.DB
}

var _ task.Repository = (*taskRepository)(nil)

func NewTaskRepository(db *sqlx.DB) *taskRepository {
	return &taskRepository{db: db}
}

func (repo taskRepository) CreateTask(ctx context.Context, t task.Task) (task.Task, error) {
	q := `INSERT INTO tasks (` + taskColumns + `) VALUES (:id, :candidate_id, :title, :description, :due_at,
		:status, :snoozed_until, :completed_at, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, toTaskRow(t)); err != nil {
		return task.Task{}, errors.Wrap(err, "inserting task")
	}
	return t, nil
}

func (repo taskRepository) GetTask(ctx context.Context, id string) (task.Task, error) {
	if _, err := uuid.Parse(id); err != nil {
		return task.Task{}, task.ErrNotFound
	}
	var row taskRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+taskColumns+" FROM tasks WHERE id = $1", id); err != nil {
		if err == sql.ErrNoRows {
			return task.Task{}, task.ErrNotFound
		}
		return task.Task{}, errors.Wrap(err, "finding task")
	}
	return row.task(), nil
}

// dueTimeExpr mirrors Task.DueTime.
const dueTimeExpr = "GREATEST(due_at, COALESCE(snoozed_until, due_at))"

func (repo taskRepository) QueryTasks(ctx context.Context, filter task.QueryFilter) ([]task.Task, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.CandidateID != "" {
		if _, err := uuid.Parse(filter.CandidateID); err != nil {
			return []task.Task{}, nil
		}
		where = append(where, "candidate_id = ?")
		args = append(args, filter.CandidateID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.DueBefore != nil {
		where = append(where, dueTimeExpr+" < ?")
		args = append(args, filter.DueBefore.UTC())
	}

	q := "SELECT " + taskColumns + " FROM tasks" + whereClause(where) + " ORDER BY " + dueTimeExpr + " ASC"
	var rows []taskRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying tasks")
	}
	tasks := make([]task.Task, 0, len(rows))
	for _, r := range rows {
		tasks = append(tasks, r.task())
	}
	return tasks, nil
}

func (repo taskRepository) UpdateTask(ctx context.Context, t task.Task) (task.Task, error) {
	q := `UPDATE tasks SET candidate_id = :candidate_id, title = :title, description = :description,
		due_at = :due_at, status = :status, snoozed_until = :snoozed_until, completed_at = :completed_at,
		updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, toTaskRow(t))
	if err != nil {
		return task.Task{}, errors.Wrap(err, "updating task")
	}
	if err = checkAffected(res, task.ErrNotFound); err != nil {
		return task.Task{}, err
	}
	return t, nil
}

func (repo taskRepository) DeleteTask(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return task.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting task")
	}
	return checkAffected(res, task.ErrNotFound)
}
