package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/ironladytech/onboarding/core"
	"github.com/ironladytech/onboarding/core/step"
	"github.com/ironladytech/onboarding/core/template"
	"github.com/ironladytech/onboarding/storage/database"
)

const templateColumns = "id, name, type, custom_email_type, subject, body, is_active, created_at, updated_at"

type templateRow struct {
	ID              string      `db:"id"`
	Name            string      `db:"name"`
	Type            string      `db:"type"`
	CustomEmailType null.String `db:"custom_email_type"`
	Subject         string      `db:"subject"`
	Body            string      `db:"body"`
	IsActive        bool        `db:"is_active"`
	CreatedAt       time.Time   `db:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at"`
}

func toTemplateRow(t template.EmailTemplate) templateRow {
	return templateRow{
		ID:              t.ID,
		Name:            t.Name,
		Type:            string(t.Type),
		CustomEmailType: null.StringFromPtr(t.CustomEmailType),
		Subject:         t.Subject,
		Body:            t.Body,
		IsActive:        t.IsActive,
		CreatedAt:       t.CreatedAt.UTC(),
		UpdatedAt:       t.UpdatedAt.UTC(),
	}
}

func (r templateRow) template() template.EmailTemplate {
	return template.EmailTemplate{
		ID:              r.ID,
		Name:            r.Name,
		Type:            template.Type(r.Type),
		CustomEmailType: r.CustomEmailType.Ptr(),
		Subject:         r.Subject,
		Body:            r.Body,
		IsActive:        r.IsActive,
		CreatedAt:       r.CreatedAt.UTC(),
		UpdatedAt:       r.UpdatedAt.UTC(),
	}
}

type templateRepository struct {
	db *sqlx.DB
}

var _ template.Repository = (*templateRepository)(nil)

func NewTemplateRepository(db *sqlx.DB) *templateRepository {
	return &templateRepository{db: db}
}

func (repo templateRepository) CreateTemplate(ctx context.Context, t template.EmailTemplate) (template.EmailTemplate, error) {
	q := `INSERT INTO email_templates (` + templateColumns + `)
		VALUES (:id, :name, :type, :custom_email_type, :subject, :body, :is_active, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, toTemplateRow(t)); err != nil {
		return template.EmailTemplate{}, errors.Wrap(err, "inserting email template")
	}
	return t, nil
}

func (repo templateRepository) GetTemplate(ctx context.Context, id string) (template.EmailTemplate, error) {
	if _, err := uuid.Parse(id); err != nil {
		return template.EmailTemplate{}, template.ErrNotFound
	}
	var row templateRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+templateColumns+" FROM email_templates WHERE id = $1", id); err != nil {
		if err == sql.ErrNoRows {
			return template.EmailTemplate{}, template.ErrNotFound
		}
		return template.EmailTemplate{}, errors.Wrap(err, "finding email template")
	}
	return row.template(), nil
}

var templateOrderFields = map[string]string{
	"name": "name", "type": "type", "created_at": "created_at", "updated_at": "updated_at",
}

func (repo templateRepository) QueryTemplates(ctx context.Context, filter template.QueryFilter, ordering []core.DBOrdering) ([]template.EmailTemplate, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Search != "" {
		val := "%" + filter.Search + "%"
		where = append(where, "(name ILIKE ? OR subject ILIKE ? OR custom_email_type ILIKE ?)")
		args = append(args, val, val, val)
	}
	if filter.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.IsActive != nil {
		where = append(where, "is_active = ?")
		args = append(args, *filter.IsActive)
	}

	q := "SELECT " + templateColumns + " FROM email_templates" + whereClause(where) +
		orderClause(ordering, templateOrderFields, "name ASC")
	var rows []templateRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying email templates")
	}
	tmpls := make([]template.EmailTemplate, 0, len(rows))
	for _, r := range rows {
		tmpls = append(tmpls, r.template())
	}
	return tmpls, nil
}

func (repo templateRepository) UpdateTemplate(ctx context.Context, t template.EmailTemplate) (template.EmailTemplate, error) {
	q := `UPDATE email_templates SET name = :name, type = :type, custom_email_type = :custom_email_type,
		subject = :subject, body = :body, is_active = :is_active, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, toTemplateRow(t))
	if err != nil {
		return template.EmailTemplate{}, errors.Wrap(err, "updating email template")
	}
	if err = checkAffected(res, template.ErrNotFound); err != nil {
		return template.EmailTemplate{}, err
	}
	return t, nil
}

func (repo templateRepository) DeleteTemplate(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return template.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, "DELETE FROM email_templates WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting email template")
	}
	return checkAffected(res, template.ErrNotFound)
}

func (repo templateRepository) CountStepReferences(ctx context.Context, id string) (int, error) {
	if _, err := uuid.Parse(id); err != nil {
		return 0, nil
	}
	var n int
	err := repo.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM department_steps WHERE email_template_id = $1", id)
	return n, errors.Wrap(err, "counting step references")
}

const stepColumns = `id, department, step_number, type, title, description, custom_email_type, is_auto,
	due_date_offset, scheduled_time, email_template_id, priority, duration_minutes, created_at, updated_at`

type stepRow struct {
	ID              string      `db:"id"`
	Department      string      `db:"department"`
	StepNumber      int         `db:"step_number"`
	Type            string      `db:"type"`
	Title           string      `db:"title"`
	Description     string      `db:"description"`
	CustomEmailType null.String `db:"custom_email_type"`
	IsAuto          bool        `db:"is_auto"`
	DueDateOffset   int         `db:"due_date_offset"`
	ScheduledTime   null.String `db:"scheduled_time"`
	EmailTemplateID string      `db:"email_template_id"`
	Priority        string      `db:"priority"`
	DurationMinutes int         `db:"duration_minutes"`
	CreatedAt       time.Time   `db:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at"`
}

func toStepRow(s step.Step) stepRow {
	return stepRow{
		ID:              s.ID,
		Department:      s.Department,
		StepNumber:      s.StepNumber,
		Type:            string(s.Type),
		Title:           s.Title,
		Description:     s.Description,
		CustomEmailType: null.StringFromPtr(s.CustomEmailType),
		IsAuto:          s.IsAuto,
		DueDateOffset:   s.DueDateOffset,
		ScheduledTime:   null.StringFromPtr(s.ScheduledTime),
		EmailTemplateID: s.EmailTemplateID,
		Priority:        string(s.Priority),
		DurationMinutes: s.DurationMinutes,
		CreatedAt:       s.CreatedAt.UTC(),
		UpdatedAt:       s.UpdatedAt.UTC(),
	}
}

func (r stepRow) step() step.Step {
	return step.Step{
		ID:              r.ID,
		Department:      r.Department,
		StepNumber:      r.StepNumber,
		Type:            template.Type(r.Type),
		Title:           r.Title,
		Description:     r.Description,
		CustomEmailType: r.CustomEmailType.Ptr(),
		IsAuto:          r.IsAuto,
		DueDateOffset:   r.DueDateOffset,
		ScheduledTime:   r.ScheduledTime.Ptr(),
		EmailTemplateID: r.EmailTemplateID,
		Priority:        step.Priority(r.Priority),
		DurationMinutes: r.DurationMinutes,
		CreatedAt:       r.CreatedAt.UTC(),
		UpdatedAt:       r.UpdatedAt.UTC(),
	}
}

// stepRepository keeps step numbers contiguous per department. Renumbering happens in
// transactions; the (department, step_number) unique constraint is checked at commit.
type stepRepository struct {
	db *sqlx.DB
}

var _ step.Repository = (*stepRepository)(nil)

func NewStepRepository(db *sqlx.DB) *stepRepository {
	return &stepRepository{db: db}
}

// lockDepartment serializes writers of one department until the transaction ends.
func lockDepartment(ctx context.Context, tx *sqlx.Tx, department string) error {
	_, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", department)
	return errors.Wrap(err, "locking department steps")
}

func (repo stepRepository) CreateSteps(ctx context.Context, steps ...step.Step) ([]step.Step, error) {
	var created []step.Step
	err := database.WithTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		var err error
		created, err = createSteps(ctx, tx, steps, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (repo stepRepository) InitSteps(ctx context.Context, department string, steps ...step.Step) ([]step.Step, error) {
	var created []step.Step
	err := database.WithTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if err := lockDepartment(ctx, tx, department); err != nil {
			return err
		}
		var n int
		if err := tx.GetContext(ctx, &n, "SELECT COUNT(*) FROM department_steps WHERE department = $1", department); err != nil {
			return errors.Wrap(err, "counting department steps")
		}
		if n > 0 {
			return step.ErrAlreadyInit
		}
		var err error
		created, err = createSteps(ctx, tx, steps, true)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// createSteps appends steps after the last step of their department. locked reports
// whether tx already holds the lock of every department in steps.
func createSteps(ctx context.Context, tx *sqlx.Tx, steps []step.Step, locked bool) ([]step.Step, error) {
	created := make([]step.Step, 0, len(steps))
	next := make(map[string]int)
	for _, s := range steps {
		if _, ok := next[s.Department]; !ok {
			if !locked {
				if err := lockDepartment(ctx, tx, s.Department); err != nil {
					return nil, err
				}
			}
			var last int
			q := "SELECT COALESCE(MAX(step_number), 0) FROM department_steps WHERE department = $1"
			if err := tx.GetContext(ctx, &last, q, s.Department); err != nil {
				return nil, errors.Wrap(err, "reading last step number")
			}
			next[s.Department] = last + 1
		}
		s.StepNumber = next[s.Department]
		next[s.Department]++

		q := `INSERT INTO department_steps (` + stepColumns + `) VALUES (:id, :department, :step_number, :type,
			:title, :description, :custom_email_type, :is_auto, :due_date_offset, :scheduled_time,
			:email_template_id, :priority, :duration_minutes, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, q, toStepRow(s)); err != nil {
			return nil, errors.Wrap(err, "inserting department step")
		}
		created = append(created, s)
	}
	return created, nil
}

func (repo stepRepository) GetStep(ctx context.Context, id string) (step.Step, error) {
	return getStep(ctx, repo.db, id, false)
}

func getStep(ctx context.Context, q sqlx.QueryerContext, id string, forUpdate bool) (step.Step, error) {
	if _, err := uuid.Parse(id); err != nil {
		return step.Step{}, step.ErrNotFound
	}
	query := "SELECT " + stepColumns + " FROM department_steps WHERE id = $1"
	if forUpdate {
		query += " FOR UPDATE"
	}
	var row stepRow
	if err := sqlx.GetContext(ctx, q, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return step.Step{}, step.ErrNotFound
		}
		return step.Step{}, errors.Wrap(err, "finding department step")
	}
	return row.step(), nil
}

func (repo stepRepository) ListSteps(ctx context.Context, department string) ([]step.Step, error) {
	var rows []stepRow
	q := "SELECT " + stepColumns + " FROM department_steps WHERE department = $1 ORDER BY step_number"
	if err := repo.db.SelectContext(ctx, &rows, q, department); err != nil {
		return nil, errors.Wrap(err, "listing department steps")
	}
	steps := make([]step.Step, 0, len(rows))
	for _, r := range rows {
		steps = append(steps, r.step())
	}
	return steps, nil
}

// UpdateStep saves everything but the position of s.
func (repo stepRepository) UpdateStep(ctx context.Context, s step.Step) (step.Step, error) {
	q := `UPDATE department_steps SET type = :type, title = :title, description = :description,
		custom_email_type = :custom_email_type, is_auto = :is_auto, due_date_offset = :due_date_offset,
		scheduled_time = :scheduled_time, email_template_id = :email_template_id, priority = :priority,
		duration_minutes = :duration_minutes, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, toStepRow(s))
	if err != nil {
		return step.Step{}, errors.Wrap(err, "updating department step")
	}
	if err = checkAffected(res, step.ErrNotFound); err != nil {
		return step.Step{}, err
	}
	return repo.GetStep(ctx, s.ID)
}

func (repo stepRepository) DeleteStep(ctx context.Context, id string) error {
	return database.WithTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		s, err := getStep(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if err = lockDepartment(ctx, tx, s.Department); err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx, "DELETE FROM department_steps WHERE id = $1", id); err != nil {
			return errors.Wrap(err, "deleting department step")
		}
		q := `UPDATE department_steps SET step_number = step_number - 1, updated_at = $1
			WHERE department = $2 AND step_number > $3`
		if _, err = tx.ExecContext(ctx, q, core.NowFunc().UTC(), s.Department, s.StepNumber); err != nil {
			return errors.Wrap(err, "renumbering department steps")
		}
		return nil
	})
}

func (repo stepRepository) SwapSteps(ctx context.Context, aID, bID string) error {
	return database.WithTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		a, err := getStep(ctx, tx, aID, true)
		if err != nil {
			return err
		}
		b, err := getStep(ctx, tx, bID, true)
		if err != nil {
			return err
		}
		diff := a.StepNumber - b.StepNumber
		if a.Department != b.Department || (diff != 1 && diff != -1) {
			return step.ErrNotAdjacent
		}

		now := core.NowFunc().UTC()
		q := "UPDATE department_steps SET step_number = $1, updated_at = $2 WHERE id = $3"
		if _, err = tx.ExecContext(ctx, q, b.StepNumber, now, a.ID); err != nil {
			return errors.Wrap(err, "moving department step")
		}
		if _, err = tx.ExecContext(ctx, q, a.StepNumber, now, b.ID); err != nil {
			return errors.Wrap(err, "moving department step")
		}
		return nil
	})
}

func (repo stepRepository) Departments(ctx context.Context) ([]string, error) {
	var deps []string
	if err := repo.db.SelectContext(ctx, &deps, "SELECT DISTINCT department FROM department_steps ORDER BY department"); err != nil {
		return nil, errors.Wrap(err, "listing departments")
	}
	if deps == nil {
		deps = []string{}
	}
	return deps, nil
}
