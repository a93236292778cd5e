package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/ironladytech/onboarding/core"
	"github.com/ironladytech/onboarding/core/activity"
	"github.com/ironladytech/onboarding/core/candidate"
	"github.com/ironladytech/onboarding/core/settings"
)

const candidateColumns = `id, name, email, phone, department, position, expected_joining_date,
	offer_sent_at, status, notes, created_at, updated_at`

type candidateRow struct {
	ID                  string    `db:"id"`
	Name                string    `db:"name"`
	Email               string    `db:"email"`
	Phone               string    `db:"phone"`
	Department          string    `db:"department"`
	Position            string    `db:"position"`
	ExpectedJoiningDate null.Time `db:"expected_joining_date"`
	OfferSentAt         null.Time `db:"offer_sent_at"`
	Status              string    `db:"status"`
	Notes               string    `db:"notes"`
	CreatedAt           time.Time `db:"created_at"`
	UpdatedAt           time.Time `db:"updated_at"`
}

func toCandidateRow(c candidate.Candidate) candidateRow {
	r := candidateRow{
		ID:          c.ID,
		Name:        c.Name,
		Email:       c.Email,
		Phone:       c.Phone,
		Department:  c.Department,
		Position:    c.Position,
		OfferSentAt: nullUTC(c.OfferSentAt),
		Status:      string(c.Status),
		Notes:       c.Notes,
		CreatedAt:   c.CreatedAt.UTC(),
		UpdatedAt:   c.UpdatedAt.UTC(),
	}
	if c.ExpectedJoiningDate != nil {
		r.ExpectedJoiningDate = null.TimeFrom(c.ExpectedJoiningDate.Time)
	}
	return r
}

func (r candidateRow) candidate() candidate.Candidate {
	c := candidate.Candidate{
		ID:          r.ID,
		Name:        r.Name,
		Email:       r.Email,
		Phone:       r.Phone,
		Department:  r.Department,
		Position:    r.Position,
		OfferSentAt: utcPtr(r.OfferSentAt),
		Status:      candidate.Status(r.Status),
		Notes:       r.Notes,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
	if r.ExpectedJoiningDate.Valid {
		d := core.DateOf(r.ExpectedJoiningDate.Time)
		c.ExpectedJoiningDate = &d
	}
	return c
}

type candidateRepository struct {
	db *sqlx.DB
}

var _ candidate.Repository = (*candidateRepository)(nil)

func NewCandidateRepository(db *sqlx.DB) *candidateRepository {
	return &candidateRepository{db: db}
}

func (repo candidateRepository) CreateCandidate(ctx context.Context, c candidate.Candidate) (candidate.Candidate, error) {
	q := `INSERT INTO candidates (` + candidateColumns + `) VALUES (:id, :name, :email, :phone, :department,
		:position, :expected_joining_date, :offer_sent_at, :status, :notes, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, toCandidateRow(c)); err != nil {
		return candidate.Candidate{}, errors.Wrap(err, "inserting candidate")
	}
	return c, nil
}

func (repo candidateRepository) GetCandidate(ctx context.Context, id string) (candidate.Candidate, error) {
	if _, err := uuid.Parse(id); err != nil {
		return candidate.Candidate{}, candidate.ErrNotFound
	}
	var row candidateRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+candidateColumns+" FROM candidates WHERE id = $1", id); err != nil {
		if err == sql.ErrNoRows {
			return candidate.Candidate{}, candidate.ErrNotFound
		}
		return candidate.Candidate{}, errors.Wrap(err, "finding candidate")
	}
	return row.candidate(), nil
}

var candidateOrderFields = map[string]string{
	"name": "name", "department": "department", "status": "status",
	"expected_joining_date": "expected_joining_date", "created_at": "created_at",
}

func (repo candidateRepository) QueryCandidates(
	ctx context.Context,
	filter candidate.QueryFilter,
	ordering []core.DBOrdering,
	page core.Pagination,
) ([]candidate.Candidate, int, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Search != "" {
		val := "%" + filter.Search + "%"
		where = append(where, "(name ILIKE ? OR email ILIKE ? OR position ILIKE ?)")
		args = append(args, val, val, val)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		where = append(where, "status = ANY(?)")
		args = append(args, pq.StringArray(statuses))
	}
	if filter.Department != "" {
		where = append(where, "department = ?")
		args = append(args, filter.Department)
	}
	if filter.JoiningFrom != nil {
		where = append(where, "expected_joining_date >= ?")
		args = append(args, filter.JoiningFrom.String())
	}
	if filter.JoiningTo != nil {
		where = append(where, "expected_joining_date <= ?")
		args = append(args, filter.JoiningTo.String())
	}

	var total int
	countQ := repo.db.Rebind("SELECT COUNT(*) FROM candidates" + whereClause(where))
	if err := repo.db.GetContext(ctx, &total, countQ, args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting candidates")
	}

	q := "SELECT " + candidateColumns + " FROM candidates" + whereClause(where) +
		orderClause(ordering, candidateOrderFields, "created_at DESC") + " LIMIT ? OFFSET ?"
	args = append(args, page.Limit(), page.Offset())
	var rows []candidateRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, 0, errors.Wrap(err, "querying candidates")
	}
	cands := make([]candidate.Candidate, 0, len(rows))
	for _, r := range rows {
		cands = append(cands, r.candidate())
	}
	return cands, total, nil
}

func (repo candidateRepository) UpdateCandidate(ctx context.Context, c candidate.Candidate) (candidate.Candidate, error) {
	q := `UPDATE candidates SET name = :name, email = :email, phone = :phone, department = :department,
		position = :position, expected_joining_date = :expected_joining_date, offer_sent_at = :offer_sent_at,
		status = :status, notes = :notes, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, toCandidateRow(c))
	if err != nil {
		return candidate.Candidate{}, errors.Wrap(err, "updating candidate")
	}
	if err = checkAffected(res, candidate.ErrNotFound); err != nil {
		return candidate.Candidate{}, err
	}
	return c, nil
}

func (repo candidateRepository) CountByStatus(ctx context.Context) ([]candidate.StatusCount, error) {
	var rows []struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}
	if err := repo.db.SelectContext(ctx, &rows, "SELECT status, COUNT(*) AS count FROM candidates GROUP BY status"); err != nil {
		return nil, errors.Wrap(err, "counting candidates by status")
	}
	counts := make([]candidate.StatusCount, 0, len(rows))
	for _, r := range rows {
		counts = append(counts, candidate.StatusCount{Status: candidate.Status(r.Status), Count: r.Count})
	}
	return counts, nil
}

type activityRow struct {
	ID          string      `db:"id"`
	CandidateID null.String `db:"candidate_id"`
	Action      string      `db:"action"`
	Message     string      `db:"message"`
	Actor       string      `db:"actor"`
	CreatedAt   time.Time   `db:"created_at"`
}

type activityRepository struct {
	db *sqlx.DB
}

var _ activity.Repository = (*activityRepository)(nil)

func NewActivityRepository(db *sqlx.DB) *activityRepository {
	return &activityRepository{db: db}
}

func (repo activityRepository) CreateLog(ctx context.Context, l activity.Log) (activity.Log, error) {
	row := activityRow{
		ID:          l.ID,
		CandidateID: nullID(&l.CandidateID),
		Action:      string(l.Action),
		Message:     l.Message,
		Actor:       l.Actor,
		CreatedAt:   l.CreatedAt.UTC(),
	}
	q := `INSERT INTO activity_logs (id, candidate_id, action, message, actor, created_at)
		VALUES (:id, :candidate_id, :action, :message, :actor, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return activity.Log{}, errors.Wrap(err, "inserting activity log")
	}
	return l, nil
}

func (repo activityRepository) QueryLogs(ctx context.Context, candidateID string, limit int) ([]activity.Log, error) {
	var (
		where []string
		args  []interface{}
	)
	if candidateID != "" {
		if _, err := uuid.Parse(candidateID); err != nil {
			return []activity.Log{}, nil
		}
		where = append(where, "candidate_id = ?")
		args = append(args, candidateID)
	}
	q := "SELECT id, candidate_id, action, message, actor, created_at FROM activity_logs" +
		whereClause(where) + " ORDER BY created_at DESC"
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	var rows []activityRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying activity logs")
	}
	logs := make([]activity.Log, 0, len(rows))
	for _, r := range rows {
		logs = append(logs, activity.Log{
			ID:          r.ID,
			CandidateID: r.CandidateID.String,
			Action:      activity.Action(r.Action),
			Message:     r.Message,
			Actor:       r.Actor,
			CreatedAt:   r.CreatedAt.UTC(),
		})
	}
	return logs, nil
}

type settingsRow struct {
	CompanyName        string         `db:"company_name"`
	HRName             string         `db:"hr_name"`
	HREmail            string         `db:"hr_email"`
	HRPhone            string         `db:"hr_phone"`
	OfficeAddress      string         `db:"office_address"`
	PrimaryColor       string         `db:"primary_color"`
	CustomPlaceholders types.JSONText `db:"custom_placeholders"`
	UpdatedAt          time.Time      `db:"updated_at"`
}

type settingsRepository struct {
	db *sqlx.DB
}

var _ settings.Repository = (*settingsRepository)(nil)

func NewSettingsRepository(db *sqlx.DB) *settingsRepository {
	return &settingsRepository{db: db}
}

func (repo settingsRepository) GetSettings(ctx context.Context) (settings.Settings, error) {
	var row settingsRow
	q := `SELECT company_name, hr_name, hr_email, hr_phone, office_address, primary_color,
		custom_placeholders, updated_at FROM settings WHERE id = 1`
	if err := repo.db.GetContext(ctx, &row, q); err != nil {
		if err == sql.ErrNoRows {
			return settings.Settings{}, settings.ErrNotFound
		}
		return settings.Settings{}, errors.Wrap(err, "getting settings")
	}

	s := settings.Settings{
		CompanyName:   row.CompanyName,
		HRName:        row.HRName,
		HREmail:       row.HREmail,
		HRPhone:       row.HRPhone,
		OfficeAddress: row.OfficeAddress,
		PrimaryColor:  row.PrimaryColor,
		UpdatedAt:     row.UpdatedAt.UTC(),
	}
	if err := row.CustomPlaceholders.Unmarshal(&s.CustomPlaceholders); err != nil {
		return settings.Settings{}, errors.Wrap(err, "decoding custom placeholders")
	}
	return s, nil
}

func (repo settingsRepository) SaveSettings(ctx context.Context, s settings.Settings) (settings.Settings, error) {
	custom := s.CustomPlaceholders
	if custom == nil {
		custom = map[string]string{}
	}
	raw, err := json.Marshal(custom)
	if err != nil {
		return settings.Settings{}, errors.Wrap(err, "encoding custom placeholders")
	}
	row := settingsRow{
		CompanyName:        s.CompanyName,
		HRName:             s.HRName,
		HREmail:            s.HREmail,
		HRPhone:            s.HRPhone,
		OfficeAddress:      s.OfficeAddress,
		PrimaryColor:       s.PrimaryColor,
		CustomPlaceholders: types.JSONText(raw),
		UpdatedAt:          s.UpdatedAt.UTC(),
	}
	q := `INSERT INTO settings (id, company_name, hr_name, hr_email, hr_phone, office_address, primary_color,
			custom_placeholders, updated_at)
		VALUES (1, :company_name, :hr_name, :hr_email, :hr_phone, :office_address, :primary_color,
			:custom_placeholders, :updated_at)
		ON CONFLICT (id) DO UPDATE SET company_name = EXCLUDED.company_name, hr_name = EXCLUDED.hr_name,
			hr_email = EXCLUDED.hr_email, hr_phone = EXCLUDED.hr_phone, office_address = EXCLUDED.office_address,
			primary_color = EXCLUDED.primary_color, custom_placeholders = EXCLUDED.custom_placeholders,
			updated_at = EXCLUDED.updated_at`
	if _, err = repo.db.NamedExecContext(ctx, q, row); err != nil {
		return settings.Settings{}, errors.Wrap(err, "saving settings")
	}
	return s, nil
}
