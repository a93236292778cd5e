package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/ironladytech/onboarding/core"
	"github.com/ironladytech/onboarding/core/email"
	"github.com/ironladytech/onboarding/core/event"
	"github.com/ironladytech/onboarding/core/template"
)

const eventColumns = `id, candidate_id, step_id, step_number, type, title, description, start_time, end_time,
	status, computed, meeting_link, calendar_ref, attachments, created_at, updated_at`

type eventRow struct {
	ID          string         `db:"id"`
	CandidateID string         `db:"candidate_id"`
	StepID      null.String    `db:"step_id"`
	StepNumber  int            `db:"step_number"`
	Type        string         `db:"type"`
	Title       string         `db:"title"`
	Description string         `db:"description"`
	StartTime   time.Time      `db:"start_time"`
	EndTime     time.Time      `db:"end_time"`
	Status      string         `db:"status"`
	Computed    bool           `db:"computed"`
	MeetingLink string         `db:"meeting_link"`
	CalendarRef string         `db:"calendar_ref"`
	Attachments types.JSONText `db:"attachments"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func toEventRow(e event.ScheduledEvent) (eventRow, error) {
	attachments := e.Attachments
	if attachments == nil {
		attachments = []core.FileRef{}
	}
	raw, err := json.Marshal(attachments)
	if err != nil {
		return eventRow{}, errors.Wrap(err, "encoding attachments")
	}
	return eventRow{
		ID:          e.ID,
		CandidateID: e.CandidateID,
		StepID:      nullID(e.StepID),
		StepNumber:  e.StepNumber,
		Type:        string(e.Type),
		Title:       e.Title,
		Description: e.Description,
		StartTime:   e.StartTime.UTC(),
		EndTime:     e.EndTime.UTC(),
		Status:      string(e.Status),
		Computed:    e.Computed,
		MeetingLink: e.MeetingLink,
		CalendarRef: e.CalendarRef,
		Attachments: types.JSONText(raw),
		CreatedAt:   e.CreatedAt.UTC(),
		UpdatedAt:   e.UpdatedAt.UTC(),
	}, nil
}

func (r eventRow) event() (event.ScheduledEvent, error) {
	e := event.ScheduledEvent{
		ID:          r.ID,
		CandidateID: r.CandidateID,
		StepID:      r.StepID.Ptr(),
		StepNumber:  r.StepNumber,
		Type:        template.Type(r.Type),
		Title:       r.Title,
		Description: r.Description,
		StartTime:   r.StartTime.UTC(),
		EndTime:     r.EndTime.UTC(),
		Status:      event.Status(r.Status),
		Computed:    r.Computed,
		MeetingLink: r.MeetingLink,
		CalendarRef: r.CalendarRef,
		Attachments: []core.FileRef{},
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
	if len(r.Attachments) > 0 {
		if err := r.Attachments.Unmarshal(&e.Attachments); err != nil {
			return event.ScheduledEvent{}, errors.Wrap(err, "decoding attachments")
		}
	}
	return e, nil
}

type eventRepository struct {
	db *sqlx.DB
}

var _ event.Repository = (*eventRepository)(nil)

func NewEventRepository(db *sqlx.DB) *eventRepository {
	return &eventRepository{db: db}
}

func (repo eventRepository) CreateEvent(ctx context.Context, e event.ScheduledEvent) (event.ScheduledEvent, error) {
	row, err := toEventRow(e)
	if err != nil {
		return event.ScheduledEvent{}, err
	}
	q := `INSERT INTO scheduled_events (` + eventColumns + `) VALUES (:id, :candidate_id, :step_id, :step_number,
		:type, :title, :description, :start_time, :end_time, :status, :computed, :meeting_link, :calendar_ref,
		:attachments, :created_at, :updated_at)`
	if _, err = repo.db.NamedExecContext(ctx, q, row); err != nil {
		return event.ScheduledEvent{}, errors.Wrap(err, "inserting scheduled event")
	}
	return e, nil
}

func (repo eventRepository) GetEvent(ctx context.Context, id string) (event.ScheduledEvent, error) {
	if _, err := uuid.Parse(id); err != nil {
		return event.ScheduledEvent{}, event.ErrNotFound
	}
	var row eventRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+eventColumns+" FROM scheduled_events WHERE id = $1", id); err != nil {
		if err == sql.ErrNoRows {
			return event.ScheduledEvent{}, event.ErrNotFound
		}
		return event.ScheduledEvent{}, errors.Wrap(err, "finding scheduled event")
	}
	return row.event()
}

var eventOrderFields = map[string]string{
	"start_time": "start_time", "created_at": "created_at", "step_number": "step_number",
}

func (repo eventRepository) QueryEvents(ctx context.Context, filter event.QueryFilter, ordering []core.DBOrdering) ([]event.ScheduledEvent, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.CandidateID != "" {
		if _, err := uuid.Parse(filter.CandidateID); err != nil {
			return []event.ScheduledEvent{}, nil
		}
		where = append(where, "candidate_id = ?")
		args = append(args, filter.CandidateID)
	}
	if filter.StepID != "" {
		if _, err := uuid.Parse(filter.StepID); err != nil {
			return []event.ScheduledEvent{}, nil
		}
		where = append(where, "step_id = ?")
		args = append(args, filter.StepID)
	}
	if filter.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(filter.Type))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		in, inArgs, err := sqlx.In("status IN (?)", statuses)
		if err != nil {
			return nil, errors.Wrap(err, "building status filter")
		}
		where = append(where, in)
		args = append(args, inArgs...)
	}
	if filter.From != nil {
		where = append(where, "start_time >= ?")
		args = append(args, filter.From.UTC())
	}
	if filter.To != nil {
		where = append(where, "start_time < ?")
		args = append(args, filter.To.UTC())
	}

	q := "SELECT " + eventColumns + " FROM scheduled_events" + whereClause(where) +
		orderClause(ordering, eventOrderFields, "start_time ASC")
	var rows []eventRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying scheduled events")
	}
	events := make([]event.ScheduledEvent, 0, len(rows))
	for _, r := range rows {
		e, err := r.event()
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}

func (repo eventRepository) UpdateEvent(ctx context.Context, e event.ScheduledEvent) (event.ScheduledEvent, error) {
	row, err := toEventRow(e)
	if err != nil {
		return event.ScheduledEvent{}, err
	}
	q := `UPDATE scheduled_events SET step_id = :step_id, step_number = :step_number, type = :type, title = :title,
		description = :description, start_time = :start_time, end_time = :end_time, status = :status,
		computed = :computed, meeting_link = :meeting_link, calendar_ref = :calendar_ref,
		attachments = :attachments, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, row)
	if err != nil {
		return event.ScheduledEvent{}, errors.Wrap(err, "updating scheduled event")
	}
	if err = checkAffected(res, event.ErrNotFound); err != nil {
		return event.ScheduledEvent{}, err
	}
	return e, nil
}

const emailColumns = `id, candidate_id, template_id, event_id, to_address, subject, body, status, tracking_id,
	error, sent_at, created_at, updated_at`

type emailRow struct {
	ID          string      `db:"id"`
	CandidateID string      `db:"candidate_id"`
	TemplateID  null.String `db:"template_id"`
	EventID     null.String `db:"event_id"`
	To          string      `db:"to_address"`
	Subject     string      `db:"subject"`
	Body        string      `db:"body"`
	Status      string      `db:"status"`
	TrackingID  null.String `db:"tracking_id"`
	Error       string      `db:"error"`
	SentAt      null.Time   `db:"sent_at"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

func toEmailRow(e email.Email) emailRow {
	return emailRow{
		ID:          e.ID,
		CandidateID: e.CandidateID,
		TemplateID:  nullID(e.TemplateID),
		EventID:     nullID(e.EventID),
		To:          e.To,
		Subject:     e.Subject,
		Body:        e.Body,
		Status:      string(e.Status),
		TrackingID:  nullID(e.TrackingID),
		Error:       e.Error,
		SentAt:      nullUTC(e.SentAt),
		CreatedAt:   e.CreatedAt.UTC(),
		UpdatedAt:   e.UpdatedAt.UTC(),
	}
}

func (r emailRow) email() email.Email {
	return email.Email{
		ID:          r.ID,
		CandidateID: r.CandidateID,
		TemplateID:  r.TemplateID.Ptr(),
		EventID:     r.EventID.Ptr(),
		To:          r.To,
		Subject:     r.Subject,
		Body:        r.Body,
		Status:      email.Status(r.Status),
		TrackingID:  r.TrackingID.Ptr(),
		Error:       r.Error,
		SentAt:      utcPtr(r.SentAt),
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type emailRepository struct {
	db *sqlx.DB
}

var _ email.Repository = (*emailRepository)(nil)

func NewEmailRepository(db *sqlx.DB) *emailRepository {
	return &emailRepository{db: db}
}

func (repo emailRepository) CreateEmail(ctx context.Context, e email.Email) (email.Email, error) {
	q := `INSERT INTO emails (` + emailColumns + `) VALUES (:id, :candidate_id, :template_id, :event_id,
		:to_address, :subject, :body, :status, :tracking_id, :error, :sent_at, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, toEmailRow(e)); err != nil {
		return email.Email{}, errors.Wrap(err, "inserting email")
	}
	return e, nil
}

func (repo emailRepository) UpdateEmail(ctx context.Context, e email.Email) (email.Email, error) {
	q := `UPDATE emails SET template_id = :template_id, event_id = :event_id, to_address = :to_address,
		subject = :subject, body = :body, status = :status, tracking_id = :tracking_id, error = :error,
		sent_at = :sent_at, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, toEmailRow(e))
	if err != nil {
		return email.Email{}, errors.Wrap(err, "updating email")
	}
	if err = checkAffected(res, email.ErrNotFound); err != nil {
		return email.Email{}, err
	}
	return e, nil
}

func (repo emailRepository) GetEmailByTrackingID(ctx context.Context, trackingID string) (email.Email, error) {
	if trackingID == "" {
		return email.Email{}, email.ErrNotFound
	}
	var row emailRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+emailColumns+" FROM emails WHERE tracking_id = $1", trackingID); err != nil {
		if err == sql.ErrNoRows {
			return email.Email{}, email.ErrNotFound
		}
		return email.Email{}, errors.Wrap(err, "finding email by tracking id")
	}
	return row.email(), nil
}

func (repo emailRepository) QueryEmails(ctx context.Context, candidateID string) ([]email.Email, error) {
	if _, err := uuid.Parse(candidateID); err != nil {
		return []email.Email{}, nil
	}
	var rows []emailRow
	q := "SELECT " + emailColumns + " FROM emails WHERE candidate_id = $1 ORDER BY created_at DESC"
	if err := repo.db.SelectContext(ctx, &rows, q, candidateID); err != nil {
		return nil, errors.Wrap(err, "querying emails")
	}
	emails := make([]email.Email, 0, len(rows))
	for _, r := range rows {
		emails = append(emails, r.email())
	}
	return emails, nil
}
