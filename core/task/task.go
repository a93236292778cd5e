// Package task holds the HR reminders and to-dos, optionally tied to a candidate.
package task

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ironladytech/onboarding/core"
	"github.com/ironladytech/onboarding/core/activity"
	"github.com/ironladytech/onboarding/core/candidate"
)

type Status string

const (
	StatusOpen Status = "OPEN"
	StatusDone Status = "DONE"
)

var (
	// errors
	ErrNotFound         = core.NewNotFoundError("task")
	errDone             = core.NewConflictError("task is already done")
	errUnknownCandidate = "candidate_id must reference an existing candidate"
	errSnoozeInPast     = "until must be in the future"
)

type Task struct {
	ID           string     `json:"id"`
	CandidateID  *string    `json:"candidate_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	DueAt        time.Time  `json:"due_at"` // UTC
	Status       Status     `json:"status"`
	SnoozedUntil *time.Time `json:"snoozed_until"` // UTC
	CompletedAt  *time.Time `json:"completed_at"`  // UTC
	CreatedAt    time.Time  `json:"created_at"`    // UTC
	UpdatedAt    time.Time  `json:"updated_at"`    // UTC
}

// DueTime is when the task next needs attention, taking snoozing into account.
func (t Task) DueTime() time.Time {
	if t.SnoozedUntil != nil && t.SnoozedUntil.After(t.DueAt) {
		return *t.SnoozedUntil
	}
	return t.DueAt
}

type NewTask struct {
	CandidateID *string   `json:"candidate_id" validate:"omitempty,uuid"`
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description"`
	DueAt       time.Time `json:"due_at" validate:"required"`
}

func (nt *NewTask) Clean() {
	nt.CandidateID = core.CleanStringPtr(nt.CandidateID)
	nt.Title = core.CleanString(nt.Title)
	nt.Description = core.CleanString(nt.Description)
}

type SnoozeRequest struct {
	Until time.Time `json:"until" validate:"required"`
}

type QueryFilter struct {
	CandidateID string
	Status      Status
	DueBefore   *time.Time // compared with DueTime
}

func (qf QueryFilter) Match(t Task) bool {
	if qf.CandidateID != "" && qf.CandidateID != core.StringValue(t.CandidateID) {
		return false
	}
	if qf.Status != "" && qf.Status != t.Status {
		return false
	}
	if qf.DueBefore != nil && !t.DueTime().Before(*qf.DueBefore) {
		return false
	}
	return true
}

type Repository interface {
	CreateTask(ctx context.Context, t Task) (Task, error)
	GetTask(ctx context.Context, id string) (Task, error)
	// QueryTasks returns the matching tasks, soonest due first.
	QueryTasks(ctx context.Context, filter QueryFilter) ([]Task, error)
	UpdateTask(ctx context.Context, t Task) (Task, error)
	DeleteTask(ctx context.Context, id string) error
}

type Service struct {
	repo       Repository
	candidates candidate.Repository
	activity   *activity.Service
	validate   *validator.Validate
}

func NewService(repo Repository, candidates candidate.Repository, activitySvc *activity.Service, validate *validator.Validate) *Service {
	return &Service{repo: repo, candidates: candidates, activity: activitySvc, validate: validate}
}

func (svc *Service) Create(ctx context.Context, nt NewTask) (Task, error) {
	nt.Clean()
	if err := svc.validate.Struct(nt); err != nil {
		return Task{}, err
	}
	if nt.CandidateID != nil {
		if _, err := svc.candidates.GetCandidate(ctx, *nt.CandidateID); err != nil {
			if core.IsNotFound(err) {
				return Task{}, core.NewFieldError("candidate_id", errUnknownCandidate)
			}
			return Task{}, errors.Wrap(err, "fetching candidate")
		}
	}

	now := core.NowFunc().UTC()
	t, err := svc.repo.CreateTask(ctx, Task{
		ID:          uuid.NewString(),
		CandidateID: nt.CandidateID,
		Title:       nt.Title,
		Description: nt.Description,
		DueAt:       nt.DueAt.UTC(),
		Status:      StatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	return t, errors.Wrap(err, "creating task")
}

func (svc *Service) GetByID(ctx context.Context, id string) (Task, error) {
	return svc.repo.GetTask(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Task, error) {
	tasks, err := svc.repo.QueryTasks(ctx, filter)
	return tasks, errors.Wrap(err, "querying tasks")
}

// Due lists the open tasks needing attention before the given time.
func (svc *Service) Due(ctx context.Context, before time.Time) ([]Task, error) {
	return svc.Query(ctx, QueryFilter{Status: StatusOpen, DueBefore: &before})
}

func (svc *Service) Complete(ctx context.Context, id, actor string) (Task, error) {
	t, err := svc.repo.GetTask(ctx, id)
	if err != nil {
		return Task{}, err
	}
	if t.Status == StatusDone {
		return t, nil
	}

	now := core.NowFunc().UTC()
	t.Status = StatusDone
	t.CompletedAt = &now
	t.UpdatedAt = now
	if t, err = svc.repo.UpdateTask(ctx, t); err != nil {
		return Task{}, errors.Wrap(err, "completing task")
	}
	if t.CandidateID != nil {
		svc.activity.Record(ctx, *t.CandidateID, activity.ActionTaskCompleted, fmt.Sprintf("Task %q completed", t.Title), actor)
	}
	return t, nil
}

func (svc *Service) Snooze(ctx context.Context, id string, req SnoozeRequest) (Task, error) {
	if err := svc.validate.Struct(req); err != nil {
		return Task{}, err
	}
	now := core.NowFunc().UTC()
	if !req.Until.After(now) {
		return Task{}, core.NewFieldError("until", errSnoozeInPast)
	}
	t, err := svc.repo.GetTask(ctx, id)
	if err != nil {
		return Task{}, err
	}
	if t.Status == StatusDone {
		return Task{}, errDone
	}

	until := req.Until.UTC()
	t.SnoozedUntil = &until
	t.UpdatedAt = now
	t, err = svc.repo.UpdateTask(ctx, t)
	return t, errors.Wrap(err, "snoozing task")
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	if _, err := svc.repo.GetTask(ctx, id); err != nil {
		return err
	}
	return errors.Wrap(svc.repo.DeleteTask(ctx, id), "deleting task")
}
