// Package activity keeps the per-candidate audit trail.
package activity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ironladytech/onboarding/core"
)

type Action string

const (
	ActionCandidateCreated   Action = "CANDIDATE_CREATED"
	ActionStatusChanged      Action = "STATUS_CHANGED"
	ActionJoiningDateChanged Action = "JOINING_DATE_CHANGED"
	ActionStepScheduled      Action = "STEP_SCHEDULED"
	ActionEmailSent          Action = "EMAIL_SENT"
	ActionEmailFailed        Action = "EMAIL_FAILED"
	ActionEventCancelled     Action = "EVENT_CANCELLED"
	ActionEventCompleted     Action = "EVENT_COMPLETED"
	ActionEventRescheduled   Action = "EVENT_RESCHEDULED"
	ActionTaskCompleted      Action = "TASK_COMPLETED"
)

type Log struct {
	ID          string    `json:"id"`
	CandidateID string    `json:"candidate_id"`
	Action      Action    `json:"action"`
	Message     string    `json:"message"`
	Actor       string    `json:"actor"`
	CreatedAt   time.Time `json:"created_at"` // UTC
}

type Repository interface {
	CreateLog(ctx context.Context, l Log) (Log, error)
	// QueryLogs returns the newest logs first; an empty candidateID lists every candidate.
	QueryLogs(ctx context.Context, candidateID string, limit int) ([]Log, error)
}

type Service struct {
	repo   Repository
	logger core.Logger
}

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Record appends to the audit trail. A failed write is logged and never fails the caller's operation.
func (svc *Service) Record(ctx context.Context, candidateID string, action Action, msg, actor string) {
	l := Log{
		ID:          uuid.NewString(),
		CandidateID: candidateID,
		Action:      action,
		Message:     msg,
		Actor:       actor,
		CreatedAt:   core.NowFunc().UTC(),
	}
	if _, err := svc.repo.CreateLog(ctx, l); err != nil {
		svc.logger.Error("recording activity", errors.Wrap(err, "creating activity log"), map[string]interface{}{
			"candidate_id": candidateID,
			"action":       string(action),
		})
	}
}

func (svc *Service) ListForCandidate(ctx context.Context, candidateID string, limit int) ([]Log, error) {
	logs, err := svc.repo.QueryLogs(ctx, candidateID, limit)
	return logs, errors.Wrap(err, "querying activity logs")
}

func (svc *Service) Recent(ctx context.Context, limit int) ([]Log, error) {
	return svc.ListForCandidate(ctx, "", limit)
}
