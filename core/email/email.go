// Package email keeps the audit trail of outbound candidate emails and their delivery status.
package email

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ironladytech/onboarding/core"
	"github.com/ironladytech/onboarding/core/activity"
)

type Status string

const (
	StatusQueued    Status = "QUEUED"
	StatusSent      Status = "SENT"
	StatusFailed    Status = "FAILED"
	StatusDelivered Status = "DELIVERED"
	StatusBounced   Status = "BOUNCED"
)

var ErrNotFound = core.NewNotFoundError("email")

type Email struct {
	ID          string     `json:"id"`
	CandidateID string     `json:"candidate_id"`
	TemplateID  *string    `json:"template_id"`
	EventID     *string    `json:"event_id"`
	To          string     `json:"to"`
	Subject     string     `json:"subject"`
	Body        string     `json:"body"`
	Status      Status     `json:"status"`
	TrackingID  *string    `json:"tracking_id"`
	Error       string     `json:"error"`
	SentAt      *time.Time `json:"sent_at"`    // UTC
	CreatedAt   time.Time  `json:"created_at"` // UTC
	UpdatedAt   time.Time  `json:"updated_at"` // UTC
}

// ProviderEvent is one entry of the mail provider's delivery webhook.
// The message id may carry a provider suffix after a dot.
type ProviderEvent struct {
	MessageID string `json:"sg_message_id" validate:"required"`
	Event     string `json:"event" validate:"required"`
	Reason    string `json:"reason"`
}

// status maps provider event names to email statuses; unknown events are ignored.
func (pe ProviderEvent) status() (Status, bool) {
	switch strings.ToLower(pe.Event) {
	case "delivered":
		return StatusDelivered, true
	case "bounce", "bounced":
		return StatusBounced, true
	case "dropped", "deferred_final", "failed":
		return StatusFailed, true
	}
	return "", false
}

func (pe ProviderEvent) trackingID() string {
	id := strings.TrimSpace(pe.MessageID)
	if i := strings.IndexByte(id, '.'); i > 0 {
		id = id[:i]
	}
	return id
}

type Repository interface {
	CreateEmail(ctx context.Context, e Email) (Email, error)
	UpdateEmail(ctx context.Context, e Email) (Email, error)
	GetEmailByTrackingID(ctx context.Context, trackingID string) (Email, error)
	// QueryEmails lists the emails of a candidate, newest first.
	QueryEmails(ctx context.Context, candidateID string) ([]Email, error)
}

type Service struct {
	repo     Repository
	mailSvc  core.EmailService
	activity *activity.Service
	validate *validator.Validate
	logger   core.Logger
}

func NewService(repo Repository, mailSvc core.EmailService, activitySvc *activity.Service, validate *validator.Validate, logger core.Logger) *Service {
	return &Service{repo: repo, mailSvc: mailSvc, activity: activitySvc, validate: validate, logger: logger}
}

// Deliver records e, sends msg synchronously and stores the outcome.
// A provider failure leaves the row FAILED and is returned as an ExternalError.
func (svc *Service) Deliver(ctx context.Context, e Email, msg *core.EmailMessage, actor string) (Email, error) {
	now := core.NowFunc().UTC()
	e.ID = uuid.NewString()
	e.Status = StatusQueued
	e.CreatedAt, e.UpdatedAt = now, now
	if msg.Subject == "" {
		msg.Subject = e.Subject
	}
	if msg.TextContent == "" {
		msg.TextContent = e.Body
	}
	if len(msg.To) == 0 {
		msg.To = []mail.Address{{Address: e.To}}
	}

	e, err := svc.repo.CreateEmail(ctx, e)
	if err != nil {
		return Email{}, errors.Wrap(err, "recording email")
	}

	trackingID, sendErr := svc.mailSvc.Send(ctx, msg)
	e.UpdatedAt = core.NowFunc().UTC()
	if sendErr != nil {
		e.Status = StatusFailed
		e.Error = sendErr.Error()
		if _, err = svc.repo.UpdateEmail(ctx, e); err != nil {
			svc.logger.Error("recording email failure", errors.Wrap(err, "updating email"))
		}
		svc.activity.Record(ctx, e.CandidateID, activity.ActionEmailFailed, fmt.Sprintf("Email %q failed: %s", e.Subject, e.Error), actor)
		return e, core.NewExternalError("email", sendErr)
	}

	e.Status = StatusSent
	if trackingID != "" {
		e.TrackingID = &trackingID
	}
	sentAt := e.UpdatedAt
	e.SentAt = &sentAt
	if e, err = svc.repo.UpdateEmail(ctx, e); err != nil {
		return Email{}, errors.Wrap(err, "updating email")
	}
	svc.activity.Record(ctx, e.CandidateID, activity.ActionEmailSent, fmt.Sprintf("Email %q sent to %s", e.Subject, e.To), actor)
	return e, nil
}

func (svc *Service) ListForCandidate(ctx context.Context, candidateID string) ([]Email, error) {
	emails, err := svc.repo.QueryEmails(ctx, candidateID)
	return emails, errors.Wrap(err, "querying emails")
}

// ApplyProviderEvents updates delivery statuses out of band and returns how many emails changed.
// Events for unknown messages or of unknown kinds are skipped.
func (svc *Service) ApplyProviderEvents(ctx context.Context, events []ProviderEvent) (int, error) {
	for _, pe := range events {
		if err := svc.validate.Struct(pe); err != nil {
			return 0, err
		}
	}

	updated := 0
	for _, pe := range events {
		status, ok := pe.status()
		if !ok {
			continue
		}
		e, err := svc.repo.GetEmailByTrackingID(ctx, pe.trackingID())
		if err != nil {
			if core.IsNotFound(err) {
				svc.logger.Warn("delivery event for unknown email", map[string]interface{}{"tracking_id": pe.trackingID()})
				continue
			}
			return updated, errors.Wrap(err, "fetching email")
		}
		// a bounce after delivery wins, a late delivered after a bounce does not
		if e.Status == status || (e.Status == StatusBounced && status == StatusDelivered) {
			continue
		}

		e.Status = status
		if pe.Reason != "" {
			e.Error = pe.Reason
		}
		e.UpdatedAt = core.NowFunc().UTC()
		if _, err = svc.repo.UpdateEmail(ctx, e); err != nil {
			return updated, errors.Wrap(err, "updating email status")
		}
		updated++
	}
	return updated, nil
}
