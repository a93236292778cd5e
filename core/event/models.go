package event

import (
	"time"

	"github.com/ironladytech/onboarding/core"
	"github.com/ironladytech/onboarding/core/template"
)

type Status string

const (
	StatusScheduled   Status = "SCHEDULED"
	StatusCompleted   Status = "COMPLETED"
	StatusCancelled   Status = "CANCELLED"
	StatusRescheduled Status = "RESCHEDULED"
)

var Statuses = []Status{StatusScheduled, StatusCompleted, StatusCancelled, StatusRescheduled}

// ScheduledEvent is a calendar slot booked for a candidate, usually by dispatching a department step.
type ScheduledEvent struct {
	ID          string         `json:"id"`
	CandidateID string         `json:"candidate_id"`
	StepID      *string        `json:"step_id"`
	StepNumber  int            `json:"step_number"`
	Type        template.Type  `json:"type"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	StartTime   time.Time      `json:"start_time"` // UTC
	EndTime     time.Time      `json:"end_time"`   // UTC
	Status      Status         `json:"status"`
	Computed    bool           `json:"computed"` // start derived from the step's offset rule
	MeetingLink string         `json:"meeting_link"`
	CalendarRef string         `json:"calendar_ref"`
	Attachments []core.FileRef `json:"attachments"`
	CreatedAt   time.Time      `json:"created_at"` // UTC
	UpdatedAt   time.Time      `json:"updated_at"` // UTC
}

// IsPending reports whether the event still has to take place.
func (e ScheduledEvent) IsPending() bool {
	return e.Status == StatusScheduled || e.Status == StatusRescheduled
}

func (e ScheduledEvent) Duration() time.Duration {
	return e.EndTime.Sub(e.StartTime)
}

type RescheduleRequest struct {
	StartTime       time.Time `json:"start_time" validate:"required"`
	DurationMinutes int       `json:"duration_minutes" validate:"omitempty,min=5,max=1440"`
}

type AttachmentsRequest struct {
	Attachments []core.FileRef `json:"attachments" validate:"required,min=1,dive"`
}

type QueryFilter struct {
	CandidateID string
	StepID      string
	Type        template.Type
	Statuses    []Status
	From        *time.Time
	To          *time.Time
}

func (qf QueryFilter) Match(e ScheduledEvent) bool {
	if qf.CandidateID != "" && qf.CandidateID != e.CandidateID {
		return false
	}
	if qf.StepID != "" && qf.StepID != core.StringValue(e.StepID) {
		return false
	}
	if qf.Type != "" && qf.Type != e.Type {
		return false
	}
	if len(qf.Statuses) > 0 {
		found := false
		for _, s := range qf.Statuses {
			if s == e.Status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if qf.From != nil && e.StartTime.Before(*qf.From) {
		return false
	}
	if qf.To != nil && !e.StartTime.Before(*qf.To) {
		return false
	}
	return true
}
