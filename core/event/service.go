package event

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ironladytech/onboarding/core"
	"github.com/ironladytech/onboarding/core/activity"
)

var (
	// errors
	ErrNotFound     = core.NewNotFoundError("scheduled event")
	errNotPending   = core.NewConflictError("only scheduled or rescheduled events can be changed")
	errCompleted    = core.NewConflictError("a completed event cannot be cancelled")
	errCancelled    = core.NewConflictError("a cancelled event cannot be completed")
	errStartInPast  = "start_time must be in the future"
	defaultDuration = 60 * time.Minute
)

type Repository interface {
	CreateEvent(ctx context.Context, e ScheduledEvent) (ScheduledEvent, error)
	GetEvent(ctx context.Context, id string) (ScheduledEvent, error)
	QueryEvents(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]ScheduledEvent, error)
	UpdateEvent(ctx context.Context, e ScheduledEvent) (ScheduledEvent, error)
}

type Service struct {
	repo     Repository
	calendar core.CalendarService
	activity *activity.Service
	validate *validator.Validate
}

func NewService(repo Repository, calendar core.CalendarService, activitySvc *activity.Service, validate *validator.Validate) *Service {
	return &Service{repo: repo, calendar: calendar, activity: activitySvc, validate: validate}
}

// Book persists e and creates its calendar entry.
// When the calendar provider fails the event is kept as CANCELLED and an ExternalError is returned.
func (svc *Service) Book(ctx context.Context, e ScheduledEvent, attendees ...mail.Address) (ScheduledEvent, error) {
	now := core.NowFunc().UTC()
	e.ID = uuid.NewString()
	e.Status = StatusScheduled
	e.StartTime = e.StartTime.UTC()
	e.EndTime = e.EndTime.UTC()
	e.CreatedAt, e.UpdatedAt = now, now
	if e.Attachments == nil {
		e.Attachments = []core.FileRef{}
	}

	e, err := svc.repo.CreateEvent(ctx, e)
	if err != nil {
		return ScheduledEvent{}, errors.Wrap(err, "creating scheduled event")
	}

	cal, calErr := svc.calendar.CreateEvent(ctx, core.CalendarEvent{
		Title:       e.Title,
		Description: e.Description,
		Start:       e.StartTime,
		End:         e.EndTime,
		Attendees:   attendees,
		Attachments: e.Attachments,
	})
	if calErr != nil {
		e.Status = StatusCancelled
		e.UpdatedAt = core.NowFunc().UTC()
		if _, err = svc.repo.UpdateEvent(ctx, e); err != nil {
			return e, errors.Wrap(err, "cancelling scheduled event")
		}
		return e, core.NewExternalError("calendar", calErr)
	}

	e.CalendarRef = cal.Ref
	e.MeetingLink = cal.MeetingLink
	e.UpdatedAt = core.NowFunc().UTC()
	e, err = svc.repo.UpdateEvent(ctx, e)
	return e, errors.Wrap(err, "updating scheduled event")
}

func (svc *Service) GetByID(ctx context.Context, id string) (ScheduledEvent, error) {
	return svc.repo.GetEvent(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]ScheduledEvent, error) {
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "start_time", Ascending: true}}
	}
	events, err := svc.repo.QueryEvents(ctx, filter, ordering)
	return events, errors.Wrap(err, "querying scheduled events")
}

// ForCandidate lists every event of a candidate, earliest first.
func (svc *Service) ForCandidate(ctx context.Context, candidateID string) ([]ScheduledEvent, error) {
	return svc.Query(ctx, QueryFilter{CandidateID: candidateID}, nil)
}

// Upcoming lists pending events starting within the next d.
func (svc *Service) Upcoming(ctx context.Context, d time.Duration) ([]ScheduledEvent, error) {
	from := core.NowFunc().UTC()
	to := from.Add(d)
	return svc.Query(ctx, QueryFilter{Statuses: []Status{StatusScheduled, StatusRescheduled}, From: &from, To: &to}, nil)
}

// Cancel cancels a pending event; its step becomes unscheduled again for the candidate.
func (svc *Service) Cancel(ctx context.Context, id, actor string) (ScheduledEvent, error) {
	e, err := svc.repo.GetEvent(ctx, id)
	if err != nil {
		return ScheduledEvent{}, err
	}
	switch e.Status {
	case StatusCancelled:
		return e, nil
	case StatusCompleted:
		return ScheduledEvent{}, errCompleted
	}

	if e.CalendarRef != "" {
		if err = svc.calendar.CancelEvent(ctx, e.CalendarRef); err != nil {
			return ScheduledEvent{}, core.NewExternalError("calendar", err)
		}
	}
	e.Status = StatusCancelled
	e.UpdatedAt = core.NowFunc().UTC()
	if e, err = svc.repo.UpdateEvent(ctx, e); err != nil {
		return ScheduledEvent{}, errors.Wrap(err, "cancelling scheduled event")
	}
	svc.activity.Record(ctx, e.CandidateID, activity.ActionEventCancelled, fmt.Sprintf("%s cancelled", e.Title), actor)
	return e, nil
}

func (svc *Service) Complete(ctx context.Context, id, actor string) (ScheduledEvent, error) {
	e, err := svc.repo.GetEvent(ctx, id)
	if err != nil {
		return ScheduledEvent{}, err
	}
	switch e.Status {
	case StatusCompleted:
		return e, nil
	case StatusCancelled:
		return ScheduledEvent{}, errCancelled
	}

	e.Status = StatusCompleted
	e.UpdatedAt = core.NowFunc().UTC()
	if e, err = svc.repo.UpdateEvent(ctx, e); err != nil {
		return ScheduledEvent{}, errors.Wrap(err, "completing scheduled event")
	}
	svc.activity.Record(ctx, e.CandidateID, activity.ActionEventCompleted, fmt.Sprintf("%s completed", e.Title), actor)
	return e, nil
}

// Reschedule moves a pending event to an admin chosen slot.
// The event is no longer tied to its step's offset rule afterwards.
func (svc *Service) Reschedule(ctx context.Context, id string, req RescheduleRequest, actor string) (ScheduledEvent, error) {
	if err := svc.validate.Struct(req); err != nil {
		return ScheduledEvent{}, err
	}
	if !req.StartTime.After(core.NowFunc()) {
		return ScheduledEvent{}, core.NewFieldError("start_time", errStartInPast)
	}
	e, err := svc.repo.GetEvent(ctx, id)
	if err != nil {
		return ScheduledEvent{}, err
	}

	d := e.Duration()
	if req.DurationMinutes > 0 {
		d = time.Duration(req.DurationMinutes) * time.Minute
	}
	if d <= 0 {
		d = defaultDuration
	}
	e.Computed = false
	return svc.move(ctx, e, req.StartTime, req.StartTime.Add(d), actor)
}

// Shift moves a computed event after its anchor date changed.
func (svc *Service) Shift(ctx context.Context, e ScheduledEvent, start time.Time, actor string) (ScheduledEvent, error) {
	d := e.Duration()
	if d <= 0 {
		d = defaultDuration
	}
	return svc.move(ctx, e, start, start.Add(d), actor)
}

func (svc *Service) move(ctx context.Context, e ScheduledEvent, start, end time.Time, actor string) (ScheduledEvent, error) {
	if !e.IsPending() {
		return ScheduledEvent{}, errNotPending
	}
	e.StartTime, e.EndTime = start.UTC(), end.UTC()

	if e.CalendarRef != "" {
		cal, err := svc.calendar.UpdateEvent(ctx, core.CalendarEvent{
			Ref:         e.CalendarRef,
			Title:       e.Title,
			Description: e.Description,
			Start:       e.StartTime,
			End:         e.EndTime,
			MeetingLink: e.MeetingLink,
		})
		if err != nil {
			return ScheduledEvent{}, core.NewExternalError("calendar", err)
		}
		if cal.MeetingLink != "" {
			e.MeetingLink = cal.MeetingLink
		}
	}

	e.Status = StatusRescheduled
	e.UpdatedAt = core.NowFunc().UTC()
	e, err := svc.repo.UpdateEvent(ctx, e)
	if err != nil {
		return ScheduledEvent{}, errors.Wrap(err, "rescheduling event")
	}
	svc.activity.Record(ctx, e.CandidateID, activity.ActionEventRescheduled,
		fmt.Sprintf("%s moved to %s", e.Title, e.StartTime.Format(time.RFC3339)), actor)
	return e, nil
}

// AddAttachments merges refs into the event's attachments, replacing same-named files only,
// and pushes the merged list to the calendar.
func (svc *Service) AddAttachments(ctx context.Context, id string, req AttachmentsRequest) (ScheduledEvent, error) {
	if err := svc.validate.Struct(req); err != nil {
		return ScheduledEvent{}, err
	}
	e, err := svc.repo.GetEvent(ctx, id)
	if err != nil {
		return ScheduledEvent{}, err
	}
	if e.Status == StatusCancelled {
		return ScheduledEvent{}, errNotPending
	}

	e.Attachments = core.MergeFileRefs(e.Attachments, req.Attachments...)
	if e.CalendarRef != "" {
		if _, err = svc.calendar.UpdateEvent(ctx, core.CalendarEvent{
			Ref:         e.CalendarRef,
			Title:       e.Title,
			Description: e.Description,
			Start:       e.StartTime,
			End:         e.EndTime,
			Attachments: req.Attachments,
			MeetingLink: e.MeetingLink,
		}); err != nil {
			return ScheduledEvent{}, core.NewExternalError("calendar", err)
		}
	}
	e.UpdatedAt = core.NowFunc().UTC()
	e, err = svc.repo.UpdateEvent(ctx, e)
	return e, errors.Wrap(err, "updating event attachments")
}
