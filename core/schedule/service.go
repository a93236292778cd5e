package schedule

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/ironladytech/onboarding/core"
	"github.com/ironladytech/onboarding/core/activity"
	"github.com/ironladytech/onboarding/core/candidate"
	"github.com/ironladytech/onboarding/core/email"
	"github.com/ironladytech/onboarding/core/event"
	"github.com/ironladytech/onboarding/core/settings"
	"github.com/ironladytech/onboarding/core/step"
	"github.com/ironladytech/onboarding/core/template"
)

type (
	Mode          string
	ProgressState string
)

const (
	ModeComputed Mode = "COMPUTED"
	ModeExact    Mode = "EXACT"

	ProgressUnscheduled ProgressState = "UNSCHEDULED"
	ProgressScheduled   ProgressState = "SCHEDULED"
	ProgressCompleted   ProgressState = "COMPLETED"
	ProgressBlocked     ProgressState = "BLOCKED" // anchor date unknown
)

var (
	// errors
	errStepRequired     = "step_id, or department and step_number, are required"
	errStepTypeMismatch = "step_type does not match the selected step"
	errDateTimeRequired = "date_time is required in EXACT mode"
	errManualStep       = "the step is scheduled manually, use EXACT mode"
	errTemplateInactive = core.NewConflictError("the step's email template is missing or inactive")

	errNoEmail         = errors.New("candidate has no email address")
	errWithdrawn       = errors.New("candidate has withdrawn")
	errAnchorUnknown   = errors.New("anchor date unknown")
	errCandidateAbsent = errors.New("candidate not found")

	modeTag    = "schedulemode"
	modeValues = []string{string(ModeComputed), string(ModeExact)}
)

// InitValidators registers the scheduling validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterEnumValidation(validate, translator, modeTag, modeValues)
}

// BatchRequest applies one department step to several candidates.
type BatchRequest struct {
	CandidateIDs    []string          `json:"candidate_ids" validate:"required,min=1,max=200,dive,required"`
	StepID          string            `json:"step_id"`
	Department      string            `json:"department"`
	StepNumber      int               `json:"step_number" validate:"omitempty,min=1"`
	StepType        template.Type     `json:"step_type" validate:"omitempty,templatetype"`
	Mode            Mode              `json:"mode" validate:"required,schedulemode"`
	DateTime        *time.Time        `json:"date_time"`
	DurationMinutes int               `json:"duration_minutes" validate:"omitempty,min=5,max=1440"`
	Attachments     []core.FileRef    `json:"attachments" validate:"omitempty,dive"`
	Overrides       map[string]string `json:"overrides"`
}

// Result is the outcome of one batch item.
type Result struct {
	CandidateID string `json:"candidate_id"`
	Success     bool   `json:"success"`
	EventID     string `json:"event_id,omitempty"`
	EmailID     string `json:"email_id,omitempty"`
	Error       string `json:"error,omitempty"`
}

type StepProgress struct {
	Step       step.Step             `json:"step"`
	State      ProgressState         `json:"state"`
	Resolution Resolution            `json:"resolution"`
	Event      *event.ScheduledEvent `json:"event,omitempty"`
}

type Service struct {
	candidates *candidate.Service
	steps      *step.Service
	templates  *template.Service
	settings   *settings.Service
	events     *event.Service
	emails     *email.Service
	activity   *activity.Service
	resolver   Resolver
	validate   *validator.Validate
	logger     core.Logger
}

type Deps struct {
	Candidates *candidate.Service
	Steps      *step.Service
	Templates  *template.Service
	Settings   *settings.Service
	Events     *event.Service
	Emails     *email.Service
	Activity   *activity.Service
	Resolver   Resolver
	Validate   *validator.Validate
	Logger     core.Logger
}

func NewService(deps Deps) *Service {
	return &Service{
		candidates: deps.Candidates,
		steps:      deps.Steps,
		templates:  deps.Templates,
		settings:   deps.Settings,
		events:     deps.Events,
		emails:     deps.Emails,
		activity:   deps.Activity,
		resolver:   deps.Resolver,
		validate:   deps.Validate,
		logger:     deps.Logger,
	}
}

// batch holds what is loaded once for every item of a BatchRequest.
type batch struct {
	req      BatchRequest
	step     step.Step
	tmpl     template.EmailTemplate
	settings settings.Settings
	actor    string
}

// BatchSchedule applies a step to each candidate sequentially. Items are independent:
// a failing candidate is reported in its Result and never aborts the others.
// The returned error only covers an invalid request.
func (svc *Service) BatchSchedule(ctx context.Context, req BatchRequest, actor string) ([]Result, error) {
	b, err := svc.prepare(ctx, req, actor)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(req.CandidateIDs))
	results := make([]Result, 0, len(req.CandidateIDs))
	for _, id := range req.CandidateIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		res := Result{CandidateID: id}
		ev, em, err := svc.scheduleOne(ctx, b, id)
		if ev.ID != "" {
			res.EventID = ev.ID
		}
		if em.ID != "" {
			res.EmailID = em.ID
		}
		if err != nil {
			var expected bool
			res.Error, expected = itemError(err)
			if !expected {
				svc.logger.Warn("batch schedule item failed", err, map[string]interface{}{
					"candidate_id": id,
					"step_id":      b.step.ID,
				})
			}
		} else {
			res.Success = true
		}
		results = append(results, res)
	}
	return results, nil
}

func (svc *Service) prepare(ctx context.Context, req BatchRequest, actor string) (batch, error) {
	req.StepID = core.CleanString(req.StepID)
	req.Department = core.CleanString(req.Department)
	if err := svc.validate.Struct(req); err != nil {
		return batch{}, err
	}
	if req.StepID == "" && (req.Department == "" || req.StepNumber < 1) {
		return batch{}, core.NewFieldError("step_id", errStepRequired)
	}
	if req.Mode == ModeExact && req.DateTime == nil {
		return batch{}, core.NewFieldError("date_time", errDateTimeRequired)
	}

	s, err := svc.findStep(ctx, req)
	if err != nil {
		return batch{}, err
	}
	if req.StepType != "" && req.StepType != s.Type {
		return batch{}, core.NewFieldError("step_type", errStepTypeMismatch)
	}
	if req.Mode == ModeComputed && s.Method() == step.MethodManual {
		return batch{}, core.NewFieldError("mode", errManualStep)
	}

	tmpl, active, err := svc.templates.GetActive(ctx, s.EmailTemplateID)
	if err != nil {
		return batch{}, errors.Wrap(err, "fetching email template")
	}
	if !active {
		return batch{}, errTemplateInactive
	}

	st, err := svc.settings.Get(ctx)
	if err != nil {
		return batch{}, err
	}
	return batch{req: req, step: s, tmpl: tmpl, settings: st, actor: actor}, nil
}

func (svc *Service) findStep(ctx context.Context, req BatchRequest) (step.Step, error) {
	if req.StepID != "" {
		return svc.steps.GetByID(ctx, req.StepID)
	}
	steps, err := svc.steps.List(ctx, req.Department)
	if err != nil {
		return step.Step{}, err
	}
	for _, s := range steps {
		if s.StepNumber == req.StepNumber {
			return s, nil
		}
	}
	return step.Step{}, step.ErrNotFound
}

// scheduleOne runs one batch item: resolve, book the event, send the email, log.
// Rows written before a failure are kept in a FAILED or CANCELLED state.
func (svc *Service) scheduleOne(ctx context.Context, b batch, candidateID string) (event.ScheduledEvent, email.Email, error) {
	c, err := svc.candidates.GetByID(ctx, candidateID)
	if err != nil {
		if core.IsNotFound(err) {
			return event.ScheduledEvent{}, email.Email{}, errCandidateAbsent
		}
		return event.ScheduledEvent{}, email.Email{}, err
	}
	if c.Email == "" {
		return event.ScheduledEvent{}, email.Email{}, errNoEmail
	}
	if c.IsWithdrawn() {
		return event.ScheduledEvent{}, email.Email{}, errWithdrawn
	}

	var start time.Time
	if b.req.Mode == ModeExact {
		start = b.req.DateTime.UTC()
	} else {
		res, err := svc.resolveFor(ctx, b.step, c)
		if err != nil {
			return event.ScheduledEvent{}, email.Email{}, err
		}
		if res.State != StateResolved {
			return event.ScheduledEvent{}, email.Email{}, errAnchorUnknown
		}
		start = *res.At
	}

	duration := b.step.Duration()
	if b.req.DurationMinutes > 0 {
		duration = time.Duration(b.req.DurationMinutes) * time.Minute
	}
	stepID := b.step.ID
	ev, err := svc.events.Book(ctx, event.ScheduledEvent{
		CandidateID: c.ID,
		StepID:      &stepID,
		StepNumber:  b.step.StepNumber,
		Type:        b.step.Type,
		Title:       fmt.Sprintf("%s: %s", b.step.Title, c.Name),
		Description: b.step.Description,
		StartTime:   start,
		EndTime:     start.Add(duration),
		Computed:    b.req.Mode == ModeComputed,
		Attachments: b.req.Attachments,
	}, mail.Address{Name: c.Name, Address: c.Email})
	if err != nil {
		return ev, email.Email{}, err
	}

	loc := svc.resolver.location()
	values := template.Merge(
		b.settings.Placeholders(),
		template.CandidateValues(c, loc),
		template.EventValues(b.step.Title, ev.StartTime, ev.MeetingLink, loc),
		b.req.Overrides,
	)
	rendered := svc.templates.RenderEmail(b.tmpl, values, b.settings)

	msg := &core.EmailMessage{
		To:          []mail.Address{{Name: c.Name, Address: c.Email}},
		Subject:     rendered.Subject,
		TextContent: rendered.Body,
		HTMLContent: rendered.HTML,
	}
	if b.settings.HREmail != "" {
		msg.ReplyTo = &mail.Address{Name: b.settings.HRName, Address: b.settings.HREmail}
	}

	tmplID, evID := b.tmpl.ID, ev.ID
	em, err := svc.emails.Deliver(ctx, email.Email{
		CandidateID: c.ID,
		TemplateID:  &tmplID,
		EventID:     &evID,
		To:          c.Email,
		Subject:     rendered.Subject,
		Body:        rendered.Body,
	}, msg, b.actor)
	if err != nil {
		if _, cerr := svc.events.Cancel(ctx, ev.ID, b.actor); cerr != nil {
			svc.logger.Error("cancelling event after email failure", cerr, map[string]interface{}{"event_id": ev.ID})
		}
		return ev, em, err
	}

	svc.activity.Record(ctx, c.ID, activity.ActionStepScheduled,
		fmt.Sprintf("Step %d (%s) scheduled for %s", b.step.StepNumber, b.step.Title, ev.StartTime.In(loc).Format(time.RFC3339)), b.actor)

	if b.step.Type == template.TypeOfferLetter {
		if _, err = svc.candidates.MarkOfferSent(ctx, c, core.NowFunc()); err != nil {
			svc.logger.Error("marking offer sent", err, map[string]interface{}{"candidate_id": c.ID})
		}
	}
	return ev, em, nil
}

func (svc *Service) resolveFor(ctx context.Context, s step.Step, c candidate.Candidate) (Resolution, error) {
	var evs []event.ScheduledEvent
	if s.Type == template.TypeOfferReminder {
		var err error
		if evs, err = svc.events.ForCandidate(ctx, c.ID); err != nil {
			return Resolution{}, err
		}
	}
	return svc.resolver.Resolve(s, AnchorsFor(c, evs)), nil
}

// ResolveFor previews the computed date of a step for a candidate.
func (svc *Service) ResolveFor(ctx context.Context, stepID, candidateID string) (Resolution, error) {
	s, err := svc.steps.GetByID(ctx, stepID)
	if err != nil {
		return Resolution{}, err
	}
	c, err := svc.candidates.GetByID(ctx, candidateID)
	if err != nil {
		return Resolution{}, err
	}
	return svc.resolveFor(ctx, s, c)
}

// Progress reports where the candidate stands on every step of their department.
func (svc *Service) Progress(ctx context.Context, candidateID string) ([]StepProgress, error) {
	c, err := svc.candidates.GetByID(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	steps, err := svc.steps.List(ctx, c.Department)
	if err != nil {
		return nil, err
	}
	evs, err := svc.events.ForCandidate(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	anchors := AnchorsFor(c, evs)

	progress := make([]StepProgress, 0, len(steps))
	for _, s := range steps {
		p := StepProgress{Step: s, Resolution: svc.resolver.Resolve(s, anchors)}
		if ev := latestForStep(evs, s); ev != nil {
			p.Event = ev
		}
		switch {
		case p.Event != nil && p.Event.Status == event.StatusCompleted:
			p.State = ProgressCompleted
		case p.Event != nil:
			p.State = ProgressScheduled
		case p.Resolution.State == StateUnresolved:
			p.State = ProgressBlocked
		default:
			p.State = ProgressUnscheduled
		}
		progress = append(progress, p)
	}
	return progress, nil
}

// latestForStep returns the most recently created non-cancelled event of s.
func latestForStep(evs []event.ScheduledEvent, s step.Step) *event.ScheduledEvent {
	var latest *event.ScheduledEvent
	for i := range evs {
		e := evs[i]
		if e.Status == event.StatusCancelled || core.StringValue(e.StepID) != s.ID {
			continue
		}
		if latest == nil || e.CreatedAt.After(latest.CreatedAt) {
			latest = &evs[i]
		}
	}
	return latest
}

// Realign recomputes the pending computed events of a candidate after one of their
// anchor dates changed. Events whose anchor became unknown are left untouched.
func (svc *Service) Realign(ctx context.Context, candidateID, actor string) ([]event.ScheduledEvent, error) {
	c, err := svc.candidates.GetByID(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	evs, err := svc.events.ForCandidate(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	anchors := AnchorsFor(c, evs)

	moved := make([]event.ScheduledEvent, 0)
	for _, ev := range evs {
		if !ev.IsPending() || !ev.Computed || ev.StepID == nil {
			continue
		}
		s, err := svc.steps.GetByID(ctx, *ev.StepID)
		if err != nil {
			if core.IsNotFound(err) {
				continue // step deleted since
			}
			return moved, err
		}
		res := svc.resolver.Resolve(s, anchors)
		if res.State != StateResolved || res.At.Equal(ev.StartTime) {
			continue
		}
		shifted, err := svc.events.Shift(ctx, ev, *res.At, actor)
		if err != nil {
			svc.logger.Error("realigning event", err, map[string]interface{}{"event_id": ev.ID})
			continue
		}
		moved = append(moved, shifted)
	}
	return moved, nil
}

// itemError returns the message reported for a failed item and whether the failure
// is an expected business outcome rather than a fault worth logging.
func itemError(err error) (string, bool) {
	cause := errors.Cause(err)
	switch cause {
	case errNoEmail, errWithdrawn, errAnchorUnknown, errCandidateAbsent:
		return cause.Error(), true
	}
	switch e := cause.(type) {
	case *core.ExternalError:
		return e.Error(), false
	case *core.NotFoundError:
		return e.Error(), true
	}
	return "internal error", false
}
