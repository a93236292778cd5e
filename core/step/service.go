package step

import (
	"context"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ironladytech/onboarding/core"
	"github.com/ironladytech/onboarding/core/template"
)

var (
	// errors
	ErrNotFound         = core.NewNotFoundError("department step")
	ErrNotAdjacent      = core.NewConflictError("steps must be adjacent and belong to the same department")
	ErrAlreadyInit      = core.NewConflictError("department already has steps")
	errTemplateInactive = "email_template_id must reference an existing, active email template"
	errFirstStepUp      = "the first step cannot be moved up"
	errLastStepDown     = "the last step cannot be moved down"
	errCustomRequired   = "custom_email_type is required when type is CUSTOM"
	errCustomNotAllow   = "custom_email_type is only allowed when type is CUSTOM"

	typeTag        = "steptype"
	priorityTag    = "steppriority"
	customTypeTag  = "stepcustomtype"
	notCustomTag   = "stepnotcustom"
	priorityValues = []string{string(PriorityLow), string(PriorityMedium), string(PriorityHigh)}
)

// InitValidators registers the department step validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	types := make([]string, 0, len(template.Types))
	for _, t := range template.Types {
		types = append(types, string(t))
	}
	core.RegisterEnumValidation(validate, translator, typeTag, types)
	core.RegisterEnumValidation(validate, translator, priorityTag, priorityValues)

	validate.RegisterStructValidation(newStepStructValidation, NewStep{})
	core.RegisterCustomTranslation(validate, translator, customTypeTag, errCustomRequired)
	core.RegisterCustomTranslation(validate, translator, notCustomTag, errCustomNotAllow)
}

func newStepStructValidation(sl validator.StructLevel) {
	ns, ok := sl.Current().Interface().(NewStep)
	if !ok {
		return
	}
	hasCustom := ns.CustomEmailType != nil && *ns.CustomEmailType != ""
	if ns.Type == template.TypeCustom && !hasCustom {
		sl.ReportError(ns.CustomEmailType, "custom_email_type", "CustomEmailType", customTypeTag, "")
	}
	if ns.Type != template.TypeCustom && hasCustom {
		sl.ReportError(ns.CustomEmailType, "custom_email_type", "CustomEmailType", notCustomTag, "")
	}
}

type Repository interface {
	// CreateSteps appends steps to their department after the current last step, in order.
	CreateSteps(ctx context.Context, steps ...Step) ([]Step, error)
	// InitSteps creates the first steps of department, or returns ErrAlreadyInit when it
	// already has any. The check and the inserts happen under one department lock.
	InitSteps(ctx context.Context, department string, steps ...Step) ([]Step, error)
	GetStep(ctx context.Context, id string) (Step, error)
	// ListSteps returns the steps of department ordered by step number.
	ListSteps(ctx context.Context, department string) ([]Step, error)
	UpdateStep(ctx context.Context, s Step) (Step, error)
	// DeleteStep removes a step and shifts the later steps of its department down by one.
	DeleteStep(ctx context.Context, id string) error
	// SwapSteps exchanges the step numbers of two adjacent steps of the same department
	// atomically, or returns ErrNotAdjacent leaving both untouched.
	SwapSteps(ctx context.Context, aID, bID string) error
	Departments(ctx context.Context) ([]string, error)
}

type Service struct {
	repo      Repository
	templates *template.Service
	validate  *validator.Validate
}

func NewService(repo Repository, templates *template.Service, validate *validator.Validate) *Service {
	return &Service{repo: repo, templates: templates, validate: validate}
}

func (svc *Service) List(ctx context.Context, department string) ([]Step, error) {
	steps, err := svc.repo.ListSteps(ctx, core.CleanString(department))
	return steps, errors.Wrap(err, "listing department steps")
}

func (svc *Service) GetByID(ctx context.Context, id string) (Step, error) {
	return svc.repo.GetStep(ctx, id)
}

// Departments returns the distinct department names having at least one step.
func (svc *Service) Departments(ctx context.Context) ([]string, error) {
	deps, err := svc.repo.Departments(ctx)
	return deps, errors.Wrap(err, "listing departments")
}

func (svc *Service) Create(ctx context.Context, department string, ns NewStep) (Step, error) {
	department = core.CleanString(department)
	if department == "" {
		return Step{}, core.NewFieldError("department", "department is required")
	}
	ns.Clean()
	if err := svc.validate.Struct(ns); err != nil {
		return Step{}, err
	}
	if err := svc.checkTemplate(ctx, ns.EmailTemplateID); err != nil {
		return Step{}, err
	}

	now := core.NowFunc().UTC()
	s := Step{
		ID:              uuid.NewString(),
		Department:      department,
		Type:            ns.Type,
		CustomEmailType: ns.CustomEmailType,
		Title:           ns.Title,
		Description:     ns.Description,
		IsAuto:          true,
		DueDateOffset:   ns.DueDateOffset,
		ScheduledTime:   ns.ScheduledTime,
		EmailTemplateID: ns.EmailTemplateID,
		Priority:        ns.Priority,
		DurationMinutes: ns.DurationMinutes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if ns.IsAuto != nil {
		s.IsAuto = *ns.IsAuto
	}
	if s.Priority == "" {
		s.Priority = PriorityMedium
	}
	if s.DurationMinutes == 0 {
		s.DurationMinutes = defaultDuration
	}

	created, err := svc.repo.CreateSteps(ctx, s)
	if err != nil {
		return Step{}, errors.Wrap(err, "creating department step")
	}
	return created[0], nil
}

func (svc *Service) Update(ctx context.Context, id string, us UpdateStep) (Step, error) {
	us.Clean()
	if err := svc.validate.Struct(us); err != nil {
		return Step{}, err
	}

	s, err := svc.repo.GetStep(ctx, id)
	if err != nil {
		return Step{}, err
	}
	if us.Type != nil {
		s.Type = *us.Type
	}
	if us.CustomEmailType != nil {
		s.CustomEmailType = us.CustomEmailType
		if *us.CustomEmailType == "" {
			s.CustomEmailType = nil
		}
	}
	if s.Type != template.TypeCustom && us.Type != nil && us.CustomEmailType == nil {
		s.CustomEmailType = nil
	}
	if us.Title != nil {
		s.Title = *us.Title
	}
	if us.Description != nil {
		s.Description = core.CleanString(*us.Description)
	}
	if us.IsAuto != nil {
		s.IsAuto = *us.IsAuto
	}
	if us.DueDateOffset != nil {
		s.DueDateOffset = *us.DueDateOffset
	}
	if us.ClearScheduledTime {
		s.ScheduledTime = nil
	}
	if us.ScheduledTime != nil {
		s.ScheduledTime = us.ScheduledTime
	}
	if us.EmailTemplateID != nil {
		s.EmailTemplateID = *us.EmailTemplateID
	}
	if us.Priority != nil {
		s.Priority = *us.Priority
	}
	if us.DurationMinutes != nil {
		s.DurationMinutes = *us.DurationMinutes
	}

	hasCustom := s.CustomEmailType != nil
	if s.Type == template.TypeCustom && !hasCustom {
		return Step{}, core.NewFieldError("custom_email_type", errCustomRequired)
	}
	if s.Type != template.TypeCustom && hasCustom {
		return Step{}, core.NewFieldError("custom_email_type", errCustomNotAllow)
	}
	// the referenced template must still be active, even when it is not the one being changed
	if err = svc.checkTemplate(ctx, s.EmailTemplateID); err != nil {
		return Step{}, err
	}
	s.UpdatedAt = core.NowFunc().UTC()

	s, err = svc.repo.UpdateStep(ctx, s)
	return s, errors.Wrap(err, "updating department step")
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	if _, err := svc.repo.GetStep(ctx, id); err != nil {
		return err
	}
	return errors.Wrap(svc.repo.DeleteStep(ctx, id), "deleting department step")
}

// Swap exchanges the positions of two adjacent steps of the same department.
func (svc *Service) Swap(ctx context.Context, req ReorderRequest) ([]Step, error) {
	if err := svc.validate.Struct(req); err != nil {
		return nil, err
	}
	a, err := svc.repo.GetStep(ctx, req.StepID)
	if err != nil {
		return nil, err
	}
	b, err := svc.repo.GetStep(ctx, req.NeighborID)
	if err != nil {
		return nil, err
	}
	if a.Department != b.Department || abs(a.StepNumber-b.StepNumber) != 1 {
		return nil, ErrNotAdjacent
	}

	if err = svc.repo.SwapSteps(ctx, a.ID, b.ID); err != nil {
		if core.IsConflict(err) {
			return nil, err
		}
		return nil, errors.Wrap(err, "swapping department steps")
	}
	return svc.List(ctx, a.Department)
}

// Move swaps a step with its neighbour in the given direction.
// Moving the first step up or the last step down is rejected.
func (svc *Service) Move(ctx context.Context, id string, req MoveRequest) ([]Step, error) {
	if err := svc.validate.Struct(req); err != nil {
		return nil, err
	}
	s, err := svc.repo.GetStep(ctx, id)
	if err != nil {
		return nil, err
	}
	steps, err := svc.List(ctx, s.Department)
	if err != nil {
		return nil, err
	}

	target := s.StepNumber - 1
	if req.Direction == Down {
		target = s.StepNumber + 1
	}
	if target < 1 {
		return nil, core.NewFieldError("direction", errFirstStepUp)
	}
	if target > len(steps) {
		return nil, core.NewFieldError("direction", errLastStepDown)
	}
	neighbor := steps[target-1]

	return svc.Swap(ctx, ReorderRequest{StepID: s.ID, NeighborID: neighbor.ID})
}

// InitializeDefaults creates the default onboarding plan for a department that has no steps yet.
// Missing default email templates are created on the way.
func (svc *Service) InitializeDefaults(ctx context.Context, department string) ([]Step, error) {
	department = core.CleanString(department)
	if department == "" {
		return nil, core.NewFieldError("department", "department is required")
	}
	existing, err := svc.List(ctx, department)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, ErrAlreadyInit
	}

	now := core.NowFunc().UTC()
	steps := make([]Step, 0, len(defaultPlan))
	for _, def := range defaultPlan {
		tmpl, err := svc.templates.FindActiveByType(ctx, def.Type)
		if core.IsNotFound(err) {
			tmpl, err = svc.templates.Create(ctx, template.NewTemplate{
				Name:    def.Title,
				Type:    def.Type,
				Subject: def.Subject,
				Body:    def.Body,
			})
		}
		if err != nil {
			return nil, errors.Wrapf(err, "preparing %s template", def.Type)
		}

		s := Step{
			ID:              uuid.NewString(),
			Department:      department,
			Type:            def.Type,
			Title:           def.Title,
			Description:     template.Render(def.Description, map[string]string{"department": department}),
			IsAuto:          def.IsAuto,
			DueDateOffset:   def.Offset,
			EmailTemplateID: tmpl.ID,
			Priority:        def.Priority,
			DurationMinutes: def.Duration,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if def.ScheduledTime != "" {
			st := def.ScheduledTime
			s.ScheduledTime = &st
		}
		steps = append(steps, s)
	}

	steps, err = svc.repo.InitSteps(ctx, department, steps...)
	if err != nil {
		return nil, errors.Wrap(err, "creating default steps")
	}
	return steps, nil
}

func (svc *Service) checkTemplate(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return core.NewFieldError("email_template_id", errTemplateInactive)
	}
	_, active, err := svc.templates.GetActive(ctx, id)
	if err != nil {
		return errors.Wrap(err, "fetching email template")
	}
	if !active {
		return core.NewFieldError("email_template_id", errTemplateInactive)
	}
	return nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
