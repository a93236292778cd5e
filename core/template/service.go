package template

import (
	"context"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ironladytech/onboarding/core"
	"github.com/ironladytech/onboarding/core/candidate"
	"github.com/ironladytech/onboarding/core/settings"
)

var (
	// errors
	ErrNotFound       = core.NewNotFoundError("email template")
	errInUse          = core.NewConflictError("email template is used by department steps")
	errInUseInactive  = core.NewConflictError("email template is used by department steps and cannot be deactivated")
	errCustomRequired = "custom_email_type is required when type is CUSTOM"
	errCustomNotAllow = "custom_email_type is only allowed when type is CUSTOM"

	typeTag        = "templatetype"
	customTypeTag  = "customtype"
	customTypeText = errCustomRequired
	notCustomTag   = "notcustom"
	notCustomText  = errCustomNotAllow
)

// InitValidators registers the email template validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterEnumValidation(validate, translator, typeTag, typeValues())

	validate.RegisterStructValidation(newTemplateStructValidation, NewTemplate{})
	core.RegisterCustomTranslation(validate, translator, customTypeTag, customTypeText)
	core.RegisterCustomTranslation(validate, translator, notCustomTag, notCustomText)
}

// newTemplateStructValidation enforces custom_email_type iff type is CUSTOM.
func newTemplateStructValidation(sl validator.StructLevel) {
	nt, ok := sl.Current().Interface().(NewTemplate)
	if !ok {
		return
	}
	hasCustom := nt.CustomEmailType != nil && *nt.CustomEmailType != ""
	if nt.Type == TypeCustom && !hasCustom {
		sl.ReportError(nt.CustomEmailType, "custom_email_type", "CustomEmailType", customTypeTag, "")
	}
	if nt.Type != TypeCustom && hasCustom {
		sl.ReportError(nt.CustomEmailType, "custom_email_type", "CustomEmailType", notCustomTag, "")
	}
}

type Repository interface {
	CreateTemplate(ctx context.Context, t EmailTemplate) (EmailTemplate, error)
	GetTemplate(ctx context.Context, id string) (EmailTemplate, error)
	QueryTemplates(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]EmailTemplate, error)
	UpdateTemplate(ctx context.Context, t EmailTemplate) (EmailTemplate, error)
	DeleteTemplate(ctx context.Context, id string) error
	// CountStepReferences counts the department steps pointing at the template.
	CountStepReferences(ctx context.Context, id string) (int, error)
}

type Service struct {
	repo       Repository
	candidates candidate.Repository
	settings   *settings.Service
	validate   *validator.Validate
	conf       *core.Config
}

func NewService(
	repo Repository,
	candidates candidate.Repository,
	settingsSvc *settings.Service,
	validate *validator.Validate,
	conf *core.Config,
) *Service {
	return &Service{repo: repo, candidates: candidates, settings: settingsSvc, validate: validate, conf: conf}
}

func (svc *Service) Create(ctx context.Context, nt NewTemplate) (EmailTemplate, error) {
	nt.Clean()
	if err := svc.validate.Struct(nt); err != nil {
		return EmailTemplate{}, err
	}

	now := core.NowFunc().UTC()
	t := EmailTemplate{
		ID:              uuid.NewString(),
		Name:            nt.Name,
		Type:            nt.Type,
		CustomEmailType: nt.CustomEmailType,
		Subject:         nt.Subject,
		Body:            nt.Body,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if nt.IsActive != nil {
		t.IsActive = *nt.IsActive
	}
	t, err := svc.repo.CreateTemplate(ctx, t)
	return t, errors.Wrap(err, "creating email template")
}

func (svc *Service) GetByID(ctx context.Context, id string) (EmailTemplate, error) {
	return svc.repo.GetTemplate(ctx, id)
}

// GetActive returns the template only when it exists and is active.
func (svc *Service) GetActive(ctx context.Context, id string) (EmailTemplate, bool, error) {
	t, err := svc.repo.GetTemplate(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			return EmailTemplate{}, false, nil
		}
		return EmailTemplate{}, false, err
	}
	return t, t.IsActive, nil
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]EmailTemplate, error) {
	filter.Search = core.CleanString(filter.Search)
	tmpls, err := svc.repo.QueryTemplates(ctx, filter, ordering)
	return tmpls, errors.Wrap(err, "querying email templates")
}

// FindActiveByType returns the most recently updated active template of type t.
func (svc *Service) FindActiveByType(ctx context.Context, t Type) (EmailTemplate, error) {
	active := true
	tmpls, err := svc.repo.QueryTemplates(ctx, QueryFilter{Type: t, IsActive: &active}, []core.DBOrdering{{Field: "updated_at"}})
	if err != nil {
		return EmailTemplate{}, errors.Wrap(err, "querying email templates")
	}
	if len(tmpls) == 0 {
		return EmailTemplate{}, ErrNotFound
	}
	return tmpls[0], nil
}

func (svc *Service) Update(ctx context.Context, id string, upd UpdateTemplate) (EmailTemplate, error) {
	upd.Clean()
	if err := svc.validate.Struct(upd); err != nil {
		return EmailTemplate{}, err
	}

	t, err := svc.repo.GetTemplate(ctx, id)
	if err != nil {
		return EmailTemplate{}, err
	}
	if upd.Name != nil {
		t.Name = *upd.Name
	}
	if upd.Type != nil {
		t.Type = *upd.Type
	}
	if upd.CustomEmailType != nil {
		t.CustomEmailType = upd.CustomEmailType
		if *upd.CustomEmailType == "" {
			t.CustomEmailType = nil
		}
	}
	if t.Type != TypeCustom && upd.Type != nil && upd.CustomEmailType == nil {
		t.CustomEmailType = nil // switching away from CUSTOM drops the label
	}
	if upd.Subject != nil {
		t.Subject = *upd.Subject
	}
	if upd.Body != nil {
		t.Body = *upd.Body
	}

	hasCustom := t.CustomEmailType != nil
	if t.Type == TypeCustom && !hasCustom {
		return EmailTemplate{}, core.NewFieldError("custom_email_type", errCustomRequired)
	}
	if t.Type != TypeCustom && hasCustom {
		return EmailTemplate{}, core.NewFieldError("custom_email_type", errCustomNotAllow)
	}

	if upd.IsActive != nil {
		if t.IsActive && !*upd.IsActive {
			refs, err := svc.repo.CountStepReferences(ctx, id)
			if err != nil {
				return EmailTemplate{}, errors.Wrap(err, "counting step references")
			}
			if refs > 0 {
				return EmailTemplate{}, errInUseInactive
			}
		}
		t.IsActive = *upd.IsActive
	}
	t.UpdatedAt = core.NowFunc().UTC()

	t, err = svc.repo.UpdateTemplate(ctx, t)
	return t, errors.Wrap(err, "updating email template")
}

// Delete removes a template no department step refers to.
func (svc *Service) Delete(ctx context.Context, id string) error {
	if _, err := svc.repo.GetTemplate(ctx, id); err != nil {
		return err
	}
	refs, err := svc.repo.CountStepReferences(ctx, id)
	if err != nil {
		return errors.Wrap(err, "counting step references")
	}
	if refs > 0 {
		return errInUse
	}
	return errors.Wrap(svc.repo.DeleteTemplate(ctx, id), "deleting email template")
}

// Preview renders the template for a candidate, or sample data, without side effects.
func (svc *Service) Preview(ctx context.Context, id string, req PreviewRequest) (Rendered, error) {
	if err := svc.validate.Struct(req); err != nil {
		return Rendered{}, err
	}
	t, err := svc.repo.GetTemplate(ctx, id)
	if err != nil {
		return Rendered{}, err
	}

	c := SampleCandidate()
	if req.CandidateID != "" {
		if c, err = svc.candidates.GetCandidate(ctx, req.CandidateID); err != nil {
			return Rendered{}, err
		}
	}
	s, err := svc.settings.Get(ctx)
	if err != nil {
		return Rendered{}, err
	}

	loc := svc.conf.Scheduling.Location()
	values := Merge(s.Placeholders(), CandidateValues(c, loc), req.Overrides)
	return svc.RenderEmail(t, values, s), nil
}

// RenderEmail renders subject and body of t and wraps the body into the branded HTML layout.
func (svc *Service) RenderEmail(t EmailTemplate, values map[string]string, s settings.Settings) Rendered {
	r := Rendered{
		Subject: Render(t.Subject, values),
		Body:    Render(t.Body, values),
	}
	msg := core.EmailMessage{Subject: r.Subject, TextContent: r.Body, Branding: s.Branding(svc.conf.FrontendBaseURL)}
	if err := msg.Render(); err == nil {
		r.HTML = msg.HTMLContent
	}
	r.Unresolved = Unresolved(r.Subject + "\n" + r.Body)
	return r
}
