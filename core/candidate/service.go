package candidate

import (
	"context"
	"fmt"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ironladytech/onboarding/core"
	"github.com/ironladytech/onboarding/core/activity"
)

var (
	// errors
	ErrNotFound  = core.NewNotFoundError("candidate")
	errWithdrawn = core.NewConflictError("candidate has withdrawn")

	statusTag = "candidatestatus"
)

// InitValidators registers the candidate validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterEnumValidation(validate, translator, statusTag, statusValues())
}

type Repository interface {
	CreateCandidate(ctx context.Context, c Candidate) (Candidate, error)
	GetCandidate(ctx context.Context, id string) (Candidate, error)
	QueryCandidates(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Candidate, int, error)
	UpdateCandidate(ctx context.Context, c Candidate) (Candidate, error)
	CountByStatus(ctx context.Context) ([]StatusCount, error)
}

type Service struct {
	repo     Repository
	activity *activity.Service
	validate *validator.Validate
}

func NewService(repo Repository, activitySvc *activity.Service, validate *validator.Validate) *Service {
	return &Service{repo: repo, activity: activitySvc, validate: validate}
}

func (svc *Service) Create(ctx context.Context, nc NewCandidate, actor string) (Candidate, error) {
	nc.Clean()
	if err := svc.validate.Struct(nc); err != nil {
		return Candidate{}, err
	}

	now := core.NowFunc().UTC()
	c := Candidate{
		ID:                  uuid.NewString(),
		Name:                nc.Name,
		Email:               nc.Email,
		Phone:               nc.Phone,
		Department:          nc.Department,
		Position:            nc.Position,
		ExpectedJoiningDate: nc.ExpectedJoiningDate,
		Status:              nc.Status,
		Notes:               nc.Notes,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if nc.OfferSentAt != nil {
		t := nc.OfferSentAt.UTC()
		c.OfferSentAt = &t
	}
	if c.Status == "" {
		c.Status = StatusOfferPending
	}

	c, err := svc.repo.CreateCandidate(ctx, c)
	if err != nil {
		return Candidate{}, errors.Wrap(err, "creating candidate")
	}
	svc.activity.Record(ctx, c.ID, activity.ActionCandidateCreated, fmt.Sprintf("Candidate %s added to %s", c.Name, c.Department), actor)
	return c, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Candidate, error) {
	return svc.repo.GetCandidate(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, page core.Pagination) (core.Page[Candidate], error) {
	filter.Clean()
	page.Clean()
	items, total, err := svc.repo.QueryCandidates(ctx, filter, ordering, page)
	if err != nil {
		return core.Page[Candidate]{}, errors.Wrap(err, "querying candidates")
	}
	return core.NewPage(items, total, page), nil
}

// Update applies uc and reports which scheduling anchors changed so callers can realign pending events.
func (svc *Service) Update(ctx context.Context, id string, uc UpdateCandidate, actor string) (Candidate, Changes, error) {
	uc.Clean()
	if err := svc.validate.Struct(uc); err != nil {
		return Candidate{}, Changes{}, err
	}

	c, err := svc.repo.GetCandidate(ctx, id)
	if err != nil {
		return Candidate{}, Changes{}, err
	}
	orig := c

	if uc.Name != nil {
		c.Name = *uc.Name
	}
	if uc.Email != nil {
		c.Email = *uc.Email
	}
	if uc.Phone != nil {
		c.Phone = core.CleanString(*uc.Phone)
	}
	if uc.Department != nil {
		c.Department = *uc.Department
	}
	if uc.Position != nil {
		c.Position = core.CleanString(*uc.Position)
	}
	if uc.Notes != nil {
		c.Notes = core.CleanString(*uc.Notes)
	}
	if uc.ClearJoiningDate {
		c.ExpectedJoiningDate = nil
	} else if uc.ExpectedJoiningDate != nil {
		c.ExpectedJoiningDate = uc.ExpectedJoiningDate
	}
	if uc.OfferSentAt != nil {
		t := uc.OfferSentAt.UTC()
		c.OfferSentAt = &t
	}

	changes := Changes{
		JoiningDateChanged: !core.SameDatePtr(orig.ExpectedJoiningDate, c.ExpectedJoiningDate),
		OfferSentAtChanged: !core.SameTimePtr(orig.OfferSentAt, c.OfferSentAt),
	}
	c.UpdatedAt = core.NowFunc().UTC()

	c, err = svc.repo.UpdateCandidate(ctx, c)
	if err != nil {
		return Candidate{}, Changes{}, errors.Wrap(err, "updating candidate")
	}
	if changes.JoiningDateChanged {
		joining := "unset"
		if c.ExpectedJoiningDate != nil {
			joining = c.ExpectedJoiningDate.String()
		}
		svc.activity.Record(ctx, c.ID, activity.ActionJoiningDateChanged, "Expected joining date set to "+joining, actor)
	}
	return c, changes, nil
}

// SetStatus moves a candidate to status. WITHDRAWN is terminal.
func (svc *Service) SetStatus(ctx context.Context, id string, status Status, actor string) (Candidate, error) {
	if err := svc.validate.Var(string(status), "required,"+statusTag); err != nil {
		return Candidate{}, core.NewFieldError("status", "status must be one of the candidate statuses")
	}
	c, err := svc.repo.GetCandidate(ctx, id)
	if err != nil {
		return Candidate{}, err
	}
	if c.Status == status {
		return c, nil
	}
	if c.IsWithdrawn() {
		return Candidate{}, errWithdrawn
	}

	prev := c.Status
	c.Status = status
	c.UpdatedAt = core.NowFunc().UTC()
	c, err = svc.repo.UpdateCandidate(ctx, c)
	if err != nil {
		return Candidate{}, errors.Wrap(err, "updating candidate status")
	}
	svc.activity.Record(ctx, c.ID, activity.ActionStatusChanged, fmt.Sprintf("Status changed from %s to %s", prev, status), actor)
	return c, nil
}

// MarkOfferSent stamps the offer date the first time an offer letter goes out.
func (svc *Service) MarkOfferSent(ctx context.Context, c Candidate, at time.Time) (Candidate, error) {
	changed := false
	if c.OfferSentAt == nil {
		t := at.UTC()
		c.OfferSentAt = &t
		changed = true
	}
	if c.Status == StatusOfferPending {
		c.Status = StatusOfferSent
		changed = true
	}
	if !changed {
		return c, nil
	}
	c.UpdatedAt = core.NowFunc().UTC()
	c, err := svc.repo.UpdateCandidate(ctx, c)
	return c, errors.Wrap(err, "marking offer sent")
}

func (svc *Service) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	counts, err := svc.repo.CountByStatus(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "counting candidates")
	}
	byStatus := make(map[Status]int, len(counts))
	for _, sc := range counts {
		byStatus[sc.Status] = sc.Count
	}
	full := make([]StatusCount, 0, len(Statuses))
	for _, s := range Statuses {
		full = append(full, StatusCount{Status: s, Count: byStatus[s]})
	}
	return full, nil
}
