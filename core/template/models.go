package template

import (
	"time"

	"github.com/ironladytech/onboarding/core"
)

type Type string

const (
	TypeOfferLetter         Type = "OFFER_LETTER"
	TypeOfferReminder       Type = "OFFER_REMINDER"
	TypeWelcomeEmail        Type = "WELCOME_EMAIL"
	TypeHRInduction         Type = "HR_INDUCTION"
	TypeCEOInduction        Type = "CEO_INDUCTION"
	TypeSalesInduction      Type = "SALES_INDUCTION"
	TypeDepartmentInduction Type = "DEPARTMENT_INDUCTION"
	TypeTrainingPlan        Type = "TRAINING_PLAN"
	TypeCheckinCall         Type = "CHECKIN_CALL"
	TypeFormReminder        Type = "FORM_REMINDER"
	TypeCustom              Type = "CUSTOM"
)

var Types = []Type{
	TypeOfferLetter, TypeOfferReminder, TypeWelcomeEmail, TypeHRInduction, TypeCEOInduction,
	TypeSalesInduction, TypeDepartmentInduction, TypeTrainingPlan, TypeCheckinCall,
	TypeFormReminder, TypeCustom,
}

func typeValues() []string {
	vals := make([]string, 0, len(Types))
	for _, t := range Types {
		vals = append(vals, string(t))
	}
	return vals
}

type EmailTemplate struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Type            Type      `json:"type"`
	CustomEmailType *string   `json:"custom_email_type"`
	Subject         string    `json:"subject"`
	Body            string    `json:"body"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"` // UTC
	UpdatedAt       time.Time `json:"updated_at"` // UTC
}

// NewTemplate contains information needed to create a new EmailTemplate.
// CustomEmailType is required iff Type is CUSTOM.
type NewTemplate struct {
	Name            string  `json:"name" validate:"required,max=200"`
	Type            Type    `json:"type" validate:"required,templatetype"`
	CustomEmailType *string `json:"custom_email_type" validate:"omitempty,max=100"`
	Subject         string  `json:"subject" validate:"required,max=300"`
	Body            string  `json:"body" validate:"required"`
	IsActive        *bool   `json:"is_active"`
}

func (nt *NewTemplate) Clean() {
	nt.Name = core.CleanString(nt.Name)
	nt.CustomEmailType = core.CleanStringPtr(nt.CustomEmailType)
	nt.Subject = core.CleanString(nt.Subject)
}

// UpdateTemplate defines what information may be provided to modify an existing EmailTemplate.
type UpdateTemplate struct {
	Name            *string `json:"name" validate:"omitempty,min=1,max=200"`
	Type            *Type   `json:"type" validate:"omitempty,templatetype"`
	CustomEmailType *string `json:"custom_email_type" validate:"omitempty,max=100"`
	Subject         *string `json:"subject" validate:"omitempty,min=1,max=300"`
	Body            *string `json:"body" validate:"omitempty,min=1"`
	IsActive        *bool   `json:"is_active"`
}

func (ut *UpdateTemplate) Clean() {
	ut.Name = core.CleanStringPtr(ut.Name)
	if ut.CustomEmailType != nil {
		c := core.CleanString(*ut.CustomEmailType)
		ut.CustomEmailType = &c // blank clears it
	}
	ut.Subject = core.CleanStringPtr(ut.Subject)
}

type QueryFilter struct {
	Search   string
	Type     Type
	IsActive *bool
}

func (qf QueryFilter) Match(t EmailTemplate) bool {
	if qf.Search != "" && !core.ContainsFold(qf.Search, t.Name, t.Subject, core.StringValue(t.CustomEmailType)) {
		return false
	}
	if qf.Type != "" && qf.Type != t.Type {
		return false
	}
	if qf.IsActive != nil && *qf.IsActive != t.IsActive {
		return false
	}
	return true
}

// PreviewRequest renders a template against a candidate (or sample data) without sending it.
type PreviewRequest struct {
	CandidateID string            `json:"candidate_id" validate:"omitempty,uuid"`
	Overrides   map[string]string `json:"overrides"`
}

type Rendered struct {
	Subject    string   `json:"subject"`
	Body       string   `json:"body"`
	HTML       string   `json:"html"`
	Unresolved []string `json:"unresolved"`
}
