package candidate

import (
	"time"

	"github.com/ironladytech/onboarding/core"
)

type Status string

const (
	StatusOfferPending   Status = "OFFER_PENDING"
	StatusOfferSent      Status = "OFFER_SENT"
	StatusOfferAccepted  Status = "OFFER_ACCEPTED"
	StatusOfferDeclined  Status = "OFFER_DECLINED"
	StatusJoiningPending Status = "JOINING_PENDING"
	StatusJoined         Status = "JOINED"
	StatusOnboarding     Status = "ONBOARDING"
	StatusCompleted      Status = "COMPLETED"
	StatusWithdrawn      Status = "WITHDRAWN"
)

var Statuses = []Status{
	StatusOfferPending, StatusOfferSent, StatusOfferAccepted, StatusOfferDeclined,
	StatusJoiningPending, StatusJoined, StatusOnboarding, StatusCompleted, StatusWithdrawn,
}

func statusValues() []string {
	vals := make([]string, 0, len(Statuses))
	for _, s := range Statuses {
		vals = append(vals, string(s))
	}
	return vals
}

type Candidate struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	Email               string     `json:"email"`
	Phone               string     `json:"phone"`
	Department          string     `json:"department"`
	Position            string     `json:"position"`
	ExpectedJoiningDate *core.Date `json:"expected_joining_date"`
	OfferSentAt         *time.Time `json:"offer_sent_at"` // UTC
	Status              Status     `json:"status"`
	Notes               string     `json:"notes"`
	CreatedAt           time.Time  `json:"created_at"` // UTC
	UpdatedAt           time.Time  `json:"updated_at"` // UTC
}

func (c Candidate) IsWithdrawn() bool {
	return c.Status == StatusWithdrawn
}

// FirstName is the first word of the candidate's name.
func (c Candidate) FirstName() string {
	for i, r := range c.Name {
		if r == ' ' {
			return c.Name[:i]
		}
	}
	return c.Name
}

// NewCandidate contains information needed to create a new Candidate.
type NewCandidate struct {
	Name                string     `json:"name" validate:"required,max=200"`
	Email               string     `json:"email" validate:"omitempty,email"`
	Phone               string     `json:"phone" validate:"omitempty,max=50"`
	Department          string     `json:"department" validate:"required,max=100"`
	Position            string     `json:"position" validate:"omitempty,max=200"`
	ExpectedJoiningDate *core.Date `json:"expected_joining_date"`
	OfferSentAt         *time.Time `json:"offer_sent_at"`
	Status              Status     `json:"status" validate:"omitempty,candidatestatus"`
	Notes               string     `json:"notes"`
}

func (nc *NewCandidate) Clean() {
	nc.Name = core.CleanString(nc.Name)
	nc.Email = core.CleanString(nc.Email, true /* lower */)
	nc.Phone = core.CleanString(nc.Phone)
	nc.Department = core.CleanString(nc.Department)
	nc.Position = core.CleanString(nc.Position)
	nc.Notes = core.CleanString(nc.Notes)
}

// UpdateCandidate defines what information may be provided to modify an existing Candidate.
// Nil fields are left untouched; ClearJoiningDate unsets the joining date.
type UpdateCandidate struct {
	Name                *string    `json:"name" validate:"omitempty,min=1,max=200"`
	Email               *string    `json:"email" validate:"omitempty,email"`
	Phone               *string    `json:"phone" validate:"omitempty,max=50"`
	Department          *string    `json:"department" validate:"omitempty,min=1,max=100"`
	Position            *string    `json:"position" validate:"omitempty,max=200"`
	ExpectedJoiningDate *core.Date `json:"expected_joining_date"`
	ClearJoiningDate    bool       `json:"clear_joining_date"`
	OfferSentAt         *time.Time `json:"offer_sent_at"`
	Notes               *string    `json:"notes"`
}

func (uc *UpdateCandidate) Clean() {
	uc.Name = core.CleanStringPtr(uc.Name)
	if uc.Email != nil {
		e := core.CleanString(*uc.Email, true /* lower */)
		uc.Email = &e // blank clears the address
	}
	uc.Department = core.CleanStringPtr(uc.Department)
}

// Changes reports which scheduling anchors an update touched.
type Changes struct {
	JoiningDateChanged bool
	OfferSentAtChanged bool
}

func (c Changes) AnchorsChanged() bool {
	return c.JoiningDateChanged || c.OfferSentAtChanged
}

type QueryFilter struct {
	Search      string
	Statuses    []Status
	Department  string
	JoiningFrom *core.Date
	JoiningTo   *core.Date
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Department = core.CleanString(qf.Department)
}

// Match applies the filter in memory; repositories without a query language use it.
func (qf QueryFilter) Match(c Candidate) bool {
	if qf.Search != "" && !core.ContainsFold(qf.Search, c.Name, c.Email, c.Position) {
		return false
	}
	if len(qf.Statuses) > 0 {
		found := false
		for _, s := range qf.Statuses {
			if s == c.Status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if qf.Department != "" && qf.Department != c.Department {
		return false
	}
	if qf.JoiningFrom != nil && (c.ExpectedJoiningDate == nil || c.ExpectedJoiningDate.Before(qf.JoiningFrom.Time)) {
		return false
	}
	if qf.JoiningTo != nil && (c.ExpectedJoiningDate == nil || c.ExpectedJoiningDate.After(qf.JoiningTo.Time)) {
		return false
	}
	return true
}

// StatusCount is one row of the candidates-by-status breakdown.
type StatusCount struct {
	Status Status `json:"status"`
	Count  int    `json:"count"`
}
