package step

import (
	"time"

	"github.com/ironladytech/onboarding/core"
	"github.com/ironladytech/onboarding/core/template"
)

type (
	SchedulingMethod string
	Priority         string
	Direction        string
)

const (
	MethodAuto   SchedulingMethod = "AUTO"
	MethodManual SchedulingMethod = "MANUAL"

	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"

	Up   Direction = "up"
	Down Direction = "down"

	defaultDuration = 60
)

// Step is one entry of a department's ordered onboarding plan.
// Within a department, step numbers are unique and contiguous from 1.
type Step struct {
	ID              string        `json:"id"`
	Department      string        `json:"department"`
	StepNumber      int           `json:"step_number"`
	Type            template.Type `json:"type"`
	CustomEmailType *string       `json:"custom_email_type"`
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	IsAuto          bool          `json:"is_auto"`
	DueDateOffset   int           `json:"due_date_offset"` // days relative to the anchor date
	ScheduledTime   *string       `json:"scheduled_time"`  // HH:MM, nil means the default for Type
	EmailTemplateID string        `json:"email_template_id"`
	Priority        Priority      `json:"priority"`
	DurationMinutes int           `json:"duration_minutes"`
	CreatedAt       time.Time     `json:"created_at"` // UTC
	UpdatedAt       time.Time     `json:"updated_at"` // UTC
}

func (s Step) Method() SchedulingMethod {
	if s.IsAuto {
		return MethodAuto
	}
	return MethodManual
}

func (s Step) Duration() time.Duration {
	if s.DurationMinutes <= 0 {
		return defaultDuration * time.Minute
	}
	return time.Duration(s.DurationMinutes) * time.Minute
}

// NewStep contains information needed to append a Step to a department.
type NewStep struct {
	Type            template.Type `json:"type" validate:"required,templatetype"`
	CustomEmailType *string       `json:"custom_email_type" validate:"omitempty,max=100"`
	Title           string        `json:"title" validate:"required,max=200"`
	Description     string        `json:"description"`
	IsAuto          *bool         `json:"is_auto"`
	DueDateOffset   int           `json:"due_date_offset" validate:"min=-365,max=365"`
	ScheduledTime   *string       `json:"scheduled_time" validate:"omitempty,hhmm"`
	EmailTemplateID string        `json:"email_template_id" validate:"required"`
	Priority        Priority      `json:"priority" validate:"omitempty,steppriority"`
	DurationMinutes int           `json:"duration_minutes" validate:"omitempty,min=5,max=1440"`
}

func (ns *NewStep) Clean() {
	ns.CustomEmailType = core.CleanStringPtr(ns.CustomEmailType)
	ns.Title = core.CleanString(ns.Title)
	ns.Description = core.CleanString(ns.Description)
	ns.ScheduledTime = core.CleanStringPtr(ns.ScheduledTime)
	ns.EmailTemplateID = core.CleanString(ns.EmailTemplateID)
}

// UpdateStep defines what information may be provided to modify an existing Step.
// Department and step number only change through reordering.
type UpdateStep struct {
	Type               *template.Type `json:"type" validate:"omitempty,templatetype"`
	CustomEmailType    *string        `json:"custom_email_type" validate:"omitempty,max=100"`
	Title              *string        `json:"title" validate:"omitempty,min=1,max=200"`
	Description        *string        `json:"description"`
	IsAuto             *bool          `json:"is_auto"`
	DueDateOffset      *int           `json:"due_date_offset" validate:"omitempty,min=-365,max=365"`
	ScheduledTime      *string        `json:"scheduled_time" validate:"omitempty,hhmm"`
	ClearScheduledTime bool           `json:"clear_scheduled_time"`
	EmailTemplateID    *string        `json:"email_template_id" validate:"omitempty,min=1"`
	Priority           *Priority      `json:"priority" validate:"omitempty,steppriority"`
	DurationMinutes    *int           `json:"duration_minutes" validate:"omitempty,min=5,max=1440"`
}

func (us *UpdateStep) Clean() {
	if us.CustomEmailType != nil {
		c := core.CleanString(*us.CustomEmailType)
		us.CustomEmailType = &c // blank clears it
	}
	us.Title = core.CleanStringPtr(us.Title)
	us.ScheduledTime = core.CleanStringPtr(us.ScheduledTime)
	us.EmailTemplateID = core.CleanStringPtr(us.EmailTemplateID)
}

// ReorderRequest swaps two adjacent steps of the same department.
type ReorderRequest struct {
	StepID     string `json:"step_id" validate:"required"`
	NeighborID string `json:"neighbor_id" validate:"required,nefield=StepID"`
}

type MoveRequest struct {
	Direction Direction `json:"direction" validate:"required,oneof=up down"`
}

// defaultStep describes one entry of the plan created by InitializeDefaults.
type defaultStep struct {
	Type          template.Type
	Title         string
	Description   string
	IsAuto        bool
	Offset        int
	ScheduledTime string
	Priority      Priority
	Duration      int
	Subject       string
	Body          string
}

var defaultPlan = []defaultStep{
	{
		Type: template.TypeOfferLetter, Title: "Offer Letter", IsAuto: false, Priority: PriorityHigh, Duration: 30,
		Description: "Send the offer letter to the candidate.",
		Subject:     "Your offer from {{companyName}}",
		Body: "Dear {{candidateName}},\n\nWe are delighted to offer you the position of {{position}} in our {{department}} team.\n\n" +
			"Please find the offer letter attached and let us know your decision.\n\nWarm regards,\n{{hrName}}\n{{companyName}}",
	},
	{
		Type: template.TypeOfferReminder, Title: "Offer Reminder", IsAuto: true, Offset: 2, Priority: PriorityMedium, Duration: 15,
		Description: "Remind the candidate to respond to the offer.",
		Subject:     "Reminder: your offer from {{companyName}}",
		Body: "Dear {{firstName}},\n\nThis is a gentle reminder about the offer we sent on {{offerDate}}.\n\n" +
			"Feel free to reach out to {{hrEmail}} with any questions.\n\nRegards,\n{{hrName}}",
	},
	{
		Type: template.TypeWelcomeEmail, Title: "Welcome Email", IsAuto: true, Offset: -7, ScheduledTime: "10:00", Priority: PriorityMedium, Duration: 15,
		Description: "Welcome the candidate ahead of their first day.",
		Subject:     "Welcome to {{companyName}}, {{firstName}}!",
		Body: "Dear {{firstName}},\n\nWe are excited to have you join us on {{joiningDate}}.\n\n" +
			"Our office is at {{officeAddress}}. Reach {{hrName}} at {{hrPhone}} for anything you need.\n\nSee you soon,\n{{companyName}}",
	},
	{
		Type: template.TypeHRInduction, Title: "HR Induction", IsAuto: true, Offset: 0, ScheduledTime: "09:30", Priority: PriorityHigh, Duration: 90,
		Description: "Policies, payroll and benefits walkthrough.",
		Subject:     "HR induction on {{eventDate}}",
		Body: "Dear {{firstName}},\n\nYour HR induction is scheduled for {{eventDate}} at {{eventTime}}.\n\n" +
			"Join here: {{meetingLink}}\n\nRegards,\n{{hrName}}",
	},
	{
		Type: template.TypeDepartmentInduction, Title: "Department Induction", IsAuto: true, Offset: 1, ScheduledTime: "11:00", Priority: PriorityMedium, Duration: 60,
		Description: "Meet the {{department}} team.",
		Subject:     "{{department}} induction on {{eventDate}}",
		Body: "Dear {{firstName}},\n\nYou will meet the {{department}} team on {{eventDate}} at {{eventTime}}.\n\n" +
			"Join here: {{meetingLink}}\n\nRegards,\n{{hrName}}",
	},
	{
		Type: template.TypeTrainingPlan, Title: "Training Plan", IsAuto: true, Offset: 2, Priority: PriorityMedium, Duration: 60,
		Description: "Share the first month training plan.",
		Subject:     "Your training plan",
		Body:        "Dear {{firstName}},\n\nPlease find your training plan for the coming weeks attached.\n\nRegards,\n{{hrName}}",
	},
	{
		Type: template.TypeCheckinCall, Title: "Check-in Call", IsAuto: true, Offset: 7, ScheduledTime: "15:00", Priority: PriorityLow, Duration: 30,
		Description: "First week check-in with HR.",
		Subject:     "First week check-in",
		Body: "Dear {{firstName}},\n\nLet's catch up on your first week on {{eventDate}} at {{eventTime}}.\n\n" +
			"Join here: {{meetingLink}}\n\nRegards,\n{{hrName}}",
	},
}
