package schedule_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironladytech/onboarding/core"
	"github.com/ironladytech/onboarding/core/candidate"
	"github.com/ironladytech/onboarding/core/email"
	"github.com/ironladytech/onboarding/core/event"
	"github.com/ironladytech/onboarding/core/schedule"
	"github.com/ironladytech/onboarding/core/step"
	"github.com/ironladytech/onboarding/core/template"
	"github.com/ironladytech/onboarding/tests"
)

var now = time.Date(2024, time.June, 1, 8, 0, 0, 0, time.UTC)

func setup(t *testing.T) *testutil.Env {
	testutil.FreezeTime(t, now)
	return testutil.NewEnv(t)
}

func countEvents(t *testing.T, env *testutil.Env) int {
	evs, err := env.Events.Query(context.Background(), event.QueryFilter{}, nil)
	require.NoError(t, err)
	return len(evs)
}

func TestService_BatchSchedule_partialFailure(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	joining := testutil.DatePtr(2024, time.June, 10)

	s := testutil.CreateStep(t, env, "Engineering", template.TypeHRInduction, 0)
	asha := testutil.CreateCandidate(t, env.Candidates, "Asha Rao", "asha@example.com", "Engineering", joining)
	noMail := testutil.CreateCandidate(t, env.Candidates, "Ravi Kumar", "", "Engineering", joining)
	meera := testutil.CreateCandidate(t, env.Candidates, "Meera Iyer", "meera@example.com", "Engineering", joining)

	results, err := env.Schedule.BatchSchedule(ctx, schedule.BatchRequest{
		CandidateIDs: []string{asha.ID, noMail.ID, meera.ID},
		StepID:       s.ID,
		Mode:         schedule.ModeComputed,
	}, testutil.Actor)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.True(t, results[0].Success)
	assert.NotEmpty(t, results[0].EventID)
	assert.NotEmpty(t, results[0].EmailID)
	assert.False(t, results[1].Success)
	assert.Equal(t, "candidate has no email address", results[1].Error)
	assert.Empty(t, results[1].EventID)
	assert.True(t, results[2].Success)

	assert.Equal(t, 2, countEvents(t, env))
	assert.Len(t, env.MailMock.Sent(), 2)
	assert.Equal(t, 2, env.CalendarMock.Len())

	ev, err := env.Events.GetByID(ctx, results[0].EventID)
	require.NoError(t, err)
	assert.Equal(t, event.StatusScheduled, ev.Status)
	assert.True(t, ev.Computed)
	assert.Equal(t, time.Date(2024, time.June, 10, 9, 0, 0, 0, time.UTC), ev.StartTime)
	assert.Equal(t, time.Hour, ev.Duration())
	assert.NotEmpty(t, ev.MeetingLink)

	emails, err := env.Emails.ListForCandidate(ctx, asha.ID)
	require.NoError(t, err)
	require.Len(t, emails, 1)
	assert.Equal(t, email.StatusSent, emails[0].Status)
	assert.Equal(t, "Hello Asha Rao", emails[0].Subject)
	assert.NotNil(t, emails[0].TrackingID)
}

func TestService_BatchSchedule_itemFailures(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	joining := testutil.DatePtr(2024, time.June, 10)

	s := testutil.CreateStep(t, env, "Sales", template.TypeCheckinCall, 7)
	bounce := testutil.CreateCandidate(t, env.Candidates, "Bounce", "bounce@example.com", "Sales", joining)
	busy := testutil.CreateCandidate(t, env.Candidates, "Busy", "busy@example.com", "Sales", joining)
	noDate := testutil.CreateCandidate(t, env.Candidates, "No Date", "nodate@example.com", "Sales", nil)
	gone := testutil.CreateCandidate(t, env.Candidates, "Gone", "gone@example.com", "Sales", joining)
	_, err := env.Candidates.SetStatus(ctx, gone.ID, candidate.StatusWithdrawn, testutil.Actor)
	require.NoError(t, err)

	env.MailMock.FailFor[bounce.Email] = errors.New("mailbox unavailable")
	env.CalendarMock.FailFor[busy.Email] = errors.New("calendar quota exceeded")

	results, err := env.Schedule.BatchSchedule(ctx, schedule.BatchRequest{
		CandidateIDs: []string{bounce.ID, busy.ID, noDate.ID, gone.ID, "f4d1e0b8-0000-4000-8000-000000000000", bounce.ID},
		StepID:       s.ID,
		Mode:         schedule.ModeComputed,
	}, testutil.Actor)
	require.NoError(t, err)
	require.Len(t, results, 5, "duplicate ids are processed once")
	for _, r := range results {
		assert.False(t, r.Success, r.CandidateID)
		assert.NotEmpty(t, r.Error, r.CandidateID)
	}

	// the email failed after the event was booked: the event is cancelled, the email kept as FAILED
	ev, err := env.Events.GetByID(ctx, results[0].EventID)
	require.NoError(t, err)
	assert.Equal(t, event.StatusCancelled, ev.Status)
	em, err := env.Emails.ListForCandidate(ctx, bounce.ID)
	require.NoError(t, err)
	require.Len(t, em, 1)
	assert.Equal(t, email.StatusFailed, em[0].Status)

	// the calendar failed: the event row exists but is cancelled and no email went out
	ev, err = env.Events.GetByID(ctx, results[1].EventID)
	require.NoError(t, err)
	assert.Equal(t, event.StatusCancelled, ev.Status)
	assert.Empty(t, results[1].EmailID)

	assert.Equal(t, "anchor date unknown", results[2].Error)
	assert.Equal(t, "candidate has withdrawn", results[3].Error)
	assert.Equal(t, "candidate not found", results[4].Error)
	assert.Empty(t, env.MailMock.Sent())
}

func TestService_BatchSchedule_invalidRequests(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	auto := testutil.CreateStep(t, env, "Ops", template.TypeWelcomeEmail, -7)
	c := testutil.CreateCandidate(t, env.Candidates, "Asha", "asha@example.com", "Ops", nil)

	tmpl := testutil.CreateTemplate(t, env.Templates, "Offer", template.TypeOfferLetter, "Offer", "Body")
	manualFlag := false
	manual, err := env.Steps.Create(ctx, "Ops", step.NewStep{
		Type: template.TypeOfferLetter, Title: "Offer", IsAuto: &manualFlag, EmailTemplateID: tmpl.ID,
	})
	require.NoError(t, err)

	at := now.Add(48 * time.Hour)
	tests := []struct {
		name string
		req  schedule.BatchRequest
	}{
		{name: "no candidates", req: schedule.BatchRequest{StepID: auto.ID, Mode: schedule.ModeComputed}},
		{name: "no step", req: schedule.BatchRequest{CandidateIDs: []string{c.ID}, Mode: schedule.ModeComputed}},
		{name: "bad mode", req: schedule.BatchRequest{CandidateIDs: []string{c.ID}, StepID: auto.ID, Mode: "LATER"}},
		{name: "exact without date", req: schedule.BatchRequest{CandidateIDs: []string{c.ID}, StepID: auto.ID, Mode: schedule.ModeExact}},
		{name: "computed on manual step", req: schedule.BatchRequest{CandidateIDs: []string{c.ID}, StepID: manual.ID, Mode: schedule.ModeComputed}},
		{
			name: "type mismatch",
			req: schedule.BatchRequest{
				CandidateIDs: []string{c.ID}, StepID: auto.ID, StepType: template.TypeCEOInduction, Mode: schedule.ModeExact, DateTime: &at,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.Schedule.BatchSchedule(ctx, tt.req, testutil.Actor)
			var vErrs validator.ValidationErrors
			var vErr *core.ValidationError
			assert.True(t, errors.As(err, &vErrs) || errors.As(err, &vErr), "got %v", err)
		})
	}

	_, err = env.Schedule.BatchSchedule(ctx, schedule.BatchRequest{
		CandidateIDs: []string{c.ID}, Department: "Ops", StepNumber: 9, Mode: schedule.ModeComputed,
	}, testutil.Actor)
	assert.True(t, core.IsNotFound(err))
	assert.Zero(t, countEvents(t, env))
}

func TestService_BatchSchedule_exactOfferLetter(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	tmpl := testutil.CreateTemplate(t, env.Templates, "Offer", template.TypeOfferLetter, "Offer for {{firstName}}", "Join {{companyName}}")
	manualFlag := false
	offer, err := env.Steps.Create(ctx, "Design", step.NewStep{
		Type: template.TypeOfferLetter, Title: "Offer", IsAuto: &manualFlag, EmailTemplateID: tmpl.ID,
	})
	require.NoError(t, err)
	c := testutil.CreateCandidate(t, env.Candidates, "Asha Rao", "asha@example.com", "Design", nil)

	at := time.Date(2024, time.June, 3, 11, 30, 0, 0, time.UTC)
	results, err := env.Schedule.BatchSchedule(ctx, schedule.BatchRequest{
		CandidateIDs:    []string{c.ID},
		Department:      "Design",
		StepNumber:      1,
		Mode:            schedule.ModeExact,
		DateTime:        &at,
		DurationMinutes: 45,
		Attachments:     []core.FileRef{{Name: "offer.pdf", URL: "https://files.example.com/offer.pdf"}},
		Overrides:       map[string]string{"companyName": "Acme Labs"},
	}, testutil.Actor)
	require.NoError(t, err)
	require.True(t, results[0].Success, results[0].Error)

	ev, err := env.Events.GetByID(ctx, results[0].EventID)
	require.NoError(t, err)
	assert.Equal(t, at, ev.StartTime)
	assert.Equal(t, 45*time.Minute, ev.Duration())
	assert.False(t, ev.Computed)
	assert.Equal(t, offer.ID, core.StringValue(ev.StepID))
	assert.Len(t, ev.Attachments, 1)

	sent := env.MailMock.Sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Subject, "Offer for Asha")
	assert.Contains(t, sent[0].TextContent, "Join Acme Labs")

	got, err := env.Candidates.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, candidate.StatusOfferSent, got.Status)
	require.NotNil(t, got.OfferSentAt)
	assert.Equal(t, now, *got.OfferSentAt)
}

func TestService_Realign(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	s := testutil.CreateStep(t, env, "Engineering", template.TypeDepartmentInduction, 1)
	c := testutil.CreateCandidate(t, env.Candidates, "Asha", "asha@example.com", "Engineering", testutil.DatePtr(2024, time.June, 10))

	results, err := env.Schedule.BatchSchedule(ctx, schedule.BatchRequest{
		CandidateIDs: []string{c.ID}, StepID: s.ID, Mode: schedule.ModeComputed,
	}, testutil.Actor)
	require.NoError(t, err)
	require.True(t, results[0].Success)

	newDate := core.NewDate(2024, time.June, 17)
	_, changes, err := env.Candidates.Update(ctx, c.ID, candidate.UpdateCandidate{ExpectedJoiningDate: &newDate}, testutil.Actor)
	require.NoError(t, err)
	require.True(t, changes.AnchorsChanged())

	moved, err := env.Schedule.Realign(ctx, c.ID, testutil.Actor)
	require.NoError(t, err)
	require.Len(t, moved, 1)
	assert.Equal(t, time.Date(2024, time.June, 18, 9, 0, 0, 0, time.UTC), moved[0].StartTime)
	assert.Equal(t, event.StatusRescheduled, moved[0].Status)

	cal, ok := env.CalendarMock.Event(moved[0].CalendarRef)
	require.True(t, ok)
	assert.Equal(t, moved[0].StartTime, cal.Start)

	// nothing left to move
	moved, err = env.Schedule.Realign(ctx, c.ID, testutil.Actor)
	require.NoError(t, err)
	assert.Empty(t, moved)
}

func TestService_Progress(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	welcome := testutil.CreateStep(t, env, "Engineering", template.TypeWelcomeEmail, -7)
	induction := testutil.CreateStep(t, env, "Engineering", template.TypeHRInduction, 0)
	withDate := testutil.CreateCandidate(t, env.Candidates, "Asha", "asha@example.com", "Engineering", testutil.DatePtr(2024, time.June, 10))
	noDate := testutil.CreateCandidate(t, env.Candidates, "Ravi", "ravi@example.com", "Engineering", nil)

	results, err := env.Schedule.BatchSchedule(ctx, schedule.BatchRequest{
		CandidateIDs: []string{withDate.ID}, StepID: welcome.ID, Mode: schedule.ModeComputed,
	}, testutil.Actor)
	require.NoError(t, err)
	_, err = env.Events.Complete(ctx, results[0].EventID, testutil.Actor)
	require.NoError(t, err)

	progress, err := env.Schedule.Progress(ctx, withDate.ID)
	require.NoError(t, err)
	require.Len(t, progress, 2)
	assert.Equal(t, schedule.ProgressCompleted, progress[0].State)
	assert.Equal(t, schedule.ProgressUnscheduled, progress[1].State)
	assert.Equal(t, induction.ID, progress[1].Step.ID)
	assert.Equal(t, schedule.StateResolved, progress[1].Resolution.State)

	progress, err = env.Schedule.Progress(ctx, noDate.ID)
	require.NoError(t, err)
	for _, p := range progress {
		assert.Equal(t, schedule.ProgressBlocked, p.State)
	}

	res, err := env.Schedule.ResolveFor(ctx, induction.ID, withDate.ID)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.June, 10, 9, 0, 0, 0, time.UTC), *res.At)
}

func TestService_BatchSchedule_engineeringInduction(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	testutil.CreateStep(t, env, "Engineering", template.TypeWelcomeEmail, -7)
	testutil.CreateStep(t, env, "Engineering", template.TypeTrainingPlan, -3)
	tmpl := testutil.CreateTemplate(t, env.Templates, "Induction", template.TypeHRInduction, "Induction for {{candidateName}}", "See you")
	induction, err := env.Steps.Create(ctx, "Engineering", step.NewStep{
		Type:            template.TypeHRInduction,
		Title:           "HR induction",
		DueDateOffset:   -2,
		ScheduledTime:   func(s string) *string { return &s }("10:00"),
		EmailTemplateID: tmpl.ID,
	})
	require.NoError(t, err)
	require.Equal(t, 3, induction.StepNumber)

	asha := testutil.CreateCandidate(t, env.Candidates, "Asha Rao", "asha@example.com", "Engineering", testutil.DatePtr(2024, time.June, 10))
	results, err := env.Schedule.BatchSchedule(ctx, schedule.BatchRequest{
		CandidateIDs: []string{asha.ID},
		Department:   "Engineering",
		StepType:     template.TypeHRInduction,
		StepNumber:   3,
		Mode:         schedule.ModeComputed,
	}, testutil.Actor)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.True(t, results[0].Success, results[0].Error)

	ev, err := env.Events.GetByID(ctx, results[0].EventID)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.June, 8, 10, 0, 0, 0, time.UTC), ev.StartTime)
	assert.Equal(t, 3, ev.StepNumber)
}
