package event_test

import (
	"context"
	"net/mail"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironladytech/onboarding/core"
	"github.com/ironladytech/onboarding/core/event"
	"github.com/ironladytech/onboarding/core/template"
	"github.com/ironladytech/onboarding/tests"
)

var now = time.Date(2024, time.June, 1, 8, 0, 0, 0, time.UTC)

func book(t *testing.T, env *testutil.Env, attendee string, attachments ...core.FileRef) event.ScheduledEvent {
	t.Helper()
	start := now.Add(72 * time.Hour)
	e, err := env.Events.Book(context.Background(), event.ScheduledEvent{
		CandidateID: "c1",
		Type:        template.TypeHRInduction,
		Title:       "HR Induction: Asha",
		StartTime:   start,
		EndTime:     start.Add(time.Hour),
		Computed:    true,
		Attachments: attachments,
	}, mail.Address{Name: "Asha", Address: attendee})
	require.NoError(t, err)
	return e
}

func TestService_Book(t *testing.T) {
	testutil.FreezeTime(t, now)
	env := testutil.NewEnv(t)

	e := book(t, env, "asha@example.com")
	assert.Equal(t, event.StatusScheduled, e.Status)
	assert.NotEmpty(t, e.CalendarRef)
	assert.Contains(t, e.MeetingLink, "/meet/"+e.CalendarRef)
	assert.NotNil(t, e.Attachments)

	env.CalendarMock.FailFor["down@example.com"] = errors.New("503")
	start := now.Add(time.Hour)
	failed, err := env.Events.Book(context.Background(), event.ScheduledEvent{
		CandidateID: "c1", Title: "x", StartTime: start, EndTime: start.Add(time.Hour),
	}, mail.Address{Address: "down@example.com"})
	assert.True(t, core.IsExternal(err))
	assert.Equal(t, event.StatusCancelled, failed.Status)

	stored, err := env.Events.GetByID(context.Background(), failed.ID)
	require.NoError(t, err)
	assert.Equal(t, event.StatusCancelled, stored.Status)
}

func TestService_AddAttachments(t *testing.T) {
	testutil.FreezeTime(t, now)
	env := testutil.NewEnv(t)
	ctx := context.Background()

	agenda := core.FileRef{Name: "agenda.pdf", URL: "https://files.example.com/agenda-v1.pdf"}
	e := book(t, env, "asha@example.com", agenda)

	got, err := env.Events.AddAttachments(ctx, e.ID, event.AttachmentsRequest{Attachments: []core.FileRef{
		{Name: "agenda.pdf", URL: "https://files.example.com/agenda-v2.pdf"},
		{Name: "handbook.pdf", URL: "https://files.example.com/handbook.pdf"},
	}})
	require.NoError(t, err)
	require.Len(t, got.Attachments, 2)
	assert.Equal(t, "https://files.example.com/agenda-v2.pdf", got.Attachments[0].URL, "same name replaces")
	assert.Equal(t, "handbook.pdf", got.Attachments[1].Name)

	cal, ok := env.CalendarMock.Event(e.CalendarRef)
	require.True(t, ok)
	assert.Equal(t, got.Attachments, cal.Attachments)

	_, err = env.Events.AddAttachments(ctx, e.ID, event.AttachmentsRequest{})
	assert.Error(t, err)
	_, err = env.Events.AddAttachments(ctx, e.ID, event.AttachmentsRequest{Attachments: []core.FileRef{{Name: "x", URL: "not a url"}}})
	assert.Error(t, err)

	_, err = env.Events.Cancel(ctx, e.ID, testutil.Actor)
	require.NoError(t, err)
	_, err = env.Events.AddAttachments(ctx, e.ID, event.AttachmentsRequest{Attachments: []core.FileRef{agenda}})
	assert.True(t, core.IsConflict(err))
}

func TestService_Reschedule(t *testing.T) {
	testutil.FreezeTime(t, now)
	env := testutil.NewEnv(t)
	ctx := context.Background()
	e := book(t, env, "asha@example.com")

	_, err := env.Events.Reschedule(ctx, e.ID, event.RescheduleRequest{StartTime: now.Add(-time.Hour)}, testutil.Actor)
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)

	newStart := now.Add(96 * time.Hour)
	got, err := env.Events.Reschedule(ctx, e.ID, event.RescheduleRequest{StartTime: newStart, DurationMinutes: 30}, testutil.Actor)
	require.NoError(t, err)
	assert.Equal(t, event.StatusRescheduled, got.Status)
	assert.False(t, got.Computed, "a manual reschedule detaches the event from its offset rule")
	assert.Equal(t, newStart, got.StartTime)
	assert.Equal(t, 30*time.Minute, got.Duration())

	cal, _ := env.CalendarMock.Event(e.CalendarRef)
	assert.Equal(t, newStart, cal.Start)

	_, err = env.Events.Reschedule(ctx, "missing", event.RescheduleRequest{StartTime: newStart}, testutil.Actor)
	assert.True(t, core.IsNotFound(err))
}

func TestService_statusTransitions(t *testing.T) {
	testutil.FreezeTime(t, now)
	env := testutil.NewEnv(t)
	ctx := context.Background()

	done := book(t, env, "asha@example.com")
	got, err := env.Events.Complete(ctx, done.ID, testutil.Actor)
	require.NoError(t, err)
	assert.Equal(t, event.StatusCompleted, got.Status)
	_, err = env.Events.Complete(ctx, done.ID, testutil.Actor)
	assert.NoError(t, err, "completing twice is a no-op")
	_, err = env.Events.Cancel(ctx, done.ID, testutil.Actor)
	assert.True(t, core.IsConflict(err))

	cancelled := book(t, env, "ravi@example.com")
	got, err = env.Events.Cancel(ctx, cancelled.ID, testutil.Actor)
	require.NoError(t, err)
	assert.Equal(t, event.StatusCancelled, got.Status)
	_, ok := env.CalendarMock.Event(cancelled.CalendarRef)
	assert.False(t, ok)
	_, err = env.Events.Cancel(ctx, cancelled.ID, testutil.Actor)
	assert.NoError(t, err)
	_, err = env.Events.Complete(ctx, cancelled.ID, testutil.Actor)
	assert.True(t, core.IsConflict(err))
	_, err = env.Events.Reschedule(ctx, cancelled.ID, event.RescheduleRequest{StartTime: now.Add(time.Hour)}, testutil.Actor)
	assert.True(t, core.IsConflict(err))
}

func TestService_Upcoming(t *testing.T) {
	testutil.FreezeTime(t, now)
	env := testutil.NewEnv(t)

	soon := book(t, env, "asha@example.com") // starts in 72h
	later := book(t, env, "ravi@example.com")
	_, err := env.Events.Reschedule(context.Background(), later.ID, event.RescheduleRequest{StartTime: now.Add(30 * 24 * time.Hour)}, testutil.Actor)
	require.NoError(t, err)

	evs, err := env.Events.Upcoming(context.Background(), 7*24*time.Hour)
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.Equal(t, soon.ID, evs[0].ID)
}
