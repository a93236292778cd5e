package calendarsvc

import (
	"context"
	"net/mail"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironladytech/onboarding/core"
	logsvc "github.com/ironladytech/onboarding/services/logger"
)

func TestConsoleService(t *testing.T) {
	svc := NewConsoleServiceMock(core.NewTestConfig(), logsvc.NopLogger{})
	ctx := context.Background()
	start := time.Date(2024, time.June, 10, 9, 0, 0, 0, time.UTC)
	asha := mail.Address{Name: "Asha", Address: "asha@example.com"}

	_, err := svc.CreateEvent(ctx, core.CalendarEvent{Title: "bad", Start: start, End: start})
	assert.Error(t, err, "zero length events are rejected")

	ev, err := svc.CreateEvent(ctx, core.CalendarEvent{
		Title:       "HR Induction",
		Start:       start,
		End:         start.Add(time.Hour),
		Attendees:   []mail.Address{asha},
		Attachments: []core.FileRef{{Name: "agenda.pdf", URL: "https://files.example.com/a1.pdf"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000/meet/"+ev.Ref, ev.MeetingLink)
	assert.Equal(t, 1, svc.Len())

	updated, err := svc.UpdateEvent(ctx, core.CalendarEvent{
		Ref:         ev.Ref,
		Title:       "HR Induction",
		Start:       start.Add(24 * time.Hour),
		End:         start.Add(25 * time.Hour),
		Attachments: []core.FileRef{{Name: "agenda.pdf", URL: "https://files.example.com/a2.pdf"}, {Name: "map.png", URL: "https://files.example.com/map.png"}},
	})
	require.NoError(t, err)
	assert.Equal(t, ev.MeetingLink, updated.MeetingLink, "the meeting link survives updates")
	assert.Equal(t, []mail.Address{asha}, updated.Attendees)
	require.Len(t, updated.Attachments, 2)
	assert.Equal(t, "https://files.example.com/a2.pdf", updated.Attachments[0].URL)

	_, err = svc.UpdateEvent(ctx, core.CalendarEvent{Ref: "missing", Start: start, End: start.Add(time.Hour)})
	assert.ErrorIs(t, err, ErrUnknownEvent)

	svc.FailFor[asha.Address] = errors.New("quota exceeded")
	assert.EqualError(t, svc.CancelEvent(ctx, ev.Ref), "quota exceeded")
	delete(svc.FailFor, asha.Address)

	require.NoError(t, svc.CancelEvent(ctx, ev.Ref))
	_, ok := svc.Event(ev.Ref)
	assert.False(t, ok)
	assert.ErrorIs(t, svc.CancelEvent(ctx, ev.Ref), ErrUnknownEvent)
}
