// Package calendarsvc provides the calendar providers booking onboarding events.
package calendarsvc

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ironladytech/onboarding/core"
)

var ErrUnknownEvent = errors.New("calendar event not found")

// ConsoleService keeps events in memory and logs every change.
// It stands in for a hosted calendar in development and tests.
type ConsoleService struct {
	mu            sync.RWMutex
	events        map[string]core.CalendarEvent
	meetingURL    string
	logger        core.Logger
	disableOutput bool

	// FailFor makes calls involving the attendee address fail with the error.
	FailFor map[string]error
}

var _ core.CalendarService = (*ConsoleService)(nil)

func NewConsoleService(conf *core.Config, logger core.Logger) *ConsoleService {
	return &ConsoleService{
		events:     make(map[string]core.CalendarEvent),
		meetingURL: strings.TrimRight(conf.FrontendBaseURL, "/") + "/meet/",
		logger:     logger,
		FailFor:    make(map[string]error),
	}
}

// NewConsoleServiceMock returns a silent ConsoleService.
func NewConsoleServiceMock(conf *core.Config, logger core.Logger) *ConsoleService {
	svc := NewConsoleService(conf, logger)
	svc.disableOutput = true
	return svc
}

func (svc *ConsoleService) failure(ev core.CalendarEvent) error {
	for _, a := range ev.Attendees {
		if err, ok := svc.FailFor[a.Address]; ok {
			return err
		}
	}
	return nil
}

func (svc *ConsoleService) log(msg string, ev core.CalendarEvent) {
	if svc.disableOutput {
		return
	}
	svc.logger.Info(msg, map[string]interface{}{
		"ref":         ev.Ref,
		"title":       ev.Title,
		"start":       ev.Start,
		"end":         ev.End,
		"attachments": len(ev.Attachments),
	})
}

func (svc *ConsoleService) CreateEvent(_ context.Context, ev core.CalendarEvent) (core.CalendarEvent, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if err := svc.failure(ev); err != nil {
		return core.CalendarEvent{}, err
	}
	if !ev.End.After(ev.Start) {
		return core.CalendarEvent{}, errors.New("event must end after it starts")
	}
	ev.Ref = uuid.NewString()
	ev.MeetingLink = svc.meetingURL + ev.Ref
	ev.Attachments = core.MergeFileRefs(nil, ev.Attachments...)
	svc.events[ev.Ref] = ev
	svc.log("calendar event created", ev)
	return ev, nil
}

func (svc *ConsoleService) UpdateEvent(_ context.Context, ev core.CalendarEvent) (core.CalendarEvent, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	old, ok := svc.events[ev.Ref]
	if !ok {
		return core.CalendarEvent{}, ErrUnknownEvent
	}
	if err := svc.failure(old); err != nil {
		return core.CalendarEvent{}, err
	}
	if !ev.End.After(ev.Start) {
		return core.CalendarEvent{}, errors.New("event must end after it starts")
	}
	ev.Attachments = core.MergeFileRefs(old.Attachments, ev.Attachments...)
	if ev.MeetingLink == "" {
		ev.MeetingLink = old.MeetingLink
	}
	if len(ev.Attendees) == 0 {
		ev.Attendees = old.Attendees
	}
	svc.events[ev.Ref] = ev
	svc.log("calendar event updated", ev)
	return ev, nil
}

func (svc *ConsoleService) CancelEvent(_ context.Context, ref string) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	ev, ok := svc.events[ref]
	if !ok {
		return ErrUnknownEvent
	}
	if err := svc.failure(ev); err != nil {
		return err
	}
	delete(svc.events, ref)
	svc.log("calendar event cancelled", ev)
	return nil
}

// Event returns the provider's copy of the event.
func (svc *ConsoleService) Event(ref string) (core.CalendarEvent, bool) {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	ev, ok := svc.events[ref]
	return ev, ok
}

func (svc *ConsoleService) Len() int {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	return len(svc.events)
}
