package schedule

import (
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/ironladytech/onboarding/core"
	"github.com/ironladytech/onboarding/core/candidate"
	"github.com/ironladytech/onboarding/core/event"
	"github.com/ironladytech/onboarding/core/step"
	"github.com/ironladytech/onboarding/core/template"
)

type (
	State      string
	AnchorKind string
)

const (
	StateResolved   State = "RESOLVED"
	StateManual     State = "MANUAL"     // the admin supplies the date-time at dispatch
	StateUnresolved State = "UNRESOLVED" // the anchor date is not known yet

	AnchorJoiningDate AnchorKind = "JOINING_DATE"
	AnchorOfferEvent  AnchorKind = "OFFER_EVENT"
	AnchorOfferSent   AnchorKind = "OFFER_SENT"
)

// Clock is a time of day.
type Clock struct {
	Hour   int
	Minute int
}

func ParseClock(s string) (Clock, error) {
	h, m, err := core.ParseClock(s)
	return Clock{Hour: h, Minute: m}, err
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// DefaultTimes is the time of day used for steps without a scheduled time.
type DefaultTimes struct {
	Fallback Clock
	ByType   map[template.Type]Clock
}

// NewDefaultTimes returns the default table, with fallback overriding 09:00 when set.
func NewDefaultTimes(fallback string) (DefaultTimes, error) {
	dt := DefaultTimes{
		Fallback: Clock{Hour: 9},
		ByType: map[template.Type]Clock{
			template.TypeOfferReminder: {Hour: 14},
		},
	}
	if fallback != "" {
		c, err := ParseClock(fallback)
		if err != nil {
			return DefaultTimes{}, errors.Wrap(err, "parsing default time")
		}
		dt.Fallback = c
	}
	return dt, nil
}

func (dt DefaultTimes) For(t template.Type) Clock {
	if c, ok := dt.ByType[t]; ok {
		return c
	}
	return dt.Fallback
}

// Anchors are the reference dates of one candidate.
type Anchors struct {
	JoiningDate *core.Date
	OfferDate   *time.Time
	OfferKind   AnchorKind
}

// AnchorsFor collects the anchors of c. The offer date is the start of the most recently
// created offer letter event that is neither completed nor cancelled, else c.OfferSentAt.
func AnchorsFor(c candidate.Candidate, events []event.ScheduledEvent) Anchors {
	a := Anchors{JoiningDate: c.ExpectedJoiningDate}

	var offer *event.ScheduledEvent
	for i := range events {
		e := events[i]
		if e.CandidateID != c.ID || e.Type != template.TypeOfferLetter {
			continue
		}
		if e.Status == event.StatusCompleted || e.Status == event.StatusCancelled {
			continue
		}
		if offer == nil || e.CreatedAt.After(offer.CreatedAt) {
			offer = &events[i]
		}
	}

	switch {
	case offer != nil:
		t := offer.StartTime
		a.OfferDate, a.OfferKind = &t, AnchorOfferEvent
	case c.OfferSentAt != nil:
		t := *c.OfferSentAt
		a.OfferDate, a.OfferKind = &t, AnchorOfferSent
	}
	return a
}

type Resolution struct {
	State      State      `json:"state"`
	At         *time.Time `json:"at,omitempty"`          // UTC
	AnchorKind AnchorKind `json:"anchor_kind,omitempty"` // set when resolved
	Anchor     *core.Date `json:"anchor,omitempty"`      // anchor calendar day
}

// Resolver computes when a step fires for a candidate.
// Dates are calendar days in Location; results are returned in UTC.
type Resolver struct {
	Times    DefaultTimes
	Location *time.Location
}

func NewResolver(conf *core.Config) (Resolver, error) {
	times, err := NewDefaultTimes(conf.Scheduling.DefaultTime)
	if err != nil {
		return Resolver{}, err
	}
	return Resolver{Times: times, Location: conf.Scheduling.Location()}, nil
}

func (r Resolver) location() *time.Location {
	if r.Location == nil {
		return time.UTC
	}
	return r.Location
}

// Resolve returns anchor + offset days at the step's time of day.
func (r Resolver) Resolve(s step.Step, a Anchors) Resolution {
	if s.Method() == step.MethodManual {
		return Resolution{State: StateManual}
	}

	loc := r.location()
	var (
		day  core.Date
		kind AnchorKind
	)
	switch {
	case s.Type == template.TypeOfferReminder:
		if a.OfferDate == nil {
			return Resolution{State: StateUnresolved}
		}
		day, kind = core.DateOf(a.OfferDate.In(loc)), a.OfferKind
	case a.JoiningDate != nil:
		day, kind = *a.JoiningDate, AnchorJoiningDate
	default:
		return Resolution{State: StateUnresolved}
	}

	clock := r.Times.For(s.Type)
	if s.ScheduledTime != nil {
		if c, err := ParseClock(*s.ScheduledTime); err == nil {
			clock = c
		}
	}

	at := day.AddDays(s.DueDateOffset).At(clock.Hour, clock.Minute, loc).UTC()
	return Resolution{State: StateResolved, At: &at, AnchorKind: kind, Anchor: &day}
}
