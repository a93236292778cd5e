package core

import (
	"context"
	"net/mail"
	"time"
)

type (
	// FileRef points at a document attached to a calendar event, e.g. an offer letter.
	FileRef struct {
		Name        string `json:"name" validate:"required,max=255"`
		URL         string `json:"url" validate:"required,url"`
		ContentType string `json:"content_type" validate:"omitempty,max=100"`
	}

	CalendarEvent struct {
		Ref         string // provider identifier, empty until created
		Title       string
		Description string
		Start       time.Time
		End         time.Time
		Attendees   []mail.Address
		Attachments []FileRef
		MeetingLink string
	}

	// CalendarService is any calendar provider able to hold onboarding events.
	CalendarService interface {
		// CreateEvent returns ev with the provider's Ref and MeetingLink set.
		CreateEvent(ctx context.Context, ev CalendarEvent) (CalendarEvent, error)
		// UpdateEvent replaces times and details of ev.Ref.
		// Attachments are merged with the ones the provider already holds.
		UpdateEvent(ctx context.Context, ev CalendarEvent) (CalendarEvent, error)
		CancelEvent(ctx context.Context, ref string) error
	}
)

// MergeFileRefs appends the refs of extra whose name is not already present in base.
// Refs sharing a name with one in base replace it.
func MergeFileRefs(base []FileRef, extra ...FileRef) []FileRef {
	merged := make([]FileRef, 0, len(base)+len(extra))
	merged = append(merged, base...)
	for _, e := range extra {
		replaced := false
		for i := range merged {
			if merged[i].Name == e.Name {
				merged[i] = e
				replaced = true
				break
			}
		}
		if !replaced {
			merged = append(merged, e)
		}
	}
	return merged
}
