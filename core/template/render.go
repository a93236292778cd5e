package template

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/ironladytech/onboarding/core"
	"github.com/ironladytech/onboarding/core/candidate"
)

var tokenRegex = regexp.MustCompile(`\{\{([^{}]+)\}\}`)

const (
	dateFormat = "Monday, 2 January 2006"
	timeFormat = "3:04 PM"
)

// Render replaces every {{key}} token of text with values[key].
// Matching is literal and case-sensitive; tokens without a value are left verbatim.
// Longer keys win over shorter ones and substituted values are never re-scanned.
func Render(text string, values map[string]string) string {
	if len(values) == 0 || !strings.Contains(text, "{{") {
		return text
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		if k != "" {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, "{{"+k+"}}", values[k])
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// Unresolved lists the distinct tokens left in text, in order of appearance.
func Unresolved(text string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, m := range tokenRegex.FindAllStringSubmatch(text, -1) {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		out = append(out, m[1])
	}
	return out
}

// Merge combines placeholder sources; later sources override earlier ones.
func Merge(sources ...map[string]string) map[string]string {
	size := 0
	for _, s := range sources {
		size += len(s)
	}
	merged := make(map[string]string, size)
	for _, s := range sources {
		for k, v := range s {
			merged[k] = v
		}
	}
	return merged
}

// CandidateValues returns the placeholders describing c. Dates are shown in loc.
func CandidateValues(c candidate.Candidate, loc *time.Location) map[string]string {
	v := map[string]string{
		"candidateName":  c.Name,
		"firstName":      c.FirstName(),
		"candidateEmail": c.Email,
		"candidatePhone": c.Phone,
		"position":       c.Position,
		"department":     c.Department,
	}
	if c.ExpectedJoiningDate != nil {
		v["joiningDate"] = c.ExpectedJoiningDate.Format(dateFormat)
	}
	if c.OfferSentAt != nil {
		v["offerDate"] = c.OfferSentAt.In(loc).Format(dateFormat)
	}
	return v
}

// EventValues returns the placeholders describing a scheduled slot.
func EventValues(title string, start time.Time, meetingLink string, loc *time.Location) map[string]string {
	local := start.In(loc)
	v := map[string]string{
		"eventTitle": title,
		"eventDate":  local.Format(dateFormat),
		"eventTime":  local.Format(timeFormat),
	}
	if meetingLink != "" {
		v["meetingLink"] = meetingLink
	}
	return v
}

// SampleCandidate is used to preview templates when no candidate is chosen.
func SampleCandidate() candidate.Candidate {
	joining := core.DateOf(core.NowFunc()).AddDays(14)
	offer := core.NowFunc().UTC()
	return candidate.Candidate{
		Name:                "Jane Doe",
		Email:               "jane.doe@example.com",
		Phone:               "+91 98765 43210",
		Department:          "Engineering",
		Position:            "Software Engineer",
		ExpectedJoiningDate: &joining,
		OfferSentAt:         &offer,
		Status:              candidate.StatusOfferSent,
	}
}
