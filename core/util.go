package core

import (
	"strings"
	"time"
)

// NowFunc returns the current time. Tests replace it to freeze the clock.
var NowFunc = time.Now // mockable

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// CleanStringPtr is CleanString for optional fields; blank strings become nil.
func CleanStringPtr(s *string, lower ...bool) *string {
	if s == nil {
		return nil
	}
	c := CleanString(*s, lower...)
	if c == "" {
		return nil
	}
	return &c
}

func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ContainsFold reports whether any of the haystacks contains needle, ignoring case.
func ContainsFold(needle string, haystacks ...string) bool {
	needle = strings.ToLower(needle)
	for _, h := range haystacks {
		if strings.Contains(strings.ToLower(h), needle) {
			return true
		}
	}
	return false
}
