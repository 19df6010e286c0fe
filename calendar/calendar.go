package calendar

import (
	"errors"
	"net/url"
	"strings"
)

const (
	embedBaseURL    = "https://calendar.google.com/calendar/embed"
	DefaultTimezone = "America/Los_Angeles"
)

var ErrNotConfigured = errors.New("calendar feed is not configured. Set CALENDAR_FEED_ID (or REACT_APP_ICAL_FEED_URL) to the calendar ID")

// EmbedURL builds the agenda-view embed URL for a public Google Calendar.
func EmbedURL(feedID, timezone string) (string, error) {
	feedID = strings.TrimSpace(feedID)
	if feedID == "" {
		return "", ErrNotConfigured
	}

	if timezone == "" {
		timezone = DefaultTimezone
	}

	// Parameter order matches the embed snippet Google Calendar generates.
	params := []struct{ key, value string }{
		{"src", feedID},
		{"ctz", timezone},
		{"mode", "AGENDA"},
		{"showTitle", "0"},
		{"showNav", "1"},
		{"showDate", "1"},
		{"showPrint", "0"},
		{"showTabs", "1"},
		{"showCalendars", "0"},
		{"height", "600"},
	}

	var b strings.Builder
	b.WriteString(embedBaseURL)
	for i, p := range params {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(p.key)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.value))
	}

	return b.String(), nil
}
