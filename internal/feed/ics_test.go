package feed_test

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	// Zone lookups for TZID parameters must work even on hosts without a
	// system zone database.
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tartampluch/go-persian/internal/config"
	"github.com/tartampluch/go-persian/internal/feed"
)

// ics joins content lines with the CRLF terminators the format requires.
func ics(lines ...string) string {
	return strings.Join(lines, "\r\n") + "\r\n"
}

// calendarWith builds a minimal single-event calendar around the given
// event lines.
func calendarWith(eventLines ...string) string {
	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//Example//Feed//EN",
		"BEGIN:VEVENT",
		"UID:evt-1@example.com",
		"DTSTAMP:20240101T000000Z",
		"SUMMARY:Team sync",
	}
	lines = append(lines, eventLines...)
	lines = append(lines, "END:VEVENT", "END:VCALENDAR")
	return ics(lines...)
}

func TestAnnotateICS_UTCInstant(t *testing.T) {
	// Scenario: a late-evening UTC start that has already crossed midnight in
	// the reference timezone gets the next Persian calendar day.
	path := writeTempFile(t, "cal.ics", calendarWith("DTSTART:20241109T223828Z"))

	a := &feed.Annotator{}
	var out bytes.Buffer
	stats, err := a.AnnotateICS(context.Background(), path, &out)

	require.NoError(t, err)
	assert.Equal(t, feed.Stats{Calendars: 1, Events: 1, Annotated: 1}, stats)
	assert.Contains(t, out.String(), "X-PERSIAN-DATE:1403-08-20")
	assert.NotContains(t, out.String(), "X-PERSIAN-DATE;", "annotation must carry no property parameters")
	assert.Contains(t, out.String(), "DTSTART:20241109T223828Z", "original start must pass through unchanged")
	assert.Contains(t, out.String(), "DTSTAMP:20240101T000000Z", "existing stamp must pass through unchanged")
}

func TestAnnotateICS_FloatingTime(t *testing.T) {
	// Scenario: a floating (zone-less) start is a naive reading; no midnight
	// shift applies, so the same evening stays on the earlier Persian day.
	path := writeTempFile(t, "cal.ics", calendarWith("DTSTART:20241109T230700"))

	a := &feed.Annotator{}
	var out bytes.Buffer
	stats, err := a.AnnotateICS(context.Background(), path, &out)

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Annotated)
	assert.Contains(t, out.String(), "X-PERSIAN-DATE:1403-08-19")
}

func TestAnnotateICS_AllDayDate(t *testing.T) {
	// Scenario: an all-day event on Nowruz.
	path := writeTempFile(t, "cal.ics", calendarWith("DTSTART;VALUE=DATE:20240320"))

	a := &feed.Annotator{}
	var out bytes.Buffer
	stats, err := a.AnnotateICS(context.Background(), path, &out)

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Annotated)
	assert.Contains(t, out.String(), "X-PERSIAN-DATE:1403-01-01")
}

func TestAnnotateICS_ZonedStart(t *testing.T) {
	// Scenario: a TZID-qualified start is an instant; Tehran wall time past
	// midnight lands on the later Persian day.
	path := writeTempFile(t, "cal.ics", calendarWith("DTSTART;TZID=Asia/Tehran:20241110T021754"))

	a := &feed.Annotator{}
	var out bytes.Buffer
	stats, err := a.AnnotateICS(context.Background(), path, &out)

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Annotated)
	assert.Contains(t, out.String(), "X-PERSIAN-DATE:1403-08-20")
}

func TestAnnotateICS_SkipsEventWithoutStart(t *testing.T) {
	// Scenario: events without DTSTART are counted and passed through
	// untouched, never dropped and never fatal.
	path := writeTempFile(t, "cal.ics", calendarWith())

	a := &feed.Annotator{}
	var out bytes.Buffer
	stats, err := a.AnnotateICS(context.Background(), path, &out)

	require.NoError(t, err)
	assert.Equal(t, feed.Stats{Calendars: 1, Events: 1, Skipped: 1}, stats)
	assert.Contains(t, out.String(), "SUMMARY:Team sync")
	assert.NotContains(t, out.String(), "X-PERSIAN-DATE")
}

func TestAnnotateICS_SkipsUnknownZone(t *testing.T) {
	// Scenario: a TZID naming no known zone cannot be resolved to an instant.
	path := writeTempFile(t, "cal.ics", calendarWith("DTSTART;TZID=Nowhere/Atlantis:20241110T021754"))

	a := &feed.Annotator{}
	var out bytes.Buffer
	stats, err := a.AnnotateICS(context.Background(), path, &out)

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)
	assert.NotContains(t, out.String(), "X-PERSIAN-DATE")
}

func TestAnnotateICS_StampsMissingDTStamp(t *testing.T) {
	// Scenario: hand-assembled feeds often omit the DTSTAMP the format
	// mandates on every event. Each such event gets one stamped, whether it
	// ends up annotated or skipped, and the run never aborts at the encode
	// step.
	content := ics(
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//Example//Feed//EN",
		"BEGIN:VEVENT",
		"UID:evt-1@example.com",
		"SUMMARY:Team sync",
		"DTSTART:20241109T223828Z",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:evt-2@example.com",
		"SUMMARY:Undated",
		"END:VEVENT",
		"END:VCALENDAR",
	)
	path := writeTempFile(t, "cal.ics", content)

	a := &feed.Annotator{}
	var out bytes.Buffer
	stats, err := a.AnnotateICS(context.Background(), path, &out)

	require.NoError(t, err)
	assert.Equal(t, feed.Stats{Calendars: 1, Events: 2, Annotated: 1, Skipped: 1}, stats)
	assert.Equal(t, 2, strings.Count(out.String(), "DTSTAMP:"), "every event gets exactly one stamp")
	assert.Contains(t, out.String(), "X-PERSIAN-DATE:1403-08-20")
}

func TestAnnotateICS_LeavesOtherComponentsAlone(t *testing.T) {
	// Scenario: only events are annotated; todos and the like pass through.
	content := ics(
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//Example//Feed//EN",
		"BEGIN:VTODO",
		"UID:todo-1@example.com",
		"DTSTAMP:20240101T000000Z",
		"SUMMARY:Water plants",
		"DUE:20240501T000000Z",
		"END:VTODO",
		"END:VCALENDAR",
	)
	path := writeTempFile(t, "cal.ics", content)

	a := &feed.Annotator{}
	var out bytes.Buffer
	stats, err := a.AnnotateICS(context.Background(), path, &out)

	require.NoError(t, err)
	assert.Equal(t, feed.Stats{Calendars: 1}, stats)
	assert.Contains(t, out.String(), "BEGIN:VTODO")
	assert.NotContains(t, out.String(), "X-PERSIAN-DATE")
}

func TestAnnotateICS_MultipleCalendars(t *testing.T) {
	// Scenario: webcal exports concatenate VCALENDAR objects; each one is
	// annotated and re-encoded in order.
	content := calendarWith("DTSTART;VALUE=DATE:20240320") +
		calendarWith("DTSTART;VALUE=DATE:20250321")
	path := writeTempFile(t, "cal.ics", content)

	a := &feed.Annotator{}
	var out bytes.Buffer
	stats, err := a.AnnotateICS(context.Background(), path, &out)

	require.NoError(t, err)
	assert.Equal(t, feed.Stats{Calendars: 2, Events: 2, Annotated: 2}, stats)
	assert.Equal(t, 2, strings.Count(out.String(), "BEGIN:VCALENDAR"))
	assert.Contains(t, out.String(), "X-PERSIAN-DATE:1403-01-01")
	assert.Contains(t, out.String(), "X-PERSIAN-DATE:1404-01-01")
}

func TestAnnotateICS_WebSource(t *testing.T) {
	// Scenario: the source may be a URL resolved through the fetcher seam.
	mockFetcher := new(MockFetcher)
	mockFetcher.On("Fetch", mock.Anything, "https://example.com/cal.ics").
		Return(io.NopCloser(strings.NewReader(calendarWith("DTSTART:20241109T223828Z"))), nil)

	a := &feed.Annotator{Fetcher: mockFetcher}
	var out bytes.Buffer
	stats, err := a.AnnotateICS(context.Background(), "https://example.com/cal.ics", &out)

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Annotated)
	mockFetcher.AssertExpectations(t)
}

func TestAnnotateICS_SourceError(t *testing.T) {
	a := &feed.Annotator{}
	var out bytes.Buffer

	_, err := a.AnnotateICS(context.Background(), "/does/not/exist.ics", &out)

	require.Error(t, err)
	assert.Contains(t, err.Error(), config.ErrOpenSource)
}

func TestAnnotateICS_MalformedStream(t *testing.T) {
	path := writeTempFile(t, "cal.ics", "this is not a calendar\r\n")

	a := &feed.Annotator{}
	var out bytes.Buffer
	_, err := a.AnnotateICS(context.Background(), path, &out)

	require.Error(t, err)
	assert.Contains(t, err.Error(), config.ErrICalDecode)
}

func TestAnnotateICS_ContextCancellation(t *testing.T) {
	// Scenario: shutdown arrives while a stream is being processed.
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately before processing starts

	path := writeTempFile(t, "cal.ics", calendarWith("DTSTART:20241109T223828Z"))

	a := &feed.Annotator{}
	var out bytes.Buffer
	_, err := a.AnnotateICS(ctx, path, &out)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
