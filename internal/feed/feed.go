// Package feed enriches calendar and contact data with Persian calendar
// dates. It annotates iCalendar event streams and lists vCard birthdays,
// reading from files, HTTP(S) URLs, or stdin.
package feed

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/tartampluch/go-persian/internal/config"
)

// Annotator is the core service converting the Gregorian dates found in
// calendar and contact streams to their Persian equivalents.
type Annotator struct {
	Fetcher Fetcher // Interface for network abstraction.
}

// Stats summarizes one annotation run.
type Stats struct {
	// Calendars is the number of VCALENDAR objects in the stream.
	Calendars int

	// Events is the number of VEVENT components seen.
	Events int

	// Annotated counts events that received a Persian date.
	Annotated int

	// Skipped counts events without a usable start date.
	Skipped int
}

// OpenSource opens the appropriate data stream for src: "-" is stdin, an
// http(s) URL goes through the fetcher, anything else is a file path.
func (a *Annotator) OpenSource(ctx context.Context, src string) (io.ReadCloser, error) {
	switch {
	case src == "":
		return nil, errors.New(config.ErrFeedSourceEmpty)
	case src == config.SourceStdin:
		// NopCloser so a deferred Close cannot close the process stdin.
		return io.NopCloser(os.Stdin), nil
	case strings.HasPrefix(src, config.SchemeHTTP+config.SchemeSeparator),
		strings.HasPrefix(src, config.SchemeHTTPS+config.SchemeSeparator):
		if a.Fetcher == nil {
			return nil, errors.New(config.ErrFetcherMissing)
		}
		return a.Fetcher.Fetch(ctx, src)
	default:
		return os.Open(src)
	}
}
