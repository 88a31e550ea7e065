package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/emersion/go-vcard"

	persian "github.com/tartampluch/go-persian"
	"github.com/tartampluch/go-persian/internal/config"
)

// BirthdayEntry is one contact with a parsed birth date and its Persian
// equivalent.
type BirthdayEntry struct {
	// Name is the display name (Formatted Name or Structured Name).
	Name string

	// DateOfBirth is the parsed Gregorian date.
	DateOfBirth time.Time

	// YearKnown indicates if the vCard contained a year or just --MM-DD.
	YearKnown bool

	// Persian is the birth date in the Persian calendar. Only meaningful
	// when YearKnown is true: a year-less Gregorian date has no fixed Persian
	// equivalent because the month boundaries of the two calendars shift
	// against each other from year to year.
	Persian persian.DateTime
}

// Birthdays parses the vCard stream at src and returns one entry per contact
// with a Persian birth date where the year is known. Malformed cards are
// skipped and logged, never fatal.
func (a *Annotator) Birthdays(ctx context.Context, src string) ([]BirthdayEntry, error) {
	log := slog.With(config.LogKeyComponent, config.CompFeed)

	reader, err := a.OpenSource(ctx, src)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s: %w", config.ErrOpenSource, err)
	}
	defer func() { _ = reader.Close() }()

	decoder := vcard.NewDecoder(reader)
	stats := struct{ processed, withBday int }{0, 0}
	var entries []BirthdayEntry

	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		card, err := decoder.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// Log error but continue to next card to maximize data recovery
			log.Warn(config.MsgSkippedCard, config.LogKeyError, err)
			continue
		}

		stats.processed++
		bday := card.Get(config.VCardBDAY)
		if bday == nil || bday.Value == "" {
			continue
		}

		birthDate, yearKnown, err := parseDate(bday.Value)
		if err != nil {
			log.Debug(config.MsgSkippedDate, config.LogKeyValue, bday.Value)
			continue
		}
		stats.withBday++

		// Name Strategy: FN (Formatted) > N (Structured) > Fallback
		name := config.FallbackName
		if fn := card.Get(config.VCardFN); fn != nil {
			name = fn.Value
		} else if n := card.Get(config.VCardN); n != nil {
			name = n.Value
		}

		entry := BirthdayEntry{
			Name:        name,
			DateOfBirth: birthDate,
			YearKnown:   yearKnown,
		}
		if yearKnown {
			pdt, ok := persian.FromDateTime(persian.DateTimeOf(birthDate))
			if !ok {
				log.Debug(config.MsgSkippedDate, config.LogKeyValue, bday.Value)
				continue
			}
			entry.Persian = pdt
		}

		entries = append(entries, entry)
	}

	log.InfoContext(ctx, config.MsgListed,
		slog.Group(config.LogKeyStats,
			slog.Int(config.LogKeyCards, stats.processed),
			slog.Int(config.LogKeyFound, stats.withBday),
		),
	)
	return entries, nil
}

// parseDate handles various vCard date formats.
func parseDate(value string) (time.Time, bool, error) {
	// Full dates (Year known)
	formatsWithYear := []string{
		config.DateFormatFullDash,
		config.DateFormatFullBasic,
		config.DateFormatRFC3339,
		config.DateFormatFullT,
	}

	for _, f := range formatsWithYear {
		if t, err := time.Parse(f, value); err == nil {
			return t, true, nil
		}
	}

	// Truncated dates (Year unknown) - vCard specific
	// Safe leap year fallback
	formatsWithoutYear := []string{config.DateFormatNoYearD, config.DateFormatNoYearB}
	for _, f := range formatsWithoutYear {
		if t, err := time.Parse(f, value); err == nil {
			safeDate := time.Date(config.DefaultLeapYear, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return safeDate, false, nil
		}
	}

	return time.Time{}, false, errors.New(config.ErrDateParse)
}
