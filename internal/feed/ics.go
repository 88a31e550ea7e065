package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	persian "github.com/tartampluch/go-persian"
	"github.com/tartampluch/go-persian/internal/config"
)

// AnnotateICS reads an iCalendar stream from src, attaches an X-PERSIAN-DATE
// property to every event with a usable start date, and writes the re-encoded
// stream to w. Everything else in the stream passes through untouched.
// Events whose start date cannot be read are skipped and counted, never
// fatal, and events arriving without the mandatory DTSTAMP get one stamped
// so the stream still encodes.
func (a *Annotator) AnnotateICS(ctx context.Context, src string, w io.Writer) (Stats, error) {
	start := time.Now()
	log := slog.With(config.LogKeyComponent, config.CompFeed)

	reader, err := a.OpenSource(ctx, src)
	if err != nil {
		// If context error occurred during acquisition, return it directly.
		if ctx.Err() != nil {
			return Stats{}, ctx.Err()
		}
		return Stats{}, fmt.Errorf("%s: %w", config.ErrOpenSource, err)
	}
	// Best effort close. Errors in Close() for read-only streams are rarely actionable here.
	defer func() { _ = reader.Close() }()

	var stats Stats
	decoder := ical.NewDecoder(reader)
	encoder := ical.NewEncoder(w)

	// One stamp for the whole run, shared by every event that needs one.
	dtStamp := ical.NewProp(config.PropDTStamp)
	dtStamp.SetDateTime(start.UTC())

	// A stream may concatenate several VCALENDAR objects (webcal exports do
	// this); annotate and re-encode each in order.
	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		cal, err := decoder.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("%s: %w", config.ErrICalDecode, err)
		}

		stats.Calendars++
		annotateCalendar(cal, dtStamp, &stats)

		if err := encoder.Encode(cal); err != nil {
			return stats, fmt.Errorf("%s: %w", config.ErrICalEncode, err)
		}
	}

	log.InfoContext(ctx, config.MsgAnnotated,
		slog.Group(config.LogKeyStats,
			slog.Int(config.LogKeyCalendars, stats.Calendars),
			slog.Int(config.LogKeyEvents, stats.Events),
			slog.Int(config.LogKeyAnnotated, stats.Annotated),
			slog.Int(config.LogKeySkipped, stats.Skipped),
		),
	)
	log.Debug("Annotation finished", config.LogKeyDuration, time.Since(start).Milliseconds())
	return stats, nil
}

// annotateCalendar walks the top-level components of one calendar and tags
// each event. Hand-assembled feeds routinely omit the DTSTAMP the encoder
// requires on every event; those get dtStamp, whether annotated or skipped.
func annotateCalendar(cal *ical.Calendar, dtStamp *ical.Prop, stats *Stats) {
	for _, child := range cal.Children {
		if child.Name != config.ICalEventName {
			continue
		}
		stats.Events++

		if child.Props.Get(config.PropDTStamp) == nil {
			slog.Debug(config.MsgStampedEvent, config.LogKeyComponent, config.CompFeed)
			child.Props.Set(dtStamp)
		}

		date, ok := persianEventDate(child)
		if !ok {
			stats.Skipped++
			continue
		}

		// SetText would tag the X- name with a VALUE=TEXT parameter; assign
		// the value bare instead.
		prop := ical.NewProp(config.PropXPersianDate)
		prop.Value = date
		child.Props.Set(prop)
		stats.Annotated++
	}
}

// persianEventDate derives the Persian calendar date of an event from its
// DTSTART. Values carrying a TZID parameter or a trailing Z designate an
// instant and are read in the reference timezone before conversion; floating
// times and all-day DATE values are naive readings converted in place.
func persianEventDate(comp *ical.Component) (string, bool) {
	prop := comp.Props.Get(config.PropDTStart)
	if prop == nil || prop.Value == "" {
		slog.Debug(config.MsgSkippedEvent, config.LogKeyComponent, config.CompFeed)
		return "", false
	}

	t, err := prop.DateTime(time.UTC)
	if err != nil {
		slog.Warn(config.MsgSkippedEvent,
			config.LogKeyComponent, config.CompFeed,
			config.LogKeyValue, prop.Value,
			config.LogKeyError, err)
		return "", false
	}

	if prop.Params.Get(config.ParamTZID) != "" || strings.HasSuffix(prop.Value, config.UTCSuffix) {
		pt, ok := persian.FromUTC(t)
		if !ok {
			return "", false
		}
		return fmt.Sprintf(config.FormatPersianDate, pt.Year, pt.Month, pt.Day), true
	}

	pdt, ok := persian.FromDateTime(persian.DateTimeOf(t))
	if !ok {
		return "", false
	}
	return fmt.Sprintf(config.FormatPersianDate, pdt.Year, pdt.Month, pdt.Day), true
}
