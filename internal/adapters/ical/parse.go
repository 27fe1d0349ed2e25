package ical

import (
	"fmt"
	"strings"
	"time"

	"domu/internal/domain"
)

// ParseCalendar extracts the VEVENTs of an iCalendar document. Only the
// fields the syncer needs are read: UID, DTSTART, DTEND, SUMMARY, STATUS.
// Airbnb and Booking.com both export all-day events (VALUE=DATE) where
// DTEND is the checkout day, which matches the half-open stay model as-is.
func ParseCalendar(data string) ([]domain.FeedEvent, error) {
	var events []domain.FeedEvent
	var cur *domain.FeedEvent

	for _, line := range unfold(data) {
		name, value := splitContentLine(line)
		switch name {
		case "BEGIN":
			if strings.EqualFold(value, "VEVENT") {
				cur = &domain.FeedEvent{}
			}
		case "END":
			if strings.EqualFold(value, "VEVENT") && cur != nil {
				events = append(events, *cur)
				cur = nil
			}
		case "UID":
			if cur != nil {
				cur.UID = value
			}
		case "DTSTART":
			if cur != nil {
				t, err := parseICalTime(value)
				if err != nil {
					return nil, fmt.Errorf("DTSTART %q: %w", value, err)
				}
				cur.Start = t
			}
		case "DTEND":
			if cur != nil {
				t, err := parseICalTime(value)
				if err != nil {
					return nil, fmt.Errorf("DTEND %q: %w", value, err)
				}
				cur.End = t
			}
		case "SUMMARY":
			if cur != nil {
				cur.Summary = unescape(value)
			}
		case "STATUS":
			if cur != nil {
				switch strings.ToUpper(value) {
				case "CONFIRMED":
					cur.Status = domain.BookingConfirmed
				case "TENTATIVE":
					cur.Status = domain.BookingTentative
				case "CANCELLED":
					cur.Status = domain.BookingCancelled
				}
			}
		}
	}
	return events, nil
}

// unfold undoes RFC 5545 line folding: a line starting with a space or tab
// continues the previous one.
func unfold(data string) []string {
	raw := strings.Split(strings.ReplaceAll(data, "\r\n", "\n"), "\n")
	var out []string
	for _, l := range raw {
		if l == "" {
			continue
		}
		if (l[0] == ' ' || l[0] == '\t') && len(out) > 0 {
			out[len(out)-1] += l[1:]
			continue
		}
		out = append(out, l)
	}
	return out
}

// splitContentLine splits "NAME;PARAM=X:VALUE" into the bare property name
// and its value; parameters (TZID, VALUE=DATE) are dropped since both time
// forms are recognized by shape.
func splitContentLine(line string) (name, value string) {
	i := strings.Index(line, ":")
	if i < 0 {
		return strings.ToUpper(line), ""
	}
	name, value = line[:i], line[i+1:]
	if j := strings.Index(name, ";"); j >= 0 {
		name = name[:j]
	}
	return strings.ToUpper(name), value
}

func parseICalTime(v string) (time.Time, error) {
	for _, layout := range []string{"20060102", "20060102T150405Z", "20060102T150405"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time value")
}

func unescape(v string) string {
	r := strings.NewReplacer(`\n`, "\n", `\N`, "\n", `\,`, ",", `\;`, ";", `\\`, `\`)
	return r.Replace(v)
}
