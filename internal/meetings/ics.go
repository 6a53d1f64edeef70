package meetings

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spigell/lead-responder/internal/ai"
)

const (
	prodID       = "-//Grok SDR//Meeting Scheduler//EN"
	uidDomain    = "grok-sdr.com"
	icsTimestamp = "20060102T150405Z"

	DefaultOrganizerEmail = "sdr@grok-sdr.com"
	DefaultOrganizerName  = "Grok SDR Team"

	// maxLineOctets is the content line limit before folding.
	maxLineOctets = 75
)

type Event struct {
	Start          time.Time
	End            time.Time
	Subject        string
	Description    string
	Location       string
	Attendees      []string
	OrganizerEmail string
	OrganizerName  string
}

// Invite is a rendered calendar file.
type Invite struct {
	UID      string
	Filename string
	Content  string
}

var textEscaper = strings.NewReplacer(
	"\\", "\\\\",
	",", "\\,",
	";", "\\;",
	"\r\n", "\\n",
	"\n", "\\n",
	"\r", "",
)

// GenerateICS renders a single-event iCalendar request with a 15 minute reminder.
// Times are written in UTC.
func GenerateICS(ev Event, now time.Time) (Invite, error) {
	if strings.TrimSpace(ev.Subject) == "" {
		return Invite{}, &ai.ValidationError{Field: "subject", Reason: "field is required"}
	}
	if ev.Start.IsZero() || ev.End.IsZero() {
		return Invite{}, &ai.ValidationError{Field: "start_datetime", Reason: "start and end are required"}
	}
	if !ev.End.After(ev.Start) {
		return Invite{}, &ai.ValidationError{Field: "end_datetime", Reason: "end must be after start"}
	}
	if ev.OrganizerEmail == "" {
		ev.OrganizerEmail = DefaultOrganizerEmail
	}
	if ev.OrganizerName == "" {
		ev.OrganizerName = DefaultOrganizerName
	}

	uid := uuid.NewString() + "@" + uidDomain
	subject := textEscaper.Replace(ev.Subject)

	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:" + prodID,
		"CALSCALE:GREGORIAN",
		"METHOD:REQUEST",
		"BEGIN:VEVENT",
		"UID:" + uid,
		"DTSTART:" + ev.Start.UTC().Format(icsTimestamp),
		"DTEND:" + ev.End.UTC().Format(icsTimestamp),
		"DTSTAMP:" + now.UTC().Format(icsTimestamp),
		"SUMMARY:" + subject,
		"DESCRIPTION:" + textEscaper.Replace(ev.Description),
		"LOCATION:" + textEscaper.Replace(ev.Location),
		"ORGANIZER;CN=" + textEscaper.Replace(ev.OrganizerName) + ":MAILTO:" + ev.OrganizerEmail,
		"STATUS:CONFIRMED",
		"SEQUENCE:0",
		"TRANSP:OPAQUE",
	}
	for _, a := range ev.Attendees {
		if a = strings.TrimSpace(a); a != "" {
			lines = append(lines, "ATTENDEE:MAILTO:"+a)
		}
	}
	lines = append(lines,
		"BEGIN:VALARM",
		"TRIGGER:-PT15M",
		"ACTION:DISPLAY",
		"DESCRIPTION:"+subject,
		"END:VALARM",
		"END:VEVENT",
		"END:VCALENDAR",
	)

	var b strings.Builder
	for _, l := range lines {
		b.WriteString(fold(l))
		b.WriteString("\r\n")
	}

	return Invite{
		UID:      uid,
		Filename: "meeting_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8] + ".ics",
		Content:  b.String(),
	}, nil
}

// fold splits a content line into 75-octet chunks, continuation lines start
// with a space. Multi-byte runes are never split.
func fold(line string) string {
	if len(line) <= maxLineOctets {
		return line
	}

	var b strings.Builder
	width := 0
	limit := maxLineOctets
	for _, r := range line {
		n := len(string(r))
		if width+n > limit {
			b.WriteString("\r\n ")
			width = 0
			// the leading space counts toward the continuation line
			limit = maxLineOctets - 1
		}
		b.WriteRune(r)
		width += n
	}
	return b.String()
}

// ParseTime accepts RFC 3339 timestamps and naive "2006-01-02T15:04:05"
// values, the latter read as UTC.
func ParseTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04:05"} {
		if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &ai.ValidationError{Field: "datetime", Reason: "unrecognized time " + v}
}
