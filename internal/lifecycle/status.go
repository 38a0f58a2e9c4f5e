// Package lifecycle derives the live status of coaching sessions and orders
// them for display. The persisted Session.Status field is not consulted:
// status is recomputed from the schedule, the calendar state and the
// client's response every time.
package lifecycle

import (
	"strings"
	"time"

	"github.com/markdave123-py/CoachHub/internal/models"
)

type Status string

const (
	StatusCancelled     Status = "cancelled"
	StatusDeclined      Status = "declined"
	StatusNeedsResponse Status = "needs-response"
	StatusInProgress    Status = "in-progress"
	StatusUpcoming      Status = "upcoming"
	StatusScheduled     Status = "scheduled"
	StatusCompleted     Status = "completed"
)

// DefaultDuration applies when a session has no duration.
const DefaultDuration = 30 * time.Minute

const (
	calendarCancelled  = "cancelled"
	responseDeclined   = "declined"
	responseNeedsReply = "needsAction"
)

// zone-less layouts are interpreted in the resolver's location
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Resolver carries the location used for timestamps without a zone.
type Resolver struct {
	loc *time.Location
}

func NewResolver(loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	return &Resolver{loc: loc}
}

var defaultResolver = NewResolver(time.UTC)

// ParseDateTime parses a stored date_time. ok is false for empty or
// unparseable values.
func (r *Resolver) ParseDateTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, true
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, raw, r.loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Window returns the start and end of a session.
func (r *Resolver) Window(s models.Session) (start, end time.Time, ok bool) {
	start, ok = r.ParseDateTime(s.DateTime)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	d := DefaultDuration
	if s.Duration != nil {
		d = time.Duration(*s.Duration) * time.Minute
	}
	return start, start.Add(d), true
}

// Board resolves statuses for one list of sessions at one instant. The
// nearest upcoming session is found once, so resolving the whole list is
// linear.
type Board struct {
	r         *Resolver
	now       time.Time
	nextID    string
	nextStart time.Time
	hasNext   bool
}

// NewBoard prepares status resolution for all at now.
func (r *Resolver) NewBoard(all []models.Session, now time.Time) *Board {
	b := &Board{r: r, now: now}
	for _, s := range all {
		if excluded(s) {
			continue
		}
		start, ok := r.ParseDateTime(s.DateTime)
		if !ok || !now.Before(start) {
			continue
		}
		// equal start times resolve to the lowest id
		if !b.hasNext || start.Before(b.nextStart) || (start.Equal(b.nextStart) && s.ID < b.nextID) {
			b.nextID, b.nextStart, b.hasNext = s.ID, start, true
		}
	}
	return b
}

func excluded(s models.Session) bool {
	return s.GoogleCalendarStatus == calendarCancelled ||
		s.ClientResponseStatus == responseDeclined ||
		s.ClientResponseStatus == responseNeedsReply
}

// Status derives the status of s. Precedence is strict, top to bottom.
func (b *Board) Status(s models.Session) Status {
	start, end, ok := b.r.Window(s)
	if !ok {
		return StatusScheduled
	}
	switch {
	case s.GoogleCalendarStatus == calendarCancelled:
		return StatusCancelled
	case s.ClientResponseStatus == responseDeclined:
		return StatusDeclined
	case s.ClientResponseStatus == responseNeedsReply:
		return StatusNeedsResponse
	}
	if b.now.Before(start) {
		if b.hasNext && s.ID == b.nextID && start.Equal(b.nextStart) {
			return StatusUpcoming
		}
		return StatusScheduled
	}
	if b.now.Before(end) {
		return StatusInProgress
	}
	return StatusCompleted
}

// Now returns the instant the board was built for.
func (b *Board) Now() time.Time { return b.now }

// ResolveStatus derives the status of s within all at now.
func (r *Resolver) ResolveStatus(s models.Session, all []models.Session, now time.Time) Status {
	return r.NewBoard(all, now).Status(s)
}

// ResolveStatus uses UTC for zone-less timestamps.
func ResolveStatus(s models.Session, all []models.Session, now time.Time) Status {
	return defaultResolver.ResolveStatus(s, all, now)
}
