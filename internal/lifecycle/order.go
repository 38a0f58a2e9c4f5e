package lifecycle

import (
	"sort"
	"time"

	"github.com/markdave123-py/CoachHub/internal/models"
)

var priority = map[Status]int{
	StatusInProgress:    1,
	StatusUpcoming:      2,
	StatusNeedsResponse: 3,
	StatusScheduled:     4,
	StatusCompleted:     5,
	StatusDeclined:      6,
	StatusCancelled:     7,
}

// Priority returns the display rank of a status, lowest first.
func Priority(s Status) int {
	if p, ok := priority[s]; ok {
		return p
	}
	return len(priority) + 1
}

// IsActive reports whether a status belongs on the active list.
func IsActive(s Status) bool {
	switch s {
	case StatusInProgress, StatusUpcoming, StatusNeedsResponse, StatusScheduled:
		return true
	}
	return false
}

var epoch = time.Unix(0, 0).UTC()

// Entry is a session with its derived status.
type Entry struct {
	Session models.Session
	Status  Status
	// Start is the parsed date_time, or the Unix epoch when missing.
	Start time.Time
}

// Sort resolves and orders sessions: by status priority, then by start
// time ascending. Sessions without a valid date sort as the epoch. Equal
// keys keep their input order.
func (b *Board) Sort(sessions []models.Session) []Entry {
	entries := make([]Entry, len(sessions))
	for i, s := range sessions {
		start, ok := b.r.ParseDateTime(s.DateTime)
		if !ok {
			start = epoch
		}
		entries[i] = Entry{Session: s, Status: b.Status(s), Start: start}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		pi, pj := Priority(entries[i].Status), Priority(entries[j].Status)
		if pi != pj {
			return pi < pj
		}
		return entries[i].Start.Before(entries[j].Start)
	})
	return entries
}

// Partition splits sorted entries into the active and past lists.
// Both keep the order of entries.
func Partition(entries []Entry) (active, past []Entry) {
	active, past = []Entry{}, []Entry{}
	for _, e := range entries {
		if IsActive(e.Status) {
			active = append(active, e)
		} else {
			past = append(past, e)
		}
	}
	return active, past
}

// SortSessions resolves against the same list and orders it, using UTC for
// zone-less timestamps.
func SortSessions(sessions []models.Session, now time.Time) []Entry {
	return defaultResolver.NewBoard(sessions, now).Sort(sessions)
}

const (
	InvalidDateLabel = "Invalid Date"
	labelLayout      = "Mon, Jan 2, 2006 3:04 PM"
)

// Label formats a session date for display in the resolver's location.
func (r *Resolver) Label(s models.Session) string {
	t, ok := r.ParseDateTime(s.DateTime)
	if !ok {
		return InvalidDateLabel
	}
	return t.In(r.loc).Format(labelLayout)
}
