package persistence

import (
	"time"

	"github.com/example/meeting-rooms/internal/meeting"
)

// LifecycleField selects the instant a static-room query compares.
type LifecycleField int

const (
	// FieldNone applies no instant filter.
	FieldNone LifecycleField = iota
	// FieldLastVisit compares the last visit and filters on the delete-candidate flag.
	FieldLastVisit
	// FieldLastPasswordChange compares the last password change and filters on
	// the password-change-candidate flag.
	FieldLastPasswordChange
)

// Comparison is the operator applied between the field and the threshold.
type Comparison int

const (
	AtOrBefore Comparison = iota
	Before
	After
)

// StaticRoomQuery selects a bounded page of static rooms. Rooms whose
// compared instant is unset never match an instant filter.
type StaticRoomQuery struct {
	Field     LifecycleField
	Compare   Comparison
	Threshold time.Time
	// Candidate filters on the candidate flag that belongs to Field.
	Candidate *bool
	// WithoutOrganizer keeps only rooms with no organizer participant.
	WithoutOrganizer bool
	Limit            int
}

// Matches evaluates the query against a single room. Stores that cannot
// push the predicate down use it directly.
func (q StaticRoomQuery) Matches(m meeting.Meeting) bool {
	if !m.Static {
		return false
	}
	if q.WithoutOrganizer && m.HasOrganizer {
		return false
	}

	var instant *time.Time
	var candidate bool
	switch q.Field {
	case FieldNone:
		return true
	case FieldLastVisit:
		instant, candidate = m.LastVisit, m.DeleteCandidate
	case FieldLastPasswordChange:
		instant, candidate = m.LastPasswordChange, m.PasswordChangeCandidate
	default:
		return false
	}

	if q.Candidate != nil && *q.Candidate != candidate {
		return false
	}
	if instant == nil {
		return false
	}
	switch q.Compare {
	case AtOrBefore:
		return !instant.After(q.Threshold)
	case Before:
		return instant.Before(q.Threshold)
	case After:
		return instant.After(q.Threshold)
	}
	return false
}

// Flag returns a pointer to v for use in StaticRoomQuery.Candidate.
func Flag(v bool) *bool {
	return &v
}
