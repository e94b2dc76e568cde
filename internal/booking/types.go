package booking

import "time"

// Preference is a user's standing rule for one class type: a weekday, the
// acceptable start times on that weekday, and companions who must fit in
// the same class.
type Preference struct {
	Weekday    time.Weekday
	Times      []string
	Companions []string
}

// Candidate is a concrete booking attempt derived from a Preference for a
// specific calendar date. Candidates are rebuilt from remote state every
// cycle and never persisted.
type Candidate struct {
	Date       string // DateLayout form
	Weekday    time.Weekday
	Time       string
	Companions []string
}

// Seats is the capacity the candidate needs on a class.
func (c Candidate) Seats() int {
	return 1 + len(c.Companions)
}

// ScheduledClass is a normalized view of an active remote reservation,
// used only to exclude matching candidates.
type ScheduledClass struct {
	BookingID string
	ClassID   string
	Date      string
	Weekday   time.Weekday
	Time      string
}

// Match pairs a candidate with a live class that can hold it.
type Match struct {
	Candidate Candidate
	ClassID   string
	Date      string // canonical form, normalized from the remote timestamp
	Time      string
}
