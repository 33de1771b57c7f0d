package ballot

import (
	"sync"
	"time"
)

// Election lifecycle statuses as computed by EffectiveStatus
const (
	Scheduled Status = iota // created but the voting window has not opened
	Active                  // inside the voting window and not explicitly closed
	Expired                 // the voting window has lapsed without an explicit close
	Closed                  // explicitly and terminally closed by an admin
)

// Names of the statuses for serialization
var statusStrings = [...]string{
	"scheduled", "active", "expired", "closed",
}

//===========================================================================
// Status Enumeration
//===========================================================================

// Status is an enumeration of the possible lifecycle phases of an election.
// It is always computed from the stored fields and the supplied clock, never
// stored itself, so every caller shares one definition of "votable".
type Status uint8

// String returns a human readable representation of the status.
func (s Status) String() string {
	return statusStrings[s]
}

// Votable returns true if ballots may be cast in this status.
func (s Status) Votable() bool {
	return s == Active
}

//===========================================================================
// Election
//===========================================================================

// Election is the registry's record of a single election. The descriptive
// fields and the voting window are immutable after creation; the only legal
// mutations are appending candidates, incrementing candidate tallies, and
// the single true→false transition of the active flag. All mutations happen
// under mu, which the engine holds across validation, commit, and event
// emission so per-election invariants hold under concurrent requests.
type Election struct {
	mu          sync.RWMutex // serializes all mutations touching this election
	id          uint64       // monotonic identifier assigned by the registry
	title       string
	department  string
	description string
	startTime   time.Time
	endTime     time.Time
	active      bool         // true until the single explicit close
	candidates  []*Candidate // ordered by id; ids are 1..len(candidates)
	ended       bool         // expiry sweep marker: ElectionEnded already emitted
}

// Candidate is a member of an election's roster. Candidates are appended
// once with a zero tally and never removed; the tally is monotonic.
type Candidate struct {
	ID        uint64 `json:"id"`
	Name      string `json:"name"`
	VoteCount uint64 `json:"vote_count"`
}

// newElection validates nothing; the engine performs ordered validation
// before the registry allocates an id and constructs the record.
func newElection(id uint64, title, department, description string, start, end time.Time) *Election {
	return &Election{
		id:          id,
		title:       title,
		department:  department,
		description: description,
		startTime:   start,
		endTime:     end,
		active:      true,
		candidates:  make([]*Candidate, 0),
	}
}

// EffectiveStatus computes the lifecycle phase of the election at the given
// instant. Both window boundaries are inclusive: a ballot cast exactly at
// startTime or exactly at endTime counts. An explicit close dominates the
// window check because it is terminal.
func (e *Election) EffectiveStatus(now time.Time) Status {
	if !e.active {
		return Closed
	}
	if now.Before(e.startTime) {
		return Scheduled
	}
	if now.After(e.endTime) {
		return Expired
	}
	return Active
}

// candidate returns the candidate with the given id or nil if the id is
// outside [1, len(candidates)]. Caller must hold the election lock.
func (e *Election) candidate(id uint64) *Candidate {
	if id < 1 || id > uint64(len(e.candidates)) {
		return nil
	}
	return e.candidates[id-1]
}

//===========================================================================
// Election Views
//===========================================================================

// ElectionInfo is an immutable snapshot of an election returned by the read
// model, safe to hold after the engine moves on.
type ElectionInfo struct {
	ID              uint64      `json:"id"`
	Title           string      `json:"title"`
	Department      string      `json:"department"`
	Description     string      `json:"description"`
	StartTime       time.Time   `json:"start_time"`
	EndTime         time.Time   `json:"end_time"`
	Active          bool        `json:"active"`
	Status          string      `json:"status"`
	CandidatesCount uint64      `json:"candidates_count"`
	Candidates      []Candidate `json:"candidates"`
}

// snapshot copies the election into an ElectionInfo. Caller must hold the
// election lock (read access is sufficient).
func (e *Election) snapshot(now time.Time) ElectionInfo {
	candidates := make([]Candidate, len(e.candidates))
	for i, c := range e.candidates {
		candidates[i] = *c
	}

	return ElectionInfo{
		ID:              e.id,
		Title:           e.title,
		Department:      e.department,
		Description:     e.description,
		StartTime:       e.startTime,
		EndTime:         e.endTime,
		Active:          e.active,
		Status:          e.EffectiveStatus(now).String(),
		CandidatesCount: uint64(len(e.candidates)),
		Candidates:      candidates,
	}
}
