package ballot

import (
	"sync"
	"time"
)

// VoteHistoryEntry is one line of a voter's append-only history: which
// election, which candidate, and when. Entries are created exactly once per
// successful ballot and never mutated or deleted; together with the voted
// flags they are the consistency anchor of the ledger -- nothing that says
// "a vote happened" can be altered once recorded.
type VoteHistoryEntry struct {
	ElectionID  uint64    `json:"election_id"`
	CandidateID uint64    `json:"candidate_id"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewLedger creates an empty vote ledger.
func NewLedger() *Ledger {
	return &Ledger{
		voted:   make(map[string]map[uint64]bool),
		history: make(map[string][]VoteHistoryEntry),
	}
}

// Ledger records, per (voter, election) pair, whether a ballot was cast, and
// keeps the per-voter history of every ballot across all elections. The
// internal lock guards the maps only; the uniqueness invariant (one ballot
// per voter per election) is enforced by the engine checking HasVoted and
// calling Record under the same election lock, so two concurrent ballots for
// the same election are serialized before they reach the ledger.
type Ledger struct {
	mu      sync.RWMutex
	voted   map[string]map[uint64]bool
	history map[string][]VoteHistoryEntry
}

// HasVoted returns true if the voter has already cast a ballot in the
// election.
func (l *Ledger) HasVoted(voter string, electionID uint64) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.voted[voter][electionID]
}

// Record marks the (voter, election) pair as voted and appends the history
// entry in one critical section. The flag is write-once: Record returns
// false without touching the history if the pair was already set, as a
// backstop behind the engine's serialized HasVoted check.
func (l *Ledger) Record(voter string, electionID, candidateID uint64, ts time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.voted[voter][electionID] {
		return false
	}

	if l.voted[voter] == nil {
		l.voted[voter] = make(map[uint64]bool)
	}
	l.voted[voter][electionID] = true

	l.history[voter] = append(l.history[voter], VoteHistoryEntry{
		ElectionID:  electionID,
		CandidateID: candidateID,
		Timestamp:   ts,
	})
	return true
}

// History returns a copy of the voter's ballot history in cast order. An
// unknown voter has an empty history, not an error.
func (l *Ledger) History(voter string) []VoteHistoryEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entries := make([]VoteHistoryEntry, len(l.history[voter]))
	copy(entries, l.history[voter])
	return entries
}

// TotalVotes returns the number of ballots the voter has cast across all
// elections.
func (l *Ledger) TotalVotes(voter string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.history[voter])
}
