package ballot

import (
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the voting ledger
const (
	UnknownEvent EventType = iota
	ElectionCreatedEvent
	CandidateAddedEvent
	VoteCastEvent
	ElectionClosedEvent
	ElectionEndedEvent
	SweepTimeout
)

// Names of event types
var eventTypeStrings = [...]string{
	"unknown", "electionCreated", "candidateAdded", "voteCast",
	"electionClosed", "electionEnded", "sweepTimeout",
}

//===========================================================================
// Event Types
//===========================================================================

// EventType is an enumeration of the kind of events that can occur.
type EventType uint16

// String returns the name of event types
func (t EventType) String() string {
	return eventTypeStrings[t]
}

// Callback is a function that can receive events.
type Callback func(Event) error

//===========================================================================
// Event Definition and Methods
//===========================================================================

// Event represents a single committed change to the ledger (or an internal
// timing signal). External consumers register callbacks on the Service and
// receive committed events in global sequence order; they never mutate state
// directly.
type Event interface {
	Type() EventType
	Source() interface{}
	Value() interface{}
}

// event is an internal implementation of the Event interface.
type event struct {
	etype  EventType
	source interface{}
	value  interface{}
}

// Type returns the event type.
func (e *event) Type() EventType {
	return e.etype
}

// Source returns the entity that dispatched the event.
func (e *event) Source() interface{} {
	return e.source
}

// Value returns the payload associated with the event.
func (e *event) Value() interface{} {
	return e.value
}

//===========================================================================
// Ledger Event Payloads
//===========================================================================

// ElectionCreated is the payload of an ElectionCreatedEvent.
type ElectionCreated struct {
	ElectionID uint64 `json:"election_id"`
	Title      string `json:"title"`
}

// CandidateAdded is the payload of a CandidateAddedEvent.
type CandidateAdded struct {
	ElectionID  uint64 `json:"election_id"`
	CandidateID uint64 `json:"candidate_id"`
	Name        string `json:"name"`
}

// VoteCast is the payload of a VoteCastEvent. The voter identity is exposed
// deliberately; ballot secrecy is out of scope for this ledger and consumers
// that require anonymity must hash the voter field before re-broadcast.
type VoteCast struct {
	ElectionID  uint64 `json:"election_id"`
	CandidateID uint64 `json:"candidate_id"`
	Voter       string `json:"voter"`
}

// ElectionClosedInfo is the payload of an ElectionClosedEvent (explicit,
// terminal close by an admin).
type ElectionClosedInfo struct {
	ElectionID uint64 `json:"election_id"`
}

// ElectionEnded is the payload of an ElectionEndedEvent, emitted once by the
// expiry sweep when an election's voting window lapses without an explicit
// close. It records no state change: implicit end is computed, not stored.
type ElectionEnded struct {
	ElectionID uint64    `json:"election_id"`
	EndTime    time.Time `json:"end_time"`
}

//===========================================================================
// Stream Records
//===========================================================================

// StreamRecord wraps a ledger event payload with its position in the global
// event stream. Records are assigned strictly increasing sequence numbers by
// the stream actor and are appended to the journal in that order.
type StreamRecord struct {
	ID        uuid.UUID   `json:"id"`
	Seq       uint64      `json:"seq"`
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}
