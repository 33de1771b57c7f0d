package ballot

import "fmt"

// Error kinds returned by ledger operations. Every validation failure maps
// to exactly one kind so that callers (and the HTTP layer) can react to the
// category of failure without parsing messages.
const (
	Unknown Kind = iota
	Unauthorized
	NotFound
	InvalidInput
	InvalidSchedule
	NotStarted
	Ended
	AlreadyVoted
	ElectionClosed
	AlreadyClosed
	StillActive
	InvalidCandidate
	SelfRemovalDenied
)

// Names of error kinds
var kindStrings = [...]string{
	"unknown", "unauthorized", "notFound", "invalidInput", "invalidSchedule",
	"notStarted", "ended", "alreadyVoted", "electionClosed", "alreadyClosed",
	"stillActive", "invalidCandidate", "selfRemovalDenied",
}

//===========================================================================
// Kind Enumeration
//===========================================================================

// Kind is an enumeration of the categories of ledger failure.
type Kind uint8

// String returns the name of the error kind.
func (k Kind) String() string {
	return kindStrings[k]
}

//===========================================================================
// Error Definition and Methods
//===========================================================================

// Error is the concrete error type returned by all ballot operations. It
// couples a Kind with a human readable message; use errors.Is with one of
// the Err sentinels to test for a category of failure.
type Error struct {
	Kind    Kind
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return e.Message
}

// Is returns true when the target is a *Error of the same kind, so that
// errors.Is(err, ErrAlreadyVoted) works no matter the message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Errorf creates an error of the specified kind with a formatted message.
func Errorf(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Sentinel errors for use with errors.Is; operations return richer messages
// of the same kind.
var (
	ErrUnauthorized      = &Error{Kind: Unauthorized, Message: "caller does not hold the required privilege"}
	ErrNotFound          = &Error{Kind: NotFound, Message: "no election with the requested id"}
	ErrInvalidInput      = &Error{Kind: InvalidInput, Message: "empty or malformed text field"}
	ErrInvalidSchedule   = &Error{Kind: InvalidSchedule, Message: "start and end times are misordered"}
	ErrNotStarted        = &Error{Kind: NotStarted, Message: "the voting window has not opened yet"}
	ErrEnded             = &Error{Kind: Ended, Message: "the voting window has closed"}
	ErrAlreadyVoted      = &Error{Kind: AlreadyVoted, Message: "a ballot was already cast in this election"}
	ErrElectionClosed    = &Error{Kind: ElectionClosed, Message: "the election has been closed"}
	ErrAlreadyClosed     = &Error{Kind: AlreadyClosed, Message: "the election is already closed"}
	ErrStillActive       = &Error{Kind: StillActive, Message: "the election has not expired yet"}
	ErrInvalidCandidate  = &Error{Kind: InvalidCandidate, Message: "candidate id is out of range"}
	ErrSelfRemovalDenied = &Error{Kind: SelfRemovalDenied, Message: "the owner cannot remove itself"}
)
