package ballot

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Returned by stream methods when the service is not listening for events.
var ErrNotListening = errors.New("the ballot service is not running")

// Service is the primary object in the system: it owns the election
// registry, the vote ledger, the admin set and the event stream, and is the
// only component that mutates them. There should be one service per process;
// transports (the HTTP server, the CLI) are thin layers over its methods.
type Service struct {
	config   *Config
	admins   *AdminSet
	registry *Registry
	ledger   *Ledger
	metrics  *Metrics
	journal  *Journal
	ticker   *Ticker

	// Event stream state. The actor serializes sequence assignment,
	// journal writes and callback fan-out on a single goroutine.
	stream    Actor
	seq       uint64
	callbacks map[EventType][]Callback
	cbmu      sync.RWMutex

	// clock is the time source for every window check in the engine; it is
	// swapped in tests to pin the boundaries of the voting window.
	clock func() time.Time
}

// Listen starts the expiry sweep ticker and runs the event stream loop,
// blocking until Close is called or a stream callback returns an error.
// Operations may be invoked before Listen; their events are buffered and
// broadcast in order once the loop starts.
func (s *Service) Listen() error {
	s.ticker.Start(SweepTimeout)
	log.Info().Str("journal", s.config.Journal).Msg("event stream open")

	err := s.stream.Listen()

	// The stream is drained: sync the journal before returning
	s.ticker.StopAll()
	if s.journal != nil {
		if jerr := s.journal.Close(); jerr != nil && err == nil {
			err = jerr
		}
	}
	return err
}

// Close the event stream, allowing Listen to finish broadcasting the pending
// events then return gracefully. Terminal; the service cannot be reused.
func (s *Service) Close() error {
	s.ticker.StopAll()
	return s.stream.Close()
}

// Subscribe registers a callback for the specified event types, or for all
// ledger events if no types are given. Callbacks are invoked on the stream
// goroutine in global sequence order; a callback error stops the stream.
func (s *Service) Subscribe(callback Callback, types ...EventType) {
	if len(types) == 0 {
		types = []EventType{
			ElectionCreatedEvent, CandidateAddedEvent, VoteCastEvent,
			ElectionClosedEvent, ElectionEndedEvent,
		}
	}

	s.cbmu.Lock()
	defer s.cbmu.Unlock()
	if s.callbacks == nil {
		s.callbacks = make(map[EventType][]Callback)
	}
	for _, etype := range types {
		s.callbacks[etype] = append(s.callbacks[etype], callback)
	}
}

// Dispatch an event into the stream. Implements Actor so the sweep ticker
// can deliver its timeouts to the service directly.
func (s *Service) Dispatch(e Event) error {
	return s.stream.Dispatch(e)
}

// Handle a single stream event immediately on the calling goroutine,
// completing the Actor interface. Only the stream goroutine may call it.
func (s *Service) Handle(e Event) error {
	return s.broadcast(e)
}

// SetClock replaces the engine's time source. Must be called before any
// operations are issued; it exists so tests can pin the voting window
// boundaries exactly.
func (s *Service) SetClock(clock func() time.Time) {
	s.clock = clock
}

// Metrics returns the operation metrics tracked by the service.
func (s *Service) Metrics() *Metrics {
	return s.metrics
}

//===========================================================================
// Event Stream Internals
//===========================================================================

// emit wraps a committed mutation into an event and dispatches it to the
// stream actor. Called while the engine still holds the election lock so
// that per-election stream order matches commit order.
func (s *Service) emit(etype EventType, payload interface{}) {
	if err := s.stream.Dispatch(&event{etype: etype, source: s, value: payload}); err != nil {
		log.Error().Err(err).Str("event", etype.String()).Msg("could not dispatch ledger event")
	}
}

// broadcast handles each stream event in sequence: timing signals trigger
// the expiry sweep, committed ledger events are journaled then fanned out to
// subscribers in order.
func (s *Service) broadcast(e Event) error {
	if e.Type() == SweepTimeout {
		return s.sweep()
	}

	s.seq++
	record := &StreamRecord{
		ID:        uuid.New(),
		Seq:       s.seq,
		Type:      e.Type().String(),
		Timestamp: s.clock(),
		Payload:   e.Value(),
	}

	if s.journal != nil {
		if err := s.journal.Append(record); err != nil {
			return err
		}
	}

	log.Debug().Uint64("seq", record.Seq).Str("event", record.Type).Msg("ledger event committed")

	s.cbmu.RLock()
	callbacks := s.callbacks[e.Type()]
	s.cbmu.RUnlock()

	for _, callback := range callbacks {
		if err := callback(e); err != nil {
			return err
		}
	}
	return nil
}
