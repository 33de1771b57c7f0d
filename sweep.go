package ballot

import "github.com/rs/zerolog/log"

// sweep runs on the stream goroutine whenever the ticker fires: any election
// whose voting window lapsed since the last sweep gets exactly one
// ElectionEnded event on the stream, so consumers learn the window closed
// without polling. The sweep never mutates ledger state - implicit end is a
// computed status, not a stored transition - it only marks that the
// notification was emitted.
func (s *Service) sweep() error {
	now := s.clock()
	expired := 0

	for _, election := range s.registry.All() {
		election.mu.Lock()
		if election.active && !election.ended && now.After(election.endTime) {
			election.ended = true
			expired++

			// Already on the stream goroutine: broadcast directly instead
			// of dispatching, which could fill the channel the sweep itself
			// is being handled from.
			record := &event{
				etype:  ElectionEndedEvent,
				source: s,
				value:  &ElectionEnded{ElectionID: election.id, EndTime: election.endTime},
			}
			election.mu.Unlock()

			if err := s.broadcast(record); err != nil {
				return err
			}
			continue
		}
		election.mu.Unlock()
	}

	if expired > 0 {
		log.Debug().Int("expired", expired).Msg("expiry sweep complete")
	}
	return nil
}
