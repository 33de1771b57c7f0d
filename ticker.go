package ballot

import "time"

// NewTicker creates a ticker with intervals for each of the timing events in
// the system. The only timing event the ledger requires is the expiry sweep,
// which fires at the configured sweep interval.
func NewTicker(actor Actor, sweep time.Duration) *Ticker {
	ticker := &Ticker{
		timeouts: make(map[EventType]Interval),
	}

	ticker.timeouts[SweepTimeout] = NewFixedInterval(actor, sweep, SweepTimeout)

	return ticker
}

// Ticker implements intervals for all timing events in the system. External
// objects can manage individual tickers by event type or stop them all at
// shutdown.
type Ticker struct {
	timeouts map[EventType]Interval
}

// Start the specified ticker
func (t *Ticker) Start(etype EventType) bool {
	return t.timeouts[etype].Start()
}

// Stop the specified ticker
func (t *Ticker) Stop(etype EventType) bool {
	return t.timeouts[etype].Stop()
}

// StopAll of the currently running tickers.
func (t *Ticker) StopAll() int {
	stopped := 0
	for _, ticker := range t.timeouts {
		if ticker.Stop() {
			stopped++
		}
	}
	return stopped
}

// Interrupt the specified ticker
func (t *Ticker) Interrupt(etype EventType) bool {
	return t.timeouts[etype].Interrupt()
}

// Running determines if the specified ticker is running.
func (t *Ticker) Running(etype EventType) bool {
	return t.timeouts[etype].Running()
}
