package ballot

import (
	"sync"
	"time"
)

//===========================================================================
// Interval Interface
//===========================================================================

// Interval is an interface that specifies the behavior of time based event
// dispatchers. A single interval object dispatches a single event type to an
// actor on a fixed schedule, rescheduling itself after each dispatch.
// Intervals can be started and stopped; interrupting a running interval
// resets the timer to a fresh period. Timer state (running or not running)
// can be determined by the Running() method.
type Interval interface {
	Start() bool             // start the interval to periodically dispatch its event
	Stop() bool              // stop the interval, no events will be dispatched
	Interrupt() bool         // interrupt the interval, resetting it to the next period
	Running() bool           // whether or not the interval is running
	GetDelay() time.Duration // the duration of the current interval period
}

// NewFixedInterval creates and initializes a new fixed interval that
// dispatches events of the given type to the actor.
func NewFixedInterval(actor Actor, delay time.Duration, etype EventType) *FixedInterval {
	return &FixedInterval{
		actor:       actor,
		delay:       delay,
		etype:       etype,
		initialized: true,
		timer:       nil,
	}
}

//===========================================================================
// FixedInterval Declaration
//===========================================================================

// FixedInterval dispatches its internal event type on a routine period. It
// does that by wrapping a time.Timer object, adding the additional Interval
// functionality as well as the event dispatcher functionality.
type FixedInterval struct {
	sync.Mutex
	actor       Actor         // the actor events are dispatched to
	delay       time.Duration // the fixed interval to push events on
	etype       EventType     // the type of event dispatched by the timer
	initialized bool          // if the interval has been initialized
	timer       *time.Timer   // the internal timer to wrap
}

// GetDelay returns the fixed interval duration.
func (t *FixedInterval) GetDelay() time.Duration {
	return t.delay
}

// Start the interval to periodically issue events. Returns true if the
// ticker gets started, false if it's already started or uninitialized.
func (t *FixedInterval) Start() bool {
	t.Lock()
	defer t.Unlock()

	if t.running() || !t.initialized {
		return false
	}

	t.timer = time.AfterFunc(t.GetDelay(), t.action)
	return true
}

// Stop the interval so that no events are dispatched. Returns true if the
// call stopped a running interval, false if the interval was not running.
func (t *FixedInterval) Stop() bool {
	t.Lock()
	defer t.Unlock()

	if !t.running() {
		return false
	}

	stopped := t.timer.Stop()
	t.timer = nil
	return stopped
}

// Interrupt the interval, resetting the timer to a fresh period. Returns
// true if a running interval was interrupted.
func (t *FixedInterval) Interrupt() bool {
	t.Lock()
	defer t.Unlock()

	if !t.running() {
		return false
	}

	t.timer.Reset(t.GetDelay())
	return true
}

// Running returns true if the timer exists and has not been stopped.
func (t *FixedInterval) Running() bool {
	t.Lock()
	defer t.Unlock()
	return t.running()
}

func (t *FixedInterval) running() bool {
	return t.timer != nil
}

// dispatches the fixed interval event when the timer goes off and resets the
// timer to prepare for the next event dispatch.
func (t *FixedInterval) action() {
	t.Lock()
	if !t.running() {
		// Stopped between firing and acquiring the lock
		t.Unlock()
		return
	}
	t.timer.Reset(t.GetDelay())
	actor, etype := t.actor, t.etype
	t.Unlock()

	actor.Dispatch(&event{etype: etype, source: t, value: time.Now()})
}
