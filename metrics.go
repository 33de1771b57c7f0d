package ballot

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/bbengfort/x/stats"
)

// Metrics tracks the measurable statistics of the ledger over time -- how
// many elections, candidates and ballots, how many operations failed, the
// number of unique voters seen, and the distribution of ballot latencies.
type Metrics struct {
	sync.RWMutex
	started    time.Time         // the time of the first ballot
	finished   time.Time         // the time of the last ballot
	elections  uint64            // the number of elections created
	candidates uint64            // the number of candidates registered
	ballots    uint64            // the number of ballots committed
	closes     uint64            // the number of explicit closes
	failures   uint64            // the number of rejected operations
	voters     map[string]bool   // the unique voter identities seen
	latencies  *stats.Statistics // distribution of ballot commit latencies (µs)
}

// NewMetrics creates the metrics data store
func NewMetrics() *Metrics {
	return &Metrics{
		voters:    make(map[string]bool),
		latencies: new(stats.Statistics),
	}
}

// Election registers a created election.
func (m *Metrics) Election() {
	m.Lock()
	defer m.Unlock()
	m.elections++
}

// Candidate registers a registered candidate.
func (m *Metrics) Candidate() {
	m.Lock()
	defer m.Unlock()
	m.candidates++
}

// Close registers an explicit election close.
func (m *Metrics) Close() {
	m.Lock()
	defer m.Unlock()
	m.closes++
}

// Failure registers a rejected operation.
func (m *Metrics) Failure() {
	m.Lock()
	defer m.Unlock()
	m.failures++
}

// Ballot registers the outcome of a vote attempt along with its latency.
// Failed attempts count as failures; committed ballots update the unique
// voter set, the throughput window and the latency distribution. The stats
// object is synchronized independently.
func (m *Metrics) Ballot(voter string, latency time.Duration, err error) {
	m.Lock()
	defer m.Unlock()

	if err != nil {
		m.failures++
		return
	}

	m.voters[voter] = true
	m.ballots++

	if m.started.IsZero() {
		m.started = time.Now()
	}
	m.finished = time.Now()

	m.latencies.Update(float64(latency.Microseconds()))
}

// Dump the metrics to JSON lines at the specified path.
func (m *Metrics) Dump(path string, extra map[string]interface{}) (err error) {
	m.RLock()
	defer m.RUnlock()

	data := make(map[string]interface{})

	// Append extra information
	for key, val := range extra {
		data[key] = val
	}

	data["metric"] = "ballot"
	data["version"] = PackageVersion
	data["started"] = m.started.Format(time.RFC3339Nano)
	data["finished"] = m.finished.Format(time.RFC3339Nano)
	data["elections"] = m.elections
	data["candidates"] = m.candidates
	data["ballots"] = m.ballots
	data["closes"] = m.closes
	data["failures"] = m.failures
	data["voters"] = len(m.voters)
	data["throughput"] = m.throughput()
	data["duration"] = m.duration().String()
	data["latencies"] = m.latencies.Serialize()

	return appendJSON(path, data)
}

// String returns a summary of the ledger metrics
func (m *Metrics) String() string {
	m.RLock()
	defer m.RUnlock()

	return fmt.Sprintf(
		"%d ballots from %d voters in %d elections (%d rejections) -- %0.3f ballots/sec",
		m.ballots, len(m.voters), m.elections, m.failures, m.throughput(),
	)
}

// Duration computes the amount of time ballots were received.
func (m *Metrics) duration() time.Duration {
	return m.finished.Sub(m.started)
}

// Throughput computes the number of committed ballots per second.
func (m *Metrics) throughput() float64 {
	duration := m.duration()
	if duration == 0 || m.ballots == 0 {
		return 0.0
	}

	return float64(m.ballots) / duration.Seconds()
}

// appendJSON marshals the data and appends it as a single line to the file
// at the given path, creating it if necessary.
func appendJSON(path string, data map[string]interface{}) error {
	line, err := json.Marshal(data)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err = f.Write(append(line, '\n')); err != nil {
		return err
	}
	return nil
}
