package ballot

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// NewBenchmark creates either a blast or a simple benchmark depending on the
// blast boolean flag. In blast mode, N voters cast their ballots against a
// freshly created election simultaneously. In simple mode, C workers each
// cast N ballots with distinct identities in sequence. Note that C is
// ignored in blast mode. The benchmark needs the server's secret to mint one
// identity token per voter: ballots are unique per identity, so load cannot
// be generated from a single account.
func NewBenchmark(options *Config, addr string, blast bool, N, C uint) (bench Benchmark, err error) {
	config := new(Config)
	if err = config.Load(); err != nil {
		return nil, err
	}
	if err = config.Update(options); err != nil {
		return nil, err
	}

	if blast {
		bench = &BlastBenchmark{
			config: config, operations: N,
			benchmark: benchmark{method: "blast"},
		}
	} else {
		bench = &SimpleBenchmark{
			benchmark: benchmark{method: "simple"},
			config:    config, operations: N, concurrency: C,
		}
	}

	if err = bench.Run(addr); err != nil {
		return nil, err
	}
	return bench, nil
}

// Benchmark defines the interface for all benchmark runners, both for
// execution as well as the delivery of results. A single benchmark is
// executed once and stores its internal results to be saved to disk.
type Benchmark interface {
	Run(addr string) error           // execute the benchmark, may return an error if already run
	CSV(header bool) (string, error) // returns a CSV representation of the results
	JSON(indent int) ([]byte, error) // returns a JSON representation of the results
}

//===========================================================================
// benchmark
//===========================================================================

// This embedded struct implements shared functionality between the
// implemented benchmarks, keeping track of the throughput and the number of
// successful or unsuccessful ballots.
type benchmark struct {
	method   string        // the name of the benchmark type
	requests uint64        // the number of successful ballots
	failures uint64        // the number of failed ballots
	started  time.Time     // the time the benchmark was started
	duration time.Duration // the duration of the benchmark period
}

// Complete returns true if requests and duration is greater than 0.
func (b *benchmark) Complete() bool {
	return b.requests > 0 && b.duration > 0
}

// Throughput computes the number of ballots (excluding failures) by the
// total duration of the experiment, e.g. the operations per second.
func (b *benchmark) Throughput() float64 {
	if b.duration == 0 {
		return 0.0
	}

	return float64(b.requests) / b.duration.Seconds()
}

// CSV returns a results row delimited by commas as:
//
//	requests,failures,duration,throughput,version,benchmark
//
// If header is specified then string contains two rows with the header first.
func (b *benchmark) CSV(header bool) (string, error) {
	if !b.Complete() {
		return "", errors.New("benchmark has not been run yet")
	}

	row := fmt.Sprintf(
		"%d,%d,%s,%0.4f,%s,%s",
		b.requests, b.failures, b.duration, b.Throughput(), PackageVersion, b.method,
	)

	if header {
		return fmt.Sprintf("requests,failures,duration,throughput,version,benchmark\n%s", row), nil
	}

	return row, nil
}

// JSON returns a results row as a json object, formatted with or without the
// number of spaces specified by indent. Use no indent for JSON lines format.
func (b *benchmark) JSON(indent int) ([]byte, error) {
	data := map[string]interface{}{
		"requests":   b.requests,
		"failures":   b.failures,
		"duration":   b.duration.String(),
		"throughput": b.Throughput(),
		"version":    PackageVersion,
		"benchmark":  b.method,
	}

	if indent > 0 {
		return json.MarshalIndent(data, "", strings.Repeat(" ", indent))
	}

	return json.Marshal(data)
}

// fixture creates a benchmark election with two candidates, open for voting
// one second from now, and returns its id once the window has opened.
func (b *benchmark) fixture(config *Config, addr string) (electionID uint64, err error) {
	duration, err := config.GetTokenDuration()
	if err != nil {
		return 0, err
	}

	token, err := MintToken(config.Secret, config.Owner, duration)
	if err != nil {
		return 0, err
	}

	admin, err := NewClient(addr, token)
	if err != nil {
		return 0, err
	}

	start := time.Now().Add(1200 * time.Millisecond)
	if electionID, err = admin.CreateElection(&CreateElectionRequest{
		Title:       fmt.Sprintf("benchmark %d", time.Now().UnixNano()),
		Department:  "benchmarks",
		Description: "synthetic load generation election",
		StartTime:   start,
		EndTime:     start.Add(time.Hour),
	}); err != nil {
		return 0, err
	}

	for _, name := range []string{"yea", "nay"} {
		if _, err = admin.AddCandidate(electionID, name); err != nil {
			return 0, err
		}
	}

	// Wait for the voting window to open before generating load
	time.Sleep(time.Until(start) + 50*time.Millisecond)
	return electionID, nil
}

// voter creates a client for a synthetic voter identity.
func (b *benchmark) voter(config *Config, addr string, i uint) (*Client, error) {
	duration, err := config.GetTokenDuration()
	if err != nil {
		return nil, err
	}

	identity := fmt.Sprintf("bench-%s-%d-%d", b.method, b.started.UnixNano(), i)
	token, err := MintToken(config.Secret, identity, duration)
	if err != nil {
		return nil, err
	}
	return NewClient(addr, token)
}

//===========================================================================
// BlastBenchmark
//===========================================================================

// BlastBenchmark casts N ballots from N distinct identities simultaneously
// against a fixture election and measures how long the blast takes.
type BlastBenchmark struct {
	benchmark
	config     *Config
	operations uint
}

// Run the blast benchmark against the server at the given address.
func (b *BlastBenchmark) Run(addr string) (err error) {
	if b.Complete() {
		return errors.New("benchmark has already been run")
	}

	b.started = time.Now()

	var electionID uint64
	if electionID, err = b.fixture(b.config, addr); err != nil {
		return err
	}

	// Mint all the voter clients before starting the clock
	clients := make([]*Client, 0, b.operations)
	for i := uint(0); i < b.operations; i++ {
		var client *Client
		if client, err = b.voter(b.config, addr, i); err != nil {
			return err
		}
		clients = append(clients, client)
	}

	results := make([]error, b.operations)
	group := new(sync.WaitGroup)

	start := time.Now()
	for i, client := range clients {
		group.Add(1)
		go func(i int, client *Client) {
			defer group.Done()
			results[i] = client.Vote(electionID, uint64(i%2)+1)
		}(i, client)
	}
	group.Wait()
	b.duration = time.Since(start)

	for _, err := range results {
		if err != nil {
			b.failures++
		} else {
			b.requests++
		}
	}
	return nil
}

//===========================================================================
// SimpleBenchmark
//===========================================================================

// SimpleBenchmark runs C workers that each cast N ballots in sequence, every
// ballot from a distinct identity.
type SimpleBenchmark struct {
	benchmark
	config      *Config
	operations  uint
	concurrency uint
}

// Run the simple benchmark against the server at the given address.
func (b *SimpleBenchmark) Run(addr string) (err error) {
	if b.Complete() {
		return errors.New("benchmark has already been run")
	}

	b.started = time.Now()

	var electionID uint64
	if electionID, err = b.fixture(b.config, addr); err != nil {
		return err
	}

	var (
		group    sync.WaitGroup
		mu       sync.Mutex
		requests uint64
		failures uint64
	)

	start := time.Now()
	for w := uint(0); w < b.concurrency; w++ {
		group.Add(1)
		go func(w uint) {
			defer group.Done()
			for i := uint(0); i < b.operations; i++ {
				client, err := b.voter(b.config, addr, w*b.operations+i)
				if err == nil {
					err = client.Vote(electionID, uint64(i%2)+1)
				}

				mu.Lock()
				if err != nil {
					failures++
				} else {
					requests++
				}
				mu.Unlock()
			}
		}(w)
	}
	group.Wait()

	b.duration = time.Since(start)
	b.requests = requests
	b.failures = failures
	return nil
}
