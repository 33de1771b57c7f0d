/*
Package ballot implements an election and voting ledger: elections with
per-election candidate rosters, one-ballot-per-voter vote records, a flat
admin authorization set, and an ordered, append-only event stream that is the
sole external signal of change. The ledger guarantees that at most one ballot
per voter per election is ever recorded, even under concurrent submission,
and that nothing recording "a vote happened" can be altered or erased.
*/
package ballot

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// PackageVersion of the current ballot implementation
const PackageVersion = "1.0"

// New creates a ballot service with the specified config, fully initialized
// and ready to accept operations; use Listen to start the event stream and
// the expiry sweep. If the config is nil, the configuration is loaded from
// files and the environment.
func New(options *Config) (s *Service, err error) {
	// Create a new configuration from defaults, configuration file, and
	// the environment; verify it, returning any errors.
	config := new(Config)
	if err = config.Load(); err != nil {
		return nil, err
	}

	// Update the configuration with the passed in options
	if err = config.Update(options); err != nil {
		return nil, err
	}

	// Set the global level of logging from the configuration
	zerolog.SetGlobalLevel(config.GetLogLevel())

	// The owner identity bootstraps the admin set and cannot be defaulted
	if config.Owner == "" {
		return nil, Errorf(InvalidInput, "an owner identity is required to initialize the ledger")
	}

	// Initialize the service state
	s = &Service{
		config:   config,
		admins:   NewAdminSet(config.Owner),
		registry: NewRegistry(),
		ledger:   NewLedger(),
		metrics:  NewMetrics(),
		clock:    time.Now,
	}

	// The stream actor assigns sequence numbers, journals and fans out
	// committed events one at a time.
	s.stream = NewActor(s.broadcast)

	// Open the durable journal if one is configured
	if config.Journal != "" {
		if s.journal, err = OpenJournal(config.Journal); err != nil {
			return nil, err
		}
	}

	// Create the expiry sweep ticker
	var interval time.Duration
	if interval, err = config.GetSweepInterval(); err != nil {
		return nil, err
	}
	s.ticker = NewTicker(s, interval)

	log.Info().Str("owner", config.Owner).Str("version", PackageVersion).Msg("ballot ledger initialized")
	return s, nil
}
