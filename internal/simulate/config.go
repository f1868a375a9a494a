package simulate

import (
	"errors"
	"fmt"
	"time"

	"github.com/okian/ladder/internal/domain/model"
)

// ErrInvalidConfig reports an unusable simulation configuration.
var ErrInvalidConfig = errors.New("simulate: invalid config")

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL    string // Base URL of the service, used for reads and HTTP submission
	NATSURL    string // Publish matches to JetStream instead of HTTP when set
	NATSStream string // JetStream stream name
	AdminToken string // Bearer token for admin routes

	Matches      int            // Number of matches to generate
	Players      int            // Size of the player pool
	Participants int            // Participants per match
	Replays      int            // Matches re-sent to exercise duplicate detection
	GameType     model.GameType // Game every match is played in
	Unsubmitted  int            // One in N results is left unsubmitted; 0 disables

	Workers    int           // Number of concurrent publishers and readers
	Timeout    time.Duration // HTTP request timeout
	Settle     time.Duration // How long to wait for processing to catch up
	TopN       int           // Number of leaderboard rows to fetch and verify
	OutputFile string        // Output file for generated matches
	LogFile    string        // Log file for simulation output
	Verbose    bool          // Enable verbose logging
}

// Validate rejects configurations that cannot produce a meaningful run.
func (c *Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%w: url is required", ErrInvalidConfig)
	case c.Matches <= 0:
		return fmt.Errorf("%w: matches must be positive", ErrInvalidConfig)
	case c.Participants <= 0:
		return fmt.Errorf("%w: participants must be positive", ErrInvalidConfig)
	case c.Players < c.Participants:
		return fmt.Errorf("%w: players (%d) must cover participants (%d)", ErrInvalidConfig, c.Players, c.Participants)
	case c.Replays < 0 || c.Replays > c.Matches:
		return fmt.Errorf("%w: replays must be in 0..matches", ErrInvalidConfig)
	case c.Workers <= 0:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	case c.TopN <= 0:
		return fmt.Errorf("%w: top must be positive", ErrInvalidConfig)
	case !c.GameType.Valid():
		return fmt.Errorf("%w: unknown game %q", ErrInvalidConfig, c.GameType)
	}
	return nil
}

// Stats holds run statistics.
type Stats struct {
	MatchesGenerated   int
	MatchesSubmitted   int
	MatchesAccepted    int
	MatchesDuplicate   int
	MatchesFailed      int
	ResultsSkipped     int
	PositionsChecked   int
	PositionMismatches int
	LeaderboardEntries int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
