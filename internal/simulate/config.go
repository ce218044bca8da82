// Package simulate plays random mahjong sessions against a ledger and
// checks that what the ledger reports matches what was submitted.
package simulate

import "time"

// Defaults for a simulation run.
const (
	DefaultSessions  = 5
	DefaultRounds    = 4
	DefaultPoolSize  = 8
	DefaultWorkers   = 2
	DefaultTimeout   = 30 * time.Second
	DefaultReplayPct = 10
)

// Config holds configuration for a simulation run.
type Config struct {
	Sessions  int       // sessions to play
	Rounds    int       // rounds per session
	PoolSize  int       // distinct player names to draw rosters from
	Workers   int       // sessions submitted concurrently
	Seed      int64     // faker seed; 0 picks one from the clock
	Start     time.Time // date of the first session; sessions move one day each
	ReplayPct int       // share of rounds submitted twice with the same id
	Verbose   bool
}

// withDefaults fills zero fields.
func (c Config) withDefaults() Config {
	if c.Sessions <= 0 {
		c.Sessions = DefaultSessions
	}
	if c.Rounds <= 0 {
		c.Rounds = DefaultRounds
	}
	if c.PoolSize < 4 {
		c.PoolSize = DefaultPoolSize
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.Seed == 0 {
		c.Seed = time.Now().UnixNano()
	}
	if c.Start.IsZero() {
		c.Start = time.Now().UTC().AddDate(0, 0, -c.Sessions)
	}
	if c.ReplayPct < 0 {
		c.ReplayPct = 0
	}
	return c
}

// Report summarizes a run.
type Report struct {
	Seed       int64         `json:"seed"`
	Sessions   int           `json:"sessions"`
	Submitted  int           `json:"submitted"`
	Created    int           `json:"created"`
	Appended   int           `json:"appended"`
	Replayed   int           `json:"replayed"`
	Rejected   int           `json:"rejected"`
	Failed     int           `json:"failed"`
	Mismatches []string      `json:"mismatches,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// OK reports whether every round landed and the ledger agrees with it.
func (r *Report) OK() bool {
	return r.Failed == 0 && r.Rejected == 0 && len(r.Mismatches) == 0
}
