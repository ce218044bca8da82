// Package config defines service configuration and its loading.
//
// Conventions:
// - New builds a Config holding every default.
// - Load layers a YAML file and environment variables on top and validates.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/okian/mjledger/internal/adapters/repository"
	"github.com/okian/mjledger/internal/domain/scoring"
	"github.com/okian/mjledger/internal/domain/sheet"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// LedgerPath is the xlsx document holding the ledger.
	LedgerPath string `koanf:"ledger_path"`
	// ReservedSheets are never read as session sheets.
	ReservedSheets []string `koanf:"reserved_sheets"`
	// MaxRounds caps the rounds per session sheet.
	MaxRounds int `koanf:"max_rounds"`
	// SuffixLimit bounds the "_n" suffix search for a date.
	SuffixLimit int `koanf:"suffix_limit"`
	// DateKeyFormat is yymmdd or yyyymmdd for new sheet names.
	DateKeyFormat string `koanf:"date_key_format"`
	// ChipLabel and TotalLabel are written into new sheets.
	ChipLabel  string `koanf:"chip_label"`
	TotalLabel string `koanf:"total_label"`

	// Scoring convention.
	PointTotal   int   `koanf:"point_total"`
	ReturnPoints int   `koanf:"return_points"`
	PointUnit    int   `koanf:"point_unit"`
	Uma          []int `koanf:"uma"`

	// DedupeSize bounds the remembered submission IDs.
	DedupeSize int `koanf:"dedupe_size"`
	// RecordRatePerSec and RecordBurst limit POST /records per client IP.
	RecordRatePerSec float64 `koanf:"record_rate_per_sec"`
	RecordBurst      int     `koanf:"record_burst"`
	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// Timezone resolves "today" and relative date input, e.g. Asia/Tokyo.
	Timezone string `koanf:"timezone"`
}

// New creates a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		LedgerPath:          "mahjong_results.xlsx",
		ReservedSheets:      append([]string(nil), repository.DefaultReservedSheets...),
		MaxRounds:           sheet.DefaultMaxRounds,
		SuffixLimit:         repository.DefaultSuffixLimit,
		DateKeyFormat:       string(sheet.KeyShort),
		ChipLabel:           sheet.DefaultChipLabel,
		TotalLabel:          sheet.DefaultTotalLabel,
		PointTotal:          scoring.DefaultPointTotal,
		ReturnPoints:        scoring.DefaultReturnPoints,
		PointUnit:           scoring.DefaultPointUnit,
		Uma:                 append([]int(nil), scoring.DefaultUma[:]...),
		DedupeSize:          1024,
		RecordRatePerSec:    2,
		RecordBurst:         5,
		MaxLeaderboardLimit: 100,
		Timezone:            "Local",
	}
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Addr != "", "addr must not be empty")
	check(c.LedgerPath != "", "ledger_path must not be empty")
	check(c.MaxRounds > 0, "max_rounds must be positive, got %d", c.MaxRounds)
	check(c.SuffixLimit >= 1, "suffix_limit must be at least 1, got %d", c.SuffixLimit)
	_, ok := sheet.ParseKeyFormat(c.DateKeyFormat)
	check(ok, "date_key_format must be yymmdd or yyyymmdd, got %q", c.DateKeyFormat)
	check(c.PointUnit > 0, "point_unit must be positive, got %d", c.PointUnit)
	check(c.PointTotal > 0, "point_total must be positive, got %d", c.PointTotal)
	check(len(c.Uma) == 3, "uma needs 3 values for ranks 2-4, got %d", len(c.Uma))
	check(c.RecordRatePerSec >= 0, "record_rate_per_sec must not be negative")
	check(c.RecordBurst >= 0, "record_burst must not be negative")
	check(c.MaxLeaderboardLimit > 0, "max_leaderboard_limit must be positive")
	layout := sheet.NewLayout()
	check(layout.IsChipLabel(c.ChipLabel), "chip_label %q is not recognized as a chip-balance label", c.ChipLabel)
	check(layout.IsTotalLabel(c.TotalLabel), "total_label %q is not recognized as a total label", c.TotalLabel)
	check(c.LogFormat == "text" || c.LogFormat == "json", "log_format must be text or json, got %q", c.LogFormat)
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// KeyFormat returns the parsed DateKeyFormat.
func (c *Config) KeyFormat() sheet.KeyFormat {
	f, _ := sheet.ParseKeyFormat(c.DateKeyFormat)
	return f
}

// Layout builds the sheet schema from the configuration.
func (c *Config) Layout() sheet.Layout {
	return sheet.NewLayout(
		sheet.WithMaxRounds(c.MaxRounds),
		sheet.WithLabels(c.ChipLabel, c.TotalLabel),
	)
}

// ScoringOptions returns the converter options for the configured convention.
func (c *Config) ScoringOptions() []scoring.Option {
	return []scoring.Option{
		scoring.WithPointTotal(c.PointTotal),
		scoring.WithReturnPoints(c.ReturnPoints),
		scoring.WithPointUnit(c.PointUnit),
		scoring.WithUma(c.Uma),
	}
}
