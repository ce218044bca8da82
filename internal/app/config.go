package service

import (
	repository "github.com/okian/mjledger/internal/adapters/repository"
	"github.com/okian/mjledger/internal/config"
)

// OptionsFromConfig maps a validated configuration onto service options.
func OptionsFromConfig(cfg *config.Config) ([]Option, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return []Option{
		WithLedgerPath(cfg.LedgerPath),
		WithStoreOptions(
			repository.WithLayout(cfg.Layout()),
			repository.WithReservedSheets(cfg.ReservedSheets...),
			repository.WithSuffixLimit(cfg.SuffixLimit),
		),
		WithScoring(cfg.ScoringOptions()...),
		WithKeyFormat(cfg.KeyFormat()),
		WithDedupeSize(cfg.DedupeSize),
		WithLocation(loc),
	}, nil
}
