package promo

import (
	"context"
	"fmt"
	"sync"
	"unicode/utf8"

	"storefront/internal/model"

	"github.com/rs/zerolog"
)

const (
	minCodeLength = 8
	maxCodeLength = 10
)

// ValidatorConfig holds configuration for the promo validator.
type ValidatorConfig struct {
	// FilePaths is the list of code list paths to load.
	FilePaths []string

	// MinMatchCount is the minimum number of lists a code must appear in.
	MinMatchCount int
}

// validator implements Validator with concurrent list lookups.
// Code sets are read-only after initialisation.
type validator struct {
	sets          []CodeSet
	minMatchCount int
	logger        zerolog.Logger
}

// NewValidator creates a new promo validator, loading every list up front.
func NewValidator(ctx context.Context, cfg ValidatorConfig, loader Loader, logger zerolog.Logger) (Validator, error) {
	if cfg.MinMatchCount < 1 {
		cfg.MinMatchCount = 1
	}
	if cfg.MinMatchCount > len(cfg.FilePaths) {
		return nil, fmt.Errorf("min match count %d exceeds the %d configured promo files", cfg.MinMatchCount, len(cfg.FilePaths))
	}

	logger = logger.With().Str("component", "promo-validator").Logger()

	logger.Info().
		Int("file_count", len(cfg.FilePaths)).
		Int("min_match_count", cfg.MinMatchCount).
		Msg("initialising promo validator")

	type loadResult struct {
		set CodeSet
		err error
	}

	results := make([]loadResult, len(cfg.FilePaths))
	var wg sync.WaitGroup

	for i, path := range cfg.FilePaths {
		wg.Add(1)
		go func(index int, path string) {
			defer wg.Done()
			set, err := loader.Load(ctx, path)
			results[index] = loadResult{set: set, err: err}
		}(i, path)
	}
	wg.Wait()

	v := &validator{
		sets:          make([]CodeSet, 0, len(cfg.FilePaths)),
		minMatchCount: cfg.MinMatchCount,
		logger:        logger,
	}

	total := 0
	for i, result := range results {
		if result.err != nil {
			logger.Error().
				Err(result.err).
				Str("file", cfg.FilePaths[i]).
				Msg("failed to load promo code file")
			return nil, fmt.Errorf("failed to load promo code file %s: %w", cfg.FilePaths[i], result.err)
		}
		v.sets = append(v.sets, result.set)
		total += result.set.Size()
	}

	logger.Info().
		Int("total_codes", total).
		Msg("promo validator initialised successfully")

	return v, nil
}

// Validate checks length first, then list membership.
func (v *validator) Validate(ctx context.Context, code string) error {
	if n := utf8.RuneCountInString(code); n < minCodeLength || n > maxCodeLength {
		v.logger.Debug().
			Int("length", n).
			Msg("promo code length invalid")
		return model.ErrInvalidPromoLength
	}

	matches := v.countMatches(ctx, code)
	if matches < v.minMatchCount {
		v.logger.Debug().
			Str("promo_code", code).
			Int("match_count", matches).
			Msg("promo code not found in sufficient lists")
		return model.ErrInvalidPromoCode
	}

	return nil
}

// countMatches looks the code up in every set concurrently and stops as soon
// as the outcome is decided either way.
func (v *validator) countMatches(ctx context.Context, code string) int {
	if ctx.Err() != nil {
		return 0
	}

	// Buffered so workers never block after an early return.
	resultChan := make(chan bool, len(v.sets))
	done := make(chan struct{})
	defer close(done)

	for _, set := range v.sets {
		go func(s CodeSet) {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			default:
			}
			resultChan <- s.Contains(code)
		}(set)
	}

	matches := 0
	checked := 0
	for checked < len(v.sets) {
		select {
		case found := <-resultChan:
			checked++
			if found {
				matches++
			}
			if matches >= v.minMatchCount {
				return matches
			}
			if matches+len(v.sets)-checked < v.minMatchCount {
				return matches
			}
		case <-ctx.Done():
			return matches
		}
	}

	return matches
}

// Close releases the loaded sets.
func (v *validator) Close() error {
	v.sets = nil
	v.logger.Info().Msg("promo validator closed")
	return nil
}

// disabled rejects every code. It is used when no code lists are configured.
type disabled struct{}

// NewDisabledValidator returns a Validator that accepts no promo codes.
func NewDisabledValidator() Validator {
	return disabled{}
}

func (disabled) Validate(_ context.Context, code string) error {
	if n := utf8.RuneCountInString(code); n < minCodeLength || n > maxCodeLength {
		return model.ErrInvalidPromoLength
	}
	return model.ErrInvalidPromoCode
}

func (disabled) Close() error { return nil }
