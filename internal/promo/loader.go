package promo

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

// fileLoader implements Loader for reading gzipped code lists from disk.
type fileLoader struct {
	logger zerolog.Logger
}

// NewFileLoader creates a new file-based promo loader.
func NewFileLoader(logger zerolog.Logger) Loader {
	return &fileLoader{
		logger: logger.With().Str("component", "promo-loader").Logger(),
	}
}

// Load reads a gzipped code list with one code per line.
func (l *fileLoader) Load(ctx context.Context, path string) (CodeSet, error) {
	l.logger.Info().Str("file", path).Msg("loading promo code file")

	file, err := os.Open(path)
	if err != nil {
		l.logger.Error().Err(err).Str("file", path).Msg("failed to open promo code file")
		return nil, fmt.Errorf("failed to open promo code file %s: %w", path, err)
	}
	defer file.Close()

	set, err := readCodes(ctx, file)
	if err != nil {
		l.logger.Error().Err(err).Str("file", path).Msg("failed to read promo code file")
		return nil, fmt.Errorf("failed to read promo code file %s: %w", path, err)
	}

	l.logger.Info().
		Str("file", path).
		Int("codes_loaded", set.Size()).
		Msg("promo code file loaded successfully")

	return set, nil
}
