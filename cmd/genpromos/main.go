package main

import (
	"compress/gzip"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"storefront/internal/config"
)

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Sample lists. With the default PROMO_MIN_MATCH_COUNT of 2:
//
//	valid:   VALIDONE1, VALIDTWO12, ALLTHREE1, SUMMER2024, WINTER2024
//	invalid: ONLYONE111, ONLYTWO222, ONLYTHREE3, SPRING2024
var samples = map[string][]string{
	"promobase1.gz": {"VALIDONE1", "VALIDTWO12", "ALLTHREE1", "ONLYONE111", "SUMMER2024"},
	"promobase2.gz": {"VALIDONE1", "VALIDTWO12", "ALLTHREE1", "ONLYTWO222", "WINTER2024"},
	"promobase3.gz": {"WINTER2024", "SUMMER2024", "ALLTHREE1", "ONLYTHREE3", "SPRING2024"},
}

func main() {
	dir := flag.String("dir", "data/promos", "output directory")
	random := flag.Int("random", 0, "random filler codes to append to each list")
	flag.Parse()

	logger := config.NewLogger(config.LoggerConfig{Level: "info", Format: "console"})

	if err := os.MkdirAll(*dir, 0o755); err != nil {
		logger.Fatal().Err(err).Str("dir", *dir).Msg("failed to create output directory")
	}

	var paths []string
	for name, codes := range samples {
		path := filepath.Join(*dir, name)
		all := append(append([]string{}, codes...), randomCodes(*random)...)

		if err := writeList(path, all); err != nil {
			logger.Fatal().Err(err).Str("file", path).Msg("failed to write promo list")
		}
		logger.Info().Str("file", path).Int("codes", len(all)).Msg("promo list written")
		paths = append(paths, path)
	}

	fmt.Printf("\nPROMO_FILES=%s\n", strings.Join(paths, ","))
}

func randomCodes(n int) []string {
	codes := make([]string, n)
	for i := range codes {
		b := make([]byte, 8+rand.IntN(3))
		for j := range b {
			b[j] = codeAlphabet[rand.IntN(len(codeAlphabet))]
		}
		codes[i] = string(b)
	}
	return codes
}

func writeList(path string, codes []string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	for _, code := range codes {
		if _, err := fmt.Fprintln(gzipWriter, code); err != nil {
			return fmt.Errorf("failed to write code: %w", err)
		}
	}
	if err := gzipWriter.Close(); err != nil {
		return fmt.Errorf("failed to flush list: %w", err)
	}
	return nil
}
