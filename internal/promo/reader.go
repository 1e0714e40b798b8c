package promo

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"strings"
)

// initialCapacity is the starting size hint for a loaded code set.
const initialCapacity = 1 << 16

// readCodes decompresses r and collects one code per non-blank line.
func readCodes(ctx context.Context, r io.Reader) (*MapCodeSet, error) {
	gzipReader, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	set := NewMapCodeSet(initialCapacity)

	scanner := bufio.NewScanner(gzipReader)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	lineCount := 0
	for scanner.Scan() {
		if lineCount%1_000_000 == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}
		lineCount++

		if line := strings.TrimSpace(scanner.Text()); line != "" {
			set.Add(line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading code list: %w", err)
	}

	return set, nil
}
