package parser

import (
	"bufio"
	"io"
	"regexp"
	"strings"
)

// blockBoundary marks the start of a new trace event: an ISO-8601-like
// timestamp at the beginning of a line.
var blockBoundary = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d+`)

// maxScanTokenSize bounds a single trace line. SQL statements can carry
// long IN lists, so this is generous.
const maxScanTokenSize = 1024 * 1024

// IsBlockBoundary reports whether the line starts a new event block.
func IsBlockBoundary(line string) bool {
	return blockBoundary.MatchString(line)
}

// ScanBlocks reads trace text and calls fn once per event block, in source
// order. A block spans from one timestamp boundary up to (excluding) the
// next boundary or end of input, with internal line breaks preserved
// verbatim. Text before the first boundary is discarded. Memory use is
// bounded by one block, not the whole input.
//
// fn returning an error stops the scan and returns that error.
func ScanBlocks(r io.Reader, fn func(block string) error) error {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, maxScanTokenSize)
	scanner.Buffer(buf, maxScanTokenSize)

	var block strings.Builder
	open := false

	flush := func() error {
		if !open {
			return nil
		}
		open = false
		text := block.String()
		block.Reset()
		// Guard against stray fragments that lost their header line.
		if !blockBoundary.MatchString(text) {
			return nil
		}
		return fn(text)
	}

	for scanner.Scan() {
		line := scanner.Text()
		if blockBoundary.MatchString(line) {
			if err := flush(); err != nil {
				return err
			}
			open = true
		}
		if !open {
			continue // preamble before the first boundary
		}
		if block.Len() > 0 {
			block.WriteByte('\n')
		}
		block.WriteString(line)
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	return flush()
}

// SplitBlocks splits a full trace text into event blocks. Convenience
// wrapper around ScanBlocks for callers that already hold the whole input.
func SplitBlocks(text string) []string {
	var blocks []string
	// The reader never fails and fn never returns an error.
	_ = ScanBlocks(strings.NewReader(text), func(block string) error {
		blocks = append(blocks, block)
		return nil
	})
	return blocks
}
