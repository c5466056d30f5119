// Package parser turns raw database trace logs into structured records.
//
// A trace log is a sequence of multi-line event blocks, each introduced by
// a timestamp line. The parser splits the text into blocks and applies a
// set of independent, best-effort field grammars to each block, producing
// one TraceRecord per event.
package parser

import (
	"io"
	"os"
)

// Parser reads trace logs and parses them into TraceRecords.
type Parser struct{}

// New creates a new Parser.
func New() *Parser {
	return &Parser{}
}

// ParseFile opens a file and parses all trace records from it.
func (p *Parser) ParseFile(path string) ([]TraceRecord, error) {
	var records []TraceRecord
	err := p.ParseFileStream(path, func(rec TraceRecord) error {
		records = append(records, rec)
		return nil
	})
	return records, err
}

// Parse reads trace records from the given reader.
func (p *Parser) Parse(r io.Reader) ([]TraceRecord, error) {
	var records []TraceRecord
	err := p.ParseStream(r, func(rec TraceRecord) error {
		records = append(records, rec)
		return nil
	})
	return records, err
}

// ParseStream reads trace records from the reader and calls fn once per
// record, in source order. Only one block is held in memory at a time, so
// very large inputs stream through with bounded memory.
//
// fn returning an error stops the stream and returns that error.
func (p *Parser) ParseStream(r io.Reader, fn func(TraceRecord) error) error {
	return ScanBlocks(r, func(block string) error {
		return fn(Extract(block))
	})
}

// ParseFileStream opens a file and streams its trace records through fn.
// An unreadable file is reported before any record is produced.
func (p *Parser) ParseFileStream(path string, fn func(TraceRecord) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return p.ParseStream(f, fn)
}
