/*
processor.go - Batch ingestion driver

PURPOSE:
  Reads a finite record set (file or stdin), applies every event to one
  engine in order, and emits the final snapshot once the input is
  exhausted. No concurrency: batch mode is strictly sequential.

ERROR POLICY:
  Malformed rows and rejected events are counted, logged at warn level,
  and skipped. Only real I/O faults (missing file, broken pipe) abort
  a run.
*/
package ingest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/warp/payments-engine/engine"
)

// Processor drives a finite record stream through an engine.
type Processor struct {
	engine *engine.Engine
	log    *zap.Logger

	processed int
	skipped   int
}

func NewProcessor(eng *engine.Engine, log *zap.Logger) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{engine: eng, log: log}
}

// ProcessFile opens path and processes it to the end. "-" reads stdin.
func (p *Processor) ProcessFile(path string) error {
	if path == "-" {
		return p.Process(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("file not found: %s", path)
	}
	defer f.Close()
	return p.Process(bufio.NewReader(f))
}

// Process consumes r until EOF. Skippable rows never abort the stream.
func (p *Processor) Process(r io.Reader) error {
	reader := NewReader(r)
	for {
		ev, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		var parseErr *ParseError
		if errors.As(err, &parseErr) {
			p.skipped++
			p.log.Warn("skipping malformed row", zap.Error(parseErr))
			continue
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}

		if err := p.engine.Apply(ev); err != nil {
			// The engine already logged the rejection reason.
			p.skipped++
			continue
		}
		p.processed++
	}
}

// WriteResults emits the snapshot of every account seen so far.
func (p *Processor) WriteResults(w io.Writer) error {
	return WriteSnapshot(w, p.engine.Snapshot())
}

// Counts reports how many events were applied and how many rows were
// skipped (malformed or rejected).
func (p *Processor) Counts() (processed, skipped int) {
	return p.processed, p.skipped
}
