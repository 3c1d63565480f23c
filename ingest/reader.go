/*
Package ingest turns byte streams into ledger events and account
snapshots back into byte streams.

PURPOSE:
  Both drivers (batch CLI and TCP service) speak the same CSV dialect:

    type,client,tx,amount
    deposit,1,1,10.0
    dispute,1,1

  The header row is optional. Fields are trimmed. amount is required
  for deposit/withdrawal, absent or ignored for the dispute family,
  and parses to exactly four fractional digits.

ERROR POLICY:
  A malformed row yields a *ParseError; callers skip it and continue.
  Bad input never aborts a stream - the snapshot simply doesn't
  reflect the skipped record.

SEE ALSO:
  - processor.go: the batch driver
  - writer.go: snapshot rendering
*/
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/payments-engine/engine"
)

// amountPlaces is the fixed-point precision of all monetary amounts.
const amountPlaces = 4

// ErrMalformedRecord is the sentinel under every *ParseError.
var ErrMalformedRecord = errors.New("malformed record")

// ParseError describes one unusable input row.
type ParseError struct {
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

func (e *ParseError) Unwrap() error { return ErrMalformedRecord }

// Reader parses one ledger event per input row.
type Reader struct {
	csv    *csv.Reader
	line   int
	header bool // header row handled
}

// NewReader wraps r. Rows may have three or four fields; an optional
// "type,client,tx,amount" header row is skipped.
func NewReader(r io.Reader) *Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return &Reader{csv: cr}
}

// Read returns the next event. io.EOF ends the stream; a *ParseError
// marks a skippable row; any other error is a real I/O fault.
func (r *Reader) Read() (engine.Event, error) {
	for {
		record, err := r.csv.Read()
		if err == io.EOF {
			return engine.Event{}, io.EOF
		}
		r.line++
		var csvErr *csv.ParseError
		if errors.As(err, &csvErr) {
			return engine.Event{}, &ParseError{Line: r.line, Reason: csvErr.Err.Error()}
		}
		if err != nil {
			return engine.Event{}, err
		}

		for i := range record {
			record[i] = strings.TrimSpace(record[i])
		}

		if !r.header {
			r.header = true
			if strings.EqualFold(record[0], "type") {
				continue
			}
		}
		return r.parse(record)
	}
}

func (r *Reader) parse(record []string) (engine.Event, error) {
	if len(record) < 3 {
		return engine.Event{}, &ParseError{Line: r.line, Reason: "expected at least 3 fields"}
	}

	kind, ok := eventKind(record[0])
	if !ok {
		return engine.Event{}, &ParseError{Line: r.line, Reason: fmt.Sprintf("unknown type %q", record[0])}
	}

	client, err := strconv.ParseUint(record[1], 10, 16)
	if err != nil {
		return engine.Event{}, &ParseError{Line: r.line, Reason: fmt.Sprintf("client %q: not a 16-bit unsigned integer", record[1])}
	}
	tx, err := strconv.ParseUint(record[2], 10, 32)
	if err != nil {
		return engine.Event{}, &ParseError{Line: r.line, Reason: fmt.Sprintf("tx %q: not a 32-bit unsigned integer", record[2])}
	}

	ev := engine.Event{
		Kind:   kind,
		Client: engine.ClientID(client),
		Tx:     engine.TxID(tx),
	}

	switch kind {
	case engine.Deposit, engine.Withdrawal:
		if len(record) < 4 || record[3] == "" {
			return engine.Event{}, &ParseError{Line: r.line, Reason: "missing required amount"}
		}
		amount, err := decimal.NewFromString(record[3])
		if err != nil {
			return engine.Event{}, &ParseError{Line: r.line, Reason: fmt.Sprintf("amount %q: %v", record[3], err)}
		}
		// Half-away-from-zero to four places; every later operation is
		// pure add/sub, so precision is fixed here and only here.
		ev.Amount = amount.Round(amountPlaces)
	default:
		// amount column, if present, is ignored for the dispute family
	}
	return ev, nil
}

func eventKind(s string) (engine.EventKind, bool) {
	switch strings.ToLower(s) {
	case "deposit":
		return engine.Deposit, true
	case "withdrawal":
		return engine.Withdrawal, true
	case "dispute":
		return engine.Dispute, true
	case "resolve":
		return engine.Resolve, true
	case "chargeback":
		return engine.Chargeback, true
	}
	return "", false
}
