/*
errors.go - Rejection reasons for the ledger state machine

PURPOSE:
  Every refused event gets a typed, observable rejection instead of
  indistinguishable silence. Drivers decide what to do with them; in
  this system they log and move on, because the final snapshot is the
  only feedback channel the wire protocol has.

ERROR CATEGORIES:
  1. Business rejections - insufficient funds, locked account, duplicates
  2. Dispute-family cache misses - unknown/evicted tx, wrong client,
     wrong dispute state

USAGE:
  if err := eng.Apply(ev); err != nil {
      if engine.IsRejection(err) {
          // skip the record, keep processing
      }
  }

SEE ALSO:
  - engine.go: where these are returned
*/
package engine

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrDuplicateTx is returned when a deposit or withdrawal reuses a
	// transaction id already present in the history cache.
	ErrDuplicateTx = errors.New("duplicate transaction id")

	// ErrAccountLocked is returned for any event against an account that
	// was locked by a chargeback. Locking is permanent.
	ErrAccountLocked = errors.New("account locked")

	// ErrInsufficientFunds is returned when a withdrawal exceeds the
	// available balance. Voluntary withdrawals never go negative.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrNonPositiveAmount is returned when a deposit or withdrawal
	// carries a zero or negative amount.
	ErrNonPositiveAmount = errors.New("amount must be positive")

	// ErrTxNotFound is returned when the dispute family references a
	// transaction id that never existed or was evicted from the cache.
	ErrTxNotFound = errors.New("transaction not found")

	// ErrWrongClient is returned when a client disputes a transaction
	// owned by a different client.
	ErrWrongClient = errors.New("transaction owned by different client")

	// ErrWrongDisputeState is returned when the referenced transaction is
	// not in the state the transition requires (e.g. resolving a record
	// that is not under dispute).
	ErrWrongDisputeState = errors.New("invalid dispute state transition")

	// ErrUnknownEvent is returned for an event kind the state machine
	// does not recognize. The CSV reader never produces one; this guards
	// programmatic callers.
	ErrUnknownEvent = errors.New("unknown event kind")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientFundsError reports how short the account was.
type InsufficientFundsError struct {
	Client    ClientID
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds for client %d: available %s, requested %s",
		e.Client, e.Available, e.Requested)
}

func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}

// DisputeStateError reports the state a dispute-family event found the
// referenced transaction in.
type DisputeStateError struct {
	Tx    TxID
	State DisputeState
}

func (e *DisputeStateError) Error() string {
	return fmt.Sprintf("transaction %d is %s", e.Tx, e.State)
}

func (e *DisputeStateError) Unwrap() error {
	return ErrWrongDisputeState
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRejection reports whether err is a business rejection or a
// dispute-family cache miss. Both leave account state untouched and are
// safe to skip; anything else is a real fault.
func IsRejection(err error) bool {
	return errors.Is(err, ErrDuplicateTx) ||
		errors.Is(err, ErrAccountLocked) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrNonPositiveAmount) ||
		errors.Is(err, ErrTxNotFound) ||
		errors.Is(err, ErrWrongClient) ||
		errors.Is(err, ErrWrongDisputeState)
}
