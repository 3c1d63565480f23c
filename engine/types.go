/*
Package engine implements the payments ledger state machine.

PURPOSE:
  This package is the core of the system: it applies typed financial
  events (deposit, withdrawal, dispute, resolve, chargeback) against
  per-client accounts while enforcing global transaction-id uniqueness
  and dispute lifecycle rules.

KEY CONCEPTS IN THIS FILE (types.go):
  - Event: one parsed input record, ready to apply
  - Account: per-client balances; Total is always derived
  - TxRecord: a remembered deposit/withdrawal that disputes reference
  - DisputeState: Normal -> Disputed -> (Normal | ChargedBack)

DESIGN PRINCIPLES:
  1. Precision: money uses decimal.Decimal, never binary floats
  2. Anchoring: disputes only move amounts recorded at deposit/withdrawal
     time; they can never fabricate a new balance delta
  3. Irreversibility: a chargeback locks the account permanently

SEE ALSO:
  - engine.go: the Apply state machine
  - history.go: bounded transaction history cache
  - accounts.go: account store
*/
package engine

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

// ClientID identifies an account owner. Wire format is an unsigned
// 16-bit integer.
type ClientID uint16

// TxID identifies a deposit or withdrawal. Globally unique across all
// clients for as long as the record lives in the history cache.
type TxID uint32

// =============================================================================
// EVENTS
// =============================================================================

type EventKind string

const (
	Deposit    EventKind = "deposit"
	Withdrawal EventKind = "withdrawal"
	Dispute    EventKind = "dispute"
	Resolve    EventKind = "resolve"
	Chargeback EventKind = "chargeback"
)

// Event is one ledger event. Amount is only meaningful for Deposit and
// Withdrawal; the dispute family references the amount recorded on the
// original transaction instead.
type Event struct {
	Kind   EventKind
	Client ClientID
	Tx     TxID
	Amount decimal.Decimal
}

// =============================================================================
// TRANSACTION RECORD - What disputes reference
// =============================================================================

type TxKind string

const (
	TxDeposit    TxKind = "deposit"
	TxWithdrawal TxKind = "withdrawal"
)

type DisputeState string

const (
	StateNormal      DisputeState = "normal"
	StateDisputed    DisputeState = "disputed"
	StateChargedBack DisputeState = "charged_back"
)

// TxRecord is one accepted deposit or withdrawal, kept in the history
// cache so the dispute family can validate and look it up later.
// Dispute/resolve/chargeback mutate State in place; they never create
// new records.
type TxRecord struct {
	Client ClientID
	Kind   TxKind
	Amount decimal.Decimal
	State  DisputeState
}

// =============================================================================
// ACCOUNT
// =============================================================================

// Account holds one client's balances. Total is never stored: it is
// always Available + Held at read time, so the two can never drift.
//
// Available may go negative when a transaction is disputed after its
// funds were already withdrawn. That is expected behavior, not a bug.
type Account struct {
	Client    ClientID
	Available decimal.Decimal
	Held      decimal.Decimal
	Locked    bool
}

// NewAccount returns a zero-balance account for client.
func NewAccount(client ClientID) Account {
	return Account{
		Client:    client,
		Available: decimal.Zero,
		Held:      decimal.Zero,
	}
}

// Total is the derived sum of available and held funds.
func (a Account) Total() decimal.Decimal {
	return a.Available.Add(a.Held)
}
