/*
engine.go - The ledger state machine

PURPOSE:
  Applies one event at a time against the account store and the history
  cache, enforcing every invariant the system has: global tx-id
  uniqueness, no negative voluntary withdrawals, dispute lifecycle
  transitions, permanent locking after chargeback.

CRITICAL INVARIANTS:
  1. total == available + held, always (total is derived, see types.go)
  2. A tx id is accepted at most once while it lives in the cache
  3. Disputes move only the amount recorded at deposit/withdrawal time
  4. Once locked, an account rejects every further event

CONCURRENCY:
  One mutex guards every Apply for its full duration. Deposits for
  client A and withdrawals for client B serialize even though they
  touch disjoint accounts - that is a deliberate trade: the global
  uniqueness check stays trivially correct. Parsing and socket I/O
  happen outside this lock; so does event publishing and snapshot
  rendering. A sharded store with a coordinating uniqueness index is
  the scaling path if this lock ever becomes the bottleneck.

REJECTIONS:
  Every refusal returns a typed error (see errors.go) and logs the
  event context, the way operators actually debug "where did my money
  go" questions. No rejection mutates state.

SEE ALSO:
  - history.go, accounts.go: the two shared structures
  - ingest/processor.go, server/server.go: the drivers feeding this
*/
package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/warp/payments-engine/events"
)

// DefaultMaxHistory bounds the transaction history cache unless
// configured otherwise.
const DefaultMaxHistory = 10_000_000

// Engine is the shared ledger. One instance serves every driver.
type Engine struct {
	mu       sync.Mutex
	accounts *Accounts
	history  *History

	log *zap.Logger
	pub events.Publisher

	processed atomic.Uint64
	rejected  atomic.Uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithPublisher sets the domain event publisher. Defaults to a no-op.
func WithPublisher(pub events.Publisher) Option {
	return func(e *Engine) { e.pub = pub }
}

// New creates an engine whose history cache holds at most maxHistory
// records. maxHistory <= 0 means unbounded.
func New(maxHistory int, opts ...Option) *Engine {
	e := &Engine{
		accounts: NewAccounts(),
		history:  NewHistory(maxHistory),
		log:      zap.NewNop(),
		pub:      events.Noop{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Apply runs one event through the state machine. A non-nil error means
// the event was rejected and no state changed; IsRejection distinguishes
// business refusals from faults (currently every error is a refusal).
func (e *Engine) Apply(ev Event) error {
	e.mu.Lock()
	locked, err := e.apply(ev)
	e.mu.Unlock()

	if err != nil {
		e.rejected.Add(1)
		e.log.Warn("event rejected",
			zap.String("kind", string(ev.Kind)),
			zap.Uint16("client", uint16(ev.Client)),
			zap.Uint32("tx", uint32(ev.Tx)),
			zap.Error(err),
		)
		return err
	}
	e.processed.Add(1)

	if locked != nil {
		e.log.Info("chargeback processed, account locked",
			zap.Uint16("client", locked.Client),
			zap.Uint32("tx", locked.Tx),
			zap.String("amount", locked.Amount.String()),
		)
		// Outside the lock; delivery is best effort.
		if perr := e.pub.Publish(context.Background(), *locked); perr != nil {
			e.log.Warn("publish account locked event failed", zap.Error(perr))
		}
	}
	return nil
}

// Snapshot returns every account that appeared in the input so far,
// ascending by client id.
func (e *Engine) Snapshot() []Account {
	return e.accounts.Snapshot()
}

// Account returns a single account, if the client was ever referenced.
func (e *Engine) Account(client ClientID) (Account, bool) {
	return e.accounts.Get(client)
}

// Stats describes the engine's counters for the admin surface.
type Stats struct {
	Processed  uint64 `json:"processed"`
	Rejected   uint64 `json:"rejected"`
	Accounts   int    `json:"accounts"`
	HistoryLen int    `json:"history_len"`
	HistoryCap int    `json:"history_cap"`
}

func (e *Engine) Stats() Stats {
	e.mu.Lock()
	histLen, histCap := e.history.Len(), e.history.Cap()
	e.mu.Unlock()

	return Stats{
		Processed:  e.processed.Load(),
		Rejected:   e.rejected.Load(),
		Accounts:   e.accounts.Size(),
		HistoryLen: histLen,
		HistoryCap: histCap,
	}
}

// =============================================================================
// STATE TRANSITIONS - All run under the apply lock
// =============================================================================

func (e *Engine) apply(ev Event) (*events.AccountLocked, error) {
	switch ev.Kind {
	case Deposit:
		return nil, e.applyDeposit(ev)
	case Withdrawal:
		return nil, e.applyWithdrawal(ev)
	case Dispute:
		return nil, e.applyDispute(ev)
	case Resolve:
		return nil, e.applyResolve(ev)
	case Chargeback:
		return e.applyChargeback(ev)
	default:
		return nil, ErrUnknownEvent
	}
}

func (e *Engine) applyDeposit(ev Event) error {
	// Referencing a client creates its account even when the event is
	// then rejected: every referenced client appears in the snapshot.
	acct := e.accounts.GetOrCreate(ev.Client)

	if acct.Locked {
		return ErrAccountLocked
	}
	if ev.Amount.Sign() <= 0 {
		return ErrNonPositiveAmount
	}
	if e.history.Contains(ev.Tx) {
		return ErrDuplicateTx
	}

	acct.Available = acct.Available.Add(ev.Amount)
	e.accounts.Put(acct)
	e.history.Insert(ev.Tx, TxRecord{
		Client: ev.Client,
		Kind:   TxDeposit,
		Amount: ev.Amount,
		State:  StateNormal,
	})
	return nil
}

func (e *Engine) applyWithdrawal(ev Event) error {
	acct := e.accounts.GetOrCreate(ev.Client)

	if acct.Locked {
		return ErrAccountLocked
	}
	if ev.Amount.Sign() <= 0 {
		return ErrNonPositiveAmount
	}
	if e.history.Contains(ev.Tx) {
		return ErrDuplicateTx
	}
	if acct.Available.LessThan(ev.Amount) {
		return &InsufficientFundsError{
			Client:    ev.Client,
			Available: acct.Available,
			Requested: ev.Amount,
		}
	}

	acct.Available = acct.Available.Sub(ev.Amount)
	e.accounts.Put(acct)
	e.history.Insert(ev.Tx, TxRecord{
		Client: ev.Client,
		Kind:   TxWithdrawal,
		Amount: ev.Amount,
		State:  StateNormal,
	})
	return nil
}

func (e *Engine) applyDispute(ev Event) error {
	rec, acct, err := e.lookupDisputed(ev)
	if err != nil {
		return err
	}
	if rec.State != StateNormal {
		return &DisputeStateError{Tx: ev.Tx, State: rec.State}
	}

	// Available may go negative here when the disputed funds were
	// already withdrawn. Expected, and resolved when the dispute is.
	acct.Available = acct.Available.Sub(rec.Amount)
	acct.Held = acct.Held.Add(rec.Amount)
	e.accounts.Put(acct)
	rec.State = StateDisputed
	return nil
}

func (e *Engine) applyResolve(ev Event) error {
	rec, acct, err := e.lookupDisputed(ev)
	if err != nil {
		return err
	}
	if rec.State != StateDisputed {
		return &DisputeStateError{Tx: ev.Tx, State: rec.State}
	}

	acct.Held = acct.Held.Sub(rec.Amount)
	acct.Available = acct.Available.Add(rec.Amount)
	e.accounts.Put(acct)
	rec.State = StateNormal
	return nil
}

func (e *Engine) applyChargeback(ev Event) (*events.AccountLocked, error) {
	rec, acct, err := e.lookupDisputed(ev)
	if err != nil {
		return nil, err
	}
	if rec.State != StateDisputed {
		return nil, &DisputeStateError{Tx: ev.Tx, State: rec.State}
	}

	// Funds are reversed, not returned: only held shrinks.
	acct.Held = acct.Held.Sub(rec.Amount)
	acct.Locked = true
	e.accounts.Put(acct)
	rec.State = StateChargedBack

	return &events.AccountLocked{
		Client:     uint16(ev.Client),
		Tx:         uint32(ev.Tx),
		Amount:     rec.Amount,
		OccurredAt: time.Now().UTC(),
	}, nil
}

// lookupDisputed runs the checks shared by the whole dispute family:
// the referenced transaction must exist (it may have been evicted),
// belong to the disputing client, and the account must not be locked.
func (e *Engine) lookupDisputed(ev Event) (*TxRecord, Account, error) {
	rec, ok := e.history.Get(ev.Tx)
	if !ok {
		return nil, Account{}, ErrTxNotFound
	}
	if rec.Client != ev.Client {
		return nil, Account{}, ErrWrongClient
	}
	acct := e.accounts.GetOrCreate(ev.Client)
	if acct.Locked {
		return nil, Account{}, ErrAccountLocked
	}
	return rec, acct, nil
}
