/*
Package events defines the domain events the ledger emits and the
publisher abstraction that carries them.

PURPOSE:
  Downstream systems (fraud review, notifications) care when an account
  gets locked by a chargeback. The ledger hands those moments to a
  Publisher; wiring decides whether that is a no-op or a Kafka topic.

DELIVERY:
  Best effort. A failed publish is logged by the caller and never fails
  the ledger transition that produced it.

SEE ALSO:
  - kafka/publisher.go: Kafka-backed implementation
*/
package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// AccountLocked is emitted when a chargeback permanently locks an
// account. Amount is the charged-back amount.
type AccountLocked struct {
	Client     uint16          `json:"client"`
	Tx         uint32          `json:"tx"`
	Amount     decimal.Decimal `json:"amount"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// Publisher delivers domain events to whoever is listening.
type Publisher interface {
	Publish(ctx context.Context, event any) error
}

// Noop discards every event. The default when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, any) error { return nil }
