/*
accounts.go - Account store

PURPOSE:
  Maps client ids to accounts, creating them lazily on first reference.
  Backed by a concurrent map so read-only consumers (the HTTP admin
  surface, snapshot emitters) never contend on the engine's apply lock.

CONCURRENCY:
  Accounts are stored by value. The engine is the only writer and always
  writes under its apply lock, so read-modify-write through Get/Put is
  safe; concurrent readers always observe a complete Account value,
  never a torn one.

SNAPSHOT ORDER:
  Snapshot returns accounts in ascending client id. Deterministic order
  makes output comparable across runs.
*/
package engine

import (
	"sort"

	"github.com/puzpuzpuz/xsync/v4"
)

// Accounts is the client id -> account mapping.
type Accounts struct {
	m *xsync.Map[ClientID, Account]
}

func NewAccounts() *Accounts {
	return &Accounts{m: xsync.NewMap[ClientID, Account]()}
}

// Get returns the account for client, if it exists.
func (s *Accounts) Get(client ClientID) (Account, bool) {
	return s.m.Load(client)
}

// GetOrCreate returns the account for client, creating a zero-balance
// one on first reference. Rejected events still create the account:
// a client that appeared anywhere in the input is reported.
func (s *Accounts) GetOrCreate(client ClientID) Account {
	acct, _ := s.m.LoadOrStore(client, NewAccount(client))
	return acct
}

// Put stores the mutated account. Caller must hold the engine apply
// lock; there is exactly one writer.
func (s *Accounts) Put(acct Account) {
	s.m.Store(acct.Client, acct)
}

// Size returns the number of accounts created so far.
func (s *Accounts) Size() int {
	return s.m.Size()
}

// Snapshot copies every account, sorted by ascending client id.
func (s *Accounts) Snapshot() []Account {
	accounts := make([]Account, 0, s.m.Size())
	s.m.Range(func(_ ClientID, acct Account) bool {
		accounts = append(accounts, acct)
		return true
	})
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].Client < accounts[j].Client
	})
	return accounts
}
