/*
Package ledger is the transaction orchestrator: the single choke point
through which every balance change in the system flows.

The orchestrator owns the atomic scope. All money movement runs inside
Atomic, which opens one database transaction, binds every repository
to it, retries the whole closure on concurrent-modification conflicts,
and guarantees all-or-nothing commit:

	svc := ledger.NewService(db, repos, refs, fees, cache, logger, metrics, ledger.Config{})

	tx, err := svc.Transfer(ctx, ledger.TransferParams{
	    SenderID:   alice,
	    ReceiverID: bob,
	    Amount:     decimal.RequireFromString("25.00"),
	    Currency:   "USD",
	})

Inside a scope, balance mutations go through three primitives:

  - Credit: adds to the available balance and the total, and records a
    CREDIT ledger entry with before/after snapshots.
  - Debit: removes from a named sub-balance and the total, and records
    a DEBIT ledger entry.
  - Reclassify: moves value between sub-balances (hold, reserve,
    release). The total is untouched and no entry is written.

Because entries are recorded by the same primitives that change
balances, a committed balance change without its audit entry cannot
exist. Replaying a wallet's entries reproduces its total balance
exactly; Reconcile does this on demand.

Specialized flows (refunds, scheduled runs, order capture) are callers
of the same primitives, either through the high-level operations or by
passing their own closure to Atomic.

Idempotency:

Every public operation accepts an optional idempotency key. A repeated
(caller, key) pair returns the originally created transaction and
moves no money.
*/
package ledger
