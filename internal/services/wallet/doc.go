/*
Package wallet provides the read side of wallet management.

All money movement goes through the ledger orchestrator; this service
handles everything around it:
- Wallet lookup and creation (one wallet per user per currency)
- Balance summaries across the available, pending and reserved buckets
- Transaction history, with the receiving side of transfers relabeled
- Administrative lock and unlock with an audit reason

Usage:

	svc := wallet.NewService(repos, cacheSvc, logger, wallet.Config{})

	// Get or create the caller's USD wallet
	w, err := svc.GetOrCreate(ctx, userID, "USD")

	// Balance summary, served from cache when warm
	summary, err := svc.Summary(ctx, userID, "USD")

	// Freeze a wallet pending review
	err = svc.Lock(ctx, walletID, "compliance hold")

Cache Management:

Summaries read through the shared Redis cache. The ledger invalidates
wallet entries after every committed movement, so a warm entry is never
older than the last movement.
*/
package wallet
