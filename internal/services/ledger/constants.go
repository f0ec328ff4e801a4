package ledger

import "time"

// Sub-balances money can live in. Credits always land in available;
// debits name the bucket they consume.
const (
	BucketAvailable = "available"
	BucketPending   = "pending"
	BucketReserved  = "reserved"
)

// Default configuration values
const (
	DefaultCurrency     = "USD"
	DefaultMaxRetries   = 3
	DefaultRetryBackoff = 25 * time.Millisecond
	DefaultMaxAmount    = "1000000.00"
)
