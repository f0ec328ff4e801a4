package refund

import "errors"

var (
	// ErrNotParticipant rejects refund requests from users who were
	// neither side of the original transaction.
	ErrNotParticipant = errors.New("requester was not a party to this transaction")
)
