package color

import "github.com/pkt-cash/pktd/btcutil/er"

// ErrTransactionNotFound is returned when the TransactionFetcher yields no
// transaction for a requested hash. It is fatal: it propagates to the caller
// rather than being downgraded like an invalid marker.
var ErrTransactionNotFound = er.GenericErrorType.CodeWithDetail("color.TransactionNotFound",
	"no transaction was found for the requested hash")
