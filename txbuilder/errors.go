package txbuilder

import "github.com/pkt-cash/pktd/btcutil/er"

var ErrInsufficientAssets = er.GenericErrorType.CodeWithDetail("txbuilder.InsufficientAssets",
	"not enough units of the required asset among the supplied inputs")

var ErrInsufficientFunds = er.GenericErrorType.CodeWithDetail("txbuilder.InsufficientFunds",
	"not enough satoshis among the supplied inputs to cover outputs, fees and the dust floor")

var ErrDustOutput = er.GenericErrorType.CodeWithDetail("txbuilder.DustOutput",
	"a requested primary output would fall below the dust floor")
