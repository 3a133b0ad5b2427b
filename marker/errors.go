package marker

import "github.com/pkt-cash/pktd/btcutil/er"

// InvalidMarker is the internal sentinel for a marker payload that does not
// parse: ParsePayload returns it for a short payload, a magic mismatch, or a
// version, quantity list, or metadata length that does not parse. It is
// never fatal at the transaction level: the enclosing transaction is treated
// as having no marker, and the error is surfaced only through the diagnostic
// slices returned by FindMarker and color.Engine.ColorTransaction (which also
// uses it when transfer demand cannot be met from the inputs).
var InvalidMarker = er.GenericErrorType.CodeWithDetail("marker.InvalidMarker",
	"OP_RETURN payload matched the Open Assets magic but failed to parse")
