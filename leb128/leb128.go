// Package leb128 implements the unsigned LEB128 variable-length integer
// encoding used inside an Open Assets marker payload to carry asset
// quantities.
//
// The domain here is bounded to the 63-bit asset-quantity space: values
// above 2^63-1 are rejected by Encode, and Decode refuses to consume more
// than 9 bytes for a single value.
package leb128

import (
	"io"

	"github.com/pkt-cash/pktd/btcutil/er"
)

// MaxValue is the largest value representable as a marker asset quantity.
const MaxValue = uint64(1)<<63 - 1

// maxBytes is the most bytes a single LEB128 value is allowed to occupy in
// this domain: ceil(63/7) == 9.
const maxBytes = 9

var (
	// ErrOutOfRange is returned by Encode when the value exceeds MaxValue.
	ErrOutOfRange = er.GenericErrorType.CodeWithDetail("leb128.OutOfRange",
		"value exceeds the maximum representable asset quantity (2^63-1)")

	// ErrInvalidEncoding is returned by Decode when the byte stream ends
	// mid-integer, or more than 9 bytes are consumed for a single value.
	ErrInvalidEncoding = er.GenericErrorType.CodeWithDetail("leb128.InvalidEncoding",
		"malformed LEB128 integer")
)

// Encode returns the LEB128 encoding of value: 7-bit groups, least
// significant first, with the high bit of every byte but the last set.
func Encode(value uint64) ([]byte, er.R) {
	if value > MaxValue {
		return nil, ErrOutOfRange.New("value too large for LEB128 asset quantity", nil)
	}
	out := make([]byte, 0, maxBytes)
	for {
		b := byte(value & 0x7f)
		value >>= 7
		if value != 0 {
			out = append(out, b|0x80)
		} else {
			out = append(out, b)
			break
		}
	}
	return out, nil
}

// Decode reads a single LEB128-encoded value from r. It fails with
// ErrInvalidEncoding if the stream ends before a terminating byte (high bit
// clear) is seen, or if more than 9 bytes are consumed.
func Decode(r io.Reader) (uint64, er.R) {
	var result uint64
	var shift uint
	var buf [1]byte
	for i := 0; i < maxBytes; i++ {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, ErrInvalidEncoding.New("unexpected end of stream", nil)
		}
		b := buf[0]
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
	}
	return 0, ErrInvalidEncoding.New("LEB128 integer exceeds 9 bytes", nil)
}

// SerializeSize returns the number of bytes Encode would produce for value,
// without allocating. Used by callers sizing a marker payload buffer ahead
// of time.
func SerializeSize(value uint64) int {
	n := 1
	for value >>= 7; value != 0; value >>= 7 {
		n++
	}
	return n
}
