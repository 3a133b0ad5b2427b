// Package marker implements the Open Assets marker output: the payload
// format carried by a transaction's OP_RETURN output, and recognition of
// that output's script shape.
package marker

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkt-cash/pktd/btcutil/er"
	"github.com/pkt-cash/pktd/wire"

	"github.com/OpenAssets/openassets/leb128"
)

// Magic is the 4-byte prefix ("OA\x01\x00") identifying an Open Assets
// marker payload.
var Magic = [4]byte{0x4f, 0x41, 0x01, 0x00}

// Version is the only payload version this module understands.
const Version = uint16(1)

// Payload is the parsed content of a marker output.
type Payload struct {
	Version    uint16
	Quantities []uint64
	Metadata   []byte
}

// Serialize encodes p as magic ‖ version ‖ CompactSize(len(quantities)) ‖
// LEB128(quantities...) ‖ CompactSize(len(metadata)) ‖ metadata.
func (p *Payload) Serialize() ([]byte, er.R) {
	var buf bytes.Buffer
	buf.Write(Magic[:])
	// binary.Write against a bytes.Buffer cannot fail.
	_ = binary.Write(&buf, binary.BigEndian, p.Version)
	if err := wire.WriteVarInt(&buf, 0, uint64(len(p.Quantities))); err != nil {
		return nil, err
	}
	for _, q := range p.Quantities {
		enc, err := leb128.Encode(q)
		if err != nil {
			return nil, err
		}
		buf.Write(enc)
	}
	if err := wire.WriteVarInt(&buf, 0, uint64(len(p.Metadata))); err != nil {
		return nil, err
	}
	buf.Write(p.Metadata)
	return buf.Bytes(), nil
}

// ParsePayload parses the bytes pushed by a candidate marker output. It
// fails with InvalidMarker if the magic doesn't match, the version isn't 1,
// or the quantity list / metadata length don't parse cleanly to the end of
// the pushed bytes.
func ParsePayload(pushed []byte) (*Payload, er.R) {
	if len(pushed) < len(Magic)+2 {
		return nil, InvalidMarker.New("payload too short", nil)
	}
	if !bytes.Equal(pushed[:len(Magic)], Magic[:]) {
		return nil, InvalidMarker.New("magic mismatch", nil)
	}
	r := bytes.NewReader(pushed[len(Magic):])

	var version uint16
	if err := binary.Read(r, binary.BigEndian, &version); err != nil {
		return nil, InvalidMarker.New("truncated version field", nil)
	}
	if version != Version {
		return nil, InvalidMarker.New("unsupported marker version", nil)
	}

	count, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return nil, InvalidMarker.New("malformed quantity count", nil)
	}
	// count is bounded by the remaining bytes in r: leb128.Decode consumes
	// at least one byte per call and fails as soon as r runs dry, so an
	// oversized count fails fast rather than causing a large allocation.
	if count > uint64(r.Len()) {
		return nil, InvalidMarker.New("implausible quantity count", nil)
	}
	quantities := make([]uint64, 0, count)
	for i := uint64(0); i < count; i++ {
		q, err := leb128.Decode(r)
		if err != nil {
			return nil, InvalidMarker.New("malformed asset quantity", err)
		}
		quantities = append(quantities, q)
	}

	metaLen, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return nil, InvalidMarker.New("malformed metadata length", nil)
	}
	if metaLen > uint64(r.Len()) {
		return nil, InvalidMarker.New("metadata length exceeds payload", nil)
	}
	metadata := make([]byte, metaLen)
	if _, ioErr := io.ReadFull(r, metadata); ioErr != nil {
		return nil, InvalidMarker.New("truncated metadata", nil)
	}

	if r.Len() != 0 {
		return nil, InvalidMarker.New("trailing bytes after metadata", nil)
	}

	return &Payload{Version: version, Quantities: quantities, Metadata: metadata}, nil
}
