package marker

import (
	"encoding/binary"

	"github.com/pkt-cash/pktd/btcutil/er"
	"github.com/pkt-cash/pktd/txscript/opcode"
	"github.com/pkt-cash/pktd/txscript/scriptbuilder"
	"github.com/pkt-cash/pktd/wire"
)

// ExtractPush recognizes a script of the shape OP_RETURN ‖ push-of(payload)
// and returns the pushed bytes. It accepts a direct push (length 1-75),
// OP_PUSHDATA1, OP_PUSHDATA2, or OP_PUSHDATA4. Any other script shape,
// including OP_RETURN with no push or trailing opcodes after the push, is
// rejected.
func ExtractPush(script []byte) ([]byte, bool) {
	if len(script) < 2 || script[0] != opcode.OP_RETURN {
		return nil, false
	}
	rest := script[1:]
	op := rest[0]

	switch {
	case op >= 1 && op <= 75:
		length := int(op)
		if len(rest) != 1+length {
			return nil, false
		}
		return rest[1:], true

	case op == opcode.OP_PUSHDATA1:
		if len(rest) < 2 {
			return nil, false
		}
		length := int(rest[1])
		if len(rest) != 2+length {
			return nil, false
		}
		return rest[2:], true

	case op == opcode.OP_PUSHDATA2:
		if len(rest) < 3 {
			return nil, false
		}
		length := int(binary.LittleEndian.Uint16(rest[1:3]))
		if len(rest) != 3+length {
			return nil, false
		}
		return rest[3:], true

	case op == opcode.OP_PUSHDATA4:
		if len(rest) < 5 {
			return nil, false
		}
		length := int(binary.LittleEndian.Uint32(rest[1:5]))
		if len(rest) != 5+length {
			return nil, false
		}
		return rest[5:], true

	default:
		return nil, false
	}
}

// BuildScript constructs the OP_RETURN marker script carrying p's serialized
// payload.
func BuildScript(p *Payload) ([]byte, er.R) {
	payload, err := p.Serialize()
	if err != nil {
		return nil, err
	}
	return scriptbuilder.NewScriptBuilder().
		AddOp(opcode.OP_RETURN).
		AddData(payload).
		Script()
}

// FindMarker scans tx's outputs left to right and returns the first one
// whose script is an OP_RETURN push matching the Open Assets magic and
// parsing as a well-formed payload: the first output whose pushed payload
// parses successfully is the marker. Outputs whose push matches the magic
// but fails to parse are not fatal; their parse errors are collected into
// diag for diagnostic use and scanning continues. If the first well-formed
// payload lists more quantities than tx has non-marker outputs, tx has no
// marker: ok is false and the reason is appended to diag.
func FindMarker(tx *wire.MsgTx) (index int, payload *Payload, diag []er.R, ok bool) {
	for i, out := range tx.TxOut {
		pushed, isPush := ExtractPush(out.PkScript)
		if !isPush || len(pushed) < len(Magic) {
			continue
		}
		isMagic := true
		for j := range Magic {
			if pushed[j] != Magic[j] {
				isMagic = false
				break
			}
		}
		if !isMagic {
			continue
		}
		p, err := ParsePayload(pushed)
		if err != nil {
			diag = append(diag, err)
			continue
		}
		// The quantity list has one slot per non-marker output; a longer
		// list invalidates the marker and the transaction is treated as
		// having no marker, so scanning stops here.
		if len(p.Quantities) > len(tx.TxOut)-1 {
			diag = append(diag, InvalidMarker.New("quantity list longer than non-marker output count", nil))
			return 0, nil, diag, false
		}
		return i, p, diag, true
	}
	return 0, nil, diag, false
}
