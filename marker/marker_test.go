package marker

import (
	"testing"

	"github.com/pkt-cash/pktd/txscript/opcode"
	"github.com/pkt-cash/pktd/wire"
	"github.com/stretchr/testify/require"
)

func TestPayloadRoundTrip(t *testing.T) {
	p := &Payload{Version: 1, Quantities: []uint64{1500, 0, 700}, Metadata: []byte("hello")}
	raw, err := p.Serialize()
	require.Nil(t, err)

	got, err := ParsePayload(raw)
	require.Nil(t, err)
	require.Equal(t, p.Version, got.Version)
	require.Equal(t, p.Quantities, got.Quantities)
	require.Equal(t, p.Metadata, got.Metadata)
}

func TestPayloadEmpty(t *testing.T) {
	p := &Payload{Version: 1}
	raw, err := p.Serialize()
	require.Nil(t, err)
	got, err := ParsePayload(raw)
	require.Nil(t, err)
	require.Empty(t, got.Quantities)
	require.Empty(t, got.Metadata)
}

func TestParsePayloadBadMagic(t *testing.T) {
	_, err := ParsePayload([]byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x01})
	require.NotNil(t, err)
	require.True(t, InvalidMarker.Is(err))
}

func TestParsePayloadTrailingGarbage(t *testing.T) {
	p := &Payload{Version: 1, Quantities: []uint64{5}}
	raw, err := p.Serialize()
	require.Nil(t, err)
	raw = append(raw, 0xff)
	_, err = ParsePayload(raw)
	require.NotNil(t, err)
	require.True(t, InvalidMarker.Is(err))
}

func TestExtractPushDirect(t *testing.T) {
	payload := []byte("hi")
	script := append([]byte{opcode.OP_RETURN, byte(len(payload))}, payload...)
	got, ok := ExtractPush(script)
	require.True(t, ok)
	require.Equal(t, payload, got)
}

func TestExtractPushNotOpReturn(t *testing.T) {
	_, ok := ExtractPush([]byte{0x51, 0x02, 0x01, 0x02})
	require.False(t, ok)
}

func TestBuildAndFindMarker(t *testing.T) {
	p := &Payload{Version: 1, Quantities: []uint64{1500}, Metadata: nil}
	script, err := BuildScript(p)
	require.Nil(t, err)

	tx := wire.NewMsgTx(1)
	tx.AddTxOut(wire.NewTxOut(600, []byte{0x76, 0xa9}))
	tx.AddTxOut(wire.NewTxOut(0, script))
	tx.AddTxOut(wire.NewTxOut(1000, []byte{0x76, 0xa9}))

	idx, got, diag, ok := FindMarker(tx)
	require.True(t, ok)
	require.Equal(t, 1, idx)
	require.Empty(t, diag)
	require.Equal(t, []uint64{1500}, got.Quantities)
}

func TestFindMarkerNoMarker(t *testing.T) {
	hello := []byte("hello")
	opReturnPush := append([]byte{opcode.OP_RETURN, byte(len(hello))}, hello...)

	tx := wire.NewMsgTx(1)
	tx.AddTxOut(wire.NewTxOut(600, []byte{0x76, 0xa9}))
	tx.AddTxOut(wire.NewTxOut(0, opReturnPush))

	_, _, diag, ok := FindMarker(tx)
	require.False(t, ok)
	require.Empty(t, diag)
}

func TestFindMarkerSkipsStructurallyInvalidThenFindsNext(t *testing.T) {
	// First OP_RETURN carries the magic but a corrupt quantity count.
	bad := append(append([]byte{}, Magic[:]...), 0x00, 0x01, 0xff)
	badScript := append([]byte{opcode.OP_RETURN, byte(len(bad))}, bad...)

	good := &Payload{Version: 1, Quantities: []uint64{42}}
	goodScript, err := BuildScript(good)
	require.Nil(t, err)

	tx := wire.NewMsgTx(1)
	tx.AddTxOut(wire.NewTxOut(0, badScript))
	tx.AddTxOut(wire.NewTxOut(0, goodScript))
	tx.AddTxOut(wire.NewTxOut(600, []byte{0x76, 0xa9}))

	idx, got, diag, ok := FindMarker(tx)
	require.True(t, ok)
	require.Equal(t, 1, idx)
	require.NotEmpty(t, diag)
	require.Equal(t, []uint64{42}, got.Quantities)
}
