package color

import (
	"context"
	"testing"

	"github.com/pkt-cash/pktd/btcutil/er"
	"github.com/pkt-cash/pktd/chaincfg/chainhash"
	"github.com/pkt-cash/pktd/wire"
	"github.com/stretchr/testify/require"

	"github.com/OpenAssets/openassets/marker"
)

type fakeFetcher struct {
	txs map[chainhash.Hash]*wire.MsgTx
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{txs: make(map[chainhash.Hash]*wire.MsgTx)}
}

func (f *fakeFetcher) add(tx *wire.MsgTx) chainhash.Hash {
	h := tx.TxHash()
	f.txs[h] = tx
	return h
}

func (f *fakeFetcher) FetchTransaction(_ context.Context, hash chainhash.Hash) (*wire.MsgTx, er.R) {
	tx, ok := f.txs[hash]
	if !ok {
		return nil, ErrTransactionNotFound.New("no such transaction in test fixture", nil)
	}
	return tx, nil
}

func p2pkh(tag byte) []byte {
	return []byte{0x76, 0xa9, tag, 0x88, 0xac}
}

func markerOut(t *testing.T, quantities []uint64) *wire.TxOut {
	script, err := marker.BuildScript(&marker.Payload{Version: 1, Quantities: quantities})
	require.Nil(t, err)
	return wire.NewTxOut(0, script)
}

func spendTx(prev chainhash.Hash, index uint32) *wire.MsgTx {
	tx := wire.NewMsgTx(1)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&prev, index), nil, nil))
	return tx
}

func TestColorTransactionNoMarker(t *testing.T) {
	fetcher := newFakeFetcher()
	engine := NewEngine(fetcher, NewMemoryCache())

	tx := wire.NewMsgTx(1)
	opReturn := append([]byte{0x6a, 0x05}, []byte("hello")...)
	tx.AddTxOut(wire.NewTxOut(0, opReturn))
	tx.AddTxOut(wire.NewTxOut(600, p2pkh(1)))

	outputs, diag, err := engine.ColorTransaction(context.Background(), tx)
	require.Nil(t, err)
	require.Empty(t, diag)
	for _, o := range outputs {
		require.Equal(t, Uncolored, o.Category)
		require.Nil(t, o.AssetID)
		require.Zero(t, o.Quantity)
	}
}

func TestColorTransactionSimpleIssuance(t *testing.T) {
	fetcher := newFakeFetcher()

	issuanceScript := p2pkh(0xaa)
	prevTx := wire.NewMsgTx(1)
	prevTx.AddTxOut(wire.NewTxOut(50000, issuanceScript))
	prevHash := fetcher.add(prevTx)

	tx := spendTx(prevHash, 0)
	tx.AddTxOut(wire.NewTxOut(600, issuanceScript))
	tx.AddTxOut(markerOut(t, []uint64{1500}))
	tx.AddTxOut(wire.NewTxOut(49000, issuanceScript))
	fetcher.add(tx)

	engine := NewEngine(fetcher, NewMemoryCache())
	outputs, diag, err := engine.ColorTransaction(context.Background(), tx)
	require.Nil(t, err)
	require.Empty(t, diag)

	wantID := DeriveAssetID(issuanceScript)
	require.Equal(t, Issuance, outputs[0].Category)
	require.NotNil(t, outputs[0].AssetID)
	require.Equal(t, wantID, *outputs[0].AssetID)
	require.Equal(t, uint64(1500), outputs[0].Quantity)

	require.Equal(t, Uncolored, outputs[1].Category)

	require.Equal(t, Uncolored, outputs[2].Category)
	require.Nil(t, outputs[2].AssetID)
}

func TestColorTransactionTransferConservation(t *testing.T) {
	fetcher := newFakeFetcher()
	issuanceScript := p2pkh(0xbb)

	prevTx := wire.NewMsgTx(1)
	prevTx.AddTxOut(wire.NewTxOut(10000, issuanceScript))
	prevHash := fetcher.add(prevTx)

	issueTx := spendTx(prevHash, 0)
	issueTx.AddTxOut(wire.NewTxOut(600, issuanceScript))
	issueTx.AddTxOut(markerOut(t, []uint64{1000}))
	issueHash := fetcher.add(issueTx)

	issueTx2 := wire.NewMsgTx(1)
	issueTx2.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&prevHash, 0), nil, nil))
	issueTx2.AddTxOut(wire.NewTxOut(600, issuanceScript))
	issueTx2.AddTxOut(markerOut(t, []uint64{500}))
	issueHash2 := fetcher.add(issueTx2)

	transferTx := wire.NewMsgTx(1)
	transferTx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&issueHash, 0), nil, nil))
	transferTx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&issueHash2, 0), nil, nil))
	transferTx.AddTxOut(markerOut(t, []uint64{700, 800}))
	transferTx.AddTxOut(wire.NewTxOut(600, p2pkh(1)))
	transferTx.AddTxOut(wire.NewTxOut(600, p2pkh(2)))

	engine := NewEngine(fetcher, NewMemoryCache())
	outputs, diag, err := engine.ColorTransaction(context.Background(), transferTx)
	require.Nil(t, err)
	require.Empty(t, diag)

	wantID := DeriveAssetID(issuanceScript)
	require.Equal(t, Transfer, outputs[1].Category)
	require.NotNil(t, outputs[1].AssetID)
	require.Equal(t, wantID, *outputs[1].AssetID)
	require.Equal(t, uint64(700), outputs[1].Quantity)

	require.Equal(t, Transfer, outputs[2].Category)
	require.NotNil(t, outputs[2].AssetID)
	require.Equal(t, wantID, *outputs[2].AssetID)
	require.Equal(t, uint64(800), outputs[2].Quantity)
}

func TestColorTransactionGroupingViolation(t *testing.T) {
	fetcher := newFakeFetcher()
	scriptA := p2pkh(0xa1)
	scriptB := p2pkh(0xb2)

	prevTxA := wire.NewMsgTx(1)
	prevTxA.AddTxOut(wire.NewTxOut(10000, scriptA))
	prevHashA := fetcher.add(prevTxA)

	prevTxB := wire.NewMsgTx(1)
	prevTxB.AddTxOut(wire.NewTxOut(10000, scriptB))
	prevHashB := fetcher.add(prevTxB)

	issueA := spendTx(prevHashA, 0)
	issueA.AddTxOut(wire.NewTxOut(600, scriptA))
	issueA.AddTxOut(markerOut(t, []uint64{100}))
	issueHashA := fetcher.add(issueA)

	issueB := spendTx(prevHashB, 0)
	issueB.AddTxOut(wire.NewTxOut(600, scriptB))
	issueB.AddTxOut(markerOut(t, []uint64{100}))
	issueHashB := fetcher.add(issueB)

	transferTx := wire.NewMsgTx(1)
	transferTx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&issueHashA, 0), nil, nil))
	transferTx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&issueHashB, 0), nil, nil))
	transferTx.AddTxOut(markerOut(t, []uint64{150}))
	transferTx.AddTxOut(wire.NewTxOut(600, p2pkh(9)))

	engine := NewEngine(fetcher, NewMemoryCache())
	outputs, diag, err := engine.ColorTransaction(context.Background(), transferTx)
	require.Nil(t, err)
	require.NotEmpty(t, diag)
	for _, o := range outputs {
		require.Equal(t, Uncolored, o.Category)
		require.Nil(t, o.AssetID)
	}
}

func TestGetOutputCachesAcrossCalls(t *testing.T) {
	fetcher := newFakeFetcher()
	issuanceScript := p2pkh(0xcc)

	prevTx := wire.NewMsgTx(1)
	prevTx.AddTxOut(wire.NewTxOut(10000, issuanceScript))
	prevHash := fetcher.add(prevTx)

	issueTx := spendTx(prevHash, 0)
	issueTx.AddTxOut(wire.NewTxOut(600, issuanceScript))
	issueTx.AddTxOut(markerOut(t, []uint64{42}))
	issueHash := fetcher.add(issueTx)

	cache := NewMemoryCache()
	engine := NewEngine(fetcher, cache)

	out, err := engine.GetOutput(context.Background(), issueHash, 0)
	require.Nil(t, err)
	require.Equal(t, uint64(42), out.Quantity)

	cached, found, cacheErr := cache.Get(context.Background(), wire.OutPoint{Hash: issueHash, Index: 0})
	require.Nil(t, cacheErr)
	require.True(t, found)
	require.Equal(t, out, cached)
}
