package txbuilder

import (
	"fmt"

	"github.com/pkt-cash/pktd/btcutil/er"
	"github.com/pkt-cash/pktd/pktlog/log"
	"github.com/pkt-cash/pktd/wire"

	"github.com/OpenAssets/openassets/color"
	"github.com/OpenAssets/openassets/marker"
)

// In a swap, a TransferParams or BitcoinTransferParams describes one party's
// contribution: spend that party's UnspentOutputs, deliver Amount to
// ToScript (the counterparty's address), return change to ChangeScript (the
// contributing party's own address). Each side funds its own dust and its
// share of fees from the satoshis carried by its own inputs.

// BtcAssetSwap atomically trades btcSide.Amount satoshis for
// assetSide.Amount units of assetID in one transaction: btcSide's inputs pay
// the bitcoin leg, assetSide's inputs pay the asset leg, each side's change
// returns to its own ChangeScript. fees is split as evenly as possible
// between the two legs.
func (b *Builder) BtcAssetSwap(btcSide BitcoinTransferParams, assetSide TransferParams, assetID color.AssetID, fees int64) (*wire.MsgTx, er.R) {
	feeAsset := fees / 2
	feeBtc := fees - feeAsset

	assetSelected, assetQty, assetSat := selectAsset(assetSide.UnspentOutputs, assetID, assetSide.Amount)
	if assetQty < assetSide.Amount {
		available := tallyAssetUnits(assetSide.UnspentOutputs, assetID)
		return nil, ErrInsufficientAssets.New(fmt.Sprintf(
			"asset leg requires %d units of asset %x, only %d available", assetSide.Amount, assetID, available), nil)
	}
	assetChangeQty := assetQty - assetSide.Amount
	assetOutSat := b.DustLimit
	if assetChangeQty > 0 {
		assetOutSat += b.DustLimit
	}
	assetTarget := assetOutSat + feeAsset
	if assetSat < assetTarget {
		return nil, ErrInsufficientFunds.New(fmt.Sprintf(
			"asset leg requires %d sat from its own inputs, only %d available", assetTarget, assetSat), nil)
	}
	assetBtcChange := assetSat - assetTarget

	if btcSide.Amount < b.DustLimit {
		return nil, ErrDustOutput.New(fmt.Sprintf(
			"bitcoin leg payment of %d sat is below the dust floor %d", btcSide.Amount, b.DustLimit), nil)
	}
	btcTarget := btcSide.Amount + feeBtc
	btcSelected, btcTotal := selectBitcoin(btcSide.UnspentOutputs, btcTarget, uncolored)
	if btcTotal < btcTarget {
		return nil, ErrInsufficientFunds.New(fmt.Sprintf(
			"bitcoin leg requires %d sat, only %d available", btcTarget, btcTotal), nil)
	}
	btcChange := btcTotal - btcTarget
	log.Debugf("btc/asset swap: asset leg %d sat/%d units, bitcoin leg %d sat", assetSat, assetQty, btcTotal)

	quantities := []uint64{assetSide.Amount}
	if assetChangeQty > 0 {
		quantities = append(quantities, assetChangeQty)
	}
	markerScript, err := marker.BuildScript(&marker.Payload{Version: marker.Version, Quantities: quantities})
	if err != nil {
		return nil, err
	}

	tx := wire.NewMsgTx(1)
	for _, s := range assetSelected {
		tx.AddTxIn(wire.NewTxIn(&s.Outpoint, nil, nil))
	}
	for _, s := range btcSelected {
		tx.AddTxIn(wire.NewTxIn(&s.Outpoint, nil, nil))
	}

	tx.AddTxOut(wire.NewTxOut(0, markerScript))
	tx.AddTxOut(wire.NewTxOut(b.DustLimit, assetSide.ToScript))
	if assetChangeQty > 0 {
		tx.AddTxOut(wire.NewTxOut(b.DustLimit, assetSide.ChangeScript))
	}
	tx.AddTxOut(wire.NewTxOut(btcSide.Amount, btcSide.ToScript))
	if btcChange >= b.DustLimit {
		tx.AddTxOut(wire.NewTxOut(btcChange, btcSide.ChangeScript))
	}
	if assetBtcChange >= b.DustLimit {
		tx.AddTxOut(wire.NewTxOut(assetBtcChange, assetSide.ChangeScript))
	}
	return tx, nil
}

// AssetAssetSwap atomically trades sideA.Amount units of assetA for
// sideB.Amount units of assetB in one transaction. Each side's own inputs
// fund its dust and its share of fees; neither side contributes bitcoin
// beyond what its asset inputs already carry.
func (b *Builder) AssetAssetSwap(sideA TransferParams, assetA color.AssetID, sideB TransferParams, assetB color.AssetID, fees int64) (*wire.MsgTx, er.R) {
	feeA := fees / 2
	feeB := fees - feeA

	selA, qtyA, satA := selectAsset(sideA.UnspentOutputs, assetA, sideA.Amount)
	if qtyA < sideA.Amount {
		available := tallyAssetUnits(sideA.UnspentOutputs, assetA)
		return nil, ErrInsufficientAssets.New(fmt.Sprintf(
			"side A requires %d units of asset %x, only %d available", sideA.Amount, assetA, available), nil)
	}
	changeQtyA := qtyA - sideA.Amount
	outSatA := b.DustLimit
	if changeQtyA > 0 {
		outSatA += b.DustLimit
	}
	targetA := outSatA + feeA
	if satA < targetA {
		return nil, ErrInsufficientFunds.New(fmt.Sprintf(
			"side A requires %d sat from its own inputs, only %d available", targetA, satA), nil)
	}
	btcChangeA := satA - targetA

	selB, qtyB, satB := selectAsset(sideB.UnspentOutputs, assetB, sideB.Amount)
	if qtyB < sideB.Amount {
		available := tallyAssetUnits(sideB.UnspentOutputs, assetB)
		return nil, ErrInsufficientAssets.New(fmt.Sprintf(
			"side B requires %d units of asset %x, only %d available", sideB.Amount, assetB, available), nil)
	}
	changeQtyB := qtyB - sideB.Amount
	outSatB := b.DustLimit
	if changeQtyB > 0 {
		outSatB += b.DustLimit
	}
	targetB := outSatB + feeB
	if satB < targetB {
		return nil, ErrInsufficientFunds.New(fmt.Sprintf(
			"side B requires %d sat from its own inputs, only %d available", targetB, satB), nil)
	}
	btcChangeB := satB - targetB
	log.Debugf("asset/asset swap: side A %d sat/%d units of %x, side B %d sat/%d units of %x", satA, qtyA, assetA, satB, qtyB, assetB)

	quantities := []uint64{sideA.Amount}
	if changeQtyA > 0 {
		quantities = append(quantities, changeQtyA)
	}
	quantities = append(quantities, sideB.Amount)
	if changeQtyB > 0 {
		quantities = append(quantities, changeQtyB)
	}
	markerScript, err := marker.BuildScript(&marker.Payload{Version: marker.Version, Quantities: quantities})
	if err != nil {
		return nil, err
	}

	tx := wire.NewMsgTx(1)
	for _, s := range selA {
		tx.AddTxIn(wire.NewTxIn(&s.Outpoint, nil, nil))
	}
	for _, s := range selB {
		tx.AddTxIn(wire.NewTxIn(&s.Outpoint, nil, nil))
	}

	tx.AddTxOut(wire.NewTxOut(0, markerScript))
	tx.AddTxOut(wire.NewTxOut(b.DustLimit, sideA.ToScript))
	if changeQtyA > 0 {
		tx.AddTxOut(wire.NewTxOut(b.DustLimit, sideA.ChangeScript))
	}
	tx.AddTxOut(wire.NewTxOut(b.DustLimit, sideB.ToScript))
	if changeQtyB > 0 {
		tx.AddTxOut(wire.NewTxOut(b.DustLimit, sideB.ChangeScript))
	}
	if btcChangeA >= b.DustLimit {
		tx.AddTxOut(wire.NewTxOut(btcChangeA, sideA.ChangeScript))
	}
	if btcChangeB >= b.DustLimit {
		tx.AddTxOut(wire.NewTxOut(btcChangeB, sideB.ChangeScript))
	}
	return tx, nil
}
