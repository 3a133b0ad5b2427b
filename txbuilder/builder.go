package txbuilder

import (
	"fmt"

	"github.com/pkt-cash/pktd/btcutil/er"
	"github.com/pkt-cash/pktd/pktlog/log"
	"github.com/pkt-cash/pktd/wire"

	"github.com/OpenAssets/openassets/color"
	"github.com/OpenAssets/openassets/marker"
)

// Issue builds an unsigned issuance transaction: one issuance output of
// p.Amount units at p.ToScript, a marker output carrying [p.Amount] and
// metadata, and Bitcoin change to p.ChangeScript. Inputs are drawn only from
// p.UnspentOutputs whose script equals p.IssuanceScript, since that script
// is what the resulting asset id is bound to.
func (b *Builder) Issue(p IssuanceParams, metadata []byte, fees int64) (*wire.MsgTx, er.R) {
	target := b.DustLimit + fees
	selected, total := selectBitcoin(p.UnspentOutputs, target, bySameScript(p.IssuanceScript))
	log.Debugf("issuance selected %d inputs totaling %d sat against a target of %d", len(selected), total, target)
	if total < target {
		return nil, ErrInsufficientFunds.New(fmt.Sprintf(
			"issuance requires %d sat from script, only %d available", target, total), nil)
	}

	markerScript, err := marker.BuildScript(&marker.Payload{
		Version:    marker.Version,
		Quantities: []uint64{p.Amount},
		Metadata:   metadata,
	})
	if err != nil {
		return nil, err
	}

	tx := wire.NewMsgTx(1)
	for _, s := range selected {
		tx.AddTxIn(wire.NewTxIn(&s.Outpoint, nil, nil))
	}
	tx.AddTxOut(wire.NewTxOut(b.DustLimit, p.ToScript))
	tx.AddTxOut(wire.NewTxOut(0, markerScript))
	if change := total - target; change >= b.DustLimit {
		tx.AddTxOut(wire.NewTxOut(change, p.ChangeScript))
	}
	return tx, nil
}

// TransferAssets builds an unsigned transfer of p.Amount units of assetID to
// p.ToScript, with asset change to p.ChangeScript. The satoshis carried by
// the selected asset inputs fund the transaction's outputs and fees first;
// btc, if non-nil, supplies additional uncolored inputs when those satoshis
// fall short, with any remainder returned as Bitcoin change to
// btc.ChangeScript.
func (b *Builder) TransferAssets(assetID color.AssetID, p TransferParams, btc *BitcoinTransferParams, fees int64) (*wire.MsgTx, er.R) {
	assetSelected, assetQty, assetSat := selectAsset(p.UnspentOutputs, assetID, p.Amount)
	if assetQty < p.Amount {
		available := tallyAssetUnits(p.UnspentOutputs, assetID)
		return nil, ErrInsufficientAssets.New(fmt.Sprintf(
			"transfer requires %d units of asset %x, only %d available", p.Amount, assetID, available), nil)
	}
	log.Debugf("transfer of asset %x selected %d inputs carrying %d units and %d sat", assetID, len(assetSelected), assetQty, assetSat)
	assetChangeQty := assetQty - p.Amount

	outputsSat := b.DustLimit
	if assetChangeQty > 0 {
		outputsSat += b.DustLimit
	}
	target := outputsSat + fees

	var btcSelected []SpendableOutput
	var btcTotal int64
	if assetSat < target {
		need := target - assetSat
		if btc != nil {
			btcSelected, btcTotal = selectBitcoin(btc.UnspentOutputs, need, uncolored)
		}
		log.Debugf("transfer short %d sat from asset inputs, drew %d additional uncolored inputs totaling %d sat", need, len(btcSelected), btcTotal)
		if assetSat+btcTotal < target {
			return nil, ErrInsufficientFunds.New(fmt.Sprintf(
				"transfer requires %d sat, only %d available", target, assetSat+btcTotal), nil)
		}
	}

	quantities := []uint64{p.Amount}
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
	tx.AddTxOut(wire.NewTxOut(b.DustLimit, p.ToScript))
	if assetChangeQty > 0 {
		tx.AddTxOut(wire.NewTxOut(b.DustLimit, p.ChangeScript))
	}
	if change := assetSat + btcTotal - target; btc != nil && change >= b.DustLimit {
		tx.AddTxOut(wire.NewTxOut(change, btc.ChangeScript))
	}
	return tx, nil
}

// TransferBitcoin builds a pure Bitcoin payment: p.Amount satoshis to
// p.ToScript with change to p.ChangeScript, drawing only on uncolored
// inputs from p.UnspentOutputs. No marker is emitted; there is nothing to
// color.
func (b *Builder) TransferBitcoin(p BitcoinTransferParams, fees int64) (*wire.MsgTx, er.R) {
	if p.Amount < b.DustLimit {
		return nil, ErrDustOutput.New(fmt.Sprintf(
			"payment of %d sat is below the dust floor %d", p.Amount, b.DustLimit), nil)
	}
	target := p.Amount + fees
	selected, total := selectBitcoin(p.UnspentOutputs, target, uncolored)
	log.Debugf("bitcoin payment selected %d inputs totaling %d sat against a target of %d", len(selected), total, target)
	if total < target {
		return nil, ErrInsufficientFunds.New(fmt.Sprintf(
			"payment requires %d sat, only %d available", target, total), nil)
	}

	tx := wire.NewMsgTx(1)
	for _, s := range selected {
		tx.AddTxIn(wire.NewTxIn(&s.Outpoint, nil, nil))
	}
	tx.AddTxOut(wire.NewTxOut(p.Amount, p.ToScript))
	if change := total - target; change >= b.DustLimit {
		tx.AddTxOut(wire.NewTxOut(change, p.ChangeScript))
	}
	return tx, nil
}
