// Package txbuilder constructs unsigned Bitcoin transactions that respect
// both Bitcoin's and Open Assets' conservation rules: issuance, transfer,
// and swap of colored outputs.
package txbuilder

import (
	"github.com/pkt-cash/pktd/wire"

	"github.com/OpenAssets/openassets/color"
)

// SpendableOutput pairs an outpoint with the coloring already computed for
// it, the only information the builder needs to decide whether an input
// qualifies for a given operation.
type SpendableOutput struct {
	Outpoint wire.OutPoint
	Out      color.ColoredOutput
}

// DefaultDustLimit is the minimum satoshi value any non-marker output may
// carry.
const DefaultDustLimit = int64(600)

// Builder assembles unsigned transactions. It holds no state beyond its
// configured dust floor and is safe for concurrent use.
type Builder struct {
	DustLimit int64
}

// NewBuilder returns a Builder enforcing dustLimit on every non-marker
// output; dustLimit <= 0 is replaced with DefaultDustLimit.
func NewBuilder(dustLimit int64) *Builder {
	if dustLimit <= 0 {
		dustLimit = DefaultDustLimit
	}
	return &Builder{DustLimit: dustLimit}
}

// IssuanceParams describes an asset issuance: spend unspent outputs carrying
// IssuanceScript (the script whose hash becomes the asset id) to mint Amount
// units at ToScript, with Bitcoin change returned to ChangeScript.
type IssuanceParams struct {
	UnspentOutputs []SpendableOutput
	IssuanceScript []byte
	ToScript       []byte
	ChangeScript   []byte
	Amount         uint64
}

// TransferParams describes one leg of an asset transfer: spend colored
// UnspentOutputs to deliver Amount units to ToScript, with any leftover
// units of the same asset returned to ChangeScript. AssetID records the
// leg's asset; the Builder methods do not read it and select units by the
// asset id passed to them as a separate argument.
type TransferParams struct {
	UnspentOutputs []SpendableOutput
	AssetID        color.AssetID
	ToScript       []byte
	ChangeScript   []byte
	Amount         uint64
}

// BitcoinTransferParams describes a pure-bitcoin leg: spend uncolored
// UnspentOutputs to pay Amount satoshis to ToScript, with change returned to
// ChangeScript.
type BitcoinTransferParams struct {
	UnspentOutputs []SpendableOutput
	ToScript       []byte
	ChangeScript   []byte
	Amount         int64
}
