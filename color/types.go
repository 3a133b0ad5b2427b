// Package color implements the Open Assets coloring engine: a recursive
// transaction interpreter that assigns an asset id and quantity to every
// output of a Bitcoin transaction.
package color

import (
	"crypto/sha256"

	"golang.org/x/crypto/ripemd160"
)

// AssetID is the 20-byte identifier of an Open Assets asset: the ripemd160
// of the sha256 of the script of the first input of the transaction that
// issued it.
type AssetID [20]byte

// DeriveAssetID computes the asset id bound to issuanceScript, the script of
// the first input's previous output in an issuing transaction.
func DeriveAssetID(issuanceScript []byte) AssetID {
	shaSum := sha256.Sum256(issuanceScript)
	ripemd := ripemd160.New()
	ripemd.Write(shaSum[:])
	var id AssetID
	copy(id[:], ripemd.Sum(nil))
	return id
}

// OutputCategory classifies an output relative to the marker output of its
// transaction.
type OutputCategory int

const (
	// Uncolored outputs carry no asset: either the transaction has no
	// marker, the output is the marker itself, or it is a transfer-region
	// output beyond the marker's quantity list.
	Uncolored OutputCategory = iota
	// Issuance outputs sit before the marker and mint new units of the
	// asset derived from the transaction's first input.
	Issuance
	// Transfer outputs sit after the marker and move units already
	// present among the transaction's colored inputs.
	Transfer
)

func (c OutputCategory) String() string {
	switch c {
	case Uncolored:
		return "uncolored"
	case Issuance:
		return "issuance"
	case Transfer:
		return "transfer"
	default:
		return "unknown"
	}
}

// ColoredOutput is a Bitcoin output augmented with its Open Assets coloring.
// AssetID is nil when the output is uncolored or is an issuance output with
// zero quantity. Quantity is 0 iff AssetID is nil.
type ColoredOutput struct {
	Script   []byte
	Value    int64
	AssetID  *AssetID
	Quantity uint64
	Category OutputCategory
	Metadata []byte
}
