package txbuilder

import (
	"bytes"

	"github.com/emirpasic/gods/trees/redblacktree"

	"github.com/OpenAssets/openassets/color"
)

// selectBitcoin greedily accumulates outputs satisfying accept, in the
// caller's own iteration order, until the running satoshi total reaches
// target or the candidates are exhausted. Mirrors the accumulate-until-met
// loop of pktwallet's makeInputSource: no sorting, no fee optimization,
// first candidates win.
func selectBitcoin(candidates []SpendableOutput, target int64, accept func(SpendableOutput) bool) ([]SpendableOutput, int64) {
	var selected []SpendableOutput
	var total int64
	for _, c := range candidates {
		if total >= target {
			break
		}
		if accept != nil && !accept(c) {
			continue
		}
		selected = append(selected, c)
		total += c.Out.Value
	}
	return selected, total
}

// selectAsset greedily accumulates outputs colored with assetID, in
// iteration order, until the running quantity reaches target or the
// candidates are exhausted. It also reports the satoshi value carried by the
// selected outputs, since those satoshis travel with the asset and fund part
// of the resulting transaction's outputs.
func selectAsset(candidates []SpendableOutput, assetID color.AssetID, target uint64) (selected []SpendableOutput, quantity uint64, satoshis int64) {
	for _, c := range candidates {
		if quantity >= target {
			break
		}
		if c.Out.AssetID == nil || *c.Out.AssetID != assetID || c.Out.Quantity == 0 {
			continue
		}
		selected = append(selected, c)
		quantity += c.Out.Quantity
		satoshis += c.Out.Value
	}
	return selected, quantity, satoshis
}

func uncolored(o SpendableOutput) bool {
	return o.Out.AssetID == nil
}

func bySameScript(script []byte) func(SpendableOutput) bool {
	return func(o SpendableOutput) bool {
		return bytes.Equal(o.Out.Script, script)
	}
}

func compareAssetIDs(a, b interface{}) int {
	aa, bb := a.(color.AssetID), b.(color.AssetID)
	return bytes.Compare(aa[:], bb[:])
}

// tallyAssetUnits sums quantity per asset id across candidates, the same
// keyed-running-total bookkeeping pktwallet's findEligibleOutputs keeps in a
// redblacktree while scanning the UTXO set. Used only to report how many
// units of an asset were actually available when a selection comes up
// short, not to influence selection order.
func tallyAssetUnits(candidates []SpendableOutput, assetID color.AssetID) uint64 {
	tree := redblacktree.NewWith(compareAssetIDs)
	for _, c := range candidates {
		if c.Out.AssetID == nil || c.Out.Quantity == 0 {
			continue
		}
		cur := uint64(0)
		if v, found := tree.Get(*c.Out.AssetID); found {
			cur = v.(uint64)
		}
		tree.Put(*c.Out.AssetID, cur+c.Out.Quantity)
	}
	if v, found := tree.Get(assetID); found {
		return v.(uint64)
	}
	return 0
}
