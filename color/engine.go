package color

import (
	"context"

	"github.com/pkt-cash/pktd/btcutil/er"
	"github.com/pkt-cash/pktd/chaincfg/chainhash"
	"github.com/pkt-cash/pktd/pktlog/log"
	"github.com/pkt-cash/pktd/wire"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/OpenAssets/openassets/marker"
)

// TransactionFetcher resolves a transaction hash to its transaction, the
// engine's only way of walking the ancestor DAG. Coloring an output always
// requires coloring the transaction that produced it, which in turn requires
// resolving the previous outputs its own inputs spend, recursively back
// through the chain of ancestors.
type TransactionFetcher interface {
	FetchTransaction(ctx context.Context, hash chainhash.Hash) (*wire.MsgTx, er.R)
}

// Engine is the recursive Open Assets coloring interpreter. It is safe for
// concurrent use: concurrent GetOutput calls for the same outpoint are
// coalesced through group, and every output of a colored transaction is
// stored in cache, so later calls are answered from the cache. Concurrent
// calls for different outputs of the same transaction are not coalesced:
// each of them colors that transaction. With NopCache nothing is stored and
// every call colors again.
type Engine struct {
	fetch TransactionFetcher
	cache OutputCache
	group singleflight.Group
}

// NewEngine builds an Engine that fetches ancestor transactions via fetch and
// memoizes results in cache. A nil cache is replaced with NopCache.
func NewEngine(fetch TransactionFetcher, cache OutputCache) *Engine {
	if cache == nil {
		cache = NopCache{}
	}
	return &Engine{fetch: fetch, cache: cache}
}

// GetOutput returns the colored attributes of output index of the
// transaction identified by hash, fetching and coloring that transaction (and
// recursively, its ancestors) as needed.
func (e *Engine) GetOutput(ctx context.Context, hash chainhash.Hash, index uint32) (*ColoredOutput, er.R) {
	op := wire.OutPoint{Hash: hash, Index: index}
	if out, found, err := e.cache.Get(ctx, op); err != nil {
		return nil, err
	} else if found {
		return out, nil
	}

	out, err := coalesce(&e.group, op, func() (*ColoredOutput, er.R) {
		// Re-check: another caller may have finished the same fetch+color
		// while this one waited to enter coalesce.
		if cached, found, err := e.cache.Get(ctx, op); err != nil {
			return nil, err
		} else if found {
			return cached, nil
		}

		tx, fetchErr := e.fetch.FetchTransaction(ctx, hash)
		if fetchErr != nil {
			return nil, fetchErr
		}
		if tx == nil {
			return nil, ErrTransactionNotFound.New("fetcher returned no transaction for "+hash.String(), nil)
		}
		if int(index) >= len(tx.TxOut) {
			return nil, ErrTransactionNotFound.New("output index out of range for "+hash.String(), nil)
		}

		outputs, _, colorErr := e.ColorTransaction(ctx, tx)
		if colorErr != nil {
			return nil, colorErr
		}
		for i, o := range outputs {
			opI := wire.OutPoint{Hash: hash, Index: uint32(i)}
			if putErr := e.cache.Put(ctx, opI, o); putErr != nil {
				return nil, putErr
			}
		}
		return outputs[index], nil
	})
	return out, err
}

// assetUnit is one chunk of the "tape" of colored input units a
// transaction's transfer outputs draw from.
type assetUnit struct {
	assetID  AssetID
	quantity uint64
}

// ColorTransaction colors every output of tx. diag collects non-fatal
// diagnostics (e.g. structurally invalid marker candidates that were
// skipped); err is non-nil only for a fatal failure to fetch an ancestor
// transaction.
func (e *Engine) ColorTransaction(ctx context.Context, tx *wire.MsgTx) ([]*ColoredOutput, []er.R, er.R) {
	n := len(tx.TxOut)

	allUncolored := func() []*ColoredOutput {
		out := make([]*ColoredOutput, n)
		for i, o := range tx.TxOut {
			out[i] = &ColoredOutput{Script: o.PkScript, Value: o.Value, Category: Uncolored}
		}
		return out
	}

	k, payload, diag, ok := marker.FindMarker(tx)
	for _, d := range diag {
		log.Debugf("skipped OP_RETURN candidate while scanning %s for a marker: %s", tx.TxHash(), d)
	}
	if !ok {
		return allUncolored(), diag, nil
	}
	log.Tracef("found marker at output %d of %s with %d quantities", k, tx.TxHash(), len(payload.Quantities))

	issuanceCount := k
	transferCount := n - 1 - k

	// quantityAt maps an output position (everything but k) to its slot in
	// payload.Quantities: positions before the marker occupy slots
	// 0..k-1 directly; positions after the marker are offset back by one
	// to account for the marker itself not having a slot.
	quantityAt := func(pos int) (uint64, bool) {
		var slot int
		if pos < k {
			slot = pos
		} else {
			slot = pos - 1
		}
		if slot >= len(payload.Quantities) {
			return 0, false
		}
		return payload.Quantities[slot], true
	}

	var issuanceAssetID AssetID
	if issuanceCount > 0 || transferCount > 0 {
		if len(tx.TxIn) == 0 {
			// No input to derive an issuance id from and nothing can be
			// colored; the marker is meaningless.
			return allUncolored(), diag, nil
		}
	}

	// Color every input's previous output concurrently: issuance needs only
	// input 0's script, transfer coloring needs all of them.
	inputColors := make([]*ColoredOutput, len(tx.TxIn))
	if len(tx.TxIn) > 0 && (issuanceCount > 0 || transferCount > 0) {
		g, gctx := errgroup.WithContext(ctx)
		for i, txin := range tx.TxIn {
			i, txin := i, txin
			if transferCount == 0 && i != 0 {
				// Issuance-only transactions only need input 0's prevout
				// script, not a full recursive color of every input.
				continue
			}
			g.Go(func() error {
				c, err := e.GetOutput(gctx, txin.PreviousOutPoint.Hash, txin.PreviousOutPoint.Index)
				if err != nil {
					return err
				}
				inputColors[i] = c
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			// Every g.Go closure above only ever returns an er.R (never a
			// bare error), so this assertion cannot fail in practice.
			if r, isR := err.(er.R); isR {
				return nil, diag, r
			}
			return nil, diag, er.Errorf("%s", err)
		}
	}

	outputs := make([]*ColoredOutput, n)

	// Marker output itself carries metadata but no asset.
	outputs[k] = &ColoredOutput{
		Script:   tx.TxOut[k].PkScript,
		Value:    tx.TxOut[k].Value,
		Category: Uncolored,
		Metadata: payload.Metadata,
	}

	if issuanceCount > 0 {
		issuanceAssetID = DeriveAssetID(inputColors[0].Script)
	}
	for i := 0; i < k; i++ {
		qty, _ := quantityAt(i)
		co := &ColoredOutput{Script: tx.TxOut[i].PkScript, Value: tx.TxOut[i].Value, Category: Issuance}
		if qty > 0 {
			id := issuanceAssetID
			co.AssetID = &id
			co.Quantity = qty
		}
		outputs[i] = co
	}

	if transferCount == 0 {
		return outputs, diag, nil
	}

	// Build the tape of colored input units, dropping uncolored or
	// zero-quantity inputs.
	var tape []assetUnit
	for _, c := range inputColors {
		if c == nil || c.AssetID == nil || c.Quantity == 0 {
			continue
		}
		tape = append(tape, assetUnit{assetID: *c.AssetID, quantity: c.Quantity})
	}

	tapeIdx := 0
	violated := false
	for i := k + 1; i < n && !violated; i++ {
		qty, has := quantityAt(i)
		if !has {
			outputs[i] = &ColoredOutput{Script: tx.TxOut[i].PkScript, Value: tx.TxOut[i].Value, Category: Uncolored}
			continue
		}
		if qty == 0 {
			outputs[i] = &ColoredOutput{Script: tx.TxOut[i].PkScript, Value: tx.TxOut[i].Value, Category: Transfer}
			continue
		}

		var consumedAsset AssetID
		haveAsset := false
		remaining := qty
		for remaining > 0 {
			if tapeIdx >= len(tape) {
				violated = true
				break
			}
			chunk := &tape[tapeIdx]
			if !haveAsset {
				consumedAsset = chunk.assetID
				haveAsset = true
			} else if chunk.assetID != consumedAsset {
				violated = true
				break
			}
			take := remaining
			if chunk.quantity < take {
				take = chunk.quantity
			}
			chunk.quantity -= take
			remaining -= take
			if chunk.quantity == 0 {
				tapeIdx++
			}
		}
		if violated {
			break
		}
		id := consumedAsset
		outputs[i] = &ColoredOutput{
			Script:   tx.TxOut[i].PkScript,
			Value:    tx.TxOut[i].Value,
			Category: Transfer,
			AssetID:  &id,
			Quantity: qty,
		}
	}

	if violated {
		// Insufficient units or an asset-unit grouping violation: the
		// marker is invalid and the whole transaction reverts to
		// uncolored.
		log.Warnf("downgrading %s to uncolored: transfer demand exceeds available input units "+
			"or spans multiple assets", tx.TxHash())
		return allUncolored(), append(diag, marker.InvalidMarker.New(
			"transfer demand exceeds available input units or spans multiple assets", nil)), nil
	}

	return outputs, diag, nil
}
