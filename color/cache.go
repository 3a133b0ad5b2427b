package color

import (
	"bytes"
	"context"
	"strconv"
	"sync"

	"github.com/pkt-cash/pktd/btcutil/er"
	"github.com/pkt-cash/pktd/wire"
	"github.com/emirpasic/gods/trees/redblacktree"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// OutputCache is the asynchronous key-value contract the engine uses to
// memoize colored outputs, keyed by outpoint. The engine treats it as
// write-once per outpoint: a second Put for an outpoint already present is
// expected to be a no-op or to verify equality, never to silently overwrite
// with different data.
//
// Implementations may be called concurrently; coalescing concurrent lookups
// of the same outpoint into a single computation is the caller's (Engine's)
// responsibility, not the cache's — the reference implementations here are
// plain stores.
type OutputCache interface {
	Get(ctx context.Context, op wire.OutPoint) (*ColoredOutput, bool, er.R)
	Put(ctx context.Context, op wire.OutPoint, out *ColoredOutput) er.R
}

// NopCache does no caching: Get always misses, Put discards. It exists as an
// identity cache to simplify testing.
type NopCache struct{}

func (NopCache) Get(context.Context, wire.OutPoint) (*ColoredOutput, bool, er.R) {
	return nil, false, nil
}

func (NopCache) Put(context.Context, wire.OutPoint, *ColoredOutput) er.R {
	return nil
}

// compareOutPoints orders outpoints lexicographically by hash then
// numerically by index, the comparator shape
// github.com/pkt-cash/pktd/btcutil/util/tmap and
// github.com/emirpasic/gods/trees/redblacktree both expect.
func compareOutPoints(a, b interface{}) int {
	oa, ob := a.(wire.OutPoint), b.(wire.OutPoint)
	if c := bytes.Compare(oa.Hash[:], ob.Hash[:]); c != 0 {
		return c
	}
	if oa.Index < ob.Index {
		return -1
	} else if oa.Index > ob.Index {
		return 1
	}
	return 0
}

// MemoryCache is an unbounded in-memory OutputCache backed directly by
// github.com/emirpasic/gods/trees/redblacktree — the same tree
// github.com/pkt-cash/pktd/btcutil/util/tmap wraps for pktd's own
// address-balance bookkeeping, used here without that wrapper because tmap's
// generic API (New/Insert/ForEach/Len) has no point-lookup primitive, only
// upsert-and-iterate, which doesn't fit a cache's Get/Put shape. It is a
// plain mutex-guarded store: it does not coalesce concurrent Gets, which is
// left to Engine (see coalesce).
type MemoryCache struct {
	mu   sync.Mutex
	tree *redblacktree.Tree
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{tree: redblacktree.NewWith(compareOutPoints)}
}

func (c *MemoryCache) Get(_ context.Context, op wire.OutPoint) (*ColoredOutput, bool, er.R) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, found := c.tree.Get(op)
	if !found {
		return nil, false, nil
	}
	return v.(*ColoredOutput), true, nil
}

func (c *MemoryCache) Put(_ context.Context, op wire.OutPoint, out *ColoredOutput) er.R {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, found := c.tree.Get(op); found {
		// write-once per outpoint: don't clobber an existing entry.
		return nil
	}
	c.tree.Put(op, out)
	return nil
}

// coalesce runs fn at most once concurrently per key and fans the single
// result out to every caller racing on that key, so that two goroutines
// asking to color the same outpoint at once don't duplicate the work.
// Engine keeps its own singleflight.Group and calls this around every
// cache-miss coloring computation, independent of which OutputCache
// implementation is plugged in underneath.
func coalesce(group *singleflight.Group, key wire.OutPoint, fn func() (*ColoredOutput, er.R)) (*ColoredOutput, er.R) {
	type result struct {
		out *ColoredOutput
		err er.R
	}
	sfKey := key.Hash.String() + ":" + strconv.FormatUint(uint64(key.Index), 10)
	v, _, _ := group.Do(sfKey, func() (interface{}, error) {
		out, err := fn()
		return result{out, err}, nil
	})
	res := v.(result)
	return res.out, res.err
}

// LRUCache is a bounded OutputCache for long-running callers, backed by
// github.com/hashicorp/golang-lru/v2. Like MemoryCache it is a plain store
// and does not coalesce concurrent Gets.
type LRUCache struct {
	c *lru.Cache[wire.OutPoint, *ColoredOutput]
}

// NewLRUCache returns an LRUCache holding at most size entries.
func NewLRUCache(size int) (*LRUCache, er.R) {
	c, err := lru.New[wire.OutPoint, *ColoredOutput](size)
	if err != nil {
		return nil, er.Errorf("allocating LRU output cache: %s", err)
	}
	return &LRUCache{c: c}, nil
}

func (c *LRUCache) Get(_ context.Context, op wire.OutPoint) (*ColoredOutput, bool, er.R) {
	v, ok := c.c.Get(op)
	if !ok {
		return nil, false, nil
	}
	return v, true, nil
}

func (c *LRUCache) Put(_ context.Context, op wire.OutPoint, out *ColoredOutput) er.R {
	if _, found := c.c.Peek(op); found {
		return nil
	}
	c.c.Add(op, out)
	return nil
}

