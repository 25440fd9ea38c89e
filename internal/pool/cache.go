package pool

import (
	"container/list"
	"sync"

	"github.com/holiman/uint256"

	"github.com/hxuan190/stableswap-engine/internal/domain"
)

// DefaultQuoteCacheSize bounds the number of memoized GetDy results.
const DefaultQuoteCacheSize = 256

// quoteKey identifies a quote on one pool state. version changes on every
// mutation, so entries of an older state can never be hit again and simply age out.
type quoteKey struct {
	version uint64
	i, j    int
	dx      uint256.Int
}

type quoteEntry struct {
	key   quoteKey
	quote domain.Quote
}

// quoteCache is a bounded LRU of quotes. A zero limit disables it.
type quoteCache struct {
	mu      sync.Mutex
	entries map[quoteKey]*list.Element
	lru     *list.List
	limit   int
}

func newQuoteCache(limit int) *quoteCache {
	return &quoteCache{
		entries: make(map[quoteKey]*list.Element, max(limit, 0)),
		lru:     list.New(),
		limit:   limit,
	}
}

func (c *quoteCache) get(key quoteKey) (domain.Quote, bool) {
	if c.limit <= 0 {
		return domain.Quote{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return domain.Quote{}, false
	}
	c.lru.MoveToFront(elem)
	return copyQuote(elem.Value.(*quoteEntry).quote), true
}

func (c *quoteCache) set(key quoteKey, q domain.Quote) {
	if c.limit <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*quoteEntry).quote = copyQuote(q)
		return
	}
	for len(c.entries) >= c.limit {
		back := c.lru.Back()
		c.lru.Remove(back)
		delete(c.entries, back.Value.(*quoteEntry).key)
	}
	c.entries[key] = c.lru.PushFront(&quoteEntry{key: key, quote: copyQuote(q)})
}

func (c *quoteCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// copyQuote detaches a quote from the amounts it points to.
func copyQuote(q domain.Quote) domain.Quote {
	out := q
	for _, p := range []**uint256.Int{&out.AmountIn, &out.AmountOut, &out.Fee, &out.AdminFee, &out.Invariant} {
		if *p != nil {
			*p = new(uint256.Int).Set(*p)
		}
	}
	return out
}
