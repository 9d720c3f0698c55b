// Package refcache is the Reference Cache: a time-boxed store of index
// constituent lists keyed by a closed set of tracked index identifiers.
package refcache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/seenimoa/bazaar/internal/datasource"
	"github.com/seenimoa/bazaar/internal/infra"
	"github.com/seenimoa/bazaar/internal/logging"
	"github.com/seenimoa/bazaar/pkg/models"
	"github.com/seenimoa/bazaar/pkg/utils"
)

// DefaultTTL is the freshness window of a constituent list.
const DefaultTTL = 24 * time.Hour

var (
	// ErrUnknownIndex is returned for an index key outside the tracked set.
	ErrUnknownIndex = errors.New("unknown index")
	// ErrFetch is returned when the constituent list could not be refreshed.
	ErrFetch = errors.New("constituent fetch failed")
)

// Index is one tracked index: the short key callers use and the exchange
// name the live adapter expects.
type Index struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// TrackedIndices is the closed set of indices with constituent lists, in
// display order.
var TrackedIndices = []Index{
	{Key: "NIFTY50", Name: "NIFTY 50"},
	{Key: "BANKNIFTY", Name: "NIFTY BANK"},
	{Key: "MIDCAP100", Name: "NIFTY MIDCAP 100"},
	{Key: "SMALLCAP250", Name: "NIFTY SMLCAP 250"},
}

// LookupIndex resolves a key case-insensitively, ignoring spaces, so
// "nifty 50" and "NIFTY50" both name the same index. The exchange name
// is accepted as well.
func LookupIndex(key string) (Index, bool) {
	k := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(key), " ", ""))
	for _, idx := range TrackedIndices {
		if idx.Key == k || strings.ReplaceAll(idx.Name, " ", "") == k {
			return idx, true
		}
	}
	return Index{}, false
}

// ConstituentFetcher is the live adapter call the cache refreshes from.
type ConstituentFetcher interface {
	IndexConstituents(ctx context.Context, indexName string) ([]datasource.ConstituentRow, error)
}

// Cache holds one ConstituentSet per tracked index. Concurrent refreshes of
// the same key are not deduplicated; each one replaces the entry whole.
type Cache struct {
	src   ConstituentFetcher
	store *infra.TTLCache[models.ConstituentSet]
	log   *logging.Entry
}

// New creates a Cache. A nil clock means the wall clock; a nil logger
// discards output.
func New(src ConstituentFetcher, ttl time.Duration, now infra.Clock, log *logging.Log) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Cache{
		src:   src,
		store: infra.NewTTLCache[models.ConstituentSet](ttl, now),
		log:   log.WithComponent("refcache"),
	}
}

// Get returns the constituents of the index named by key. A fresh entry is
// served from memory; a missing or expired one is refetched before
// returning. Unknown keys fail with ErrUnknownIndex, upstream failures and
// empty lists with ErrFetch.
func (c *Cache) Get(ctx context.Context, key string) (models.ConstituentSet, error) {
	idx, ok := LookupIndex(key)
	if !ok {
		return models.ConstituentSet{}, fmt.Errorf("%w: %q", ErrUnknownIndex, key)
	}

	if e, ok := c.store.Lookup(idx.Key); ok {
		return withStamp(e), nil
	}

	if n := c.store.Cleanup(); n > 0 {
		c.log.WithField("expired", n).Debug("expired constituent sets dropped")
	}

	rows, err := c.src.IndexConstituents(ctx, idx.Name)
	if err != nil {
		c.log.WithError(err).WithField("index", idx.Key).Warn("constituent refresh failed")
		return models.ConstituentSet{}, fmt.Errorf("%w: %s: %w", ErrFetch, idx.Key, err)
	}

	symbols := constituentSymbols(idx, rows)
	if len(symbols) == 0 {
		return models.ConstituentSet{}, fmt.Errorf("%w: %s: no constituents", ErrFetch, idx.Key)
	}

	e := c.store.Set(idx.Key, models.ConstituentSet{IndexKey: idx.Key, Symbols: symbols})
	c.log.WithFields(logging.Fields{"index": idx.Key, "count": len(symbols), "ttl": c.store.TTL()}).Debug("constituents refreshed")
	return withStamp(e), nil
}

// Invalidate drops the entry for key, forcing the next Get to refetch.
func (c *Cache) Invalidate(key string) {
	if idx, ok := LookupIndex(key); ok {
		c.store.Invalidate(idx.Key)
	}
}

// withStamp copies the entry's store time into FetchedAt so the value and
// its freshness come from the same write.
func withStamp(e infra.Entry[models.ConstituentSet]) models.ConstituentSet {
	set := e.Value
	set.FetchedAt = e.StoredAt
	return set
}

// constituentSymbols drops the index's own aggregate row (the first row,
// and any row carrying the index name) and normalises the rest.
func constituentSymbols(idx Index, rows []datasource.ConstituentRow) []string {
	if len(rows) > 0 {
		rows = rows[1:]
	}
	symbols := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.Symbol == "" || r.Symbol == idx.Name || r.Symbol == idx.Key {
			continue
		}
		symbols = append(symbols, utils.NormalizeSymbol(r.Symbol))
	}
	return symbols
}
