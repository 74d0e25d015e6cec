package services

import (
	"encoding/binary"
	"math"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/ristretto"

	"finsight/internal/models"
)

// InsightCache keeps generated insights per user and record set. A nil
// *InsightCache never hits.
type InsightCache struct {
	cache *ristretto.Cache
	ttl   time.Duration
}

// NewInsightCache creates a cache whose entries expire after ttl. A
// non-positive ttl disables caching.
func NewInsightCache(ttl time.Duration) (*InsightCache, error) {
	if ttl <= 0 {
		return nil, nil
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     1_000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &InsightCache{cache: c, ttl: ttl}, nil
}

// Get returns the cached insight for key.
func (c *InsightCache) Get(key string) (*models.Insight, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}
	insight, ok := v.(*models.Insight)
	return insight, ok
}

// Set stores insight under key and waits until it is visible to Get.
func (c *InsightCache) Set(key string, insight *models.Insight) {
	if c == nil {
		return
	}
	c.cache.SetWithTTL(key, insight, 1, c.ttl)
	c.cache.Wait()
}

// Close stops the cache's background goroutines.
func (c *InsightCache) Close() {
	if c == nil {
		return
	}
	c.cache.Close()
}

// insightCacheKey identifies a user's record set. Any added, removed or
// edited record changes the key.
func insightCacheKey(userID string, records []models.Transaction) string {
	d := xxhash.New()
	var buf [8]byte
	for _, r := range records {
		_, _ = d.WriteString(r.ID)
		_, _ = d.WriteString(r.DateString())
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(r.Amount))
		_, _ = d.Write(buf[:])
		_, _ = d.WriteString(r.Description)
		_, _ = d.WriteString(r.Category)
		_, _ = d.WriteString(r.Source)
		_, _ = d.Write([]byte{0})
	}
	return userID + ":" + strconv.FormatUint(d.Sum64(), 16)
}
