package venue

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// cache.go - TTL-кэш цен токенов и газа
//
// Цены живут секунды, газ - ещё меньше; кэш снимает давление с API
// при параллельной оценке многих ордеров одной сети.

// Дефолтные TTL записей
const (
	priceTTL = 60 * time.Second
	gasTTL   = 10 * time.Second
)

type cacheEntry struct {
	value     float64
	expiresAt time.Time
}

// priceCache - потокобезопасный кэш числовых значений с TTL
type priceCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time
}

func newPriceCache() *priceCache {
	return &priceCache{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

func (c *priceCache) set(key string, value float64, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{value: value, expiresAt: c.now().Add(ttl)}
}

func (c *priceCache) get(key string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return 0, false
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries, key)
		return 0, false
	}
	return entry.value, true
}

func priceKey(chainID int64, token string) string {
	return fmt.Sprintf("price:%d:%s", chainID, strings.ToLower(token))
}

func gasKey(chainID int64) string {
	return fmt.Sprintf("gas:%d", chainID)
}
