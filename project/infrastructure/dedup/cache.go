package dedup

import (
	"sync"
	"time"
)

// Cache は Slack のイベント再送を検知するための TTL 付きメモリキャッシュです
// service.RedeliveryGuard を実装します。プロセス再起動で内容は失われます
type Cache struct {
	mu   sync.Mutex
	ttl  time.Duration
	seen map[string]time.Time // key -> 有効期限
	now  func() time.Time
}

// NewCache は TTL を指定してキャッシュを作成します
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:  ttl,
		seen: make(map[string]time.Time),
		now:  time.Now,
	}
}

// Seen は key が有効期限内に記録済みなら true を返します
// 未記録（または期限切れ）の場合は記録して false を返します
func (c *Cache) Seen(key string) bool {
	if key == "" {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.pruneLocked(now)

	if _, ok := c.seen[key]; ok {
		return true
	}
	c.seen[key] = now.Add(c.ttl)
	return false
}

// Len は保持しているキーの数を返します
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

func (c *Cache) pruneLocked(now time.Time) {
	for key, expiresAt := range c.seen {
		if !now.Before(expiresAt) {
			delete(c.seen, key)
		}
	}
}
