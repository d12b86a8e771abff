// Package cache provides an LRU cache for compiled statements.
//
// Compilation is deterministic, so a cached statement never goes stale
// while the catalog is fixed; the TTL only bounds memory held for
// workspaces that stop querying.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/satishbabariya/quarry/query/sqlgen"
)

// Stats represents cache statistics
type Stats struct {
	Hits      int64
	Misses    int64
	Size      int
	MaxSize   int
	Evictions int64
	HitRate   float64
}

// LRUCache implements an LRU cache with TTL support
type LRUCache struct {
	mu         sync.Mutex
	data       map[string]*cacheNode
	maxSize    int
	defaultTTL time.Duration
	head       *cacheNode
	tail       *cacheNode
	stats      Stats
}

// cacheNode represents a node in the doubly-linked list for LRU
type cacheNode struct {
	key        string
	value      *sqlgen.Statement
	expiresAt  time.Time
	accessTime time.Time
	prev       *cacheNode
	next       *cacheNode
}

// NewLRUCache creates a new LRU cache
func NewLRUCache(maxSize int, defaultTTL time.Duration) *LRUCache {
	if maxSize <= 0 {
		maxSize = 512
	}
	return &LRUCache{
		data:    make(map[string]*cacheNode),
		maxSize: maxSize,
		defaultTTL: defaultTTL,
		stats:   Stats{MaxSize: maxSize},
	}
}

// Key builds a cache key for a workspace and raw query payload.
func Key(workspaceID string, payload []byte) string {
	hasher := sha256.New()
	hasher.Write([]byte(workspaceID))
	hasher.Write([]byte{0})
	hasher.Write(payload)
	return "compile:" + hex.EncodeToString(hasher.Sum(nil))[:32]
}

// Get retrieves a statement from the cache
func (c *LRUCache) Get(key string) (*sqlgen.Statement, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, ok := c.data[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}

	// Check if expired
	if !node.expiresAt.IsZero() && time.Now().After(node.expiresAt) {
		c.removeNode(node)
		c.stats.Misses++
		return nil, false
	}

	// Move to front (most recently used)
	c.moveToFront(node)
	node.accessTime = time.Now()

	c.stats.Hits++
	return node.value, true
}

// Set stores a statement in the cache. A zero ttl uses the default TTL;
// a negative ttl stores the entry without expiry.
func (c *LRUCache) Set(key string, value *sqlgen.Statement, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl == 0 {
		ttl = c.defaultTTL
	}

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}

	// Update existing node in place
	if node, exists := c.data[key]; exists {
		node.value = value
		node.expiresAt = expiresAt
		node.accessTime = time.Now()
		c.moveToFront(node)
		return
	}

	node := &cacheNode{
		key:        key,
		value:      value,
		expiresAt:  expiresAt,
		accessTime: time.Now(),
	}

	if len(c.data) >= c.maxSize {
		c.evictLRU()
		c.stats.Evictions++
	}

	c.addToFront(node)
	c.data[key] = node
	c.stats.Size = len(c.data)
}

// Clear removes all entries from the cache
func (c *LRUCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data = make(map[string]*cacheNode)
	c.head = nil
	c.tail = nil
	c.stats = Stats{MaxSize: c.maxSize}
}

// GetStats returns cache statistics
func (c *LRUCache) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Size = len(c.data)
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total) * 100
	}
	return stats
}

// addToFront adds a node to the front of the list
func (c *LRUCache) addToFront(node *cacheNode) {
	if c.head == nil {
		c.head = node
		c.tail = node
		return
	}

	node.next = c.head
	c.head.prev = node
	c.head = node
}

// moveToFront moves a node to the front of the list
func (c *LRUCache) moveToFront(node *cacheNode) {
	if node == c.head {
		return
	}

	c.removeNode(node)
	node.prev = nil
	node.next = nil
	c.addToFront(node)
	c.data[node.key] = node
}

// removeNode removes a node from the list and the index
func (c *LRUCache) removeNode(node *cacheNode) {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		c.head = node.next
	}

	if node.next != nil {
		node.next.prev = node.prev
	} else {
		c.tail = node.prev
	}

	delete(c.data, node.key)
}

// evictLRU evicts the least recently used node
func (c *LRUCache) evictLRU() {
	if c.tail == nil {
		return
	}

	c.removeNode(c.tail)
}
