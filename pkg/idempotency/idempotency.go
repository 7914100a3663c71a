package idempotency

import (
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
)

const Header = "Idempotency-Key"

func Key(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(Header))
}

func NewKey() string {
	return uuid.NewString()
}

// Cache remembers the first response recorded for a key.
type Cache struct {
	mu   sync.Mutex
	seen map[string][]byte
}

func NewCache() *Cache {
	return &Cache{seen: make(map[string][]byte)}
}

func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.seen[key]
	return v, ok
}

// Put stores v unless key was already recorded, and returns the stored value.
func (c *Cache) Put(key string, v []byte) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.seen[key]; ok {
		return prev
	}
	c.seen[key] = v
	return v
}
