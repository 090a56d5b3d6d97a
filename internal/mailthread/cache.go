package mailthread

import (
	"sync"

	"github.com/matheus3301/crmlive/internal/crm"
)

// Cache memoizes BuildThreads per client. Entries are dropped with
// Invalidate whenever that client's mail is fetched again or sent to.
type Cache struct {
	mu      sync.Mutex
	threads map[crm.ID][]Thread
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{threads: make(map[crm.ID][]Thread)}
}

// Get returns the cached threads for a client.
func (c *Cache) Get(clientID crm.ID) ([]Thread, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.threads[clientID]
	return t, ok
}

// Build reconstructs threads for a client and caches the result.
func (c *Cache) Build(clientID crm.ID, mails []crm.MailMessage) []Thread {
	threads := BuildThreads(mails)
	c.mu.Lock()
	c.threads[clientID] = threads
	c.mu.Unlock()
	return threads
}

// Invalidate forgets the threads cached for a client.
func (c *Cache) Invalidate(clientID crm.ID) {
	c.mu.Lock()
	delete(c.threads, clientID)
	c.mu.Unlock()
}
