// Package credentials keeps portal passwords for silent re-authentication.
//
// Passwords always live in a process-local Cache. A Sealer, when configured,
// additionally encrypts them for storage in the user record so re-authentication
// survives restarts.
package credentials

import "sync"

type Cache struct {
	mu        sync.RWMutex
	passwords map[int64]string
}

func NewCache() *Cache {
	return &Cache{passwords: make(map[int64]string)}
}

func (c *Cache) Remember(userID int64, password string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.passwords[userID] = password
}

func (c *Cache) Recall(userID int64) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.passwords[userID]
	return p, ok
}

func (c *Cache) Forget(userID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.passwords, userID)
}
