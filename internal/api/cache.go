package api

import (
	"time"

	"rhystmorgan/contactbook/internal/models"
)

func NewContactCache(ttl time.Duration) *ContactCache {
	return &ContactCache{
		contacts: make(map[int]cachedContact),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (c *ContactCache) Get(id int) (models.Contact, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.contacts[id]
	if !exists {
		return models.Contact{}, false
	}

	if c.now().Sub(entry.fetchedAt) > c.ttl {
		return models.Contact{}, false
	}

	return cloneContact(entry.contact), true
}

func (c *ContactCache) Set(contact models.Contact) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.contacts[contact.ID] = cachedContact{
		contact:   cloneContact(contact),
		fetchedAt: c.now(),
	}
	c.cleanupLocked()
}

func (c *ContactCache) Invalidate(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.contacts, id)
}

func (c *ContactCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.contacts = make(map[int]cachedContact)
}

func (c *ContactCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.contacts)
}

func (c *ContactCache) cleanupLocked() {
	now := c.now()
	for id, entry := range c.contacts {
		if now.Sub(entry.fetchedAt) > c.ttl {
			delete(c.contacts, id)
		}
	}
}

// cloneContact copies the slices so callers cannot mutate cached entries.
func cloneContact(c models.Contact) models.Contact {
	out := c
	out.Phones = append([]models.Phone(nil), c.Phones...)
	out.Emails = append([]models.Email(nil), c.Emails...)
	out.Addresses = append([]models.Address(nil), c.Addresses...)
	return out
}
