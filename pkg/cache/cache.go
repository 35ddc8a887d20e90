// Package cache provides a weight bounded LRU cache.
package cache

import (
	"container/list"
	"errors"
	"sync"
)

// ErrExists indicates the key is already cached.
var ErrExists = errors.New("key already exists in cache")

// Cache stores values up to a total weight budget, evicting the least
// recently used entries once the budget is exceeded.
type Cache interface {
	// Insert caches value under key. ErrExists is returned if key is
	// already cached.
	Insert(key string, value interface{}, weight int) error

	// Retrieve returns the value for key and marks it as recently used.
	Retrieve(key string) (interface{}, bool)

	// GetWeight returns the total weight of cached entries.
	GetWeight() int

	// GetBudget returns the weight the cache is bounded to.
	GetBudget() int

	Clear()
}

type entry struct {
	key    string
	value  interface{}
	weight int
}

type cache struct {
	mu     sync.Mutex
	order  *list.List
	lookup map[string]*list.Element
	weight int
	budget int
}

// NewCache returns an empty Cache bounded to budget.
func NewCache(budget int) Cache {
	return &cache{
		order:  list.New(),
		lookup: make(map[string]*list.Element),
		budget: budget,
	}
}

func (c *cache) Insert(key string, value interface{}, weight int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.lookup[key]; ok {
		return ErrExists
	}

	c.lookup[key] = c.order.PushFront(&entry{key: key, value: value, weight: weight})
	c.weight += weight

	for c.weight > c.budget && c.order.Len() > 0 {
		oldest := c.order.Back()
		evicted := c.order.Remove(oldest).(*entry)
		delete(c.lookup, evicted.key)
		c.weight -= evicted.weight
	}

	return nil
}

func (c *cache) Retrieve(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	element, ok := c.lookup[key]
	if !ok {
		return nil, false
	}

	c.order.MoveToFront(element)
	return element.Value.(*entry).value, true
}

func (c *cache) GetWeight() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.weight
}

func (c *cache) GetBudget() int {
	return c.budget
}

func (c *cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.Init()
	c.lookup = make(map[string]*list.Element)
	c.weight = 0
}
