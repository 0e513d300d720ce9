package cache

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Mem implementa Cache sobre patrickmn/go-cache.
// El mutex propio serializa Take (go-cache no tiene get-and-delete atómico).
type Mem struct {
	mu     sync.Mutex
	c      *gocache.Cache
	prefix string
}

func NewMemory(defaultTTL time.Duration, prefix string) *Mem {
	return &Mem{c: gocache.New(defaultTTL, time.Minute), prefix: prefix}
}

func (m *Mem) key(k string) string {
	if m.prefix == "" {
		return k
	}
	return m.prefix + ":" + k
}

func (m *Mem) Get(k string) ([]byte, bool) {
	v, ok := m.c.Get(m.key(k))
	if !ok {
		return nil, false
	}
	b, _ := v.([]byte)
	return b, true
}

func (m *Mem) Set(k string, v []byte, ttl time.Duration) {
	m.c.Set(m.key(k), v, ttl)
}

func (m *Mem) Delete(k string) { m.c.Delete(m.key(k)) }

func (m *Mem) Take(k string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.c.Get(m.key(k))
	if !ok {
		return nil, false
	}
	m.c.Delete(m.key(k))
	b, _ := v.([]byte)
	return b, true
}
