package kv

import (
	"context"
	"sort"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// memoryNamespace implementa Namespace sobre go-cache.
// El cursor es la última key devuelta; el listado es en orden lexicográfico.
type memoryNamespace struct{ c *gocache.Cache }

// NewMemoryNamespace crea un namespace en memoria de proceso.
func NewMemoryNamespace() Namespace {
	return &memoryNamespace{c: gocache.New(gocache.NoExpiration, time.Minute)}
}

func (m *memoryNamespace) Get(_ context.Context, key string) (Entry, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return Entry{}, ErrKeyNotFound
	}
	e, _ := v.(Entry)
	return e, nil
}

func (m *memoryNamespace) Put(_ context.Context, key string, e Entry, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	m.c.Set(key, Entry{
		Value:    append([]byte(nil), e.Value...),
		Metadata: append([]byte(nil), e.Metadata...),
	}, ttl)
	return nil
}

func (m *memoryNamespace) Delete(_ context.Context, key string) error {
	m.c.Delete(key)
	return nil
}

func (m *memoryNamespace) List(_ context.Context, prefix, cursor string, limit int) ([]KeyInfo, string, error) {
	// Items() ya excluye entradas expiradas
	items := m.c.Items()
	names := make([]string, 0, len(items))
	for k := range items {
		if strings.HasPrefix(k, prefix) && k > cursor {
			names = append(names, k)
		}
	}
	sort.Strings(names)

	next := ""
	if limit > 0 && len(names) > limit {
		names = names[:limit]
		next = names[limit-1]
	}

	out := make([]KeyInfo, 0, len(names))
	for _, k := range names {
		e, _ := items[k].Object.(Entry)
		out = append(out, KeyInfo{Name: k, Metadata: e.Metadata})
	}
	return out, next, nil
}

func (m *memoryNamespace) Ping(context.Context) error { return nil }

func (m *memoryNamespace) Close() error {
	m.c.Flush()
	return nil
}
