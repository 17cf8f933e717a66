package cache

import (
	"strings"
	"sync"
	"time"
)

// DefaultPageMaxAge is how long a rendered page may be served before the
// renderer must rebuild it from live data.
const DefaultPageMaxAge = 120 * time.Second

// PageEntry holds a fully rendered page plus the payload its renderer needs
// to re-hydrate interactive state without refetching.
type PageEntry struct {
	Markup   string
	Payload  any
	CachedAt time.Time
}

// PageCache stores rendered pages by path for instant re-navigation. Freshness
// is the reader's call: each Get carries its own max-age.
type PageCache struct {
	mu      sync.Mutex
	entries map[string]PageEntry
	now     func() time.Time
}

func NewPageCache() *PageCache {
	return &PageCache{
		entries: make(map[string]PageEntry),
		now:     time.Now,
	}
}

func (p *PageCache) Get(path string, maxAge time.Duration) (PageEntry, bool) {
	if maxAge <= 0 {
		maxAge = DefaultPageMaxAge
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[path]
	if !ok {
		return PageEntry{}, false
	}
	if p.now().Sub(e.CachedAt) > maxAge {
		return PageEntry{}, false
	}
	return e, true
}

func (p *PageCache) Set(path, markup string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries[path] = PageEntry{Markup: markup, Payload: payload, CachedAt: p.now()}
}

func (p *PageCache) Clear(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.entries, path)
}

// ClearPage drops every cached copy of path across user-scoped keys of the
// form "<user>|<path>[?query]".
func (p *PageCache) ClearPage(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key := range p.entries {
		_, rest, ok := strings.Cut(key, "|")
		if !ok {
			rest = key
		}
		if rest == path || strings.HasPrefix(rest, path+"?") {
			delete(p.entries, key)
		}
	}
}

func (p *PageCache) ClearAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = make(map[string]PageEntry)
}
