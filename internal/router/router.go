package router

import (
	"strings"
	"sync"

	"github.com/vtabsquare/officetool/internal/access"
	"github.com/vtabsquare/officetool/internal/domain"
)

// Page renders one route. Pages that hold long-lived resources (the call
// dispatcher's push handler, the timer tick) also implement Leaver.
type Page interface {
	Name() string
}

// Leaver is the lifecycle hook the router invokes when navigation leaves a
// page. Implementations must tolerate repeated calls.
type Leaver interface {
	OnLeave()
}

// Resolution is the outcome of a navigation: either a page to render or an
// access denial with its redirect target.
type Resolution struct {
	Path     string
	Page     Page
	Denied   bool
	Redirect string
}

type Router struct {
	mu       sync.Mutex
	loaders  map[string]func() Page
	loaded   map[string]Page
	home     string
	previous Page
	cleanups map[string]func()
}

func New(home string) *Router {
	return &Router{
		loaders:  make(map[string]func() Page),
		loaded:   make(map[string]Page),
		home:     home,
		cleanups: make(map[string]func()),
	}
}

// Handle registers a lazy page loader. The loader runs at most once, on the
// first navigation that reaches the route.
func (rt *Router) Handle(path string, loader func() Page) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.loaders[path] = loader
}

// RegisterCleanup installs a named global cleanup hook, replacing any prior
// hook of the same name. Hooks run on every navigation.
func (rt *Router) RegisterCleanup(name string, fn func()) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if fn == nil {
		delete(rt.cleanups, name)
		return
	}
	rt.cleanups[name] = fn
}

// NormalizePath turns a location fragment into a routable path: the leading
// hash and any query string are stripped, and empty locations become "/".
func NormalizePath(location string) string {
	path := strings.TrimPrefix(strings.TrimSpace(location), "#")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

// Navigate resolves location for user. Cleanup hooks and the previous page's
// OnLeave always run first, so abandoned subsystems are torn down even when
// the new route is denied.
func (rt *Router) Navigate(location string, user *domain.User) Resolution {
	path := NormalizePath(location)

	rt.mu.Lock()
	hooks := make([]func(), 0, len(rt.cleanups))
	for _, fn := range rt.cleanups {
		hooks = append(hooks, fn)
	}
	previous := rt.previous
	rt.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
	if leaver, ok := previous.(Leaver); ok {
		leaver.OnLeave()
	}

	decision := access.Decide(path, user)
	if !decision.Allowed {
		rt.mu.Lock()
		rt.previous = nil
		rt.mu.Unlock()
		return Resolution{Path: path, Denied: true, Redirect: decision.Redirect}
	}

	page := rt.load(path)
	rt.mu.Lock()
	rt.previous = page
	rt.mu.Unlock()
	return Resolution{Path: path, Page: page}
}

func (rt *Router) load(path string) Page {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if page, ok := rt.loaded[path]; ok {
		return page
	}
	loader, ok := rt.loaders[path]
	if !ok {
		// Unknown paths fall back to the home renderer.
		if page, ok := rt.loaded[rt.home]; ok {
			return page
		}
		loader, ok = rt.loaders[rt.home]
		if !ok {
			return nil
		}
		page := loader()
		rt.loaded[rt.home] = page
		return page
	}
	page := loader()
	rt.loaded[path] = page
	return page
}
