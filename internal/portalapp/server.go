package portalapp

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/vtabsquare/officetool/internal/api"
	"github.com/vtabsquare/officetool/internal/cache"
	"github.com/vtabsquare/officetool/internal/config"
	"github.com/vtabsquare/officetool/internal/dispatch"
	"github.com/vtabsquare/officetool/internal/domain"
	"github.com/vtabsquare/officetool/internal/inbox"
	"github.com/vtabsquare/officetool/internal/metrics"
	"github.com/vtabsquare/officetool/internal/middleware"
	"github.com/vtabsquare/officetool/internal/router"
	"github.com/vtabsquare/officetool/internal/session"
	"github.com/vtabsquare/officetool/internal/store"
	"github.com/vtabsquare/officetool/internal/timer"
	"github.com/vtabsquare/officetool/internal/timesheet"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templateFuncs = template.FuncMap{
	"hours": func(seconds int64) string {
		return fmt.Sprintf("%.2f", float64(seconds)/3600)
	},
}

type server struct {
	cfg        *config.Config
	tmpl       *template.Template
	apiClient  *api.Client
	durable    *store.Durable
	scratch    *store.Scratch
	values     *cache.Cache
	pages      *cache.PageCache
	sessions   *session.Manager
	router     *router.Router
	timer      *timer.Engine
	timesheets *timesheet.Aggregator
	dispatcher *dispatch.Dispatcher
	approvals  *inbox.Controller
	collector  *metrics.Collector
}

func newServer(cfg *config.Config) (*server, error) {
	collector := metrics.NewCollector()

	durable, err := store.OpenDurable(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open durable store: %w", err)
	}
	scratch := store.NewScratch()

	sessions, err := session.NewManager(durable, []byte(cfg.Session.Secret))
	if err != nil {
		return nil, err
	}

	apiClient := api.NewClient(cfg.Upstream.APIBase, collector)

	var push dispatch.PushChannel
	if cfg.Upstream.EventWS != "" {
		push = dispatch.NewWSChannel(cfg.Upstream.EventWS)
	}

	s := &server{
		cfg:        cfg,
		tmpl:       template.Must(template.New("portal").Funcs(templateFuncs).ParseFS(templatesFS, "templates/*.html")),
		apiClient:  apiClient,
		durable:    durable,
		scratch:    scratch,
		values:     cache.New(collector),
		pages:      cache.NewPageCache(),
		sessions:   sessions,
		timer:      timer.NewEngine(durable, scratch, apiClient, collector),
		timesheets: timesheet.NewAggregator(apiClient, scratch),
		dispatcher: dispatch.NewDispatcher(apiClient, push, nil, collector),
		approvals:  inbox.NewController(apiClient, durable, cache.New(collector)),
		collector:  collector,
	}
	s.router = s.buildRouter()
	return s, nil
}

func (s *server) handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/login", http.HandlerFunc(s.loginRoute))
	mux.Handle("/logout", middleware.Chain(http.HandlerFunc(s.logout), s.requireSession))
	mux.Handle("/metrics", s.collector.Handler())

	mux.Handle("/avatars/", middleware.Chain(http.HandlerFunc(s.avatarThumbnail), s.requireSession))
	mux.Handle("/downloads/timesheet.xlsx", middleware.Chain(http.HandlerFunc(s.downloadTimesheetXLSX), s.requireSession))
	mux.Handle("/downloads/timesheet.pdf", middleware.Chain(http.HandlerFunc(s.downloadTimesheetPDF), s.requireSession))

	mux.Handle("/actions/", middleware.Chain(http.HandlerFunc(s.actionRoutes), s.requireSession))
	mux.Handle("/", middleware.Chain(http.HandlerFunc(s.pageRoute), s.requireSession))

	csp := strings.Join([]string{
		"default-src 'self'",
		"style-src 'self' 'unsafe-inline'",
		"img-src 'self' data:",
		"frame-ancestors 'none'",
	}, "; ")

	return middleware.Chain(
		mux,
		middleware.Recover(),
		middleware.RequestLog(),
		middleware.SecurityHeaders(middleware.SecurityHeadersConfig{ContentSecurityPolicy: csp}),
	)
}

// Run wires the portal and serves it until ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config) error {
	s, err := newServer(cfg)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           s.handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("portal listening", "addr", cfg.Addr())
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// requireSession resolves the portal user from the session cookie and hangs
// it on the request context. A near-expiry token is re-issued in passing.
func (s *server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, renewed, err := s.sessions.FromRequest(r)
		if err != nil {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		if renewed != "" {
			session.SetCookie(w, renewed)
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
	})
}

type ctxKey int

const userKey ctxKey = 0

func withUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

func userFrom(r *http.Request) *domain.User {
	user, _ := r.Context().Value(userKey).(*domain.User)
	return user
}

// pageRoute navigates the route table for every page GET. Denied routes
// render the Access Denied interstitial and land on the rule's redirect.
func (s *server) pageRoute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	user := userFrom(r)
	resolution := s.router.Navigate(r.URL.Path, user)
	if resolution.Denied {
		s.renderDenied(w, user, resolution.Redirect)
		return
	}
	page, ok := resolution.Page.(*portalPage)
	if !ok || page == nil {
		http.NotFound(w, r)
		return
	}
	page.serve(w, r, user)
}

func (s *server) render(w http.ResponseWriter, name string, data any) {
	var buf strings.Builder
	if err := s.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("template render failed", "template", name, "err", err)
		s.renderErrorCard(w, "The page failed to render.")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(buf.String()))
}

func (s *server) renderDenied(w http.ResponseWriter, user *domain.User, redirect string) {
	w.WriteHeader(http.StatusForbidden)
	s.render(w, "denied.html", deniedData{User: user, Redirect: redirect})
}

func (s *server) renderErrorCard(w http.ResponseWriter, message string) {
	w.WriteHeader(http.StatusInternalServerError)
	var buf strings.Builder
	if err := s.tmpl.ExecuteTemplate(&buf, "error.html", errorData{Message: message}); err != nil {
		http.Error(w, message, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(buf.String()))
}
