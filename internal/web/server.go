package web

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"

	"github.com/vadiminshakov/stakeview/internal/dashboard"
	"github.com/vadiminshakov/stakeview/internal/domain"
	"github.com/vadiminshakov/stakeview/internal/export"
	"github.com/vadiminshakov/stakeview/internal/metrics"
)

type balanceFetcher interface {
	TransactionBalances(ctx context.Context, address string) ([]domain.RawBalanceRecord, error)
}

type exportStore interface {
	Save(ev export.Event) error
	EventsAfter(index uint64) ([]export.EventRecord, error)
}

// view is one viewer's dashboard. The upstream call runs without holding mu,
// so a slow fetch never blocks paging or export handling.
type view struct {
	mu    sync.Mutex
	state dashboard.State
}

// Server exposes the dashboard UI, its JSON API, the export feed and metrics.
type Server struct {
	Addr     string
	Fetcher  balanceFetcher
	Exports  exportStore
	Form     export.LeadForm
	PageSize int
	Examples []string

	logger *zap.Logger
	views  *lru.Cache[string, *view]
	newID  func() string
}

// NewServer creates a new web server instance holding at most maxViews dashboard views.
func NewServer(
	addr string,
	fetcher balanceFetcher,
	exports exportStore,
	form export.LeadForm,
	pageSize int,
	maxViews int,
	examples []string,
	logger *zap.Logger,
) (*Server, error) {
	if fetcher == nil {
		return nil, errors.New("balance fetcher is required")
	}
	if form == nil {
		return nil, errors.New("lead form is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	views, err := lru.NewWithEvict[string, *view](maxViews, func(id string, _ *view) {
		logger.Debug("view evicted", zap.String("view", id))
	})
	if err != nil {
		return nil, fmt.Errorf("create view cache: %w", err)
	}

	return &Server{
		Addr:     addr,
		Fetcher:  fetcher,
		Exports:  exports,
		Form:     form,
		PageSize: pageSize,
		Examples: examples,
		logger:   logger,
		views:    views,
		newID:    uuid.NewString,
	}, nil
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /api/examples", s.handleExamples)
	mux.HandleFunc("POST /api/views", s.handleCreateView)
	mux.HandleFunc("GET /api/views/{id}", s.handleGetView)
	mux.HandleFunc("POST /api/views/{id}/refresh", s.handleRefresh)
	mux.HandleFunc("POST /api/views/{id}/export", s.handleRequestExport)
	mux.HandleFunc("POST /api/views/{id}/export/cancel", s.handleCancelExport)
	mux.HandleFunc("POST /api/views/{id}/export/{session}/complete", s.handleCompleteExport)
	mux.HandleFunc("GET /exports/stream", s.handleExportStream)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	server := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("http server listening", zap.String("addr", s.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// StartWithAutoTLS serves HTTPS on Addr with certificates obtained via ACME for domains.
// A plain HTTP listener on :80 answers HTTP-01 challenges and redirects everything else.
func (s *Server) StartWithAutoTLS(ctx context.Context, domains []string, cacheDir string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(domains) == 0 {
		return errors.New("no domains provided for automatic TLS")
	}
	if cacheDir == "" {
		cacheDir = "cert-cache"
	}

	manager := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(domains...),
		Cache:      autocert.DirCache(cacheDir),
	}

	acmeSrv := &http.Server{
		Addr:              ":80",
		Handler:           manager.HTTPHandler(nil),
		ReadHeaderTimeout: 5 * time.Second,
	}

	tlsConfig := manager.TLSConfig()
	tlsConfig.MinVersion = tls.VersionTLS12
	httpsSrv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		TLSConfig:         tlsConfig,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := acmeSrv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("acme listener shutdown", zap.Error(err))
		}
		if err := httpsSrv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("https server shutdown", zap.Error(err))
		}
	}()

	go func() {
		if err := acmeSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("acme listener", zap.Error(err))
		}
	}()

	s.logger.Info("https server listening", zap.String("addr", s.Addr), zap.Strings("domains", domains))
	if err := httpsSrv.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) addView(address string) (string, *view) {
	id := s.newID()
	v := &view{state: dashboard.New(address, s.PageSize)}
	s.views.Add(id, v)
	metrics.ViewsActive.Set(float64(s.views.Len()))
	return id, v
}

func (s *Server) lookupView(id string) (*view, bool) {
	return s.views.Get(id)
}

// refresh fetches the view's address once and applies the result if no newer
// fetch was issued in the meantime.
func (s *Server) refresh(ctx context.Context, v *view) dashboard.State {
	v.mu.Lock()
	state, requestID := v.state.BeginFetch()
	v.state = state
	v.mu.Unlock()

	logger := s.logger.With(zap.String("address", state.Address), zap.Uint64("request", requestID))
	raw, err := s.Fetcher.TransactionBalances(ctx, state.Address)

	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.state.IsCurrent(requestID) {
		metrics.FetchesDiscarded.Inc()
		logger.Debug("discarding superseded fetch", zap.Uint64("latest", v.state.LatestRequest()))
		return v.state
	}

	v.state = v.state.CompleteFetch(requestID, raw, err)
	if v.state.Err != nil {
		logger.Warn("fetch failed", zap.Error(v.state.Err))
	} else {
		logger.Info("dataset loaded", zap.Int("records", v.state.Dataset.Len()))
	}
	return v.state
}
