// Package api provides the HTTP server for HallBook.
//
// It exposes the booking flow as JSON endpoints (sessions and their events),
// the resource catalog, a health probe and, when the Twilio backend is
// configured, the inbound WhatsApp webhook. Run also drives the chat
// responder so both surfaces share one booking machine.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/BTreeMap/HallBook/internal/messaging"
	"github.com/BTreeMap/HallBook/internal/models"
)

// Server defaults.
const (
	DefaultServerAddress     = ":8080"
	DefaultRateLimit         = 10
	DefaultRateBurst         = 20
	DefaultBlockTime         = time.Minute
	DefaultReadHeaderTimeout = 5 * time.Second
	DefaultShutdownTimeout   = 10 * time.Second
)

// Booker is the booking machine as seen by the HTTP handlers.
type Booker interface {
	messaging.Booker
	Resources() []models.Resource
}

// Opts holds configuration options for the API server.
type Opts struct {
	Addr      string  // address to listen on
	RateLimit float64 // requests per second per client IP, 0 disables limiting
	RateBurst int
	BlockTime time.Duration
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the HTTP listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) {
		o.Addr = addr
	}
}

// WithRateLimit sets the per-IP request rate and burst. A zero rate disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(o *Opts) {
		o.RateLimit = rps
		o.RateBurst = burst
	}
}

// WithBlockTime sets how long a client stays blocked after exceeding its rate.
func WithBlockTime(d time.Duration) Option {
	return func(o *Opts) {
		o.BlockTime = d
	}
}

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	booker     Booker
	msgService messaging.Service
	validate   *validator.Validate
	limiter    *RateLimiter
	addr       string
	newID      func() string
}

// NewServer creates a Server. msgService may be nil when no chat backend is configured.
func NewServer(booker Booker, msgService messaging.Service, opts ...Option) *Server {
	cfg := Opts{
		Addr:      DefaultServerAddress,
		RateLimit: DefaultRateLimit,
		RateBurst: DefaultRateBurst,
		BlockTime: DefaultBlockTime,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Server{
		booker:     booker,
		msgService: msgService,
		validate:   validator.New(),
		addr:       cfg.Addr,
		newID:      func() string { return uuid.NewString() },
	}
	if cfg.RateLimit > 0 {
		s.limiter = NewRateLimiter(cfg.RateLimit, cfg.RateBurst, cfg.BlockTime)
	}
	slog.Debug("NewServer: API server configured", "addr", cfg.Addr, "rateLimit", cfg.RateLimit,
		"rateBurst", cfg.RateBurst, "chatBackend", msgService != nil)
	return s
}

// Handler returns the routed HTTP handler, wrapped by the rate limiter when enabled.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.healthHandler)
	mux.HandleFunc("/resources", s.resourcesHandler)
	mux.HandleFunc("/sessions", s.createSessionHandler)
	mux.HandleFunc("/sessions/{id}", s.getSessionHandler)
	mux.HandleFunc("/sessions/{id}/events", s.eventHandler)
	if tw, ok := s.msgService.(*messaging.TwilioService); ok {
		mux.HandleFunc("/webhooks/twilio", tw.TwilioWebhookHandler)
		slog.Debug("Server.Handler: Twilio webhook registered", "path", "/webhooks/twilio")
	}

	if s.limiter == nil {
		return mux
	}
	return s.limiter.Limit(mux)
}

// Run starts the chat backend (if any), the HTTP server and the chat
// responder, and blocks until ctx is cancelled or one of them fails.
func Run(ctx context.Context, booker Booker, msgService messaging.Service, opts ...Option) error {
	s := NewServer(booker, msgService, opts...)

	if msgService != nil {
		if err := msgService.Start(ctx); err != nil {
			return fmt.Errorf("failed to start messaging service: %w", err)
		}
		defer func() {
			if err := msgService.Stop(); err != nil {
				slog.Error("api.Run: failed to stop messaging service", "error", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("HallBook API server running", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("API server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
		slog.Info("api.Run: shutting down API server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("API server shutdown failed: %w", err)
		}
		return nil
	})
	if msgService != nil {
		responder := messaging.NewBookingResponder(msgService, booker)
		g.Go(func() error {
			return responder.Run(gctx)
		})
	}

	return g.Wait()
}
