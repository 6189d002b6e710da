package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/gitdub/pkg/domain/interfaces"
)

// config holds internal HTTP server configuration
type config struct {
	addr           string
	webhookSecret  string
	allowedSources []string
	async          bool
	trustProxy     bool
}

// Option is a functional option for Server configuration
type Option func(*config)

// WithAddr sets the server address
func WithAddr(addr string) Option {
	return func(c *config) {
		c.addr = addr
	}
}

// WithWebhookSecret sets the webhook secret. Signatures are not verified when it is empty.
func WithWebhookSecret(secret string) Option {
	return func(c *config) {
		c.webhookSecret = secret
	}
}

// WithAllowedSources restricts webhook deliveries to the given addresses or CIDR ranges
func WithAllowedSources(sources []string) Option {
	return func(c *config) {
		c.allowedSources = sources
	}
}

// WithAsync makes the webhook handler respond before the event has been processed
func WithAsync(enabled bool) Option {
	return func(c *config) {
		c.async = enabled
	}
}

// WithTrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
// Enable it only behind a reverse proxy that overwrites those headers.
func WithTrustProxy(enabled bool) Option {
	return func(c *config) {
		c.trustProxy = enabled
	}
}

// Server represents the HTTP server
type Server struct {
	*http.Server
}

// NewServer creates a new HTTP server
func NewServer(
	ctx context.Context,
	processor interfaces.EventProcessor,
	opts ...Option,
) (*Server, error) {
	// Default configuration
	cfg := &config{
		addr: "localhost:8080",
	}

	// Apply options
	for _, opt := range opts {
		opt(cfg)
	}

	allowList, err := newSourceAllowList(cfg.allowedSources)
	if err != nil {
		return nil, err
	}

	router := chi.NewRouter()

	// Global middleware
	router.Use(middleware.RequestID)
	if cfg.trustProxy {
		router.Use(middleware.RealIP)
	}
	router.Use(LoggingMiddleware(ctx))
	router.Use(middleware.Recoverer)

	// Health check
	router.Get("/health", handleHealth)
	router.Get("/", handleUsage)

	// Webhook endpoint
	webhookHandler := NewWebhookHandler(processor,
		WithHandlerSecret(cfg.webhookSecret),
		WithHandlerAsync(cfg.async),
	)
	router.With(sourceFilterMiddleware(allowList)).Post("/", webhookHandler.Handle)

	server := &Server{
		Server: &http.Server{
			Addr:              cfg.addr,
			Handler:           router,
			ReadHeaderTimeout: 15 * time.Second,
		},
	}

	return server, nil
}
