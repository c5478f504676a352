// Package session assembles the client components for one signed-in user
// and tears them down together.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/hammadahmadbhatti/AWS-Based-Server-PDF-translation-application/internal/auth"
	"github.com/hammadahmadbhatti/AWS-Based-Server-PDF-translation-application/internal/blob"
	"github.com/hammadahmadbhatti/AWS-Based-Server-PDF-translation-application/internal/bus"
	"github.com/hammadahmadbhatti/AWS-Based-Server-PDF-translation-application/internal/config"
	"github.com/hammadahmadbhatti/AWS-Based-Server-PDF-translation-application/internal/jobapi"
	"github.com/hammadahmadbhatti/AWS-Based-Server-PDF-translation-application/internal/jobs"
	"github.com/hammadahmadbhatti/AWS-Based-Server-PDF-translation-application/internal/upload"
)

// ErrNoIdentityProvider means neither a static token nor a user pool is configured.
var ErrNoIdentityProvider = errors.New("no identity provider configured: set TRANSLATOR_TOKEN or USER_POOL_ID/USER_POOL_CLIENT_ID")

// SignOuter forgets a stored identity.
type SignOuter interface {
	SignOut() error
}

// Deps are the collaborators a Session does not build itself. A Publisher
// with a Close method is closed with the session.
type Deps struct {
	Tokens     auth.TokenProvider
	SignOuter  SignOuter
	Opener     jobs.Opener
	Publisher  bus.Publisher
	Transferer blob.Transferer
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Session is the set of components serving one authenticated user.
type Session struct {
	API      *jobapi.Client
	Registry *jobs.Registry
	Uploads  *upload.Orchestrator
	Events   *bus.Events

	publisher bus.Publisher
	signOuter SignOuter
	logger    *slog.Logger
	closeOnce sync.Once
}

func New(cfg config.Config, deps Deps) (*Session, error) {
	if deps.Tokens == nil {
		return nil, fmt.Errorf("new session: %w", ErrNoIdentityProvider)
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	httpClient := deps.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	transferer := deps.Transferer
	if transferer == nil {
		transferer = blob.Router{
			HTTP:  blob.NewHTTPTransferer(nil, logger.With("component", "blob")),
			Azure: blob.NewAzureTransferer(nil, logger.With("component", "blob")),
		}
	}

	events := bus.NewEvents(deps.Publisher, cfg.EventSubject, logger.With("component", "bus"))
	api := jobapi.NewClient(cfg.APIEndpoint, deps.Tokens, httpClient, logger.With("component", "jobapi"))
	registry := jobs.NewRegistry(api, deps.Opener, jobs.Options{
		PollInterval: cfg.PollInterval,
		Events:       events,
		Logger:       logger.With("component", "jobs"),
	})
	uploads := upload.New(deps.Tokens, api, transferer, registry, upload.Options{
		MaxFileSize:  cfg.MaxFileSize,
		RefreshDelay: cfg.RefreshDelay,
		Events:       events,
		Logger:       logger.With("component", "upload"),
	})

	return &Session{
		API:       api,
		Registry:  registry,
		Uploads:   uploads,
		Events:    events,
		publisher: deps.Publisher,
		signOuter: deps.SignOuter,
		logger:    logger,
	}, nil
}

// Start begins job polling for the session.
func (s *Session) Start(ctx context.Context) error {
	return s.Registry.Start(ctx)
}

// Close stops polling and any pending refresh, then closes the publisher.
// Only the first call has effect.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.Registry.Stop()
		if c, ok := s.publisher.(interface{ Close() }); ok {
			c.Close()
		}
		s.logger.Info("session closed")
	})
}

// SignOut closes the session and forgets the stored identity.
func (s *Session) SignOut() error {
	s.Close()
	if s.signOuter == nil {
		return nil
	}
	if err := s.signOuter.SignOut(); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

// TokenProvider picks the identity provider from configuration. The
// Cognito provider is also returned so callers can sign in and out.
func TokenProvider(cfg config.Config, logger *slog.Logger) (auth.TokenProvider, *auth.CognitoProvider, error) {
	if cfg.StaticToken != "" {
		return auth.NewStaticProvider(cfg.StaticToken), nil, nil
	}
	if cfg.CognitoEnabled() {
		store := auth.NewFileSessionStore(cfg.SessionFile)
		p := auth.NewCognitoProvider(cfg.Region, cfg.UserPoolClient, store, logger.With("component", "auth"))
		return p, p, nil
	}
	return nil, nil, ErrNoIdentityProvider
}

// ConnectBus connects to NATS when configured and otherwise returns a
// publisher that drops events.
func ConnectBus(cfg config.Config, logger *slog.Logger) (bus.Publisher, error) {
	if cfg.NATSURL == "" {
		return bus.Nop{}, nil
	}
	nc, err := bus.Connect(cfg.NATSURL)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	logger.Info("connected to NATS", "nats_url", cfg.NATSURL, "subject", cfg.EventSubject)
	return nc, nil
}
