package source

import (
	"fmt"
	"log/slog"

	"github.com/mmcdole/crate/internal/adapter"
	"github.com/mmcdole/crate/internal/adapter/source/catalog"
	"github.com/mmcdole/crate/internal/domain"
)

// NewClient creates the catalog gateway for a server URL.
// This factory keeps callers independent of the HTTP implementation.
func NewClient(url string, creds domain.CredentialSource, cfg adapter.ServerConfig, logger *slog.Logger) (domain.CatalogRepository, error) {
	if url == "" {
		return nil, fmt.Errorf("server URL is required")
	}
	return catalog.NewClient(url, creds, logger,
		catalog.WithTimeout(cfg.Timeout),
		catalog.WithRetries(cfg.Retries),
	), nil
}

// NewClientFromConfig creates the gateway from the application config.
// A missing token is allowed; the server answers with an auth error.
func NewClientFromConfig(cfg *adapter.Config, creds domain.CredentialSource, logger *slog.Logger) (domain.CatalogRepository, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if creds == nil {
		creds = adapter.NewCredentials(cfg.Server.Token)
	}
	return NewClient(cfg.Server.URL, creds, cfg.Server, logger)
}

// NewAuthFlow creates the interactive login flow. A non-empty token skips the prompt.
func NewAuthFlow(token string, logger *slog.Logger) domain.AuthFlow {
	if token != "" {
		return catalog.NewAuthFlow(logger, catalog.WithToken(token))
	}
	return catalog.NewAuthFlow(logger)
}
