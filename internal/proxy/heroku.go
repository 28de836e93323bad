// Package proxy hosts connection shims for backends the agent manages
// on behalf of a remote service rather than the local host.
package proxy

import (
	"context"

	"github.com/driftkit/driftkit/internal/config"
	"github.com/driftkit/driftkit/internal/logger"
	"github.com/driftkit/driftkit/internal/plugins/heroku"
	driftkiterrors "github.com/driftkit/driftkit/pkg/errors"
)

// Lister is the liveness probe surface of the platform client.
type Lister interface {
	ListApps(ctx context.Context) ([]heroku.App, error)
}

// Heroku is the proxy shim for the Heroku platform. It holds one
// authenticated client between Init and Shutdown.
type Heroku struct {
	log    *logger.Logger
	client Lister
}

// NewHeroku creates an uninitialized shim.
func NewHeroku(log *logger.Logger) *Heroku {
	return &Heroku{log: log.WithComponent("heroku_proxy")}
}

// Init validates the profile and builds the platform client. It does
// not call the API; reachability is Ping's job.
func (p *Heroku) Init(profile config.Profile) error {
	if profile.APIKey == "" {
		return driftkiterrors.NewValidationError("heroku_proxy", "profile has no api_key", nil)
	}
	p.client = heroku.NewClient(profile)
	p.log.Info("heroku proxy initialized")
	return nil
}

// Initialized reports whether Init has run.
func (p *Heroku) Initialized() bool {
	return p.client != nil
}

// Ping reports whether the platform API answers with the configured
// credentials.
func (p *Heroku) Ping(ctx context.Context) bool {
	if p.client == nil {
		return false
	}
	if _, err := p.client.ListApps(ctx); err != nil {
		p.log.Error(err, "heroku proxy ping failed")
		return false
	}
	return true
}

// Shutdown drops the client. Safe to call repeatedly.
func (p *Heroku) Shutdown() error {
	if p.client == nil {
		return nil
	}
	p.client = nil
	p.log.Info("heroku proxy shut down")
	return nil
}

// WithClient swaps the platform client; used by tests and by hosts
// that manage client construction themselves.
func (p *Heroku) WithClient(client Lister) *Heroku {
	p.client = client
	return p
}
