// Package sdb resolves small-data URIs of the form sdb://profile/key
// against pluggable key-value drivers. The profile names a connection
// profile in the configuration; its driver key selects the backend.
package sdb

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/driftkit/driftkit/internal/config"
	"github.com/driftkit/driftkit/internal/plugin"
	driftkiterrors "github.com/driftkit/driftkit/pkg/errors"
)

// Scheme is the URI scheme for small-data lookups.
const Scheme = "sdb://"

// Driver is a key-value backend. Get reports a missing key with a
// false second return, not an error.
type Driver interface {
	Get(ctx context.Context, profile config.Profile, key string) (string, bool, error)
	Set(ctx context.Context, profile config.Profile, key, value string) error
}

// Registry maps driver names to implementations.
type Registry struct {
	mu      sync.RWMutex
	drivers map[string]Driver
}

// NewRegistry creates an empty driver registry.
func NewRegistry() *Registry {
	return &Registry{drivers: map[string]Driver{}}
}

// Register adds a driver under a name.
func (r *Registry) Register(name string, d Driver) error {
	if d == nil {
		return driftkiterrors.NewPluginError(name, fmt.Errorf("driver cannot be nil"))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.drivers[name]; exists {
		return driftkiterrors.NewPluginError(name, fmt.Errorf("driver already registered"))
	}
	r.drivers[name] = d
	return nil
}

// Driver looks up a registered driver.
func (r *Registry) Driver(name string) (Driver, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.drivers[name]
	return d, ok
}

// Drivers lists registered driver names in sorted order.
func (r *Registry) Drivers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.drivers))
	for name := range r.drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseURI splits an sdb URI into its profile and key parts. The key
// may itself contain slashes.
func ParseURI(uri string) (profile, key string, err error) {
	if !strings.HasPrefix(uri, Scheme) {
		return "", "", driftkiterrors.NewValidationError("sdb", fmt.Sprintf("%q is not an sdb URI", uri), nil)
	}
	rest := strings.TrimPrefix(uri, Scheme)
	profile, key, found := strings.Cut(rest, "/")
	if !found || profile == "" || key == "" {
		return "", "", driftkiterrors.NewValidationError("sdb", fmt.Sprintf("sdb URI %q must have the form sdb://profile/key", uri), nil)
	}
	return profile, key, nil
}

// Store resolves sdb URIs against configured profiles.
type Store struct {
	profiles plugin.ProfileResolver
	registry *Registry
}

// NewStore binds a profile source to a driver registry.
func NewStore(profiles plugin.ProfileResolver, registry *Registry) *Store {
	return &Store{profiles: profiles, registry: registry}
}

// Get resolves an sdb URI to its value. A missing key is reported via
// the boolean, matching the driver contract.
func (s *Store) Get(ctx context.Context, uri string) (string, bool, error) {
	driver, profile, key, err := s.resolve(uri)
	if err != nil {
		return "", false, err
	}
	return driver.Get(ctx, profile, key)
}

// Set writes a value through an sdb URI.
func (s *Store) Set(ctx context.Context, uri, value string) error {
	driver, profile, key, err := s.resolve(uri)
	if err != nil {
		return err
	}
	return driver.Set(ctx, profile, key, value)
}

func (s *Store) resolve(uri string) (Driver, config.Profile, string, error) {
	profileName, key, err := ParseURI(uri)
	if err != nil {
		return nil, config.Profile{}, "", err
	}

	profile, ok := s.profiles.Profile(profileName)
	if !ok {
		return nil, config.Profile{}, "", driftkiterrors.NewValidationError("sdb", fmt.Sprintf("unknown profile %q", profileName), nil)
	}
	if profile.Driver == "" {
		return nil, config.Profile{}, "", driftkiterrors.NewValidationError("sdb", fmt.Sprintf("profile %q has no driver", profileName), nil)
	}

	driver, ok := s.registry.Driver(profile.Driver)
	if !ok {
		return nil, config.Profile{}, "", driftkiterrors.NewValidationError("sdb", fmt.Sprintf("no sdb driver named %q", profile.Driver), nil)
	}
	return driver, profile, key, nil
}
