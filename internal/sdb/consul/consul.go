// Package consul implements the sdb driver backed by the Consul KV
// store. A profile selects it with driver: consul and supplies
// host/port/scheme/token/dc connection settings.
package consul

import (
	"context"
	"fmt"
	"net"
	"strconv"

	consulapi "github.com/hashicorp/consul/api"

	"github.com/driftkit/driftkit/internal/config"
	"github.com/driftkit/driftkit/internal/sdb"
)

// KV is the slice of the Consul KV endpoint the driver uses.
type KV interface {
	Get(key string, q *consulapi.QueryOptions) (*consulapi.KVPair, *consulapi.QueryMeta, error)
	Put(p *consulapi.KVPair, q *consulapi.WriteOptions) (*consulapi.WriteMeta, error)
}

type driver struct {
	newKV func(config.Profile) (KV, error)
}

// New creates the consul sdb driver.
func New() sdb.Driver {
	return &driver{newKV: newKV}
}

// NewWithKV creates the driver over a fixed KV endpoint.
func NewWithKV(kv KV) sdb.Driver {
	return &driver{newKV: func(config.Profile) (KV, error) { return kv, nil }}
}

var _ sdb.Driver = (*driver)(nil)

func newKV(profile config.Profile) (KV, error) {
	cfg := consulapi.DefaultConfig()
	if profile.Host != "" {
		port := profile.Port
		if port == 0 {
			port = 8500
		}
		cfg.Address = net.JoinHostPort(profile.Host, strconv.Itoa(port))
	}
	if profile.Scheme != "" {
		cfg.Scheme = profile.Scheme
	}
	if profile.Token != "" {
		cfg.Token = profile.Token
	}
	if profile.Datacenter != "" {
		cfg.Datacenter = profile.Datacenter
	}

	client, err := consulapi.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to consul: %w", err)
	}
	return client.KV(), nil
}

func (d *driver) Get(ctx context.Context, profile config.Profile, key string) (string, bool, error) {
	kv, err := d.newKV(profile)
	if err != nil {
		return "", false, err
	}

	pair, _, err := kv.Get(key, (&consulapi.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return "", false, err
	}
	if pair == nil {
		return "", false, nil
	}
	return string(pair.Value), true, nil
}

func (d *driver) Set(ctx context.Context, profile config.Profile, key, value string) error {
	kv, err := d.newKV(profile)
	if err != nil {
		return err
	}

	_, err = kv.Put(&consulapi.KVPair{Key: key, Value: []byte(value)}, (&consulapi.WriteOptions{}).WithContext(ctx))
	return err
}
