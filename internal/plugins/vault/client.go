package vault

import (
	"context"

	vaultapi "github.com/hashicorp/vault/api"

	"github.com/driftkit/driftkit/internal/config"
)

// Sys is the slice of the Vault system backend the plugins drive.
// *vaultapi.Sys satisfies it; tests substitute a fake.
type Sys interface {
	InitStatusWithContext(ctx context.Context) (bool, error)
	InitWithContext(ctx context.Context, opts *vaultapi.InitRequest) (*vaultapi.InitResponse, error)
	UnsealWithContext(ctx context.Context, shard string) (*vaultapi.SealStatusResponse, error)
	ListAuthWithContext(ctx context.Context) (map[string]*vaultapi.AuthMount, error)
	EnableAuthWithOptionsWithContext(ctx context.Context, path string, options *vaultapi.EnableAuthOptions) error
	ListAuditWithContext(ctx context.Context) (map[string]*vaultapi.Audit, error)
	EnableAuditWithOptionsWithContext(ctx context.Context, path string, options *vaultapi.EnableAuditOptions) error
	PutPolicyWithContext(ctx context.Context, name, rules string) error
	GetPolicyWithContext(ctx context.Context, name string) (string, error)
}

// SysFactory builds a system-backend handle from a connection profile.
type SysFactory func(config.Profile) (Sys, error)

// NewSys connects to the Vault server named by the profile.
func NewSys(profile config.Profile) (Sys, error) {
	cfg := vaultapi.DefaultConfig()
	if profile.Address != "" {
		cfg.Address = profile.Address
	}
	client, err := vaultapi.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	if profile.Token != "" {
		client.SetToken(profile.Token)
	}
	return client.Sys(), nil
}
