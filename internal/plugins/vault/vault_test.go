package vault

import (
	"context"
	"testing"

	vaultapi "github.com/hashicorp/vault/api"
	"github.com/stretchr/testify/require"

	"github.com/driftkit/driftkit/internal/config"
	"github.com/driftkit/driftkit/internal/model"
)

type mapResolver map[string]config.Profile

func (m mapResolver) Profile(name string) (config.Profile, bool) {
	p, ok := m[name]
	return p, ok
}

var testResolver = mapResolver{"vault-prod": {Address: "https://vault.example:8200", Token: "t"}}

// fakeSys is an in-memory system backend.
type fakeSys struct {
	initialized bool
	sealed      bool
	initCalls   int
	unsealCalls int
	policies    map[string]string
	auth        map[string]*vaultapi.AuthMount
	audit       map[string]*vaultapi.Audit
	enabledAuth []string
}

func newFakeSys() *fakeSys {
	return &fakeSys{
		policies: map[string]string{},
		auth:     map[string]*vaultapi.AuthMount{},
		audit:    map[string]*vaultapi.Audit{},
	}
}

func (f *fakeSys) InitStatusWithContext(context.Context) (bool, error) {
	return f.initialized, nil
}

func (f *fakeSys) InitWithContext(_ context.Context, req *vaultapi.InitRequest) (*vaultapi.InitResponse, error) {
	f.initCalls++
	f.initialized = true
	f.sealed = true
	keys := make([]string, req.SecretShares)
	for i := range keys {
		keys[i] = "shard"
	}
	return &vaultapi.InitResponse{Keys: keys, KeysB64: keys, RootToken: "root-token"}, nil
}

func (f *fakeSys) UnsealWithContext(context.Context, string) (*vaultapi.SealStatusResponse, error) {
	f.unsealCalls++
	if f.unsealCalls >= 3 {
		f.sealed = false
	}
	return &vaultapi.SealStatusResponse{Sealed: f.sealed}, nil
}

func (f *fakeSys) ListAuthWithContext(context.Context) (map[string]*vaultapi.AuthMount, error) {
	return f.auth, nil
}

func (f *fakeSys) EnableAuthWithOptionsWithContext(_ context.Context, path string, options *vaultapi.EnableAuthOptions) error {
	f.enabledAuth = append(f.enabledAuth, path)
	f.auth[path+"/"] = &vaultapi.AuthMount{Type: options.Type, Description: options.Description}
	return nil
}

func (f *fakeSys) ListAuditWithContext(context.Context) (map[string]*vaultapi.Audit, error) {
	return f.audit, nil
}

func (f *fakeSys) EnableAuditWithOptionsWithContext(_ context.Context, path string, options *vaultapi.EnableAuditOptions) error {
	f.audit[path+"/"] = &vaultapi.Audit{Type: options.Type, Options: options.Options}
	return nil
}

func (f *fakeSys) PutPolicyWithContext(_ context.Context, name, rules string) error {
	f.policies[name] = rules
	return nil
}

func (f *fakeSys) GetPolicyWithContext(_ context.Context, name string) (string, error) {
	return f.policies[name], nil
}

func initStep(unseal bool) *config.Step {
	return &config.Step{
		ID:        "vault_ready",
		Type:      "vault_initialized",
		Profile:   "vault-prod",
		VaultInit: &config.VaultInitStep{Unseal: unseal},
	}
}

func TestInitializedEvaluateMissing(t *testing.T) {
	t.Parallel()

	sys := newFakeSys()
	p := NewInitializedWithSys(testResolver, sys)

	eval, err := p.Evaluate(context.Background(), initStep(false))
	require.NoError(t, err)
	require.Equal(t, model.StatusMissing, eval.CurrentState)
	require.True(t, eval.RequiresAction)
	require.Equal(t, map[string]any{"old": nil, "new": "vault"}, eval.Changes)
	require.Zero(t, sys.initCalls, "evaluation must not initialize")
}

func TestInitializedEvaluateSatisfied(t *testing.T) {
	t.Parallel()

	sys := newFakeSys()
	sys.initialized = true
	p := NewInitializedWithSys(testResolver, sys)

	eval, err := p.Evaluate(context.Background(), initStep(false))
	require.NoError(t, err)
	require.Equal(t, model.StatusSatisfied, eval.CurrentState)
	require.False(t, eval.RequiresAction)
	require.Contains(t, eval.Message, "vault has correct config")
}

func TestInitializedApplyRecordsRootCredentials(t *testing.T) {
	t.Parallel()

	sys := newFakeSys()
	p := NewInitializedWithSys(testResolver, sys)

	result, err := p.Apply(context.Background(), nil, initStep(false))
	require.NoError(t, err)
	require.Equal(t, model.StatusSuccess, result.Status)
	require.Contains(t, result.Message, "Created vault")
	require.Equal(t, 1, sys.initCalls)

	creds, ok := result.Changes["root_credentials"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "root-token", creds["root_token"])
}

func TestInitializedApplyUnseals(t *testing.T) {
	t.Parallel()

	sys := newFakeSys()
	p := NewInitializedWithSys(testResolver, sys)

	_, err := p.Apply(context.Background(), nil, initStep(true))
	require.NoError(t, err)
	require.Equal(t, 3, sys.unsealCalls, "unsealing stops once the threshold is reached")
	require.False(t, sys.sealed)
}

func TestInitializedApplyIsIdempotent(t *testing.T) {
	t.Parallel()

	sys := newFakeSys()
	sys.initialized = true
	p := NewInitializedWithSys(testResolver, sys)

	result, err := p.Apply(context.Background(), nil, initStep(false))
	require.NoError(t, err)
	require.Equal(t, model.StatusSuccess, result.Status)
	require.Zero(t, sys.initCalls)
	require.NotContains(t, result.Changes, "root_credentials")
}

func policyStep(rules string) *config.Step {
	return &config.Step{
		ID:          "web_policy",
		Type:        "vault_policy",
		Profile:     "vault-prod",
		VaultPolicy: &config.VaultPolicyStep{Policy: "web", Rules: rules},
	}
}

func TestPolicyCreate(t *testing.T) {
	t.Parallel()

	sys := newFakeSys()
	p := NewPolicyWithSys(testResolver, sys)

	eval, err := p.Evaluate(context.Background(), policyStep(`path "secret/*" { capabilities = ["read"] }`))
	require.NoError(t, err)
	require.Equal(t, model.StatusMissing, eval.CurrentState)

	result, err := p.Apply(context.Background(), nil, policyStep(`path "secret/*" { capabilities = ["read"] }`))
	require.NoError(t, err)
	require.Equal(t, model.StatusSuccess, result.Status)
	require.Contains(t, result.Message, "Created web")
	require.Equal(t, `path "secret/*" { capabilities = ["read"] }`, sys.policies["web"])
}

func TestPolicyUpdateOnDrift(t *testing.T) {
	t.Parallel()

	sys := newFakeSys()
	sys.policies["web"] = "old rules"
	p := NewPolicyWithSys(testResolver, sys)

	eval, err := p.Evaluate(context.Background(), policyStep("new rules"))
	require.NoError(t, err)
	require.Equal(t, model.StatusDrifted, eval.CurrentState)
	require.Equal(t, "old rules", sys.policies["web"], "evaluation must not write")

	result, err := p.Apply(context.Background(), nil, policyStep("new rules"))
	require.NoError(t, err)
	require.Contains(t, result.Message, "Updated web")
	require.Equal(t, "new rules", sys.policies["web"])
}

func TestPolicySatisfied(t *testing.T) {
	t.Parallel()

	sys := newFakeSys()
	sys.policies["web"] = "rules"
	p := NewPolicyWithSys(testResolver, sys)

	eval, err := p.Evaluate(context.Background(), policyStep("rules"))
	require.NoError(t, err)
	require.Equal(t, model.StatusSatisfied, eval.CurrentState)
}

func TestAuthBackendEnable(t *testing.T) {
	t.Parallel()

	sys := newFakeSys()
	p := NewAuthBackendWithSys(testResolver, sys)

	step := &config.Step{
		ID:        "ldap_auth",
		Type:      "vault_auth_backend",
		Profile:   "vault-prod",
		VaultAuth: &config.VaultAuthStep{BackendType: "ldap"},
	}

	eval, err := p.Evaluate(context.Background(), step)
	require.NoError(t, err)
	require.Equal(t, model.StatusMissing, eval.CurrentState)
	require.Empty(t, sys.enabledAuth)

	result, err := p.Apply(context.Background(), nil, step)
	require.NoError(t, err)
	require.Equal(t, model.StatusSuccess, result.Status)
	require.Equal(t, []string{"ldap"}, sys.enabledAuth)

	// A second evaluation sees the mount and reports satisfied.
	eval, err = p.Evaluate(context.Background(), step)
	require.NoError(t, err)
	require.Equal(t, model.StatusSatisfied, eval.CurrentState)
}

func TestAuthBackendCustomMountPoint(t *testing.T) {
	t.Parallel()

	sys := newFakeSys()
	sys.auth["corp-ldap/"] = &vaultapi.AuthMount{Type: "ldap"}
	p := NewAuthBackendWithSys(testResolver, sys)

	step := &config.Step{
		ID:        "ldap_auth",
		Type:      "vault_auth_backend",
		Profile:   "vault-prod",
		VaultAuth: &config.VaultAuthStep{BackendType: "ldap", MountPoint: "corp-ldap"},
	}

	eval, err := p.Evaluate(context.Background(), step)
	require.NoError(t, err)
	require.Equal(t, model.StatusSatisfied, eval.CurrentState)
}

func TestAuditBackendEnableWithOptions(t *testing.T) {
	t.Parallel()

	sys := newFakeSys()
	p := NewAuditBackendWithSys(testResolver, sys)

	step := &config.Step{
		ID:      "file_audit",
		Type:    "vault_audit_backend",
		Profile: "vault-prod",
		VaultAudit: &config.VaultAuditStep{
			BackendType: "file",
			Options:     map[string]string{"file_path": "/var/log/vault_audit.log"},
		},
	}

	result, err := p.Apply(context.Background(), nil, step)
	require.NoError(t, err)
	require.Equal(t, model.StatusSuccess, result.Status)

	mount, ok := sys.audit["file/"]
	require.True(t, ok)
	require.Equal(t, "file", mount.Type)
	require.Equal(t, "/var/log/vault_audit.log", mount.Options["file_path"])
}

func TestUnknownProfile(t *testing.T) {
	t.Parallel()

	p := NewInitializedWithSys(mapResolver{}, newFakeSys())

	_, err := p.Evaluate(context.Background(), initStep(false))
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown profile")
}
