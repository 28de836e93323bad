package config

import (
	"gopkg.in/yaml.v3"

	"github.com/driftkit/driftkit/pkg/assert"
)

// Config represents the full driftkit configuration document.
type Config struct {
	Version     string             `yaml:"version" validate:"required"`
	Name        string             `yaml:"name" validate:"required,min=1,max=100"`
	Description string             `yaml:"description,omitempty"`
	Settings    Settings           `yaml:"settings,omitempty"`
	Profiles    map[string]Profile `yaml:"profiles,omitempty" validate:"omitempty,dive"`
	Steps       []Step             `yaml:"steps,omitempty" validate:"omitempty,dive"`
	Beacons     Beacons            `yaml:"beacons,omitempty"`
}

// Settings holds global execution parameters.
type Settings struct {
	Timeout         int  `yaml:"timeout,omitempty" validate:"omitempty,min=1,max=360000"`
	ContinueOnError bool `yaml:"continue_on_error,omitempty"`
	DryRun          bool `yaml:"dry_run,omitempty"`
	Verbose         bool `yaml:"verbose,omitempty"`
}

// Profile carries connection settings for one backend. Which keys are
// meaningful depends on the consumer: the consul sdb driver reads
// host/port/scheme/token/datacenter, the vault plugin reads
// address/token, the heroku plugin reads api_key/api_url, and the
// cloudfront plugin reads region/aws_profile. Secrets themselves are
// resolved by the wrapped SDKs where possible.
type Profile struct {
	Driver     string `yaml:"driver,omitempty"`
	Host       string `yaml:"host,omitempty"`
	Port       int    `yaml:"port,omitempty" validate:"omitempty,min=1,max=65535"`
	Scheme     string `yaml:"scheme,omitempty" validate:"omitempty,oneof=http https"`
	Token      string `yaml:"token,omitempty"`
	Datacenter string `yaml:"dc,omitempty"`
	Address    string `yaml:"address,omitempty"`
	APIKey     string `yaml:"api_key,omitempty"`
	APIURL     string `yaml:"api_url,omitempty"`
	Region     string `yaml:"region,omitempty"`
	AWSProfile string `yaml:"aws_profile,omitempty"`
}

// Step describes an individual unit of work.
type Step struct {
	ID      string `yaml:"id" validate:"required"`
	Name    string `yaml:"name,omitempty"`
	Type    string `yaml:"type" validate:"required,oneof=cloudfront_distribution heroku_config_vars vault_initialized vault_policy vault_auth_backend vault_audit_backend infra_test"`
	Profile string `yaml:"profile,omitempty"`
	Enabled bool   `yaml:"enabled,omitempty"`

	CloudFront  *CloudFrontStep  `yaml:",inline,omitempty"`
	Heroku      *HerokuStep      `yaml:",inline,omitempty"`
	VaultInit   *VaultInitStep   `yaml:",inline,omitempty"`
	VaultPolicy *VaultPolicyStep `yaml:",inline,omitempty"`
	VaultAuth   *VaultAuthStep   `yaml:",inline,omitempty"`
	VaultAudit  *VaultAuditStep  `yaml:",inline,omitempty"`
	InfraTest   *InfraTestStep   `yaml:",inline,omitempty"`
}

// CloudFrontStep ensures a CloudFront distribution exists with the
// given configuration and tags. The distribution is identified by its
// Name tag. Config keys use the CloudFront API field names
// (CallerReference, Comment, Enabled, Origins, ...).
type CloudFrontStep struct {
	Distribution string         `yaml:"distribution" validate:"required"`
	Config       map[string]any `yaml:"config" validate:"required"`
	Tags         map[string]string `yaml:"tags,omitempty"`
}

// HerokuStep converges an app's config vars. When Override is set the
// existing vars are replaced wholesale instead of merged; that path is
// destructive for keys not listed in ConfigVars.
type HerokuStep struct {
	App        string            `yaml:"app" validate:"required"`
	ConfigVars map[string]string `yaml:"config_vars" validate:"required"`
	Override   bool              `yaml:"override,omitempty"`
}

// VaultInitStep initializes a vault cluster if it is not initialized.
type VaultInitStep struct {
	SecretShares    int      `yaml:"secret_shares,omitempty"`
	SecretThreshold int      `yaml:"secret_threshold,omitempty"`
	PGPKeys         []string `yaml:"pgp_keys,omitempty"`
	Unseal          bool     `yaml:"unseal,omitempty"`
}

// VaultPolicyStep creates or updates a named policy.
type VaultPolicyStep struct {
	Policy string `yaml:"policy" validate:"required"`
	Rules  string `yaml:"rules" validate:"required"`
}

// VaultAuthStep ensures an auth backend is enabled.
type VaultAuthStep struct {
	BackendType string `yaml:"backend_type" validate:"required"`
	Description string `yaml:"description,omitempty"`
	MountPoint  string `yaml:"mount_point,omitempty"`
}

// VaultAuditStep ensures an audit backend is enabled.
type VaultAuditStep struct {
	BackendType string            `yaml:"backend_type" validate:"required"`
	Description string            `yaml:"description,omitempty"`
	MountPoint  string            `yaml:"mount_point,omitempty"`
	Options     map[string]string `yaml:"options,omitempty"`
}

// InfraTestStep runs declarative assertions against a capability
// backend (file, port, command).
type InfraTestStep struct {
	Backend string           `yaml:"backend" validate:"required"`
	Target  string           `yaml:"target" validate:"required"`
	Checks  map[string]Check `yaml:"checks" validate:"required,min=1"`
}

// Check pairs an expectation with the optional parameter a method
// capability needs. The YAML forms mirror the expectation forms:
//
//	exists: true
//	mode: {match: "0644", comparison: eq}
//	contains: {parameter: "root", match: true}
type Check struct {
	Parameter   string
	HasParam    bool
	Expectation assert.Expectation
}

// UnmarshalYAML decodes a check from either a literal boolean or a
// mapping with optional parameter and match/comparison keys.
func (c *Check) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var exp assert.Expectation
		if err := value.Decode(&exp); err != nil {
			return err
		}
		c.Expectation = exp
		return nil
	}

	var raw struct {
		Parameter  *string           `yaml:"parameter"`
		Match      any               `yaml:"match"`
		Comparison assert.Comparison `yaml:"comparison"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.Parameter != nil {
		c.Parameter = *raw.Parameter
		c.HasParam = true
	}
	if b, ok := raw.Match.(bool); ok && raw.Comparison == assert.ComparisonEq {
		c.Expectation = assert.Bool(b)
		return nil
	}
	c.Expectation = assert.Match(raw.Match, raw.Comparison)
	return nil
}

// Beacons holds beacon configuration.
type Beacons struct {
	// Interval is the probe cadence in seconds for the beacon runner.
	Interval   int               `yaml:"interval,omitempty" validate:"omitempty,min=1"`
	HTTPStatus *HTTPStatusBeacon `yaml:"http_status,omitempty"`
}

// HTTPStatusBeacon configures the HTTP status beacon.
type HTTPStatusBeacon struct {
	Sites map[string]Site `yaml:"sites" validate:"required,min=1,dive"`
}

// Site is one monitored status endpoint.
type Site struct {
	StatusEndpoint string          `yaml:"status_endpoint" validate:"required,url"`
	Timeout        int             `yaml:"timeout,omitempty" validate:"omitempty,min=1"`
	JSONResponse   []ResponseCheck `yaml:"json_response" validate:"required,min=1,dive"`
	HTMLResponse   []ResponseCheck `yaml:"html_response,omitempty" validate:"omitempty,dive"`
}

// ResponseCheck declares one expectation against a probed response.
// For json_response items Path addresses a value as "service:key";
// html_response items match Value against the raw body.
type ResponseCheck struct {
	Path  string `yaml:"path,omitempty"`
	Value any    `yaml:"value" validate:"required"`
	Comp  string `yaml:"comp" validate:"required"`
}

// UnmarshalYAML customises step decoding to populate type-specific
// structures without conflicts.
func (s *Step) UnmarshalYAML(value *yaml.Node) error {
	type baseStep struct {
		ID      string `yaml:"id"`
		Name    string `yaml:"name"`
		Type    string `yaml:"type"`
		Profile string `yaml:"profile"`
		Enabled *bool  `yaml:"enabled"`
	}

	var base baseStep
	if err := value.Decode(&base); err != nil {
		return err
	}

	s.ID = base.ID
	s.Name = base.Name
	s.Type = base.Type
	s.Profile = base.Profile
	if base.Enabled != nil {
		s.Enabled = *base.Enabled
	} else {
		s.Enabled = true
	}

	s.CloudFront = nil
	s.Heroku = nil
	s.VaultInit = nil
	s.VaultPolicy = nil
	s.VaultAuth = nil
	s.VaultAudit = nil
	s.InfraTest = nil

	switch base.Type {
	case "cloudfront_distribution":
		var cf CloudFrontStep
		if err := value.Decode(&cf); err != nil {
			return err
		}
		s.CloudFront = &cf
	case "heroku_config_vars":
		var hk HerokuStep
		if err := value.Decode(&hk); err != nil {
			return err
		}
		s.Heroku = &hk
	case "vault_initialized":
		var vi VaultInitStep
		if err := value.Decode(&vi); err != nil {
			return err
		}
		s.VaultInit = &vi
	case "vault_policy":
		var vp VaultPolicyStep
		if err := value.Decode(&vp); err != nil {
			return err
		}
		s.VaultPolicy = &vp
	case "vault_auth_backend":
		var va VaultAuthStep
		if err := value.Decode(&va); err != nil {
			return err
		}
		s.VaultAuth = &va
	case "vault_audit_backend":
		var vd VaultAuditStep
		if err := value.Decode(&vd); err != nil {
			return err
		}
		s.VaultAudit = &vd
	case "infra_test":
		var it InfraTestStep
		if err := value.Decode(&it); err != nil {
			return err
		}
		s.InfraTest = &it
	}

	return nil
}
