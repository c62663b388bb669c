// Package config loads and validates the investigation configuration
// document.
//
// Settings come from a YAML file with ${VAR} environment substitution for
// API keys. Validation happens at load time:
// - Every workflow role must be assigned a configured provider
// - Temperature and max_tokens are required per provider (their absence
//   is fatal at client construction, never at request time)
// - Paths and output filenames receive defaults when omitted

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config is the full configuration document.
type Config struct {
	APIs     map[string]APIConfig `yaml:"apis"`
	Workflow WorkflowConfig       `yaml:"workflow"`
	Paths    PathsConfig          `yaml:"paths"`
	Output   OutputConfig         `yaml:"output"`
}

// APIConfig holds one provider's credentials and request parameters.
// Temperature and MaxTokens are pointers: a missing value is a
// configuration error, not a zero.
type APIConfig struct {
	APIKey      string   `yaml:"api_key"`
	BaseURL     string   `yaml:"base_url"`
	Model       string   `yaml:"model"`
	Temperature *float32 `yaml:"temperature"`
	MaxTokens   *int     `yaml:"max_tokens"`
}

// WorkflowConfig assigns providers to the three roles and bounds retries.
type WorkflowConfig struct {
	AIA             string `yaml:"ai_a"`
	AIB             string `yaml:"ai_b"`
	FinalArbitrator string `yaml:"final_arbitrator"`
	RetryAttempts   int    `yaml:"retry_attempts"`
}

// PathsConfig holds input locations.
type PathsConfig struct {
	BugFile             string   `yaml:"bug_file"`
	CodebaseFolder      string   `yaml:"codebase_folder"`
	PromptsFolder       string   `yaml:"prompts_folder"`
	SupportedExtensions []string `yaml:"supported_extensions"`
}

// OutputConfig holds the artifact paths, one per persisted stage output.
type OutputConfig struct {
	AuditReportA    string `yaml:"audit_report_a"`
	AuditReportB    string `yaml:"audit_report_b"`
	ConsolidationA  string `yaml:"consolidation_a"`
	ConsolidationB  string `yaml:"consolidation_b"`
	DefinitiveFixes string `yaml:"definitive_fixes"`
}

// ForRunDir returns a copy of the output paths rebased into dir: each
// filename is preserved, its directory replaced. The receiver is never
// mutated, so the base configuration can be shared across runs.
func (o OutputConfig) ForRunDir(dir string) OutputConfig {
	rebase := func(path string) string {
		return filepath.Join(dir, filepath.Base(path))
	}
	return OutputConfig{
		AuditReportA:    rebase(o.AuditReportA),
		AuditReportB:    rebase(o.AuditReportB),
		ConsolidationA:  rebase(o.ConsolidationA),
		ConsolidationB:  rebase(o.ConsolidationB),
		DefinitiveFixes: rebase(o.DefinitiveFixes),
	}
}

// DefaultExtensions is the supported file extension list used when the
// configuration omits one.
var DefaultExtensions = []string{
	".py", ".js", ".java", ".cpp", ".c", ".h", ".cs",
	".php", ".rb", ".go", ".rs", ".ts", ".jsx", ".tsx",
}

// Load reads, substitutes, and validates the configuration at path.
func Load(path string, logger *zap.Logger) (*Config, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file %s not found", path)
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config syntax in %s: %w", path, err)
	}

	cfg.substituteEnv(logger)
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	logger.Info("configuration loaded", zap.String("path", path))
	return &cfg, nil
}

// substituteEnv resolves ${VAR} placeholders in api_key fields.
func (c *Config) substituteEnv(logger *zap.Logger) {
	for name, api := range c.APIs {
		key := api.APIKey
		if strings.HasPrefix(key, "${") && strings.HasSuffix(key, "}") {
			envVar := key[2 : len(key)-1]
			if actual := os.Getenv(envVar); actual != "" {
				api.APIKey = actual
				c.APIs[name] = api
				logger.Info("loaded API key from environment",
					zap.String("provider", name), zap.String("env_var", envVar))
			} else {
				logger.Warn("environment variable not set for provider",
					zap.String("provider", name), zap.String("env_var", envVar))
			}
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Workflow.RetryAttempts <= 0 {
		c.Workflow.RetryAttempts = 3
	}
	if c.Paths.BugFile == "" {
		c.Paths.BugFile = "bug.txt"
	}
	if c.Paths.CodebaseFolder == "" {
		c.Paths.CodebaseFolder = "codebase"
	}
	if c.Paths.PromptsFolder == "" {
		c.Paths.PromptsFolder = "prompts"
	}
	if len(c.Paths.SupportedExtensions) == 0 {
		c.Paths.SupportedExtensions = append([]string(nil), DefaultExtensions...)
	}
	if c.Output.AuditReportA == "" {
		c.Output.AuditReportA = "audit_report_a.md"
	}
	if c.Output.AuditReportB == "" {
		c.Output.AuditReportB = "audit_report_b.md"
	}
	if c.Output.ConsolidationA == "" {
		c.Output.ConsolidationA = "consolidation_a.md"
	}
	if c.Output.ConsolidationB == "" {
		c.Output.ConsolidationB = "consolidation_b.md"
	}
	if c.Output.DefinitiveFixes == "" {
		c.Output.DefinitiveFixes = "definitive_fixes.md"
	}
}

func (c *Config) validate() error {
	roles := []struct {
		role     string
		provider string
	}{
		{"ai_a", c.Workflow.AIA},
		{"ai_b", c.Workflow.AIB},
		{"final_arbitrator", c.Workflow.FinalArbitrator},
	}
	for _, r := range roles {
		if r.provider == "" {
			return fmt.Errorf("workflow role %s is not assigned a provider", r.role)
		}
		if _, ok := c.APIs[r.provider]; !ok {
			return fmt.Errorf("workflow role %s references unconfigured provider %q", r.role, r.provider)
		}
	}
	return nil
}

// API returns the configuration for a provider name.
func (c *Config) API(provider string) (APIConfig, error) {
	api, ok := c.APIs[provider]
	if !ok {
		return APIConfig{}, fmt.Errorf("no configuration for provider %q", provider)
	}
	return api, nil
}

// RoleProviders returns the fixed-order list of (role, provider)
// assignments.
func (c *Config) RoleProviders() [][2]string {
	return [][2]string{
		{"ai_a", c.Workflow.AIA},
		{"ai_b", c.Workflow.AIB},
		{"final_arbitrator", c.Workflow.FinalArbitrator},
	}
}
