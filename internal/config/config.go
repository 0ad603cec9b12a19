package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config models genesis.yml plus the environment overrides bound by the CLI.
type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
		// BasePath prefixes every API route, defaults to /api.
		BasePath string `yaml:"base_path"`
		// APIBaseURL is the externally reachable URL handed to the runner.
		APIBaseURL string `yaml:"api_base_url"`
	} `yaml:"server"`
	Auth struct {
		JWTSecret             string `yaml:"jwt_secret"`
		TokenTTLHours         int    `yaml:"token_ttl_hours"`
		RunnerTokenTTLMinutes int    `yaml:"runner_token_ttl_minutes"`
	} `yaml:"auth"`
	Uploads struct {
		Dir string `yaml:"dir"`
	} `yaml:"uploads"`
	Runner struct {
		// Command, when set, wins over ServiceURL; exactly one strategy is
		// attempted per run.
		Command        string `yaml:"command"`
		ServiceURL     string `yaml:"service_url"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"runner"`
	Seed struct {
		Plans  []SeedPlan `yaml:"plans"`
		Tenant SeedTenant `yaml:"tenant"`
		Admin  SeedAdmin  `yaml:"admin"`
	} `yaml:"seed"`
}

type SeedPlan struct {
	Slug              string `yaml:"slug"`
	Name              string `yaml:"name"`
	MaxProjects       int    `yaml:"max_projects"`
	MaxUsersPerTenant int    `yaml:"max_users_per_tenant"`
}

type SeedTenant struct {
	Name string `yaml:"name"`
	Plan string `yaml:"plan"`
}

type SeedAdmin struct {
	Email    string `yaml:"email"`
	Name     string `yaml:"name"`
	Password string `yaml:"password"`
}

// Spec upload extensions accepted by the portal. Only .md files are
// runnable; the rest park the project in pending_conversion.
var allowedSpecExts = map[string]bool{
	".md":   true,
	".txt":  true,
	".doc":  true,
	".docx": true,
	".pdf":  true,
}

// AllowedSpecExt reports whether the filename has an accepted extension.
func AllowedSpecExt(filename string) bool {
	return allowedSpecExts[strings.ToLower(filepath.Ext(filename))]
}

// IsMarkdown reports whether the filename is a markdown spec.
func IsMarkdown(filename string) bool {
	return strings.ToLower(filepath.Ext(filename)) == ".md"
}

// TokenTTL is the lifetime of interactive login tokens.
func (c *Config) TokenTTL() time.Duration {
	if c.Auth.TokenTTLHours <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(c.Auth.TokenTTLHours) * time.Hour
}

// RunnerTokenTTL is the lifetime of the short-lived token minted for the runner.
func (c *Config) RunnerTokenTTL() time.Duration {
	if c.Auth.RunnerTokenTTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(c.Auth.RunnerTokenTTLMinutes) * time.Minute
}

// RunnerTimeout bounds the remote dispatch call.
func (c *Config) RunnerTimeout() time.Duration {
	if c.Runner.TimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.Runner.TimeoutSeconds) * time.Second
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return fmt.Errorf("config.auth.jwt_secret is required")
	}
	if c.Server.BasePath != "" && !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("config.server.base_path must start with /")
	}
	seen := map[string]bool{}
	for _, p := range c.Seed.Plans {
		if p.Slug == "" {
			return fmt.Errorf("config.seed.plans contains empty slug")
		}
		if seen[p.Slug] {
			return fmt.Errorf("config.seed.plans has duplicate slug %s", p.Slug)
		}
		seen[p.Slug] = true
	}
	if c.Seed.Tenant.Name != "" && c.Seed.Tenant.Plan == "" {
		return fmt.Errorf("config.seed.tenant.plan is required when a seed tenant is set")
	}
	if c.Seed.Tenant.Plan != "" && len(c.Seed.Plans) > 0 && !seen[c.Seed.Tenant.Plan] {
		return fmt.Errorf("config.seed.tenant.plan %s not in seed plans", c.Seed.Tenant.Plan)
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "genesis.yml")
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns the defaults if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses and validates config from raw YAML bytes. Fields absent
// from the document keep the defaults.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	var cfg Config
	cfg.Server.Addr = ":3000"
	cfg.Server.BasePath = "/api"
	cfg.Server.APIBaseURL = "http://localhost:3000"
	cfg.Auth.JWTSecret = "zentriz-genesis-dev-secret"
	cfg.Auth.TokenTTLHours = 7 * 24
	cfg.Auth.RunnerTokenTTLMinutes = 60
	cfg.Uploads.Dir = "uploads"
	cfg.Runner.TimeoutSeconds = 5
	cfg.Seed.Plans = []SeedPlan{
		{Slug: "prata", Name: "Prata", MaxProjects: 1, MaxUsersPerTenant: 3},
		{Slug: "ouro", Name: "Ouro", MaxProjects: 5, MaxUsersPerTenant: 10},
		{Slug: "diamante", Name: "Diamante", MaxProjects: 20, MaxUsersPerTenant: 50},
	}
	cfg.Seed.Tenant = SeedTenant{Name: "Demo Tenant", Plan: "ouro"}
	cfg.Seed.Admin = SeedAdmin{Email: "admin@zentriz.com", Name: "Zentriz Admin", Password: "demo"}
	return &cfg
}
