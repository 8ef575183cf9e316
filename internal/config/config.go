// Package config provides YAML-based configuration loading for Switchman.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Switchman configuration, loaded from
// switchman.yaml. The Jira API token never appears here; it comes
// from the JIRA_API_TOKEN environment variable.
type Config struct {
	Port      int              `yaml:"port"`
	Jira      JiraConfig       `yaml:"jira"`
	Log       LogConfig        `yaml:"log"`
	Fields    FieldMap         `yaml:"fields"`
	Notify    NotifyConfig     `yaml:"notify"`
	Schedules []ScheduleConfig `yaml:"schedules"`
}

// JiraConfig holds connection settings for the upstream Jira instance.
type JiraConfig struct {
	BaseURL   string `yaml:"base_url"`
	PageSize  int    `yaml:"page_size"`
	MaxIssues int    `yaml:"max_issues"`
}

// LogConfig selects the run-log backend. "file" appends to a local
// text file; "sqlite" and "mysql" store blocks as rows.
type LogConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
	DSN     string `yaml:"dsn"`
}

// FieldMap maps semantic field roles to deployment-specific Jira custom
// field identifiers, so workflow code never hardcodes magic ids.
type FieldMap struct {
	TargetRelease  string `yaml:"target_release"`
	TargetVersion  string `yaml:"target_version"`
	SRNumber       string `yaml:"sr_number"`
	SalesForceCR   string `yaml:"salesforce_cr"`
	Customer       string `yaml:"customer"`
	SourceSR       string `yaml:"source_sr"`
	SourceCR       string `yaml:"source_cr"`
	SourceCustomer string `yaml:"source_customer"`
}

// NotifyConfig holds optional webhook URLs for run summaries.
type NotifyConfig struct {
	SlackWebhook   string `yaml:"slack_webhook"`
	DiscordWebhook string `yaml:"discord_webhook"`
}

// ScheduleConfig defines a cron-driven workflow run.
type ScheduleConfig struct {
	Cron     string `yaml:"cron"`
	Workflow string `yaml:"workflow"`
	JQL      string `yaml:"jql"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnv overrides file values with process environment settings.
// JIRA_URL and PORT take precedence over the YAML file so deployments
// can retarget an instance without editing config.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("JIRA_URL"); v != "" {
		c.Jira.BaseURL = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			c.Port = p
		}
	}
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = 5000
	}
	if c.Jira.PageSize == 0 {
		c.Jira.PageSize = 50
	}
	if c.Jira.MaxIssues == 0 {
		c.Jira.MaxIssues = 100
	}
	if c.Log.Backend == "" {
		c.Log.Backend = "file"
	}
	if c.Log.Backend == "file" && c.Log.Path == "" {
		c.Log.Path = "switchman.log"
	}
	if c.Log.Backend == "sqlite" && c.Log.DSN == "" {
		c.Log.DSN = "switchman.db"
	}
	c.Fields.applyDefaults()
}

func (f *FieldMap) applyDefaults() {
	def := func(field *string, id string) {
		if *field == "" {
			*field = id
		}
	}
	def(&f.TargetRelease, "customfield_17644")
	def(&f.TargetVersion, "customfield_11200")
	def(&f.SRNumber, "customfield_17643")
	def(&f.SalesForceCR, "customfield_17687")
	def(&f.Customer, "customfield_17674")
	def(&f.SourceSR, "customfield_17801")
	def(&f.SourceCR, "customfield_17800")
	def(&f.SourceCustomer, "customfield_15507")
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Jira.BaseURL == "" && os.Getenv("JIRA_URL") == "" {
		errs = append(errs, "jira.base_url is required (or set JIRA_URL)")
	}
	if c.Jira.PageSize < 1 {
		errs = append(errs, "jira.page_size must be positive")
	}
	if c.Jira.MaxIssues < 1 {
		errs = append(errs, "jira.max_issues must be positive")
	}
	switch c.Log.Backend {
	case "file":
		if c.Log.Path == "" {
			errs = append(errs, "log.path is required for the file backend")
		}
	case "sqlite", "mysql":
		if c.Log.DSN == "" {
			errs = append(errs, fmt.Sprintf("log.dsn is required for the %s backend", c.Log.Backend))
		}
	default:
		errs = append(errs, fmt.Sprintf("log.backend %q is not one of file, sqlite, mysql", c.Log.Backend))
	}
	for i, s := range c.Schedules {
		if s.Cron == "" {
			errs = append(errs, fmt.Sprintf("schedules[%d].cron is required", i))
		}
		if s.Workflow == "" {
			errs = append(errs, fmt.Sprintf("schedules[%d].workflow is required", i))
		}
		if s.JQL == "" {
			errs = append(errs, fmt.Sprintf("schedules[%d].jql is required", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
