package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	DefaultFormat string `yaml:"default_format,omitempty"`
	DataDir       string `yaml:"data_dir,omitempty"`

	// Extra bot logins excluded from role evidence, on top of the
	// built-in suffix detection.
	Bots []string `yaml:"bots,omitempty"`

	// Extra bot merge commands. A comment starting with one of these
	// credits its author with the merge a bot performed.
	MergeCommands []string `yaml:"merge_commands,omitempty"`

	// Top-level config sections
	Thresholds *ThresholdOverrides `yaml:"thresholds,omitempty"`
	Weights    *WeightOverrides    `yaml:"weights,omitempty"`
	Docs       *DocsOverrides      `yaml:"docs,omitempty"`
	Crawl      *CrawlOverrides     `yaml:"crawl,omitempty"`
}

// ThresholdOverrides allows customizing the minimum evidence count a user
// needs before a role is attributed.
type ThresholdOverrides struct {
	IssueReporter   *int `yaml:"issue_reporter,omitempty"`
	IssueResponder  *int `yaml:"issue_responder,omitempty"`
	CodeContributor *int `yaml:"code_contributor,omitempty"`
	DocContributor  *int `yaml:"documentation_contributor,omitempty"`
	Reviewer        *int `yaml:"reviewer,omitempty"`
	Maintainer      *int `yaml:"maintainer,omitempty"`
	Connector       *int `yaml:"connector,omitempty"`
}

// WeightOverrides allows customizing the weight one piece of evidence
// contributes to a role.
type WeightOverrides struct {
	IssueReporter   *float64 `yaml:"issue_reporter,omitempty"`
	IssueResponder  *float64 `yaml:"issue_responder,omitempty"`
	CodeContributor *float64 `yaml:"code_contributor,omitempty"`
	DocContributor  *float64 `yaml:"documentation_contributor,omitempty"`
	Reviewer        *float64 `yaml:"reviewer,omitempty"`
	Maintainer      *float64 `yaml:"maintainer,omitempty"`
	Connector       *float64 `yaml:"connector,omitempty"`
}

// DocsOverrides customizes which file paths count as documentation when
// classifying docs-only commits.
type DocsOverrides struct {
	DirPrefixes []string `yaml:"dir_prefixes,omitempty"`
	Suffixes    []string `yaml:"suffixes,omitempty"`
	Basenames   []string `yaml:"basenames,omitempty"`
}

// CrawlOverrides - crawl tuning
type CrawlOverrides struct {
	Workers     *int `yaml:"workers,omitempty"`
	PageSize    *int `yaml:"page_size,omitempty"`
	MaxRetries  *int `yaml:"max_retries,omitempty"`
	RetryBaseMS *int `yaml:"retry_base_ms,omitempty"`
}

// RoleParams defines the complete set of classifier parameters
type RoleParams struct {
	// Minimum evidence counts for attribution (inclusive)
	IssueReporterMin   int
	IssueResponderMin  int
	CodeContributorMin int
	DocContributorMin  int
	ReviewerMin        int
	MaintainerMin      int
	ConnectorMin       int

	// Weight a single piece of evidence contributes
	IssueReporterWeight   float64
	IssueResponderWeight  float64
	CodeContributorWeight float64
	DocContributorWeight  float64
	ReviewerWeight        float64
	MaintainerWeight      float64
	ConnectorWeight       float64

	// Docs-only commit detection
	DocsDirPrefixes []string
	DocsSuffixes    []string
	DocsBasenames   []string

	// Bot detection
	BotSuffixes []string
	BotNames    []string

	// Comment prefixes that command a merge bot to land a pull request
	MergeCommands []string
}

// CrawlParams defines the crawl tuning parameters
type CrawlParams struct {
	Workers    int
	PageSize   int
	MaxRetries int
	RetryBase  time.Duration
}

// DefaultRoleParams returns the default classifier parameters
func DefaultRoleParams() RoleParams {
	return RoleParams{
		IssueReporterMin:   1,
		IssueResponderMin:  1,
		CodeContributorMin: 1,
		DocContributorMin:  1,
		ReviewerMin:        1,
		MaintainerMin:      1,
		ConnectorMin:       1,

		IssueReporterWeight:   1,
		IssueResponderWeight:  1,
		CodeContributorWeight: 1,
		DocContributorWeight:  1,
		ReviewerWeight:        1,
		MaintainerWeight:      1,
		ConnectorWeight:       1,

		DocsDirPrefixes: DefaultDocsDirPrefixes(),
		DocsSuffixes:    DefaultDocsSuffixes(),
		DocsBasenames:   DefaultDocsBasenames(),

		BotSuffixes: DefaultBotSuffixes(),
		BotNames:    DefaultBotNames(),

		MergeCommands: DefaultMergeCommands(),
	}
}

// DefaultCrawlParams returns the default crawl tuning
func DefaultCrawlParams() CrawlParams {
	return CrawlParams{
		Workers:    20,
		PageSize:   100,
		MaxRetries: 5,
		RetryBase:  time.Second,
	}
}

// DefaultDocsDirPrefixes returns the directory prefixes that mark a file
// as documentation.
func DefaultDocsDirPrefixes() []string {
	return []string{"docs/", "doc/"}
}

// DefaultDocsSuffixes returns the file suffixes that mark a file as
// documentation.
func DefaultDocsSuffixes() []string {
	return []string{".md", ".rst", ".adoc", ".txt"}
}

// DefaultDocsBasenames returns the basenames (extension stripped) that mark
// a file as documentation regardless of location.
func DefaultDocsBasenames() []string {
	return []string{"README", "LICENSE", "CHANGELOG", "CONTRIBUTING", "CODE_OF_CONDUCT"}
}

// DefaultBotSuffixes returns the login suffixes that identify bot accounts.
func DefaultBotSuffixes() []string {
	return []string{"[bot]"}
}

// DefaultBotNames returns well-known bot logins that lack the [bot] suffix.
func DefaultBotNames() []string {
	return []string{"dependabot", "renovate", "github-actions", "bors", "homu"}
}

// DefaultMergeCommands returns the comment prefixes understood by the
// common merge bots (bors v1, homu, bors-ng).
func DefaultMergeCommands() []string {
	return []string{"@bors: r+", "@bors r+", "bors r+"}
}

// GetRoleParams returns classifier parameters with user overrides merged
// with defaults
func (c *Config) GetRoleParams() RoleParams {
	params := DefaultRoleParams()

	// Apply threshold overrides
	if c.Thresholds != nil {
		t := c.Thresholds
		if t.IssueReporter != nil {
			params.IssueReporterMin = *t.IssueReporter
		}
		if t.IssueResponder != nil {
			params.IssueResponderMin = *t.IssueResponder
		}
		if t.CodeContributor != nil {
			params.CodeContributorMin = *t.CodeContributor
		}
		if t.DocContributor != nil {
			params.DocContributorMin = *t.DocContributor
		}
		if t.Reviewer != nil {
			params.ReviewerMin = *t.Reviewer
		}
		if t.Maintainer != nil {
			params.MaintainerMin = *t.Maintainer
		}
		if t.Connector != nil {
			params.ConnectorMin = *t.Connector
		}
	}

	// Apply weight overrides
	if c.Weights != nil {
		w := c.Weights
		if w.IssueReporter != nil {
			params.IssueReporterWeight = *w.IssueReporter
		}
		if w.IssueResponder != nil {
			params.IssueResponderWeight = *w.IssueResponder
		}
		if w.CodeContributor != nil {
			params.CodeContributorWeight = *w.CodeContributor
		}
		if w.DocContributor != nil {
			params.DocContributorWeight = *w.DocContributor
		}
		if w.Reviewer != nil {
			params.ReviewerWeight = *w.Reviewer
		}
		if w.Maintainer != nil {
			params.MaintainerWeight = *w.Maintainer
		}
		if w.Connector != nil {
			params.ConnectorWeight = *w.Connector
		}
	}

	// Apply docs pattern overrides
	if c.Docs != nil {
		d := c.Docs
		if len(d.DirPrefixes) > 0 {
			params.DocsDirPrefixes = d.DirPrefixes
		}
		if len(d.Suffixes) > 0 {
			params.DocsSuffixes = d.Suffixes
		}
		if len(d.Basenames) > 0 {
			params.DocsBasenames = d.Basenames
		}
	}

	if len(c.Bots) > 0 {
		params.BotNames = append(params.BotNames, c.Bots...)
	}
	if len(c.MergeCommands) > 0 {
		params.MergeCommands = append(params.MergeCommands, c.MergeCommands...)
	}

	return params
}

// GetCrawlParams returns crawl tuning with user overrides merged with
// defaults
func (c *Config) GetCrawlParams() CrawlParams {
	params := DefaultCrawlParams()

	if c.Crawl != nil {
		cr := c.Crawl
		if cr.Workers != nil && *cr.Workers > 0 {
			params.Workers = *cr.Workers
		}
		if cr.PageSize != nil && *cr.PageSize > 0 {
			params.PageSize = *cr.PageSize
		}
		if cr.MaxRetries != nil && *cr.MaxRetries >= 0 {
			params.MaxRetries = *cr.MaxRetries
		}
		if cr.RetryBaseMS != nil && *cr.RetryBaseMS > 0 {
			params.RetryBase = time.Duration(*cr.RetryBaseMS) * time.Millisecond
		}
	}

	return params
}

// DefaultConfigDir returns the default config directory
func DefaultConfigDir() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return ".fosspulse"
	}
	return filepath.Join(configDir, "fosspulse")
}

// ConfigPath returns the path to the config file
func ConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// LocalConfigPath returns the path to the local config file in the current directory
func LocalConfigPath() string {
	return ".fosspulse.yaml"
}

// ConfigFileExists returns true if the config file exists on disk
func ConfigFileExists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}

// DefaultDataDir returns the default root directory for harvested data
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".fosspulse-data"
	}
	return filepath.Join(home, ".fosspulse", "data")
}

// Load loads the configuration from disk.
// It first loads the global config from XDG config directory, then merges
// any local .fosspulse.yaml config on top (local values take precedence).
func Load() (*Config, error) {
	// Start with defaults
	cfg := &Config{
		DefaultFormat: "table",
	}

	// Load global config if it exists
	globalPath := ConfigPath()
	if _, err := os.Stat(globalPath); err == nil {
		data, err := os.ReadFile(globalPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read global config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse global config file: %w", err)
		}
	}

	// Load local config if it exists and merge on top
	localPath := LocalConfigPath()
	if _, err := os.Stat(localPath); err == nil {
		data, err := os.ReadFile(localPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read local config file: %w", err)
		}

		var localCfg Config
		if err := yaml.Unmarshal(data, &localCfg); err != nil {
			return nil, fmt.Errorf("failed to parse local config file: %w", err)
		}

		cfg = mergeConfig(cfg, &localCfg)
	}

	// Set defaults if still empty
	if cfg.DefaultFormat == "" {
		cfg.DefaultFormat = "table"
	}
	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir()
	}

	return cfg, nil
}

// mergeConfig merges local config on top of global config.
// Local values take precedence; unset local values preserve global values.
func mergeConfig(global, local *Config) *Config {
	result := &Config{}

	// Merge simple fields (local wins if set)
	if local.DefaultFormat != "" {
		result.DefaultFormat = local.DefaultFormat
	} else {
		result.DefaultFormat = global.DefaultFormat
	}

	if local.DataDir != "" {
		result.DataDir = local.DataDir
	} else {
		result.DataDir = global.DataDir
	}

	// Merge arrays (local replaces if non-empty)
	if len(local.Bots) > 0 {
		result.Bots = local.Bots
	} else {
		result.Bots = global.Bots
	}

	if len(local.MergeCommands) > 0 {
		result.MergeCommands = local.MergeCommands
	} else {
		result.MergeCommands = global.MergeCommands
	}

	// Merge Thresholds
	result.Thresholds = mergeThresholds(global.Thresholds, local.Thresholds)

	// Merge Weights
	result.Weights = mergeWeights(global.Weights, local.Weights)

	// Merge Docs
	result.Docs = mergeDocs(global.Docs, local.Docs)

	// Merge Crawl
	result.Crawl = mergeCrawl(global.Crawl, local.Crawl)

	return result
}

func mergeThresholds(global, local *ThresholdOverrides) *ThresholdOverrides {
	if global == nil && local == nil {
		return nil
	}
	result := &ThresholdOverrides{}

	if global != nil {
		result.IssueReporter = global.IssueReporter
		result.IssueResponder = global.IssueResponder
		result.CodeContributor = global.CodeContributor
		result.DocContributor = global.DocContributor
		result.Reviewer = global.Reviewer
		result.Maintainer = global.Maintainer
		result.Connector = global.Connector
	}

	if local != nil {
		if local.IssueReporter != nil {
			result.IssueReporter = local.IssueReporter
		}
		if local.IssueResponder != nil {
			result.IssueResponder = local.IssueResponder
		}
		if local.CodeContributor != nil {
			result.CodeContributor = local.CodeContributor
		}
		if local.DocContributor != nil {
			result.DocContributor = local.DocContributor
		}
		if local.Reviewer != nil {
			result.Reviewer = local.Reviewer
		}
		if local.Maintainer != nil {
			result.Maintainer = local.Maintainer
		}
		if local.Connector != nil {
			result.Connector = local.Connector
		}
	}

	// Return nil if all fields are nil
	if result.IssueReporter == nil && result.IssueResponder == nil &&
		result.CodeContributor == nil && result.DocContributor == nil &&
		result.Reviewer == nil && result.Maintainer == nil && result.Connector == nil {
		return nil
	}

	return result
}

func mergeWeights(global, local *WeightOverrides) *WeightOverrides {
	if global == nil && local == nil {
		return nil
	}
	result := &WeightOverrides{}

	if global != nil {
		result.IssueReporter = global.IssueReporter
		result.IssueResponder = global.IssueResponder
		result.CodeContributor = global.CodeContributor
		result.DocContributor = global.DocContributor
		result.Reviewer = global.Reviewer
		result.Maintainer = global.Maintainer
		result.Connector = global.Connector
	}

	if local != nil {
		if local.IssueReporter != nil {
			result.IssueReporter = local.IssueReporter
		}
		if local.IssueResponder != nil {
			result.IssueResponder = local.IssueResponder
		}
		if local.CodeContributor != nil {
			result.CodeContributor = local.CodeContributor
		}
		if local.DocContributor != nil {
			result.DocContributor = local.DocContributor
		}
		if local.Reviewer != nil {
			result.Reviewer = local.Reviewer
		}
		if local.Maintainer != nil {
			result.Maintainer = local.Maintainer
		}
		if local.Connector != nil {
			result.Connector = local.Connector
		}
	}

	// Return nil if all fields are nil
	if result.IssueReporter == nil && result.IssueResponder == nil &&
		result.CodeContributor == nil && result.DocContributor == nil &&
		result.Reviewer == nil && result.Maintainer == nil && result.Connector == nil {
		return nil
	}

	return result
}

func mergeDocs(global, local *DocsOverrides) *DocsOverrides {
	if global == nil && local == nil {
		return nil
	}
	result := &DocsOverrides{}

	if global != nil {
		result.DirPrefixes = global.DirPrefixes
		result.Suffixes = global.Suffixes
		result.Basenames = global.Basenames
	}

	if local != nil {
		if len(local.DirPrefixes) > 0 {
			result.DirPrefixes = local.DirPrefixes
		}
		if len(local.Suffixes) > 0 {
			result.Suffixes = local.Suffixes
		}
		if len(local.Basenames) > 0 {
			result.Basenames = local.Basenames
		}
	}

	if len(result.DirPrefixes) == 0 && len(result.Suffixes) == 0 && len(result.Basenames) == 0 {
		return nil
	}

	return result
}

func mergeCrawl(global, local *CrawlOverrides) *CrawlOverrides {
	if global == nil && local == nil {
		return nil
	}
	result := &CrawlOverrides{}

	if global != nil {
		result.Workers = global.Workers
		result.PageSize = global.PageSize
		result.MaxRetries = global.MaxRetries
		result.RetryBaseMS = global.RetryBaseMS
	}

	if local != nil {
		if local.Workers != nil {
			result.Workers = local.Workers
		}
		if local.PageSize != nil {
			result.PageSize = local.PageSize
		}
		if local.MaxRetries != nil {
			result.MaxRetries = local.MaxRetries
		}
		if local.RetryBaseMS != nil {
			result.RetryBaseMS = local.RetryBaseMS
		}
	}

	// Return nil if all fields are nil
	if result.Workers == nil && result.PageSize == nil &&
		result.MaxRetries == nil && result.RetryBaseMS == nil {
		return nil
	}

	return result
}

// Save saves the configuration to disk
func (c *Config) Save() error {
	configDir := DefaultConfigDir()

	// Create config directory if it doesn't exist
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	configPath := ConfigPath()
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SetDefaultFormat updates the default output format and persists it to
// the global config file.
func (c *Config) SetDefaultFormat(format string) error {
	c.DefaultFormat = format
	return c.Save()
}

// SetDataDir updates the root directory for harvested data and persists
// it to the global config file.
func (c *Config) SetDataDir(dir string) error {
	c.DataDir = dir
	return c.Save()
}

// LoadEnv loads a .env file from the working directory into the process
// environment, if one exists. Existing variables are never overwritten.
func LoadEnv() {
	_ = godotenv.Load()
}

// GetGitHubToken returns the GitHub token from the GITHUB_TOKEN environment variable.
// Following 12-factor app best practices, tokens are only read from the environment.
func (c *Config) GetGitHubToken() string {
	return os.Getenv("GITHUB_TOKEN")
}

// DefaultConfig returns a fully populated config with all default values.
// This is useful for generating a complete config file template.
func DefaultConfig() *Config {
	params := DefaultRoleParams()
	crawl := DefaultCrawlParams()
	retryBaseMS := int(crawl.RetryBase / time.Millisecond)

	return &Config{
		DefaultFormat: "table",
		DataDir:       DefaultDataDir(),
		Bots:          []string{},
		MergeCommands: []string{},
		Thresholds: &ThresholdOverrides{
			IssueReporter:   &params.IssueReporterMin,
			IssueResponder:  &params.IssueResponderMin,
			CodeContributor: &params.CodeContributorMin,
			DocContributor:  &params.DocContributorMin,
			Reviewer:        &params.ReviewerMin,
			Maintainer:      &params.MaintainerMin,
			Connector:       &params.ConnectorMin,
		},
		Weights: &WeightOverrides{
			IssueReporter:   &params.IssueReporterWeight,
			IssueResponder:  &params.IssueResponderWeight,
			CodeContributor: &params.CodeContributorWeight,
			DocContributor:  &params.DocContributorWeight,
			Reviewer:        &params.ReviewerWeight,
			Maintainer:      &params.MaintainerWeight,
			Connector:       &params.ConnectorWeight,
		},
		Docs: &DocsOverrides{
			DirPrefixes: params.DocsDirPrefixes,
			Suffixes:    params.DocsSuffixes,
			Basenames:   params.DocsBasenames,
		},
		Crawl: &CrawlOverrides{
			Workers:     &crawl.Workers,
			PageSize:    &crawl.PageSize,
			MaxRetries:  &crawl.MaxRetries,
			RetryBaseMS: &retryBaseMS,
		},
	}
}

// ToYAML returns the config as a YAML string
func (c *Config) ToYAML() (string, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}
	return string(data), nil
}

// ConfigPathInfo contains information about config file paths
type ConfigPathInfo struct {
	GlobalPath   string
	GlobalExists bool
	LocalPath    string
	LocalExists  bool
}

// GetConfigPaths returns path info for both global and local configs
func GetConfigPaths() ConfigPathInfo {
	globalPath := ConfigPath()
	localPath := LocalConfigPath()

	// Get absolute path for local config
	absLocalPath, err := filepath.Abs(localPath)
	if err != nil {
		absLocalPath = localPath
	}

	_, globalErr := os.Stat(globalPath)
	_, localErr := os.Stat(localPath)

	return ConfigPathInfo{
		GlobalPath:   globalPath,
		GlobalExists: globalErr == nil,
		LocalPath:    absLocalPath,
		LocalExists:  localErr == nil,
	}
}

// MinimalConfig returns a minimal config template with comments
func MinimalConfig() string {
	return `# fosspulse configuration file
# See: fosspulse config defaults  (for all available options)

# Output format: table, json or markdown
default_format: table

# Where harvested repositories are stored (optional)
# data_dir: /var/lib/fosspulse

# Extra bot logins to exclude from role evidence (optional)
# bots:
#   - ci-robot
#   - release-automation

# Extra comment prefixes that command a merge bot (optional)
# merge_commands:
#   - "@queuebot merge"

# Minimum evidence counts before a role is attributed (optional)
# thresholds:
#   issue_responder: 3
#   maintainer: 2

# Crawl tuning (optional)
# crawl:
#   workers: 20
#   page_size: 100

# See README.md for full configuration options
`
}

// SaveTo writes content to a specific path, creating directories as needed
func SaveTo(path string, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}

	return nil
}
