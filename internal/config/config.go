// Package config provides hierarchical configuration management for changeset using koanf.
// Configuration is loaded with priority: environment variables (CHANGESET_*) > project config
// (.changeset/config.yml, or .changeset/config.json) > user config (~/.config/changeset/config.yml)
// > defaults.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ariel-frischer/changeset/internal/changeset"
	"github.com/ariel-frischer/changeset/internal/resolve"
	"github.com/ariel-frischer/changeset/internal/version"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variables read as configuration.
const EnvPrefix = "CHANGESET_"

// Configuration represents the changeset CLI configuration
type Configuration struct {
	// BaseBranch is the ref coverage verification diffs against.
	// Can be overridden per run with `verify --base`.
	BaseBranch string `koanf:"base_branch" yaml:"base_branch" validate:"required"`

	// ChangesetDir holds pending changesets, relative to the workspace root.
	ChangesetDir string `koanf:"changeset_dir" yaml:"changeset_dir" validate:"required"`

	// Packages lists the globs matched against directories holding a package.yaml.
	Packages []string `koanf:"packages" yaml:"packages"`

	// Ignore lists globs for files that never require a changeset.
	Ignore []string `koanf:"ignore" yaml:"ignore"`

	// MinCascade is the lowest severity a dependent is bumped with when one of
	// its dependencies moves out of its requirement.
	MinCascade string `koanf:"min_cascade" yaml:"min_cascade" validate:"oneof=patch minor major"`

	// ZeroVersion selects how bumps apply to 0.x packages: "literal" or "shift".
	ZeroVersion string `koanf:"zero_version" yaml:"zero_version" validate:"oneof=literal shift"`

	// Changelog is the changelog file name inside each package directory.
	Changelog string `koanf:"changelog" yaml:"changelog" validate:"required"`

	// Git configures the release commit and tags.
	Git GitConfig `koanf:"git" yaml:"git"`

	// AllowDeletedChangesets lets verify pass when a pending changeset is removed.
	AllowDeletedChangesets bool `koanf:"allow_deleted_changesets" yaml:"allow_deleted_changesets"`
}

// GitConfig configures the git side of a release.
type GitConfig struct {
	Commit bool `koanf:"commit" yaml:"commit"`
	Tags   bool `koanf:"tags" yaml:"tags"`
	// CommitMessage is a template; {releases} expands to the released tags.
	CommitMessage string `koanf:"commit_message" yaml:"commit_message" validate:"required"`
}

// LoadOptions configures how configuration is loaded
type LoadOptions struct {
	// Root is the workspace root the project config is looked up in (default: ".")
	Root string
	// ProjectConfigPath overrides the project config path (default: <root>/.changeset/config.yml)
	ProjectConfigPath string
	// SkipUserConfig ignores the user-level config file
	SkipUserConfig bool
	// WarningWriter receives warnings (default: os.Stderr)
	WarningWriter io.Writer
	// SkipWarnings suppresses warnings
	SkipWarnings bool
}

// Load loads configuration for the workspace at root from user, project, and
// environment sources.
// Priority: Environment variables > Project config > User config > Defaults
func Load(root string) (*Configuration, error) {
	return LoadWithOptions(LoadOptions{Root: root})
}

// LoadWithOptions loads configuration with custom options
func LoadWithOptions(opts LoadOptions) (*Configuration, error) {
	k := koanf.New(".")
	warningWriter := getWarningWriter(opts.WarningWriter)

	loadDefaults(k)

	if !opts.SkipUserConfig {
		if err := loadUserConfig(k); err != nil {
			return nil, err
		}
	}

	if err := loadProjectConfig(k, opts, warningWriter); err != nil {
		return nil, err
	}

	if err := loadEnvironmentConfig(k); err != nil {
		return nil, err
	}

	return finalizeConfig(k)
}

// getWarningWriter returns the warning writer or defaults to stderr
func getWarningWriter(w io.Writer) io.Writer {
	if w == nil {
		return os.Stderr
	}
	return w
}

// loadDefaults applies default configuration values
func loadDefaults(k *koanf.Koanf) {
	for key, value := range GetDefaults() {
		k.Set(key, value)
	}
}

// loadUserConfig loads ~/.config/changeset/config.yml when it exists.
func loadUserConfig(k *koanf.Koanf) error {
	userPath, err := UserConfigPath()
	if err != nil || !fileExists(userPath) {
		return nil
	}
	if err := loadYAMLConfig(k, userPath, "user"); err != nil {
		return fmt.Errorf("loading user YAML config: %w", err)
	}
	return nil
}

// loadProjectConfig loads the project config. YAML wins over JSON when both
// exist; the JSON file is then ignored with a warning.
func loadProjectConfig(k *koanf.Koanf, opts LoadOptions, warningWriter io.Writer) error {
	root := opts.Root
	if root == "" {
		root = "."
	}

	yamlPath := ProjectConfigPath(root)
	if opts.ProjectConfigPath != "" {
		yamlPath = opts.ProjectConfigPath
	}
	jsonPath := ProjectJSONConfigPath(root)

	yamlExists := fileExists(yamlPath)
	jsonExists := fileExists(jsonPath)

	switch {
	case yamlExists:
		if err := loadYAMLConfig(k, yamlPath, "project"); err != nil {
			return fmt.Errorf("loading project YAML config: %w", err)
		}
		if jsonExists && !opts.SkipWarnings {
			fmt.Fprintf(warningWriter, "Warning: %s ignored, using %s\n", jsonPath, yamlPath)
		}
	case jsonExists:
		if err := k.Load(file.Provider(jsonPath), json.Parser()); err != nil {
			return fmt.Errorf("failed to load project config %s: %w", jsonPath, err)
		}
	}
	return nil
}

// loadYAMLConfig validates and loads a YAML config file
func loadYAMLConfig(k *koanf.Koanf, path, configType string) error {
	if err := ValidateYAMLSyntax(path); err != nil {
		return fmt.Errorf("validating YAML syntax for %s config: %w", configType, err)
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("failed to load %s config %s: %w", configType, path, err)
	}
	return nil
}

// loadEnvironmentConfig loads environment variable overrides
func loadEnvironmentConfig(k *koanf.Koanf) error {
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envTransform), nil); err != nil {
		return fmt.Errorf("failed to load environment config: %w", err)
	}
	return nil
}

// finalizeConfig unmarshals and validates the merged configuration
func finalizeConfig(k *koanf.Koanf) (*Configuration, error) {
	var cfg Configuration
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := ValidateConfigValues(&cfg, "config"); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	cfg.ChangesetDir = filepath.Clean(cfg.ChangesetDir)
	return &cfg, nil
}

// fileExists returns true if the file exists and is readable
func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// listKeys are split on commas when set from the environment.
var listKeys = map[string]bool{
	"packages": true,
	"ignore":   true,
}

// envTransform converts environment variable names to config keys.
// Example: CHANGESET_MIN_CASCADE -> min_cascade, CHANGESET_GIT_COMMIT -> git.commit
func envTransform(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	if rest, ok := strings.CutPrefix(key, "git_"); ok {
		key = "git." + rest
	}
	if listKeys[key] {
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return key, items
	}
	return key, value
}

// ResolveOptions converts the cascade settings into resolver options.
// The values have already been validated by Load.
func (c *Configuration) ResolveOptions() (resolve.Options, error) {
	opts := resolve.DefaultOptions()
	if c.MinCascade != "" {
		sev, err := changeset.ParseSeverity(c.MinCascade)
		if err != nil {
			return opts, fmt.Errorf("min_cascade: %w", err)
		}
		opts.MinCascade = sev
	}
	if c.ZeroVersion != "" {
		policy, err := version.ParseZeroPolicy(c.ZeroVersion)
		if err != nil {
			return opts, fmt.Errorf("zero_version: %w", err)
		}
		opts.ZeroPolicy = policy
	}
	return opts, nil
}

// ChangesetPath returns the changeset directory resolved against root.
func (c *Configuration) ChangesetPath(root string) string {
	if filepath.IsAbs(c.ChangesetDir) {
		return c.ChangesetDir
	}
	return filepath.Join(root, c.ChangesetDir)
}
