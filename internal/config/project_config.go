package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the project configuration file, relative to the project root
const FileName = ".pubsite.yaml"

// Defaults for unset fields
const (
	DefaultDirectory    = "dist"
	DefaultBuildCommand = "npm run build"
	DefaultBranch       = "gh-pages"
	DefaultHostname     = "github.com"
	DefaultConcurrency  = 4
)

// Environment overrides
const (
	EnvRepository   = "PUBSITE_REPOSITORY"
	EnvBranch       = "PUBSITE_BRANCH"
	EnvBuildCommand = "PUBSITE_BUILD_COMMAND"
	EnvDirectory    = "PUBSITE_DIRECTORY"
	EnvHostname     = "PUBSITE_HOSTNAME"
	EnvConcurrency  = "PUBSITE_CONCURRENCY"
)

// ProjectConfig represents .pubsite.yaml. Pointer fields distinguish unset
// from explicitly empty; an empty buildCommand disables the build.
type ProjectConfig struct {
	Repository    string  `yaml:"repository,omitempty"`
	Directory     string  `yaml:"directory,omitempty"`
	BuildCommand  *string `yaml:"buildCommand,omitempty"`
	Branch        string  `yaml:"branch,omitempty"`
	CommitMessage string  `yaml:"commitMessage,omitempty"`
	Concurrency   int     `yaml:"concurrency,omitempty"`
	Hostname      string  `yaml:"hostname,omitempty"`
	HistoryPath   string  `yaml:"historyPath,omitempty"`
	Private       bool    `yaml:"private,omitempty"`
	Clean         bool    `yaml:"clean,omitempty"`

	// root is the directory the file was loaded from
	root string
}

// Load reads the configuration of the project at root and applies environment
// overrides. A missing file is not an error.
func Load(root string) (*ProjectConfig, error) {
	cfg := &ProjectConfig{}

	data, err := os.ReadFile(filepath.Join(root, FileName))
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// defaults only
	default:
		return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
	}

	cfg.root = root
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ProjectConfig) applyEnv() error {
	if v, ok := os.LookupEnv(EnvRepository); ok && v != "" {
		c.Repository = v
	}
	if v, ok := os.LookupEnv(EnvBranch); ok && v != "" {
		c.Branch = v
	}
	if v, ok := os.LookupEnv(EnvDirectory); ok && v != "" {
		c.Directory = v
	}
	if v, ok := os.LookupEnv(EnvHostname); ok && v != "" {
		c.Hostname = v
	}
	// set but empty disables the build
	if v, ok := os.LookupEnv(EnvBuildCommand); ok {
		c.BuildCommand = &v
	}
	if v, ok := os.LookupEnv(EnvConcurrency); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return fmt.Errorf("%s must be a positive integer, got %q", EnvConcurrency, v)
		}
		c.Concurrency = n
	}
	return nil
}

// Save writes the configuration to root
func (c *ProjectConfig) Save(root string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(filepath.Join(root, FileName), data, 0600)
}

// Root returns the directory the configuration was loaded from
func (c *ProjectConfig) Root() string {
	return c.root
}

// GetDirectory returns the publish directory resolved against the project root
func (c *ProjectConfig) GetDirectory() string {
	dir := c.Directory
	if dir == "" {
		dir = DefaultDirectory
	}
	if filepath.IsAbs(dir) || c.root == "" {
		return dir
	}
	return filepath.Join(c.root, dir)
}

// GetBuildCommand returns the build command line; "" means no build
func (c *ProjectConfig) GetBuildCommand() string {
	if c.BuildCommand == nil {
		return DefaultBuildCommand
	}
	return strings.TrimSpace(*c.BuildCommand)
}

// GetBranch returns the publish branch, or "gh-pages" as default
func (c *ProjectConfig) GetBranch() string {
	if c.Branch != "" {
		return c.Branch
	}
	return DefaultBranch
}

// GetHostname returns the GitHub host, or "github.com" as default
func (c *ProjectConfig) GetHostname() string {
	if c.Hostname != "" {
		return c.Hostname
	}
	return DefaultHostname
}

// GetConcurrency returns the number of parallel blob uploads
func (c *ProjectConfig) GetConcurrency() int {
	if c.Concurrency > 0 {
		return c.Concurrency
	}
	return DefaultConcurrency
}

// GetRepository returns the destination repository name, defaulting to the
// name of the project directory
func (c *ProjectConfig) GetRepository() string {
	if c.Repository != "" {
		return c.Repository
	}
	if c.root == "" {
		return ""
	}
	abs, err := filepath.Abs(c.root)
	if err != nil {
		return ""
	}
	return filepath.Base(abs)
}
