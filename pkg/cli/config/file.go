package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/gitdub/pkg/domain/model"
	"github.com/m-mizutani/gitdub/pkg/infra/notifier"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Default values applied to a loaded configuration file
const (
	DefaultBind      = "localhost"
	DefaultPort      = 8888
	DefaultDirectory = "."
	DefaultGitHost   = "github.com"
	DefaultGitBinary = "git"
)

// File holds the path of the gitdub configuration file
type File struct {
	Path string
}

// Flags returns CLI flags for the configuration file
func (c *File) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to the configuration file (.yml, .yaml or .toml)",
			Required:    true,
			Destination: &c.Path,
			Sources:     cli.EnvVars("GITDUB_CONFIG"),
		},
	}
}

// Load reads, decodes and validates the configuration file
func (c *File) Load() (*model.Config, error) {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V("path", c.Path))
	}

	cfg, err := Decode(filepath.Ext(c.Path), data)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load config file", goerr.V("path", c.Path))
	}
	return cfg, nil
}

// Decode parses data in the format named by ext, then applies defaults and
// validates the result.
func Decode(ext string, data []byte) (*model.Config, error) {
	var cfg model.Config

	switch strings.ToLower(ext) {
	case ".yml", ".yaml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, goerr.Wrap(err, "failed to decode YAML")
		}
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, goerr.Wrap(err, "failed to decode TOML")
		}
	default:
		return nil, goerr.New("unsupported config file format", goerr.V("ext", ext))
	}

	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(cfg *model.Config) {
	if cfg.GitDub.Bind == "" {
		cfg.GitDub.Bind = DefaultBind
	}
	if cfg.GitDub.Port == 0 {
		cfg.GitDub.Port = DefaultPort
	}
	if cfg.GitDub.Directory == "" {
		cfg.GitDub.Directory = DefaultDirectory
	}
	if cfg.Git.Host == "" {
		cfg.Git.Host = DefaultGitHost
	}
	if cfg.Git.Binary == "" {
		cfg.Git.Binary = DefaultGitBinary
	}
	if cfg.GitNotifier.Binary == "" {
		cfg.GitNotifier.Binary = string(model.BackendGitNotifier)
	}
	if cfg.GitNotifier.LogFile == "" {
		cfg.GitNotifier.LogFile = notifier.DefaultGitNotifierLog
	}
	if cfg.GitCommitNotifier.Script == "" {
		cfg.GitCommitNotifier.Script = string(model.BackendGitCommitNotifier)
	}
}

func validate(cfg *model.Config) error {
	if cfg.GitDub.Port < 0 || cfg.GitDub.Port > 65535 {
		return goerr.New("invalid port", goerr.V("port", cfg.GitDub.Port))
	}
	if cfg.GitDub.SSL.Enable && (cfg.GitDub.SSL.Cert == "" || cfg.GitDub.SSL.Key == "") {
		return goerr.New("ssl.cert and ssl.key are required when ssl is enabled")
	}
	if _, err := Rules(cfg); err != nil {
		return err
	}
	return nil
}

// Rules compiles the routing rules of the "github" section in configured order
func Rules(cfg *model.Config) ([]*model.RoutingRule, error) {
	rules := make([]*model.RoutingRule, 0, len(cfg.GitHub))
	for i, entry := range cfg.GitHub {
		rule, err := model.NewRoutingRule(entry)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid github rule", goerr.V("index", i))
		}
		rules = append(rules, rule)
	}
	return rules, nil
}
