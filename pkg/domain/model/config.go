package model

// Config is the content of the configuration file.
type Config struct {
	GitDub   GitDubConfig     `yaml:"gitdub" toml:"gitdub"`
	Git      GitConfig        `yaml:"git" toml:"git"`
	Notifier map[string]any   `yaml:"notifier" toml:"notifier"`
	GitHub   []map[string]any `yaml:"github" toml:"github"`

	GitNotifier       GitNotifierConfig       `yaml:"git_notifier" toml:"git_notifier"`
	GitCommitNotifier GitCommitNotifierConfig `yaml:"git_commit_notifier" toml:"git_commit_notifier"`
}

type GitDubConfig struct {
	Bind           string    `yaml:"bind" toml:"bind"`
	Port           int       `yaml:"port" toml:"port"`
	Directory      string    `yaml:"directory" toml:"directory"`
	AllowedSources []string  `yaml:"allowed_sources" toml:"allowed_sources"`
	SilentInit     bool      `yaml:"silent_init" toml:"silent_init"`
	SSL            SSLConfig `yaml:"ssl" toml:"ssl"`
}

type SSLConfig struct {
	Enable bool   `yaml:"enable" toml:"enable"`
	Cert   string `yaml:"cert" toml:"cert"`
	Key    string `yaml:"key" toml:"key"`
}

type GitConfig struct {
	Binary string `yaml:"binary" toml:"binary"`
	Host   string `yaml:"host" toml:"host"`
}

type GitNotifierConfig struct {
	Binary  string `yaml:"binary" toml:"binary"`
	LogFile string `yaml:"log" toml:"log"`
}

type GitCommitNotifierConfig struct {
	Script  string   `yaml:"script" toml:"script"`
	Home    string   `yaml:"home" toml:"home"`
	Wrapper []string `yaml:"wrapper" toml:"wrapper"`
}
