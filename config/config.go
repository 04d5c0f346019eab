// Package config holds the dashboard settings. Values come from an optional
// YAML file and are overridden by command-line flags and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v2"
)

// DatasetPath is where the CI job publishes the measurements, relative to the
// dashboard root.
const DatasetPath = "data/bundle-sizes.json"

const (
	SourceHTTP          = "http"
	SourceFile          = "file"
	SourceGitHub        = "github"
	SourceGitHubGraphQL = "github-graphql"
	SourcePostgres      = "postgres"
)

type ProxyConfig struct {
	// Type is "", "socks5" or "http".
	Type    string `yaml:"type"`
	Address string `yaml:"address"`
}

type GitHubConfig struct {
	Owner string `yaml:"owner"`
	Repo  string `yaml:"repo"`
	Ref   string `yaml:"ref"`
	Token string `yaml:"token"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type SourceConfig struct {
	Kind string `yaml:"kind"`
	// URL is the dashboard root the dataset path is resolved against.
	URL  string `yaml:"url"`
	Dir  string `yaml:"dir"`
	Path string `yaml:"path"`
	// Watch reloads when a file source changes on disk.
	Watch bool `yaml:"watch"`
	// FetchTimeout bounds one HTTP fetch. Zero waits forever.
	FetchTimeout time.Duration  `yaml:"fetch_timeout"`
	GitHub       GitHubConfig   `yaml:"github"`
	Postgres     PostgresConfig `yaml:"postgres"`
}

type Config struct {
	Listen         string       `yaml:"listen"`
	LogLevel       string       `yaml:"log_level"`
	Timezone       string       `yaml:"timezone"`
	CommitOrg      string       `yaml:"commit_org"`
	ReloadSchedule string       `yaml:"reload_schedule"`
	PageRefresh    int          `yaml:"page_refresh_seconds"`
	Source         SourceConfig `yaml:"source"`
	Proxy          ProxyConfig  `yaml:"proxy"`
}

func Default() *Config {
	return &Config{
		Listen:         ":8080",
		LogLevel:       "info",
		Timezone:       "UTC",
		CommitOrg:      "jisr-hr",
		ReloadSchedule: "@every 5m",
		PageRefresh:    300,
		Source: SourceConfig{
			Kind: SourceHTTP,
			URL:  "http://localhost:8000/",
			Dir:  ".",
			Path: DatasetPath,
		},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg.Source.URL = os.ExpandEnv(cfg.Source.URL)
	cfg.Source.GitHub.Token = os.ExpandEnv(cfg.Source.GitHub.Token)
	cfg.Source.Postgres.DSN = os.ExpandEnv(cfg.Source.Postgres.DSN)
	cfg.Proxy.Address = os.ExpandEnv(cfg.Proxy.Address)

	if cfg.Source.Path == "" {
		cfg.Source.Path = DatasetPath
	}
	if cfg.PageRefresh <= 0 {
		cfg.PageRefresh = 300
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Source.Kind {
	case SourceHTTP:
		if c.Source.URL == "" {
			errs = append(errs, errors.New("source.url is required for the http source"))
		}
	case SourceFile:
		if c.Source.Dir == "" {
			errs = append(errs, errors.New("source.dir is required for the file source"))
		}
	case SourceGitHub, SourceGitHubGraphQL:
		if c.Source.GitHub.Owner == "" || c.Source.GitHub.Repo == "" {
			errs = append(errs, errors.New("source.github.owner and source.github.repo are required"))
		}
		if c.Source.Kind == SourceGitHubGraphQL && c.Source.GitHub.Token == "" {
			errs = append(errs, errors.New("source.github.token is required for the GraphQL API"))
		}
	case SourcePostgres:
		if c.Source.Postgres.DSN == "" {
			errs = append(errs, errors.New("source.postgres.dsn is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown source kind %q", c.Source.Kind))
	}

	switch c.Proxy.Type {
	case "", "socks5", "http":
	default:
		errs = append(errs, fmt.Errorf("invalid proxy type: %s", c.Proxy.Type))
	}
	if c.Proxy.Type != "" && c.Proxy.Address == "" {
		errs = append(errs, errors.New("proxy.address is not set"))
	}

	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Location resolves Timezone; dates in the table are shown in it.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
