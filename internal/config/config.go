// Package config loads web-offline settings from an optional YAML file and
// WEB_OFFLINE_* environment variables. Environment values win over the file;
// defaults fill whatever is left empty.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Listen string `yaml:"listen" env:"LISTEN"`
	// AdminListen serves the /__sw/ sync, push, status and metrics
	// endpoints. Empty disables them.
	AdminListen string `yaml:"admin_listen" env:"ADMIN_LISTEN"`
	// Origin is the site the edge sits in front of.
	Origin  string `yaml:"origin" env:"ORIGIN"`
	DataDir string `yaml:"data_dir" env:"DATA_DIR"`

	Cache   CacheConfig   `yaml:"cache" envPrefix:"CACHE_"`
	Routing RoutingConfig `yaml:"routing" envPrefix:"ROUTING_"`
	Forms   FormsConfig   `yaml:"forms" envPrefix:"FORMS_"`
	Push    PushConfig    `yaml:"push" envPrefix:"PUSH_"`
	Probe   ProbeConfig   `yaml:"probe" envPrefix:"PROBE_"`
}

type CacheConfig struct {
	// Prefix and Version form the partition names <prefix>-static-<version>
	// and <prefix>-dynamic-<version>. Bump Version on every deploy that
	// changes cached assets.
	Prefix   string   `yaml:"prefix" env:"PREFIX"`
	Version  string   `yaml:"version" env:"VERSION"`
	Manifest []string `yaml:"manifest" env:"MANIFEST" envSeparator:","`
	// Shell is the document served to offline navigations.
	Shell  string `yaml:"shell" env:"SHELL"`
	Socket string `yaml:"socket" env:"SOCKET"`
	// Embedded opens the cache database in-process instead of dialing the
	// cache daemon.
	Embedded bool `yaml:"embedded" env:"EMBEDDED"`
	// FetchTimeout bounds runtime network fetches. Zero means no timeout.
	FetchTimeout time.Duration `yaml:"fetch_timeout" env:"FETCH_TIMEOUT"`
}

type RoutingConfig struct {
	BypassHosts    []string `yaml:"bypass_hosts" env:"BYPASS_HOSTS" envSeparator:","`
	CacheFirstURLs []string `yaml:"cache_first" env:"CACHE_FIRST" envSeparator:","`
}

type FormsConfig struct {
	// Endpoint receives submissions as JSON. When empty, submissions are
	// logged and treated as delivered.
	Endpoint string        `yaml:"endpoint" env:"ENDPOINT"`
	Timeout  time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

type PushConfig struct {
	Title       string `yaml:"title" env:"TITLE"`
	DefaultBody string `yaml:"default_body" env:"DEFAULT_BODY"`
}

type ProbeConfig struct {
	Schedule string `yaml:"schedule" env:"SCHEDULE"`
	Disabled bool   `yaml:"disabled" env:"DISABLED"`
}

// Default returns the settings of the academy site.
func Default() Config {
	return Config{
		Listen:      "127.0.0.1:8080",
		AdminListen: "127.0.0.1:8081",
		DataDir:     defaultDataDir(),
		Cache: CacheConfig{
			Prefix:  "excellence-academy",
			Version: "v1.0.0",
			Manifest: []string{
				"/",
				"/index.html",
				"/css/styles.css",
				"/css/responsive.css",
				"/js/main.js",
				"/js/forms.js",
				"/manifest.json",
				"https://fonts.googleapis.com/css2?family=Poppins:wght@300;400;500;600;700&display=swap",
				"https://cdnjs.cloudflare.com/ajax/libs/font-awesome/6.0.0/css/all.min.css",
			},
			Shell: "/index.html",
		},
		Routing: RoutingConfig{
			BypassHosts: []string{"wa.me", "api.whatsapp.com"},
			CacheFirstURLs: []string{
				"index.html",
				"images.unsplash.com",
				"via.placeholder.com",
				"fonts.googleapis.com",
				"fonts.gstatic.com",
			},
		},
		Forms: FormsConfig{Timeout: 15 * time.Second},
		Push: PushConfig{
			Title:       "Excellence Academy Ghana",
			DefaultBody: "New update from Excellence Academy",
		},
		Probe: ProbeConfig{Schedule: "@every 30s"},
	}
}

// Load reads path (if non-empty) over the defaults, then applies environment
// overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "WEB_OFFLINE_"}); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	cfg.fillPaths()
	return cfg, cfg.Validate()
}

func (c *Config) fillPaths() {
	if c.DataDir == "" {
		c.DataDir = defaultDataDir()
	}
	if c.Cache.Socket == "" {
		c.Cache.Socket = filepath.Join(c.DataDir, "cache.sock")
	}
}

// Validate reports the first setting that cannot work.
func (c Config) Validate() error {
	if c.Origin == "" {
		return errors.New("config: origin is required")
	}
	u, err := url.Parse(c.Origin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: origin %q must be an absolute http(s) URL", c.Origin)
	}
	if c.Cache.Prefix == "" || c.Cache.Version == "" {
		return errors.New("config: cache prefix and version are required")
	}
	if len(c.Cache.Manifest) == 0 {
		return errors.New("config: cache manifest is empty")
	}
	if c.AdminListen != "" && c.AdminListen == c.Listen {
		return errors.New("config: admin_listen must differ from listen")
	}
	return nil
}

// StaticPartition is the install-time partition name for this version.
func (c CacheConfig) StaticPartition() string { return c.Prefix + "-static-" + c.Version }

// DynamicPartition is the runtime partition name for this version.
func (c CacheConfig) DynamicPartition() string { return c.Prefix + "-dynamic-" + c.Version }

// CacheDB is the bbolt file owned by the cache daemon.
func (c Config) CacheDB() string { return filepath.Join(c.DataDir, "cache.bbolt") }

// QueueDB is the bbolt file holding deferred form submissions.
func (c Config) QueueDB() string { return filepath.Join(c.DataDir, "queue.bbolt") }

func defaultDataDir() string {
	home, _ := os.UserHomeDir()
	if home == "" {
		home = "."
	}
	return filepath.Join(home, ".cache", "web-offline")
}
