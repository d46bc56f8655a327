package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultStartURL   = "https://sites.google.com/your-domain.com/your-site-name/home"
	DefaultBaseDomain = "sites.google.com/your-domain.com"
	DefaultOutputDir  = "output"
)

// Config holds the settings for one mirror run
type Config struct {
	StartURL   string `yaml:"start_url" validate:"required,url"`
	BaseDomain string `yaml:"base_domain" validate:"required"`
	OutputDir  string `yaml:"output_dir" validate:"required"`

	LoginTimeout      time.Duration `yaml:"login_timeout" validate:"gt=0"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout" validate:"gt=0"`
	FetchTimeout      time.Duration `yaml:"fetch_timeout" validate:"gt=0"`
	SettleDelay       time.Duration `yaml:"settle_delay" validate:"gte=0"`
	MaxFrameDepth     int           `yaml:"max_frame_depth" validate:"gte=0,lte=10"`

	// BrowserProfile selects the request headers sent with artifact fetches.
	BrowserProfile string `yaml:"browser_profile" validate:"required"`
	// TLSFingerprint selects a ClientHello profile; empty uses the Go default.
	TLSFingerprint string `yaml:"tls_fingerprint"`
	RespectRobots  bool   `yaml:"respect_robots"`
	ChromePath     string `yaml:"chrome_path"`

	Embeds EmbedConfig `yaml:"embeds"`

	ManifestFile string `yaml:"manifest_file"`
	MetricsFile  string `yaml:"metrics_file"`

	Log LogConfig `yaml:"log"`
}

// EmbedConfig describes the markup convention used for document embeds
type EmbedConfig struct {
	DocumentSelector string `yaml:"document_selector" validate:"required"`
	DownloadURLAttr  string `yaml:"download_url_attr" validate:"required"`
	OpenURLAttr      string `yaml:"open_url_attr" validate:"required"`
	ImagesSubdir     string `yaml:"images_subdir" validate:"required"`
	ImagePrefix      string `yaml:"image_prefix" validate:"required"`
	DocumentPrefix   string `yaml:"document_prefix" validate:"required"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level      string `yaml:"level" validate:"loglevel"`
	Format     string `yaml:"format" validate:"logformat"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" validate:"gte=0"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		StartURL:          DefaultStartURL,
		BaseDomain:        DefaultBaseDomain,
		OutputDir:         DefaultOutputDir,
		LoginTimeout:      5 * time.Minute,
		NavigationTimeout: 90 * time.Second,
		FetchTimeout:      120 * time.Second,
		SettleDelay:       3 * time.Second,
		MaxFrameDepth:     3,
		BrowserProfile:    "chrome-windows",
		Embeds: EmbedConfig{
			DocumentSelector: "div[data-embed-doc-id]",
			DownloadURLAttr:  "data-embed-download-url",
			OpenURLAttr:      "data-embed-open-url",
			ImagesSubdir:     "images",
			ImagePrefix:      "image",
			DocumentPrefix:   "document",
		},
		ManifestFile: "manifest.db",
		MetricsFile:  "metrics.prom",
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return cfg, nil
}
