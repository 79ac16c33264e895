package config

import (
	"errors"
	"io"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server         ServerConfig     `yaml:"server" mapstructure:"server"`
	Logging        LoggingConfig    `yaml:"logging" mapstructure:"logging"`
	Paths          PathsConfig      `yaml:"paths" mapstructure:"paths"`
	Downloader     DownloaderConfig `yaml:"downloader" mapstructure:"downloader"`
	Authentication AuthConfig       `yaml:"authentication" mapstructure:"authentication"`
	path           string
}

type ServerConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Host    string `yaml:"host" mapstructure:"host"`
	Port    int    `yaml:"port" mapstructure:"port"`
}

type LoggingConfig struct {
	LogPath           string `yaml:"log_path" mapstructure:"log_path"`
	EnableFileLogging bool   `yaml:"enable_file_logging" mapstructure:"enable_file_logging"`
	Level             string `yaml:"level" mapstructure:"level"`
}

type PathsConfig struct {
	DownloadPath      string `yaml:"download_path" mapstructure:"download_path"`
	DownloaderPath    string `yaml:"downloader_path" mapstructure:"downloader_path"`
	LocalDatabasePath string `yaml:"local_database_path" mapstructure:"local_database_path"`
}

type DownloaderConfig struct {
	// Time between SIGTERM and SIGKILL when a run is torn down.
	KillGrace      time.Duration `yaml:"kill_grace" mapstructure:"kill_grace"`
	DefaultQuality string        `yaml:"default_quality" mapstructure:"default_quality"`
}

type AuthConfig struct {
	RequireAuth bool   `yaml:"require_auth" mapstructure:"require_auth"`
	Username    string `yaml:"username" mapstructure:"username"`
	Password    string `yaml:"password" mapstructure:"password"`
	JWTSecret   string `yaml:"jwt_secret" mapstructure:"jwt_secret"`
}

const (
	DefaultKillGrace = 300 * time.Millisecond
	DefaultPort      = 3033
)

var (
	instance     *Config
	instanceOnce sync.Once
)

func Instance() *Config {
	if instance == nil {
		instanceOnce.Do(func() {
			instance = &Config{}
			instance.Downloader.KillGrace = DefaultKillGrace
			instance.Paths.DownloaderPath = "yt-dlp"
			instance.Paths.DownloadPath = "."
			instance.Paths.LocalDatabasePath = "."
			instance.Server.Port = DefaultPort
		})
	}
	return instance
}

var ErrInsecureAuth = errors.New("authentication.require_auth needs username, password and jwt_secret")

// Validate rejects settings that would leave the server open while it claims
// to be protected.
func (c *Config) Validate() error {
	a := c.Authentication
	if a.RequireAuth && (a.Username == "" || a.Password == "" || a.JWTSecret == "") {
		return ErrInsecureAuth
	}
	return nil
}

// SetPath records where the config file was loaded from.
func (c *Config) SetPath(p string) { c.path = p }

// Path of the directory containing the config file
func (c *Config) Dir() string { return filepath.Dir(c.path) }

// Absolute path of the config file
func (c *Config) Path() string { return c.path }

// Paths of the persistent stores, relative to LocalDatabasePath.
func (c *Config) SessionDBPath() string {
	return filepath.Join(c.Paths.LocalDatabasePath, "session.db")
}

func (c *Config) ArchiveDBPath() string {
	return filepath.Join(c.Paths.LocalDatabasePath, "archive.db")
}

// Dump writes the effective configuration as YAML.
// Secrets are masked.
func (c *Config) Dump(w io.Writer) error {
	masked := *c
	if masked.Authentication.Password != "" {
		masked.Authentication.Password = "********"
	}
	if masked.Authentication.JWTSecret != "" {
		masked.Authentication.JWTSecret = "********"
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()

	return enc.Encode(&masked)
}
