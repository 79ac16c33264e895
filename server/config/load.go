package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.base_url", "")
	v.SetDefault("paths.download_path", ".")
	v.SetDefault("paths.downloader_path", "yt-dlp")
	v.SetDefault("paths.local_database_path", ".")
	v.SetDefault("downloader.kill_grace", DefaultKillGrace)
	v.SetDefault("downloader.default_quality", "Best")
	v.SetDefault("logging.log_path", "yt-dlp-remote.log")
	v.SetDefault("logging.enable_file_logging", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("authentication.require_auth", false)
	v.SetDefault("authentication.username", "")
	v.SetDefault("authentication.password", "")
	v.SetDefault("authentication.jwt_secret", "")
}

// Load fills c from defaults, the yaml file at path and APP_ prefixed
// environment variables, in increasing order of precedence. A missing file
// is not an error.
func Load(path string, c *Config) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	setDefaults(v)

	// Env binding, APP_SERVER_PORT overrides server.port
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to read config %s: %w", path, err)
		}
		slog.Debug("config file not found, using defaults", slog.String("path", path))
	}

	if err := v.Unmarshal(c); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return err
	}

	if abs, err := filepath.Abs(path); err == nil {
		c.SetPath(abs)
	} else {
		c.SetPath(path)
	}

	return nil
}
