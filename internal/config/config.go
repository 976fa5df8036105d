package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds stockprojctl settings.
type Config struct {
	Store       StoreConfig       `mapstructure:"store"`
	Artifacts   ArtifactsConfig   `mapstructure:"artifacts"`
	Log         LogConfig         `mapstructure:"log"`
	Sensitivity SensitivityConfig `mapstructure:"sensitivity"`
}

type StoreConfig struct {
	Kind       string `mapstructure:"kind"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

type ArtifactsConfig struct {
	Dir       string `mapstructure:"dir"`
	ExportDir string `mapstructure:"export_dir"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type SensitivityConfig struct {
	Workers int     `mapstructure:"workers"`
	FDStep  float64 `mapstructure:"fd_step"`
}

// Load reads configuration from path (or $STOCKPROJ_CONFIG, or
// ./stockproj.yaml when present) and the environment. Env var overrides use
// prefix STOCKPROJ_, e.g. STOCKPROJ_STORE_KIND.
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("store.kind", "memory")
	v.SetDefault("store.sqlite_path", "stockproj.db")
	v.SetDefault("artifacts.dir", "runs")
	v.SetDefault("artifacts.export_dir", "exports")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "auto")
	v.SetDefault("sensitivity.workers", 4)
	v.SetDefault("sensitivity.fd_step", 1e-5)

	if path == "" {
		path = os.Getenv("STOCKPROJ_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("stockproj")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("STOCKPROJ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// an explicit path must exist; the default lookup is optional
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.Sensitivity.Workers < 1 {
		c.Sensitivity.Workers = 1
	}
	return c, nil
}
