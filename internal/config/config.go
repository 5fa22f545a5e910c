// Package config loads duckse settings from a config file, DUCKSE_*
// environment variables and command-line flags, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"duckse/internal/appdirs"
	"duckse/search"
)

// Config holds every setting a duckse run needs.
type Config struct {
	Region        string          `mapstructure:"region"`
	SafeSearch    string          `mapstructure:"safesearch"`
	MaxResults    int             `mapstructure:"max_results"`
	Timeout       time.Duration   `mapstructure:"timeout"`
	Proxy         string          `mapstructure:"proxy"`
	Verify        string          `mapstructure:"verify"`
	ExpandTimeout time.Duration   `mapstructure:"expand_timeout"`
	LogLevel      string          `mapstructure:"log_level"`
	UserAgent     string          `mapstructure:"user_agent"`
	Firecrawl     FirecrawlConfig `mapstructure:"firecrawl"`
	RewriteRules  []search.Rule   `mapstructure:"rewrite_rules"`
}

type FirecrawlConfig struct {
	APIURL       string        `mapstructure:"api_url"`
	APIKeyEnv    string        `mapstructure:"api_key_env"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// Loader wraps a private viper instance.
type Loader struct {
	v *viper.Viper
}

func NewLoader() *Loader {
	v := viper.New()
	v.SetDefault("region", "us-en")
	v.SetDefault("safesearch", "moderate")
	v.SetDefault("max_results", 10)
	v.SetDefault("timeout", 10*time.Second)
	v.SetDefault("verify", "true")
	v.SetDefault("expand_timeout", 6*time.Second)
	v.SetDefault("log_level", "warn")
	v.SetDefault("firecrawl.api_url", "https://api.firecrawl.dev/v1")
	v.SetDefault("firecrawl.api_key_env", "FIRECRAWL_API_KEY")
	v.SetDefault("firecrawl.poll_interval", 2*time.Second)

	v.SetEnvPrefix("DUCKSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Loader{v: v}
}

// BindFlag makes an explicitly set flag override key.
func (l *Loader) BindFlag(key string, f *pflag.Flag) error {
	if f == nil {
		return fmt.Errorf("bind %s: no such flag", key)
	}
	return l.v.BindPFlag(key, f)
}

// Load reads path, or config.{yaml,yml,json} in the duckse base dir when
// path is empty. A missing default file is not an error.
func (l *Loader) Load(path string) (*Config, error) {
	if path != "" {
		l.v.SetConfigFile(path)
	} else {
		base, err := appdirs.BaseDir()
		if err != nil {
			return nil, err
		}
		l.v.SetConfigName("config")
		l.v.AddConfigPath(base)
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !(errors.As(err, &notFound) || os.IsNotExist(err)) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// Used returns the config file that was read, if any.
func (l *Loader) Used() string {
	if f := l.v.ConfigFileUsed(); f != "" {
		if _, err := os.Stat(f); err == nil {
			return filepath.Clean(f)
		}
	}
	return ""
}
