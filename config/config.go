// Package config loads the server configuration from file, environment and flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/lexandro/batchforge-mcp/analyzer"
	"github.com/lexandro/batchforge-mcp/engine"
	"github.com/lexandro/batchforge-mcp/fileio"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix         = "BATCHFORGE"
	DefaultConfigName = "batchforge"
)

// Config is the complete server configuration.
type Config struct {
	Root        string      `mapstructure:"root"`
	Exclude     []string    `mapstructure:"exclude"`
	Parallelism Parallelism `mapstructure:"parallelism"`
	Advanced    Advanced    `mapstructure:"advanced"`
	Log         Log         `mapstructure:"log"`
	Watch       Watch       `mapstructure:"watch"`
	Accelerator Accelerator `mapstructure:"accelerator"`
}

// Parallelism sizes the worker pool.
type Parallelism struct {
	// Threads is the worker count; 0 means one per CPU.
	Threads   int `mapstructure:"threads" validate:"gte=0,lte=4096"`
	BatchSize int `mapstructure:"batch_size" validate:"gte=1"`
}

// Advanced holds I/O tuning.
type Advanced struct {
	LargeFileThreshold int64 `mapstructure:"large_file_threshold" validate:"gte=1"`
	// FileTimeoutMS is reported but not enforced; batches always run to completion.
	FileTimeoutMS  int `mapstructure:"file_timeout_ms" validate:"gte=0"`
	ReadBufferSize int `mapstructure:"read_buffer_size" validate:"gte=512"`
}

// Log configures the logger. An empty File logs to stderr.
type Log struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=1"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"gte=0"`
	Compress   bool   `mapstructure:"compress"`
}

// Watch configures live re-analysis of changed files.
type Watch struct {
	Enabled    bool `mapstructure:"enabled"`
	DebounceMS int  `mapstructure:"debounce_ms" validate:"gte=1"`
}

// Accelerator configures job delegation. An empty Endpoint disables it.
type Accelerator struct {
	Endpoint string `mapstructure:"endpoint" validate:"omitempty,url"`
	Tool     string `mapstructure:"tool"`
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"root":      "root",
	"exclude":   "exclude",
	"threads":   "parallelism.threads",
	"log-level": "log.level",
	"log-file":  "log.file",
	"watch":     "watch.enabled",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("root", "")
	v.SetDefault("exclude", []string{})
	v.SetDefault("parallelism.threads", 0)
	v.SetDefault("parallelism.batch_size", engine.DefaultChunkSize)
	v.SetDefault("advanced.large_file_threshold", fileio.DefaultLargeFileThreshold)
	v.SetDefault("advanced.file_timeout_ms", 8000)
	v.SetDefault("advanced.read_buffer_size", fileio.DefaultReadBufferSize)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("log.compress", false)
	v.SetDefault("watch.enabled", false)
	v.SetDefault("watch.debounce_ms", 100)
	v.SetDefault("accelerator.endpoint", "")
	v.SetDefault("accelerator.tool", "")
}

// Load merges defaults, the config file, BATCHFORGE_* environment variables and flags,
// in increasing priority. An explicit cfgFile must exist; otherwise a missing
// batchforge.{yaml,toml,json} in the working directory or ~/.config/batchforge is fine.
// flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	var cfg Config
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", DefaultConfigName))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if flag := flags.Lookup(name); flag != nil {
				if err := v.BindPFlag(key, flag); err != nil {
					return cfg, fmt.Errorf("binding flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks value ranges.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// EngineOptions converts the configuration for the batch engine.
func (c Config) EngineOptions() engine.Options {
	return engine.Options{
		Workers:            c.Parallelism.Threads,
		ChunkSize:          c.Parallelism.BatchSize,
		LargeFileThreshold: c.Advanced.LargeFileThreshold,
		ReadBufferSize:     c.Advanced.ReadBufferSize,
	}
}

// AnalyzerOptions converts the configuration for the analyzer.
func (c Config) AnalyzerOptions() analyzer.Options {
	return analyzer.Options{
		LargeFileThreshold: c.Advanced.LargeFileThreshold,
		ReadBufferSize:     c.Advanced.ReadBufferSize,
	}
}
