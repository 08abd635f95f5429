// Package config loads application configuration from, in rising
// precedence: flag defaults, an optional YAML file, WRONGBOOK_*
// environment variables, and command-line flags.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config holds all application configuration.
type Config struct {
	Server ServerConfig `koanf:"server"`
	DB     DBConfig     `koanf:"db"`
	Review ReviewConfig `koanf:"review"`
	AI     AIConfig     `koanf:"ai"`
	Import ImportConfig `koanf:"import"`
	Digest DigestConfig `koanf:"digest"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr       string `koanf:"addr" validate:"required"`
	CORSOrigin string `koanf:"cors_origin"`
}

// DBConfig configures the SQLite database.
type DBConfig struct {
	Path string `koanf:"path" validate:"required"`
}

// ReviewConfig configures the scheduler: the interval ladder, the
// day-boundary cutoff, and the session batch cap.
type ReviewConfig struct {
	Intervals  []int  `koanf:"intervals" validate:"min=1,dive,min=1"`
	CutoffHour int    `koanf:"cutoff_hour" validate:"min=0,max=23"`
	Timezone   string `koanf:"timezone"`
	BatchSize  int    `koanf:"batch_size" validate:"min=1"`
}

// AIConfig configures the explanation backends. The text backend is
// required for /api/ask; the vision backend is optional.
type AIConfig struct {
	TextBaseURL   string `koanf:"text_base_url"`
	TextAPIKey    string `koanf:"text_api_key"`
	TextModel     string `koanf:"text_model"`
	VisionBaseURL string `koanf:"vision_base_url"`
	VisionAPIKey  string `koanf:"vision_api_key"`
	VisionModel   string `koanf:"vision_model"`
}

// ImportConfig configures bulk import.
type ImportConfig struct {
	ReposDir string `koanf:"repos_dir" validate:"required"`
}

// DigestConfig configures the daily due-count digest job.
type DigestConfig struct {
	Enabled bool `koanf:"enabled"`
}

// Location resolves the configured review timezone. An empty setting
// means the system's local timezone.
func (c ReviewConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid review timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Flags returns the application's flag set with every default wired
// in.
func Flags() *pflag.FlagSet {
	f := pflag.NewFlagSet("wrongbook", pflag.ContinueOnError)
	f.String("config", "", "path to a YAML config file")
	f.String("server.addr", ":8080", "HTTP listen address")
	f.String("server.cors_origin", "http://localhost:3000", "allowed CORS origin for the frontend")
	f.String("db.path", "wrongbook.db", "path to the SQLite database file")
	f.IntSlice("review.intervals", []int{1, 2, 4, 7, 15, 30, 60}, "review ladder in days per stage")
	f.Int("review.cutoff_hour", 4, "local clock hour due times normalize to")
	f.String("review.timezone", "", "IANA timezone for the review day boundary (default: system local)")
	f.Int("review.batch_size", 50, "maximum notes per review session")
	f.String("ai.text_base_url", "", "base URL of the text explanation backend")
	f.String("ai.text_api_key", "", "API key for the text explanation backend")
	f.String("ai.text_model", "deepseek-chat", "model for text explanations")
	f.String("ai.vision_base_url", "", "base URL of the vision explanation backend")
	f.String("ai.vision_api_key", "", "API key for the vision explanation backend")
	f.String("ai.vision_model", "Qwen/Qwen2.5-VL-72B-Instruct", "model for image explanations")
	f.String("import.repos_dir", "repos", "directory git notebook sources are checked out under")
	f.Bool("digest.enabled", true, "log a daily due-count digest at the cutoff hour")
	return f
}

// Load builds the configuration from the given parsed flag set.
func Load(flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path, _ := flags.GetString("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// WRONGBOOK_SERVER__ADDR=:9090 maps to server.addr. A double
	// underscore separates nesting levels so keys like cutoff_hour
	// survive.
	err := k.Load(env.Provider("WRONGBOOK_", ".", func(s string) string {
		s = strings.TrimPrefix(s, "WRONGBOOK_")
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
		return nil, fmt.Errorf("failed to load flags: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
