package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const EnvPrefix = "CURRICULA"

type Config struct {
	LogMode      string
	LogLevel     string
	OutputFormat string
	User         string

	DatabaseDriver string
	DatabaseURL    string
	DatabasePath   string

	AIModel     string
	AIMaxTokens int64
	AIAPIKey    string
}

// Load reads configuration with the precedence environment > config file >
// defaults. configFile may be empty, in which case
// ./.curricula/config.yaml and then <user config dir>/curricula/config.yaml are
// tried.
func Load(configFile string) (Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if configFile == "" {
		configFile = findConfigFile()
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	// CURRICULA_DATABASE_URL maps to database.url, CURRICULA_AI_MAX_TOKENS to
	// ai.max-tokens.
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log.mode", "dev")
	v.SetDefault("log.level", "info")
	v.SetDefault("output.format", "json")
	v.SetDefault("user", "")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.url", "")
	v.SetDefault("database.path", "curricula.db")
	v.SetDefault("ai.model", "claude-sonnet-4-5")
	v.SetDefault("ai.max-tokens", 16000)
	v.SetDefault("ai.api-key", "")

	// Unprefixed variables shared with the other tools.
	_ = v.BindEnv("database.url", EnvPrefix+"_DATABASE_URL", "DATABASE_CONNECTION_STRING")
	_ = v.BindEnv("ai.api-key", EnvPrefix+"_AI_API_KEY", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("user", EnvPrefix+"_USER", "USER")

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) Config {
	return Config{
		LogMode:        v.GetString("log.mode"),
		LogLevel:       v.GetString("log.level"),
		OutputFormat:   strings.ToLower(v.GetString("output.format")),
		User:           v.GetString("user"),
		DatabaseDriver: strings.ToLower(v.GetString("database.driver")),
		DatabaseURL:    v.GetString("database.url"),
		DatabasePath:   v.GetString("database.path"),
		AIModel:        v.GetString("ai.model"),
		AIMaxTokens:    v.GetInt64("ai.max-tokens"),
		AIAPIKey:       v.GetString("ai.api-key"),
	}
}

func (c Config) Validate() error {
	switch c.OutputFormat {
	case "json", "yaml":
	default:
		return fmt.Errorf("output.format must be json or yaml, got %q", c.OutputFormat)
	}
	switch c.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.DatabaseDriver)
	}
	if c.AIMaxTokens <= 0 {
		return errors.New("ai.max-tokens must be positive")
	}
	return nil
}

func findConfigFile() string {
	candidates := []string{filepath.Join(".curricula", "config.yaml")}
	if configDir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(configDir, "curricula", "config.yaml"))
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}
