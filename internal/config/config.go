package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable override
const EnvPrefix = "CARDGAME"

// Config holds all configuration for the application
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"ssl"`
	MaxIdleConns    int           `mapstructure:"maxIdleConns"`
	MaxOpenConns    int           `mapstructure:"maxOpenConns"`
	ConnMaxLifetime time.Duration `mapstructure:"connMaxLifetime"`
	BusyTimeout     time.Duration `mapstructure:"busyTimeout"`
	LockTimeout     time.Duration `mapstructure:"lockTimeout"`
	SlowThreshold   time.Duration `mapstructure:"slowThreshold"`
	AllowReset      bool          `mapstructure:"allowReset"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
	SQL   bool   `mapstructure:"sql"`
}

// GetDSN returns the postgres connection string. Values are quoted so an
// empty password or one containing spaces survives parsing.
func (c *Config) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		quoteDSNValue(c.Database.Host),
		c.Database.Port,
		quoteDSNValue(c.Database.User),
		quoteDSNValue(c.Database.Password),
		quoteDSNValue(c.Database.Name),
		quoteDSNValue(c.Database.SSLMode),
	)
}

var dsnEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func quoteDSNValue(v string) string {
	return "'" + dsnEscaper.Replace(v) + "'"
}

// GetEnvironment returns the current environment
func GetEnvironment() string {
	if env := os.Getenv(EnvPrefix + "_ENV"); env != "" {
		return env
	}
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "development"
}

// Load reads config.<env>.yml from path, applies CARDGAME_* environment
// overrides and fills defaults for anything left unset
func Load(path, env string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	v.SetConfigType("yml")
	v.AddConfigPath(path)

	v.AutomaticEnv()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("could not unmarshal config: %w", err)
	}
	return &c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/cardgame.sqlite")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl", "disable")
	v.SetDefault("database.maxIdleConns", 2)
	v.SetDefault("database.maxOpenConns", 4)
	v.SetDefault("database.connMaxLifetime", time.Hour)
	v.SetDefault("database.busyTimeout", 5*time.Second)
	v.SetDefault("database.lockTimeout", 10*time.Second)
	v.SetDefault("database.slowThreshold", 200*time.Millisecond)
	v.SetDefault("database.allowReset", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.sql", false)
}
