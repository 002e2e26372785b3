package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/imdario/mergo"
	yaml "github.com/jesseduffield/yaml"
)

// ConfigFileEnv names the environment variable pointing at an optional YAML
// file whose values override the environment defaults
const ConfigFileEnv = "KASUMI_CONFIG"

// FieldDegree is the only field degree the cipher runs on. FL splits each
// 32-bit half into two 16-bit field elements.
const FieldDegree = 16

var ErrUnsupportedFieldDegree = errors.New("unsupported field degree")

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	JWT      JWTConfig      `yaml:"jwt"`
	Field    FieldConfig    `yaml:"field"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port int    `yaml:"port,omitempty"`
	Host string `yaml:"host,omitempty"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	User     string `yaml:"user,omitempty"`
	Password string `yaml:"password,omitempty"`
	Database string `yaml:"database,omitempty"`
	SSLMode  string `yaml:"sslmode,omitempty"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret   string `yaml:"secret,omitempty"`
	TTLHours int    `yaml:"ttlHours,omitempty"`
}

// FieldConfig selects the Galois field used by the FL function
type FieldConfig struct {
	Degree     uint   `yaml:"degree,omitempty"`
	ParamsFile string `yaml:"paramsFile,omitempty"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"` // "text" or "json"
}

// Load loads configuration from environment variables, then applies the
// file named by KASUMI_CONFIG if it is set
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Database: getEnv("DB_NAME", "kasumi"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			Secret:   getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			TTLHours: getEnvInt("JWT_TTL_HOURS", 24),
		},
		Field: FieldConfig{
			Degree:     uint(getEnvInt("FIELD_DEGREE", FieldDegree)),
			ParamsFile: getEnv("FIELD_PARAMS_FILE", "field.txt"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}

	if path := getEnv(ConfigFileEnv, ""); path != "" {
		if err := cfg.MergeFile(path); err != nil {
			return nil, err
		}
	}

	if cfg.Field.Degree != FieldDegree {
		return nil, fmt.Errorf("%w: %d, the cipher requires GF(2^%d)", ErrUnsupportedFieldDegree, cfg.Field.Degree, FieldDegree)
	}
	return cfg, nil
}

// MergeFile overrides c with every non-empty value found in the YAML file
func (c *Config) MergeFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fromFile Config
	if err := yaml.Unmarshal(content, &fromFile); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if err := mergo.Merge(c, fromFile, mergo.WithOverride); err != nil {
		return fmt.Errorf("merge config file %s: %w", path, err)
	}
	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf(`
Server: %s:%d
Database: postgres://%s@%s:%d/%s
JWT Secret: ***
Field: GF(2^%d), params %s
Log: %s (%s)`,
		c.Server.Host, c.Server.Port,
		c.Database.User, c.Database.Host, c.Database.Port, c.Database.Database,
		c.Field.Degree, c.Field.ParamsFile,
		c.Log.Level, c.Log.Format,
	)
}
