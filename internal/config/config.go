// Package config loads salesagg settings from an optional YAML file, a .env
// file and SALESAGG_* environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tillberg/aggbench/salesagg"
)

// Config holds all settings for a run.
type Config struct {
	Input     string        `yaml:"input"`
	Output    string        `yaml:"output"`
	Format    string        `yaml:"format"`
	Delimiter string        `yaml:"delimiter"`
	BatchSize int           `yaml:"batch_size"`
	Mode      string        `yaml:"mode"`
	Timezone  string        `yaml:"timezone"`
	Prefetch  bool          `yaml:"prefetch"`
	Columns   ColumnsConfig `yaml:"columns"`
	S3        S3Config      `yaml:"s3"`
}

// ColumnsConfig renames the typed input columns.
type ColumnsConfig struct {
	ID         string `yaml:"id"`
	OrderID    string `yaml:"order_id"`
	CustomerID string `yaml:"customer_id"`
	Total      string `yaml:"total"`
	Date       string `yaml:"date"`
}

// S3Config is used for s3:// input and output paths.
type S3Config struct {
	Region   string `yaml:"region"`
	Profile  string `yaml:"profile"`
	Endpoint string `yaml:"endpoint"`
}

// Load reads a YAML config file, expanding ${VAR} references. An empty path
// yields an empty config.
func Load(path string) (*Config, error) {
	var cfg Config
	if path == "" {
		return &cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}
	return &cfg, nil
}

// LoadFromEnv loads path, applies environment overrides (after reading a .env
// file if one exists) and fills defaults. It does not validate, so callers can
// layer flags on top first; call Validate once everything is merged.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString("SALESAGG_INPUT", &c.Input)
	setString("SALESAGG_OUTPUT", &c.Output)
	setString("SALESAGG_FORMAT", &c.Format)
	setString("SALESAGG_DELIMITER", &c.Delimiter)
	setString("SALESAGG_MODE", &c.Mode)
	setString("SALESAGG_TIMEZONE", &c.Timezone)
	setString("SALESAGG_S3_REGION", &c.S3.Region)
	setString("SALESAGG_S3_PROFILE", &c.S3.Profile)
	setString("SALESAGG_S3_ENDPOINT", &c.S3.Endpoint)

	if v := os.Getenv("SALESAGG_BATCH_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SALESAGG_BATCH_SIZE: %w", err)
		}
		c.BatchSize = n
	}
	if v := os.Getenv("SALESAGG_PREFETCH"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SALESAGG_PREFETCH: %w", err)
		}
		c.Prefetch = b
	}
	return nil
}

// Comma returns the delimiter as a rune. Validate guarantees it is a single rune.
func (c *Config) Comma() rune {
	r, _ := utf8.DecodeRuneInString(c.Delimiter)
	return r
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// PipelineOptions converts the config into pipeline options.
func (c *Config) PipelineOptions() (salesagg.Options, error) {
	loc, err := c.Location()
	if err != nil {
		return salesagg.Options{}, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	mode, err := salesagg.ParseDecodeMode(c.Mode)
	if err != nil {
		return salesagg.Options{}, err
	}
	return salesagg.Options{
		BatchSize: c.BatchSize,
		Comma:     c.Comma(),
		Location:  loc,
		Mode:      mode,
		Schema: salesagg.NewSchema(salesagg.ColumnNames{
			ID:         c.Columns.ID,
			OrderID:    c.Columns.OrderID,
			CustomerID: c.Columns.CustomerID,
			Total:      c.Columns.Total,
			Date:       c.Columns.Date,
		}),
		Format:   salesagg.Format(c.Format),
		Prefetch: c.Prefetch,
		Storage: salesagg.NewStorage(salesagg.S3Options{
			Region:   c.S3.Region,
			Profile:  c.S3.Profile,
			Endpoint: c.S3.Endpoint,
		}),
	}, nil
}
