package config

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Input == "" {
		return errors.New("input is required")
	}
	if c.Output == "" {
		return errors.New("output is required")
	}
	if c.Input == c.Output {
		return fmt.Errorf("output must differ from input, both are %q", c.Input)
	}

	switch c.Format {
	case "csv", "parquet":
	default:
		return fmt.Errorf("format must be csv or parquet, got %q", c.Format)
	}
	switch c.Mode {
	case "strict", "skip":
	default:
		return fmt.Errorf("mode must be strict or skip, got %q", c.Mode)
	}

	if utf8.RuneCountInString(c.Delimiter) != 1 {
		return fmt.Errorf("delimiter must be a single character, got %q", c.Delimiter)
	}
	if r := c.Comma(); r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError {
		return fmt.Errorf("delimiter %q is not allowed", c.Delimiter)
	}

	if c.BatchSize < 1 {
		return fmt.Errorf("batch_size must be >= 1, got %d", c.BatchSize)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}

	if c.Columns.Total == "" {
		return errors.New("columns.total is required")
	}
	if c.Columns.Date == "" {
		return errors.New("columns.date is required")
	}
	if c.Columns.Total == c.Columns.Date {
		return fmt.Errorf("columns.total and columns.date must differ, both are %q", c.Columns.Total)
	}
	return nil
}
