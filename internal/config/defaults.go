package config

import "github.com/tillberg/aggbench/salesagg"

// Default values for optional configuration fields.
const (
	DefaultInput            = "sales_data.csv"
	DefaultOutput           = "yearly_monthly_sales.csv"
	DefaultFormat           = "csv"
	DefaultDelimiter        = ","
	DefaultBatchSize        = salesagg.DefaultBatchSize
	DefaultMode             = "strict"
	DefaultTimezone         = "UTC"
	DefaultIDColumn         = "ID"
	DefaultOrderIDColumn    = "order_id"
	DefaultCustomerIDColumn = "customer_id"
	DefaultTotalColumn      = "total"
	DefaultDateColumn       = "fecha"
)

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Input == "" {
		c.Input = DefaultInput
	}
	if c.Output == "" {
		c.Output = DefaultOutput
	}
	if c.Format == "" {
		c.Format = DefaultFormat
	}
	if c.Delimiter == "" {
		c.Delimiter = DefaultDelimiter
	}
	if c.BatchSize == 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Mode == "" {
		c.Mode = DefaultMode
	}
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}

	if c.Columns.ID == "" {
		c.Columns.ID = DefaultIDColumn
	}
	if c.Columns.OrderID == "" {
		c.Columns.OrderID = DefaultOrderIDColumn
	}
	if c.Columns.CustomerID == "" {
		c.Columns.CustomerID = DefaultCustomerIDColumn
	}
	if c.Columns.Total == "" {
		c.Columns.Total = DefaultTotalColumn
	}
	if c.Columns.Date == "" {
		c.Columns.Date = DefaultDateColumn
	}
}
