package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// ValidationError collects every configuration problem found
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: %s", strings.Join(e.Errors, "; "))
}

func (e *ValidationError) Add(msg string) {
	e.Errors = append(e.Errors, msg)
}

func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// Validate checks ranges, log level and cron schedules.
// It returns a *ValidationError listing every problem, or nil.
func (c *Config) Validate() error {
	ve := &ValidationError{}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		ve.Add(fmt.Sprintf("server port %d out of range", c.Server.Port))
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		ve.Add(fmt.Sprintf("database port %d out of range", c.Database.Port))
	}
	if c.Database.Host == "" {
		ve.Add("database host is required")
	}
	if c.Database.Database == "" {
		ve.Add("database name is required")
	}
	if c.Database.MaxOpenConns < 1 {
		ve.Add(fmt.Sprintf("maxOpenConns must be >= 1, got %d", c.Database.MaxOpenConns))
	}
	if c.Database.MaxIdleConns < 0 || c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		ve.Add(fmt.Sprintf("maxIdleConns must be between 0 and maxOpenConns (%d), got %d",
			c.Database.MaxOpenConns, c.Database.MaxIdleConns))
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		ve.Add(fmt.Sprintf("invalid log level %q", c.Logging.Level))
	}

	if c.Cache.TTL <= 0 {
		ve.Add(fmt.Sprintf("cache ttl must be positive, got %s", c.Cache.TTL))
	}
	if err := validSchedule(c.Cache.RefreshSchedule); err != nil {
		ve.Add(fmt.Sprintf("cache refreshSchedule: %v", err))
	}
	if err := validSchedule(c.Peers.MedianRefreshSchedule); err != nil {
		ve.Add(fmt.Sprintf("peers medianRefreshSchedule: %v", err))
	}

	if c.Ingest.BatchSize < 1 {
		ve.Add(fmt.Sprintf("ingest batchSize must be >= 1, got %d", c.Ingest.BatchSize))
	}

	if ve.HasErrors() {
		return ve
	}
	return nil
}

// validSchedule accepts an empty (disabled) or standard cron expression
func validSchedule(expr string) error {
	if expr == "" {
		return nil
	}
	_, err := cron.ParseStandard(expr)
	return err
}
