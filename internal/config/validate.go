package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateFlatten(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.InputDir == "" {
		return errors.New("paths.input_dir must be set")
	}
	if c.Paths.OutputDir == "" {
		return errors.New("paths.output_dir must be set")
	}
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.InputDir == c.Paths.OutputDir {
		return errors.New("paths.input_dir and paths.output_dir must differ")
	}
	return nil
}

func (c *Config) validateFlatten() error {
	switch c.Flatten.OutputFormat {
	case "csv", "xlsx":
	default:
		return fmt.Errorf("flatten.output_format must be \"csv\" or \"xlsx\", got %q", c.Flatten.OutputFormat)
	}
	switch c.Flatten.EmptyLists {
	case "drop", "keep":
	default:
		return fmt.Errorf("flatten.empty_lists must be \"drop\" or \"keep\", got %q", c.Flatten.EmptyLists)
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.queue_poll_interval":  c.Workflow.QueuePollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
		"workflow.workers":              c.Workflow.Workers,
		"workflow.io_timeout":           c.Workflow.IOTimeout,
		"workflow.retry_max_attempts":   c.Workflow.RetryMaxAttempts,
		"workflow.retry_initial_millis": c.Workflow.RetryInitialMillis,
		"workflow.retry_max_millis":     c.Workflow.RetryMaxMillis,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	}); err != nil {
		return err
	}
	if c.Workflow.RetryMaxMillis < c.Workflow.RetryInitialMillis {
		return errors.New("workflow.retry_max_millis must be at least workflow.retry_initial_millis")
	}
	if c.Watch.SettleMillis < 0 {
		return errors.New("watch.settle_millis must not be negative")
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.Enabled && c.API.Bind == "" {
		return errors.New("api.bind must be set when api.enabled is true")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for name, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}
