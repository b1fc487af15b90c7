package task

import (
	"time"

	"github.com/spf13/pflag"
)

// ManagerOptions contains configuration options for Manager
type ManagerOptions struct {
	NoColor         bool          // Disable colored output
	NoProgress      bool          // Disable progress display
	MaxConcurrent   int           // Maximum concurrent tasks
	GracefulTimeout time.Duration // Time running tasks get to finish after an interrupt

	// Retry configuration, failed tasks are not retried by default
	MaxRetries int
	RetryDelay time.Duration
}

// DefaultManagerOptions returns sensible defaults
func DefaultManagerOptions() ManagerOptions {
	return ManagerOptions{
		MaxConcurrent:   1,
		GracefulTimeout: 10 * time.Second,
		MaxRetries:      0,
		RetryDelay:      time.Second,
	}
}

// BindManagerPFlags adds Manager flags to pflag set (for Cobra). no-color is
// shared with the format flags and bound there.
func BindManagerPFlags(flags *pflag.FlagSet, options *ManagerOptions) {
	flags.BoolVar(&options.NoProgress, "no-progress", options.NoProgress,
		"Disable progress display")
	flags.IntVar(&options.MaxConcurrent, "max-concurrent", options.MaxConcurrent,
		"Maximum concurrent tasks")
	flags.DurationVar(&options.GracefulTimeout, "graceful-timeout", options.GracefulTimeout,
		"Timeout for graceful shutdown on interrupt")
	flags.IntVar(&options.MaxRetries, "max-retries", options.MaxRetries,
		"Maximum retry attempts for failed tasks")
	flags.DurationVar(&options.RetryDelay, "retry-delay", options.RetryDelay,
		"Base delay between retry attempts")
}
