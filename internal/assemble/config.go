// SPDX-License-Identifier: MPL-2.0

package assemble

import (
	"io"
	"os"
	"time"
)

type (
	// Config holds configuration for assembling images from recipes.
	Config struct {
		// ForceRebuild bypasses the cached image and forces a rebuild
		ForceRebuild bool

		// DisableCache disables the engine's layer cache for the build.
		// A recipe containing any non-cacheable step disables it regardless.
		DisableCache bool

		// PullAttempts is how many times a base image pull is attempted
		// before giving up. Only transient failures are retried.
		// Default: 3
		PullAttempts int

		// PullBackoff is the base backoff between pull attempts.
		// Default: 2s
		PullBackoff time.Duration

		// Progress is where engine build/pull output is streamed.
		// Default: os.Stderr
		Progress io.Writer

		// TagSuffix is an optional suffix appended to assembled image tags.
		// This enables test isolation by making each test's images unique.
		// Can be set via IMGBAKE_TAG_SUFFIX environment variable.
		TagSuffix string
	}

	// Option is a functional option for configuring a Config.
	Option func(*Config)
)

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		PullAttempts: 3,
		PullBackoff:  2 * time.Second,
		Progress:     os.Stderr,
		TagSuffix:    os.Getenv("IMGBAKE_TAG_SUFFIX"),
	}
}

// WithForceRebuild returns an Option that sets ForceRebuild on the config.
func WithForceRebuild(force bool) Option {
	return func(c *Config) {
		c.ForceRebuild = force
	}
}

// WithDisableCache returns an Option that sets DisableCache on the config.
func WithDisableCache(disable bool) Option {
	return func(c *Config) {
		c.DisableCache = disable
	}
}

// WithPullAttempts returns an Option that sets PullAttempts on the config.
func WithPullAttempts(attempts int) Option {
	return func(c *Config) {
		c.PullAttempts = attempts
	}
}

// WithPullBackoff returns an Option that sets PullBackoff on the config.
func WithPullBackoff(backoff time.Duration) Option {
	return func(c *Config) {
		c.PullBackoff = backoff
	}
}

// WithProgress returns an Option that sets the progress writer on the config.
func WithProgress(w io.Writer) Option {
	return func(c *Config) {
		c.Progress = w
	}
}

// WithTagSuffix returns an Option that sets TagSuffix on the config.
// This is primarily used for test isolation to ensure parallel tests
// don't compete for the same image tags.
func WithTagSuffix(suffix string) Option {
	return func(c *Config) {
		c.TagSuffix = suffix
	}
}

// Apply applies the given options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}
