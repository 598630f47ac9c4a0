package worker

import "time"

// Config controls the cutoff worker loop.
type Config struct {
	PollInterval time.Duration

	// BatchLimit caps how many batches one sweep may lock; batches past the
	// limit wait for the next tick. Zero means unlimited.
	BatchLimit int
}

func DefaultConfig() Config {
	return Config{PollInterval: time.Minute}
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultConfig().PollInterval
	}
	if c.BatchLimit < 0 {
		c.BatchLimit = 0
	}
	return c
}
