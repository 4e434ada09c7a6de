package inputs

import "modelsel/internal/search"

type Config struct {
	search.Settings

	minimumInputs            int
	maximumSelectionFailures int
}

func DefaultConfig() Config {
	return Config{
		Settings:      search.DefaultSettings(),
		minimumInputs: 1,
	}
}

func (c Config) MinimumInputs() int { return c.minimumInputs }

// MaximumSelectionFailures returns the configured bound, or 0 when it is
// derived from the input count at run time.
func (c Config) MaximumSelectionFailures() int { return c.maximumSelectionFailures }

// SelectionFailuresFor resolves the failure bound for a model with n inputs.
func (c Config) SelectionFailuresFor(n int) int {
	if c.maximumSelectionFailures > 0 {
		return c.maximumSelectionFailures
	}
	return max(3, n/5)
}

func (c *Config) SetMinimumInputs(v int) error {
	if v <= 0 {
		return search.Invalid("minimum_inputs_number", v, "must be greater than 0")
	}
	c.minimumInputs = v
	return nil
}

func (c *Config) SetMaximumSelectionFailures(v int) error {
	if v <= 0 {
		return search.Invalid("maximum_selection_failures", v, "must be greater than 0")
	}
	c.maximumSelectionFailures = v
	return nil
}
