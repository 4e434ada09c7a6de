package order

import (
	"fmt"
	"math"

	"modelsel/internal/search"
)

// PerformanceMethod tells the oracle how to reduce repeated trainings of the
// same order to one performance pair.
type PerformanceMethod string

const (
	PerformanceMinimum PerformanceMethod = "minimum"
	PerformanceMaximum PerformanceMethod = "maximum"
	PerformanceMean    PerformanceMethod = "mean"
)

func ParsePerformanceMethod(name string) (PerformanceMethod, error) {
	switch PerformanceMethod(name) {
	case PerformanceMinimum, PerformanceMaximum, PerformanceMean:
		return PerformanceMethod(name), nil
	default:
		return "", search.Invalid("performance_calculation_method", name, "must be one of minimum|maximum|mean")
	}
}

type Config struct {
	search.Settings

	minimumOrder                  int
	maximumOrder                  int
	trialsNumber                  int
	performanceMethod             PerformanceMethod
	coolingRate                   float64
	minimumTemperature            float64
	maximumGeneralizationFailures int
}

func DefaultConfig() Config {
	return Config{
		Settings:                      search.DefaultSettings(),
		minimumOrder:                  1,
		maximumOrder:                  10,
		trialsNumber:                  1,
		performanceMethod:             PerformanceMinimum,
		coolingRate:                   0.5,
		minimumTemperature:            1.0e-3,
		maximumGeneralizationFailures: 3,
	}
}

func (c Config) MinimumOrder() int { return c.minimumOrder }
func (c Config) MaximumOrder() int { return c.maximumOrder }
func (c Config) TrialsNumber() int { return c.trialsNumber }
func (c Config) PerformanceMethod() PerformanceMethod { return c.performanceMethod }
func (c Config) CoolingRate() float64 { return c.coolingRate }
func (c Config) MinimumTemperature() float64 { return c.minimumTemperature }
func (c Config) MaximumGeneralizationFailures() int { return c.maximumGeneralizationFailures }

func (c *Config) SetMinimumOrder(v int) error {
	if v <= 0 {
		return search.Invalid("minimum_order", v, "must be greater than 0")
	}
	c.minimumOrder = v
	return nil
}

func (c *Config) SetMaximumOrder(v int) error {
	if v <= 0 {
		return search.Invalid("maximum_order", v, "must be greater than 0")
	}
	c.maximumOrder = v
	return nil
}

// SetOrderRange sets both bounds at once; nothing changes on error.
func (c *Config) SetOrderRange(minimum, maximum int) error {
	if minimum <= 0 {
		return search.Invalid("minimum_order", minimum, "must be greater than 0")
	}
	if maximum <= minimum {
		return search.Invalid("maximum_order", maximum, fmt.Sprintf("must be greater than minimum order %d", minimum))
	}
	c.minimumOrder = minimum
	c.maximumOrder = maximum
	return nil
}

func (c *Config) SetTrialsNumber(v int) error {
	if v <= 0 {
		return search.Invalid("trials_number", v, "must be greater than 0")
	}
	c.trialsNumber = v
	return nil
}

func (c *Config) SetPerformanceMethod(v PerformanceMethod) error {
	method, err := ParsePerformanceMethod(string(v))
	if err != nil {
		return err
	}
	c.performanceMethod = method
	return nil
}

func (c *Config) SetCoolingRate(v float64) error {
	if math.IsNaN(v) || v <= 0 {
		return search.Invalid("cooling_rate", v, "must be greater than 0")
	}
	if v >= 1 {
		return search.Invalid("cooling_rate", v, "must be less than 1")
	}
	c.coolingRate = v
	return nil
}

func (c *Config) SetMinimumTemperature(v float64) error {
	if math.IsNaN(v) || v < 0 {
		return search.Invalid("minimum_temperature", v, "must be equal or greater than 0")
	}
	c.minimumTemperature = v
	return nil
}

func (c *Config) SetMaximumGeneralizationFailures(v int) error {
	if v <= 0 {
		return search.Invalid("maximum_generalization_failures", v, "must be greater than 0")
	}
	c.maximumGeneralizationFailures = v
	return nil
}

// Validate checks the constraints that span more than one option.
func (c Config) Validate() error {
	if c.maximumOrder <= c.minimumOrder {
		return search.Invalid("maximum_order", c.maximumOrder, fmt.Sprintf("must be greater than minimum order %d", c.minimumOrder))
	}
	return nil
}
