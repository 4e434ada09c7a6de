package search

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var ErrInvalidOption = errors.New("invalid option")

// ValidationError reports a rejected option value together with the violated
// constraint. It matches ErrInvalidOption under errors.Is.
type ValidationError struct {
	Option     string
	Value      any
	Constraint string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s=%v: %s", e.Option, e.Value, e.Constraint)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidOption
}

func Invalid(option string, value any, constraint string) error {
	return &ValidationError{Option: option, Value: value, Constraint: constraint}
}

// Reserve selects which history streams a run keeps.
type Reserve struct {
	Training          bool `json:"training"`
	Selection         bool `json:"selection"`
	Parameters        bool `json:"parameters"`
	MinimalParameters bool `json:"minimal_parameters"`
}

// Settings are the options shared by both searches. Setters validate and keep
// the previous value when they return an error.
type Settings struct {
	tolerance         float64
	performanceGoal   float64
	maximumIterations int
	maximumTime       time.Duration
	reserve           Reserve
	display           bool
}

func DefaultSettings() Settings {
	return Settings{
		tolerance:         0,
		performanceGoal:   0,
		maximumIterations: 1000,
		maximumTime:       time.Hour,
		reserve: Reserve{
			Training:          true,
			Selection:         true,
			MinimalParameters: true,
		},
	}
}

func (s Settings) Tolerance() float64 { return s.tolerance }
func (s Settings) PerformanceGoal() float64 { return s.performanceGoal }
func (s Settings) MaximumIterations() int { return s.maximumIterations }
func (s Settings) MaximumTime() time.Duration { return s.maximumTime }
func (s Settings) Reserve() Reserve { return s.reserve }
func (s Settings) Display() bool { return s.display }

func (s *Settings) SetTolerance(v float64) error {
	if math.IsNaN(v) || v < 0 {
		return Invalid("tolerance", v, "must be equal or greater than 0")
	}
	s.tolerance = v
	return nil
}

func (s *Settings) SetPerformanceGoal(v float64) error {
	if math.IsNaN(v) || v < 0 {
		return Invalid("performance_goal", v, "must be equal or greater than 0")
	}
	s.performanceGoal = v
	return nil
}

func (s *Settings) SetMaximumIterations(v int) error {
	if v <= 0 {
		return Invalid("maximum_iterations_number", v, "must be greater than 0")
	}
	s.maximumIterations = v
	return nil
}

func (s *Settings) SetMaximumTime(v time.Duration) error {
	if v < 0 {
		return Invalid("maximum_time", v, "must be equal or greater than 0")
	}
	s.maximumTime = v
	return nil
}

func (s *Settings) SetReserve(r Reserve) {
	s.reserve = r
}

func (s *Settings) SetReserveTrainingData(v bool) { s.reserve.Training = v }
func (s *Settings) SetReserveSelectionData(v bool) { s.reserve.Selection = v }
func (s *Settings) SetReserveParametersData(v bool) { s.reserve.Parameters = v }
func (s *Settings) SetReserveMinimalParameters(v bool) { s.reserve.MinimalParameters = v }
func (s *Settings) SetDisplay(v bool) { s.display = v }
