package order

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"modelsel/internal/model"
	"modelsel/internal/search"
)

// maxRandomFailures bounds the neighbor resampling loop before the
// directional fallback kicks in.
const maxRandomFailures = 5

// Oracle trains and evaluates a model with a given number of hidden units.
type Oracle interface {
	Evaluate(ctx context.Context, order int) (model.Performance, error)
	Parameters(ctx context.Context, order int) ([]float64, error)
	Commit(ctx context.Context, order int, parameters []float64) error
}

// SimulatedAnnealing searches the hidden-unit count of a model.
type SimulatedAnnealing struct {
	Config
	Rand    *rand.Rand
	Display search.Display
	Clock   search.Clock
}

func (s *SimulatedAnnealing) Name() string {
	return "simulated_annealing_order"
}

func (s *SimulatedAnnealing) Run(ctx context.Context, oracle Oracle) (model.OrderResults, error) {
	if s == nil || s.Rand == nil {
		return model.OrderResults{}, errors.New("random source is required")
	}
	if oracle == nil {
		return model.OrderResults{}, errors.New("order oracle is required")
	}
	if err := s.Validate(); err != nil {
		return model.OrderResults{}, err
	}
	minimum, maximum := s.MinimumOrder(), s.MaximumOrder()

	s.Display.Event("order_selection_started",
		"method", s.Name(),
		"minimum_order", minimum,
		"maximum_order", maximum,
		"cooling_rate", s.CoolingRate(),
	)
	timer := search.StartTimer(s.Clock)

	optimalOrder := minimum + s.Rand.Intn(maximum-minimum+1)
	optimum, err := oracle.Evaluate(ctx, optimalOrder)
	if err != nil {
		return model.OrderResults{}, fmt.Errorf("evaluate initial order %d: %w", optimalOrder, err)
	}
	optimumParameters, err := oracle.Parameters(ctx, optimalOrder)
	if err != nil {
		return model.OrderResults{}, fmt.Errorf("parameters of initial order %d: %w", optimalOrder, err)
	}

	temperature := optimum.Selection
	temperatures := []float64{temperature}
	history := search.NewRecorder[int](s.Reserve(), nil)
	initialParameters := optimumParameters
	if err := history.Record(optimalOrder, optimum, func() ([]float64, error) { return initialParameters, nil }); err != nil {
		return model.OrderResults{}, err
	}
	s.Display.Event("initial",
		"order", optimalOrder,
		"training_error", optimum.Training,
		"selection_error", optimum.Selection,
		"temperature", temperature,
		"elapsed", timer.Elapsed(),
	)

	var (
		iterations int
		failures   int
		stop       model.StoppingCondition
	)
	for stop == model.StopNone {
		lower, upper := neighborhood(optimalOrder, minimum, maximum)
		currentOrder := s.neighbor(optimalOrder, lower, upper, minimum, maximum)

		current, err := oracle.Evaluate(ctx, currentOrder)
		if err != nil {
			return model.OrderResults{}, fmt.Errorf("iteration %d: evaluate order %d: %w", iterations+1, currentOrder, err)
		}

		probability := acceptanceProbability(current.Selection-optimum.Selection, temperature)
		uniform := s.Rand.Float64()
		tie := math.Abs(optimum.Selection-current.Selection) <= s.Tolerance() && currentOrder >= optimalOrder
		if probability <= uniform || tie {
			failures++
		} else {
			optimalOrder = currentOrder
			optimum = current
			optimumParameters, err = oracle.Parameters(ctx, optimalOrder)
			if err != nil {
				return model.OrderResults{}, fmt.Errorf("iteration %d: parameters of order %d: %w", iterations+1, optimalOrder, err)
			}
			failures = 0
		}

		if err := history.Record(currentOrder, current, func() ([]float64, error) {
			return oracle.Parameters(ctx, currentOrder)
		}); err != nil {
			return model.OrderResults{}, fmt.Errorf("iteration %d: record history: %w", iterations+1, err)
		}

		temperature *= s.CoolingRate()
		temperatures = append(temperatures, temperature)
		iterations++
		elapsed := timer.Elapsed()

		stop = search.FirstMet(
			search.Criterion{Condition: model.StopMinimumTemperature, Met: temperature < s.MinimumTemperature()},
			search.Criterion{Condition: model.StopMaximumTime, Met: elapsed > s.MaximumTime()},
			search.Criterion{Condition: model.StopGeneralizationPerformanceGoal, Met: optimum.Selection < s.PerformanceGoal()},
			search.Criterion{Condition: model.StopMaximumGeneralizationFailures, Met: failures >= s.MaximumGeneralizationFailures()},
			search.Criterion{Condition: model.StopMaximumIterations, Met: iterations >= s.MaximumIterations()},
		)

		s.Display.Event("iteration",
			"n", iterations,
			"candidate_order", currentOrder,
			"optimal_order", optimalOrder,
			"training_error", optimum.Training,
			"selection_error", optimum.Selection,
			"temperature", temperature,
			"failures", failures,
			"elapsed", elapsed,
		)
	}
	s.Display.Event("stopped", "condition", string(stop), "optimal_order", optimalOrder)

	if err := oracle.Commit(ctx, optimalOrder, optimumParameters); err != nil {
		return model.OrderResults{}, fmt.Errorf("commit order %d: %w", optimalOrder, err)
	}

	results := model.OrderResults{
		OptimalOrder:        optimalOrder,
		FinalTrainingError:  optimum.Training,
		FinalSelectionError: optimum.Selection,
		TrainingHistory:     history.Training(),
		SelectionHistory:    history.Selection(),
		ParametersHistory:   history.Parameters(),
		TemperatureHistory:  temperatures,
		Iterations:          iterations,
		Elapsed:             timer.Elapsed(),
		StoppingCondition:   stop,
	}
	if s.Reserve().MinimalParameters {
		results.MinimalParameters = append([]float64(nil), optimumParameters...)
	}
	return results, nil
}

// neighborhood returns the closed sampling window around optimal, one third
// of the order range wide on each side and clamped to the bounds.
func neighborhood(optimal, minimum, maximum int) (lower, upper int) {
	width := (maximum - minimum) / 3
	upper = optimal + width
	if upper > maximum {
		upper = maximum
	}
	if optimal-width <= minimum {
		lower = minimum
	} else {
		lower = optimal - width
	}
	return lower, upper
}

// neighbor draws an order from [lower, upper] that differs from optimal.
// After maxRandomFailures draws it steps to an adjacent order instead.
func (s *SimulatedAnnealing) neighbor(optimal, lower, upper, minimum, maximum int) int {
	current := lower + s.Rand.Intn(upper-lower+1)
	failures := 0
	for current == optimal {
		current = lower + s.Rand.Intn(upper-lower+1)
		failures++
		if failures >= maxRandomFailures {
			if optimal != minimum {
				current = optimal - 1
			} else if optimal != maximum {
				current = optimal + 1
			}
		}
	}
	return current
}

// acceptanceProbability is the Boltzmann criterion min(1, exp(-delta/T)).
func acceptanceProbability(delta, temperature float64) float64 {
	if temperature <= 0 {
		if delta <= 0 {
			return 1
		}
		return 0
	}
	return math.Min(1, math.Exp(-delta/temperature))
}
