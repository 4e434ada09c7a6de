package inputs

import (
	"context"
	"errors"
	"fmt"

	"modelsel/internal/model"
	"modelsel/internal/search"
)

// Oracle is the mutable model under search. Prune and grow indices are local
// to the inputs currently present in the model.
type Oracle interface {
	InputsNumber() int
	InputNames() []string
	Parameters() []float64
	SetParameters(parameters []float64) error
	PruneInput(index int) error
	GrowInput(index int) error
	TrainingError(ctx context.Context) (float64, error)
	SelectionError(ctx context.Context) (float64, error)
	Evaluate(ctx context.Context, mask []bool) (model.Performance, error)
	Commit(ctx context.Context, c Commitment) error
}

// Scaler is implemented by oracles whose model scales its inputs.
type Scaler interface {
	ScalingStatistics() []model.Statistics
	ScalingMethod() string
}

// Commitment is the final configuration written back to the model.
type Commitment struct {
	Inputs        []bool
	Names         []string
	Parameters    []float64
	HasScaling    bool
	Statistics    []model.Statistics
	ScalingMethod string
}

// SelectivePruning removes one input per round, the one whose absence gives
// the lowest selection error, for as long as that improves the model.
type SelectivePruning struct {
	Config
	Display search.Display
	Clock   search.Clock
}

func (s *SelectivePruning) Name() string {
	return "selective_pruning"
}

// Run prunes inputs until a stopping condition holds. The search finishes
// when no candidate beats the selection error measured before the round, so
// the error re-evaluated after a removal does not decide termination. A model
// that starts at or below the minimum input count is committed unchanged.
func (s *SelectivePruning) Run(ctx context.Context, oracle Oracle) (model.InputsResults, error) {
	if s == nil {
		return model.InputsResults{}, errors.New("selective pruning is nil")
	}
	if oracle == nil {
		return model.InputsResults{}, errors.New("inputs oracle is required")
	}
	inputsNumber := oracle.InputsNumber()
	if inputsNumber <= 0 {
		return model.InputsResults{}, errors.New("model has no inputs")
	}
	names := append([]string(nil), oracle.InputNames()...)
	if len(names) != inputsNumber {
		return model.InputsResults{}, fmt.Errorf("input names mismatch: got %d names for %d inputs", len(names), inputsNumber)
	}

	var (
		originalStats   []model.Statistics
		originalScaling string
		hasScaling      bool
	)
	if scaler, ok := oracle.(Scaler); ok {
		originalStats = append([]model.Statistics(nil), scaler.ScalingStatistics()...)
		originalScaling = scaler.ScalingMethod()
		hasScaling = len(originalStats) == inputsNumber
	}

	s.Display.Event("inputs_selection_started",
		"method", s.Name(),
		"inputs", inputsNumber,
		"minimum_inputs", s.MinimumInputs(),
		"maximum_selection_failures", s.SelectionFailuresFor(inputsNumber),
	)

	mask := make([]bool, inputsNumber)
	for i := range mask {
		mask[i] = true
	}
	initial, err := oracle.Evaluate(ctx, mask)
	if err != nil {
		return model.InputsResults{}, fmt.Errorf("evaluate initial inputs: %w", err)
	}
	current := initial

	inputsHistory := [][]bool{cloneMask(mask)}
	history := search.NewRecorder[[]bool](s.Reserve(), cloneMask)
	if err := history.Record(mask, current, parameterSnapshot(oracle)); err != nil {
		return model.InputsResults{}, err
	}
	s.Display.Event("initial",
		"inputs", names,
		"active", inputsNumber,
		"training_error", current.Training,
		"selection_error", current.Selection,
	)

	timer := search.StartTimer(s.Clock)
	table := newRatioTable(inputsNumber)
	var (
		removed    []string
		iterations int
		stop       model.StoppingCondition
	)
	if inputsNumber <= s.MinimumInputs() {
		stop = model.StopMinimumInputs
	}
	for stop == model.StopNone {
		round := iterations + 1
		baseline := append([]float64(nil), oracle.Parameters()...)

		local := 0
		for position := 0; position < inputsNumber; position++ {
			if !mask[position] {
				continue
			}
			if table.candidate(position) {
				selectionError, err := s.trial(ctx, oracle, local, baseline)
				if err != nil {
					return model.InputsResults{}, fmt.Errorf("round %d: input %s: %w", round, names[position], err)
				}
				table.set(position, selectionError)
			}
			local++
		}

		// Candidates are compared with the error of the model before this
		// round's removal; no improving candidate ends the search.
		previous := current.Selection
		bestPosition, bestError, ok := table.best()
		if ok && bestError < previous && model.CountSelected(mask) > s.MinimumInputs() {
			if err := oracle.PruneInput(localIndex(mask, bestPosition)); err != nil {
				return model.InputsResults{}, fmt.Errorf("round %d: remove input %s: %w", round, names[bestPosition], err)
			}
			mask[bestPosition] = false
			removed = append(removed, names[bestPosition])
			s.Display.Event("removed", "input", names[bestPosition], "selection_error", bestError)
		}

		if current.Training, err = oracle.TrainingError(ctx); err != nil {
			return model.InputsResults{}, fmt.Errorf("round %d: training error: %w", round, err)
		}
		if current.Selection, err = oracle.SelectionError(ctx); err != nil {
			return model.InputsResults{}, fmt.Errorf("round %d: selection error: %w", round, err)
		}
		if ok {
			table.exclude(bestPosition)
		}

		iterations++
		elapsed := timer.Elapsed()
		inputsHistory = append(inputsHistory, cloneMask(mask))
		if err := history.Record(mask, current, parameterSnapshot(oracle)); err != nil {
			return model.InputsResults{}, fmt.Errorf("round %d: record history: %w", round, err)
		}

		active := model.CountSelected(mask)
		stop = search.FirstMet(
			search.Criterion{Condition: model.StopMaximumTime, Met: elapsed >= s.MaximumTime()},
			search.Criterion{Condition: model.StopSelectionPerformanceGoal, Met: initial.Selection < s.PerformanceGoal()},
			search.Criterion{Condition: model.StopMaximumIterations, Met: iterations >= s.MaximumIterations()},
			search.Criterion{Condition: model.StopMinimumInputs, Met: active <= s.MinimumInputs()},
			search.Criterion{Condition: model.StopAlgorithmFinished, Met: active == 1 || bestError >= previous},
		)

		s.Display.Event("iteration",
			"n", iterations,
			"inputs", mask,
			"active", active,
			"training_error", current.Training,
			"selection_error", current.Selection,
			"elapsed", elapsed,
		)
	}
	s.Display.Event("stopped", "condition", string(stop), "active", model.CountSelected(mask))

	optimalInputs := cloneMask(mask)
	optimalParameters := append([]float64(nil), oracle.Parameters()...)
	commitment := Commitment{
		Inputs:     optimalInputs,
		Names:      selectedNames(names, optimalInputs),
		Parameters: optimalParameters,
		HasScaling: hasScaling,
	}
	if hasScaling {
		for i, selected := range optimalInputs {
			if selected {
				commitment.Statistics = append(commitment.Statistics, originalStats[i])
			}
		}
		commitment.ScalingMethod = originalScaling
	}
	if err := oracle.Commit(ctx, commitment); err != nil {
		return model.InputsResults{}, fmt.Errorf("commit inputs: %w", err)
	}

	results := model.InputsResults{
		OptimalInputs:       optimalInputs,
		OptimalInputNames:   commitment.Names,
		RemovedInputs:       removed,
		FinalTrainingError:  current.Training,
		FinalSelectionError: current.Selection,
		InputsHistory:       inputsHistory,
		TrainingHistory:     history.Training(),
		SelectionHistory:    history.Selection(),
		ParametersHistory:   history.Parameters(),
		Iterations:          iterations,
		Elapsed:             timer.Elapsed(),
		StoppingCondition:   stop,
	}
	if s.Reserve().MinimalParameters {
		results.MinimalParameters = optimalParameters
	}
	return results, nil
}

// trial measures the selection error with one input pruned and puts the model
// back to its baseline structure and parameters.
func (s *SelectivePruning) trial(ctx context.Context, oracle Oracle, local int, baseline []float64) (float64, error) {
	if err := oracle.PruneInput(local); err != nil {
		return 0, fmt.Errorf("prune: %w", err)
	}
	selectionError, evalErr := oracle.SelectionError(ctx)
	if err := oracle.GrowInput(local); err != nil {
		return 0, fmt.Errorf("grow: %w", err)
	}
	if err := oracle.SetParameters(baseline); err != nil {
		return 0, fmt.Errorf("restore parameters: %w", err)
	}
	if evalErr != nil {
		return 0, evalErr
	}
	return selectionError, nil
}

func parameterSnapshot(oracle Oracle) func() ([]float64, error) {
	return func() ([]float64, error) {
		return oracle.Parameters(), nil
	}
}

// localIndex maps an input position to its index among the inputs still
// present in the model.
func localIndex(mask []bool, position int) int {
	local := 0
	for i := 0; i < position; i++ {
		if mask[i] {
			local++
		}
	}
	return local
}

func selectedNames(names []string, mask []bool) []string {
	out := make([]string, 0, len(names))
	for i, selected := range mask {
		if selected {
			out = append(out, names[i])
		}
	}
	return out
}

func cloneMask(mask []bool) []bool {
	return append([]bool(nil), mask...)
}
