package map2rec

import (
	"modelsel/internal/inputs"
	"modelsel/internal/order"
	"modelsel/internal/search"
)

const (
	KindSimulatedAnnealing = "simulated_annealing_order"
	KindSelectivePruning   = "selective_pruning"
)

// Field names shared by both searches.
const (
	FieldTolerance                = "tolerance"
	FieldPerformanceGoal          = "performance_goal"
	FieldMaximumIterations        = "maximum_iterations_number"
	FieldMaximumTime              = "maximum_time"
	FieldReserveTrainingData      = "reserve_training_data"
	FieldReserveSelectionData     = "reserve_selection_data"
	FieldReserveParametersData    = "reserve_parameters_data"
	FieldReserveMinimalParameters = "reserve_minimal_parameters"
	FieldDisplay                  = "display"
)

// Order search fields.
const (
	FieldMinimumOrder                  = "minimum_order"
	FieldMaximumOrder                  = "maximum_order"
	FieldTrialsNumber                  = "trials_number"
	FieldPerformanceMethod             = "performance_calculation_method"
	FieldCoolingRate                   = "cooling_rate"
	FieldMinimumTemperature            = "minimum_temperature"
	FieldMaximumGeneralizationFailures = "maximum_generalization_failures"
)

// Input selection fields.
const (
	FieldMinimumInputs            = "minimum_inputs_number"
	FieldMaximumSelectionFailures = "maximum_selection_failures"
)

func Kinds() []string {
	return []string{KindSimulatedAnnealing, KindSelectivePruning}
}

// DefaultRecord returns the fields of a default configuration of kind.
func DefaultRecord(kind string) (map[string]any, error) {
	switch kind {
	case KindSimulatedAnnealing:
		return SimulatedAnnealingFields(order.DefaultConfig()), nil
	case KindSelectivePruning:
		return SelectivePruningFields(inputs.DefaultConfig()), nil
	default:
		return nil, ErrUnsupportedKind
	}
}

func settingsFields(s search.Settings) map[string]any {
	reserve := s.Reserve()
	return map[string]any{
		FieldTolerance:                s.Tolerance(),
		FieldPerformanceGoal:          s.PerformanceGoal(),
		FieldMaximumIterations:        s.MaximumIterations(),
		FieldMaximumTime:              s.MaximumTime().Seconds(),
		FieldReserveTrainingData:      reserve.Training,
		FieldReserveSelectionData:     reserve.Selection,
		FieldReserveParametersData:    reserve.Parameters,
		FieldReserveMinimalParameters: reserve.MinimalParameters,
		FieldDisplay:                  s.Display(),
	}
}

// SimulatedAnnealingFields saves an order search configuration.
func SimulatedAnnealingFields(cfg order.Config) map[string]any {
	out := settingsFields(cfg.Settings)
	out[FieldMinimumOrder] = cfg.MinimumOrder()
	out[FieldMaximumOrder] = cfg.MaximumOrder()
	out[FieldTrialsNumber] = cfg.TrialsNumber()
	out[FieldPerformanceMethod] = string(cfg.PerformanceMethod())
	out[FieldCoolingRate] = cfg.CoolingRate()
	out[FieldMinimumTemperature] = cfg.MinimumTemperature()
	out[FieldMaximumGeneralizationFailures] = cfg.MaximumGeneralizationFailures()
	return out
}

// SelectivePruningFields saves an input selection configuration. A derived
// failure bound is left out.
func SelectivePruningFields(cfg inputs.Config) map[string]any {
	out := settingsFields(cfg.Settings)
	out[FieldMinimumInputs] = cfg.MinimumInputs()
	if n := cfg.MaximumSelectionFailures(); n > 0 {
		out[FieldMaximumSelectionFailures] = n
	}
	return out
}
