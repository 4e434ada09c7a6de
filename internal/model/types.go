package model

import "time"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Performance is the error pair produced by one evaluation of a candidate
// configuration. Only Selection is used for acceptance decisions.
type Performance struct {
	Training  float64 `json:"training_error"`
	Selection float64 `json:"selection_error"`
}

type StoppingCondition string

const (
	StopNone                          StoppingCondition = ""
	StopMinimumTemperature            StoppingCondition = "minimum_temperature"
	StopMaximumTime                   StoppingCondition = "maximum_time"
	StopGeneralizationPerformanceGoal StoppingCondition = "generalization_performance_goal"
	StopMaximumGeneralizationFailures StoppingCondition = "maximum_generalization_failures"
	StopMaximumIterations             StoppingCondition = "maximum_iterations"
	StopSelectionPerformanceGoal      StoppingCondition = "selection_performance_goal"
	StopMinimumInputs                 StoppingCondition = "minimum_inputs"
	StopAlgorithmFinished             StoppingCondition = "algorithm_finished"
)

// Sample pairs a searched configuration with one recorded error value.
type Sample[C any] struct {
	Configuration C       `json:"configuration"`
	Value         float64 `json:"value"`
}

type ParameterSample[C any] struct {
	Configuration C         `json:"configuration"`
	Parameters    []float64 `json:"parameters"`
}

type OrderResults struct {
	OptimalOrder        int                    `json:"optimal_order"`
	FinalTrainingError  float64                `json:"final_training_error"`
	FinalSelectionError float64                `json:"final_selection_error"`
	MinimalParameters   []float64              `json:"minimal_parameters,omitempty"`
	TrainingHistory     []Sample[int]          `json:"training_history,omitempty"`
	SelectionHistory    []Sample[int]          `json:"selection_history,omitempty"`
	ParametersHistory   []ParameterSample[int] `json:"parameters_history,omitempty"`
	TemperatureHistory  []float64              `json:"temperature_history"`
	Iterations          int                    `json:"iterations"`
	Elapsed             time.Duration          `json:"elapsed"`
	StoppingCondition   StoppingCondition      `json:"stopping_condition"`
}

type InputsResults struct {
	OptimalInputs       []bool                    `json:"optimal_inputs"`
	OptimalInputNames   []string                  `json:"optimal_input_names,omitempty"`
	RemovedInputs       []string                  `json:"removed_inputs,omitempty"`
	FinalTrainingError  float64                   `json:"final_training_error"`
	FinalSelectionError float64                   `json:"final_selection_error"`
	MinimalParameters   []float64                 `json:"minimal_parameters,omitempty"`
	InputsHistory       [][]bool                  `json:"inputs_history"`
	TrainingHistory     []Sample[[]bool]          `json:"training_history,omitempty"`
	SelectionHistory    []Sample[[]bool]          `json:"selection_history,omitempty"`
	ParametersHistory   []ParameterSample[[]bool] `json:"parameters_history,omitempty"`
	Iterations          int                       `json:"iterations"`
	Elapsed             time.Duration             `json:"elapsed"`
	StoppingCondition   StoppingCondition         `json:"stopping_condition"`
}

// ActiveInputs counts the selected positions of the optimal mask.
func (r InputsResults) ActiveInputs() int {
	return CountSelected(r.OptimalInputs)
}

func CountSelected(mask []bool) int {
	n := 0
	for _, selected := range mask {
		if selected {
			n++
		}
	}
	return n
}

type SearchKind string

const (
	KindOrder  SearchKind = "order"
	KindInputs SearchKind = "inputs"
)

type OrderRun struct {
	VersionedRecord
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	Dataset   string         `json:"dataset"`
	Seed      int64          `json:"seed"`
	Config    map[string]any `json:"config"`
	Results   OrderResults   `json:"results"`
}

type InputsRun struct {
	VersionedRecord
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	Dataset   string         `json:"dataset"`
	Seed      int64          `json:"seed"`
	Config    map[string]any `json:"config"`
	Results   InputsResults  `json:"results"`
}

// RunSummary is the listing view shared by both kinds of runs.
type RunSummary struct {
	ID                  string            `json:"id"`
	Kind                SearchKind        `json:"kind"`
	CreatedAt           time.Time         `json:"created_at"`
	Dataset             string            `json:"dataset"`
	Seed                int64             `json:"seed"`
	Iterations          int               `json:"iterations"`
	FinalSelectionError float64           `json:"final_selection_error"`
	StoppingCondition   StoppingCondition `json:"stopping_condition"`
}

func (r OrderRun) Summary() RunSummary {
	return RunSummary{
		ID:                  r.ID,
		Kind:                KindOrder,
		CreatedAt:           r.CreatedAt,
		Dataset:             r.Dataset,
		Seed:                r.Seed,
		Iterations:          r.Results.Iterations,
		FinalSelectionError: r.Results.FinalSelectionError,
		StoppingCondition:   r.Results.StoppingCondition,
	}
}

func (r InputsRun) Summary() RunSummary {
	return RunSummary{
		ID:                  r.ID,
		Kind:                KindInputs,
		CreatedAt:           r.CreatedAt,
		Dataset:             r.Dataset,
		Seed:                r.Seed,
		Iterations:          r.Results.Iterations,
		FinalSelectionError: r.Results.FinalSelectionError,
		StoppingCondition:   r.Results.StoppingCondition,
	}
}

// Statistics describes one input variable for the scaling layer.
type Statistics struct {
	Minimum           float64 `json:"minimum"`
	Maximum           float64 `json:"maximum"`
	Mean              float64 `json:"mean"`
	StandardDeviation float64 `json:"standard_deviation"`
}
