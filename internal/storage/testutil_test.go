package storage

import (
	"time"

	"modelsel/internal/model"
)

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleOrderRun(id string, offset time.Duration) model.OrderRun {
	return model.OrderRun{
		VersionedRecord: CurrentVersion(),
		ID:              id,
		CreatedAt:       baseTime.Add(offset),
		Dataset:         "synthetic",
		Seed:            7,
		Config:          map[string]any{"cooling_rate": 0.5, "maximum_order": 10},
		Results: model.OrderResults{
			OptimalOrder:        4,
			FinalTrainingError:  0.12,
			FinalSelectionError: 0.2,
			MinimalParameters:   []float64{0.1, -0.2, 0.3},
			SelectionHistory:    []model.Sample[int]{{Configuration: 3, Value: 0.3}, {Configuration: 4, Value: 0.2}},
			TemperatureHistory:  []float64{0.3, 0.15},
			Iterations:          2,
			Elapsed:             1500 * time.Millisecond,
			StoppingCondition:   model.StopMaximumIterations,
		},
	}
}

func sampleInputsRun(id string, offset time.Duration) model.InputsRun {
	return model.InputsRun{
		VersionedRecord: CurrentVersion(),
		ID:              id,
		CreatedAt:       baseTime.Add(offset),
		Dataset:         "synthetic",
		Seed:            9,
		Config:          map[string]any{"minimum_inputs_number": 1},
		Results: model.InputsResults{
			OptimalInputs:       []bool{true, false, true},
			OptimalInputNames:   []string{"x0", "x2"},
			RemovedInputs:       []string{"x1"},
			FinalTrainingError:  0.3,
			FinalSelectionError: 0.4,
			InputsHistory:       [][]bool{{true, true, true}, {true, false, true}},
			Iterations:          2,
			StoppingCondition:   model.StopAlgorithmFinished,
		},
	}
}
