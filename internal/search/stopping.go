package search

import "modelsel/internal/model"

// Criterion is one termination predicate evaluated for the current round.
type Criterion struct {
	Condition model.StoppingCondition
	Met       bool
}

// FirstMet returns the condition of the first criterion that holds, in the
// order given, or StopNone when the run should continue.
func FirstMet(criteria ...Criterion) model.StoppingCondition {
	for _, c := range criteria {
		if c.Met {
			return c.Condition
		}
	}
	return model.StopNone
}
