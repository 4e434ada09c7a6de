package stats

import (
	"math"
	"reflect"
	"testing"

	"modelsel/internal/model"
)

func TestWriteReadAndListBenchmarkExperiments(t *testing.T) {
	base := t.TempDir()
	expA := BenchmarkExperiment{
		ID:           "exp-a",
		Kind:         model.KindOrder,
		Seeds:        []int64{1, 2},
		StartedAtUTC: "2026-02-27T00:00:00Z",
	}
	expB := BenchmarkExperiment{
		ID:           "exp-b",
		Kind:         model.KindInputs,
		Seeds:        []int64{3},
		StartedAtUTC: "2026-02-28T00:00:00Z",
	}
	if err := WriteBenchmarkExperiment(base, expA); err != nil {
		t.Fatalf("write exp a: %v", err)
	}
	if err := WriteBenchmarkExperiment(base, expB); err != nil {
		t.Fatalf("write exp b: %v", err)
	}

	read, ok, err := ReadBenchmarkExperiment(base, "exp-a")
	if err != nil {
		t.Fatalf("read exp a: %v", err)
	}
	if !ok {
		t.Fatalf("expected exp a to exist")
	}
	if read.ID != "exp-a" || !reflect.DeepEqual(read.Seeds, []int64{1, 2}) {
		t.Fatalf("unexpected exp a payload: %+v", read)
	}
	if _, ok, err := ReadBenchmarkExperiment(base, "exp-missing"); err != nil || ok {
		t.Fatalf("expected missing experiment; ok=%t err=%v", ok, err)
	}

	list, err := ListBenchmarkExperiments(base)
	if err != nil {
		t.Fatalf("list experiments: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 experiments, got %d", len(list))
	}
	if list[0].ID != "exp-b" || list[1].ID != "exp-a" {
		t.Fatalf("unexpected list ordering: %+v", list)
	}
}

func TestBenchmarkExperimentSummarize(t *testing.T) {
	exp := BenchmarkExperiment{
		ID: "exp-1",
		Summaries: []BenchmarkSummary{
			{RunID: "run-3", Seed: 3, Optimal: "4", Iterations: 6, FinalSelectionError: 0.3, StoppingCondition: model.StopMaximumGeneralizationFailures},
			{RunID: "run-1", Seed: 1, Optimal: "4", Iterations: 2, FinalSelectionError: 0.1, StoppingCondition: model.StopMaximumIterations},
			{RunID: "run-2", Seed: 2, Optimal: "5", Iterations: 4, FinalSelectionError: 0.2, StoppingCondition: model.StopMaximumIterations},
		},
	}
	exp.Summarize()

	if !reflect.DeepEqual(exp.RunIDs, []string{"run-1", "run-2", "run-3"}) {
		t.Fatalf("unexpected run ids: %v", exp.RunIDs)
	}
	if math.Abs(exp.SelectionError.Mean-0.2) > 1e-12 || math.Abs(exp.SelectionError.Std-0.1) > 1e-12 {
		t.Fatalf("unexpected selection spread: %+v", exp.SelectionError)
	}
	if exp.Iterations.Min != 2 || exp.Iterations.Max != 6 || exp.Iterations.Mean != 4 {
		t.Fatalf("unexpected iterations spread: %+v", exp.Iterations)
	}
	if exp.Optimal["4"] != 2 || exp.Optimal["5"] != 1 {
		t.Fatalf("unexpected optimal counts: %v", exp.Optimal)
	}
	if exp.Conditions[model.StopMaximumIterations] != 2 {
		t.Fatalf("unexpected condition counts: %v", exp.Conditions)
	}
}

func TestSpreadOfSingleValue(t *testing.T) {
	got := spreadOf([]float64{0.5})
	if got != (Spread{Mean: 0.5, Std: 0, Min: 0.5, Max: 0.5}) {
		t.Fatalf("unexpected single value spread: %+v", got)
	}
	if spreadOf(nil) != (Spread{}) {
		t.Fatal("expected zero spread for no values")
	}
}
