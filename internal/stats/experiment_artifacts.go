package stats

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"modelsel/internal/model"
)

const benchmarkExperimentsDir = "experiments"

// BenchmarkSummary is the outcome of one seed of a benchmark.
type BenchmarkSummary struct {
	RunID               string                  `json:"run_id"`
	Seed                int64                   `json:"seed"`
	Optimal             string                  `json:"optimal"`
	Iterations          int                     `json:"iterations"`
	FinalTrainingError  float64                 `json:"final_training_error"`
	FinalSelectionError float64                 `json:"final_selection_error"`
	StoppingCondition   model.StoppingCondition `json:"stopping_condition"`
}

type Spread struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// BenchmarkExperiment groups the runs of one benchmark invocation.
type BenchmarkExperiment struct {
	ID             string                          `json:"id"`
	Kind           model.SearchKind                `json:"kind"`
	Dataset        string                          `json:"dataset"`
	StartedAtUTC   string                          `json:"started_at_utc,omitempty"`
	CompletedAtUTC string                          `json:"completed_at_utc,omitempty"`
	Seeds          []int64                         `json:"seeds"`
	RunIDs         []string                        `json:"run_ids,omitempty"`
	Summaries      []BenchmarkSummary              `json:"summaries,omitempty"`
	SelectionError Spread                          `json:"selection_error"`
	Iterations     Spread                          `json:"iterations"`
	Optimal        map[string]int                  `json:"optimal,omitempty"`
	Conditions     map[model.StoppingCondition]int `json:"conditions,omitempty"`
}

// Summarize fills the aggregate fields from Summaries. Summaries are kept in
// seed order.
func (e *BenchmarkExperiment) Summarize() {
	sort.SliceStable(e.Summaries, func(i, j int) bool { return e.Summaries[i].Seed < e.Summaries[j].Seed })
	e.RunIDs = e.RunIDs[:0]
	e.Optimal = make(map[string]int)
	e.Conditions = make(map[model.StoppingCondition]int)
	selection := make([]float64, 0, len(e.Summaries))
	iterations := make([]float64, 0, len(e.Summaries))
	for _, summary := range e.Summaries {
		e.RunIDs = append(e.RunIDs, summary.RunID)
		e.Optimal[summary.Optimal]++
		e.Conditions[summary.StoppingCondition]++
		selection = append(selection, summary.FinalSelectionError)
		iterations = append(iterations, float64(summary.Iterations))
	}
	e.SelectionError = spreadOf(selection)
	e.Iterations = spreadOf(iterations)
}

func spreadOf(values []float64) Spread {
	if len(values) == 0 {
		return Spread{}
	}
	mean, std := stat.MeanStdDev(values, nil)
	if len(values) == 1 {
		std = 0
	}
	return Spread{Mean: mean, Std: std, Min: floats.Min(values), Max: floats.Max(values)}
}

func WriteBenchmarkExperiment(baseDir string, exp BenchmarkExperiment) error {
	if exp.ID == "" {
		return fmt.Errorf("experiment id is required")
	}
	path := benchmarkExperimentPath(baseDir, exp.ID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return writeJSON(path, exp)
}

func ReadBenchmarkExperiment(baseDir, id string) (BenchmarkExperiment, bool, error) {
	if id == "" {
		return BenchmarkExperiment{}, false, fmt.Errorf("experiment id is required")
	}
	var exp BenchmarkExperiment
	ok, err := readJSON(benchmarkExperimentPath(baseDir, id), &exp)
	if err != nil || !ok {
		return BenchmarkExperiment{}, ok, err
	}
	return exp, true, nil
}

func ListBenchmarkExperiments(baseDir string) ([]BenchmarkExperiment, error) {
	root := filepath.Join(baseDir, benchmarkExperimentsDir)
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return []BenchmarkExperiment{}, nil
		}
		return nil, err
	}

	exps := make([]BenchmarkExperiment, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		exp, ok, err := ReadBenchmarkExperiment(baseDir, entry.Name())
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		exps = append(exps, exp)
	}
	sort.Slice(exps, func(i, j int) bool {
		switch {
		case exps[i].StartedAtUTC == exps[j].StartedAtUTC:
			return exps[i].ID < exps[j].ID
		case exps[i].StartedAtUTC == "":
			return false
		case exps[j].StartedAtUTC == "":
			return true
		default:
			return exps[i].StartedAtUTC > exps[j].StartedAtUTC
		}
	})
	return exps, nil
}

func benchmarkExperimentPath(baseDir, id string) string {
	return filepath.Join(baseDir, benchmarkExperimentsDir, id, "experiment.json")
}
