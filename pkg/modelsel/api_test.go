package modelsel

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"modelsel/internal/inputs"
	"modelsel/internal/model"
	"modelsel/internal/order"
	"modelsel/internal/stats"
)

func newTestClient(t *testing.T, base string, display *bytes.Buffer) *Client {
	t.Helper()
	opts := Options{
		StoreKind:    "memory",
		ArtifactsDir: filepath.Join(base, "runs"),
		ExportsDir:   filepath.Join(base, "exports"),
	}
	if display != nil {
		opts.Display = display
	}
	client, err := New(opts)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}

func smallDataset() DatasetRequest {
	return DatasetRequest{Seed: 3, Synthetic: SyntheticRequest{Instances: 80, Informative: 2, Noise: 2}}
}

func smallOrderConfig(t *testing.T) order.Config {
	t.Helper()
	cfg := order.DefaultConfig()
	if err := cfg.SetOrderRange(1, 4); err != nil {
		t.Fatalf("set order range: %v", err)
	}
	if err := cfg.SetMaximumIterations(3); err != nil {
		t.Fatalf("set iterations: %v", err)
	}
	return cfg
}

func TestClientSelectOrderRunsShowAndExport(t *testing.T) {
	base := t.TempDir()
	client := newTestClient(t, base, nil)
	ctx := context.Background()

	summary, err := client.SelectOrder(ctx, OrderRequest{
		Dataset: smallDataset(),
		Config:  smallOrderConfig(t),
		Seed:    7,
	})
	if err != nil {
		t.Fatalf("select order: %v", err)
	}
	if !strings.HasPrefix(summary.RunID, "order-") {
		t.Fatalf("unexpected run id: %s", summary.RunID)
	}
	if summary.Results.OptimalOrder < 1 || summary.Results.OptimalOrder > 4 {
		t.Fatalf("optimal order out of range: %d", summary.Results.OptimalOrder)
	}
	if summary.Evaluations < 1 || summary.Evaluations > 4 {
		t.Fatalf("unexpected evaluation count: %d", summary.Evaluations)
	}
	for _, file := range []string{"config.json", "results.json", "history.csv"} {
		if _, err := os.Stat(filepath.Join(summary.ArtifactsDir, file)); err != nil {
			t.Fatalf("expected artifact %s: %v", file, err)
		}
	}

	runs, err := client.Runs(ctx, RunsRequest{Limit: 5})
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != summary.RunID || runs[0].Kind != model.KindOrder {
		t.Fatalf("expected run %s in runs list: %+v", summary.RunID, runs)
	}

	details, err := client.Show(ctx, ShowRequest{Latest: true})
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if details.Order == nil || details.Order.OptimalOrder != summary.Results.OptimalOrder {
		t.Fatalf("unexpected shown run: %+v", details)
	}
	if details.Config["maximum_order"] != float64(4) {
		t.Fatalf("expected stored config, got %v", details.Config)
	}

	exported, err := client.Export(ctx, ExportRequest{Latest: true})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if exported.RunID != summary.RunID {
		t.Fatalf("unexpected exported run: %s", exported.RunID)
	}
	if _, err := os.Stat(filepath.Join(exported.Directory, "results.json")); err != nil {
		t.Fatalf("expected exported results: %v", err)
	}
}

func TestClientSelectInputsWritesDisplay(t *testing.T) {
	base := t.TempDir()
	var display bytes.Buffer
	client := newTestClient(t, base, &display)

	summary, err := client.SelectInputs(context.Background(), InputsRequest{
		Dataset: smallDataset(),
		Order:   2,
		Seed:    5,
	})
	if err != nil {
		t.Fatalf("select inputs: %v", err)
	}
	if !strings.HasPrefix(summary.RunID, "inputs-") {
		t.Fatalf("unexpected run id: %s", summary.RunID)
	}
	results := summary.Results
	if len(results.OptimalInputs) != 4 {
		t.Fatalf("expected 4 candidate inputs, got %d", len(results.OptimalInputs))
	}
	if len(results.OptimalInputNames) != results.ActiveInputs() || len(summary.Statistics) != results.ActiveInputs() {
		t.Fatalf("names and statistics must follow the mask: %+v %+v", results.OptimalInputNames, summary.Statistics)
	}
	if len(results.InputsHistory) != results.Iterations+1 {
		t.Fatalf("expected one mask per round plus the initial one, got %d for %d rounds", len(results.InputsHistory), results.Iterations)
	}
	out := display.String()
	if !strings.Contains(out, "inputs_selection_started") || !strings.Contains(out, "stopped condition=") {
		t.Fatalf("unexpected display output:\n%s", out)
	}

	rows, ok, err := stats.ReadHistory(filepath.Join(base, "runs"), summary.RunID)
	if err != nil || !ok {
		t.Fatalf("read history: ok=%t err=%v", ok, err)
	}
	if len(rows) != len(results.InputsHistory) {
		t.Fatalf("expected %d history rows, got %d", len(results.InputsHistory), len(rows))
	}
}

func TestClientBenchmarkOrder(t *testing.T) {
	base := t.TempDir()
	client := newTestClient(t, base, nil)
	ctx := context.Background()

	report, err := client.Benchmark(ctx, BenchmarkRequest{
		Kind:    model.KindOrder,
		Seeds:   []int64{3, 1, 2},
		Workers: 2,
		Order:   OrderRequest{Dataset: smallDataset(), Config: smallOrderConfig(t)},
	})
	if err != nil {
		t.Fatalf("benchmark: %v", err)
	}
	exp := report.Experiment
	if len(exp.Summaries) != 3 || exp.Summaries[0].Seed != 1 || exp.Summaries[2].Seed != 3 {
		t.Fatalf("unexpected benchmark summaries: %+v", exp.Summaries)
	}
	if exp.Dataset == "" || exp.CompletedAtUTC == "" {
		t.Fatalf("expected dataset and completion time: %+v", exp)
	}
	if _, err := os.Stat(filepath.Join(report.Directory, "experiment.json")); err != nil {
		t.Fatalf("expected experiment file: %v", err)
	}

	runs, err := client.Runs(ctx, RunsRequest{Kind: model.KindOrder})
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 benchmark runs, got %d", len(runs))
	}
	inputsRuns, err := client.Runs(ctx, RunsRequest{Kind: model.KindInputs})
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(inputsRuns) != 0 {
		t.Fatalf("expected no inputs runs, got %+v", inputsRuns)
	}
}

func TestClientBenchmarkInputs(t *testing.T) {
	client := newTestClient(t, t.TempDir(), nil)

	cfg := inputs.DefaultConfig()
	if err := cfg.SetMinimumInputs(2); err != nil {
		t.Fatalf("set minimum inputs: %v", err)
	}
	report, err := client.Benchmark(context.Background(), BenchmarkRequest{
		Kind:  model.KindInputs,
		Seeds: []int64{1, 2},
		Inputs: InputsRequest{
			Dataset: smallDataset(),
			Order:   2,
			Config:  cfg,
		},
	})
	if err != nil {
		t.Fatalf("benchmark: %v", err)
	}
	for _, summary := range report.Experiment.Summaries {
		if summary.Optimal == "" || len(strings.Split(summary.Optimal, ",")) < 2 {
			t.Fatalf("expected at least two retained inputs: %+v", summary)
		}
	}
}

func TestClientShowFallsBackToArtifacts(t *testing.T) {
	base := t.TempDir()
	first := newTestClient(t, base, nil)
	summary, err := first.SelectOrder(context.Background(), OrderRequest{
		Dataset: smallDataset(),
		Config:  smallOrderConfig(t),
		Seed:    11,
	})
	if err != nil {
		t.Fatalf("select order: %v", err)
	}

	second := newTestClient(t, base, nil)
	details, err := second.Show(context.Background(), ShowRequest{RunID: summary.RunID})
	if err != nil {
		t.Fatalf("show from artifacts: %v", err)
	}
	if details.Order == nil || details.Summary.Kind != model.KindOrder {
		t.Fatalf("unexpected details: %+v", details)
	}
	if details.Summary.StoppingCondition != summary.Results.StoppingCondition {
		t.Fatalf("unexpected stopping condition: %s", details.Summary.StoppingCondition)
	}
	if _, err := second.Show(context.Background(), ShowRequest{RunID: "order-missing"}); err == nil {
		t.Fatal("expected missing run error")
	}
}

func TestClientRejectsInvalidRequests(t *testing.T) {
	client := newTestClient(t, t.TempDir(), nil)
	ctx := context.Background()

	if _, err := client.Export(ctx, ExportRequest{}); err == nil {
		t.Fatal("expected export without run id to fail")
	}
	if _, err := client.Show(ctx, ShowRequest{RunID: "x", Latest: true}); err == nil {
		t.Fatal("expected conflicting show request to fail")
	}
	if _, err := client.Show(ctx, ShowRequest{Latest: true}); err == nil {
		t.Fatal("expected latest without runs to fail")
	}
	if _, err := client.Benchmark(ctx, BenchmarkRequest{Kind: "tuning", Seeds: []int64{1}}); err == nil {
		t.Fatal("expected unsupported benchmark kind")
	}
	if _, err := client.Benchmark(ctx, BenchmarkRequest{Kind: model.KindOrder}); err == nil {
		t.Fatal("expected benchmark without seeds to fail")
	}
	if _, err := client.SelectOrder(ctx, OrderRequest{Model: ModelRequest{Scaling: "log"}}); err == nil {
		t.Fatal("expected unknown scaling method to fail")
	}
	if _, err := client.SelectOrder(ctx, OrderRequest{Model: ModelRequest{Activation: "softsign"}}); err == nil {
		t.Fatal("expected unknown activation to fail")
	}
	if _, err := New(Options{StoreKind: "postgres"}); err == nil {
		t.Fatal("expected unsupported store kind")
	}
}
