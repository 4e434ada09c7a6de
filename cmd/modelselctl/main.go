package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/dustin/go-humanize"

	"modelsel/internal/inputs"
	"modelsel/internal/map2rec"
	"modelsel/internal/model"
	"modelsel/internal/order"
	"modelsel/pkg/modelsel"
)

const (
	artifactsDir = "runs"
	exportsDir   = "exports"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "order":
		return runOrder(ctx, args[1:])
	case "inputs":
		return runInputs(ctx, args[1:])
	case "benchmark":
		return runBenchmark(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "show":
		return runShow(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	case "config":
		return runConfig(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func runOrder(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("order", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional search config path (.json or .toml)")
	section := fs.String("section", defaultOrderSection, "config section holding the search fields")
	data := addDatasetFlags(fs)
	mdl := addModelFlags(fs)
	store := addStoreFlags(fs)
	seed := fs.Int64("seed", 1, "rng seed for the search and the trainer")
	addSettingsFlags(fs, order.DefaultConfig().Settings)
	addOrderFlags(fs, order.DefaultConfig())
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags, flagValue := visitFlags(fs)

	cfg, err := loadOrderConfig(*configPath, *section)
	if err != nil {
		return err
	}
	if err := overrideOrderFromFlags(&cfg, setFlags, flagValue); err != nil {
		return err
	}

	client, err := store.client(displayWriter(cfg.Settings, setFlags["display"] || *configPath != ""))
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.SelectOrder(ctx, modelsel.OrderRequest{
		Dataset: data.request(),
		Model:   mdl.request(),
		Config:  cfg,
		Seed:    *seed,
	})
	if err != nil {
		return err
	}
	results := summary.Results
	fmt.Printf("order selection completed run_id=%s dataset=%s seed=%d optimal_order=%d\n", summary.RunID, summary.Dataset, *seed, results.OptimalOrder)
	fmt.Printf("iterations=%s evaluations=%s elapsed=%s stopping_condition=%s\n",
		humanize.Comma(int64(results.Iterations)),
		humanize.Comma(int64(summary.Evaluations)),
		roundDuration(results.Elapsed),
		results.StoppingCondition,
	)
	fmt.Printf("final_training_error=%.6f final_selection_error=%.6f\n", results.FinalTrainingError, results.FinalSelectionError)
	fmt.Printf("artifacts_dir=%s\n", summary.ArtifactsDir)
	return nil
}

func runInputs(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("inputs", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional search config path (.json or .toml)")
	section := fs.String("section", defaultInputsSection, "config section holding the search fields")
	data := addDatasetFlags(fs)
	mdl := addModelFlags(fs)
	store := addStoreFlags(fs)
	seed := fs.Int64("seed", 1, "rng seed for the trainer")
	hidden := fs.Int("order", 3, "hidden unit count of the pruned model")
	addSettingsFlags(fs, inputs.DefaultConfig().Settings)
	addInputsFlags(fs, inputs.DefaultConfig())
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags, flagValue := visitFlags(fs)
	if *hidden <= 0 {
		return errors.New("order must be > 0")
	}

	cfg, err := loadInputsConfig(*configPath, *section)
	if err != nil {
		return err
	}
	if err := overrideInputsFromFlags(&cfg, setFlags, flagValue); err != nil {
		return err
	}

	client, err := store.client(displayWriter(cfg.Settings, setFlags["display"] || *configPath != ""))
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.SelectInputs(ctx, modelsel.InputsRequest{
		Dataset: data.request(),
		Model:   mdl.request(),
		Order:   *hidden,
		Config:  cfg,
		Seed:    *seed,
	})
	if err != nil {
		return err
	}
	results := summary.Results
	fmt.Printf("inputs selection completed run_id=%s dataset=%s seed=%d active=%d/%d\n",
		summary.RunID, summary.Dataset, *seed, results.ActiveInputs(), len(results.OptimalInputs))
	fmt.Printf("optimal_inputs=%s removed_inputs=%s\n", strings.Join(results.OptimalInputNames, ","), strings.Join(results.RemovedInputs, ","))
	fmt.Printf("iterations=%s elapsed=%s stopping_condition=%s\n",
		humanize.Comma(int64(results.Iterations)),
		roundDuration(results.Elapsed),
		results.StoppingCondition,
	)
	fmt.Printf("final_training_error=%.6f final_selection_error=%.6f\n", results.FinalTrainingError, results.FinalSelectionError)
	for i, st := range summary.Statistics {
		fmt.Printf("input=%s mean=%.6f std=%.6f min=%.6f max=%.6f\n",
			results.OptimalInputNames[i], st.Mean, st.StandardDeviation, st.Minimum, st.Maximum)
	}
	fmt.Printf("artifacts_dir=%s\n", summary.ArtifactsDir)
	return nil
}

func runBenchmark(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("benchmark", flag.ContinueOnError)
	kind := fs.String("kind", string(model.KindOrder), "search to repeat: order|inputs")
	configPath := fs.String("config", "", "optional search config path (.json or .toml)")
	section := fs.String("section", "", "config section holding the search fields")
	seedsFlag := fs.String("seeds", "", "comma separated seeds (overrides --seed/--runs)")
	firstSeed := fs.Int64("seed", 1, "first seed when --seeds is empty")
	runs := fs.Int("runs", 3, "number of consecutive seeds when --seeds is empty")
	workers := fs.Int("workers", 4, "concurrent runs")
	hidden := fs.Int("order", 3, "hidden unit count of the pruned model (inputs kind)")
	data := addDatasetFlags(fs)
	mdl := addModelFlags(fs)
	store := addStoreFlags(fs)
	addSettingsFlags(fs, order.DefaultConfig().Settings)
	addOrderFlags(fs, order.DefaultConfig())
	addInputsFlags(fs, inputs.DefaultConfig())
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags, flagValue := visitFlags(fs)

	seeds, err := parseSeeds(*seedsFlag)
	if err != nil {
		return err
	}
	if len(seeds) == 0 {
		if *runs <= 0 {
			return errors.New("runs must be > 0")
		}
		for i := 0; i < *runs; i++ {
			seeds = append(seeds, *firstSeed+int64(i))
		}
	}
	if *workers <= 0 {
		return errors.New("workers must be > 0")
	}

	req := modelsel.BenchmarkRequest{
		Kind:    model.SearchKind(*kind),
		Seeds:   seeds,
		Workers: *workers,
	}
	switch req.Kind {
	case model.KindOrder:
		cfg, err := loadOrderConfig(*configPath, *section)
		if err != nil {
			return err
		}
		if err := overrideOrderFromFlags(&cfg, setFlags, flagValue); err != nil {
			return err
		}
		req.Order = modelsel.OrderRequest{Dataset: data.request(), Model: mdl.request(), Config: cfg}
	case model.KindInputs:
		cfg, err := loadInputsConfig(*configPath, *section)
		if err != nil {
			return err
		}
		if err := overrideInputsFromFlags(&cfg, setFlags, flagValue); err != nil {
			return err
		}
		req.Inputs = modelsel.InputsRequest{Dataset: data.request(), Model: mdl.request(), Order: *hidden, Config: cfg}
	default:
		return fmt.Errorf("unsupported benchmark kind: %s", *kind)
	}

	client, err := store.client(nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	report, err := client.Benchmark(ctx, req)
	if err != nil {
		return err
	}
	exp := report.Experiment
	for _, s := range exp.Summaries {
		fmt.Printf("seed=%d run_id=%s optimal=%s iterations=%d final_selection_error=%.6f stopping_condition=%s\n",
			s.Seed, s.RunID, s.Optimal, s.Iterations, s.FinalSelectionError, s.StoppingCondition)
	}
	fmt.Printf("benchmark completed id=%s kind=%s dataset=%s runs=%d\n", exp.ID, exp.Kind, exp.Dataset, len(exp.Summaries))
	fmt.Printf("selection_error_mean=%.6f selection_error_std=%.6f selection_error_min=%.6f selection_error_max=%.6f\n",
		exp.SelectionError.Mean, exp.SelectionError.Std, exp.SelectionError.Min, exp.SelectionError.Max)
	fmt.Printf("iterations_mean=%.2f iterations_std=%.2f\n", exp.Iterations.Mean, exp.Iterations.Std)
	optimal := make([]string, 0, len(exp.Optimal))
	for value := range exp.Optimal {
		optimal = append(optimal, value)
	}
	sort.Strings(optimal)
	for _, value := range optimal {
		fmt.Printf("optimal=%s count=%d\n", value, exp.Optimal[value])
	}
	fmt.Printf("experiment_dir=%s\n", report.Directory)
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list")
	kind := fs.String("kind", "", "only list runs of this kind: order|inputs")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	store := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := store.client(nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summaries, err := client.Runs(ctx, modelsel.RunsRequest{Limit: *limit, Kind: model.SearchKind(*kind)})
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summaries)
	}
	if len(summaries) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	for _, s := range summaries {
		fmt.Printf("run_id=%s kind=%s created=%q dataset=%s seed=%d iterations=%d final_selection_error=%.6f stopping_condition=%s\n",
			s.ID,
			s.Kind,
			humanize.Time(s.CreatedAt),
			s.Dataset,
			s.Seed,
			s.Iterations,
			s.FinalSelectionError,
			s.StoppingCondition,
		)
	}
	return nil
}

func runShow(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show the most recent run from run index")
	jsonOut := fs.Bool("json", false, "emit run details as JSON")
	store := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("show requires --run-id or --latest")
	}

	client, err := store.client(nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	details, err := client.Show(ctx, modelsel.ShowRequest{RunID: *runID, Latest: *latest})
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(details)
	}

	s := details.Summary
	fmt.Printf("run_id=%s kind=%s created_at=%s dataset=%s seed=%d iterations=%d stopping_condition=%s\n",
		s.ID, s.Kind, s.CreatedAt.Format(time.RFC3339), s.Dataset, s.Seed, s.Iterations, s.StoppingCondition)
	keys := make([]string, 0, len(details.Config))
	for key := range details.Config {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Printf("config %s=%v\n", key, details.Config[key])
	}
	switch {
	case details.Order != nil:
		r := details.Order
		fmt.Printf("optimal_order=%d final_training_error=%.6f final_selection_error=%.6f elapsed=%s\n",
			r.OptimalOrder, r.FinalTrainingError, r.FinalSelectionError, roundDuration(r.Elapsed))
		for i, sample := range r.SelectionHistory {
			fmt.Printf("step=%d order=%d selection_error=%.6f\n", i, sample.Configuration, sample.Value)
		}
	case details.Inputs != nil:
		r := details.Inputs
		fmt.Printf("optimal_inputs=%s active=%d/%d final_training_error=%.6f final_selection_error=%.6f elapsed=%s\n",
			strings.Join(r.OptimalInputNames, ","), r.ActiveInputs(), len(r.OptimalInputs), r.FinalTrainingError, r.FinalSelectionError, roundDuration(r.Elapsed))
		for i, sample := range r.SelectionHistory {
			fmt.Printf("step=%d active=%d selection_error=%.6f\n", i, model.CountSelected(sample.Configuration), sample.Value)
		}
	}
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent run from run index")
	outDir := fs.String("out", exportsDir, "export output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("export requires --run-id or --latest")
	}

	client, err := modelsel.New(modelsel.Options{StoreKind: "memory", ArtifactsDir: artifactsDir, ExportsDir: exportsDir})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	exported, err := client.Export(ctx, modelsel.ExportRequest{RunID: *runID, Latest: *latest, OutDir: *outDir})
	if err != nil {
		return err
	}
	fmt.Printf("exported run_id=%s to=%s\n", exported.RunID, exported.Directory)
	return nil
}

// runConfig prints a search configuration record: the defaults of a kind, or
// the effective configuration read from a file.
func runConfig(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	kind := fs.String("kind", map2rec.KindSimulatedAnnealing, "record kind: "+strings.Join(map2rec.Kinds(), "|"))
	from := fs.String("from", "", "optional config path (.json or .toml) to normalize")
	section := fs.String("section", "", "config section holding the search fields")
	format := fs.String("format", "json", "output format: json|toml|record")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var fields map[string]any
	if *from == "" {
		defaults, err := map2rec.DefaultRecord(*kind)
		if err != nil {
			return err
		}
		fields = defaults
	} else {
		loaded, err := map2rec.LoadFile(*from, *section)
		if err != nil {
			return err
		}
		converted, err := map2rec.Convert(*kind, loaded, warnTo(os.Stderr, *from))
		if err != nil {
			return err
		}
		switch cfg := converted.(type) {
		case order.Config:
			fields = map2rec.SimulatedAnnealingFields(cfg)
		case inputs.Config:
			fields = map2rec.SelectivePruningFields(cfg)
		}
	}

	switch *format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(fields)
	case "toml":
		return toml.NewEncoder(os.Stdout).Encode(fields)
	case "record":
		data, err := map2rec.EncodeRecord(*kind, fields)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(os.Stdout, string(data))
		return err
	default:
		return fmt.Errorf("unsupported config format: %s", *format)
	}
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: modelselctl <order|inputs|benchmark|runs|show|export|config> [flags]", msg)
}
