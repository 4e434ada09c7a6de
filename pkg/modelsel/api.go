package modelsel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"modelsel/internal/dataset"
	"modelsel/internal/inputs"
	"modelsel/internal/map2rec"
	"modelsel/internal/model"
	"modelsel/internal/oracle"
	"modelsel/internal/order"
	"modelsel/internal/search"
	"modelsel/internal/stats"
	"modelsel/internal/storage"
)

const (
	defaultArtifactsDir = "runs"
	defaultExportsDir   = "exports"
	defaultDBPath       = "modelsel.db"

	defaultTrainingRatio  = 0.6
	defaultSelectionRatio = 0.2
	defaultInputsOrder    = 3
)

type Options struct {
	StoreKind    string
	DBPath       string
	ArtifactsDir string
	ExportsDir   string
	// Display receives progress lines of single runs. Nil keeps runs silent.
	Display io.Writer
}

type Client struct {
	store storage.Store

	artifactsDir string
	exportsDir   string
	display      io.Writer
	now          func() time.Time

	initOnce sync.Once
	initErr  error
	indexMu  sync.Mutex
}

// SyntheticRequest shapes the generated dataset used when no path is given.
type SyntheticRequest struct {
	Instances   int
	Informative int
	Noise       int
}

type DatasetRequest struct {
	Path    string
	Targets []string
	Unused  []string
	// Seed fixes the synthetic table and the instance split.
	Seed           int64
	Synthetic      SyntheticRequest
	TrainingRatio  float64
	SelectionRatio float64
}

type ModelRequest struct {
	Activation     string
	Scaling        string
	Regularization float64
}

type OrderRequest struct {
	Dataset DatasetRequest
	Model   ModelRequest
	// Config is used as given; the zero value means order.DefaultConfig().
	Config order.Config
	Seed   int64
}

type InputsRequest struct {
	Dataset DatasetRequest
	Model   ModelRequest
	// Order is the hidden unit count of the pruned model.
	Order  int
	Config inputs.Config
	Seed   int64
}

type OrderSummary struct {
	RunID        string
	ArtifactsDir string
	Dataset      string
	Evaluations  int
	Results      model.OrderResults
}

type InputsSummary struct {
	RunID        string
	ArtifactsDir string
	Dataset      string
	Statistics   []model.Statistics
	Results      model.InputsResults
}

type BenchmarkRequest struct {
	Kind    model.SearchKind
	Seeds   []int64
	Workers int
	Order   OrderRequest
	Inputs  InputsRequest
}

type BenchmarkReport struct {
	Directory  string
	Experiment stats.BenchmarkExperiment
}

type RunsRequest struct {
	Limit int
	Kind  model.SearchKind
}

type ShowRequest struct {
	RunID  string
	Latest bool
}

// RunDetails holds one stored run; exactly one of Order or Inputs is set.
type RunDetails struct {
	Summary model.RunSummary
	Order   *model.OrderResults
	Inputs  *model.InputsResults
	Config  map[string]any
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	artifactsDir := opts.ArtifactsDir
	if artifactsDir == "" {
		artifactsDir = defaultArtifactsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:        store,
		artifactsDir: artifactsDir,
		exportsDir:   exportsDir,
		display:      opts.Display,
		now:          func() time.Time { return time.Now().UTC() },
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	c.initOnce.Do(func() {
		c.initErr = c.store.Init(ctx)
	})
	return c.initErr
}

func (c *Client) SelectOrder(ctx context.Context, req OrderRequest) (OrderSummary, error) {
	return c.selectOrder(ctx, req, search.NewDisplay(c.display, c.display != nil))
}

func (c *Client) selectOrder(ctx context.Context, req OrderRequest, display search.Display) (OrderSummary, error) {
	if err := c.Init(ctx); err != nil {
		return OrderSummary{}, err
	}
	if req.Config == (order.Config{}) {
		req.Config = order.DefaultConfig()
	}
	data, scaling, err := prepare(req.Dataset, req.Model)
	if err != nil {
		return OrderSummary{}, err
	}

	trainer := newTrainer(data, req.Model, scaling, req.Seed)
	evaluator, err := oracle.NewOrderTrainer(trainer, req.Config.TrialsNumber(), req.Config.PerformanceMethod())
	if err != nil {
		return OrderSummary{}, err
	}
	sa := &order.SimulatedAnnealing{
		Config:  req.Config,
		Rand:    rand.New(rand.NewSource(req.Seed)),
		Display: display,
	}
	results, err := sa.Run(ctx, evaluator)
	if err != nil {
		return OrderSummary{}, fmt.Errorf("order selection: %w", err)
	}

	now := c.now()
	run := model.OrderRun{
		VersionedRecord: storage.CurrentVersion(),
		ID:              newRunID(model.KindOrder),
		CreatedAt:       now,
		Dataset:         data.Name,
		Seed:            req.Seed,
		Config:          map2rec.SimulatedAnnealingFields(req.Config),
		Results:         results,
	}
	if err := c.store.SaveOrderRun(ctx, run); err != nil {
		return OrderSummary{}, err
	}
	runDir, err := c.writeArtifacts(stats.RunArtifacts{
		Config: stats.RunConfig{
			RunID:        run.ID,
			Kind:         model.KindOrder,
			Method:       sa.Name(),
			Dataset:      data.Name,
			Seed:         req.Seed,
			Activation:   trainer.Activation,
			Scaling:      string(scaling),
			Fields:       run.Config,
			CreatedAtUTC: now.Format(time.RFC3339Nano),
		},
		Order: &results,
	}, run.Summary())
	if err != nil {
		return OrderSummary{}, err
	}

	return OrderSummary{
		RunID:        run.ID,
		ArtifactsDir: runDir,
		Dataset:      data.Name,
		Evaluations:  evaluator.Evaluations(),
		Results:      results,
	}, nil
}

func (c *Client) SelectInputs(ctx context.Context, req InputsRequest) (InputsSummary, error) {
	return c.selectInputs(ctx, req, search.NewDisplay(c.display, c.display != nil))
}

func (c *Client) selectInputs(ctx context.Context, req InputsRequest, display search.Display) (InputsSummary, error) {
	if err := c.Init(ctx); err != nil {
		return InputsSummary{}, err
	}
	if req.Config == (inputs.Config{}) {
		req.Config = inputs.DefaultConfig()
	}
	if req.Order <= 0 {
		req.Order = defaultInputsOrder
	}
	data, scaling, err := prepare(req.Dataset, req.Model)
	if err != nil {
		return InputsSummary{}, err
	}

	trainer := newTrainer(data, req.Model, scaling, req.Seed)
	evaluator, err := oracle.NewInputsTrainer(trainer, req.Order)
	if err != nil {
		return InputsSummary{}, err
	}
	sp := &inputs.SelectivePruning{Config: req.Config, Display: display}
	results, err := sp.Run(ctx, evaluator)
	if err != nil {
		return InputsSummary{}, fmt.Errorf("inputs selection: %w", err)
	}

	now := c.now()
	run := model.InputsRun{
		VersionedRecord: storage.CurrentVersion(),
		ID:              newRunID(model.KindInputs),
		CreatedAt:       now,
		Dataset:         data.Name,
		Seed:            req.Seed,
		Config:          map2rec.SelectivePruningFields(req.Config),
		Results:         results,
	}
	if err := c.store.SaveInputsRun(ctx, run); err != nil {
		return InputsSummary{}, err
	}
	runDir, err := c.writeArtifacts(stats.RunArtifacts{
		Config: stats.RunConfig{
			RunID:        run.ID,
			Kind:         model.KindInputs,
			Method:       sp.Name(),
			Dataset:      data.Name,
			Seed:         req.Seed,
			Activation:   trainer.Activation,
			Scaling:      string(scaling),
			Order:        req.Order,
			Fields:       run.Config,
			CreatedAtUTC: now.Format(time.RFC3339Nano),
		},
		Inputs: &results,
	}, run.Summary())
	if err != nil {
		return InputsSummary{}, err
	}

	summary := InputsSummary{
		RunID:        run.ID,
		ArtifactsDir: runDir,
		Dataset:      data.Name,
		Results:      results,
	}
	if net := evaluator.Network(); net != nil {
		summary.Statistics = append([]model.Statistics(nil), net.Statistics...)
	}
	return summary, nil
}

// Benchmark repeats one search over several seeds. Seeds run concurrently,
// each with its own dataset copy and oracle, and progress display is off.
func (c *Client) Benchmark(ctx context.Context, req BenchmarkRequest) (BenchmarkReport, error) {
	if req.Kind != model.KindOrder && req.Kind != model.KindInputs {
		return BenchmarkReport{}, fmt.Errorf("unsupported benchmark kind: %q", req.Kind)
	}
	if len(req.Seeds) == 0 {
		return BenchmarkReport{}, errors.New("benchmark requires at least one seed")
	}
	if req.Workers <= 0 {
		req.Workers = 4
	}
	if err := c.Init(ctx); err != nil {
		return BenchmarkReport{}, err
	}

	exp := stats.BenchmarkExperiment{
		ID:           "bench-" + uuid.NewString(),
		Kind:         req.Kind,
		StartedAtUTC: c.now().Format(time.RFC3339Nano),
		Seeds:        append([]int64(nil), req.Seeds...),
	}
	summaries := make([]stats.BenchmarkSummary, len(req.Seeds))
	datasets := make([]string, len(req.Seeds))

	p := pool.New().WithContext(ctx).WithMaxGoroutines(req.Workers).WithCancelOnError()
	for i, seed := range req.Seeds {
		i, seed := i, seed
		p.Go(func(ctx context.Context) error {
			if req.Kind == model.KindOrder {
				orderReq := req.Order
				orderReq.Seed = seed
				out, err := c.selectOrder(ctx, orderReq, search.Display{})
				if err != nil {
					return fmt.Errorf("seed %d: %w", seed, err)
				}
				datasets[i] = out.Dataset
				summaries[i] = stats.BenchmarkSummary{
					RunID:               out.RunID,
					Seed:                seed,
					Optimal:             strconv.Itoa(out.Results.OptimalOrder),
					Iterations:          out.Results.Iterations,
					FinalTrainingError:  out.Results.FinalTrainingError,
					FinalSelectionError: out.Results.FinalSelectionError,
					StoppingCondition:   out.Results.StoppingCondition,
				}
				return nil
			}
			inputsReq := req.Inputs
			inputsReq.Seed = seed
			out, err := c.selectInputs(ctx, inputsReq, search.Display{})
			if err != nil {
				return fmt.Errorf("seed %d: %w", seed, err)
			}
			datasets[i] = out.Dataset
			summaries[i] = stats.BenchmarkSummary{
				RunID:               out.RunID,
				Seed:                seed,
				Optimal:             strings.Join(out.Results.OptimalInputNames, ","),
				Iterations:          out.Results.Iterations,
				FinalTrainingError:  out.Results.FinalTrainingError,
				FinalSelectionError: out.Results.FinalSelectionError,
				StoppingCondition:   out.Results.StoppingCondition,
			}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return BenchmarkReport{}, err
	}

	exp.Dataset = datasets[0]
	exp.Summaries = summaries
	exp.CompletedAtUTC = c.now().Format(time.RFC3339Nano)
	exp.Summarize()
	if err := stats.WriteBenchmarkExperiment(c.artifactsDir, exp); err != nil {
		return BenchmarkReport{}, err
	}
	return BenchmarkReport{
		Directory:  filepath.Clean(filepath.Join(c.artifactsDir, "experiments", exp.ID)),
		Experiment: exp,
	}, nil
}

// Runs lists indexed runs, newest first, followed by runs only known to the
// store.
func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]model.RunSummary, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}
	if err := c.Init(ctx); err != nil {
		return nil, err
	}

	entries, err := stats.ListRunIndex(c.artifactsDir)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(entries))
	out := make([]model.RunSummary, 0, len(entries))
	for _, e := range entries {
		seen[e.RunID] = struct{}{}
		created, _ := time.Parse(time.RFC3339Nano, e.CreatedAtUTC)
		out = append(out, model.RunSummary{
			ID:                  e.RunID,
			Kind:                e.Kind,
			CreatedAt:           created,
			Dataset:             e.Dataset,
			Seed:                e.Seed,
			Iterations:          e.Iterations,
			FinalSelectionError: e.FinalSelectionError,
			StoppingCondition:   e.StoppingCondition,
		})
	}
	stored, err := c.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	for i := len(stored) - 1; i >= 0; i-- {
		if _, ok := seen[stored[i].ID]; !ok {
			out = append(out, stored[i])
		}
	}

	filtered := out[:0]
	for _, summary := range out {
		if req.Kind == "" || summary.Kind == req.Kind {
			filtered = append(filtered, summary)
		}
	}
	if len(filtered) > req.Limit {
		filtered = filtered[:req.Limit]
	}
	return filtered, nil
}

// Show returns a run from the store, or from its artifacts when the store
// does not hold it.
func (c *Client) Show(ctx context.Context, req ShowRequest) (RunDetails, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return RunDetails{}, err
	}
	if err := c.Init(ctx); err != nil {
		return RunDetails{}, err
	}

	if run, ok, err := c.store.GetOrderRun(ctx, runID); err != nil {
		return RunDetails{}, err
	} else if ok {
		return RunDetails{Summary: run.Summary(), Order: &run.Results, Config: run.Config}, nil
	}
	if run, ok, err := c.store.GetInputsRun(ctx, runID); err != nil {
		return RunDetails{}, err
	} else if ok {
		return RunDetails{Summary: run.Summary(), Inputs: &run.Results, Config: run.Config}, nil
	}

	cfg, ok, err := stats.ReadRunConfig(c.artifactsDir, runID)
	if err != nil {
		return RunDetails{}, err
	}
	if !ok {
		return RunDetails{}, fmt.Errorf("run not found: %s", runID)
	}
	created, _ := time.Parse(time.RFC3339Nano, cfg.CreatedAtUTC)
	summary := model.RunSummary{ID: runID, Kind: cfg.Kind, CreatedAt: created, Dataset: cfg.Dataset, Seed: cfg.Seed}
	switch cfg.Kind {
	case model.KindOrder:
		results, ok, err := stats.ReadOrderResults(c.artifactsDir, runID)
		if err != nil || !ok {
			return RunDetails{}, resultsMissing(runID, err)
		}
		summary.Iterations = results.Iterations
		summary.FinalSelectionError = results.FinalSelectionError
		summary.StoppingCondition = results.StoppingCondition
		return RunDetails{Summary: summary, Order: &results, Config: cfg.Fields}, nil
	case model.KindInputs:
		results, ok, err := stats.ReadInputsResults(c.artifactsDir, runID)
		if err != nil || !ok {
			return RunDetails{}, resultsMissing(runID, err)
		}
		summary.Iterations = results.Iterations
		summary.FinalSelectionError = results.FinalSelectionError
		summary.StoppingCondition = results.StoppingCondition
		return RunDetails{Summary: summary, Inputs: &results, Config: cfg.Fields}, nil
	default:
		return RunDetails{}, fmt.Errorf("run %s has unknown kind %q", runID, cfg.Kind)
	}
}

func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	if req.RunID == "" && !req.Latest {
		return ExportSummary{}, errors.New("export requires run id or latest")
	}
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return ExportSummary{}, err
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}

	exportedDir, err := stats.ExportRunArtifacts(c.artifactsDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

func (c *Client) resolveRunID(runID string, latest bool) (string, error) {
	if runID != "" && latest {
		return "", errors.New("use either run id or latest")
	}
	if !latest {
		if runID == "" {
			return "", errors.New("run id is required")
		}
		return runID, nil
	}
	entries, err := stats.ListRunIndex(c.artifactsDir)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", errors.New("no runs available")
	}
	return entries[0].RunID, nil
}

func (c *Client) writeArtifacts(artifacts stats.RunArtifacts, summary model.RunSummary) (string, error) {
	c.indexMu.Lock()
	defer c.indexMu.Unlock()

	runDir, err := stats.WriteRunArtifacts(c.artifactsDir, artifacts)
	if err != nil {
		return "", err
	}
	if err := stats.AppendRunIndex(c.artifactsDir, stats.RunIndexEntry{
		RunID:               summary.ID,
		Kind:                summary.Kind,
		Dataset:             summary.Dataset,
		Seed:                summary.Seed,
		Iterations:          summary.Iterations,
		FinalSelectionError: summary.FinalSelectionError,
		StoppingCondition:   summary.StoppingCondition,
		CreatedAtUTC:        artifacts.Config.CreatedAtUTC,
	}); err != nil {
		return "", err
	}
	return filepath.Clean(runDir), nil
}

// prepare loads a fresh dataset and splits its instances.
func prepare(req DatasetRequest, m ModelRequest) (*dataset.Dataset, dataset.ScalingMethod, error) {
	scaling, err := dataset.ParseScalingMethod(m.Scaling)
	if err != nil {
		return nil, "", err
	}
	if m.Activation != "" {
		if _, err := oracle.GetActivation(m.Activation); err != nil {
			return nil, "", err
		}
	}
	if req.Seed == 0 {
		req.Seed = 1
	}
	if req.TrainingRatio <= 0 {
		req.TrainingRatio = defaultTrainingRatio
	}
	if req.SelectionRatio <= 0 {
		req.SelectionRatio = defaultSelectionRatio
	}

	var data *dataset.Dataset
	if req.Path != "" {
		name := strings.TrimSuffix(filepath.Base(req.Path), filepath.Ext(req.Path))
		data, err = dataset.ReadFile(req.Path, dataset.LoadOptions{Name: name, Targets: req.Targets, Unused: req.Unused})
	} else {
		shape := req.Synthetic
		if shape == (SyntheticRequest{}) {
			shape.Noise = 3
		}
		if shape.Instances <= 0 {
			shape.Instances = 200
		}
		if shape.Informative <= 0 {
			shape.Informative = 3
		}
		data, err = dataset.Synthetic(req.Seed, shape.Instances, shape.Informative, shape.Noise)
	}
	if err != nil {
		return nil, "", err
	}
	if err := data.SplitInstances(rand.New(rand.NewSource(req.Seed)), req.TrainingRatio, req.SelectionRatio); err != nil {
		return nil, "", err
	}
	return data, scaling, nil
}

func newTrainer(data *dataset.Dataset, m ModelRequest, scaling dataset.ScalingMethod, seed int64) *oracle.Trainer {
	activation := m.Activation
	if activation == "" {
		activation = "tanh"
	}
	return &oracle.Trainer{
		Data:           data,
		Rand:           rand.New(rand.NewSource(seed + 1000)),
		Activation:     activation,
		Scaling:        scaling,
		Regularization: m.Regularization,
	}
}

func newRunID(kind model.SearchKind) string {
	return string(kind) + "-" + uuid.NewString()
}

func resultsMissing(runID string, err error) error {
	if err != nil {
		return err
	}
	return fmt.Errorf("results not found for run id: %s", runID)
}
