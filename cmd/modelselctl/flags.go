package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"modelsel/internal/inputs"
	"modelsel/internal/order"
	"modelsel/internal/search"
	"modelsel/internal/storage"
	"modelsel/pkg/modelsel"
)

type storeFlags struct {
	kind   *string
	dbPath *string
}

func addStoreFlags(fs *flag.FlagSet) storeFlags {
	return storeFlags{
		kind:   fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite"),
		dbPath: fs.String("db-path", "modelsel.db", "sqlite database path"),
	}
}

func (s storeFlags) client(display io.Writer) (*modelsel.Client, error) {
	return modelsel.New(modelsel.Options{
		StoreKind:    *s.kind,
		DBPath:       *s.dbPath,
		ArtifactsDir: artifactsDir,
		ExportsDir:   exportsDir,
		Display:      display,
	})
}

type datasetFlags struct {
	path           *string
	targets        *string
	unused         *string
	seed           *int64
	instances      *int
	informative    *int
	noise          *int
	trainingRatio  *float64
	selectionRatio *float64
}

func addDatasetFlags(fs *flag.FlagSet) datasetFlags {
	return datasetFlags{
		path:           fs.String("data", "", "csv dataset path (synthetic dataset when empty)"),
		targets:        fs.String("targets", "", "comma separated target columns (default last column)"),
		unused:         fs.String("unused", "", "comma separated columns ignored by the model"),
		seed:           fs.Int64("data-seed", 1, "rng seed for the synthetic table and the instance split"),
		instances:      fs.Int("instances", 200, "synthetic instance count"),
		informative:    fs.Int("informative", 3, "synthetic informative input count"),
		noise:          fs.Int("noise", 3, "synthetic noise input count"),
		trainingRatio:  fs.Float64("training-ratio", 0.6, "share of instances used for training"),
		selectionRatio: fs.Float64("selection-ratio", 0.2, "share of instances used for selection"),
	}
}

func (d datasetFlags) request() modelsel.DatasetRequest {
	return modelsel.DatasetRequest{
		Path:    *d.path,
		Targets: splitList(*d.targets),
		Unused:  splitList(*d.unused),
		Seed:    *d.seed,
		Synthetic: modelsel.SyntheticRequest{
			Instances:   *d.instances,
			Informative: *d.informative,
			Noise:       *d.noise,
		},
		TrainingRatio:  *d.trainingRatio,
		SelectionRatio: *d.selectionRatio,
	}
}

type modelFlags struct {
	activation     *string
	scaling        *string
	regularization *float64
}

func addModelFlags(fs *flag.FlagSet) modelFlags {
	return modelFlags{
		activation:     fs.String("activation", "tanh", "hidden layer activation"),
		scaling:        fs.String("scaling", "mean_standard_deviation", "input scaling: mean_standard_deviation|minimum_maximum|none"),
		regularization: fs.Float64("regularization", 0, "l2 regularization weight"),
	}
}

func (m modelFlags) request() modelsel.ModelRequest {
	return modelsel.ModelRequest{
		Activation:     *m.activation,
		Scaling:        *m.scaling,
		Regularization: *m.regularization,
	}
}

// addSettingsFlags registers the options shared by both searches. Values are
// read back through visitFlags.
func addSettingsFlags(fs *flag.FlagSet, defaults search.Settings) {
	fs.Float64("tolerance", defaults.Tolerance(), "training tolerance passed to the model")
	fs.Float64("goal", defaults.PerformanceGoal(), "selection error goal")
	fs.Int("max-iterations", defaults.MaximumIterations(), "maximum search iterations")
	fs.Duration("max-time", defaults.MaximumTime(), "maximum search time")
	fs.Bool("reserve-parameters", defaults.Reserve().Parameters, "keep the parameters of every iteration")
	fs.Bool("display", false, "print search progress to stderr (default when stderr is a terminal)")
}

func addOrderFlags(fs *flag.FlagSet, defaults order.Config) {
	fs.Int("min-order", defaults.MinimumOrder(), "minimum hidden unit count")
	fs.Int("max-order", defaults.MaximumOrder(), "maximum hidden unit count")
	fs.Int("trials", defaults.TrialsNumber(), "trainings per order evaluation")
	fs.String("performance-method", string(defaults.PerformanceMethod()), "trial reduction: minimum|maximum|mean")
	fs.Float64("cooling-rate", defaults.CoolingRate(), "temperature multiplier per iteration")
	fs.Float64("min-temperature", defaults.MinimumTemperature(), "temperature stopping bound")
	fs.Int("max-generalization-failures", defaults.MaximumGeneralizationFailures(), "consecutive non-improving iterations before stopping")
}

func addInputsFlags(fs *flag.FlagSet, defaults inputs.Config) {
	fs.Int("min-inputs", defaults.MinimumInputs(), "minimum retained input count")
	fs.Int("max-selection-failures", 0, "maximum selection failures (0 derives it from the input count)")
}

// visitFlags returns the flags set on the command line and their values.
func visitFlags(fs *flag.FlagSet) (map[string]bool, map[string]any) {
	set := make(map[string]bool)
	values := make(map[string]any)
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = true
		if getter, ok := f.Value.(flag.Getter); ok {
			values[f.Name] = getter.Get()
		}
	})
	return set, values
}

// displayWriter resolves where search progress goes. Without an explicit
// setting progress is shown when stderr is a terminal.
func displayWriter(s search.Settings, explicit bool) io.Writer {
	on := s.Display()
	if !explicit && !on {
		on = stderrIsTerminal()
	}
	if !on {
		return nil
	}
	return os.Stderr
}

func stderrIsTerminal() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseSeeds(s string) ([]int64, error) {
	parts := splitList(s)
	seeds := make([]int64, 0, len(parts))
	for _, part := range parts {
		seed, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid seed %q: %w", part, err)
		}
		seeds = append(seeds, seed)
	}
	return seeds, nil
}

func roundDuration(d time.Duration) time.Duration {
	return d.Round(time.Millisecond)
}
