package oracle

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"reflect"
	"testing"

	"modelsel/internal/dataset"
	"modelsel/internal/inputs"
	"modelsel/internal/model"
	"modelsel/internal/order"
)

func newSplitDataset(t *testing.T, seed int64) *dataset.Dataset {
	t.Helper()
	d, err := dataset.Synthetic(seed, 240, 2, 3)
	if err != nil {
		t.Fatalf("synthetic: %v", err)
	}
	if err := d.SplitInstances(rand.New(rand.NewSource(seed)), 0.6, 0.2); err != nil {
		t.Fatalf("split: %v", err)
	}
	return d
}

func newTrainer(t *testing.T, seed int64) *Trainer {
	t.Helper()
	return &Trainer{
		Data:    newSplitDataset(t, seed),
		Rand:    rand.New(rand.NewSource(seed)),
		Scaling: dataset.ScaleMinimumMaximum,
	}
}

func TestNetworkPruneGrowRestoresStructure(t *testing.T) {
	trainer := newTrainer(t, 1)
	net, err := trainer.Train(context.Background(), 4, trainer.Data.InputIndices())
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	before := net.Parameters()
	columns := append([]int(nil), net.Columns...)
	names := append([]string(nil), net.Names...)
	beforeErr, err := trainer.SelectionError(net)
	if err != nil {
		t.Fatalf("selection error: %v", err)
	}

	for i := 0; i < net.InputsNumber(); i++ {
		if err := net.PruneInput(i); err != nil {
			t.Fatalf("prune %d: %v", i, err)
		}
		if net.InputsNumber() != len(columns)-1 || len(net.Parameters()) != len(before)-net.Order() {
			t.Fatalf("unexpected pruned shape: inputs=%d params=%d", net.InputsNumber(), len(net.Parameters()))
		}
		if err := net.GrowInput(i); err != nil {
			t.Fatalf("grow %d: %v", i, err)
		}
		if !reflect.DeepEqual(net.Parameters(), before) || !reflect.DeepEqual(net.Columns, columns) || !reflect.DeepEqual(net.Names, names) {
			t.Fatalf("prune+grow of %d did not restore the network", i)
		}
	}
	afterErr, err := trainer.SelectionError(net)
	if err != nil {
		t.Fatalf("selection error: %v", err)
	}
	if afterErr != beforeErr {
		t.Fatalf("selection error changed after restore: %f != %f", afterErr, beforeErr)
	}
	if err := net.GrowInput(0); err == nil {
		t.Fatal("expected grow without prune to fail")
	}
	if err := net.PruneInput(1); err != nil {
		t.Fatalf("prune: %v", err)
	}
	if err := net.GrowInput(0); err == nil {
		t.Fatal("expected mismatched grow index to fail")
	}
	if err := net.SetParameters([]float64{1}); err == nil {
		t.Fatal("expected parameters size error")
	}
}

func TestTrainerFitsInformativeInputs(t *testing.T) {
	trainer := newTrainer(t, 2)
	net, err := trainer.Train(context.Background(), 8, trainer.Data.InputIndices())
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	perf, err := trainer.Performance(net)
	if err != nil {
		t.Fatalf("performance: %v", err)
	}
	targets := trainer.Data.Column(trainer.Data.TargetIndices()[0], trainer.Data.Split.Selection)
	baseline := dataset.ColumnStatistics(targets).StandardDeviation
	if perf.Selection >= baseline*baseline {
		t.Fatalf("expected selection error %f below target variance %f", perf.Selection, baseline*baseline)
	}
	if perf.Training <= 0 || math.IsNaN(perf.Selection) {
		t.Fatalf("unexpected performance: %+v", perf)
	}
}

func TestTrainerRejectsInvalidInput(t *testing.T) {
	if _, err := (&Trainer{}).Train(context.Background(), 2, nil); err == nil {
		t.Fatal("expected missing dataset error")
	}
	trainer := newTrainer(t, 3)
	if _, err := trainer.Train(context.Background(), 0, trainer.Data.InputIndices()); err == nil {
		t.Fatal("expected order error")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := trainer.Train(ctx, 2, trainer.Data.InputIndices()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled context, got %v", err)
	}
	trainer.Activation = "softsign"
	if _, err := trainer.Train(context.Background(), 2, trainer.Data.InputIndices()); !errors.Is(err, ErrActivationNotFound) {
		t.Fatalf("expected unknown activation, got %v", err)
	}
}

func TestReduceTrials(t *testing.T) {
	trials := []orderEntry{
		{performance: model.Performance{Training: 0.2, Selection: 0.4}, parameters: []float64{1}},
		{performance: model.Performance{Training: 0.1, Selection: 0.2}, parameters: []float64{2}},
		{performance: model.Performance{Training: 0.3, Selection: 0.6}, parameters: []float64{3}},
	}
	got, err := reduceTrials(trials, order.PerformanceMinimum)
	if err != nil || got.parameters[0] != 2 {
		t.Fatalf("minimum: %+v %v", got, err)
	}
	got, err = reduceTrials(trials, order.PerformanceMaximum)
	if err != nil || got.parameters[0] != 3 {
		t.Fatalf("maximum: %+v %v", got, err)
	}
	got, err = reduceTrials(trials, order.PerformanceMean)
	if err != nil || math.Abs(got.performance.Selection-0.4) > 1e-12 || math.Abs(got.performance.Training-0.2) > 1e-12 || got.parameters[0] != 2 {
		t.Fatalf("mean: %+v %v", got, err)
	}
	if _, err := reduceTrials(nil, order.PerformanceMean); err == nil {
		t.Fatal("expected empty trials error")
	}
}

func TestOrderTrainerCachesAndCommits(t *testing.T) {
	ot, err := NewOrderTrainer(newTrainer(t, 4), 2, order.PerformanceMean)
	if err != nil {
		t.Fatalf("new order trainer: %v", err)
	}
	ctx := context.Background()
	first, err := ot.Evaluate(ctx, 3)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	second, err := ot.Evaluate(ctx, 3)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if first != second || ot.Evaluations() != 1 {
		t.Fatalf("expected cached evaluation: %+v %+v evaluations=%d", first, second, ot.Evaluations())
	}
	params, err := ot.Parameters(ctx, 3)
	if err != nil {
		t.Fatalf("parameters: %v", err)
	}
	params[0] = 99
	again, _ := ot.Parameters(ctx, 3)
	if again[0] == 99 {
		t.Fatal("expected parameters to be copied")
	}
	if err := ot.Commit(ctx, 3, again); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if ot.Network() == nil || ot.Network().Order() != 3 || !reflect.DeepEqual(ot.Network().Parameters(), again) {
		t.Fatal("unexpected committed network")
	}
	if err := ot.Commit(ctx, 4, again); err == nil {
		t.Fatal("expected parameter size mismatch")
	}
	if _, err := NewOrderTrainer(newTrainer(t, 4), 0, order.PerformanceMean); err == nil {
		t.Fatal("expected trials error")
	}
}

func TestSimulatedAnnealingWithOrderTrainer(t *testing.T) {
	ot, err := NewOrderTrainer(newTrainer(t, 5), 1, order.PerformanceMinimum)
	if err != nil {
		t.Fatalf("new order trainer: %v", err)
	}
	cfg := order.DefaultConfig()
	if err := cfg.SetOrderRange(1, 6); err != nil {
		t.Fatalf("set range: %v", err)
	}
	if err := cfg.SetMaximumIterations(6); err != nil {
		t.Fatalf("set iterations: %v", err)
	}
	sa := &order.SimulatedAnnealing{Config: cfg, Rand: rand.New(rand.NewSource(5))}
	results, err := sa.Run(context.Background(), ot)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if results.OptimalOrder < 1 || results.OptimalOrder > 6 {
		t.Fatalf("optimal order out of range: %d", results.OptimalOrder)
	}
	if ot.Network() == nil || ot.Network().Order() != results.OptimalOrder {
		t.Fatal("expected optimal order to be committed")
	}
	perf, err := ot.Trainer.Performance(ot.Network())
	if err != nil {
		t.Fatalf("performance: %v", err)
	}
	if math.Abs(perf.Selection-results.FinalSelectionError) > 1e-9 {
		t.Fatalf("committed network error %f differs from reported %f", perf.Selection, results.FinalSelectionError)
	}
}

func TestSelectivePruningWithInputsTrainer(t *testing.T) {
	trainer := newTrainer(t, 6)
	it, err := NewInputsTrainer(trainer, 6)
	if err != nil {
		t.Fatalf("new inputs trainer: %v", err)
	}
	original := it.ScalingStatistics()

	sp := &inputs.SelectivePruning{Config: inputs.DefaultConfig()}
	results, err := sp.Run(context.Background(), it)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	active := results.ActiveInputs()
	if active < 1 || active != len(trainer.Data.InputIndices()) {
		t.Fatalf("dataset uses do not match mask: active=%d inputs=%v", active, trainer.Data.InputNames())
	}
	if !reflect.DeepEqual(trainer.Data.InputNames(), results.OptimalInputNames) {
		t.Fatalf("dataset inputs %v differ from optimal names %v", trainer.Data.InputNames(), results.OptimalInputNames)
	}
	net := it.Network()
	if net.InputsNumber() != active || !reflect.DeepEqual(net.Names, results.OptimalInputNames) || len(net.pruned) != 0 {
		t.Fatalf("unexpected committed network: inputs=%d names=%v", net.InputsNumber(), net.Names)
	}
	var want []model.Statistics
	for i, selected := range results.OptimalInputs {
		if selected {
			want = append(want, original[i])
		}
	}
	if !reflect.DeepEqual(net.Statistics, want) || net.Scaling != dataset.ScaleMinimumMaximum {
		t.Fatalf("unexpected committed scaling: %+v %s", net.Statistics, net.Scaling)
	}
	selection, err := trainer.SelectionError(net)
	if err != nil {
		t.Fatalf("selection error: %v", err)
	}
	if math.Abs(selection-results.FinalSelectionError) > 1e-9 {
		t.Fatalf("committed network error %f differs from reported %f", selection, results.FinalSelectionError)
	}
}

func TestInputsTrainerRequiresEvaluation(t *testing.T) {
	it, err := NewInputsTrainer(newTrainer(t, 7), 2)
	if err != nil {
		t.Fatalf("new inputs trainer: %v", err)
	}
	if err := it.PruneInput(0); err == nil {
		t.Fatal("expected error before evaluation")
	}
	if it.Parameters() != nil {
		t.Fatal("expected no parameters before evaluation")
	}
	if _, err := it.Evaluate(context.Background(), []bool{true}); err == nil {
		t.Fatal("expected mask size error")
	}
}

func TestActivationRegistry(t *testing.T) {
	if err := RegisterActivation("tanh", math.Tanh); !errors.Is(err, ErrActivationExists) {
		t.Fatalf("expected duplicate activation error, got %v", err)
	}
	names := ListActivations()
	if !reflect.DeepEqual(names[:2], []string{"identity", "relu"}) {
		t.Fatalf("unexpected activations: %v", names)
	}
}

func TestSelectivePruningWithoutScalingLayer(t *testing.T) {
	trainer := newTrainer(t, 7)
	trainer.Scaling = dataset.ScaleNone
	it, err := NewInputsTrainer(trainer, 4)
	if err != nil {
		t.Fatalf("new inputs trainer: %v", err)
	}
	if stats := it.ScalingStatistics(); stats != nil {
		t.Fatalf("expected no scaling statistics without a scaling layer, got %+v", stats)
	}

	sp := &inputs.SelectivePruning{Config: inputs.DefaultConfig()}
	results, err := sp.Run(context.Background(), it)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	net := it.Network()
	if net.Scaling != dataset.ScaleNone || len(net.Statistics) != results.ActiveInputs() {
		t.Fatalf("unexpected committed scaling: %s with %d statistics", net.Scaling, len(net.Statistics))
	}
	selection, err := trainer.SelectionError(net)
	if err != nil {
		t.Fatalf("selection error: %v", err)
	}
	if math.Abs(selection-results.FinalSelectionError) > 1e-9 {
		t.Fatalf("committed network error %f differs from reported %f", selection, results.FinalSelectionError)
	}
}
