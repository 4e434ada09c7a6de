package oracle

import (
	"context"
	"errors"
	"fmt"

	"modelsel/internal/model"
	"modelsel/internal/order"
)

type orderEntry struct {
	performance model.Performance
	parameters  []float64
}

// OrderTrainer evaluates hidden unit counts for the order search. Each order
// is trained Trials times and the trials are reduced with Method. Results
// are cached per order.
type OrderTrainer struct {
	Trainer *Trainer
	Trials  int
	Method  order.PerformanceMethod

	columns   []int
	cache     map[int]orderEntry
	committed *Network
}

func NewOrderTrainer(trainer *Trainer, trials int, method order.PerformanceMethod) (*OrderTrainer, error) {
	if err := trainer.validate(); err != nil {
		return nil, err
	}
	if trials <= 0 {
		return nil, fmt.Errorf("trials must be greater than 0, got %d", trials)
	}
	if _, err := order.ParsePerformanceMethod(string(method)); err != nil {
		return nil, err
	}
	return &OrderTrainer{
		Trainer: trainer,
		Trials:  trials,
		Method:  method,
		columns: trainer.Data.InputIndices(),
		cache:   make(map[int]orderEntry),
	}, nil
}

func (o *OrderTrainer) Evaluate(ctx context.Context, hidden int) (model.Performance, error) {
	entry, err := o.entry(ctx, hidden)
	if err != nil {
		return model.Performance{}, err
	}
	return entry.performance, nil
}

func (o *OrderTrainer) Parameters(ctx context.Context, hidden int) ([]float64, error) {
	entry, err := o.entry(ctx, hidden)
	if err != nil {
		return nil, err
	}
	return append([]float64(nil), entry.parameters...), nil
}

func (o *OrderTrainer) Commit(_ context.Context, hidden int, parameters []float64) error {
	net := NewNetwork(o.columns, o.Trainer.Data.InputNames(), hidden, len(o.Trainer.Data.TargetIndices()))
	net.Activation = o.Trainer.activation()
	net.Scaling = o.Trainer.Scaling
	for i, col := range o.columns {
		net.Statistics[i] = o.Trainer.statistics(col)
	}
	if err := net.SetParameters(parameters); err != nil {
		return fmt.Errorf("commit order %d: %w", hidden, err)
	}
	o.committed = net
	return nil
}

// Network returns the committed network, or nil before a commit.
func (o *OrderTrainer) Network() *Network {
	return o.committed
}

// Evaluations reports how many distinct orders were trained.
func (o *OrderTrainer) Evaluations() int {
	return len(o.cache)
}

func (o *OrderTrainer) entry(ctx context.Context, hidden int) (orderEntry, error) {
	if entry, ok := o.cache[hidden]; ok {
		return entry, nil
	}
	trials := make([]orderEntry, 0, o.Trials)
	for i := 0; i < o.Trials; i++ {
		net, err := o.Trainer.Train(ctx, hidden, o.columns)
		if err != nil {
			return orderEntry{}, fmt.Errorf("train order %d trial %d: %w", hidden, i+1, err)
		}
		perf, err := o.Trainer.Performance(net)
		if err != nil {
			return orderEntry{}, fmt.Errorf("evaluate order %d trial %d: %w", hidden, i+1, err)
		}
		trials = append(trials, orderEntry{performance: perf, parameters: net.Parameters()})
	}
	entry, err := reduceTrials(trials, o.Method)
	if err != nil {
		return orderEntry{}, err
	}
	o.cache[hidden] = entry
	return entry, nil
}

// reduceTrials keeps the trial with the lowest or highest selection error, or
// averages both errors and keeps the parameters of the best trial.
func reduceTrials(trials []orderEntry, method order.PerformanceMethod) (orderEntry, error) {
	if len(trials) == 0 {
		return orderEntry{}, errors.New("no trials to reduce")
	}
	best, worst := 0, 0
	var sum model.Performance
	for i, trial := range trials {
		if trial.performance.Selection < trials[best].performance.Selection {
			best = i
		}
		if trial.performance.Selection > trials[worst].performance.Selection {
			worst = i
		}
		sum.Training += trial.performance.Training
		sum.Selection += trial.performance.Selection
	}
	switch method {
	case order.PerformanceMinimum:
		return trials[best], nil
	case order.PerformanceMaximum:
		return trials[worst], nil
	case order.PerformanceMean:
		n := float64(len(trials))
		return orderEntry{
			performance: model.Performance{Training: sum.Training / n, Selection: sum.Selection / n},
			parameters:  trials[best].parameters,
		}, nil
	default:
		return orderEntry{}, fmt.Errorf("unknown performance method: %s", method)
	}
}
