package oracle

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"modelsel/internal/dataset"
	"modelsel/internal/model"
)

const DefaultRegularization = 1e-3

// Trainer fits networks on a dataset. Hidden weights are drawn from Rand and
// output weights are solved by ridge least squares on the training split.
type Trainer struct {
	Data           *dataset.Dataset
	Rand           *rand.Rand
	Activation     string
	Scaling        dataset.ScalingMethod
	Regularization float64
}

func (t *Trainer) validate() error {
	if t == nil || t.Data == nil {
		return errors.New("trainer dataset is required")
	}
	if t.Rand == nil {
		return errors.New("trainer random source is required")
	}
	if len(t.Data.Split.Training) == 0 {
		return errors.New("dataset has no training instances")
	}
	return nil
}

func (t *Trainer) activation() string {
	if t.Activation == "" {
		return "tanh"
	}
	return t.Activation
}

func (t *Trainer) regularization() float64 {
	if t.Regularization <= 0 {
		return DefaultRegularization
	}
	return t.Regularization
}

// statistics describes column col over the training instances.
func (t *Trainer) statistics(col int) model.Statistics {
	return dataset.ColumnStatistics(t.Data.Column(col, t.Data.Split.Training))
}

// Train builds and fits a network with order hidden units over columns.
func (t *Trainer) Train(ctx context.Context, order int, columns []int) (*Network, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}
	if order <= 0 {
		return nil, fmt.Errorf("order must be greater than 0, got %d", order)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	activation, err := GetActivation(t.activation())
	if err != nil {
		return nil, err
	}

	targets := t.Data.TargetIndices()
	names := make([]string, len(columns))
	for i, col := range columns {
		names[i] = t.Data.Variables[col].Name
	}
	net := NewNetwork(columns, names, order, len(targets))
	net.Activation = t.activation()
	net.Scaling = t.Scaling
	for i, col := range columns {
		net.Statistics[i] = t.statistics(col)
	}

	spread := 1 / math.Sqrt(float64(len(columns)+1))
	for _, row := range net.Hidden {
		for i := range row {
			row[i] = t.Rand.NormFloat64() * spread
		}
	}

	instances := t.Data.Split.Training
	h := mat.NewDense(len(instances), order+1, nil)
	y := mat.NewDense(len(instances), len(targets), nil)
	for r, row := range instances {
		h.Set(r, 0, 1)
		for j, value := range net.hiddenOutputs(t.Data.Rows[row], activation) {
			h.Set(r, j+1, value)
		}
		for o, col := range targets {
			y.Set(r, o, t.Data.Rows[row][col])
		}
	}

	var gram mat.Dense
	gram.Mul(h.T(), h)
	lambda := t.regularization()
	for i := 0; i <= order; i++ {
		gram.Set(i, i, gram.At(i, i)+lambda)
	}
	var rhs mat.Dense
	rhs.Mul(h.T(), y)
	var w mat.Dense
	if err := w.Solve(&gram, &rhs); err != nil {
		return nil, fmt.Errorf("solve output weights: %w", err)
	}
	for o := range net.Output {
		for j := range net.Output[o] {
			net.Output[o][j] = w.At(j, o)
		}
	}
	return net, nil
}

// Performance measures the training and selection errors of net.
func (t *Trainer) Performance(net *Network) (model.Performance, error) {
	training, err := t.TrainingError(net)
	if err != nil {
		return model.Performance{}, err
	}
	selection, err := t.SelectionError(net)
	if err != nil {
		return model.Performance{}, err
	}
	return model.Performance{Training: training, Selection: selection}, nil
}

func (t *Trainer) TrainingError(net *Network) (float64, error) {
	return net.MeanSquaredError(t.Data, t.Data.TargetIndices(), t.Data.Split.Training)
}

func (t *Trainer) SelectionError(net *Network) (float64, error) {
	if len(t.Data.Split.Selection) == 0 {
		return 0, errors.New("dataset has no selection instances")
	}
	return net.MeanSquaredError(t.Data, t.Data.TargetIndices(), t.Data.Split.Selection)
}
