package oracle

import (
	"context"
	"errors"
	"fmt"

	"modelsel/internal/dataset"
	"modelsel/internal/inputs"
	"modelsel/internal/model"
)

// InputsTrainer is the live model of an input selection run. Evaluate trains
// a fresh network for a mask; pruning and error queries then act on that
// network without retraining.
type InputsTrainer struct {
	Trainer *Trainer
	Order   int

	columns []int
	net     *Network
}

func NewInputsTrainer(trainer *Trainer, order int) (*InputsTrainer, error) {
	if err := trainer.validate(); err != nil {
		return nil, err
	}
	if order <= 0 {
		return nil, fmt.Errorf("order must be greater than 0, got %d", order)
	}
	return &InputsTrainer{
		Trainer: trainer,
		Order:   order,
		columns: trainer.Data.InputIndices(),
	}, nil
}

func (o *InputsTrainer) InputsNumber() int { return len(o.columns) }

func (o *InputsTrainer) InputNames() []string {
	names := make([]string, len(o.columns))
	for i, col := range o.columns {
		names[i] = o.Trainer.Data.Variables[col].Name
	}
	return names
}

func (o *InputsTrainer) Evaluate(ctx context.Context, mask []bool) (model.Performance, error) {
	if len(mask) != len(o.columns) {
		return model.Performance{}, fmt.Errorf("mask size mismatch: got=%d want=%d", len(mask), len(o.columns))
	}
	var selected []int
	for i, col := range o.columns {
		if mask[i] {
			selected = append(selected, col)
		}
	}
	net, err := o.Trainer.Train(ctx, o.Order, selected)
	if err != nil {
		return model.Performance{}, err
	}
	o.net = net
	return o.Trainer.Performance(net)
}

func (o *InputsTrainer) Parameters() []float64 {
	if o.net == nil {
		return nil
	}
	return o.net.Parameters()
}

func (o *InputsTrainer) SetParameters(parameters []float64) error {
	net, err := o.network()
	if err != nil {
		return err
	}
	return net.SetParameters(parameters)
}

func (o *InputsTrainer) PruneInput(index int) error {
	net, err := o.network()
	if err != nil {
		return err
	}
	return net.PruneInput(index)
}

func (o *InputsTrainer) GrowInput(index int) error {
	net, err := o.network()
	if err != nil {
		return err
	}
	return net.GrowInput(index)
}

func (o *InputsTrainer) TrainingError(ctx context.Context) (float64, error) {
	net, err := o.network()
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return o.Trainer.TrainingError(net)
}

func (o *InputsTrainer) SelectionError(ctx context.Context) (float64, error) {
	net, err := o.network()
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return o.Trainer.SelectionError(net)
}

// ScalingStatistics describes every original input over the training split.
// It is nil when the model has no scaling layer.
func (o *InputsTrainer) ScalingStatistics() []model.Statistics {
	if o.Trainer.Scaling == dataset.ScaleNone || o.Trainer.Scaling == "" {
		return nil
	}
	out := make([]model.Statistics, len(o.columns))
	for i, col := range o.columns {
		out[i] = o.Trainer.statistics(col)
	}
	return out
}

func (o *InputsTrainer) ScalingMethod() string {
	return string(o.Trainer.Scaling)
}

// Commit marks unselected inputs unused in the dataset and finalizes the
// network with the committed names, scaling and parameters.
func (o *InputsTrainer) Commit(_ context.Context, c inputs.Commitment) error {
	net, err := o.network()
	if err != nil {
		return err
	}
	if len(c.Inputs) != len(o.columns) {
		return fmt.Errorf("commit mask size mismatch: got=%d want=%d", len(c.Inputs), len(o.columns))
	}
	if len(c.Names) != net.InputsNumber() {
		return fmt.Errorf("commit names mismatch: got=%d want=%d", len(c.Names), net.InputsNumber())
	}

	uses := o.Trainer.Data.Uses()
	for i, col := range o.columns {
		if c.Inputs[i] {
			uses[col] = dataset.UseInput
		} else {
			uses[col] = dataset.UseUnused
		}
	}
	if err := o.Trainer.Data.SetUses(uses); err != nil {
		return err
	}

	if err := net.SetParameters(c.Parameters); err != nil {
		return err
	}
	net.Names = append([]string(nil), c.Names...)
	if c.HasScaling {
		if len(c.Statistics) != net.InputsNumber() {
			return fmt.Errorf("commit statistics mismatch: got=%d want=%d", len(c.Statistics), net.InputsNumber())
		}
		net.Statistics = append([]model.Statistics(nil), c.Statistics...)
		net.Scaling = dataset.ScalingMethod(c.ScalingMethod)
	}
	net.Forget()
	return nil
}

// Network returns the current network, or nil before the first evaluation.
func (o *InputsTrainer) Network() *Network {
	return o.net
}

func (o *InputsTrainer) network() (*Network, error) {
	if o.net == nil {
		return nil, errors.New("model has not been evaluated")
	}
	return o.net, nil
}
