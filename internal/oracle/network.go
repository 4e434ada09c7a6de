package oracle

import (
	"errors"
	"fmt"

	"modelsel/internal/dataset"
	"modelsel/internal/model"
)

// Network is a perceptron with one hidden layer: scaled inputs, an activated
// hidden layer of Order units and a linear output layer. Each weight row
// starts with its bias.
type Network struct {
	Activation string                `json:"activation"`
	Scaling    dataset.ScalingMethod `json:"scaling"`
	Columns    []int                 `json:"columns"`
	Names      []string              `json:"names"`
	Statistics []model.Statistics    `json:"statistics"`
	Hidden     [][]float64           `json:"hidden"`
	Output     [][]float64           `json:"output"`

	pruned []prunedInput
}

type prunedInput struct {
	index   int
	column  int
	name    string
	stat    model.Statistics
	weights []float64
}

// NewNetwork allocates a zero network for the given input columns.
func NewNetwork(columns []int, names []string, order, outputs int) *Network {
	n := &Network{
		Activation: "tanh",
		Scaling:    dataset.ScaleNone,
		Columns:    append([]int(nil), columns...),
		Names:      append([]string(nil), names...),
		Statistics: make([]model.Statistics, len(columns)),
		Hidden:     make([][]float64, order),
		Output:     make([][]float64, outputs),
	}
	for i := range n.Hidden {
		n.Hidden[i] = make([]float64, len(columns)+1)
	}
	for i := range n.Output {
		n.Output[i] = make([]float64, order+1)
	}
	return n
}

func (n *Network) InputsNumber() int { return len(n.Columns) }
func (n *Network) Order() int { return len(n.Hidden) }

func (n *Network) ParametersNumber() int {
	return len(n.Hidden)*(len(n.Columns)+1) + len(n.Output)*(len(n.Hidden)+1)
}

// Parameters flattens the hidden rows followed by the output rows.
func (n *Network) Parameters() []float64 {
	out := make([]float64, 0, n.ParametersNumber())
	for _, row := range n.Hidden {
		out = append(out, row...)
	}
	for _, row := range n.Output {
		out = append(out, row...)
	}
	return out
}

func (n *Network) SetParameters(parameters []float64) error {
	if len(parameters) != n.ParametersNumber() {
		return fmt.Errorf("parameters size mismatch: got=%d want=%d", len(parameters), n.ParametersNumber())
	}
	offset := 0
	for _, row := range n.Hidden {
		offset += copy(row, parameters[offset:offset+len(row)])
	}
	for _, row := range n.Output {
		offset += copy(row, parameters[offset:offset+len(row)])
	}
	return nil
}

// PruneInput removes input i with its weights. GrowInput(i) puts the most
// recently pruned input back.
func (n *Network) PruneInput(i int) error {
	if i < 0 || i >= len(n.Columns) {
		return fmt.Errorf("prune input %d out of range [0,%d)", i, len(n.Columns))
	}
	p := prunedInput{
		index:   i,
		column:  n.Columns[i],
		name:    n.Names[i],
		stat:    n.Statistics[i],
		weights: make([]float64, len(n.Hidden)),
	}
	for h, row := range n.Hidden {
		p.weights[h] = row[i+1]
		n.Hidden[h] = append(row[:i+1:i+1], row[i+2:]...)
	}
	n.Columns = append(n.Columns[:i:i], n.Columns[i+1:]...)
	n.Names = append(n.Names[:i:i], n.Names[i+1:]...)
	n.Statistics = append(n.Statistics[:i:i], n.Statistics[i+1:]...)
	n.pruned = append(n.pruned, p)
	return nil
}

func (n *Network) GrowInput(i int) error {
	if len(n.pruned) == 0 {
		return errors.New("no pruned input to grow")
	}
	p := n.pruned[len(n.pruned)-1]
	if p.index != i {
		return fmt.Errorf("grow input %d does not match last pruned input %d", i, p.index)
	}
	n.pruned = n.pruned[:len(n.pruned)-1]
	for h, row := range n.Hidden {
		n.Hidden[h] = insertAt(row, i+1, p.weights[h])
	}
	n.Columns = insertAt(n.Columns, i, p.column)
	n.Names = insertAt(n.Names, i, p.name)
	n.Statistics = insertAt(n.Statistics, i, p.stat)
	return nil
}

// Forget drops the restore stack, making earlier prunes permanent.
func (n *Network) Forget() {
	n.pruned = nil
}

// Forward computes the outputs for one dataset row.
func (n *Network) Forward(row []float64) ([]float64, error) {
	activation, err := GetActivation(n.Activation)
	if err != nil {
		return nil, err
	}
	hidden := n.hiddenOutputs(row, activation)
	out := make([]float64, len(n.Output))
	for o, weights := range n.Output {
		total := weights[0]
		for h, value := range hidden {
			total += weights[h+1] * value
		}
		out[o] = total
	}
	return out, nil
}

func (n *Network) hiddenOutputs(row []float64, activation ActivationFunc) []float64 {
	hidden := make([]float64, len(n.Hidden))
	for h, weights := range n.Hidden {
		total := weights[0]
		for i, col := range n.Columns {
			total += weights[i+1] * dataset.Scale(row[col], n.Statistics[i], n.Scaling)
		}
		hidden[h] = activation(total)
	}
	return hidden
}

// MeanSquaredError averages the squared output errors over instances.
func (n *Network) MeanSquaredError(d *dataset.Dataset, targets, instances []int) (float64, error) {
	if len(instances) == 0 {
		return 0, errors.New("no instances to evaluate")
	}
	total := 0.0
	for _, row := range instances {
		out, err := n.Forward(d.Rows[row])
		if err != nil {
			return 0, err
		}
		for o, col := range targets {
			diff := out[o] - d.Rows[row][col]
			total += diff * diff
		}
	}
	return total / float64(len(instances)*len(targets)), nil
}

func insertAt[T any](s []T, i int, v T) []T {
	s = append(s, v)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}
