package search

import "modelsel/internal/model"

// Recorder keeps the per-iteration history of a run. Each stream is gated by
// its own reserve flag.
type Recorder[C any] struct {
	reserve    Reserve
	clone      func(C) C
	training   []model.Sample[C]
	selection  []model.Sample[C]
	parameters []model.ParameterSample[C]
}

// NewRecorder builds a recorder. clone copies configurations that share
// memory with the caller (masks); nil stores values as given.
func NewRecorder[C any](reserve Reserve, clone func(C) C) *Recorder[C] {
	if clone == nil {
		clone = func(c C) C { return c }
	}
	return &Recorder[C]{reserve: reserve, clone: clone}
}

// Record appends one iteration. parameters is only called when the
// parameters stream is reserved.
func (r *Recorder[C]) Record(config C, perf model.Performance, parameters func() ([]float64, error)) error {
	if r.reserve.Training {
		r.training = append(r.training, model.Sample[C]{Configuration: r.clone(config), Value: perf.Training})
	}
	if r.reserve.Selection {
		r.selection = append(r.selection, model.Sample[C]{Configuration: r.clone(config), Value: perf.Selection})
	}
	if r.reserve.Parameters && parameters != nil {
		params, err := parameters()
		if err != nil {
			return err
		}
		r.parameters = append(r.parameters, model.ParameterSample[C]{
			Configuration: r.clone(config),
			Parameters:    append([]float64(nil), params...),
		})
	}
	return nil
}

func (r *Recorder[C]) Training() []model.Sample[C] { return r.training }
func (r *Recorder[C]) Selection() []model.Sample[C] { return r.selection }
func (r *Recorder[C]) Parameters() []model.ParameterSample[C] { return r.parameters }
