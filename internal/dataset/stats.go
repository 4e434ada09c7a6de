package dataset

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"modelsel/internal/model"
)

type ScalingMethod string

const (
	ScaleMeanStandardDeviation ScalingMethod = "mean_standard_deviation"
	ScaleMinimumMaximum        ScalingMethod = "minimum_maximum"
	ScaleNone                  ScalingMethod = "none"
)

func ParseScalingMethod(name string) (ScalingMethod, error) {
	switch ScalingMethod(name) {
	case ScaleMeanStandardDeviation, ScaleMinimumMaximum, ScaleNone:
		return ScalingMethod(name), nil
	case "":
		return ScaleMinimumMaximum, nil
	default:
		return "", fmt.Errorf("unknown scaling method: %s", name)
	}
}

func ColumnStatistics(values []float64) model.Statistics {
	if len(values) == 0 {
		return model.Statistics{}
	}
	mean, std := stat.MeanStdDev(values, nil)
	if len(values) == 1 {
		std = 0
	}
	return model.Statistics{
		Minimum:           floats.Min(values),
		Maximum:           floats.Max(values),
		Mean:              mean,
		StandardDeviation: std,
	}
}

// InputStatistics describes every current input column over the training
// instances.
func (d *Dataset) InputStatistics() []model.Statistics {
	cols := d.InputIndices()
	out := make([]model.Statistics, len(cols))
	for i, col := range cols {
		out[i] = ColumnStatistics(d.Column(col, d.Split.Training))
	}
	return out
}

// Scale maps value into the unit range given by the statistics and method.
// Degenerate columns scale to 0.
func Scale(value float64, s model.Statistics, method ScalingMethod) float64 {
	switch method {
	case ScaleMeanStandardDeviation:
		if s.StandardDeviation == 0 {
			return 0
		}
		return (value - s.Mean) / s.StandardDeviation
	case ScaleMinimumMaximum:
		span := s.Maximum - s.Minimum
		if span == 0 {
			return 0
		}
		return 2*(value-s.Minimum)/span - 1
	default:
		return value
	}
}
