package dataset

import (
	"fmt"
	"math/rand"
)

// Split assigns instances to training, selection and testing.
type Split struct {
	Training  []int `json:"training"`
	Selection []int `json:"selection,omitempty"`
	Testing   []int `json:"testing,omitempty"`
}

// SplitInstances shuffles the instances with rng and cuts them by ratio. The
// testing share is whatever remains.
func (d *Dataset) SplitInstances(rng *rand.Rand, trainingRatio, selectionRatio float64) error {
	if rng == nil {
		return fmt.Errorf("random source is required")
	}
	if trainingRatio <= 0 || selectionRatio <= 0 || trainingRatio+selectionRatio > 1 {
		return fmt.Errorf("invalid split ratios training=%g selection=%g", trainingRatio, selectionRatio)
	}
	n := len(d.Rows)
	order := rng.Perm(n)
	trnEnd := int(float64(n) * trainingRatio)
	valEnd := trnEnd + int(float64(n)*selectionRatio)
	if trnEnd == 0 || valEnd == trnEnd {
		return fmt.Errorf("dataset with %d rows is too small to split", n)
	}
	d.Split = Split{
		Training:  append([]int(nil), order[:trnEnd]...),
		Selection: append([]int(nil), order[trnEnd:valEnd]...),
		Testing:   append([]int(nil), order[valEnd:]...),
	}
	return nil
}
