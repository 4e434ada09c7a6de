package inputs

import "math"

// ratioTable holds the selection error measured with each input position
// pruned. Positions that were already chosen once are excluded and never
// scored or selected again within a run.
type ratioTable struct {
	errors   []float64
	excluded []bool
}

func newRatioTable(n int) *ratioTable {
	return &ratioTable{errors: make([]float64, n), excluded: make([]bool, n)}
}

func (t *ratioTable) candidate(position int) bool {
	return !t.excluded[position]
}

func (t *ratioTable) set(position int, selectionError float64) {
	t.errors[position] = selectionError
}

func (t *ratioTable) exclude(position int) {
	t.excluded[position] = true
}

// best returns the candidate position with the smallest error, the lowest
// index winning ties. ok is false when every position is excluded.
func (t *ratioTable) best() (position int, selectionError float64, ok bool) {
	position, selectionError = -1, math.Inf(1)
	for i, e := range t.errors {
		if t.excluded[i] {
			continue
		}
		if position < 0 || e < selectionError {
			position, selectionError = i, e
		}
	}
	return position, selectionError, position >= 0
}
