package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"math/rand"
	"strconv"
)

// Synthetic builds a regression table whose target depends on the first
// informative inputs only. The remaining noise inputs are uniform random.
func Synthetic(seed int64, instances, informative, noise int) (*Dataset, error) {
	if instances <= 0 || informative <= 0 || noise < 0 {
		return nil, fmt.Errorf("invalid synthetic shape instances=%d informative=%d noise=%d", instances, informative, noise)
	}
	rng := rand.New(rand.NewSource(seed))
	width := informative + noise
	d := &Dataset{Name: fmt.Sprintf("synthetic_i%dn%d", informative, noise)}
	for i := 0; i < informative; i++ {
		d.Variables = append(d.Variables, Variable{Name: fmt.Sprintf("x%d", i), Use: UseInput})
	}
	for i := 0; i < noise; i++ {
		d.Variables = append(d.Variables, Variable{Name: fmt.Sprintf("noise%d", i), Use: UseInput})
	}
	d.Variables = append(d.Variables, Variable{Name: "y", Use: UseTarget})

	d.Rows = make([][]float64, 0, instances)
	for idx := 0; idx < instances; idx++ {
		row := randomVector(rng, width+1, -1, 1)
		target := 0.0
		for i := 0; i < informative; i++ {
			target += math.Sin(2 * row[i])
		}
		row[width] = target/float64(informative) + 0.01*rng.NormFloat64()
		d.Rows = append(d.Rows, row)
	}
	d.Split = Split{Training: sequence(instances)}
	return d, nil
}

// WriteCSV writes the table with a header row in the format Load reads.
func WriteCSV(out io.Writer, d *Dataset) error {
	writer := csv.NewWriter(out)
	header := make([]string, len(d.Variables))
	for i, v := range d.Variables {
		header[i] = v.Name
	}
	if err := writer.Write(header); err != nil {
		return err
	}
	record := make([]string, len(d.Variables))
	for _, row := range d.Rows {
		for i, value := range row {
			record[i] = strconv.FormatFloat(value, 'g', -1, 64)
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func randomVector(rng *rand.Rand, length int, min float64, max float64) []float64 {
	span := max - min
	out := make([]float64, length)
	for i := range out {
		out[i] = min + rng.Float64()*span
	}
	return out
}
