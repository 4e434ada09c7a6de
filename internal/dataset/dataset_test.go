package dataset

import (
	"bytes"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestLoadAssignsUsesAndNames(t *testing.T) {
	in := strings.NewReader("a,b,id,y\n1,2,7,0.5\n\n3,4,8,1.5\n")
	d, err := Load(in, LoadOptions{Name: "small", Unused: []string{"id"}})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if d.Name != "small" || len(d.Rows) != 2 {
		t.Fatalf("unexpected dataset: %+v", d)
	}
	if !reflect.DeepEqual(d.InputNames(), []string{"a", "b"}) {
		t.Fatalf("unexpected inputs: %v", d.InputNames())
	}
	if !reflect.DeepEqual(d.TargetIndices(), []int{3}) {
		t.Fatalf("unexpected targets: %v", d.TargetIndices())
	}
	if !reflect.DeepEqual(d.Uses(), []Use{UseInput, UseInput, UseUnused, UseTarget}) {
		t.Fatalf("unexpected uses: %v", d.Uses())
	}
	if len(d.Split.Training) != 2 {
		t.Fatalf("expected every row in training by default, got %v", d.Split)
	}
}

func TestLoadRejectsMalformedTables(t *testing.T) {
	cases := map[string]string{
		"empty":      "",
		"one column": "a\n1\n",
		"no rows":    "a,y\n",
		"bad number": "a,y\n1,x\n",
		"short row":  "a,b,y\n1,2\n",
	}
	for name, raw := range cases {
		if _, err := Load(strings.NewReader(raw), LoadOptions{}); err == nil {
			t.Fatalf("%s: expected load error", name)
		}
	}
	if _, err := Load(strings.NewReader("a,y\n1,2\n"), LoadOptions{Targets: []string{"z"}}); err == nil {
		t.Fatal("expected unknown target error")
	}
}

func TestSetUsesValidates(t *testing.T) {
	d, err := Load(strings.NewReader("a,b,y\n1,2,3\n"), LoadOptions{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := d.SetUses([]Use{UseInput}); err == nil {
		t.Fatal("expected size mismatch")
	}
	if err := d.SetUses([]Use{UseInput, "bogus", UseTarget}); err == nil {
		t.Fatal("expected unknown use")
	}
	if err := d.SetUses([]Use{UseUnused, UseInput, UseTarget}); err != nil {
		t.Fatalf("set uses: %v", err)
	}
	if !reflect.DeepEqual(d.InputNames(), []string{"b"}) {
		t.Fatalf("unexpected inputs after set uses: %v", d.InputNames())
	}
}

func TestSplitInstancesPartitionsRows(t *testing.T) {
	d, err := Synthetic(3, 100, 2, 1)
	if err != nil {
		t.Fatalf("synthetic: %v", err)
	}
	if err := d.SplitInstances(rand.New(rand.NewSource(1)), 0.6, 0.2); err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(d.Split.Training) != 60 || len(d.Split.Selection) != 20 || len(d.Split.Testing) != 20 {
		t.Fatalf("unexpected split sizes: %d/%d/%d", len(d.Split.Training), len(d.Split.Selection), len(d.Split.Testing))
	}
	seen := map[int]bool{}
	for _, part := range [][]int{d.Split.Training, d.Split.Selection, d.Split.Testing} {
		for _, row := range part {
			if seen[row] {
				t.Fatalf("row %d assigned twice", row)
			}
			seen[row] = true
		}
	}
	if err := d.SplitInstances(rand.New(rand.NewSource(1)), 0.9, 0.2); err == nil {
		t.Fatal("expected ratio error")
	}
}

func TestColumnStatisticsAndScaling(t *testing.T) {
	s := ColumnStatistics([]float64{1, 2, 3, 4})
	if s.Minimum != 1 || s.Maximum != 4 || s.Mean != 2.5 {
		t.Fatalf("unexpected statistics: %+v", s)
	}
	if math.Abs(s.StandardDeviation-math.Sqrt(5.0/3.0)) > 1e-12 {
		t.Fatalf("unexpected standard deviation: %f", s.StandardDeviation)
	}
	if got := Scale(4, s, ScaleMinimumMaximum); got != 1 {
		t.Fatalf("expected max to scale to 1, got %f", got)
	}
	if got := Scale(1, s, ScaleMinimumMaximum); got != -1 {
		t.Fatalf("expected min to scale to -1, got %f", got)
	}
	if got := Scale(2.5, s, ScaleMeanStandardDeviation); got != 0 {
		t.Fatalf("expected mean to scale to 0, got %f", got)
	}
	if got := Scale(7, s, ScaleNone); got != 7 {
		t.Fatalf("expected unscaled value, got %f", got)
	}
	flat := ColumnStatistics([]float64{2})
	if flat.StandardDeviation != 0 || Scale(2, flat, ScaleMinimumMaximum) != 0 {
		t.Fatalf("unexpected degenerate statistics: %+v", flat)
	}
	if _, err := ParseScalingMethod("robust"); err == nil {
		t.Fatal("expected scaling method error")
	}
}

func TestSyntheticRoundTripsThroughCSV(t *testing.T) {
	d, err := Synthetic(9, 20, 2, 3)
	if err != nil {
		t.Fatalf("synthetic: %v", err)
	}
	path := filepath.Join(t.TempDir(), "synthetic.csv")
	var buf bytes.Buffer
	if err := WriteCSV(&buf, d); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	loaded, err := ReadFile(path, LoadOptions{Name: d.Name})
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if !reflect.DeepEqual(loaded.Rows, d.Rows) {
		t.Fatal("expected rows to survive csv round trip")
	}
	if !reflect.DeepEqual(loaded.InputNames(), []string{"x0", "x1", "noise0", "noise1", "noise2"}) {
		t.Fatalf("unexpected inputs: %v", loaded.InputNames())
	}
}
