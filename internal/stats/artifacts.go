package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"modelsel/internal/model"
)

const (
	runIndexFile = "run_index.json"
	configFile   = "config.json"
	resultsFile  = "results.json"
	historyFile  = "history.csv"
)

var historyHeader = []string{"step", "configuration", "training_error", "selection_error", "temperature"}

// RunConfig records how a run was started.
type RunConfig struct {
	RunID        string           `json:"run_id"`
	Kind         model.SearchKind `json:"kind"`
	Method       string           `json:"method"`
	Dataset      string           `json:"dataset"`
	Seed         int64            `json:"seed"`
	Activation   string           `json:"activation,omitempty"`
	Scaling      string           `json:"scaling,omitempty"`
	Order        int              `json:"order,omitempty"`
	Fields       map[string]any   `json:"fields"`
	CreatedAtUTC string           `json:"created_at_utc"`
}

// RunArtifacts carries exactly one of Order or Inputs.
type RunArtifacts struct {
	Config RunConfig
	Order  *model.OrderResults
	Inputs *model.InputsResults
}

// HistoryRow is one line of history.csv. Errors not reserved by the run are
// NaN; Temperature is NaN for input selection runs.
type HistoryRow struct {
	Step           int
	Configuration  string
	TrainingError  float64
	SelectionError float64
	Temperature    float64
}

type RunIndexEntry struct {
	RunID               string                  `json:"run_id"`
	Kind                model.SearchKind        `json:"kind"`
	Dataset             string                  `json:"dataset"`
	Seed                int64                   `json:"seed"`
	Iterations          int                     `json:"iterations"`
	FinalSelectionError float64                 `json:"final_selection_error"`
	StoppingCondition   model.StoppingCondition `json:"stopping_condition"`
	CreatedAtUTC        string                  `json:"created_at_utc"`
}

func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Config.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}
	if (artifacts.Order == nil) == (artifacts.Inputs == nil) {
		return "", fmt.Errorf("run %s: exactly one of order or inputs results is required", artifacts.Config.RunID)
	}

	runDir := filepath.Join(baseDir, artifacts.Config.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, configFile), artifacts.Config); err != nil {
		return "", err
	}
	var (
		results any
		rows    []HistoryRow
	)
	if artifacts.Order != nil {
		results, rows = artifacts.Order, OrderHistoryRows(*artifacts.Order)
	} else {
		results, rows = artifacts.Inputs, InputsHistoryRows(*artifacts.Inputs)
	}
	if err := writeJSON(filepath.Join(runDir, resultsFile), results); err != nil {
		return "", err
	}
	if err := writeHistory(filepath.Join(runDir, historyFile), rows); err != nil {
		return "", err
	}
	return runDir, nil
}

// OrderHistoryRows lines up the recorded streams of an order run. Step 0 is
// the initial order.
func OrderHistoryRows(results model.OrderResults) []HistoryRow {
	steps := max(len(results.TemperatureHistory), len(results.SelectionHistory), len(results.TrainingHistory))
	rows := make([]HistoryRow, steps)
	for i := range rows {
		rows[i] = HistoryRow{Step: i, TrainingError: math.NaN(), SelectionError: math.NaN(), Temperature: math.NaN()}
		if i < len(results.TrainingHistory) {
			rows[i].Configuration = strconv.Itoa(results.TrainingHistory[i].Configuration)
			rows[i].TrainingError = results.TrainingHistory[i].Value
		}
		if i < len(results.SelectionHistory) {
			rows[i].Configuration = strconv.Itoa(results.SelectionHistory[i].Configuration)
			rows[i].SelectionError = results.SelectionHistory[i].Value
		}
		if i < len(results.TemperatureHistory) {
			rows[i].Temperature = results.TemperatureHistory[i]
		}
	}
	return rows
}

// InputsHistoryRows lines up the recorded streams of an input selection run.
// Masks are written as 1/0 strings.
func InputsHistoryRows(results model.InputsResults) []HistoryRow {
	rows := make([]HistoryRow, len(results.InputsHistory))
	for i, mask := range results.InputsHistory {
		rows[i] = HistoryRow{
			Step:           i,
			Configuration:  MaskString(mask),
			TrainingError:  math.NaN(),
			SelectionError: math.NaN(),
			Temperature:    math.NaN(),
		}
		if i < len(results.TrainingHistory) {
			rows[i].TrainingError = results.TrainingHistory[i].Value
		}
		if i < len(results.SelectionHistory) {
			rows[i].SelectionError = results.SelectionHistory[i].Value
		}
	}
	return rows
}

func MaskString(mask []bool) string {
	var b strings.Builder
	for _, selected := range mask {
		if selected {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	path := filepath.Join(baseDir, runIndexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			// Prefer later appended entries for equal timestamps.
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	for _, file := range []string{configFile, resultsFile, historyFile} {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	return dst, nil
}

func ReadRunConfig(baseDir, runID string) (RunConfig, bool, error) {
	var cfg RunConfig
	ok, err := readJSON(filepath.Join(baseDir, runID, configFile), &cfg)
	if err != nil || !ok {
		return RunConfig{}, ok, err
	}
	return cfg, true, nil
}

func ReadOrderResults(baseDir, runID string) (model.OrderResults, bool, error) {
	var results model.OrderResults
	ok, err := readJSON(filepath.Join(baseDir, runID, resultsFile), &results)
	if err != nil || !ok {
		return model.OrderResults{}, ok, err
	}
	return results, true, nil
}

func ReadInputsResults(baseDir, runID string) (model.InputsResults, bool, error) {
	var results model.InputsResults
	ok, err := readJSON(filepath.Join(baseDir, runID, resultsFile), &results)
	if err != nil || !ok {
		return model.InputsResults{}, ok, err
	}
	return results, true, nil
}

func ReadHistory(baseDir, runID string) ([]HistoryRow, bool, error) {
	path := filepath.Join(baseDir, runID, historyFile)
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return []HistoryRow{}, true, nil
		}
		return nil, false, err
	}
	if len(header) != len(historyHeader) {
		return nil, false, fmt.Errorf("history header must have %d columns", len(historyHeader))
	}

	rows := make([]HistoryRow, 0, 64)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, err
		}
		row, err := parseHistoryRecord(record)
		if err != nil {
			return nil, false, err
		}
		rows = append(rows, row)
	}
	return rows, true, nil
}

func writeHistory(path string, rows []HistoryRow) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(historyHeader); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write([]string{
			strconv.Itoa(row.Step),
			row.Configuration,
			formatOptional(row.TrainingError),
			formatOptional(row.SelectionError),
			formatOptional(row.Temperature),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func parseHistoryRecord(record []string) (HistoryRow, error) {
	if len(record) != len(historyHeader) {
		return HistoryRow{}, fmt.Errorf("history row must have %d columns", len(historyHeader))
	}
	step, err := strconv.Atoi(record[0])
	if err != nil {
		return HistoryRow{}, fmt.Errorf("history step: %w", err)
	}
	row := HistoryRow{Step: step, Configuration: record[1]}
	for i, dst := range []*float64{&row.TrainingError, &row.SelectionError, &row.Temperature} {
		value, err := parseOptional(record[i+2])
		if err != nil {
			return HistoryRow{}, fmt.Errorf("history %s: %w", historyHeader[i+2], err)
		}
		*dst = value
	}
	return row, nil
}

func formatOptional(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseOptional(s string) (float64, error) {
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

func readJSON(path string, out any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, err
	}
	return true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
