package features

import (
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// SchemaError reports a reference dataset that cannot supply the classifier
// schema, e.g. a missing outcome column.
type SchemaError struct {
	Reason string
}

func (e *SchemaError) Error() string {
	return e.Reason
}

func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}

// Stats carries the classifier feature schema and per-feature statistics
// derived from the reference dataset: medians for defaults, min/max and
// percentile bands for proxy scaling, and the imputed sample matrix used when
// a fallback classifier has to be trained.
type Stats struct {
	Schema  []string
	Medians map[string]float64
	Mins    map[string]float64
	Maxs    map[string]float64
	Q10     map[string]float64
	Q90     map[string]float64

	Samples [][]float64
	Labels  []float64

	SourcePath string
}

var missingTokens = map[string]struct{}{
	"": {}, "?": {}, "na": {}, "nan": {}, "null": {}, "none": {},
}

// ParseCell converts a CSV cell to a float, treating the usual placeholder
// tokens as missing.
func ParseCell(raw string) (float64, bool) {
	text := strings.ToLower(strings.TrimSpace(raw))
	if _, missing := missingTokens[text]; missing {
		return 0, false
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// LoadStats reads the reference dataset and derives the feature schema (every
// column except the outcome column) plus per-feature statistics.
func LoadStats(path, outcomeColumn string) (*Stats, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("opening reference dataset: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading reference dataset: %w", err)
	}
	if len(records) == 0 {
		return nil, &SchemaError{Reason: "reference dataset has no header row"}
	}

	header := records[0]
	outcomeIdx := -1
	for i, col := range header {
		if col == outcomeColumn {
			outcomeIdx = i
			break
		}
	}
	if outcomeIdx < 0 {
		return nil, &SchemaError{Reason: fmt.Sprintf("expected %q column in reference dataset", outcomeColumn)}
	}

	schema := make([]string, 0, len(header)-1)
	for i, col := range header {
		if i != outcomeIdx {
			schema = append(schema, col)
		}
	}

	columns := make(map[string][]float64, len(schema))
	stats := &Stats{
		Schema:     schema,
		Medians:    make(map[string]float64, len(schema)),
		Mins:       make(map[string]float64, len(schema)),
		Maxs:       make(map[string]float64, len(schema)),
		Q10:        make(map[string]float64, len(schema)),
		Q90:        make(map[string]float64, len(schema)),
		SourcePath: path,
	}

	type rawRow struct {
		values map[string]float64
		label  float64
	}
	var rows []rawRow

	for _, record := range records[1:] {
		if len(record) != len(header) {
			continue
		}
		label, labelOK := ParseCell(record[outcomeIdx])
		row := rawRow{values: make(map[string]float64, len(schema)), label: label}

		featureIdx := 0
		for i, cell := range record {
			if i == outcomeIdx {
				continue
			}
			col := schema[featureIdx]
			featureIdx++
			if v, ok := ParseCell(cell); ok {
				row.values[col] = v
				columns[col] = append(columns[col], v)
			}
		}
		if labelOK {
			rows = append(rows, row)
		}
	}

	for _, col := range schema {
		values := columns[col]
		sort.Float64s(values)
		stats.Medians[col] = quantile(values, 0.5)
		stats.Q10[col] = quantile(values, 0.1)
		stats.Q90[col] = quantile(values, 0.9)
		if len(values) > 0 {
			stats.Mins[col] = values[0]
			stats.Maxs[col] = values[len(values)-1]
		}
	}

	// Missing cells are imputed with the feature median so every sample is a
	// complete vector in schema order.
	for _, row := range rows {
		sample := make([]float64, len(schema))
		for i, col := range schema {
			if v, ok := row.values[col]; ok {
				sample[i] = v
			} else {
				sample[i] = stats.Medians[col]
			}
		}
		stats.Samples = append(stats.Samples, sample)
		label := 0.0
		if row.label != 0 {
			label = 1.0
		}
		stats.Labels = append(stats.Labels, label)
	}

	return stats, nil
}

// quantile computes a linearly interpolated quantile of a sorted slice.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
