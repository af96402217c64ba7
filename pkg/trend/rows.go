package trend

import (
	"math"
	"sort"

	"github.com/cardia-ai/platform/pkg/common/models"
)

// DefaultCadenceDays is used when the history carries no positive day gaps to
// infer a cadence from.
const DefaultCadenceDays = 30

// ForecastRows synthesizes horizon future patient records. Numeric attributes
// are extrapolated per column, non-numeric attributes are carried over from
// the latest real row, and dates advance at the median positive day gap of
// the history.
func ForecastRows(history []models.PatientRecord, horizon int) []models.PatientRecord {
	if len(history) == 0 || horizon <= 0 {
		return nil
	}

	rows := make([]models.PatientRecord, len(history))
	copy(rows, history)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })

	latest := rows[len(rows)-1]
	cadence := inferCadenceDays(rows)

	numericCols, intCols := classifyColumns(rows)

	forecasts := make(map[string][]float64, len(numericCols))
	for col := range numericCols {
		series := columnSeries(rows, col)
		forecasts[col] = Extrapolate(series, horizon)
	}

	out := make([]models.PatientRecord, 0, horizon)
	for i := 0; i < horizon; i++ {
		attrs := make(map[string]interface{}, len(latest.Attributes))
		for col, latestValue := range latest.Attributes {
			forecast, ok := forecasts[col]
			if !ok {
				attrs[col] = latestValue
				continue
			}
			v := forecast[i]
			if intCols[col] {
				attrs[col] = int(math.Round(v))
			} else {
				attrs[col] = math.Round(v*1e4) / 1e4
			}
		}

		out = append(out, models.PatientRecord{
			PatientID:  latest.PatientID,
			Date:       latest.Date.AddDate(0, 0, cadence*(i+1)),
			Attributes: attrs,
		})
	}
	return out
}

func inferCadenceDays(rows []models.PatientRecord) int {
	gaps := make([]float64, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		days := rows[i].Date.Sub(rows[i-1].Date).Hours() / 24
		if days > 0 {
			gaps = append(gaps, days)
		}
	}
	if len(gaps) == 0 {
		return DefaultCadenceDays
	}
	return int(math.Round(median(gaps)))
}

// classifyColumns reports which attribute columns are numeric across the
// entire history, and which of those carry only whole values.
func classifyColumns(rows []models.PatientRecord) (map[string]bool, map[string]bool) {
	numeric := make(map[string]bool)
	integer := make(map[string]bool)
	seen := make(map[string]bool)

	for _, row := range rows {
		for col, value := range row.Attributes {
			v, ok := asFloat(value)
			if !seen[col] {
				seen[col] = true
				numeric[col] = ok
				integer[col] = ok && v == math.Trunc(v)
				continue
			}
			if !ok {
				numeric[col] = false
				integer[col] = false
				continue
			}
			if v != math.Trunc(v) {
				integer[col] = false
			}
		}
	}

	for col, isNumeric := range numeric {
		if !isNumeric {
			delete(numeric, col)
			delete(integer, col)
		}
	}
	return numeric, integer
}

func columnSeries(rows []models.PatientRecord, col string) []float64 {
	series := make([]float64, 0, len(rows))
	for _, row := range rows {
		if v, ok := asFloat(row.Attributes[col]); ok {
			series = append(series, v)
		}
	}
	return series
}

func asFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, isFiniteValue(v)
	case float32:
		return float64(v), isFiniteValue(float64(v))
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func isFiniteValue(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// LatestRecord returns the most recent row of an unsorted history.
func LatestRecord(history []models.PatientRecord) models.PatientRecord {
	latest := history[0]
	for _, row := range history[1:] {
		if row.Date.After(latest.Date) {
			latest = row
		}
	}
	return latest
}
