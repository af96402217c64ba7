package features

import (
	"math"

	"github.com/cardia-ai/platform/pkg/common/models"
)

// Vector is a complete classifier input: one entry per schema feature.
type Vector map[string]float64

// Mapping reports where each feature value came from. Possible lists the
// candidate source columns present on the record, Used the one that actually
// filled the feature (with a (scaled)/(derived) provenance suffix), and
// Missing the features that stayed at their statistical default.
type Mapping struct {
	Possible map[string][]string `json:"possible_parameters"`
	Used     map[string]string   `json:"used_parameters"`
	Missing  []string            `json:"missing_model_features"`
}

// Map projects one patient record onto the classifier schema. The fallback
// order is fixed: direct column, then (when enabled) scaled proxy or derived
// column, then the reference-dataset median. It always terminates with a
// complete vector; missing data only degrades provenance.
func Map(record models.PatientRecord, stats *Stats, rules RulesConfig, useProxies bool) (Vector, Mapping) {
	vector := make(Vector, len(stats.Schema))
	inSchema := make(map[string]bool, len(stats.Schema))
	for _, feature := range stats.Schema {
		vector[feature] = stats.Medians[feature]
		inSchema[feature] = true
	}

	mapping := Mapping{
		Possible: make(map[string][]string, len(stats.Schema)),
		Used:     make(map[string]string),
	}

	for _, feature := range stats.Schema {
		options := []string{}
		for _, rule := range rules.Rules {
			if rule.Feature != feature || rule.Kind == RuleDerived {
				continue
			}
			if _, present := record.Attributes[rule.Source]; present {
				options = append(options, rule.Source)
			}
		}
		mapping.Possible[feature] = options
	}

	for _, rule := range rules.Rules {
		if rule.Kind != RuleDirect || !inSchema[rule.Feature] {
			continue
		}
		if v, ok := recordValue(record, rule.Source); ok {
			vector[rule.Feature] = v
			mapping.Used[rule.Feature] = rule.Source
		}
	}

	if useProxies {
		for _, rule := range rules.Rules {
			if !inSchema[rule.Feature] {
				continue
			}
			if _, filled := mapping.Used[rule.Feature]; filled {
				continue
			}

			switch rule.Kind {
			case RuleScaledProxy:
				v, ok := recordValue(record, rule.Source)
				if !ok {
					continue
				}
				dstLo, dstHi := destinationBand(stats, rule)
				vector[rule.Feature] = Rescale(v, rule.SrcMin, rule.SrcMax, dstLo, dstHi)
				mapping.Used[rule.Feature] = rule.Source + "(scaled)"
			case RuleDerived:
				v, ok := recordValue(record, rule.Source)
				if !ok {
					continue
				}
				derived := v * rule.Scale
				if derived < rule.ClampMin {
					derived = rule.ClampMin
				} else if derived > rule.ClampMax {
					derived = rule.ClampMax
				}
				vector[rule.Feature] = derived
				mapping.Used[rule.Feature] = rule.Source + "(derived)"
			}
		}
	}

	for _, feature := range stats.Schema {
		if _, filled := mapping.Used[feature]; !filled {
			mapping.Missing = append(mapping.Missing, feature)
		}
	}

	return vector, mapping
}

// Rescale maps v from the source range onto the destination range with the
// source ratio clipped to [0, 1]. A degenerate source range collapses to the
// destination floor.
func Rescale(v, srcLo, srcHi, dstLo, dstHi float64) float64 {
	if srcHi <= srcLo {
		return dstLo
	}
	ratio := (v - srcLo) / (srcHi - srcLo)
	if ratio < 0 {
		ratio = 0
	} else if ratio > 1 {
		ratio = 1
	}
	return dstLo + ratio*(dstHi-dstLo)
}

func destinationBand(stats *Stats, rule Rule) (float64, float64) {
	if rule.DstBand == BandPercentile {
		return stats.Q10[rule.Feature], stats.Q90[rule.Feature]
	}
	return stats.Mins[rule.Feature], stats.Maxs[rule.Feature]
}

func recordValue(record models.PatientRecord, column string) (float64, bool) {
	raw, present := record.Attributes[column]
	if !present {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return v, true
	case float32:
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
