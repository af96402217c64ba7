package features

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/cardia-ai/platform/pkg/common/models"
)

func testStats() *Stats {
	return &Stats{
		Schema: []string{"Glucose", "BloodPressure", "SkinThickness", "Insulin", "BMI", "Age"},
		Medians: map[string]float64{
			"Glucose": 117, "BloodPressure": 72, "SkinThickness": 23,
			"Insulin": 30.5, "BMI": 32, "Age": 29,
		},
		Mins: map[string]float64{"Glucose": 50, "Insulin": 0},
		Maxs: map[string]float64{"Glucose": 250, "Insulin": 846},
		Q10:  map[string]float64{"Insulin": 30},
		Q90:  map[string]float64{"Insulin": 200},
	}
}

func record(attrs map[string]interface{}) models.PatientRecord {
	return models.PatientRecord{PatientID: "PID0001", Attributes: attrs}
}

func TestMapDirectColumns(t *testing.T) {
	vector, mapping := Map(record(map[string]interface{}{
		"Age":                     54,
		"BMI":                     28.4,
		"BloodPressure_Diastolic": 88.0,
	}), testStats(), DefaultRules(), true)

	if vector["Age"] != 54 || vector["BMI"] != 28.4 || vector["BloodPressure"] != 88 {
		t.Fatalf("unexpected direct values: %v", vector)
	}
	if mapping.Used["Age"] != "Age" {
		t.Fatalf("expected plain provenance for a direct column, got %q", mapping.Used["Age"])
	}
	if mapping.Used["BloodPressure"] != "BloodPressure_Diastolic" {
		t.Fatalf("unexpected blood pressure provenance: %q", mapping.Used["BloodPressure"])
	}
}

func TestMapScaledProxy(t *testing.T) {
	vector, mapping := Map(record(map[string]interface{}{
		"BiomarkerScore": 5.0,
		"MedicationDose": 2.0,
	}), testStats(), DefaultRules(), true)

	// BiomarkerScore 5 on [0,10] lands mid-way through the glucose min/max band.
	if vector["Glucose"] != 150 {
		t.Fatalf("expected rescaled glucose 150, got %v", vector["Glucose"])
	}
	if mapping.Used["Glucose"] != "BiomarkerScore(scaled)" {
		t.Fatalf("unexpected glucose provenance: %q", mapping.Used["Glucose"])
	}
	// MedicationDose 2 saturates the [0,2] range onto the insulin q90.
	if vector["Insulin"] != 200 {
		t.Fatalf("expected insulin at q90, got %v", vector["Insulin"])
	}
	if mapping.Used["Insulin"] != "MedicationDose(scaled)" {
		t.Fatalf("unexpected insulin provenance: %q", mapping.Used["Insulin"])
	}
}

func TestMapDerivedColumn(t *testing.T) {
	vector, mapping := Map(record(map[string]interface{}{"BMI": 40.0}), testStats(), DefaultRules(), true)
	if vector["SkinThickness"] != 36 {
		t.Fatalf("expected derived skin thickness 36, got %v", vector["SkinThickness"])
	}
	if mapping.Used["SkinThickness"] != "BMI(derived)" {
		t.Fatalf("unexpected provenance: %q", mapping.Used["SkinThickness"])
	}

	// Clamped at the derived ceiling.
	vector, _ = Map(record(map[string]interface{}{"BMI": 60.0}), testStats(), DefaultRules(), true)
	if vector["SkinThickness"] != 50 {
		t.Fatalf("expected clamp at 50, got %v", vector["SkinThickness"])
	}
}

func TestMapProxiesDisabled(t *testing.T) {
	stats := testStats()
	vector, mapping := Map(record(map[string]interface{}{
		"Age":            54,
		"BiomarkerScore": 5.0,
	}), stats, DefaultRules(), false)

	if vector["Glucose"] != stats.Medians["Glucose"] {
		t.Fatalf("expected glucose to stay at the median, got %v", vector["Glucose"])
	}
	if _, filled := mapping.Used["Glucose"]; filled {
		t.Fatal("proxy fills must be skipped when disabled")
	}
	if vector["Age"] != 54 {
		t.Fatal("direct columns still apply with proxies disabled")
	}

	found := false
	for _, feature := range mapping.Missing {
		if feature == "Glucose" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected glucose reported missing, got %v", mapping.Missing)
	}
}

func TestMapAlwaysCompleteVector(t *testing.T) {
	stats := testStats()
	vector, mapping := Map(record(map[string]interface{}{}), stats, DefaultRules(), true)

	for _, feature := range stats.Schema {
		if vector[feature] != stats.Medians[feature] {
			t.Fatalf("feature %s: expected the median default, got %v", feature, vector[feature])
		}
	}
	if len(mapping.Missing) != len(stats.Schema) {
		t.Fatalf("expected every feature missing, got %v", mapping.Missing)
	}
	// Missing preserves schema order.
	for i, feature := range stats.Schema {
		if mapping.Missing[i] != feature {
			t.Fatalf("missing[%d]: expected %s, got %s", i, feature, mapping.Missing[i])
		}
	}
}

func TestMapPossibleExcludesDerivedSources(t *testing.T) {
	_, mapping := Map(record(map[string]interface{}{
		"BMI":            28.4,
		"BiomarkerScore": 5.0,
	}), testStats(), DefaultRules(), true)

	if len(mapping.Possible["SkinThickness"]) != 0 {
		t.Fatalf("derived rules are not candidate parameters, got %v", mapping.Possible["SkinThickness"])
	}
	if len(mapping.Possible["Glucose"]) != 1 || mapping.Possible["Glucose"][0] != "BiomarkerScore" {
		t.Fatalf("unexpected glucose candidates: %v", mapping.Possible["Glucose"])
	}
}

func TestMapIgnoresNonFiniteAttributes(t *testing.T) {
	stats := testStats()
	vector, mapping := Map(record(map[string]interface{}{
		"Age": float32(math.NaN()),
		"BMI": math.Inf(1),
	}), stats, DefaultRules(), true)

	if vector["Age"] != stats.Medians["Age"] || vector["BMI"] != stats.Medians["BMI"] {
		t.Fatalf("non-finite attributes must fall back to the median, got %v/%v", vector["Age"], vector["BMI"])
	}
	if _, filled := mapping.Used["Age"]; filled {
		t.Fatal("a NaN source must not count as used")
	}
}

func TestRescale(t *testing.T) {
	if v := Rescale(5, 0, 10, 100, 200); v != 150 {
		t.Fatalf("expected 150, got %v", v)
	}
	if v := Rescale(-1, 0, 10, 100, 200); v != 100 {
		t.Fatalf("expected ratio clipped to the floor, got %v", v)
	}
	if v := Rescale(15, 0, 10, 100, 200); v != 200 {
		t.Fatalf("expected ratio clipped to the ceiling, got %v", v)
	}
	if v := Rescale(5, 10, 10, 100, 200); v != 100 {
		t.Fatalf("degenerate source range must collapse to the floor, got %v", v)
	}
}

func TestLoadRulesFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `rules:
  - feature: Glucose
    kind: scaled_proxy
    source: HbA1c
    src_min: 4
    src_max: 12
    dst_band: percentile
  - feature: Age
    kind: direct
    source: Age
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing rules: %v", err)
	}

	cfg, err := LoadRules(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(cfg.Rules))
	}
	if cfg.Rules[0].Kind != RuleScaledProxy || cfg.Rules[0].DstBand != BandPercentile {
		t.Fatalf("unexpected first rule: %+v", cfg.Rules[0])
	}
}

func TestLoadRulesUnknownKind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := "rules:\n  - feature: Age\n    kind: magic\n    source: Age\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing rules: %v", err)
	}
	if _, err := LoadRules(path); err == nil {
		t.Fatal("expected an error for an unknown rule kind")
	}
}

func TestLoadRulesEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := LoadRules("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Rules) != 6 {
		t.Fatalf("expected the built-in rule table, got %d rules", len(cfg.Rules))
	}
}
