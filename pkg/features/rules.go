package features

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// RuleKind tags one fallback strategy for filling a classifier feature.
// Statistical defaults are the implicit floor and need no rule.
type RuleKind string

const (
	RuleDirect      RuleKind = "direct"
	RuleScaledProxy RuleKind = "scaled_proxy"
	RuleDerived     RuleKind = "derived"
)

// Band selects which reference-dataset range a scaled proxy maps onto.
type Band string

const (
	BandMinMax     Band = "minmax"
	BandPercentile Band = "percentile"
)

type Rule struct {
	Feature string   `yaml:"feature"`
	Kind    RuleKind `yaml:"kind"`
	Source  string   `yaml:"source"`

	// scaled_proxy
	SrcMin  float64 `yaml:"src_min"`
	SrcMax  float64 `yaml:"src_max"`
	DstBand Band    `yaml:"dst_band"`

	// derived
	Scale    float64 `yaml:"scale"`
	ClampMin float64 `yaml:"clamp_min"`
	ClampMax float64 `yaml:"clamp_max"`
}

type RulesConfig struct {
	Rules []Rule `yaml:"rules"`
}

func LoadRules(path string) (RulesConfig, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultRules(), err
	}

	var cfg RulesConfig
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return RulesConfig{}, err
	}
	if len(cfg.Rules) == 0 {
		return RulesConfig{}, errors.New("no mapping rules configured")
	}
	for _, rule := range cfg.Rules {
		switch rule.Kind {
		case RuleDirect, RuleScaledProxy, RuleDerived:
		default:
			return RulesConfig{}, fmt.Errorf("unknown rule kind %q for feature %s", rule.Kind, rule.Feature)
		}
	}
	return cfg, nil
}

func DefaultRules() RulesConfig {
	return RulesConfig{Rules: []Rule{
		{Feature: "Age", Kind: RuleDirect, Source: "Age"},
		{Feature: "BMI", Kind: RuleDirect, Source: "BMI"},
		{Feature: "BloodPressure", Kind: RuleDirect, Source: "BloodPressure_Diastolic"},
		{Feature: "Glucose", Kind: RuleScaledProxy, Source: "BiomarkerScore", SrcMin: 0, SrcMax: 10, DstBand: BandMinMax},
		{Feature: "Insulin", Kind: RuleScaledProxy, Source: "MedicationDose", SrcMin: 0, SrcMax: 2, DstBand: BandPercentile},
		{Feature: "SkinThickness", Kind: RuleDerived, Source: "BMI", Scale: 0.9, ClampMin: 10, ClampMax: 50},
	}}
}
