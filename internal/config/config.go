package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/example/manifest-audit/internal/detector"
	"github.com/example/manifest-audit/internal/report"
	"github.com/example/manifest-audit/internal/risk"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath = "risk.config.yml"

	envMediumFloor = "MANIFEST_AUDIT_MEDIUM_FLOOR"
	envHighFloor   = "MANIFEST_AUDIT_HIGH_FLOOR"
	envWeights     = "MANIFEST_AUDIT_WEIGHTS"
	envStrict      = "MANIFEST_AUDIT_STRICT"
	envFormat      = "MANIFEST_AUDIT_FORMAT"
	envRules       = "MANIFEST_AUDIT_RULES"
	envSummaryFile = "MANIFEST_AUDIT_SUMMARY_FILE"
)

// ConfigError reports a risk configuration that cannot be loaded or is invalid.
type ConfigError struct {
	Source string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("invalid configuration: %v", e.Err)
	}
	return fmt.Sprintf("invalid configuration (%s): %v", e.Source, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Loader merges configuration coming from files, environment variables, and CLI flags.
type Loader struct {
	ConfigPath string

	// Required makes a missing config file an error instead of falling back to defaults.
	Required bool
}

// RiskConfig contains the fully merged settings for one audit run.
type RiskConfig struct {
	Weights     map[string]int `validate:"dive,keys,required,endkeys,gt=0,lte=1000000"`
	MediumFloor int            `validate:"gte=0"`
	HighFloor   int            `validate:"gtfield=MediumFloor"`
	Strict      bool
	Format      string   `validate:"oneof=text json ndjson"`
	Rules       []string `validate:"min=1,dive,required"`
	SummaryFile string
}

// fileConfig is the on-disk shape of risk.config.yml.
type fileConfig struct {
	Weights        map[string]int  `yaml:"weights"`
	ReplaceWeights bool            `yaml:"replaceWeights"`
	Thresholds     risk.Thresholds `yaml:"thresholds"`
	Strict         bool            `yaml:"strict"`
	Format         string          `yaml:"format"`
	Rules          []string        `yaml:"rules"`
	SummaryFile    string          `yaml:"summaryFile,omitempty"`
}

// MarshalYAML writes the config in the same shape the loader reads, with
// replaceWeights set so the output is self-contained.
func (c RiskConfig) MarshalYAML() (interface{}, error) {
	return fileConfig{
		Weights:        c.Weights,
		ReplaceWeights: true,
		Thresholds:     c.Thresholds(),
		Strict:         c.Strict,
		Format:         c.Format,
		Rules:          c.Rules,
		SummaryFile:    c.SummaryFile,
	}, nil
}

// Overrides captures values coming from a config file, env vars or CLI flags.
type Overrides struct {
	Weights        map[string]int
	ReplaceWeights bool
	MediumFloor    int
	MediumFloorSet bool
	HighFloor      int
	HighFloorSet   bool
	Strict         *bool
	Format         string
	Rules          []string
	SummaryFile    string
}

// DefaultRiskConfig returns the baseline configuration when no overrides are provided.
func DefaultRiskConfig() RiskConfig {
	thresholds := risk.DefaultThresholds()
	return RiskConfig{
		Weights:     risk.DefaultWeights(),
		MediumFloor: thresholds.Medium,
		HighFloor:   thresholds.High,
		Format:      string(report.FormatText),
		Rules:       detector.DefaultRules(),
	}
}

// Thresholds returns the tier floors as the scorer expects them.
func (c RiskConfig) Thresholds() risk.Thresholds {
	return risk.Thresholds{Medium: c.MediumFloor, High: c.HighFloor}
}

// Load resolves the final configuration. Every failure is a *ConfigError.
func (l Loader) Load(override Overrides) (RiskConfig, error) {
	cfg := DefaultRiskConfig()
	path := l.ConfigPath
	if path == "" {
		path = DefaultConfigPath
	}

	if fileExists(path) {
		fileOv, err := loadFromFile(path)
		if err != nil {
			return cfg, &ConfigError{Source: path, Err: err}
		}
		cfg.apply(fileOv)
	} else if l.Required {
		return cfg, &ConfigError{Source: path, Err: errors.New("config file not found")}
	}

	envOv, err := overridesFromEnv()
	if err != nil {
		return cfg, &ConfigError{Source: "environment", Err: err}
	}
	cfg.apply(envOv)

	cfg.apply(override)

	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks weights, thresholds, format and rule selection.
func (c RiskConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return &ConfigError{Err: describe(verrs)}
		}
		return &ConfigError{Err: err}
	}

	for _, name := range c.Rules {
		if _, ok := detector.DefaultRegistry[name]; !ok {
			return &ConfigError{Err: fmt.Errorf("unknown rule %q (available: %s)", name, strings.Join(detector.DefaultRegistry.Names(), ", "))}
		}
	}

	return nil
}

func describe(verrs validator.ValidationErrors) error {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "gt":
			msgs = append(msgs, fmt.Sprintf("%s must be positive (got %v)", fe.Namespace(), fe.Value()))
		case "lte":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s (got %v)", fe.Namespace(), fe.Param(), fe.Value()))
		case "gtfield":
			msgs = append(msgs, fmt.Sprintf("%s must be greater than %s (got %v)", fe.Field(), fe.Param(), fe.Value()))
		case "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be >= %s (got %v)", fe.Field(), fe.Param(), fe.Value()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s] (got %q)", fe.Field(), fe.Param(), fe.Value()))
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s needs at least %s entry", fe.Field(), fe.Param()))
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s must not be empty", fe.Namespace()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

func (c *RiskConfig) apply(src Overrides) {
	if src.ReplaceWeights {
		c.Weights = maps.Clone(src.Weights)
		if c.Weights == nil {
			c.Weights = map[string]int{}
		}
	} else if len(src.Weights) > 0 {
		if c.Weights == nil {
			c.Weights = map[string]int{}
		}
		maps.Copy(c.Weights, src.Weights)
	}

	if src.MediumFloorSet {
		c.MediumFloor = src.MediumFloor
	}

	if src.HighFloorSet {
		c.HighFloor = src.HighFloor
	}

	if src.Strict != nil {
		c.Strict = *src.Strict
	}

	if src.Format != "" {
		c.Format = strings.ToLower(strings.TrimSpace(src.Format))
	}

	if len(src.Rules) > 0 {
		c.Rules = cleanList(src.Rules)
	}

	if src.SummaryFile != "" {
		c.SummaryFile = src.SummaryFile
	}
}

func loadFromFile(path string) (Overrides, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Overrides{}, err
	}

	type rawConfig struct {
		Weights        map[string]int `yaml:"weights"`
		ReplaceWeights bool           `yaml:"replaceWeights"`
		Thresholds     struct {
			Medium *int `yaml:"medium"`
			High   *int `yaml:"high"`
		} `yaml:"thresholds"`
		Strict      *bool    `yaml:"strict"`
		Format      string   `yaml:"format"`
		Rules       nameList `yaml:"rules"`
		SummaryFile string   `yaml:"summaryFile"`
	}

	var raw rawConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return Overrides{}, err
	}

	over := Overrides{
		Weights:        raw.Weights,
		ReplaceWeights: raw.ReplaceWeights,
		Strict:         raw.Strict,
		Format:         raw.Format,
		Rules:          raw.Rules,
		SummaryFile:    raw.SummaryFile,
	}

	if raw.Thresholds.Medium != nil {
		over.MediumFloor = *raw.Thresholds.Medium
		over.MediumFloorSet = true
	}

	if raw.Thresholds.High != nil {
		over.HighFloor = *raw.Thresholds.High
		over.HighFloorSet = true
	}

	return over, nil
}

func overridesFromEnv() (Overrides, error) {
	ov := Overrides{}

	if value := os.Getenv(envMediumFloor); value != "" {
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return ov, fmt.Errorf("%s: %w", envMediumFloor, err)
		}
		ov.MediumFloor = parsed
		ov.MediumFloorSet = true
	}

	if value := os.Getenv(envHighFloor); value != "" {
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return ov, fmt.Errorf("%s: %w", envHighFloor, err)
		}
		ov.HighFloor = parsed
		ov.HighFloorSet = true
	}

	if value := os.Getenv(envWeights); value != "" {
		weights, err := ParseWeights(splitOnDelimiters(value, []rune{',', '\n', '\r'}))
		if err != nil {
			return ov, fmt.Errorf("%s: %w", envWeights, err)
		}
		ov.Weights = weights
	}

	if value := os.Getenv(envStrict); value != "" {
		parsed := strings.EqualFold(value, "true") || value == "1"
		ov.Strict = &parsed
	}

	if value := os.Getenv(envFormat); value != "" {
		ov.Format = value
	}

	if value := os.Getenv(envRules); value != "" {
		ov.Rules = ParseRules(value)
	}

	if value := os.Getenv(envSummaryFile); value != "" {
		ov.SummaryFile = value
	}

	return ov, nil
}

// ParseWeights turns "permission=weight" entries into a weight table.
func ParseWeights(entries []string) (map[string]int, error) {
	weights := map[string]int{}
	for _, entry := range entries {
		name, raw, ok := strings.Cut(entry, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("weight %q must look like permission=weight", entry)
		}
		weight, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("weight for %s: %w", name, err)
		}
		weights[name] = weight
	}
	return weights, nil
}

// ParseRules splits comma separated rule names.
func ParseRules(input string) []string {
	return splitOnDelimiters(input, []rune{',', '\n', '\r', ' '})
}

func splitOnDelimiters(input string, delims []rune) []string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil
	}

	separator := func(r rune) bool {
		for _, d := range delims {
			if r == d {
				return true
			}
		}
		return false
	}

	return cleanList(strings.FieldsFunc(trimmed, separator))
}

func cleanList(values []string) []string {
	var out []string
	for _, v := range values {
		candidate := strings.TrimSpace(v)
		if candidate != "" {
			out = append(out, candidate)
		}
	}
	return out
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// nameList enables YAML fields that can be specified as a scalar or sequence.
type nameList []string

func (n *nameList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var out []string
		for _, node := range value.Content {
			out = append(out, strings.TrimSpace(node.Value))
		}
		*n = cleanList(out)
	case yaml.ScalarNode:
		*n = ParseRules(value.Value)
	default:
		return fmt.Errorf("unsupported YAML type for rules")
	}
	return nil
}
