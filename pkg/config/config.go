// Package config loads the pipeline configuration once; the resulting
// value is passed explicitly to every stage.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"eventml/pkg/dataprep"
	"eventml/pkg/frame"
	"eventml/pkg/model"
)

// EnvPrefix prefixes environment overrides, e.g. EVENTML_FEATURES_FOLDS.
const EnvPrefix = "EVENTML"

var (
	ErrMissingKey = errors.New("config: missing required key")
	ErrInvalid    = errors.New("config: invalid value")
)

type Config struct {
	DataPath    string `mapstructure:"data_path"`
	LogPath     string `mapstructure:"log_path"`
	ModelPath   string `mapstructure:"model_path"`
	MetricsPath string `mapstructure:"metrics_path"`
	LogLevel    string `mapstructure:"log_level"`

	Input    Input        `mapstructure:"input"`
	Output   Output       `mapstructure:"output"`
	Features Features     `mapstructure:"features"`
	Model    model.Params `mapstructure:"model"`
}

type Input struct {
	Train string `mapstructure:"train"`
	Test  string `mapstructure:"test"`
}

type Output struct {
	Train      string `mapstructure:"train"`
	Test       string `mapstructure:"test"`
	Prediction string `mapstructure:"prediction"`
}

type Features struct {
	Folds      int    `mapstructure:"folds"`
	Seed       int64  `mapstructure:"seed"`
	TargetCol  string `mapstructure:"target_col"`
	CatchID    string `mapstructure:"catch_id"`
	IDCol      string `mapstructure:"id_col"`
	DateCol    string `mapstructure:"date_col"`
	TimeCol    string `mapstructure:"time_col"`
	TimeFormat string `mapstructure:"time_format"`

	ColToSplit         []dataprep.SplitRule `mapstructure:"col_to_split"`
	ColToExpand        []string             `mapstructure:"col_to_expand"`
	ExpandSchema       []ExpandSchema       `mapstructure:"expand_schema"`
	CategoricalColumns []string             `mapstructure:"categorical_columns"`
	DateFeatures       []string             `mapstructure:"date_features"`
	TimeFeatures       []string             `mapstructure:"time_features"`
	ExcludeDates       ExcludeDates         `mapstructure:"exclude_dates"`
	SharedEncoder      bool                 `mapstructure:"shared_encoder"`
}

// ExcludeDates bounds the training period. ExcludeBefore is the lower
// bound, ExcludeAfter the upper one; both are exclusive and optional.
type ExcludeDates struct {
	ExcludeBefore string `mapstructure:"exclude_before"`
	ExcludeAfter  string `mapstructure:"exclude_after"`
}

// ExpandSchema lists the expected attributes of one nested column.
type ExpandSchema struct {
	Column string        `mapstructure:"column"`
	Fields []SchemaField `mapstructure:"fields"`
}

type SchemaField struct {
	Name string `mapstructure:"name"`
	Type string `mapstructure:"type"`
}

// Load reads the file at path (format by extension), applies EVENTML_
// environment overrides and defaults and validates the result.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		splitRuleHook,
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return Config{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("output.train", "train_preprocessed.csv")
	v.SetDefault("output.test", "test_preprocessed.csv")
	v.SetDefault("features.seed", 1)
	v.SetDefault("features.id_col", "user_id")
	v.SetDefault("features.date_col", "date")
	v.SetDefault("features.time_col", "time")
	v.SetDefault("features.time_format", dataprep.DefaultTimeFormat)
	v.SetDefault("model.criterion", "gini")
	v.SetDefault("model.min_samples_split", 2)
	v.SetDefault("model.min_samples_leaf", 1)
}

// splitRuleHook lets col_to_split entries be bare column names, which
// resolve to a preset.
func splitRuleHook(from, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(dataprep.SplitRule{}) || from.Kind() != reflect.String {
		return data, nil
	}
	return dataprep.SplitRule{Column: data.(string)}, nil
}

// Validate reports the first required key that is unset.
func (c Config) Validate() error {
	required := []struct {
		key   string
		empty bool
	}{
		{"data_path", c.DataPath == ""},
		{"log_path", c.LogPath == ""},
		{"model_path", c.ModelPath == ""},
		{"metrics_path", c.MetricsPath == ""},
		{"input.train", c.Input.Train == ""},
		{"input.test", c.Input.Test == ""},
		{"output.prediction", c.Output.Prediction == ""},
		{"features.target_col", c.Features.TargetCol == ""},
		{"features.catch_id", c.Features.CatchID == ""},
		{"features.folds", c.Features.Folds == 0},
	}
	for _, r := range required {
		if r.empty {
			return fmt.Errorf("%w: %s", ErrMissingKey, r.key)
		}
	}
	if c.Features.Folds < 2 {
		return fmt.Errorf("%w: features.folds=%d, need at least 2", ErrInvalid, c.Features.Folds)
	}
	if _, _, err := c.Features.ExcludeBounds(); err != nil {
		return err
	}
	for _, s := range c.Features.ExpandSchema {
		if _, err := s.Schema(); err != nil {
			return err
		}
	}
	return nil
}

// ExcludeBounds parses the exclusion window; unset bounds are nil.
func (f Features) ExcludeBounds() (after, before *time.Time, err error) {
	parse := func(key, s string) (*time.Time, error) {
		if strings.TrimSpace(s) == "" {
			return nil, nil
		}
		t, err := frame.ParseTimestamp(s)
		if err != nil {
			return nil, fmt.Errorf("%w: features.exclude_dates.%s=%q", ErrInvalid, key, s)
		}
		return &t, nil
	}
	if after, err = parse("exclude_before", f.ExcludeDates.ExcludeBefore); err != nil {
		return nil, nil, err
	}
	if before, err = parse("exclude_after", f.ExcludeDates.ExcludeAfter); err != nil {
		return nil, nil, err
	}
	return after, before, nil
}

// Schema converts the configured fields to a frame schema.
func (s ExpandSchema) Schema() (frame.Schema, error) {
	out := frame.Schema{Fields: make([]frame.Field, len(s.Fields))}
	for i, f := range s.Fields {
		kind, err := frame.ParseKind(f.Type)
		if err != nil {
			return frame.Schema{}, fmt.Errorf("%w: expand_schema %q field %q: %w", ErrInvalid, s.Column, f.Name, err)
		}
		out.Fields[i] = frame.Field{Name: f.Name, Kind: kind}
	}
	return out, nil
}

// SchemaFor returns the configured schema of column, or an empty schema
// when none is configured.
func (f Features) SchemaFor(column string) (frame.Schema, error) {
	for _, s := range f.ExpandSchema {
		if s.Column == column {
			return s.Schema()
		}
	}
	return frame.Schema{}, nil
}
