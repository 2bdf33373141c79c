package model

import (
	"fmt"
	"strings"
)

// Estimator and strategy names accepted by the classifier configuration
const (
	StrategyMultiClass = "multiclass"
	StrategyOneVsRest  = "onevsrest"

	EstimatorLogistic = "logistic"
	EstimatorSVM      = "svm"
)

// Config is the complete kindred configuration
type Config struct {
	Candidates CandidateConfig  `yaml:"candidates" mapstructure:"candidates"`
	Features   FeatureConfig    `yaml:"features" mapstructure:"features"`
	Classifier ClassifierConfig `yaml:"classifier" mapstructure:"classifier"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// CandidateConfig controls candidate enumeration
type CandidateConfig struct {
	EntityCount         int        `yaml:"entity_count" mapstructure:"entity_count"`                   // Arity of candidate tuples
	Ordered             bool       `yaml:"ordered" mapstructure:"ordered"`                             // Permutations instead of combinations
	AcceptedEntityTypes [][]string `yaml:"accepted_entity_types" mapstructure:"accepted_entity_types"` // Empty accepts every type tuple
	Window              int        `yaml:"window" mapstructure:"window"`                               // Sentences after the anchor that may contribute entities
}

// FeatureConfig selects feature families
type FeatureConfig struct {
	Names []string `yaml:"names" mapstructure:"names"`
	TFIDF bool     `yaml:"tfidf" mapstructure:"tfidf"`
}

// ClassifierConfig selects and tunes the estimators
type ClassifierConfig struct {
	Strategy     string   `yaml:"strategy" mapstructure:"strategy"`   // multiclass or onevsrest
	Estimator    string   `yaml:"estimator" mapstructure:"estimator"` // logistic or svm
	Threshold    *float64 `yaml:"threshold,omitempty" mapstructure:"threshold"`
	Seed         int64    `yaml:"seed" mapstructure:"seed"`
	Epochs       int      `yaml:"epochs" mapstructure:"epochs"`
	LearningRate float64  `yaml:"learning_rate" mapstructure:"learning_rate"`
	L2           float64  `yaml:"l2" mapstructure:"l2"`
	Workers      int      `yaml:"workers" mapstructure:"workers"` // Concurrent one-vs-rest fits
}

// LogConfig configures the logrus logger
type LogConfig struct {
	Level      string `yaml:"level" mapstructure:"level"`
	Format     string `yaml:"format" mapstructure:"format"` // text or json
	File       string `yaml:"file,omitempty" mapstructure:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" mapstructure:"max_age_days"`
}

// DefaultFeatures is the full feature catalogue in declaration order
var DefaultFeatures = []string{
	"entityTypes",
	"unigramsBetweenEntities",
	"bigrams",
	"dependencyPathEdges",
	"dependencyPathEdgesNearEntities",
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Candidates: CandidateConfig{
			EntityCount: 2,
			Ordered:     true,
			Window:      0,
		},
		Features: FeatureConfig{
			Names: append([]string(nil), DefaultFeatures...),
			TFIDF: true,
		},
		Classifier: ClassifierConfig{
			Strategy:     StrategyOneVsRest,
			Estimator:    EstimatorLogistic,
			Seed:         1,
			Epochs:       50,
			LearningRate: 0.5,
			L2:           1e-4,
			Workers:      4,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Validate reports the first configuration problem found
func (c *Config) Validate() error {
	if c.Candidates.EntityCount < 2 {
		return fmt.Errorf("%w: entity_count must be at least 2, got %d", ErrConfig, c.Candidates.EntityCount)
	}
	if c.Candidates.Window < 0 {
		return fmt.Errorf("%w: window must not be negative, got %d", ErrConfig, c.Candidates.Window)
	}
	for _, tuple := range c.Candidates.AcceptedEntityTypes {
		if len(tuple) != c.Candidates.EntityCount {
			return fmt.Errorf("%w: accepted entity type tuple %v does not match entity_count %d", ErrConfig, tuple, c.Candidates.EntityCount)
		}
	}

	switch c.Classifier.Strategy {
	case StrategyMultiClass, StrategyOneVsRest:
	default:
		return fmt.Errorf("%w: unknown strategy %q (supported: %s, %s)", ErrConfig, c.Classifier.Strategy, StrategyMultiClass, StrategyOneVsRest)
	}

	switch strings.ToLower(c.Classifier.Estimator) {
	case EstimatorLogistic, EstimatorSVM:
	default:
		return fmt.Errorf("%w: unknown estimator %q (supported: %s, %s)", ErrConfig, c.Classifier.Estimator, EstimatorLogistic, EstimatorSVM)
	}

	if t := c.Classifier.Threshold; t != nil {
		if *t <= 0 || *t >= 1 {
			return fmt.Errorf("%w: threshold must be in (0, 1), got %v", ErrConfig, *t)
		}
		if strings.ToLower(c.Classifier.Estimator) != EstimatorLogistic {
			return fmt.Errorf("%w: threshold requires an estimator with probabilities (%s)", ErrConfig, EstimatorLogistic)
		}
	}

	if c.Classifier.Epochs <= 0 {
		return fmt.Errorf("%w: epochs must be positive, got %d", ErrConfig, c.Classifier.Epochs)
	}
	if c.Classifier.LearningRate <= 0 {
		return fmt.Errorf("%w: learning_rate must be positive, got %v", ErrConfig, c.Classifier.LearningRate)
	}
	if c.Classifier.L2 < 0 {
		return fmt.Errorf("%w: l2 must not be negative, got %v", ErrConfig, c.Classifier.L2)
	}

	return nil
}
