package cli

import (
	"errors"
	"testing"

	"github.com/jakelever/kindred-sub000/internal/model"
	"github.com/spf13/viper"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("HOME", t.TempDir())
}

func TestLoadConfig_Defaults(t *testing.T) {
	resetViper(t)
	initConfig()

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := model.DefaultConfig()
	if cfg.Classifier.Strategy != want.Classifier.Strategy || cfg.Classifier.Estimator != want.Classifier.Estimator {
		t.Errorf("expected default classifier %s/%s, got %s/%s",
			want.Classifier.Strategy, want.Classifier.Estimator, cfg.Classifier.Strategy, cfg.Classifier.Estimator)
	}
	if len(cfg.Features.Names) != len(want.Features.Names) {
		t.Errorf("expected %d feature families, got %v", len(want.Features.Names), cfg.Features.Names)
	}
	if cfg.Classifier.Threshold != nil {
		t.Errorf("expected no threshold, got %v", *cfg.Classifier.Threshold)
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	resetViper(t)
	t.Setenv("KINDRED_CANDIDATES_WINDOW", "2")
	t.Setenv("KINDRED_CLASSIFIER_THRESHOLD", "0.7")
	initConfig()

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Candidates.Window != 2 {
		t.Errorf("expected window 2, got %d", cfg.Candidates.Window)
	}
	if cfg.Classifier.Threshold == nil || *cfg.Classifier.Threshold != 0.7 {
		t.Errorf("expected threshold 0.7, got %v", cfg.Classifier.Threshold)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	resetViper(t)
	t.Setenv("KINDRED_CLASSIFIER_STRATEGY", "cascade")
	initConfig()

	if _, err := loadConfig(); !errors.Is(err, model.ErrConfig) {
		t.Errorf("expected configuration error, got %v", err)
	}
}
