package diag

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jakelever/kindred-sub000/internal/model"
	"github.com/sirupsen/logrus"
)

func TestRecorder_Count(t *testing.T) {
	rec := NewRecorder()
	Emit(rec, NoPath, nil, "no path between %d and %d", 0, 3)
	Emit(rec, NoPath, nil, "no path between %d and %d", 1, 3)
	Emit(rec, NodeNotFound, map[string]interface{}{"node": 7}, "node %d not found", 7)

	if rec.Count(NoPath) != 2 {
		t.Errorf("expected 2 no_path warnings, got %d", rec.Count(NoPath))
	}
	if rec.Count(NodeNotFound) != 1 {
		t.Errorf("expected 1 node_not_found warning, got %d", rec.Count(NodeNotFound))
	}
	if got := rec.Warnings()[0].Message; got != "no path between 0 and 3" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestEmit_NilSink(t *testing.T) {
	// Must not panic
	Emit(nil, UnmatchedRelation, nil, "dropped")
}

func TestLogSink_Warn(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	sink := NewLogSink(logger)
	Emit(sink, UnmatchedRelation, map[string]interface{}{"relation": "treats"}, "relation never matched")

	out := buf.String()
	if !strings.Contains(out, `"kind":"unmatched_relation"`) {
		t.Errorf("expected kind field in log output, got %s", out)
	}
	if !strings.Contains(out, `"level":"warning"`) {
		t.Errorf("expected warning level in log output, got %s", out)
	}
}

func TestNewLogger(t *testing.T) {
	if _, err := NewLogger(model.LogConfig{Level: "loud"}); !errors.Is(err, model.ErrConfig) {
		t.Errorf("expected configuration error for bad level, got %v", err)
	}
	if _, err := NewLogger(model.LogConfig{Format: "xml"}); !errors.Is(err, model.ErrConfig) {
		t.Errorf("expected configuration error for bad format, got %v", err)
	}

	file := filepath.Join(t.TempDir(), "kindred.log")
	logger, err := NewLogger(model.LogConfig{Level: "debug", Format: "json", File: file, MaxSizeMB: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if logger.GetLevel() != logrus.DebugLevel {
		t.Errorf("expected debug level, got %v", logger.GetLevel())
	}
}
