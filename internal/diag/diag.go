// Package diag carries recoverable data-consistency warnings. Warnings are
// reported through a Sink, separate from normal output, and never abort the
// operation that raised them.
package diag

import (
	"fmt"
	"sync"

	"github.com/jakelever/kindred-sub000/internal/metrics"
	"github.com/sirupsen/logrus"
)

// Kind classifies a warning
type Kind string

const (
	NodeNotFound      Kind = "node_not_found"     // Requested token absent from the dependency graph
	NoPath            Kind = "no_path"            // Two terminals are in different components
	UnmatchedRelation Kind = "unmatched_relation" // A known relation never formed a candidate
)

// Warning is a single diagnostic
type Warning struct {
	Kind    Kind
	Message string
	Fields  map[string]interface{}
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Kind, w.Message)
}

// Sink receives warnings
type Sink interface {
	Warn(w Warning)
}

// Emit counts the warning and forwards it to the sink. A nil sink only counts.
func Emit(sink Sink, kind Kind, fields map[string]interface{}, format string, args ...interface{}) {
	metrics.DiagnosticWarnings.WithLabelValues(string(kind)).Inc()
	if sink == nil {
		return
	}
	sink.Warn(Warning{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Fields:  fields,
	})
}

// LogSink writes warnings to a logrus logger at warn level
type LogSink struct {
	logger *logrus.Logger
}

// NewLogSink creates a sink backed by the logger
func NewLogSink(logger *logrus.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Warn implements Sink
func (s *LogSink) Warn(w Warning) {
	s.logger.WithFields(logrus.Fields(w.Fields)).WithField("kind", string(w.Kind)).Warn(w.Message)
}

// Recorder keeps warnings in memory
type Recorder struct {
	mu       sync.Mutex
	warnings []Warning
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Warn implements Sink
func (r *Recorder) Warn(w Warning) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = append(r.warnings, w)
}

// Warnings returns every recorded warning
func (r *Recorder) Warnings() []Warning {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Warning(nil), r.warnings...)
}

// Count returns the number of warnings of a kind
func (r *Recorder) Count(kind Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, w := range r.warnings {
		if w.Kind == kind {
			n++
		}
	}
	return n
}

// Discard drops every warning
var Discard Sink = discard{}

type discard struct{}

func (discard) Warn(Warning) {}
