package metrics

import (
	"fmt"
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

var (
	CandidatesGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kindred_candidates_generated_total",
		Help: "Number of candidate relations generated",
	})

	RelationsPredicted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kindred_relations_predicted_total",
			Help: "Number of relations added to documents by prediction",
		},
		[]string{"relation"},
	)

	PredictionsFiltered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kindred_predictions_filtered_total",
			Help: "Number of positive predictions that were not added",
		},
		[]string{"reason"},
	)

	DiagnosticWarnings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kindred_diagnostic_warnings_total",
			Help: "Number of recoverable data-consistency warnings",
		},
		[]string{"kind"},
	)
)

// Reasons a positive prediction is not added to a document
const (
	ReasonInvalidEntityTypes = "invalid_entity_types"
	ReasonDuplicate          = "duplicate"
)

// WriteText writes the kindred metric families in the text exposition format
func WriteText(w io.Writer) error {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "kindred_") {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metric %s: %w", mf.GetName(), err)
		}
	}

	return nil
}
