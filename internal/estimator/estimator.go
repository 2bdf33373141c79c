// Package estimator provides the linear classifiers fitted on candidate
// design matrices.
package estimator

import (
	"fmt"
	"strings"

	"github.com/jakelever/kindred-sub000/internal/model"
	"github.com/jakelever/kindred-sub000/internal/sparse"
)

// Estimator is a classifier over class IDs 0..NumClasses()-1
type Estimator interface {
	Fit(X *sparse.Matrix, y []int) error
	Predict(X *sparse.Matrix) ([]int, error)
	NumClasses() int
}

// ProbabilityEstimator is an Estimator that also reports class probabilities.
// Each row of PredictProba sums to 1.
type ProbabilityEstimator interface {
	Estimator
	PredictProba(X *sparse.Matrix) ([][]float64, error)
}

// SupportsProbability reports whether e can produce probabilities
func SupportsProbability(e Estimator) (ProbabilityEstimator, bool) {
	p, ok := e.(ProbabilityEstimator)
	return p, ok
}

// Params are the training settings shared by every estimator
type Params struct {
	Epochs       int
	LearningRate float64
	L2           float64
	Seed         int64
}

// ParamsFrom extracts estimator settings from the classifier config
func ParamsFrom(cfg model.ClassifierConfig) Params {
	return Params{
		Epochs:       cfg.Epochs,
		LearningRate: cfg.LearningRate,
		L2:           cfg.L2,
		Seed:         cfg.Seed,
	}
}

// Factory creates an unfitted estimator
type Factory func(p Params) (Estimator, error)

// New creates an estimator of the given kind
func New(kind string, p Params) (Estimator, error) {
	if p.Epochs <= 0 {
		return nil, fmt.Errorf("%w: epochs must be positive, got %d", model.ErrConfig, p.Epochs)
	}
	if p.LearningRate <= 0 {
		return nil, fmt.Errorf("%w: learning rate must be positive, got %v", model.ErrConfig, p.LearningRate)
	}
	if p.L2 < 0 {
		return nil, fmt.Errorf("%w: l2 must not be negative, got %v", model.ErrConfig, p.L2)
	}

	switch strings.ToLower(kind) {
	case model.EstimatorLogistic:
		return NewLogisticRegression(p), nil
	case model.EstimatorSVM:
		return NewLinearSVM(p), nil
	default:
		return nil, fmt.Errorf("%w: unknown estimator %q, valid kinds are %s, %s",
			model.ErrConfig, kind, model.EstimatorLogistic, model.EstimatorSVM)
	}
}

// FactoryFor returns a Factory creating estimators of kind
func FactoryFor(kind string) Factory {
	return func(p Params) (Estimator, error) {
		return New(kind, p)
	}
}
