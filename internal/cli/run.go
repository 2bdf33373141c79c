package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jakelever/kindred-sub000/internal/corpusio"
	"github.com/jakelever/kindred-sub000/internal/metrics"
	"github.com/jakelever/kindred-sub000/internal/pipeline"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	trainPath   string
	testPath    string
	outPath     string
	showMetrics bool
	runTimeout  time.Duration
	strategy    string
	estimator   string
	threshold   float64
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Train on one corpus, predict on another and evaluate",
	Long: `Run trains a relation classifier on the training corpus, predicts relations
on a relation-free copy of the test corpus and scores the predictions against
the test corpus relations.

Corpora without sentences are parsed first.

Example:
  kindred run --train train.json --test test.json
  kindred run --train train.json --test test.json --out predicted.json --metrics
  kindred run --train train.json --test test.json --estimator logistic --threshold 0.6`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&trainPath, "train", "", "training corpus (JSON)")
	runCmd.Flags().StringVar(&testPath, "test", "", "test corpus (JSON)")
	runCmd.Flags().StringVar(&outPath, "out", "", "write the predicted corpus to this path (optional)")
	runCmd.Flags().BoolVar(&showMetrics, "metrics", false, "print prediction metrics after the run")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 10*time.Minute, "overall run timeout")

	// Classifier overrides, applied only when set
	runCmd.Flags().StringVar(&strategy, "strategy", "", "classification strategy (multiclass, onevsrest)")
	runCmd.Flags().StringVar(&estimator, "estimator", "", "estimator (logistic, svm)")
	runCmd.Flags().Float64Var(&threshold, "threshold", 0, "probability threshold in (0, 1)")

	_ = runCmd.MarkFlagRequired("train")
	_ = runCmd.MarkFlagRequired("test")
}

func runRun(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("strategy") {
		viper.Set("classifier.strategy", strategy)
	}
	if cmd.Flags().Changed("estimator") {
		viper.Set("classifier.estimator", estimator)
	}
	if cmd.Flags().Changed("threshold") {
		viper.Set("classifier.threshold", threshold)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	if verbose {
		fmt.Fprintf(os.Stderr, "Training: %s\n", trainPath)
		fmt.Fprintf(os.Stderr, "Testing: %s\n", testPath)
		fmt.Fprintf(os.Stderr, "Classifier: %s/%s\n", cfg.Classifier.Strategy, cfg.Classifier.Estimator)
		fmt.Fprintln(os.Stderr)
	}

	p := pipeline.NewPipeline(cfg, logger)
	result, err := p.Run(ctx, trainPath, testPath)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	keys := make([]string, len(result.Relations))
	for i, k := range result.Relations {
		keys[i] = k.String()
	}
	fmt.Printf("✓ Relation types: %s\n", strings.Join(keys, ", "))
	fmt.Printf("✓ Predicted %d relations\n", result.Added)
	fmt.Printf("✓ %s\n", result.Evaluation)

	if outPath != "" {
		if err := corpusio.WriteFile(outPath, result.Predicted); err != nil {
			return fmt.Errorf("write predictions: %w", err)
		}
		fmt.Printf("✓ Wrote predicted corpus: %s\n", outPath)
	}

	if showMetrics {
		fmt.Println()
		if err := metrics.WriteText(os.Stdout); err != nil {
			return err
		}
	}

	return nil
}
