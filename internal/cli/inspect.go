package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/jakelever/kindred-sub000/internal/candidate"
	"github.com/jakelever/kindred-sub000/internal/model"
	"github.com/jakelever/kindred-sub000/internal/pipeline"
	"github.com/spf13/cobra"
)

var maxRows int

// candidatesCmd represents the candidates command
var candidatesCmd = &cobra.Command{
	Use:   "candidates <corpus>",
	Short: "List the labeled candidate relations of a corpus",
	Long: `Candidates enumerates every entity tuple that the configured candidate
settings would classify, together with the relation classes it is labeled
with in the corpus.

Example:
  kindred candidates train.json
  kindred candidates train.json --max 20`,
	Args: cobra.ExactArgs(1),
	RunE: runCandidates,
}

// featuresCmd represents the features command
var featuresCmd = &cobra.Command{
	Use:   "features <corpus>",
	Short: "Print the non-zero feature values of each candidate",
	Long: `Features fits the configured feature families on the candidates of a corpus
and prints every non-zero column per candidate.

Example:
  kindred features train.json --max 5`,
	Args: cobra.ExactArgs(1),
	RunE: runFeatures,
}

func init() {
	rootCmd.AddCommand(candidatesCmd)
	rootCmd.AddCommand(featuresCmd)

	candidatesCmd.Flags().IntVar(&maxRows, "max", 0, "maximum candidates to print (0 prints all)")
	featuresCmd.Flags().IntVar(&maxRows, "max", 0, "maximum candidates to print (0 prints all)")
}

func newInspectPipeline() (*pipeline.Pipeline, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	return pipeline.NewPipeline(cfg, logger), nil
}

func runCandidates(cmd *cobra.Command, args []string) error {
	p, err := newInspectPipeline()
	if err != nil {
		return err
	}
	cs, err := p.Candidates(args[0])
	if err != nil {
		return err
	}

	keys := cs.RelationKeys()
	for i, c := range cs.Candidates {
		if maxRows > 0 && i >= maxRows {
			fmt.Fprintf(os.Stderr, "... %d more\n", cs.Len()-i)
			break
		}
		fmt.Printf("%d\t%s\t%s\n", i, describe(c), labelNames(c.Labels, keys))
	}
	fmt.Fprintf(os.Stderr, "\n✓ %d candidates, %d relation types\n", cs.Len(), len(keys))
	return nil
}

func runFeatures(cmd *cobra.Command, args []string) error {
	p, err := newInspectPipeline()
	if err != nil {
		return err
	}
	names, cs, rows, err := p.Features(args[0])
	if err != nil {
		return err
	}

	for i, row := range rows {
		if maxRows > 0 && i >= maxRows {
			fmt.Fprintf(os.Stderr, "... %d more\n", len(rows)-i)
			break
		}
		fmt.Printf("%d\t%s\n", i, describe(cs.Candidates[i]))
		for _, f := range row {
			fmt.Printf("\t%s\t%.4f\n", f.Name, f.Value)
		}
	}
	fmt.Fprintf(os.Stderr, "\n✓ %d candidates, %d feature columns\n", len(rows), len(names))
	return nil
}

// describe renders a candidate as type:text argument pairs
func describe(c *candidate.Candidate) string {
	args := make([]string, len(c.Entities))
	for i, e := range c.Entities {
		args[i] = e.Type + ":" + e.Text
	}
	return strings.Join(args, " | ")
}

func labelNames(labels []int, keys []model.RelationKey) string {
	if len(labels) == 0 {
		return "-"
	}
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if l >= 1 && l <= len(keys) {
			out = append(out, keys[l-1].String())
		}
	}
	return strings.Join(out, ",")
}
