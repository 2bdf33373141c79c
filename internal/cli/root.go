package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jakelever/kindred-sub000/internal/diag"
	"github.com/jakelever/kindred-sub000/internal/model"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var (
	cfgFile   string
	verbose   bool
	logLevel  string
	logFormat string
	logFile   string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "kindred",
	Short: "Kindred - supervised relation extraction over annotated text",
	Long: `Kindred trains relation classifiers on corpora with annotated entities and
relations, then predicts relations between entities of unseen documents.

Candidates are every tuple of entities that co-occur in a sentence (or a
window of sentences). Each candidate is vectorized from dependency-path and
surface-text features and scored by one classifier per relation type.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of Kindred.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("kindred v0.1.0")
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.kindred/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (implies --log-level debug)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to a rotated file instead of stderr")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("log.file", rootCmd.PersistentFlags().Lookup("log-file"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if err := setDefaults(model.DefaultConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading defaults: %v\n", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(filepath.Join(home, ".kindred"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// KINDRED_CLASSIFIER_ESTIMATOR overrides classifier.estimator
	viper.SetEnvPrefix("KINDRED")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	_ = viper.BindEnv("classifier.threshold")

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// setDefaults registers every key of cfg with viper so that environment
// variables and the config file can override it
func setDefaults(cfg *model.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("unmarshal defaults: %w", err)
	}
	walkDefaults("", tree)
	return nil
}

func walkDefaults(prefix string, tree map[string]any) {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			walkDefaults(key, sub)
			continue
		}
		viper.SetDefault(key, v)
	}
}

// loadConfig decodes the merged configuration over the defaults and validates it
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: decode configuration: %v", model.ErrConfig, err)
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the command logger from the log section
func newLogger(cfg *model.Config) (*logrus.Logger, error) {
	logger, err := diag.NewLogger(cfg.Log)
	if err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{
		"strategy":  cfg.Classifier.Strategy,
		"estimator": cfg.Classifier.Estimator,
		"features":  strings.Join(cfg.Features.Names, ","),
	}).Debug("Loaded configuration")
	return logger, nil
}
