package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/snappy-loop/shadowtwin/internal/config"
	"github.com/snappy-loop/shadowtwin/internal/llm"
	"github.com/snappy-loop/shadowtwin/internal/models"
	"github.com/snappy-loop/shadowtwin/internal/pipeline"
	"github.com/snappy-loop/shadowtwin/internal/speech"
	"github.com/snappy-loop/shadowtwin/internal/storage"
)

// twinRunner is the pipeline as the CLI uses it.
type twinRunner interface {
	RunWithProgress(ctx context.Context, in models.SimulationInput, progress pipeline.ProgressFunc) *models.PipelineResult
	GenerateAvatarVideo(ctx context.Context, in models.SimulationInput, image []byte) (string, error)
	Content() llm.Generator
	Speech() pipeline.SpeechSynthesizer
	Voices() speech.VoiceSet
}

// runner is built from the environment on first use; tests replace it.
var runner twinRunner

var (
	logLevel  string
	inputPath string
	input     models.SimulationInput
)

var rootCmd = &cobra.Command{
	Use:   "twin",
	Short: "Meet the version of you who took the other road",
	Long: `twin runs alternate-life simulations against the configured vendors.
Credentials and endpoints are read from the same environment variables as the API.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := zerolog.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level %q", logLevel)
		}
		zerolog.SetGlobalLevel(level)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
}

// addInputFlags registers the simulation input flags on cmd.
func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "JSON file with the simulation input")
	cmd.Flags().StringVar(&input.SubjectName, "name", "", "subject name")
	cmd.Flags().StringVar(&input.CurrentLifeSummary, "life", "", "summary of the current life")
	cmd.Flags().StringVar(&input.PastDecisions, "decisions", "", "decisions taken")
	cmd.Flags().StringVar(&input.UnpursuedDreams, "dreams", "", "dreams not pursued")
}

// loadInput merges the input file, when given, under the flag values.
func loadInput() (models.SimulationInput, error) {
	in := input
	if inputPath != "" {
		data, err := os.ReadFile(inputPath)
		if err != nil {
			return in, fmt.Errorf("read input: %w", err)
		}
		var fromFile models.SimulationInput
		if err := json.Unmarshal(data, &fromFile); err != nil {
			return in, fmt.Errorf("parse input: %w", err)
		}
		in = mergeInput(fromFile, input)
	}
	if in.SubjectName == "" && in.CurrentLifeSummary == "" && in.PastDecisions == "" && in.UnpursuedDreams == "" {
		return in, errors.New("no input: pass --input or at least one of --name, --life, --decisions, --dreams")
	}
	return in, nil
}

// mergeInput overrides base with the non-empty fields of over.
func mergeInput(base, over models.SimulationInput) models.SimulationInput {
	if over.SubjectName != "" {
		base.SubjectName = over.SubjectName
	}
	if over.CurrentLifeSummary != "" {
		base.CurrentLifeSummary = over.CurrentLifeSummary
	}
	if over.PastDecisions != "" {
		base.PastDecisions = over.PastDecisions
	}
	if over.UnpursuedDreams != "" {
		base.UnpursuedDreams = over.UnpursuedDreams
	}
	return base
}

func getRunner(ctx context.Context) (twinRunner, error) {
	if runner != nil {
		return runner, nil
	}
	cfg := config.Load()
	opts := []pipeline.Option{
		pipeline.WithFactory(pipeline.NewVendorFactory(cfg)),
		pipeline.WithVoices(pipeline.VoicesFromConfig(cfg)),
		pipeline.WithPolling(cfg.AvatarPollInterval, cfg.AvatarPollTimeout),
	}
	if cfg.S3AccessKey != "" {
		store, err := storage.NewClient(ctx, cfg.S3Endpoint, cfg.S3Region, cfg.S3Bucket,
			cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3PublicURL)
		if err != nil {
			return nil, fmt.Errorf("init storage: %w", err)
		}
		opts = append(opts, pipeline.WithUploader(store))
	}
	p := pipeline.New(opts...)
	if err := p.Configure(ctx, pipeline.CredentialsFromConfig(cfg)); err != nil {
		return nil, err
	}
	runner = p
	return runner, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
