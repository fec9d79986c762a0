package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lanelm/lanelm/dataset"
	"github.com/lanelm/lanelm/envconfig"
	"github.com/lanelm/lanelm/logutil"
	"github.com/lanelm/lanelm/model/gru"
	"github.com/lanelm/lanelm/sample"
	"github.com/lanelm/lanelm/tokenizer"
	"github.com/lanelm/lanelm/version"
)

// corpus is a text file split into chunks and encoded with a vocabulary
// fitted to it.
type corpus struct {
	chunks    []string
	tokenizer *tokenizer.Character
	seqs      [][]int32
}

func loadCorpus(path, sep string) (*corpus, error) {
	bts, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	chunks := tokenizer.Chunks(string(bts), sep)
	tok := tokenizer.Fit(chunks)
	slog.Debug("loaded corpus", "path", path, "chunks", len(chunks), "vocabulary", tok.VocabularySize())
	return &corpus{
		chunks:    chunks,
		tokenizer: tok,
		seqs:      tok.EncodeAll(chunks),
	}, nil
}

func datasetConfig() dataset.Config {
	return dataset.Config{
		SequenceLength:     envconfig.SequenceLength,
		LaneCount:          envconfig.LaneCount,
		BatchWidth:         envconfig.BatchWidth,
		ValidationFraction: envconfig.ValidationFraction,
	}
}

func samplingOptions() sample.Options {
	return sample.Options{
		Temperature: float32(envconfig.Temperature),
		TopK:        envconfig.TopK,
		TopP:        float32(envconfig.TopP),
		MinP:        float32(envconfig.MinP),
		Seed:        envconfig.SeedValue(),
	}
}

func newModel(vocab int) (*gru.Model, error) {
	cfg := gru.Config{
		VocabularySize: vocab,
		EmbeddingDim:   envconfig.EmbeddingDim,
		HiddenSize:     envconfig.HiddenSize,
	}
	if seed := envconfig.SeedValue(); seed != nil {
		cfg.Seed = *seed
	}
	return gru.New(cfg)
}

func NewCLI() *cobra.Command {
	cobra.EnableCommandSorting = false

	rootCmd := &cobra.Command{
		Use:   "lanelm",
		Short: "Stateful character language model toolkit",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Disable usage printing on errors
			cmd.SilenceUsage = true
			slog.SetDefault(logutil.NewLogger(os.Stderr, logutil.Level(envconfig.Debug)))
		},
		Run: func(cmd *cobra.Command, args []string) {
			if version, _ := cmd.Flags().GetBool("version"); version {
				fmt.Fprintf(cmd.OutOrStdout(), "lanelm version is %s\n", versionString())
				return
			}

			cmd.Print(cmd.UsageString())
		},
	}

	rootCmd.Flags().BoolP("version", "v", false, "Show version information")

	rootCmd.AddCommand(
		NewPrepareCmd(),
		NewGenerateCmd(),
		NewServeCmd(),
		NewEnvCmd(),
	)

	return rootCmd
}

func versionString() string {
	return version.Version
}
