package cmd

import (
	"log/slog"
	"net"

	"github.com/spf13/cobra"

	"github.com/lanelm/lanelm/envconfig"
	"github.com/lanelm/lanelm/sample"
	"github.com/lanelm/lanelm/server"
)

func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve FILE",
		Aliases: []string{"start"},
		Short:   "Start lanelm",
		Args:    cobra.ExactArgs(1),
		RunE:    RunServer,
	}

	cmd.SetUsageTemplate(cmd.UsageTemplate() + `
Environment Variables:

    LANELM_HOST         The host:port to bind to (default "127.0.0.1:11500")
    LANELM_ORIGINS      A comma separated list of allowed origins
    LANELM_SEPARATOR    Text separating corpus chunks (default ".")
    LANELM_SEED         Random seed for sampling and weights
`)
	return cmd
}

func RunServer(cmd *cobra.Command, args []string) error {
	c, err := loadCorpus(args[0], envconfig.Separator)
	if err != nil {
		return err
	}

	m, err := newModel(c.tokenizer.VocabularySize())
	if err != nil {
		return err
	}

	// reject bad sampling settings before binding
	opts := samplingOptions()
	if _, err := sample.New(opts); err != nil {
		return err
	}

	host, err := envconfig.HostPort()
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", host)
	if err != nil {
		return err
	}

	slog.Info("serving corpus", "path", args[0], "vocabulary", c.tokenizer.VocabularySize())
	return server.Serve(ln, server.New(m, c.tokenizer, server.Config{
		Dataset:   datasetConfig(),
		Sampling:  opts,
		Separator: envconfig.Separator,
		Origins:   envconfig.AllowOrigins,
	}))
}
