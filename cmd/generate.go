package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/lanelm/lanelm/api"
	"github.com/lanelm/lanelm/decode"
	"github.com/lanelm/lanelm/envconfig"
	"github.com/lanelm/lanelm/sample"
	"github.com/lanelm/lanelm/types/errtypes"
)

func NewGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [FILE]",
		Short: "Generate text from a seed",
		Long: `Generate text from a seed with a reference model built over FILE's vocabulary, or with a running server when --remote is set.

Without --seed the seed is read from standard input when it is not a terminal.`,
		Args: cobra.MaximumNArgs(1),
		RunE: generateHandler,
	}

	cmd.Flags().String("seed", "", "Text to start generating from")
	cmd.Flags().Int("steps", 100, "Number of characters to generate")
	cmd.Flags().Bool("remote", false, "Generate with the server at LANELM_HOST")
	return cmd
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// readSeed returns the --seed flag, falling back to piped standard input.
func readSeed(cmd *cobra.Command) (string, error) {
	seed, _ := cmd.Flags().GetString("seed")
	if cmd.Flags().Changed("seed") {
		return seed, nil
	}

	in := cmd.InOrStdin()
	if isTerminal(in) {
		return seed, nil
	}

	bts, err := io.ReadAll(in)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(bts), "\r\n"), nil
}

// output writes generated text as it arrives on a terminal and all at once
// otherwise.
type output struct {
	w      io.Writer
	stream bool
	buf    strings.Builder
}

func newOutput(w io.Writer) *output {
	return &output{w: w, stream: isTerminal(w)}
}

func (o *output) Print(s string) error {
	if !o.stream {
		o.buf.WriteString(s)
		return nil
	}
	_, err := io.WriteString(o.w, s)
	return err
}

func (o *output) Close() error {
	o.buf.WriteString("\n")
	if o.stream {
		_, err := io.WriteString(o.w, "\n")
		return err
	}
	_, err := io.WriteString(o.w, o.buf.String())
	return err
}

func generateHandler(cmd *cobra.Command, args []string) error {
	seed, err := readSeed(cmd)
	if err != nil {
		return err
	}

	steps, _ := cmd.Flags().GetInt("steps")
	out := newOutput(cmd.OutOrStdout())

	if remote, _ := cmd.Flags().GetBool("remote"); remote {
		return generateRemote(cmd, out, seed, steps)
	}

	if len(args) != 1 {
		return errors.New("a corpus file is required unless --remote is set")
	}

	c, err := loadCorpus(args[0], envconfig.Separator)
	if err != nil {
		return err
	}

	tokens := c.tokenizer.Encode(seed)
	if len(tokens) == 0 {
		return fmt.Errorf("%w: no seed characters appear in %s", errtypes.ErrEmptySeed, args[0])
	}

	m, err := newModel(c.tokenizer.VocabularySize())
	if err != nil {
		return err
	}

	sampler, err := sample.New(samplingOptions())
	if err != nil {
		return err
	}

	if err := out.Print(c.tokenizer.Decode(tokens)); err != nil {
		return err
	}

	if _, err := decode.Generate(cmd.Context(), m, sampler, tokens, steps,
		decode.WithTokenCallback(func(tok int32) error {
			return out.Print(c.tokenizer.Decode([]int32{tok}))
		})); err != nil {
		return err
	}

	return out.Close()
}

func generateRemote(cmd *cobra.Command, out *output, seed string, steps int) error {
	host, err := envconfig.HostPort()
	if err != nil {
		return err
	}

	client := api.ClientFromHost(host)

	// the server drops seed characters outside its vocabulary and echoes
	// the seed it actually used
	var seeded bool
	if err := client.Generate(cmd.Context(), &api.GenerateRequest{Seed: seed, Steps: steps}, func(r api.GenerateResponse) error {
		if !seeded {
			seeded = true
			if err := out.Print(r.Seed); err != nil {
				return err
			}
		}
		if r.Done {
			return nil
		}
		return out.Print(r.Response)
	}); err != nil {
		return err
	}

	return out.Close()
}
