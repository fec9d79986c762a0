package cmd

import (
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/lanelm/lanelm/dataset"
	"github.com/lanelm/lanelm/envconfig"
)

func NewPrepareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prepare FILE",
		Short: "Frame, interleave and batch a text corpus",
		Args:  cobra.ExactArgs(1),
		RunE:  prepareHandler,
	}

	cmd.Flags().String("separator", "", "Text separating corpus chunks (default LANELM_SEPARATOR)")
	return cmd
}

func prepareHandler(cmd *cobra.Command, args []string) error {
	sep := envconfig.Separator
	if cmd.Flags().Changed("separator") {
		sep, _ = cmd.Flags().GetString("separator")
	}

	c, err := loadCorpus(args[0], sep)
	if err != nil {
		return err
	}

	p, err := dataset.Prepare(cmd.Context(), datasetConfig(), c.seqs)
	if err != nil {
		return err
	}

	data := [][]string{
		{"sequences", strconv.Itoa(len(c.seqs))},
		{"vocabulary", strconv.Itoa(c.tokenizer.VocabularySize())},
		{"sequence length", strconv.Itoa(p.Config.SequenceLength)},
		{"lanes", strconv.Itoa(p.Config.LaneCount)},
		{"batch width", strconv.Itoa(p.Config.Width())},
		{"examples", strconv.Itoa(p.Examples)},
		{"dropped", strconv.Itoa(p.Dropped)},
		{"train batches", strconv.Itoa(p.Train.Len())},
		{"validation batches", strconv.Itoa(p.Validation.Len())},
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"DATASET", "VALUE"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()

	return nil
}
