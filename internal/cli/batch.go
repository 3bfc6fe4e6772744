package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raaihank/anonimizador/internal/etl"
	"github.com/raaihank/anonimizador/internal/privacy"
)

type batchOptions struct {
	input     string
	output    string
	batchSize int
}

func (a *app) newBatchCmd() *cobra.Command {
	var opts batchOptions

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Anonymize every text of a CSV, Parquet or JSON dataset",
		Example: "  anonimizar batch --input textos.csv --output anonimizados.jsonl\n" +
			"  anonimizar batch --input textos.parquet --output anonimizados.parquet --batch-size 500",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBatch(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.input, "input", "", "Input dataset (.csv, .parquet, .json, .jsonl)")
	cmd.Flags().StringVar(&opts.output, "output", "", "Output file (.jsonl or .parquet)")
	cmd.Flags().IntVar(&opts.batchSize, "batch-size", 0, "Records per batch (default: etl.batch_size)")
	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("output")

	return cmd
}

func (a *app) runBatch(cmd *cobra.Command, opts batchOptions) error {
	cfg, log, err := a.setup()
	if err != nil {
		return a.fail(ExitRuntimeError, err)
	}
	defer log.Sync()

	etlConfig := cfg.ETL
	if opts.batchSize > 0 {
		etlConfig.BatchSize = opts.batchSize
	}

	pipeline := etl.NewPipeline(privacy.NewRedactor(), &etlConfig, log.Logger)
	result, err := pipeline.ProcessFile(cmd.Context(), opts.input, opts.output)
	if errors.Is(err, etl.ErrUnsupportedFormat) {
		return a.fail(ExitUsageError, err)
	}
	if err != nil {
		return a.fail(ExitRuntimeError, err)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return a.fail(ExitRuntimeError, err)
	}
	fmt.Fprintln(a.out, string(data))
	return nil
}
