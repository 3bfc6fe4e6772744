package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raaihank/anonimizador/internal/export"
	"github.com/raaihank/anonimizador/internal/workflow"
)

type textOptions struct {
	outDir   string
	toStdout bool
	lang     string
	filename string
}

func (a *app) newTextCmd() *cobra.Command {
	var opts textOptions

	cmd := &cobra.Command{
		Use:   "text [TEXT]",
		Short: "Anonymize one text and save it as a JSON document",
		Long: "Anonymize TEXT, or standard input when TEXT is omitted, and save\n" +
			"{original, anonimizado, fecha} to datos.json in the output directory.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runText(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.outDir, "out", "", "Output directory (default: workflow.output_dir)")
	cmd.Flags().BoolVar(&opts.toStdout, "stdout", false, "Write the document to standard output instead of a file")
	cmd.Flags().StringVar(&opts.lang, "lang", "", "Message language (es, en)")
	cmd.Flags().StringVar(&opts.filename, "filename", "", "Document file name (default: workflow.filename)")
	cmd.MarkFlagsMutuallyExclusive("out", "stdout")

	return cmd
}

func (a *app) runText(cmd *cobra.Command, args []string, opts textOptions) error {
	cfg, log, err := a.setup()
	if err != nil {
		return a.fail(ExitRuntimeError, err)
	}
	defer log.Sync()

	lang := cfg.Workflow.Language
	if opts.lang != "" {
		lang = opts.lang
	}
	messages, err := workflow.MessagesFor(lang)
	if err != nil {
		return a.fail(ExitUsageError, err)
	}

	filename := cfg.Workflow.Filename
	if opts.filename != "" {
		filename = opts.filename
	}

	var text string
	if len(args) == 1 {
		text = args[0]
	} else {
		text, err = readInput(a.in)
		if err != nil {
			return a.fail(ExitRuntimeError, fmt.Errorf("failed to read standard input: %w", err))
		}
	}

	// With --stdout the document owns standard output, so messages move to stderr
	var exporter workflow.Exporter
	display := &workflow.WriterDisplay{W: a.out}
	if opts.toStdout {
		exporter = &export.WriterExporter{W: a.out}
		display = &workflow.WriterDisplay{W: a.errOut}
	} else {
		dir := cfg.Workflow.OutputDir
		if opts.outDir != "" {
			dir = opts.outDir
		}
		exporter = &export.FileExporter{Dir: dir}
	}

	processor := workflow.NewProcessor(display, exporter, log,
		workflow.WithMessages(messages),
		workflow.WithFilename(filename),
	)

	outcome, err := processor.Process(cmd.Context(), text)
	if err != nil {
		return a.fail(ExitRuntimeError, err)
	}
	if outcome.Skipped {
		a.exitCode = ExitBlankInput
	}
	return nil
}

// readInput reads all of r and drops one trailing line ending, the one a
// shell pipe adds
func readInput(r io.Reader) (string, error) {
	if r == nil {
		return "", nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	text := string(data)
	if strings.HasSuffix(text, "\r\n") {
		return strings.TrimSuffix(text, "\r\n"), nil
	}
	return strings.TrimSuffix(text, "\n"), nil
}
