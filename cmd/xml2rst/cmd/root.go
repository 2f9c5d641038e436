package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dgallion1/xml2rst/internal/adornment"
	"github.com/dgallion1/xml2rst/internal/convert"
	"github.com/dgallion1/xml2rst/internal/parser"
)

const progName = "xml2rst"

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// usageError marks command line mistakes, which exit with exitUsage.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

type options struct {
	adornment string
	fold      int
	verbose   bool
	from      string
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   progName + " [flags] <xml> [<rst>]",
		Short: "Convert docutils XML to reStructuredText",
		Long: `xml2rst converts a docutils XML document back into reStructuredText.

The input may be "-" to read standard input. Without an output path the
result is written to standard output. Other source formats (Markdown, HTML,
DOCX, PDF, CSV, plain text) are converted through the same renderer; they
are detected from the file extension or chosen with --from.

Examples:
  xml2rst doc.xml doc.rst
  xml2rst -f 72 -a 'o=u-u~' doc.xml
  cat doc.xml | xml2rst - > doc.rst
  xml2rst --from md README.md README.rst`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) < 1 || len(args) > 2 {
				return usagef("expected an input and an optional output path, got %d arguments", len(args))
			}
			return nil
		},
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args, opts, stdin, stdout, stderr)
		},
	}
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	f := cmd.Flags()
	f.StringVarP(&opts.adornment, "adornment", "a", envOr("XML2RST_ADORNMENT", adornment.DefaultSpec),
		"adornment specification: pairs of placement (o|u) and punctuation character")
	f.IntVarP(&opts.fold, "fold", "f", 0, "fold paragraphs at this width (default: no folding, or $XML2RST_FOLD)")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "report progress on standard error")
	f.StringVar(&opts.from, "from", "", "source format: "+strings.Join(parser.Formats, ", ")+" (default: from extension, else xml)")

	return cmd
}

func run(cmd *cobra.Command, args []string, opts options, stdin io.Reader, stdout, stderr io.Writer) error {
	spec, err := adornment.Parse(opts.adornment)
	if err != nil {
		return &usageError{err: err}
	}

	fold := opts.fold
	if cmd.Flags().Changed("fold") {
		if fold < 1 {
			return usagef("fold width must be at least 1, got %d", fold)
		}
	} else if v := os.Getenv("XML2RST_FOLD"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return usagef("XML2RST_FOLD must be a positive integer, got %q", v)
		}
		fold = n
	}

	if opts.from != "" {
		if _, err := parser.ForFormat(opts.from); err != nil {
			return &usageError{err: err}
		}
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	in, out := args[0], convert.Stdio
	if len(args) == 2 {
		out = args[1]
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Debug("converting", "input", in, "output", out, "adornment", spec.String(), "fold", fold)
	err = convert.File(ctx, in, out, convert.Options{
		Adornment: spec,
		Fold:      fold,
		Format:    opts.from,
		Logger:    log,
		Stdin:     stdin,
		Stdout:    stdout,
	})
	if err != nil {
		return err
	}
	log.Debug("done", "output", out)
	return nil
}

// Run executes the command line and returns the process exit code.
func Run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdin, stdout, stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	if err == nil {
		return exitOK
	}

	fmt.Fprintf(stderr, "%s: %s\n", progName, err)
	var usage *usageError
	if errors.As(err, &usage) {
		fmt.Fprintf(stderr, "Run '%s --help' for usage.\n", progName)
		return exitUsage
	}
	return exitFailure
}

// Execute runs the root command against the process arguments and exits.
func Execute() {
	os.Exit(Run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
