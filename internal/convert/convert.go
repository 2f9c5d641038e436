// Package convert runs a whole conversion: read a source document, build
// its tree, render reStructuredText and write the result.
package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dgallion1/xml2rst/internal/adornment"
	"github.com/dgallion1/xml2rst/internal/doctree"
	"github.com/dgallion1/xml2rst/internal/parser"
	"github.com/dgallion1/xml2rst/internal/rst"
)

// Stdio names standard input or output in place of a path.
const Stdio = "-"

// ErrIO matches any failure to read input or write output.
var ErrIO = errors.New("i/o failure")

// IOError reports a failed read or write.
type IOError struct {
	Op   string // "read", "stage", "write"
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool {
	return target == ErrIO
}

// Options control one conversion.
type Options struct {
	Adornment adornment.Spec
	Fold      int
	// Format selects the source parser ("xml", "md", ...). Empty means
	// detect from the input extension, defaulting to docutils XML.
	Format string
	// DisablePdftotext stops the PDF front end from shelling out to
	// pdftotext when its own extraction fails.
	DisablePdftotext bool
	Logger           *slog.Logger
	// Stdin and Stdout replace the process streams when set.
	Stdin  io.Reader
	Stdout io.Writer
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.Logger
}

// File converts the document at in and writes reStructuredText to out.
// Either may be Stdio. Standard input is staged in a temporary file that is
// removed on every path. File output is written to a temporary file beside
// the target and renamed into place, so a failed run leaves no partial
// output.
func File(ctx context.Context, in, out string, opts Options) error {
	log := opts.logger()
	if err := ctx.Err(); err != nil {
		return err
	}

	src, cleanup, err := open(in, opts)
	if err != nil {
		return err
	}
	defer cleanup()

	p, err := pick(in, opts)
	if err != nil {
		return err
	}
	log.Debug("parsing input", "input", in, "parser", fmt.Sprintf("%T", p))

	name := filepath.Base(in)
	if in == Stdio {
		name = "<stdin>"
	}
	root, err := p.Parse(src, name)
	if err != nil {
		return fmt.Errorf("parse %s: %w", in, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	buf, err := Render(root, opts)
	if err != nil {
		return err
	}
	log.Debug("rendered", "lines", buf.Len())

	return write(out, buf, opts)
}

// Render renders a parsed tree with the conversion options.
func Render(root *doctree.Node, opts Options) (*rst.Buffer, error) {
	return rst.Render(root, rst.Options{
		Adornment: opts.Adornment,
		Fold:      opts.Fold,
		Logger:    opts.Logger,
	})
}

// Reader parses r with the parser for format and renders the result. It is
// the in-memory form of File used by the HTTP service.
func Reader(ctx context.Context, r io.Reader, filename string, opts Options) ([]byte, error) {
	p, err := pick(filename, opts)
	if err != nil {
		return nil, err
	}
	root, err := p.Parse(r, filename)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	buf, err := Render(root, opts)
	if err != nil {
		return nil, err
	}
	return []byte(buf.String()), nil
}

func pick(name string, opts Options) (parser.Parser, error) {
	var (
		p   parser.Parser
		err error
	)
	switch {
	case opts.Format != "":
		p, err = parser.ForFormat(opts.Format)
	case name != Stdio && parser.IsSupportedExtension(name):
		p, err = parser.ForFile(name)
	default:
		p = &parser.XMLParser{}
	}
	if err != nil {
		return nil, err
	}
	if pdf, ok := p.(*parser.PDFParser); ok && opts.DisablePdftotext {
		pdf.FallbackPdftotext = false
	}
	return p, nil
}

// open returns a reader for in. Standard input is copied to a temporary
// file first so parsers that need to seek can use it.
func open(in string, opts Options) (io.Reader, func(), error) {
	if in != Stdio {
		f, err := os.Open(in)
		if err != nil {
			return nil, func() {}, &IOError{Op: "read", Path: in, Err: err}
		}
		return f, func() { f.Close() }, nil
	}

	stdin := opts.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}
	tmp, err := os.CreateTemp("", "xml2rst-stdin-*")
	if err != nil {
		return nil, func() {}, &IOError{Op: "stage", Path: Stdio, Err: err}
	}
	cleanup := func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}
	if _, err := io.Copy(tmp, stdin); err != nil {
		cleanup()
		return nil, func() {}, &IOError{Op: "stage", Path: Stdio, Err: err}
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		cleanup()
		return nil, func() {}, &IOError{Op: "stage", Path: Stdio, Err: err}
	}
	return tmp, cleanup, nil
}

func write(out string, buf *rst.Buffer, opts Options) error {
	if out == Stdio || out == "" {
		stdout := opts.Stdout
		if stdout == nil {
			stdout = os.Stdout
		}
		if _, err := buf.WriteTo(stdout); err != nil {
			return &IOError{Op: "write", Path: Stdio, Err: err}
		}
		return nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(out), "."+filepath.Base(out)+".*.tmp")
	if err != nil {
		return &IOError{Op: "write", Path: out, Err: err}
	}
	tmpPath := tmp.Name()
	fail := func(err error) error {
		tmp.Close()
		os.Remove(tmpPath)
		return &IOError{Op: "write", Path: out, Err: err}
	}

	if _, err := buf.WriteTo(tmp); err != nil {
		return fail(err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return &IOError{Op: "write", Path: out, Err: err}
	}
	if err := os.Rename(tmpPath, out); err != nil {
		os.Remove(tmpPath)
		return &IOError{Op: "write", Path: out, Err: err}
	}
	return nil
}
