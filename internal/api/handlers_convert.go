package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dgallion1/xml2rst/internal/adornment"
	"github.com/dgallion1/xml2rst/internal/convert"
	"github.com/dgallion1/xml2rst/internal/parser"
	"github.com/dgallion1/xml2rst/internal/rst"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"
)

const rstContentType = "text/x-rst; charset=utf-8"

// handleConvert renders a raw docutils XML body.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts, err := s.options(r, q.Get)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if opts.Format == "" {
		opts.Format = "xml"
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read body", http.StatusBadRequest)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("body exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	name := sanitizeFilename(q.Get("filename"))
	out, err := convert.Reader(r.Context(), bytes.NewReader(data), name, opts)
	if err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}
	writeRST(w, out)
}

// handleImport converts one uploaded file of any supported format.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	opts, err := s.options(r, r.FormValue)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	header, ok := formFile(w, r)
	if !ok {
		return
	}

	res := s.importOne(r.Context(), header, opts)
	if res.err != nil {
		jsonError(w, res.Error, res.status)
		return
	}
	writeRST(w, []byte(res.RST))
}

type importResult struct {
	Filename string `json:"filename"`
	RST      string `json:"rst,omitempty"`
	Lines    int    `json:"lines,omitempty"`
	Error    string `json:"error,omitempty"`

	err    error
	status int
}

// handleBatchImport converts several uploaded files concurrently.
func (s *Server) handleBatchImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*10+10*1024*1024)

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	opts, err := s.options(r, r.FormValue)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}

	results := make([]importResult, len(files))
	g, ctx := errgroup.WithContext(r.Context())
	g.SetLimit(max(1, s.cfg.MaxConcurrentConvert))
	for i, fh := range files {
		g.Go(func() error {
			results[i] = s.importOne(ctx, fh, opts)
			return nil
		})
	}
	g.Wait()

	failed := 0
	for _, res := range results {
		if res.err != nil {
			failed++
		}
	}
	s.log.Info("batch import", "files", len(files), "failed", failed)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"results": results})
}

func (s *Server) importOne(ctx context.Context, fh *multipart.FileHeader, opts convert.Options) importResult {
	filename := sanitizeFilename(fh.Filename)
	res := importResult{Filename: filename}
	fail := func(status int, err error) importResult {
		res.err = err
		res.Error = err.Error()
		res.status = status
		return res
	}

	if opts.Format == "" && !parser.IsSupportedExtension(filename) {
		return fail(http.StatusBadRequest, fmt.Errorf("unsupported file type: %s", filepath.Ext(filename)))
	}

	data, err := readUpload(fh, s.cfg.MaxUploadBytes)
	if err != nil {
		return fail(uploadStatus(err), err)
	}

	out, err := convert.Reader(ctx, bytes.NewReader(data), filename, opts)
	if err != nil {
		return fail(statusFor(err), err)
	}
	res.RST = string(out)
	res.Lines = bytes.Count(out, []byte("\n"))
	return res
}

// formFile returns the single "file" part of a parsed multipart form,
// answering 400 itself when it is missing.
func formFile(w http.ResponseWriter, r *http.Request) (*multipart.FileHeader, bool) {
	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		jsonError(w, "file is required", http.StatusBadRequest)
		return nil, false
	}
	return files[0], true
}

func readUpload(fh *multipart.FileHeader, limit int64) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w (%d bytes)", errTooLarge, limit)
	}
	return data, nil
}

var errTooLarge = errors.New("file exceeds max size")

func uploadStatus(err error) int {
	if errors.Is(err, errTooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}

// options builds conversion options from request parameters, falling back
// to the configured defaults.
func (s *Server) options(r *http.Request, get func(string) string) (convert.Options, error) {
	opts := convert.Options{
		Adornment:        s.cfg.AdornmentSpec(),
		Fold:             s.cfg.Fold,
		Format:           get("format"),
		DisablePdftotext: !s.cfg.PDFFallbackPdftotext,
		Logger:           s.log.With("request_id", middleware.GetReqID(r.Context())),
	}
	if v := get("adornment"); v != "" {
		spec, err := adornment.Parse(v)
		if err != nil {
			return opts, err
		}
		opts.Adornment = spec
	}
	if v := get("fold"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, fmt.Errorf("invalid fold %q: must be a non-negative integer", v)
		}
		opts.Fold = n
	}
	if opts.Format != "" {
		if _, err := parser.ForFormat(opts.Format); err != nil {
			return opts, err
		}
	}
	return opts, nil
}

// statusFor maps a conversion error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, rst.ErrUnsupportedElement), errors.Is(err, rst.ErrDepthExhausted):
		return http.StatusUnprocessableEntity
	case errors.Is(err, adornment.ErrInvalidSpec):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	case errors.Is(err, convert.ErrIO):
		return http.StatusInternalServerError
	default:
		// Malformed or unreadable input.
		return http.StatusBadRequest
	}
}

func writeRST(w http.ResponseWriter, out []byte) {
	w.Header().Set("Content-Type", rstContentType)
	w.Write(out)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
