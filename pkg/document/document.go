// Package document ties the validation phases and the render pipeline into
// one uploaded-template lifecycle: load and statically validate once, then
// apply contexts against the stored verdict.
package document

import (
	"context"
	"fmt"
	"time"

	"github.com/mitsuhiko/minijinja/minijinja-go/v2/parser"

	"github.com/ghostwriter-web/go-ghostwriter/internal/transcode"
	"github.com/ghostwriter-web/go-ghostwriter/pkg/render"
	"github.com/ghostwriter-web/go-ghostwriter/pkg/sandbox"
)

// Document is one uploaded template with its static validation verdict.
// Load validates eagerly; a Document whose verdict is a failure never
// renders. Documents are not safe for concurrent ApplyContext calls, since
// each call records the rendered content.
type Document struct {
	name      string
	source    string
	tree      *parser.Template
	validator *sandbox.Validator
	err       error
	content   string
	rendered  bool
}

type settings struct {
	sandboxOptions []sandbox.Option
	detectEncoding bool
}

// Option customises document loading.
type Option func(*settings)

// WithSandboxOptions forwards options to the document's validator.
func WithSandboxOptions(options ...sandbox.Option) Option {
	return func(s *settings) { s.sandboxOptions = append(s.sandboxOptions, options...) }
}

// WithoutEncodingDetection disables legacy-encoding detection; raw bytes
// are then required to be UTF-8 already.
func WithoutEncodingDetection() Option {
	return func(s *settings) { s.detectEncoding = false }
}

// Load builds a document from raw uploaded bytes and runs the static phase.
// It never fails: the verdict is stored on the document and reported by
// IsValid and Err, so one invalid upload among many can be inspected
// without unwinding the batch.
func Load(name string, raw []byte, options ...Option) *Document {
	s := settings{detectEncoding: true}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&s)
	}

	d := &Document{name: name}

	// Undecodable input falls through unconverted; the static file checks
	// then classify it as binary or invalid UTF-8.
	if s.detectEncoding {
		if decoded, err := transcode.ToUTF8(raw); err == nil {
			raw = decoded
		}
	}

	validator, err := sandbox.New(s.sandboxOptions...)
	if err != nil {
		d.err = err
		return d
	}
	d.validator = validator

	tree, source, err := validator.ValidateTemplate(raw)
	if err != nil {
		d.err = err
		return d
	}
	d.tree = tree
	d.source = source
	return d
}

// Name returns the document's upload name.
func (d *Document) Name() string { return d.name }

// Source returns the decoded template source, empty if loading failed.
func (d *Document) Source() string { return d.source }

// IsValid reports whether the static phase passed.
func (d *Document) IsValid() bool { return d.err == nil }

// Err returns the static validation failure, nil if the document is valid.
func (d *Document) Err() error { return d.err }

// ApplyContext runs the runtime phase against templateCtx and, if it
// passes, renders and formats the document. The rendered content is also
// recorded on the document for later export.
func (d *Document) ApplyContext(ctx context.Context, templateCtx map[string]any, options ...render.Option) (string, error) {
	if d.err != nil {
		return "", d.err
	}
	if err := d.validator.ValidateRuntime(d.tree, templateCtx); err != nil {
		return "", err
	}

	pipeline := render.NewPipeline(append([]render.Option{
		render.WithMaxMemorySize(d.validator.Config().MaxMemorySize()),
		render.WithTemplateName(d.name),
	}, options...)...)

	content, err := pipeline.Render(ctx, d.source, templateCtx)
	if err != nil {
		return "", err
	}
	d.content = content
	d.rendered = true
	return content, nil
}

// Content returns the most recently rendered content.
func (d *Document) Content() (string, bool) {
	return d.content, d.rendered
}

// Export re-encodes the rendered content for download in the named
// encoding (utf-8, shift_jis, euc-jp, iso-2022-jp).
func (d *Document) Export(encoding string) ([]byte, error) {
	if !d.rendered {
		return nil, fmt.Errorf("document: nothing rendered yet")
	}
	return transcode.FromUTF8(d.content, encoding)
}

// DownloadFilename derives the suggested download name for a rendered
// document: base_YYYY-MM-DD_HHMMSS.ext.
func DownloadFilename(base, ext string, now time.Time) string {
	return fmt.Sprintf("%s_%s.%s", base, now.Format("2006-01-02_150405"), ext)
}
