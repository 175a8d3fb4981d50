// Package render drives the external template engine and post-processes
// its output. It is only entered with templates that already passed static
// and runtime validation; its own checks cover what validation cannot see,
// the rendered output itself.
package render

import (
	"context"
	"strings"

	minijinja "github.com/mitsuhiko/minijinja/minijinja-go/v2"

	"github.com/ghostwriter-web/go-ghostwriter/pkg/sandbox"
)

// UndefinedPolicy selects how references to names absent from the context
// behave during rendering.
type UndefinedPolicy int

const (
	// UndefinedStrict fails the render on any reference to an absent name.
	UndefinedStrict UndefinedPolicy = iota
	// UndefinedLenient renders absent names as empty output.
	UndefinedLenient
)

// Pipeline renders validated template source and formats the result under a
// memory ceiling. A Pipeline is immutable after construction and safe for
// concurrent use; every Render call builds its own engine environment.
type Pipeline struct {
	formatType    FormatType
	policy        UndefinedPolicy
	maxMemorySize int
	templateName  string
}

// Option customises a render pipeline.
type Option func(*Pipeline)

// WithFormatType selects the post-render whitespace transform.
func WithFormatType(ft FormatType) Option {
	return func(p *Pipeline) { p.formatType = ft }
}

// WithUndefinedPolicy selects the undefined-variable behavior.
func WithUndefinedPolicy(policy UndefinedPolicy) Option {
	return func(p *Pipeline) { p.policy = policy }
}

// WithMaxMemorySize overrides the post-render memory ceiling in bytes.
func WithMaxMemorySize(n int) Option {
	return func(p *Pipeline) { p.maxMemorySize = n }
}

// WithTemplateName sets the name the engine reports in render errors.
func WithTemplateName(name string) Option {
	return func(p *Pipeline) { p.templateName = name }
}

// NewPipeline builds a pipeline. Defaults: tidy formatting, strict
// undefined handling, and the package-level memory ceiling.
func NewPipeline(options ...Option) *Pipeline {
	p := &Pipeline{
		formatType:    DefaultFormatType,
		policy:        UndefinedStrict,
		maxMemorySize: sandbox.DefaultMaxMemorySize,
		templateName:  "template",
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(p)
	}
	return p
}

// Render substitutes the context into source, post-processes the output,
// and enforces the memory ceiling. On any failure the content is discarded:
// the caller never sees partial output alongside an error.
func (p *Pipeline) Render(ctx context.Context, source string, templateCtx map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if p.formatType < FormatNone || p.formatType > FormatStripRuns {
		return "", sandbox.NewError(sandbox.ErrUnsupportedFormatType, "Unsupported format type")
	}

	env := minijinja.NewEnvironment()
	switch p.policy {
	case UndefinedLenient:
		env.SetUndefinedBehavior(minijinja.UndefinedLenient)
	default:
		env.SetUndefinedBehavior(minijinja.UndefinedStrict)
	}
	env.AddFilter("date", filterDate)
	env.AddFilter("safe", filterHTMLSafe)
	env.AddFilter("html_safe", filterHTMLSafe)

	tpl, err := env.TemplateFromNamedString(p.templateName, source)
	if err != nil {
		return "", sandbox.NewError(sandbox.ErrRender, "%s", err.Error())
	}
	output, err := tpl.Render(templateCtx)
	if err != nil {
		if strings.Contains(err.Error(), msgUnsafeHTML) {
			return "", sandbox.NewError(sandbox.ErrRender, msgUnsafeHTML)
		}
		return "", sandbox.NewError(sandbox.ErrRender, "%s", err.Error())
	}
	if strings.IndexByte(output, 0) >= 0 {
		return "", sandbox.NewError(sandbox.ErrBinaryContent, "Content contains invalid binary data")
	}

	formatted, err := Format(output, p.formatType)
	if err != nil {
		return "", err
	}
	if len(formatted) > p.maxMemorySize {
		return "", sandbox.NewError(sandbox.ErrMemoryLimitExceeded, "Memory consumption exceeds maximum limit of %d bytes", p.maxMemorySize)
	}
	return formatted, nil
}
