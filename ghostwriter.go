package ghostwriter

import (
	"context"

	"github.com/ghostwriter-web/go-ghostwriter/pkg/document"
	"github.com/ghostwriter-web/go-ghostwriter/pkg/render"
	"github.com/ghostwriter-web/go-ghostwriter/pkg/sandbox"
)

// Validator aliases the two-phase template validator for convenience.
type Validator = sandbox.Validator

// Error is the classified failure type every operation in this module
// returns; its Message strings are stable and safe to match verbatim.
type Error = sandbox.Error

// ErrorKind classifies an Error.
type ErrorKind = sandbox.ErrorKind

// Document is one uploaded template with its validation verdict.
type Document = document.Document

// FormatType selects the post-render whitespace transform.
type FormatType = render.FormatType

// UndefinedPolicy selects how absent context names behave during render.
type UndefinedPolicy = render.UndefinedPolicy

// NewValidator exposes the validator constructor from the top-level module.
func NewValidator(options ...sandbox.Option) (*sandbox.Validator, error) {
	return sandbox.New(options...)
}

// LoadDocument builds a document from uploaded bytes and runs static
// validation eagerly; inspect the result with IsValid and Err.
func LoadDocument(name string, raw []byte, options ...document.Option) *document.Document {
	return document.Load(name, raw, options...)
}

// Render is the simplest entry point: it validates source statically and
// against the context, renders it, and formats the output. Both validation
// phases must pass before the engine ever sees the template.
func Render(ctx context.Context, source string, templateCtx map[string]any, options ...render.Option) (string, error) {
	doc := document.Load("template", []byte(source))
	if err := doc.Err(); err != nil {
		return "", err
	}
	return doc.ApplyContext(ctx, templateCtx, options...)
}
