package render

import (
	"regexp"
	"time"

	"github.com/microcosm-cc/bluemonday"
	minijinja "github.com/mitsuhiko/minijinja/minijinja-go/v2"
	"github.com/mitsuhiko/minijinja/minijinja-go/v2/value"
	"github.com/ncruces/go-strftime"

	"github.com/ghostwriter-web/go-ghostwriter/pkg/sandbox"
)

const msgUnsafeHTML = "HTML content contains potentially unsafe elements"

// defaultDateFormat renders dates as ISO calendar dates.
const defaultDateFormat = "%Y-%m-%d"

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// filterDate implements the date filter: parses the value as a timestamp
// and reformats it with a strftime pattern, defaulting to %Y-%m-%d.
func filterDate(_ *minijinja.State, val value.Value, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	raw, ok := val.AsString()
	if !ok {
		raw = val.String()
	}
	var parsed time.Time
	var err error
	for _, layout := range dateLayouts {
		parsed, err = time.Parse(layout, raw)
		if err == nil {
			break
		}
	}
	if err != nil {
		return value.Undefined(), minijinja.NewError(minijinja.ErrInvalidOperation, "date filter cannot parse "+raw)
	}
	format := defaultDateFormat
	if len(args) > 0 {
		if s, ok := args[0].AsString(); ok {
			format = s
		}
	}
	return value.FromString(strftime.Format(format, parsed)), nil
}

var htmlPolicy = bluemonday.UGCPolicy()

var unsafeHTMLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<\s*script`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)vbscript:`),
	regexp.MustCompile(`(?i)data:`),
	regexp.MustCompile(`(?i)\bon\w+\s*=`),
}

// SanitizeHTML screens content for script-bearing constructs and then
// sanitizes what passed the screen. The screen rejects rather than strips:
// a template that tries to smuggle active content fails loudly instead of
// silently losing the payload.
func SanitizeHTML(content string) (string, error) {
	for _, pattern := range unsafeHTMLPatterns {
		if pattern.MatchString(content) {
			return "", sandbox.NewError(sandbox.ErrRender, msgUnsafeHTML)
		}
	}
	return htmlPolicy.Sanitize(content), nil
}

// filterHTMLSafe implements the html_safe filter: content that survives
// sanitization is marked safe so the engine will not escape it again.
func filterHTMLSafe(_ *minijinja.State, val value.Value, _ []value.Value, _ map[string]value.Value) (value.Value, error) {
	raw, ok := val.AsString()
	if !ok {
		raw = val.String()
	}
	clean, err := SanitizeHTML(raw)
	if err != nil {
		return value.Undefined(), minijinja.NewError(minijinja.ErrInvalidOperation, msgUnsafeHTML)
	}
	return value.FromSafeString(clean), nil
}
