package sanitizer

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictPolicy *bluemonday.Policy
	safePolicy   *bluemonday.Policy
	initOnce     sync.Once
)

// markupReplacer converts the five markup-significant characters to entities.
var markupReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

// Func transforms a single untrusted input string.
type Func func(string) string

func initPolicies() {
	initOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()

		safePolicy = bluemonday.NewPolicy()
		safePolicy.AllowStandardURLs()
		safePolicy.AllowElements(
			"p", "br",
			"strong", "b", "em", "i",
			"ul", "ol", "li",
			"code", "pre", "blockquote",
		)
		safePolicy.AllowAttrs("href").OnElements("a")
		safePolicy.RequireNoFollowOnLinks(true)
	})
}

// EscapeMarkup replaces &, <, >, " and ' with their HTML entities.
// This is the default treatment for query and form values bound into handlers.
func EscapeMarkup(s string) string {
	return markupReplacer.Replace(s)
}

// StripHTML removes all markup and returns plain text.
func StripHTML(s string) string {
	initPolicies()
	return strictPolicy.Sanitize(s)
}

// SanitizeHTML allows safe formatting tags (p, a, strong, em, lists, code).
// Strips scripts, event handlers and javascript: URLs.
func SanitizeHTML(s string) string {
	initPolicies()
	return safePolicy.Sanitize(s)
}

// SanitizeHTMLCustom applies a custom bluemonday policy.
// Returns input unchanged if policy is nil.
func SanitizeHTMLCustom(s string, policy *bluemonday.Policy) string {
	if policy == nil {
		return s
	}
	return policy.Sanitize(s)
}

// Policy adapts a bluemonday policy to a Func.
func Policy(policy *bluemonday.Policy) Func {
	return func(s string) string {
		return SanitizeHTMLCustom(s, policy)
	}
}

// Apply runs fn over every string reachable from v: plain strings,
// string slices, and nested []any / map[string]any values.
// Other values are returned unchanged.
func Apply(v any, fn Func) any {
	if fn == nil {
		return v
	}
	switch val := v.(type) {
	case string:
		return fn(val)
	case []string:
		out := make([]string, len(val))
		for i, s := range val {
			out[i] = fn(s)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Apply(item, fn)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = Apply(item, fn)
		}
		return out
	default:
		return v
	}
}
