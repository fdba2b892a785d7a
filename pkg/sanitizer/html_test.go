package sanitizer_test

import (
	"strings"
	"testing"

	"github.com/microcosm-cc/bluemonday"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/hero/pkg/sanitizer"
)

func TestEscapeMarkup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "plain text unchanged", input: "hello world", expected: "hello world"},
		{name: "angle brackets", input: "<b>", expected: "&lt;b&gt;"},
		{name: "ampersand first", input: "a&b", expected: "a&amp;b"},
		{name: "double quote", input: `say "hi"`, expected: "say &quot;hi&quot;"},
		{name: "single quote", input: "it's", expected: "it&#039;s"},
		{
			name:     "script injection",
			input:    `<script>alert('xss')</script>`,
			expected: "&lt;script&gt;alert(&#039;xss&#039;)&lt;/script&gt;",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, sanitizer.EscapeMarkup(tt.input))
		})
	}
}

func TestStripHTML(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Hello", sanitizer.StripHTML(`<p>Hello</p><script>alert('xss')</script>`))
	assert.Equal(t, "click", sanitizer.StripHTML(`<a href="javascript:alert('xss')">click</a>`))
	assert.Equal(t, "nested content", sanitizer.StripHTML(`<div><p>nested <span>content</span></p></div>`))
}

func TestSanitizeHTML(t *testing.T) {
	t.Parallel()

	t.Run("keeps formatting tags", func(t *testing.T) {
		t.Parallel()
		out := sanitizer.SanitizeHTML(`<p>Hello <strong>world</strong></p>`)
		assert.Equal(t, `<p>Hello <strong>world</strong></p>`, out)
	})

	t.Run("drops scripts and handlers", func(t *testing.T) {
		t.Parallel()
		out := sanitizer.SanitizeHTML(`<p onclick="x()">Hi</p><script>alert(1)</script>`)
		assert.Equal(t, `<p>Hi</p>`, out)
	})

	t.Run("adds nofollow to links", func(t *testing.T) {
		t.Parallel()
		out := sanitizer.SanitizeHTML(`<a href="https://example.com">x</a>`)
		assert.True(t, strings.Contains(out, `rel="nofollow"`), out)
	})
}

func TestSanitizeHTMLCustom(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "<b>x</b>", sanitizer.SanitizeHTMLCustom("<b>x</b>", nil))

	policy := bluemonday.NewPolicy().AllowElements("b")
	assert.Equal(t, "<b>x</b>", sanitizer.SanitizeHTMLCustom("<b>x</b><i>y</i>", policy)[:8])
	assert.Equal(t, "<b>x</b>y", sanitizer.Policy(policy)("<b>x</b><i>y</i>"))
}

func TestApply(t *testing.T) {
	t.Parallel()

	in := map[string]any{
		"name": "<b>",
		"tags": []any{"a&b", 7, []string{"'q'"}},
		"n":    42,
	}

	out, ok := sanitizer.Apply(in, sanitizer.EscapeMarkup).(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "&lt;b&gt;", out["name"])
	assert.Equal(t, 42, out["n"])

	tags, ok := out["tags"].([]any)
	require.True(t, ok)
	assert.Equal(t, "a&amp;b", tags[0])
	assert.Equal(t, 7, tags[1])
	assert.Equal(t, []string{"&#039;q&#039;"}, tags[2])

	// input untouched
	assert.Equal(t, "<b>", in["name"])
	assert.Equal(t, "raw", sanitizer.Apply("raw", nil))
}
