package routekit

import (
	"html/template"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderShell(t *testing.T) {
	var b strings.Builder
	require.NoError(t, renderShell(&b, shellData{
		Title:        `<script>alert(1)</script>`,
		Description:  `A "quoted" site`,
		Markup:       template.HTML(`<main class="page">Hello</main>`),
		ClientBundle: "/_routekit/assets/client.bundle.js",
		Noscript:     "Enable JavaScript",
	}))
	out := b.String()

	assert.Contains(t, out, `<title>&lt;script&gt;alert(1)&lt;/script&gt;</title>`)
	assert.Contains(t, out, `<meta name="description" content="A &#34;quoted&#34; site">`)
	assert.Contains(t, out, `<div id="root"><main class="page">Hello</main></div>`)
	assert.Contains(t, out, `<noscript>Enable JavaScript</noscript>`)
	assert.NotContains(t, out, "csrf-token")
	assert.NotContains(t, out, "<link")
}

func TestRenderShellEmptyRoot(t *testing.T) {
	var b strings.Builder
	require.NoError(t, renderShell(&b, shellData{ClientBundle: "/app.js"}))
	out := b.String()

	assert.Contains(t, out, `<div id="root"></div>`)
	assert.Contains(t, out, `<script type="module" src="/app.js"></script>`)
	assert.NotContains(t, out, "<title>")
	assert.NotContains(t, out, "<noscript>")
}
