//go:build !windows

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/routekit"
	"github.com/vango-dev/routekit/pkg/ssr"
)

const renderConfig = `[ssr]
command = "sh"
protocol = "argv"
timeout = "5s"
`

func writeBundle(t *testing.T, dir, script string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "build"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "build", "server.bundle.js"), []byte(script), 0o644))
}

func TestRender(t *testing.T) {
	dir := newProject(t, renderConfig, siteRoutes...)
	writeBundle(t, dir, `printf '<p data-csrf="%s">%s</p>' "$2" "$1"`+"\n")

	out, err := run(t, "render", "-C", dir, "/about", "--csrf", "tok")
	require.NoError(t, err)
	assert.Equal(t, "<p data-csrf=\"tok\">/about</p>\n", out)
}

func TestRenderUser(t *testing.T) {
	dir := newProject(t, renderConfig, siteRoutes...)
	writeBundle(t, dir, `printf '%s' "$3"`+"\n")

	out, err := run(t, "render", "-C", dir, "/", "--user", `{"username":"ada","isAuthenticated":true}`)
	require.NoError(t, err)
	assert.Contains(t, out, `"username":"ada"`)
	assert.Contains(t, out, `"isAuthenticated":true`)

	out, err = run(t, "render", "-C", dir, "/")
	require.NoError(t, err)
	assert.Contains(t, out, `"isAnonymous":true`)

	_, err = run(t, "render", "-C", dir, "/", "--user", `{`)
	assert.Equal(t, "E080", routekit.CodedError(err, "").Code)
}

func TestRenderFailure(t *testing.T) {
	dir := newProject(t, renderConfig, siteRoutes...)
	writeBundle(t, dir, "echo 'ReferenceError: window is not defined' >&2\nexit 3\n")

	_, err := run(t, "render", "-C", dir, "/about")
	var rf *ssr.RenderFailure
	require.ErrorAs(t, err, &rf)
	assert.Equal(t, ssr.ReasonNonZeroExit, rf.Reason)
	assert.Equal(t, 3, rf.ExitCode)

	coded := routekit.CodedError(err, "E080")
	assert.Equal(t, "E020", coded.Code)
	assert.Contains(t, coded.Items, "ReferenceError: window is not defined")
}

func TestRenderMissingBundle(t *testing.T) {
	dir := newProject(t, renderConfig, siteRoutes...)

	_, err := run(t, "render", "-C", dir, "/about")
	assert.Equal(t, "E025", routekit.CodedError(err, "E080").Code)

	_, err = run(t, "render", "-C", dir, "/about", "--bundle", filepath.Join(dir, "nope.js"))
	assert.Equal(t, "E025", routekit.CodedError(err, "E080").Code)
}

func TestRenderBadProtocol(t *testing.T) {
	dir := newProject(t, renderConfig, siteRoutes...)
	writeBundle(t, dir, "echo ok\n")

	_, err := run(t, "render", "-C", dir, "/about", "--protocol", "smoke")
	assert.Equal(t, "E080", routekit.CodedError(err, "").Code)
}
