package errors

import (
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	crdb "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Error(t *testing.T) {
	assert.Equal(t, "E001: Invalid route tree", New("E001").Error())
	assert.Equal(t, "something broke", Newf(CategoryCLI, "something %s", "broke").Error())

	cause := stderrors.New("exit status 1")
	assert.Equal(t, "E041: Bundler failed: exit status 1", New("E041").Wrap(cause).Error())
}

func TestNew_UnknownCode(t *testing.T) {
	err := New("E999")
	assert.Equal(t, "E999", err.Code)
	assert.Equal(t, "Unknown error", err.Message)
}

func TestNew_CopiesTemplate(t *testing.T) {
	err := New("E042")
	assert.Equal(t, CategoryBuild, err.Category)
	assert.Equal(t, "Bundler not found", err.Message)
	assert.NotEmpty(t, err.Suggestion)
}

func TestError_WithLocation(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "routekit.toml")
	content := "[project]\nname = \"site\"\n\n[ssr]\ntimeout = nope\nenabled = true\n"
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))

	err := New("E060").WithLocation(file, 5, 11)
	require.NotNil(t, err.Location)
	assert.Equal(t, 5, err.Location.Line)
	assert.Equal(t, []string{"", "[ssr]", "timeout = nope", "enabled = true"}, err.Context)
}

func TestError_WithLocationNearTop(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "routekit.toml")
	require.NoError(t, os.WriteFile(file, []byte("oops\n[project]\nname = \"x\"\n"), 0o644))

	err := New("E060").WithLocation(file, 1, 1)
	assert.Equal(t, []string{"oops", "[project]", "name = \"x\""}, err.Context)
	assert.Equal(t, 1, err.contextStart())
}

func TestError_WithLocationMissingFile(t *testing.T) {
	err := New("E060").WithLocation("/nonexistent/routekit.toml", 3, 0)
	assert.Nil(t, err.Context)
	assert.Equal(t, "/nonexistent/routekit.toml:3", err.Location.String())
}

func TestError_Builders(t *testing.T) {
	err := New("E001").
		WithDetail("custom detail").
		WithSuggestion("rename one of them").
		WithExample("routes/blog/_slug/page.tsx").
		WithItems("blog: ambiguous dynamic", "docs: catch-all must be a leaf")

	assert.Equal(t, "custom detail", err.Detail)
	assert.Equal(t, "rename one of them", err.Suggestion)
	assert.Equal(t, "routes/blog/_slug/page.tsx", err.Example)
	assert.Len(t, err.Items, 2)
}

func TestError_Unwrap(t *testing.T) {
	sentinel := stderrors.New("boom")
	err := New("E020").Wrap(crdb.Wrap(sentinel, "render"))

	assert.ErrorIs(t, err, sentinel)
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil, "E020"))

	plain := stderrors.New("plain")
	wrapped := FromError(plain, "E020")
	assert.Equal(t, "E020", wrapped.Code)
	assert.Equal(t, plain, wrapped.Wrapped)

	coded := New("E041")
	assert.Same(t, coded, FromError(crdb.Wrap(coded, "build"), "E020"))
}

func TestLocation_String(t *testing.T) {
	tests := []struct {
		name string
		loc  *Location
		want string
	}{
		{"nil", nil, ""},
		{"file only", &Location{File: "routes"}, "routes"},
		{"with column", &Location{File: "routekit.toml", Line: 10, Column: 5}, "routekit.toml:10:5"},
		{"without column", &Location{File: "routekit.toml", Line: 10}, "routekit.toml:10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.loc.String())
		})
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	dir := t.TempDir()
	file := filepath.Join(dir, "routekit.toml")
	require.NoError(t, os.WriteFile(file, []byte("[ssr]\nenabled = true\ntimeout = nope\n"), 0o644))

	err := New("E060").
		WithLocation(file, 3, 11).
		WithItems("ssr.timeout: invalid duration").
		WithSuggestion("Quote durations, e.g. \"10s\"").
		WithExample("timeout = \"10s\"").
		Wrap(stderrors.New("expected value"))

	out := err.Format()
	assert.Contains(t, out, "ERROR E060: Invalid config file")
	assert.Contains(t, out, file+":3:11")
	assert.Contains(t, out, "→    3 │ timeout = nope")
	assert.Contains(t, out, "│           ^")
	assert.Contains(t, out, "• ssr.timeout: invalid duration")
	assert.Contains(t, out, "Cause: expected value")
	assert.Contains(t, out, "Hint: Quote durations")
	assert.Contains(t, out, "Example:")
	assert.NotContains(t, out, "\033[")
}

func TestFormatCompact(t *testing.T) {
	err := New("E060").WithLocation("routekit.toml", 10, 5)
	assert.Equal(t, "routekit.toml:10:5: E060: Invalid config file", err.FormatCompact())
}

func TestFormatJSON(t *testing.T) {
	err := New("E001").
		WithLocation("routes", 0, 0).
		WithItems("blog: ambiguous dynamic").
		Wrap(stderrors.New("2 problems"))

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(err.FormatJSON()), &got))
	assert.Equal(t, "E001", got["code"])
	assert.Equal(t, "routes", got["category"])
	assert.Equal(t, "Invalid route tree", got["message"])
	assert.Equal(t, []any{"blog: ambiguous dynamic"}, got["items"])
	assert.Equal(t, map[string]any{"file": "routes"}, got["location"])
	assert.Equal(t, "2 problems", got["cause"])
}

func TestGetAllCodes(t *testing.T) {
	codes := GetAllCodes()
	assert.Contains(t, codes, "E001")
	assert.Contains(t, codes, "E060")
}

func TestGetTemplate(t *testing.T) {
	tmpl, ok := GetTemplate("E021")
	require.True(t, ok)
	assert.Equal(t, "Server render timed out", tmpl.Message)

	_, ok = GetTemplate("E999")
	assert.False(t, ok)
}

func TestRegister(t *testing.T) {
	Register("E998", ErrorTemplate{Category: CategoryCLI, Message: "Test error"})
	defer delete(registry, "E998")

	assert.Equal(t, "Test error", New("E998").Message)
}

func TestWrapText(t *testing.T) {
	assert.Nil(t, wrapText("", 10))
	assert.Equal(t, []string{"short"}, wrapText("short", 10))

	lines := wrapText("the renderer did not finish within the configured timeout", 20)
	assert.Greater(t, len(lines), 1)
	for _, l := range lines {
		assert.LessOrEqual(t, len(l), 20)
	}
	assert.Equal(t, "the renderer did not finish within the configured timeout", strings.Join(lines, " "))
}

func TestColorFunctions(t *testing.T) {
	EnableColors()
	assert.Equal(t, colorRed+"x"+colorReset, red("x"))

	DisableColors()
	defer EnableColors()
	assert.Equal(t, "x", red("x"))
}
