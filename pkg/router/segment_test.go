package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyDir(t *testing.T) {
	tests := []struct {
		name string
		want Segment
	}{
		{"about", Segment{Kind: SegmentStatic, Raw: "about", Text: "about"}},
		{"about_us", Segment{Kind: SegmentStatic, Raw: "about_us", Text: "about_us"}},
		{"_slug", Segment{Kind: SegmentDynamic, Raw: "_slug", Param: "slug"}},
		{"_user_id", Segment{Kind: SegmentDynamic, Raw: "_user_id", Param: "user_id"}},
		{"catchall", Segment{Kind: SegmentCatchAll, Raw: "catchall", Param: CatchAllParam}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ClassifyDir(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyDirInvalid(t *testing.T) {
	for _, name := range []string{"", ".git", "_", "__private", "a:b", "what?", "50%", "a*b", "x#y"} {
		t.Run(name, func(t *testing.T) {
			_, err := ClassifyDir(name)
			var rce *RouteConfigError
			require.ErrorAs(t, err, &rce)
			assert.True(t, rce.Has(ProblemInvalidName))
		})
	}
}

func TestClassifyFile(t *testing.T) {
	tests := []struct {
		name     string
		exts     []string
		wantKind ModuleKind
		wantExt  string
	}{
		{name: "page.tsx", wantKind: ModulePage, wantExt: ".tsx"},
		{name: "page.jsx", wantKind: ModulePage, wantExt: ".jsx"},
		{name: "layout.tsx", wantKind: ModuleLayout, wantExt: ".tsx"},
		{name: "layout.js", wantKind: ModuleLayout, wantExt: ".js"},
		{name: "page.css", wantKind: ModuleNone},
		{name: "Page.tsx", wantKind: ModuleNone},
		{name: "page", wantKind: ModuleNone},
		{name: "component.tsx", wantKind: ModuleNone},
		{name: "page.ts", exts: []string{".tsx"}, wantKind: ModuleNone},
		{name: "page.mdx", exts: []string{".mdx"}, wantKind: ModulePage, wantExt: ".mdx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, ext := ClassifyFile(tt.name, tt.exts)
			assert.Equal(t, tt.wantKind, kind)
			assert.Equal(t, tt.wantExt, ext)
		})
	}
}

func TestSegmentIDPart(t *testing.T) {
	assert.Equal(t, IndexID, Segment{Kind: SegmentIndex}.IDPart())
	assert.Equal(t, "_slug", Segment{Kind: SegmentDynamic, Raw: "_slug", Param: "slug"}.IDPart())
}

func TestCompilePattern(t *testing.T) {
	assert.Equal(t, "/", CompilePattern(nil))
	assert.Equal(t, "/", CompilePattern([]Segment{{Kind: SegmentIndex}}))
	assert.Equal(t, "/blog/:slug", CompilePattern([]Segment{
		{Kind: SegmentStatic, Raw: "blog", Text: "blog"},
		{Kind: SegmentDynamic, Raw: "_slug", Param: "slug"},
	}))
	assert.Equal(t, "/docs/*", CompilePattern([]Segment{
		{Kind: SegmentStatic, Raw: "docs", Text: "docs"},
		{Kind: SegmentCatchAll, Raw: "catchall", Param: CatchAllParam},
	}))
}
