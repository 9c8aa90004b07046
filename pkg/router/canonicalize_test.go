package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalizePath(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantPath    string
		wantQuery   string
		wantChanged bool
	}{
		{name: "root", input: "/", wantPath: "/"},
		{name: "empty", input: "", wantPath: "/", wantChanged: true},
		{name: "simple path", input: "/about", wantPath: "/about"},
		{name: "trailing slash", input: "/about/", wantPath: "/about", wantChanged: true},
		{name: "double slash", input: "/blog//post", wantPath: "/blog/post", wantChanged: true},
		{name: "single dot", input: "/blog/./post", wantPath: "/blog/post", wantChanged: true},
		{name: "double dot up", input: "/blog/posts/../other", wantPath: "/blog/other", wantChanged: true},
		{name: "double dot to root", input: "/blog/../", wantPath: "/", wantChanged: true},
		{name: "missing leading slash", input: "about", wantPath: "/about", wantChanged: true},
		{name: "query preserved", input: "/blog/?page=2&q=a//b", wantPath: "/blog", wantQuery: "page=2&q=a//b", wantChanged: true},
		{name: "valid escape kept", input: "/docs/a%20b", wantPath: "/docs/a%20b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanonicalizePath(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPath, got.Path)
			assert.Equal(t, tt.wantQuery, got.Query)
			assert.Equal(t, tt.wantChanged, got.Changed)
		})
	}
}

func TestCanonicalizePathRejects(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "backslash", input: `/blog\post`, wantErr: ErrBackslashInPath},
		{name: "literal nul", input: "/blog\x00", wantErr: ErrNullByteInPath},
		{name: "encoded nul", input: "/blog/%00", wantErr: ErrNullByteInPath},
		{name: "bad escape", input: "/blog/%GG", wantErr: ErrInvalidPercentEscape},
		{name: "truncated escape", input: "/blog/%2", wantErr: ErrInvalidPercentEscape},
		{name: "escape above root", input: "/../secret", wantErr: ErrPathEscapesRoot},
		{name: "nested escape above root", input: "/a/../../secret", wantErr: ErrPathEscapesRoot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CanonicalizePath(tt.input)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDecodeSegment(t *testing.T) {
	got, err := decodeSegment("hello%20world", false)
	require.NoError(t, err)
	assert.Equal(t, "hello world", got)

	_, err = decodeSegment("a%2Fb", false)
	require.ErrorIs(t, err, ErrEncodedSlashInSegment)

	got, err = decodeSegment("a%2Fb", true)
	require.NoError(t, err)
	assert.Equal(t, "a/b", got)
}
