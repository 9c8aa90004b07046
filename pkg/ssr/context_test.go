package ssr

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const anonymousJSON = `{"username":null,"email":null,"isAnonymous":true,"isAuthenticated":false,"isStaff":false,"isSuperuser":false}`

func TestAnonymousUserJSON(t *testing.T) {
	data, err := json.Marshal(Anonymous)
	require.NoError(t, err)
	assert.JSONEq(t, anonymousJSON, string(data))

	rc := RenderRequestContext{RequestPath: "/about", CSRFToken: "abc"}
	assert.True(t, rc.IsAnonymous())
	args, err := rc.Args()
	require.NoError(t, err)
	assert.Equal(t, "/about", args[0])
	assert.Equal(t, "abc", args[1])
	assert.JSONEq(t, anonymousJSON, args[2])
}

func TestAuthenticatedUserJSON(t *testing.T) {
	u := User{
		Username:        "ada",
		Email:           "ada@example.com",
		IsAuthenticated: true,
		IsStaff:         true,
		Extra:           map[string]any{"theme": "dark"},
	}
	data, err := json.Marshal(u)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"username": "ada",
		"email": "ada@example.com",
		"isAnonymous": false,
		"isAuthenticated": true,
		"isStaff": true,
		"isSuperuser": false,
		"extra": {"theme": "dark"}
	}`, string(data))

	var back User
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, u, back)

	rc := RenderRequestContext{CurrentUser: &u}
	assert.False(t, rc.IsAnonymous())
}

func TestEnvelopeRoundTrip(t *testing.T) {
	u := User{Username: "ada", IsAuthenticated: true}
	rc := RenderRequestContext{
		RequestPath: "/blog/hello",
		CSRFToken:   "tok",
		CurrentUser: &u,
		RequestID:   "req-1",
	}

	data, err := EncodeEnvelope(rc)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, EnvelopeVersion, raw["version"])
	assert.Equal(t, "/blog/hello", raw["requestPath"])
	assert.Equal(t, "tok", raw["csrfToken"])
	assert.Equal(t, "req-1", raw["requestId"])

	back, err := DecodeEnvelope(data)
	require.NoError(t, err)
	assert.Equal(t, rc, back)
}

func TestDecodeEnvelopeVersions(t *testing.T) {
	tests := []struct {
		version string
		ok      bool
	}{
		{"1.0.0", true},
		{"1.7.3", true},
		{"2.0.0", false},
		{"0.9.0", false},
		{"", false},
		{"latest", false},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			data := []byte(`{"version":"` + tt.version + `","requestPath":"/","csrfToken":"","currentUser":` + anonymousJSON + `}`)
			_, err := DecodeEnvelope(data)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrIncompatibleEnvelope)
			}
		})
	}

	_, err := DecodeEnvelope([]byte("{"))
	require.Error(t, err)
}

func TestRenderFailureError(t *testing.T) {
	f := &RenderFailure{Reason: ReasonNonZeroExit, ExitCode: 2, Stderr: "TypeError: x is undefined\n    at main\n"}
	assert.Equal(t, "render failed: non_zero_exit (exit 2): TypeError: x is undefined", f.Error())

	res := Result{Failure: f}
	assert.False(t, res.OK())
	assert.ErrorIs(t, res.Err(), f)
	assert.NoError(t, Result{Markup: "<p/>"}.Err())
}

func TestHashBundle(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "server.bundle.js")
	require.NoError(t, os.WriteFile(p, []byte("console.log(1)"), 0o644))

	first, err := HashBundle(p)
	require.NoError(t, err)
	assert.Len(t, first, 64)

	require.NoError(t, os.WriteFile(p, []byte("console.log(2)"), 0o644))
	second, err := HashBundle(p)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	_, err = HashBundle(filepath.Join(dir, "missing.js"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseCommand(t *testing.T) {
	args, err := ParseCommand(`node --enable-source-maps`)
	require.NoError(t, err)
	assert.Equal(t, []string{"node", "--enable-source-maps"}, args)

	args, err = ParseCommand(`'/opt/my node/bin/node' -r "./setup.js"`)
	require.NoError(t, err)
	assert.Equal(t, []string{"/opt/my node/bin/node", "-r", "./setup.js"}, args)

	_, err = ParseCommand("")
	assert.Error(t, err)
	_, err = ParseCommand(`node "unterminated`)
	assert.Error(t, err)
}
