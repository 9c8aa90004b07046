package dev

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialReload(t *testing.T, rs *ReloadServer) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(httpHandlerFunc(rs.HandleWebSocket))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + ReloadPath
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) ReloadMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg ReloadMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestReloadServer_Broadcast(t *testing.T) {
	rs := NewReloadServer(nil)
	defer rs.Close()
	a := dialReload(t, rs)
	b := dialReload(t, rs)
	require.Eventually(t, func() bool { return rs.ClientCount() == 2 }, time.Second, 5*time.Millisecond)

	rs.NotifyReload()
	assert.Equal(t, ReloadTypeFull, readMessage(t, a).Type)
	assert.Equal(t, ReloadTypeFull, readMessage(t, b).Type)

	rs.NotifyError("E001: Invalid route tree")
	msg := readMessage(t, a)
	assert.Equal(t, ReloadTypeError, msg.Type)
	assert.Equal(t, "E001: Invalid route tree", msg.Error)

	rs.ClearError()
	assert.Equal(t, ReloadTypeError, readMessage(t, b).Type)
	assert.Equal(t, ReloadTypeClear, readMessage(t, b).Type)
}

func TestReloadServer_ReplaysErrorToNewClients(t *testing.T) {
	rs := NewReloadServer(nil)
	defer rs.Close()

	rs.NotifyError("bundler failed")
	conn := dialReload(t, rs)
	msg := readMessage(t, conn)
	assert.Equal(t, ReloadTypeError, msg.Type)
	assert.Equal(t, "bundler failed", msg.Error)
}

func TestReloadServer_DropsClosedClients(t *testing.T) {
	rs := NewReloadServer(nil)
	conn := dialReload(t, rs)
	require.Eventually(t, func() bool { return rs.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return rs.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestReloadMessage_JSON(t *testing.T) {
	data, err := json.Marshal(ReloadMessage{Type: ReloadTypeFull})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"reload"}`, string(data))
}

func TestDevClientScript(t *testing.T) {
	assert.Contains(t, DevClientScript, "<script>")
	assert.Contains(t, DevClientScript, ReloadPath)
	assert.Contains(t, DevClientScript, "location.reload()")
}

func TestLoop_RebuildsAndNotifies(t *testing.T) {
	dir := t.TempDir()
	page := filepath.Join(dir, "page.tsx")
	require.NoError(t, os.WriteFile(page, []byte("v1"), 0o644))

	rs := NewReloadServer(nil)
	defer rs.Close()
	conn := dialReload(t, rs)
	require.Eventually(t, func() bool { return rs.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	var fail atomic.Bool
	fail.Store(true)
	var rebuilds atomic.Int64
	loop := NewLoop(LoopOptions{
		Watcher: WatcherConfig{Paths: []string{dir}, Debounce: 30 * time.Millisecond},
		Rebuild: func(context.Context) error {
			rebuilds.Add(1)
			if fail.Load() {
				return errors.New("catch-all must be a leaf")
			}
			return nil
		},
		Reload: rs,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()
	defer func() {
		cancel()
		assert.NoError(t, <-done)
	}()
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(page, []byte("v2"), 0o644))
	msg := readMessage(t, conn)
	assert.Equal(t, ReloadTypeError, msg.Type)
	assert.Equal(t, "catch-all must be a leaf", msg.Error)

	fail.Store(false)
	require.NoError(t, os.WriteFile(page, []byte("v3"), 0o644))
	assert.Equal(t, ReloadTypeClear, readMessage(t, conn).Type)
	assert.Equal(t, ReloadTypeFull, readMessage(t, conn).Type)
	assert.GreaterOrEqual(t, rebuilds.Load(), int64(2))
}

type httpHandlerFunc func(w http.ResponseWriter, r *http.Request)

func (f httpHandlerFunc) ServeHTTP(w http.ResponseWriter, r *http.Request) { f(w, r) }
