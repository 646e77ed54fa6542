package api

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, env *testEnv) (*http.Server, string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := NewServer("", env.router)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Errorf("serve: %v", err)
		}
	}()
	return srv, ln.Addr().String()
}

func TestServerShutdownEndsProgressStreams(t *testing.T) {
	env := defaultEnv(t)
	srv, addr := startServer(t, env)

	resp, err := http.Get("http://" + addr + "/progress?id=open-sse")
	require.NoError(t, err)
	defer resp.Body.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws/progress?id=open-ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return env.registry.Len() == 2 }, 2*time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	body, err := io.ReadAll(resp.Body)
	assert.NoError(t, err)
	assert.False(t, strings.Contains(string(body), "data:"))

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)

	assert.Eventually(t, func() bool { return env.registry.Len() == 0 }, 2*time.Second, 5*time.Millisecond)
}
