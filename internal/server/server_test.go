package server

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestServer_ShutdownRunsHooksForOpenStreams(t *testing.T) {
	streams, closeStreams := context.WithCancel(context.Background())
	defer closeStreams()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "open\n")
		_ = http.NewResponseController(w).Flush()
		select {
		case <-streams.Done():
		case <-r.Context().Done():
		}
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := New(0, handler, time.Second, time.Minute, zap.NewNop())
	srv.OnShutdown(closeStreams)
	go func() { _ = srv.Serve(ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "open\n", line)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	start := time.Now()
	require.NoError(t, srv.Shutdown(ctx))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestServer_DefaultTimeouts(t *testing.T) {
	srv := New(8081, http.NotFoundHandler(), 0, 0, zap.NewNop())

	assert.Equal(t, ":8081", srv.Addr())
	assert.Equal(t, 10*time.Second, srv.httpServer.ReadTimeout)
	assert.Equal(t, 30*time.Second, srv.httpServer.WriteTimeout)
}
