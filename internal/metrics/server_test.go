package metrics

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerServesMetrics(t *testing.T) {
	s := NewServer("127.0.0.1:0", "/probe")
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { s.Stop(context.Background()) })

	PacketsReadTotal.Inc()

	resp, err := http.Get("http://" + s.Addr().String() + "/probe")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "nfprobe_packets_read_total")
	assert.Contains(t, string(body), "nfprobe_flows_active")
}

func TestServerDefaultPath(t *testing.T) {
	s := NewServer("127.0.0.1:0", "")
	assert.Equal(t, "/metrics", s.path)
	assert.Nil(t, s.Addr())
	assert.NoError(t, s.Stop(context.Background()), "stopping a server that never started is a no-op")
}

func TestServerListenError(t *testing.T) {
	first := NewServer("127.0.0.1:0", "")
	require.NoError(t, first.Start(context.Background()))
	t.Cleanup(func() { first.Stop(context.Background()) })

	second := NewServer(first.Addr().String(), "")
	err := second.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metrics server listen")
}

func TestServerHealthz(t *testing.T) {
	s := NewServer("127.0.0.1:0", "")
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { s.Stop(context.Background()) })

	resp, err := http.Get("http://" + s.Addr().String() + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok\n", string(body))

	post, err := http.Post("http://"+s.Addr().String()+"/metrics", "text/plain", nil)
	require.NoError(t, err)
	post.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, post.StatusCode)
}
