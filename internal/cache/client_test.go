package cache

import (
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startDaemon(t *testing.T) *Client {
	t.Helper()
	dir, err := os.MkdirTemp("", "wo")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	sock := filepath.Join(dir, "c.sock")
	l, err := net.Listen("unix", sock)
	require.NoError(t, err)

	store := openTestStore(t)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Serve(l, store)
	}()
	t.Cleanup(func() {
		_ = l.Close()
		<-done
	})
	return NewClient(sock)
}

func TestClient_RoundTrip(t *testing.T) {
	c := startDaemon(t)
	key := Key(http.MethodGet, "https://example.com/index.html")

	_, err := c.Match("static-v1", key)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, c.PutAll("static-v1", map[string]*Entry{key: Text(http.StatusOK, "<html>")}))
	require.NoError(t, c.Put("dynamic-v1", Key(http.MethodGet, "https://example.com/a"), Text(http.StatusOK, "a")))

	got, err := c.Match("static-v1", key)
	require.NoError(t, err)
	assert.Equal(t, "<html>", string(got.Body))

	names, err := c.Partitions()
	require.NoError(t, err)
	assert.Equal(t, []string{"dynamic-v1", "static-v1"}, names)

	keys, err := c.Keys("static-v1")
	require.NoError(t, err)
	assert.Equal(t, []string{key}, keys)
	_, err = c.Keys("missing-v1")
	assert.ErrorIs(t, err, ErrNotFound)

	existed, err := c.DeletePartition("dynamic-v1")
	require.NoError(t, err)
	assert.True(t, existed)
}

func TestClient_NotCacheableSurvivesTransport(t *testing.T) {
	c := startDaemon(t)

	err := c.Put("dynamic-v1", Key(http.MethodPost, "https://example.com/x"), Text(http.StatusOK, "x"))
	assert.ErrorIs(t, err, ErrNotCacheable)
}
