package worker

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leonardcser/web-offline/internal/cache"
)

func TestInstall_CachesWholeManifest(t *testing.T) {
	ctx := context.Background()
	store, net := openStore(t), newFakeNet()
	net.set(origin+"/", http.StatusOK, "<html>home</html>")
	net.set(origin+"/index.html", http.StatusOK, "<html>shell</html>")
	w := newWorker(t, store, net, "v1", "/", "/index.html")

	var reg Registration
	require.NoError(t, reg.Register(ctx, w))

	assert.Equal(t, StateActivated, w.State())
	assert.Same(t, w, reg.Active())
	for _, target := range []string{origin + "/", origin + "/index.html"} {
		_, err := store.Match("excellence-academy-static-v1", cache.Key(http.MethodGet, target))
		assert.NoError(t, err, target)
	}
}

func TestInstall_FailureKeepsPriorWorker(t *testing.T) {
	ctx := context.Background()
	store, net := openStore(t), newFakeNet()
	net.set(origin+"/", http.StatusOK, "<html>home v1</html>")
	v1 := newWorker(t, store, net, "v1", "/")

	var reg Registration
	require.NoError(t, reg.Register(ctx, v1))

	// v2 lists an asset that 404s.
	v2 := newWorker(t, store, net, "v2", "/", "/js/missing.js")
	err := reg.Register(ctx, v2)

	require.ErrorIs(t, err, ErrInstallFailed)
	assert.Equal(t, StateRedundant, v2.State())
	assert.Same(t, v1, reg.Active(), "prior worker keeps control")
	assert.Equal(t, StateActivated, v1.State())

	names, err := store.Partitions()
	require.NoError(t, err)
	assert.NotContains(t, names, "excellence-academy-static-v2", "no partial static partition")
	assert.Contains(t, names, "excellence-academy-static-v1")
}

func TestInstall_FailureWithNoPriorWorker(t *testing.T) {
	net := newFakeNet()
	net.setOffline(true)
	w := newWorker(t, openStore(t), net, "v1", "/")

	var reg Registration
	require.ErrorIs(t, reg.Register(context.Background(), w), ErrInstallFailed)
	assert.Nil(t, reg.Active())
	assert.Equal(t, "uncontrolled", reg.Status().State)
}

func TestActivate_PrunesStalePartitions(t *testing.T) {
	ctx := context.Background()
	store, net := openStore(t), newFakeNet()
	net.set(origin+"/", http.StatusOK, "<html>home</html>")
	key := cache.Key(http.MethodGet, origin+"/old")
	for _, p := range []string{"excellence-academy-v1.0.0", "excellence-academy-static-v1", "excellence-academy-dynamic-v1"} {
		require.NoError(t, store.Put(p, key, cache.Text(http.StatusOK, "old")))
	}

	v2 := newWorker(t, store, net, "v2", "/")
	var reg Registration
	require.NoError(t, reg.Register(ctx, v2))

	// v2's dynamic partition is created on first runtime write.
	net.set(origin+"/news", http.StatusOK, "news")
	_, _ = v2.Respond(ctx, get(origin+"/news"), origin+"/news")

	names, err := store.Partitions()
	require.NoError(t, err)
	assert.Equal(t, []string{"excellence-academy-dynamic-v2", "excellence-academy-static-v2"}, names)
}

func TestRegister_NewVersionTakesOver(t *testing.T) {
	ctx := context.Background()
	store, net := openStore(t), newFakeNet()
	net.set(origin+"/", http.StatusOK, "<html>v1</html>")
	v1 := newWorker(t, store, net, "v1", "/")
	var reg Registration
	require.NoError(t, reg.Register(ctx, v1))

	net.set(origin+"/", http.StatusOK, "<html>v2</html>")
	v2 := newWorker(t, store, net, "v2", "/")
	require.NoError(t, reg.Register(ctx, v2))

	assert.Same(t, v2, reg.Active())
	assert.Equal(t, StateRedundant, v1.State())

	net.setOffline(true)
	e, _ := reg.Active().Respond(ctx, navigate(origin+"/"), origin+"/")
	assert.Equal(t, "<html>v2</html>", string(e.Body))

	st := reg.Status()
	assert.Equal(t, "activated", st.State)
	assert.Equal(t, "excellence-academy-static-v2", st.Static)
	assert.Equal(t, []string{"excellence-academy-static-v2"}, st.Partitions)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "installing", StateInstalling.String())
	assert.Equal(t, "unknown", State(99).String())
	assert.Equal(t, "network-first", NetworkFirst.String())
}
