package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/caffeineduck/pagekit/bootstrap"
)

func TestModuleDownloadsOnce(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("\x00asm"))
	}))
	defer srv.Close()

	b := bootstrap.Backend{
		Token:  "mpy",
		Module: filepath.Join(t.TempDir(), "runtimes", "micropython.wasm"),
		Source: srv.URL + "/micropython.wasm",
	}
	assert.False(t, Installed(b))

	downloaded, err := Module(context.Background(), srv.Client(), zap.NewNop(), b)
	require.NoError(t, err)
	assert.True(t, downloaded)
	assert.True(t, Installed(b))

	data, err := os.ReadFile(b.Module)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x00asm"), data)

	downloaded, err = Module(context.Background(), srv.Client(), zap.NewNop(), b)
	require.NoError(t, err)
	assert.False(t, downloaded)
	assert.Equal(t, int32(1), hits.Load())
}

func TestModuleErrors(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	dir := t.TempDir()
	missing := bootstrap.Backend{Token: "py", Module: filepath.Join(dir, "python.wasm")}
	_, err := Module(context.Background(), nil, zap.NewNop(), missing)
	assert.ErrorIs(t, err, ErrNoSource)

	notFound := missing
	notFound.Source = srv.URL + "/python.wasm"
	_, err = Module(context.Background(), srv.Client(), zap.NewNop(), notFound)
	assert.ErrorContains(t, err, "download failed")
	assert.False(t, Installed(notFound))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no partial file left behind")
}

func TestAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.URL.Path))
	}))
	defer srv.Close()

	dir := t.TempDir()
	m := bootstrap.Manifest{Backends: []bootstrap.Backend{
		{Token: "mpy", Module: filepath.Join(dir, "a.wasm"), Source: srv.URL + "/a"},
		{Token: "py", Module: filepath.Join(dir, "b.wasm"), Source: srv.URL + "/b"},
	}}
	require.NoError(t, All(context.Background(), srv.Client(), zap.NewNop(), m))

	data, err := os.ReadFile(filepath.Join(dir, "b.wasm"))
	require.NoError(t, err)
	assert.Equal(t, "/b", string(data))
}
