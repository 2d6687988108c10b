package pbp

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gz(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func readAll(t *testing.T, src string) string {
	t.Helper()
	rc, err := Open(context.Background(), src, nil)
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(b)
}

func TestOpenFileDetectsGzip(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "pbp.csv")
	packed := filepath.Join(dir, "pbp.csv.gz")
	require.NoError(t, os.WriteFile(plain, []byte(sampleCSV), 0o644))
	require.NoError(t, os.WriteFile(packed, gz(t, sampleCSV), 0o644))

	assert.Equal(t, sampleCSV, readAll(t, plain))
	assert.Equal(t, sampleCSV, readAll(t, packed))
}

func TestOpenTinyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "one.csv")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	assert.Equal(t, "x", readAll(t, path))
}

func TestOpenHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/play_by_play_2023.csv.gz":
			w.Header().Set("Content-Type", "application/octet-stream")
			w.Write(gz(t, sampleCSV))
		case "/play_by_play_2023.csv":
			io.WriteString(w, sampleCSV)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	assert.Equal(t, sampleCSV, readAll(t, srv.URL+"/play_by_play_2023.csv.gz"))
	assert.Equal(t, sampleCSV, readAll(t, srv.URL+"/play_by_play_2023.csv"))

	_, err := Open(context.Background(), srv.URL+"/play_by_play_1899.csv.gz", srv.Client())
	assert.ErrorContains(t, err, "unexpected status")
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), nil)
	assert.Error(t, err)
}
