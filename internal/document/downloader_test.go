package document

import (
	"bytes"
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

func serve(contentType string, body []byte, check func(*http.Request)) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write(body)
	}))
}

func TestDownloadPDF(t *testing.T) {
	body := append([]byte("%PDF-1.7\n"), bytes.Repeat([]byte("x"), 4096)...)
	var referer string
	srv := serve("application/pdf", body, func(r *http.Request) { referer = r.Header.Get("Referer") })
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "pdfs", "GEM_1_1.pdf")
	res := (&Downloader{HTTP: srv.Client()}).Download(context.Background(), srv.URL+"/doc", dest, "https://landing/1")

	require.True(t, res.OK, "err: %v", res.Err)
	require.NoError(t, res.Err)
	assert.Equal(t, dest, res.Path)
	assert.Equal(t, "https://landing/1", referer)

	saved, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, body, saved)
}

func TestDownloadOctetStreamWithPDFMagic(t *testing.T) {
	body := []byte("%PDF-1.4 binary payload")
	srv := serve("application/octet-stream", body, nil)
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "a.pdf")
	res := (&Downloader{HTTP: srv.Client()}).Download(context.Background(), srv.URL, dest, "")
	require.True(t, res.OK)

	saved, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, body, saved, "peeked bytes must be kept")
}

func TestDownloadHTMLIsSavedAsDiagnostic(t *testing.T) {
	body := []byte("<html>Please login</html>")
	srv := serve("text/html; charset=utf-8", body, nil)
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "b.pdf")
	res := (&Downloader{HTTP: srv.Client()}).Download(context.Background(), srv.URL, dest, "")

	assert.False(t, res.OK)
	require.ErrorIs(t, res.Err, ErrNotPDF)
	assert.Equal(t, filepath.Join(dir, "b.html"), res.DiagnosticPath)
	assert.NoFileExists(t, dest)

	saved, err := os.ReadFile(res.DiagnosticPath)
	require.NoError(t, err)
	assert.Equal(t, body, saved)
}

func TestDownloadDiagnosticIsCapped(t *testing.T) {
	body := bytes.Repeat([]byte("<"), maxDiagnosticBody+1000)
	srv := serve("text/html", body, nil)
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "c.pdf")
	res := (&Downloader{HTTP: srv.Client()}).Download(context.Background(), srv.URL, dest, "")
	require.ErrorIs(t, res.Err, ErrNotPDF)

	info, err := os.Stat(res.DiagnosticPath)
	require.NoError(t, err)
	assert.Equal(t, int64(5+maxDiagnosticBody), info.Size())
}

func TestDownloadStatusAndTransportErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, "missing")
	}))
	dest := filepath.Join(t.TempDir(), "d.pdf")

	res := (&Downloader{HTTP: srv.Client()}).Download(context.Background(), srv.URL, dest, "")
	assert.False(t, res.OK)
	assert.Error(t, res.Err)
	assert.NoFileExists(t, dest)

	srv.Close()
	res = (&Downloader{HTTP: srv.Client()}).Download(context.Background(), srv.URL, dest, "")
	assert.False(t, res.OK)
	assert.Error(t, res.Err)
}
