package document

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bidplus-harvester/internal/models"
)

func TestLinkRulesOrder(t *testing.T) {
	names := make([]string, len(LinkRules))
	for i, r := range LinkRules {
		names[i] = r.Name
	}
	assert.Equal(t, []string{"pdf_href", "documentdownload_pdf", "documentdownload", "documentDownload"}, names)
}

func TestExtractLink(t *testing.T) {
	landing := "https://bidplus.gem.gov.in/showbidDocument/55"

	cases := []struct {
		name string
		html string
		want string
		rule string
	}{
		{
			name: "generic pdf href wins over later rules",
			html: `<a href="/bidding/bid/documentdownload/9/x">x</a><a href='/files/bid.pdf'>bid</a>`,
			want: "https://bidplus.gem.gov.in/files/bid.pdf",
			rule: "pdf_href",
		},
		{
			name: "documentdownload with pdf suffix",
			html: `<script>var u = "/bidding/bid/documentdownload/55/GeM-Bidding.pdf";</script>`,
			want: "https://bidplus.gem.gov.in/bidding/bid/documentdownload/55/GeM-Bidding.pdf",
			rule: "documentdownload_pdf",
		},
		{
			name: "documentdownload without suffix",
			html: `<button data-url='/bidding/bid/documentdownload/55'>`,
			want: "https://bidplus.gem.gov.in/bidding/bid/documentdownload/55",
			rule: "documentdownload",
		},
		{
			name: "camel case path",
			html: `<button data-url="/bidding/bid/documentDownload/55">`,
			want: "https://bidplus.gem.gov.in/bidding/bid/documentDownload/55",
			rule: "documentdownload",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			link, rule, ok := ExtractLink([]byte(tc.html), landing)
			require.True(t, ok)
			assert.Equal(t, tc.want, link)
			assert.Equal(t, tc.rule, rule)
		})
	}

	_, _, ok := ExtractLink([]byte(`<p>Document not available</p>`), landing)
	assert.False(t, ok)
}

func TestSafeFilename(t *testing.T) {
	assert.Equal(t, "GEM_2024_B_4567_8768710", SafeFilename(" GEM/2024/B/4567_8768710 "))
	assert.Equal(t, "a_b c", SafeFilename("a<>:b   c"))
	assert.Len(t, SafeFilename(strings.Repeat("n", 400)), maxFilenameLen)
	assert.Equal(t, "GEM_2024_B_1_9.pdf", PDFName("GEM/2024/B/1", "9"))
	assert.Equal(t, "9.pdf", PDFName("", "9"))
}

func TestResolveDirectByContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = io.WriteString(w, "%PDF-1.7 ...")
	}))
	defer srv.Close()

	r := &Resolver{HTTP: srv.Client()}
	doc, err := r.Resolve(context.Background(), "1", srv.URL+"/showbidDocument/1")
	require.NoError(t, err)
	assert.Equal(t, models.ResolvedDirect, doc.Outcome)
	assert.Equal(t, srv.URL+"/showbidDocument/1", doc.FileURL)
}

func TestResolveDirectByMagicBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = io.WriteString(w, "%PDF-1.4 body")
	}))
	defer srv.Close()

	doc, err := (&Resolver{HTTP: srv.Client()}).Resolve(context.Background(), "2", srv.URL+"/x/2")
	require.NoError(t, err)
	assert.Equal(t, models.ResolvedDirect, doc.Outcome)
}

func TestResolveViaExtraction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, `<a href="/bidding/bid/documentdownload/3/doc.pdf">Download</a>`)
	}))
	defer srv.Close()

	doc, err := (&Resolver{HTTP: srv.Client()}).Resolve(context.Background(), "3", srv.URL+"/showbidDocument/3")
	require.NoError(t, err)
	assert.Equal(t, models.ResolvedViaExtraction, doc.Outcome)
	assert.Equal(t, srv.URL+"/bidding/bid/documentdownload/3/doc.pdf", doc.FileURL)
}

func TestResolveUnresolvedWritesDiagnostic(t *testing.T) {
	page := `<html><body>Session expired</body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, page)
	}))
	defer srv.Close()

	dir := t.TempDir()
	r := &Resolver{HTTP: srv.Client(), DiagnosticDir: filepath.Join(dir, "debug_html")}
	doc, err := r.Resolve(context.Background(), "4", srv.URL+"/showbidDocument/4")
	require.ErrorIs(t, err, ErrUnresolved)
	assert.Equal(t, models.Unresolved, doc.Outcome)
	assert.Empty(t, doc.FileURL)
	require.Equal(t, filepath.Join(dir, "debug_html", "4_docpage.html"), doc.DiagnosticPath)

	saved, err := os.ReadFile(doc.DiagnosticPath)
	require.NoError(t, err)
	assert.Equal(t, page, string(saved))
}

func TestResolveStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	doc, err := (&Resolver{HTTP: srv.Client()}).Resolve(context.Background(), "5", srv.URL+"/showbidDocument/5")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnresolved)
	assert.Equal(t, models.Unresolved, doc.Outcome)
}
