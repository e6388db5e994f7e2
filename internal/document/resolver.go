// Package document turns a bid's landing URL into a stored PDF: it resolves
// the real document link and downloads it with the session's cookies.
package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bidplus-harvester/internal/models"
)

var (
	// ErrUnresolved means the landing page had no recognizable document link.
	ErrUnresolved = errors.New("no document link on landing page")
	// ErrNotPDF means the downloaded body was neither typed nor shaped as a PDF.
	ErrNotPDF = errors.New("response is not a pdf")
)

var pdfMagic = []byte("%PDF-")

// maxLandingPage caps how much of a landing page is buffered for link extraction.
const maxLandingPage = 8 << 20

// Resolver fetches landing pages and decides where the document lives.
type Resolver struct {
	HTTP          *http.Client
	UserAgent     string
	Referer       string
	Timeout       time.Duration
	DiagnosticDir string
}

// Resolve fetches landingURL. Transport and status failures are returned as
// errors. A page without a link yields an unresolved document, a diagnostic
// copy of the page and ErrUnresolved.
func (r *Resolver) Resolve(ctx context.Context, bidID, landingURL string) (models.ResolvedDocument, error) {
	doc := models.ResolvedDocument{BidID: bidID, LandingURL: landingURL, Outcome: models.Unresolved}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, landingURL, nil)
	if err != nil {
		return doc, err
	}
	if r.UserAgent != "" {
		req.Header.Set("User-Agent", r.UserAgent)
	}
	if r.Referer != "" {
		req.Header.Set("Referer", r.Referer)
	}
	req.Header.Set("Accept", "application/pdf,text/html,*/*;q=0.8")

	resp, err := r.client().Do(req)
	if err != nil {
		return doc, fmt.Errorf("fetch landing page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return doc, fmt.Errorf("fetch landing page: unexpected status %d for %s", resp.StatusCode, landingURL)
	}

	if isPDFType(resp.Header.Get("Content-Type")) {
		doc.FileURL = landingURL
		doc.Outcome = models.ResolvedDirect
		return doc, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxLandingPage))
	if err != nil {
		return doc, fmt.Errorf("read landing page: %w", err)
	}
	if bytes.HasPrefix(body, pdfMagic) {
		doc.FileURL = landingURL
		doc.Outcome = models.ResolvedDirect
		return doc, nil
	}

	if link, _, ok := ExtractLink(body, landingURL); ok {
		doc.FileURL = link
		doc.Outcome = models.ResolvedViaExtraction
		return doc, nil
	}

	path, werr := r.writeDiagnostic(bidID, body)
	if werr != nil {
		return doc, fmt.Errorf("%w: %v", ErrUnresolved, werr)
	}
	doc.DiagnosticPath = path
	return doc, ErrUnresolved
}

func (r *Resolver) writeDiagnostic(bidID string, body []byte) (string, error) {
	if r.DiagnosticDir == "" {
		return "", nil
	}
	if err := os.MkdirAll(r.DiagnosticDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(r.DiagnosticDir, SafeFilename(bidID)+"_docpage.html")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (r *Resolver) client() *http.Client {
	if r.HTTP != nil {
		return r.HTTP
	}
	return http.DefaultClient
}

func isPDFType(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "pdf")
}
