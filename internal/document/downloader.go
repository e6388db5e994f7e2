package document

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// maxDiagnosticBody caps the bytes kept when a download turns out not to be a PDF.
const maxDiagnosticBody = 2_000_000

// Result describes one download attempt. Err is nil exactly when OK is true.
type Result struct {
	OK             bool
	Path           string
	DiagnosticPath string
	ContentType    string
	Err            error
}

// Downloader streams documents to disk using the shared session client.
type Downloader struct {
	HTTP      *http.Client
	UserAgent string
	Timeout   time.Duration
}

// Download fetches fileURL into dest. A body that is neither typed nor shaped
// as a PDF is saved next to dest with an .html extension and reported as
// ErrNotPDF. Download never panics on network failure; errors land in Result.
func (d *Downloader) Download(ctx context.Context, fileURL, dest, referer string) Result {
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return Result{Err: err}
	}
	if d.UserAgent != "" {
		req.Header.Set("User-Agent", d.UserAgent)
	}
	if referer != "" {
		req.Header.Set("Referer", referer)
	}
	req.Header.Set("Accept", "application/pdf,*/*;q=0.8")

	client := d.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Err: fmt.Errorf("download %s: %w", fileURL, err)}
	}
	defer resp.Body.Close()

	res := Result{ContentType: resp.Header.Get("Content-Type")}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		res.Err = fmt.Errorf("download %s: unexpected status %d", fileURL, resp.StatusCode)
		return res
	}

	body := bufio.NewReader(resp.Body)
	if !isPDFType(res.ContentType) {
		peek, _ := body.Peek(len(pdfMagic))
		if string(peek) != string(pdfMagic) {
			res.DiagnosticPath = strings.TrimSuffix(dest, filepath.Ext(dest)) + ".html"
			if err := writeFile(res.DiagnosticPath, io.LimitReader(body, int64(len(peek))+maxDiagnosticBody)); err != nil {
				res.DiagnosticPath = ""
				res.Err = errors.Join(ErrNotPDF, err)
				return res
			}
			res.Err = ErrNotPDF
			return res
		}
	}

	if err := writeFile(dest, body); err != nil {
		res.Err = fmt.Errorf("write %s: %w", dest, err)
		return res
	}
	res.OK = true
	res.Path = dest
	return res
}

// writeFile streams r to a temp file in path's directory and renames it into place.
func writeFile(path string, r io.Reader) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.part")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}
