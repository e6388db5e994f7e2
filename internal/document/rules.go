package document

import (
	"net/url"
	"regexp"
	"strings"
)

// LinkRule is one extraction pattern for finding a document link in a landing page.
type LinkRule struct {
	Name    string
	Pattern *regexp.Regexp
}

// LinkRules are tried in order; the first rule with a match wins.
var LinkRules = []LinkRule{
	{Name: "pdf_href", Pattern: regexp.MustCompile(`(?i)href\s*=\s*["']([^"']+\.pdf)["']`)},
	{Name: "documentdownload_pdf", Pattern: regexp.MustCompile(`(?i)["'](/bidding/bid/documentdownload/[^"']+?\.pdf)["']`)},
	{Name: "documentdownload", Pattern: regexp.MustCompile(`(?i)["'](/bidding/bid/documentdownload/[^"']+)["']`)},
	{Name: "documentDownload", Pattern: regexp.MustCompile(`(?i)["'](/bidding/bid/documentDownload/[^"']+)["']`)},
}

// ExtractLink applies LinkRules to html and returns the first hit resolved
// against landingURL, plus the name of the rule that matched.
func ExtractLink(html []byte, landingURL string) (link, rule string, ok bool) {
	for _, r := range LinkRules {
		m := r.Pattern.FindSubmatch(html)
		if m == nil {
			continue
		}
		return resolveReference(landingURL, string(m[1])), r.Name, true
	}
	return "", "", false
}

func resolveReference(base, ref string) string {
	ref = strings.TrimSpace(ref)
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

var (
	unsafeChars = regexp.MustCompile(`[<>:"/\\|?*\n\r\t]+`)
	whitespace  = regexp.MustCompile(`\s+`)
)

const maxFilenameLen = 180

// SafeFilename makes name usable as a file name on any common filesystem.
func SafeFilename(name string) string {
	name = strings.TrimSpace(name)
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.TrimSpace(whitespace.ReplaceAllString(name, " "))
	if len(name) > maxFilenameLen {
		name = name[:maxFilenameLen]
	}
	return name
}

// PDFName is the stored file name for a bid document.
func PDFName(bidNumber, bidID string) string {
	base := bidID
	if bidNumber != "" {
		base = bidNumber + "_" + bidID
	}
	return SafeFilename(base) + ".pdf"
}
