package gem

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// FetchDetailText loads the bid result view and returns its visible text.
func (c *Client) FetchDetailText(ctx context.Context, bidID string) (string, error) {
	body, err := c.get(ctx, detailViewPath+bidID)
	if err != nil {
		return "", fmt.Errorf("detail view %s: %w", bidID, err)
	}
	return HTMLText(body)
}

// HTMLText returns the visible text of an HTML document in document order,
// text nodes separated by single spaces.
func HTMLText(html []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style, noscript, template").Remove()

	var parts []string
	collectText(doc.Selection, &parts)
	return strings.Join(parts, " "), nil
}

func collectText(s *goquery.Selection, parts *[]string) {
	s.Contents().Each(func(_ int, child *goquery.Selection) {
		if goquery.NodeName(child) == "#text" {
			if text := strings.Join(strings.Fields(child.Text()), " "); text != "" {
				*parts = append(*parts, text)
			}
			return
		}
		collectText(child, parts)
	})
}
