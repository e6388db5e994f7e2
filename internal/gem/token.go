package gem

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// ErrTokenNotFound means the listing page carried no anti-forgery token.
var ErrTokenNotFound = errors.New("csrf token not found on listing page")

// tokenPatterns are tried in order: inline script assignment, then hidden form field.
var tokenPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)csrf_bd_gem_nk'\s*:\s*'([0-9a-f]{16,64})'`),
	regexp.MustCompile(`(?i)name="csrf_bd_gem_nk"\s+value="([0-9a-f]{16,64})"`),
}

// ExtractToken pulls the anti-forgery token out of the listing page HTML.
func ExtractToken(html []byte) (string, error) {
	for _, re := range tokenPatterns {
		if m := re.FindSubmatch(html); m != nil {
			return string(m[1]), nil
		}
	}
	return "", ErrTokenNotFound
}

// Bootstrap loads the listing page, establishing the session cookies, and
// returns the token that must accompany every listing query.
func (c *Client) Bootstrap(ctx context.Context) (string, error) {
	body, err := c.get(ctx, listingPagePath)
	if err != nil {
		return "", fmt.Errorf("load listing page: %w", err)
	}
	return ExtractToken(body)
}
