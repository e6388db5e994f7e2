// Package filter decides whether a bid matches the configured keyword,
// category and location constraints. An empty constraint always passes.
package filter

import (
	"regexp"
	"strings"

	"bidplus-harvester/internal/models"
)

// Mode selects how a keyword is matched against page content.
type Mode string

const (
	// ModeContains matches the whole keyword as a case-insensitive substring.
	ModeContains Mode = "contains"
	// ModeAllTerms requires every whitespace-separated keyword token to appear.
	ModeAllTerms Mode = "all-terms"
	// ModeExact is the historical name for ModeAllTerms.
	ModeExact Mode = "exact"
)

// ParseMode maps a user supplied mode name to a Mode. ok is false for unknown names.
func ParseMode(s string) (Mode, bool) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeContains:
		return ModeContains, true
	case ModeAllTerms, ModeExact:
		return ModeAllTerms, true
	default:
		return "", false
	}
}

// MatchKeyword reports whether text satisfies keyword under mode.
func MatchKeyword(text, keyword string, mode Mode) bool {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return true
	}
	hay := strings.ToLower(text)
	needle := strings.ToLower(keyword)
	switch mode {
	case ModeAllTerms, ModeExact:
		for _, term := range strings.Fields(needle) {
			if !strings.Contains(hay, term) {
				return false
			}
		}
		return true
	default:
		return strings.Contains(hay, needle)
	}
}

var categoryPattern = regexp.MustCompile(`(?i)\bCategory\b\s*[:\-]?\s*([^|]{0,120})`)

// ExtractCategory returns up to 120 characters following the word "Category",
// stopping at the next '|' separator. "" when the label is absent.
func ExtractCategory(text string) string {
	m := categoryPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// MatchCategory reports whether categoryText contains filter, case-insensitively.
func MatchCategory(categoryText, filter string) bool {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(categoryText), strings.ToLower(filter))
}

var locationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bState\s*[:\-]?\s*([A-Za-z ]{3,})`),
	regexp.MustCompile(`(?i)\bConsignee\s+State\s*[:\-]?\s*([A-Za-z ]{3,})`),
	regexp.MustCompile(`(?i)\bLocation\s*/\s*State\s*[:\-]?\s*([A-Za-z ]{3,})`),
}

// ExtractLocation returns the first labelled state name found in text,
// uppercased, or "" when none is present.
func ExtractLocation(text string) string {
	for _, re := range locationPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.ToUpper(strings.TrimSpace(m[1]))
		}
	}
	return ""
}

// MatchLocation reports whether location is in allowed, ignoring case.
// An empty allowed list passes everything.
func MatchLocation(location string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	location = strings.ToUpper(strings.TrimSpace(location))
	for _, a := range allowed {
		if strings.ToUpper(strings.TrimSpace(a)) == location {
			return true
		}
	}
	return false
}

// Engine bundles the three filters applied to each eligible bid.
type Engine struct {
	Keyword   string
	Mode      Mode
	Category  string
	Locations []string
}

// Decision is the outcome of Engine.Match.
type Decision struct {
	Matched  bool
	Reason   string
	Category string
	Location string
}

// Rejection reasons reported in Decision.Reason.
const (
	ReasonKeyword  = "keyword"
	ReasonCategory = "category"
	ReasonLocation = "location"
)

// Match applies keyword, category and location filters to the bid's page content.
func (e Engine) Match(bid models.BidRecord) Decision {
	text := bid.PageContent
	d := Decision{}
	if e.Category != "" {
		d.Category = ExtractCategory(text)
	}
	if len(e.Locations) > 0 {
		d.Location = ExtractLocation(text)
	}

	switch {
	case !MatchKeyword(text, e.Keyword, e.Mode):
		d.Reason = ReasonKeyword
	case !MatchCategory(d.Category, e.Category):
		d.Reason = ReasonCategory
	case !MatchLocation(d.Location, e.Locations):
		d.Reason = ReasonLocation
	default:
		d.Matched = true
	}
	return d
}
