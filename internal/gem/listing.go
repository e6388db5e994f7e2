package gem

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"bidplus-harvester/internal/models"
	"bidplus-harvester/internal/normalize"
)

type listingParam struct {
	SearchBid  string `json:"searchBid"`
	SearchType string `json:"searchType"`
}

type dateRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type listingFilter struct {
	BidStatusType string    `json:"bidStatusType"`
	ByType        string    `json:"byType"`
	HighBidValue  string    `json:"highBidValue"`
	ByEndDate     dateRange `json:"byEndDate"`
	Sort          string    `json:"sort"`
}

type listingPayload struct {
	Page   int           `json:"page"`
	Param  listingParam  `json:"param"`
	Filter listingFilter `json:"filter"`
}

// ListingPayload returns the compact JSON query for one page of ongoing bids,
// newest start date first.
func ListingPayload(page int, keyword string) ([]byte, error) {
	return json.Marshal(listingPayload{
		Page:  page,
		Param: listingParam{SearchBid: keyword, SearchType: "fullText"},
		Filter: listingFilter{
			BidStatusType: "ongoing_bids",
			ByType:        "all",
			Sort:          "Bid-Start-Date-Latest",
		},
	})
}

type listingResponse struct {
	Response struct {
		Response struct {
			Docs []map[string]any `json:"docs"`
		} `json:"response"`
	} `json:"response"`
}

// FetchPage posts one listing query and returns the raw docs. An empty slice
// means the listing is exhausted.
func (c *Client) FetchPage(ctx context.Context, token string, page int, keyword string) ([]map[string]any, error) {
	payload, err := ListingPayload(page, keyword)
	if err != nil {
		return nil, err
	}
	form := url.Values{}
	form.Set("payload", string(payload))
	form.Set("csrf_bd_gem_nk", token)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+listingDataPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("Referer", c.baseURL+listingPagePath)
	req.Header.Set("Origin", c.baseURL)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	body, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("listing page %d: %w", page, err)
	}
	return DecodeListing(body)
}

// DecodeListing extracts response.response.docs, keeping numbers as json.Number.
func DecodeListing(body []byte) ([]map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var parsed listingResponse
	if err := dec.Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode listing: %w", err)
	}
	return parsed.Response.Response.Docs, nil
}

// DecodeRecord normalizes a raw listing doc. ok is false when no usable id exists.
func DecodeRecord(doc map[string]any) (models.BidRecord, bool) {
	title := normalize.Text(doc["b_title"])
	if title == "" {
		title = normalize.Text(doc["bid_title"])
	}
	rec := models.BidRecord{
		ID:          normalize.Identifier(doc["b_id"]),
		BidNumber:   normalize.BidNumber(doc["b_bid_number"]),
		Title:       title,
		BidType:     normalize.Int(doc["b_bid_type"]),
		EvalType:    normalize.Int(doc["b_eval_type"]),
		StartMillis: normalize.Millis(doc["final_start_date_sort"]),
		EndMillis:   normalize.Millis(doc["final_end_date_sort"]),
		PageContent: FlattenText(doc),
		Raw:         doc,
	}
	return rec, rec.ID != ""
}

// FlattenText joins every string leaf of a decoded JSON value with " | ".
// Map keys are visited in sorted order so output is stable.
func FlattenText(value any) string {
	var parts []string
	collectStrings(value, &parts)
	return strings.Join(parts, " | ")
}

func collectStrings(value any, parts *[]string) {
	switch v := value.(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			*parts = append(*parts, s)
		}
	case []any:
		for _, item := range v {
			collectStrings(item, parts)
		}
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			collectStrings(v[k], parts)
		}
	}
}
