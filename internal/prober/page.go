package prober

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// sponsoredMarkup are class/markup substrings that tag a search result
// entry as a paid placement.
var sponsoredMarkup = []string{
	"AdHolder",
	"s-sponsored-label",
	"puis-sponsored-label",
	"sp-sponsored-result",
}

// searchEntry is one result tile in document order.
type searchEntry struct {
	asin      string
	sponsored bool
}

// parseSearchEntries extracts the result tiles from a search page in
// document order, classifying each as sponsored or organic.
func parseSearchEntries(body []byte) ([]searchEntry, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var entries []searchEntry
	doc.Find("div.s-main-slot div[data-component-type='s-search-result']").Each(func(_ int, sel *goquery.Selection) {
		asin, ok := sel.Attr("data-asin")
		asin = strings.ToUpper(strings.TrimSpace(asin))
		if !ok || asin == "" {
			return
		}
		entries = append(entries, searchEntry{
			asin:      asin,
			sponsored: isSponsored(sel),
		})
	})
	return entries, nil
}

// isSponsored classifies a result tile. Paid placements carry one of
// the known markup substrings on the tile or its descendants, or a
// literal "Sponsored" label in the tile text.
func isSponsored(sel *goquery.Selection) bool {
	if cls, ok := sel.Attr("class"); ok && containsAnyMarker(cls) {
		return true
	}
	if html, err := sel.Html(); err == nil && containsAnyMarker(html) {
		return true
	}
	labelled := false
	sel.Find("span").EachWithBreak(func(_ int, span *goquery.Selection) bool {
		if strings.TrimSpace(span.Text()) == "Sponsored" {
			labelled = true
			return false
		}
		return true
	})
	return labelled
}

func containsAnyMarker(s string) bool {
	for _, marker := range sponsoredMarkup {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

// organicPosition walks the entries in document order, numbering only
// the non-sponsored ones from 1, and returns the target's position.
func organicPosition(entries []searchEntry, asin string) (int, bool) {
	asin = strings.ToUpper(strings.TrimSpace(asin))
	pos := 0
	for _, e := range entries {
		if e.sponsored {
			continue
		}
		pos++
		if e.asin == asin {
			return pos, true
		}
	}
	return 0, false
}
