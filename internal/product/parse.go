package product

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"

	"bookscout/internal/types"
)

var (
	priceRe  = regexp.MustCompile(`\$([0-9][0-9,]*\.?[0-9]*)`)
	ratingRe = regexp.MustCompile(`([0-9.]+) out of 5`)
	countRe  = regexp.MustCompile(`([0-9][0-9,]*)`)
	pagesRe  = regexp.MustCompile(`([0-9][0-9,]*)\s+pages`)
	bsrRe    = regexp.MustCompile(`#([0-9][0-9,]*) in ([^(#]+)`)
)

// parseProductPage extracts the tracked signals from a detail page.
// Missing fields stay nil; only an unreadable document is an error.
func parseProductPage(body []byte, asin string) (*Details, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	d := &Details{
		ASIN:          strings.ToUpper(strings.TrimSpace(asin)),
		Title:         strings.TrimSpace(doc.Find("#productTitle").First().Text()),
		BSRCategories: map[string]int{},
	}

	doc.Find("#bylineInfo .author a").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if name := strings.TrimSpace(sel.Text()); name != "" {
			d.Author = name
			return false
		}
		return true
	})

	if title, ok := doc.Find("#acrPopover").Attr("title"); ok {
		if m := ratingRe.FindStringSubmatch(title); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				d.AvgRating = types.FloatPtr(v)
			}
		}
	}
	if m := countRe.FindStringSubmatch(doc.Find("#acrCustomerReviewText").First().Text()); m != nil {
		if v, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", "")); err == nil {
			d.ReviewCount = types.IntPtr(v)
		}
	}

	// Format swatches carry one price per edition.
	doc.Find("#tmmSwatches .swatchElement").Each(func(_ int, sel *goquery.Selection) {
		text := sel.Text()
		price := parsePrice(text)
		if price == nil {
			return
		}
		switch {
		case strings.Contains(text, "Kindle"):
			d.PriceKindle = price
		case strings.Contains(text, "Paperback"):
			d.PricePaperback = price
		}
	})
	if d.PriceKindle == nil {
		d.PriceKindle = parsePrice(doc.Find("#kindle-price").First().Text())
	}

	// Detail bullets hold the print length and sales ranks as loose
	// text; an XPath contains() match is less brittle than chasing
	// the surrounding markup.
	root, err := htmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	for _, node := range htmlquery.Find(root, "//li[contains(., 'Print length') or contains(., 'Print Length')]") {
		if m := pagesRe.FindStringSubmatch(htmlquery.InnerText(node)); m != nil {
			if v, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", "")); err == nil {
				d.PageCount = types.IntPtr(v)
				break
			}
		}
	}
	for _, node := range htmlquery.Find(root, "//li[contains(., 'Best Sellers Rank')] | //*[@id='SalesRank']") {
		text := htmlquery.InnerText(node)
		for i, m := range bsrRe.FindAllStringSubmatch(text, -1) {
			rank, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
			if err != nil {
				continue
			}
			category := strings.TrimSpace(m[2])
			if i == 0 && d.BSROverall == nil {
				d.BSROverall = types.IntPtr(rank)
			}
			if category != "" {
				d.BSRCategories[category] = rank
			}
		}
		if d.BSROverall != nil {
			break
		}
	}

	return d, nil
}

func parsePrice(text string) *float64 {
	m := priceRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return nil
	}
	return types.FloatPtr(v)
}
