// Package extractor turns marketplace HTML into listing URLs and structured jobs.
package extractor

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/amishk599/upwatch/internal/model"
)

// ExtractionError is returned when expected markup is missing from a page.
type ExtractionError = model.ExtractionError

const privateListingText = "This job is a private listing."

const (
	selTileHeader  = ".job-tile-header"
	selTitle       = "header.air3-card-section.py-4x h4"
	selDescription = "section.air3-card-section.py-4x p.text-body-sm"
	selFeatures    = "ul.features li"
	selFeatureIcon = "div.air3-icon[data-cy]"
	selPrivate     = "main#main .reason-text h4"
)

// TopListingURL returns the absolute URL of the first listing on a search results page.
func TopListingURL(page string, site Site) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("parsing search page: %w", err)
	}

	tile := doc.Find(selTileHeader).First()
	if tile.Length() == 0 {
		return "", &ExtractionError{Page: "search", Reason: "no job tile found"}
	}

	href, ok := tile.Find("a[href]").First().Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return "", &ExtractionError{Page: "search", Reason: "job tile has no link"}
	}
	return site.Resolve(href), nil
}

// ParseJobDetail extracts a Job from a detail page. A private listing yields
// model.ErrPrivateJob; any other missing markup yields an *ExtractionError.
func ParseJobDetail(page, jobURL string) (model.Job, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return model.Job{}, fmt.Errorf("parsing detail page: %w", err)
	}

	job, reason := parseDetail(doc, jobURL)
	if reason == "" {
		return job, nil
	}
	if isPrivate(doc) {
		return model.Job{}, model.ErrPrivateJob
	}
	return model.Job{}, &ExtractionError{Page: "detail", Reason: reason}
}

// parseDetail returns a non-empty reason when a required node is missing.
func parseDetail(doc *goquery.Document, jobURL string) (model.Job, string) {
	title := doc.Find(selTitle).First()
	if title.Length() == 0 {
		return model.Job{}, "title not found"
	}

	desc := doc.Find(selDescription).First()
	if desc.Length() == 0 {
		return model.Job{}, "description not found"
	}

	items := doc.Find(selFeatures)
	if items.Length() == 0 {
		return model.Job{}, "feature list not found"
	}

	values := make(map[model.FeatureCode]string, items.Length())
	var reason string
	items.EachWithBreak(func(i int, li *goquery.Selection) bool {
		code, value, known, err := parseFeature(li)
		if err != nil {
			reason = fmt.Sprintf("feature %d: %v", i, err)
			return false
		}
		if known {
			values[code] = value
		}
		return true
	})
	if reason != "" {
		return model.Job{}, reason
	}

	return model.Job{
		Link:        jobURL,
		Title:       strings.TrimSpace(title.Text()),
		Description: desc.Text(),
		Features:    model.NewJobFeatures(values),
	}, ""
}

// parseFeature reads one feature node. Nodes without an icon code or with a
// code outside the feature table are skipped (known=false).
func parseFeature(li *goquery.Selection) (code model.FeatureCode, value string, known bool, err error) {
	raw, ok := li.Find(selFeatureIcon).First().Attr("data-cy")
	code = model.FeatureCode(raw)
	if !ok || !model.KnownFeatureCode(code) {
		return "", "", false, nil
	}

	strongs := li.Find("strong")
	if code == model.CodeHourlyRate {
		if strongs.Length() < 2 {
			return "", "", false, fmt.Errorf("hourly rate needs two amounts, got %d", strongs.Length())
		}
		from := strings.TrimSpace(strongs.Eq(0).Text())
		to := strings.TrimSpace(strongs.Eq(1).Text())
		return code, from + "-" + to, true, nil
	}

	if strongs.Length() == 0 {
		return "", "", false, fmt.Errorf("%s has no value", code)
	}
	return code, strings.TrimSpace(strongs.First().Text()), true, nil
}

func isPrivate(doc *goquery.Document) bool {
	h := doc.Find(selPrivate).First()
	return h.Length() > 0 && strings.TrimSpace(h.Text()) == privateListingText
}
