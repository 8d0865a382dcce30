// Package extract turns fetched HTML from the source site into structured
// records. Selectors target one fixed site's markup, so the policy throughout
// is: a missing element degrades that one field to its zero value, and only
// structurally impossible markup is an error.
package extract

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"comixie/pkg/models"
)

// ExtractionError marks markup that cannot be valid, as opposed to a merely
// missing optional field.
type ExtractionError struct {
	Reason string
}

func (e *ExtractionError) Error() string { return "extract: " + e.Reason }

// SlugFromURL derives the identity slug from a source URL: its last non-empty
// path segment. Applying it to an already-bare slug returns the slug unchanged.
func SlugFromURL(rawURL string) string {
	trimmed := strings.TrimRight(rawURL, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}

var searchLinkRe = regexp.MustCompile(`<a href="([^"]*)"[^>]*>([^<]*)</a>`)

// SearchResults scans the search endpoint's response for category links.
// The endpoint returns the page pre-escaped inside wrapping quotes, so the
// body is normalized as a string and scanned with a link pattern instead of
// being parsed as a DOM tree. No matches means an empty result, not an error.
func SearchResults(body []byte) []models.SearchResult {
	html := strings.TrimSpace(string(body))
	html = strings.Trim(html, `"`)
	html = strings.ReplaceAll(html, `\`, "")

	results := []models.SearchResult{}
	for _, m := range searchLinkRe.FindAllStringSubmatch(html, -1) {
		href, title := m[1], strings.TrimSpace(m[2])
		if !strings.Contains(href, "/category") {
			continue
		}
		results = append(results, models.SearchResult{
			Title: title,
			URL:   href,
			Slug:  SlugFromURL(href),
		})
	}
	return results
}

// ComicDetail is the extracted form of one series page. Partial data is the
// steady state for older pages: any field the page does not expose stays nil.
type ComicDetail struct {
	Title       *string
	Genres      []string
	Publisher   *string
	Description *string
	Image       *string
	Chapters    []models.ChapterRef
}

var descriptionRe = regexp.MustCompile(`(?s)</span><br/>(.*?)<br/>`)

// ParseComicDetail extracts a series page field by field.
func ParseComicDetail(body []byte) (*ComicDetail, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse detail page: %w", err)
	}

	d := &ComicDetail{}

	if title := doc.Find("center div h1 b").First(); title.Length() > 0 {
		t := title.Text()
		d.Title = &t
	}

	if img := doc.Find("center p img").First(); img.Length() > 0 {
		if src, ok := img.Attr("src"); ok {
			d.Image = &src
		}
	}

	// The description has no selector of its own: it is the first paragraph
	// between the marker span and the next line break inside div.b.
	if block := doc.Find("div.b").First(); block.Length() > 0 {
		if raw, err := goquery.OuterHtml(block); err == nil {
			if m := descriptionRe.FindStringSubmatch(raw); m != nil {
				desc := strings.TrimSpace(m[1])
				d.Description = &desc
			}
		}
	}

	// Genres and publisher are unlabeled: the first strong tag after the info
	// paragraph is the genre list, the second is the publisher.
	if info := doc.Find("center div div p").First(); info.Length() > 0 {
		strongs := info.Find("strong")
		if strongs.Length() > 0 {
			d.Genres = strings.Split(strongs.Eq(0).Text(), ", ")
		}
		if strongs.Length() > 1 {
			p := strongs.Eq(1).Text()
			d.Publisher = &p
		}
	}

	doc.Find(".list-story a").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok {
			return
		}
		d.Chapters = append(d.Chapters, models.ChapterRef{
			URL:  href,
			Name: strings.TrimSpace(a.Text()),
			Slug: SlugFromURL(href),
		})
	})

	return d, nil
}

// ChapterImages returns the page image URLs of a reading page, in document
// order. An image element exposing more than one source value is malformed
// markup and fails the whole extraction.
func ChapterImages(body []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse chapter page: %w", err)
	}

	var urls []string
	var extractErr error
	doc.Find("center p img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		src := img.AttrOr("src", "")
		if len(strings.Fields(src)) > 1 {
			extractErr = &ExtractionError{Reason: "image can't have more than one source"}
			return false
		}
		urls = append(urls, src)
		return true
	})
	if extractErr != nil {
		return nil, extractErr
	}
	return urls, nil
}

// HomeListing extracts the teaser entries of a home page. Entries live in
// containers following the "post-" id/class naming convention; a malformed
// entry is dropped and the rest of the page still parses.
func HomeListing(body []byte) ([]models.ListingEntry, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse home page: %w", err)
	}

	entries := []models.ListingEntry{}
	doc.Find(`div[id^="post-"]`).Each(func(_ int, div *goquery.Selection) {
		if !strings.Contains(div.AttrOr("class", ""), "post-") {
			return
		}

		href, ok := div.Find("a").First().Attr("href")
		if !ok {
			return
		}
		image, ok := div.Find("img").First().Attr("src")
		if !ok {
			return
		}
		date := div.Find("center span").First()
		if date.Length() == 0 {
			return
		}

		entries = append(entries, models.ListingEntry{
			URL:   href,
			Slug:  SlugFromURL(href),
			Image: image,
			Name:  div.Find("a.front-link").First().Text(),
			Date:  date.Text(),
		})
	})
	return entries, nil
}
