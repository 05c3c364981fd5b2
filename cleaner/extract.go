package cleaner

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/steel-scraper/models"
)

// ExtractLinks returns the page's http(s) links, resolved against sourceURL
// and deduplicated, in document order.
func ExtractLinks(rawHTML string, sourceURL string) []models.Link {
	links := []models.Link{}

	base, err := url.Parse(sourceURL)
	if err != nil {
		return links
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return links
	}

	seen := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists || href == "" {
			return
		}

		resolved, err := base.Parse(href)
		if err != nil {
			return
		}
		// Skip javascript:, mailto:, tel: etc.
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}
		resolved.Fragment = ""

		absURL := resolved.String()
		if _, ok := seen[absURL]; ok {
			return
		}
		seen[absURL] = struct{}{}

		links = append(links, models.Link{
			URL:  absURL,
			Text: strings.Join(strings.Fields(s.Text()), " "),
		})
	})

	return links
}

// ExtractPageMetadata reads the document title, description, language,
// Open Graph tags and publication time.
func ExtractPageMetadata(rawHTML string) models.PageMetadata {
	var meta models.PageMetadata

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return meta
	}

	meta.Title = strings.TrimSpace(doc.Find("head title").First().Text())
	if lang, ok := doc.Find("html").Attr("lang"); ok {
		meta.Language = strings.TrimSpace(lang)
	}

	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		content := strings.TrimSpace(s.AttrOr("content", ""))
		if content == "" {
			return
		}
		key := s.AttrOr("property", "")
		if key == "" {
			key = s.AttrOr("name", "")
		}
		switch strings.ToLower(key) {
		case "description":
			meta.Description = content
		case "og:title":
			meta.OGTitle = content
		case "og:description":
			meta.OGDescription = content
		case "og:image":
			meta.OGImage = content
		case "article:published_time", "og:published_time", "datepublished":
			if meta.PublishedTimestamp == "" {
				meta.PublishedTimestamp = content
			}
		}
	})

	if meta.Title == "" {
		meta.Title = meta.OGTitle
	}
	return meta
}

// visibleText returns the whitespace-normalized text of an HTML fragment.
func visibleText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
