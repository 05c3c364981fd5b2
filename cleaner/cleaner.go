// Package cleaner turns a raw HTML document into the content representations
// and page metadata a Steel session would return for it.
package cleaner

import (
	"fmt"
	"log/slog"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/use-agent/steel-scraper/models"
)

// Page is everything derived from one HTML document.
type Page struct {
	Content  *models.Representations
	Metadata models.PageMetadata
	Links    []models.Link
}

// Cleaner builds representations from raw HTML. The markdown converter is
// created once and shared; Cleaner is safe for concurrent use.
type Cleaner struct {
	mdConverter *converter.Converter
	logger      *slog.Logger
}

// NewCleaner initialises the Cleaner with a pre-configured Markdown converter.
func NewCleaner(logger *slog.Logger) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{
		mdConverter: newMarkdownConverter(),
		logger:      logger,
	}
}

// Build computes the requested representations of rawHTML, in the order of
// formats. Unknown formats are skipped.
//
// Flow:
//  1. Strip non-content elements for cleaned_html.
//  2. Run readability once if readability or markdown was requested.
//  3. Convert the readability article (or cleaned HTML) to markdown.
//  4. Extract page metadata and links from the raw document.
func (c *Cleaner) Build(rawHTML, sourceURL string, formats []models.Format) (*Page, error) {
	cleaned, err := CleanHTML(rawHTML)
	if err != nil {
		c.logger.Debug("cleaner: html cleanup failed, using raw document", "url", sourceURL, "error", err)
		cleaned = rawHTML
	}

	var (
		article     Article
		extracted   bool
		haveArticle bool
	)
	needArticle := func() {
		if !haveArticle {
			article, extracted = c.ExtractContent(cleaned, sourceURL)
			haveArticle = true
		}
	}

	content := models.NewRepresentations()
	for _, f := range formats {
		if _, done := content.Get(string(f)); done {
			continue
		}
		switch f {
		case models.FormatHTML:
			content.Set(string(f), rawHTML)

		case models.FormatCleanedHTML:
			content.Set(string(f), cleaned)

		case models.FormatReadability:
			needArticle()
			content.Set(string(f), article.TextContent)

		case models.FormatMarkdown:
			needArticle()
			md, err := ToMarkdown(c.mdConverter, article.Content, sourceURL)
			if err != nil {
				return nil, fmt.Errorf("cleaner: markdown conversion: %w", err)
			}
			content.Set(string(f), md)

		default:
			c.logger.Debug("cleaner: skipping unsupported format", "format", f)
		}
	}

	meta := ExtractPageMetadata(rawHTML)
	meta.URLSource = sourceURL
	if haveArticle && extracted {
		if meta.Title == "" {
			meta.Title = article.Title
		}
		if meta.Description == "" {
			meta.Description = article.Excerpt
		}
		if meta.Language == "" {
			meta.Language = article.Language
		}
	}

	return &Page{
		Content:  content,
		Metadata: meta,
		Links:    ExtractLinks(rawHTML, sourceURL),
	}, nil
}
