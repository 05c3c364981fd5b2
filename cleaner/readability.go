package cleaner

import (
	nurl "net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// Article is the main-content extraction result.
type Article = readability.Article

// minContentLength is the minimum TextContent length for readability output
// to be trusted. Below it the cleaned document is used instead.
const minContentLength = 50

// ExtractContent runs the Mozilla Readability algorithm on html. The boolean
// is false when extraction failed and the article wraps html unchanged.
func (c *Cleaner) ExtractContent(html, sourceURL string) (Article, bool) {
	parsedURL, err := nurl.Parse(sourceURL)
	if err != nil {
		c.logger.Warn("readability: invalid source URL, using cleaned document",
			"url", sourceURL, "error", err,
		)
		return fallbackArticle(html), false
	}

	article, err := readability.FromReader(strings.NewReader(html), parsedURL)
	if err != nil {
		c.logger.Warn("readability: extraction failed, using cleaned document",
			"url", sourceURL, "error", err,
		)
		return fallbackArticle(html), false
	}

	if len(strings.TrimSpace(article.TextContent)) < minContentLength {
		c.logger.Debug("readability: extracted content too short, using cleaned document",
			"url", sourceURL, "length", len(article.TextContent),
		)
		return fallbackArticle(html), false
	}

	return article, true
}

func fallbackArticle(html string) Article {
	return Article{
		Content:     html,
		TextContent: visibleText(html),
	}
}
