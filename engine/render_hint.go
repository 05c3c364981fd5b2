package engine

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	reNoscriptWarning = regexp.MustCompile(`<noscript[^>]*>[^<]*(enable|activate|turn on|requires?)\s+javascript`)
	reEmptyAppRoot    = regexp.MustCompile(`<div id="(root|app|__next)">\s*</div>`)
)

// NeedsJavaScript reports whether a fetched page looks like a client-rendered
// shell whose content only appears after scripts run. The local engine cannot
// execute scripts, so such pages come back nearly empty.
func NeedsJavaScript(rawHTML string) bool {
	text := bodyText(rawHTML)
	if len(text) < 200 {
		return true
	}

	lower := strings.ToLower(rawHTML)
	if reEmptyAppRoot.MatchString(lower) || reNoscriptWarning.MatchString(lower) {
		return true
	}

	return strings.Count(lower, "<script") > 10 && len(text) < 500
}

// bodyText returns the whitespace-collapsed visible text of <body>.
func bodyText(rawHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return ""
	}
	body := doc.Find("body")
	body.Find("script, style, noscript, template").Remove()
	return strings.Join(strings.Fields(body.Text()), " ")
}
