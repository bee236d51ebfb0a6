package healing

import (
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var errInvalidLocator = errors.New("locator description must not be empty")

// CondenseMarkup strips non-structural content from page markup and
// truncates the result to limit runes.
func CondenseMarkup(markup string, limit int) string {
	condensed := markup

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err == nil {
		doc.Find("script, style, noscript, template, link, meta").Remove()
		doc.Find("svg path").RemoveAttr("d")

		if body := doc.Find("body"); body.Length() > 0 {
			if html, err := body.Html(); err == nil {
				condensed = html
			}
		}
	}

	condensed = strings.Join(strings.Fields(condensed), " ")

	return truncateRunes(condensed, limit)
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}

	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}

	return string(runes[:limit])
}
