package extract

import (
	"context"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const blockElements = "title, p, div, br, li, tr, h1, h2, h3, h4, h5, h6, pre, blockquote, section, article"

// extractHTML returns the visible text of an HTML page, one non-blank line per row.
func extractHTML(_ context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript, template").Remove()
	doc.Find(blockElements).Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	lines := strings.Split(doc.Text(), "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n"), nil
}
