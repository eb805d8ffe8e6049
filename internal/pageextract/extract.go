// Package pageextract derives intake fields from a captured job page.
package pageextract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const (
	DefaultCompanyName = "Unknown Company"
	DefaultTitle       = "Unknown Title"
	DefaultDescription = "No description found"

	// bodyTextLimit caps the fallback description taken from the page body
	bodyTextLimit = 1000
)

// Fields is what a page yields for job posting intake.
type Fields struct {
	CompanyName string
	Title       string
	Description string
	Industry    *string
}

// Extract reads title from the first h1, company from the og:site_name meta
// tag and description from the first div whose class mentions
// "description", falling back to the body text.
func Extract(pageHTML string) (*Fields, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil, fmt.Errorf("parse page html: %w", err)
	}

	fields := &Fields{
		CompanyName: DefaultCompanyName,
		Title:       DefaultTitle,
		Description: DefaultDescription,
	}

	if title := strings.TrimSpace(doc.Find("h1").First().Text()); title != "" {
		fields.Title = title
	}

	if site, ok := doc.Find(`meta[property="og:site_name"]`).First().Attr("content"); ok {
		if site = strings.TrimSpace(site); site != "" {
			fields.CompanyName = site
		}
	}

	desc := doc.Find("div").FilterFunction(func(_ int, s *goquery.Selection) bool {
		class, ok := s.Attr("class")
		return ok && strings.Contains(strings.ToLower(class), "description")
	}).First()

	if desc.Length() > 0 {
		if text := strings.TrimSpace(desc.Text()); text != "" {
			fields.Description = text
		}
	} else if body := doc.Find("body").First(); body.Length() > 0 {
		if text := truncate(bodyText(body), bodyTextLimit); text != "" {
			fields.Description = text
		}
	}

	return fields, nil
}

// bodyText joins the trimmed, non-empty text nodes under s with newlines,
// skipping script and style contents.
func bodyText(s *goquery.Selection) string {
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style" || n.Data == "noscript") {
			return
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return strings.Join(parts, "\n")
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
