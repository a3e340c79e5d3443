// Package extract implements the Extractor interface.
// It isolates the main content from a full HTML page by:
//  1. Finding the best content container (<main>, <article>, or <body>)
//  2. Removing noise elements (nav, footer, scripts, forms, etc.)
//
// Images are kept. A <figure> holding an image is rewritten into a lone
// image whose alt text is the caption and whose title starts with "fig:",
// which the importer reads as a figure.
package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// noiseSelectors are HTML elements removed before extraction.
var noiseSelectors = []string{
	"script", "style", "noscript", "template",
	"nav", "footer", "header", "aside",
	"iframe", "video", "audio",
	"svg", "canvas",
	"form", "button", "input", "select", "textarea",
	".sidebar", ".menu", ".navigation", ".ads", ".advertisement",
}

// Page is the main content of an HTML page with its metadata.
type Page struct {
	Content  string // HTML fragment
	Title    string
	Language string
}

// HTMLExtractor strips noise from HTML and returns the main content fragment.
type HTMLExtractor struct{}

// New creates an HTMLExtractor.
func New() *HTMLExtractor {
	return &HTMLExtractor{}
}

// Extract takes raw HTML and returns a cleaned HTML fragment containing
// only the main content.
func (e *HTMLExtractor) Extract(html string) (string, error) {
	p, err := e.ExtractPage(html)
	if err != nil {
		return "", err
	}
	return p.Content, nil
}

// ExtractPage is Extract plus the page title and language.
func (e *HTMLExtractor) ExtractPage(html string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	page := &Page{
		Title:    strings.TrimSpace(doc.Find("head title").First().Text()),
		Language: doc.Find("html").AttrOr("lang", ""),
	}

	// Remove noise elements first (operates on the whole document).
	for _, sel := range noiseSelectors {
		doc.Find(sel).Remove()
	}

	// <main> is the most semantically correct, then <article>, then <body>.
	var content *goquery.Selection
	for _, tag := range []string{"main", "article", "body"} {
		sel := doc.Find(tag)
		if sel.Length() > 0 {
			content = sel.First()
			break
		}
	}
	if content == nil {
		return nil, fmt.Errorf("no content container found in HTML")
	}

	if err := promoteFigures(content); err != nil {
		return nil, err
	}

	if page.Content, err = goquery.OuterHtml(content); err != nil {
		return nil, fmt.Errorf("serializing content: %w", err)
	}
	return page, nil
}

func promoteFigures(content *goquery.Selection) error {
	var err error
	content.Find("figure").EachWithBreak(func(_ int, fig *goquery.Selection) bool {
		img := fig.Find("img").First()
		if img.Length() == 0 {
			return true
		}
		caption := strings.Join(strings.Fields(fig.Find("figcaption").First().Text()), " ")
		if caption == "" {
			caption = img.AttrOr("alt", "")
		}
		img.SetAttr("alt", caption)
		img.SetAttr("title", "fig:"+img.AttrOr("title", ""))

		var html string
		if html, err = goquery.OuterHtml(img); err != nil {
			err = fmt.Errorf("serializing figure image: %w", err)
			return false
		}
		fig.ReplaceWithHtml("<p>" + html + "</p>")
		return true
	})
	return err
}
