package parser

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/IshaanNene/capexport/internal/types"
)

// TeamLink is one entry of a category directory page.
type TeamLink struct {
	URL   string
	Label string
}

const productDetailsXPath = `//div[contains(concat(' ', normalize-space(@class), ' '), ' product-details ')]`

// ParseTeamLinks returns, in document order, the list-item anchors that point
// at the catalog site itself. Relative and off-site links are navigation, not teams.
func ParseTeamLinks(page *types.Page, siteURL string) ([]TeamLink, error) {
	doc, err := page.Document()
	if err != nil {
		return nil, &types.ParseError{URL: page.URL, Err: err}
	}
	site, err := url.Parse(siteURL)
	if err != nil {
		return nil, &types.ParseError{URL: page.URL, Err: err}
	}

	var links []TeamLink
	doc.Find("li > a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		u, err := url.Parse(href)
		if err != nil || !u.IsAbs() || !sameSite(u, site) {
			return
		}
		links = append(links, TeamLink{
			URL:   href,
			Label: strings.TrimSpace(sel.Text()),
		})
	})
	return links, nil
}

// ParseItemLinks returns the product link of every product-details block: the
// first anchor inside the block, or the first one after it.
func ParseItemLinks(page *types.Page) ([]string, error) {
	root, err := html.Parse(bytes.NewReader(page.Body))
	if err != nil {
		return nil, &types.ParseError{URL: page.URL, Err: err}
	}
	blocks, err := htmlquery.QueryAll(root, productDetailsXPath)
	if err != nil {
		return nil, &types.ParseError{URL: page.URL, Pattern: productDetailsXPath, Err: err}
	}

	base, _ := url.Parse(page.URL)
	var items []string
	for _, block := range blocks {
		a := htmlquery.FindOne(block, `.//a[@href]`)
		if a == nil {
			a = htmlquery.FindOne(block, `following::a[@href][1]`)
		}
		if a == nil {
			continue
		}
		href := strings.TrimSpace(htmlquery.SelectAttr(a, "href"))
		if href == "" {
			continue
		}
		items = append(items, resolve(base, href))
	}
	return items, nil
}

func resolve(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil || base == nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func sameSite(u, site *url.URL) bool {
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.") ==
		strings.TrimPrefix(strings.ToLower(site.Host), "www.")
}
