package web

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// assetSelectors pick the subresources a page needs to render offline.
var assetSelectors = map[string]string{
	`link[rel="stylesheet"]`:       "href",
	`link[rel="manifest"]`:         "href",
	`link[rel~="icon"]`:            "href",
	`link[rel="apple-touch-icon"]`: "href",
	`script[src]`:                  "src",
}

// Discover fetches the root document and lists precache candidates: the
// document itself plus its stylesheets, scripts, web manifest and icons.
func Discover(ctx context.Context, client *Client, rootURL string) ([]string, error) {
	if !strings.HasPrefix(rootURL, "http://") && !strings.HasPrefix(rootURL, "https://") {
		return nil, fmt.Errorf("url must start with http:// or https://")
	}
	base, err := url.Parse(rootURL)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rootURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("root document status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, err
	}
	return discoverAssets(doc, base), nil
}

func discoverAssets(doc *goquery.Document, base *url.URL) []string {
	set := map[string]struct{}{base.String(): {}}
	for sel, attr := range assetSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			ref := strings.TrimSpace(s.AttrOr(attr, ""))
			if ref == "" || strings.HasPrefix(ref, "data:") || strings.HasPrefix(ref, "javascript:") {
				return
			}
			u, err := url.Parse(ref)
			if err != nil {
				return
			}
			abs := base.ResolveReference(u)
			if abs.Scheme != "http" && abs.Scheme != "https" {
				return
			}
			abs.Fragment = ""
			set[abs.String()] = struct{}{}
		})
	}
	out := make([]string, 0, len(set))
	for u := range set {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}
