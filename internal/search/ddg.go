package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	DefaultDDGEndpoint = "https://lite.duckduckgo.com/lite/"
	ddgUserAgent       = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

// DDGLite scrapes DuckDuckGo's lite HTML endpoint. It needs no key and is
// the fallback when no Serper key is configured.
type DDGLite struct {
	endpoint string
	http     *http.Client
}

func NewDDGLite() *DDGLite {
	return &DDGLite{
		endpoint: DefaultDDGEndpoint,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (d *DDGLite) WithEndpoint(endpoint string) *DDGLite {
	d.endpoint = endpoint
	return d
}

func (d *DDGLite) Search(ctx context.Context, query string, max int) ([]Result, error) {
	max = clampMax(max)
	u := d.endpoint + "?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", ddgUserAgent)
	resp, err := d.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ddg: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("ddg: status %d", resp.StatusCode)
	}
	return parseDDGLite(io.LimitReader(resp.Body, 2<<20), max)
}

// parseDDGLite walks the lite results table. Each a.result-link opens a
// result; the td.result-snippet that follows it belongs to that result.
func parseDDGLite(r io.Reader, max int) ([]Result, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("ddg: parse: %w", err)
	}
	var (
		out     []Result
		pending bool
	)
	for n := range doc.Descendants() {
		if n.Type != html.ElementNode {
			continue
		}
		switch {
		case n.DataAtom == atom.A && hasClass(n, "result-link"):
			if len(out) == max {
				pending = false
				continue
			}
			link := attr(n, "href")
			if !strings.HasPrefix(link, "http://") && !strings.HasPrefix(link, "https://") {
				pending = false
				continue
			}
			out = append(out, Result{Title: textOf(n), URL: link})
			pending = true
		case n.DataAtom == atom.Td && hasClass(n, "result-snippet"):
			if pending {
				out[len(out)-1].Snippet = textOf(n)
				pending = false
			}
		}
	}
	for i := range out {
		if out[i].Snippet == "" {
			out[i].Snippet = fmt.Sprintf("Source: %s (%s)", out[i].Title, out[i].URL)
		}
	}
	return out, nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	return slices.Contains(strings.Fields(attr(n, "class")), class)
}

// textOf joins the text below n with single spaces.
func textOf(n *html.Node) string {
	var b strings.Builder
	for c := range n.Descendants() {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
