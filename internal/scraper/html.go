package scraper

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/ramshi122/crazy-time-predictor/internal/config"
)

type htmlScraper struct {
	src    config.Source
	client *http.Client
}

// Scrape fetches a results page and extracts outcomes from its markup.
//
// Elements carrying a data-result attribute are preferred; the attribute
// value (or, when empty, the element text) is the outcome and a data-time
// attribute or nested <time datetime> supplies the timestamp. Pages without
// such markup fall back to the first cell of each table row.
func (s *htmlScraper) Scrape(ctx context.Context) (*ScrapeResult, error) {
	res := newResult(s.src.ID, "html")

	body, err := fetch(ctx, s.client, s.src.Endpoint, "text/html,application/xhtml+xml")
	if err != nil {
		res.Err = fmt.Errorf("html scrape %q: %w", s.src.ID, err)
		zap.L().Warn("scraper: fetch failed",
			zap.String("source", s.src.ID), zap.String("type", "html"), zap.Error(err))
		return res, nil
	}

	spins, err := parseHTMLHistory(body)
	if err != nil {
		res.Err = fmt.Errorf("html parse %q: %w", s.src.ID, err)
		zap.L().Warn("scraper: parse failed",
			zap.String("source", s.src.ID), zap.String("type", "html"), zap.Error(err))
		return res, nil
	}
	res.Spins = spins
	return res, nil
}

func parseHTMLHistory(body []byte) ([]Spin, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var tagged, rows []Spin
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if v, ok := attr(n, "data-result"); ok {
				result := strings.TrimSpace(v)
				if result == "" {
					result = text(n)
				}
				if result != "" {
					tagged = append(tagged, Spin{Result: result, Time: nodeTime(n)})
				}
				return
			}
			if n.DataAtom == atom.Tr {
				if cell := firstCell(n); cell != nil {
					if result := text(cell); result != "" {
						rows = append(rows, Spin{Result: result, Time: nodeTime(n)})
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if len(tagged) > 0 {
		return tagged, nil
	}
	return rows, nil
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// text returns the whitespace-collapsed text content of n.
func text(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

// firstCell returns the first <td> of a table row; header rows have none.
func firstCell(tr *html.Node) *html.Node {
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Td {
			return c
		}
	}
	return nil
}

// nodeTime looks for a data-time attribute on n or a <time datetime> below it.
func nodeTime(n *html.Node) *time.Time {
	if v, ok := attr(n, "data-time"); ok {
		if t := firstTime(map[string]any{"t": v}, []string{"t"}); t != nil {
			return t
		}
	}
	var found *time.Time
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if found != nil {
			return
		}
		if c.Type == html.ElementNode && c.DataAtom == atom.Time {
			if v, ok := attr(c, "datetime"); ok {
				found = firstTime(map[string]any{"t": v}, []string{"t"})
			}
		}
		for cc := c.FirstChild; cc != nil; cc = cc.NextSibling {
			walk(cc)
		}
	}
	walk(n)
	return found
}
