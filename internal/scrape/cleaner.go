// ABOUTME: Cleaners turn page HTML into plain text ready for chunking
// ABOUTME: Boilerplate regions are dropped and block boundaries become line breaks
package scrape

import (
	"fmt"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Cleaner extracts readable text from a fetched page
type Cleaner interface {
	Clean(page Page) (string, error)
}

// skippedTags never contribute text
var skippedTags = map[atom.Atom]bool{
	atom.Nav:      true,
	atom.Header:   true,
	atom.Footer:   true,
	atom.Aside:    true,
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Svg:      true,
	atom.Form:     true,
	atom.Iframe:   true,
	atom.Template: true,
	atom.Head:     true,
}

// skippedRoles mark landmark regions that are site chrome rather than content
var skippedRoles = map[string]bool{
	"navigation":  true,
	"banner":      true,
	"contentinfo": true,
}

// paragraphTags end with a blank line, lineTags with a single newline
var (
	paragraphTags = map[atom.Atom]bool{
		atom.P: true, atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
		atom.Section: true, atom.Article: true, atom.Main: true, atom.Blockquote: true, atom.Pre: true,
		atom.Ul: true, atom.Ol: true, atom.Dl: true, atom.Table: true, atom.Figure: true,
	}
	lineTags = map[atom.Atom]bool{
		atom.Div: true, atom.Li: true, atom.Tr: true, atom.Br: true, atom.Dt: true, atom.Dd: true,
		atom.Figcaption: true, atom.Hr: true,
	}
)

// BoilerplateCleaner strips site chrome and keeps paragraph structure
type BoilerplateCleaner struct{}

// Clean walks the DOM and returns collapsed text
func (BoilerplateCleaner) Clean(page Page) (string, error) {
	doc, err := html.Parse(strings.NewReader(page.HTML))
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", page.Locator, err)
	}

	var b strings.Builder
	walkText(&b, doc)
	return collapseWhitespace(b.String()), nil
}

func walkText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(inlineSpace(n.Data))
		return
	case html.ElementNode:
		if skippedTags[n.DataAtom] || skippedRoles[attr(n, "role")] || attr(n, "aria-hidden") == "true" {
			return
		}
	}

	breaks := 0
	if n.Type == html.ElementNode {
		switch {
		case paragraphTags[n.DataAtom]:
			breaks = 2
		case lineTags[n.DataAtom]:
			breaks = 1
		}
	}

	ensureBreak(b, breaks)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkText(b, c)
	}
	ensureBreak(b, breaks)
}

// ensureBreak tops up trailing newlines so adjacent blocks do not stack blank lines
func ensureBreak(b *strings.Builder, want int) {
	if want == 0 {
		return
	}
	s := b.String()
	have := 0
	for i := len(s) - 1; i >= 0 && have < want; i-- {
		c := s[i]
		if c == '\n' {
			have++
		} else if c != ' ' && c != '\t' && c != '\r' {
			break
		}
	}
	for ; have < want; have++ {
		b.WriteByte('\n')
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.ToLower(strings.TrimSpace(a.Val))
		}
	}
	return ""
}

// inlineSpace turns any whitespace run inside a text node into one space
func inlineSpace(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		if s != "" {
			return " "
		}
		return ""
	}
	out := strings.Join(fields, " ")
	if strings.TrimLeftFunc(s[:1], isSpace) == "" {
		out = " " + out
	}
	if strings.TrimRightFunc(s[len(s)-1:], isSpace) == "" {
		out += " "
	}
	return out
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' || r == '\v'
}

// collapseWhitespace squeezes each line and keeps at most one blank line between paragraphs
func collapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if len(out) > 0 {
				blank = true
			}
			continue
		}
		if blank {
			out = append(out, "")
			blank = false
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// ReadabilityCleaner extracts the main article with go-readability
type ReadabilityCleaner struct {
	Fallback Cleaner
}

// Clean returns the article text, falling back when readability finds nothing
func (rc ReadabilityCleaner) Clean(page Page) (string, error) {
	u, err := url.Parse(page.URL)
	if err != nil {
		u = &url.URL{}
	}

	article, err := readability.FromReader(strings.NewReader(page.HTML), u)
	if err == nil {
		if text := collapseWhitespace(article.TextContent); text != "" {
			return text, nil
		}
	}

	if rc.Fallback != nil {
		return rc.Fallback.Clean(page)
	}
	if err != nil {
		return "", fmt.Errorf("readability %s: %w", page.Locator, err)
	}
	return "", nil
}

// NewCleaner returns the cleaner for a mode name
func NewCleaner(mode string) (Cleaner, error) {
	switch mode {
	case "", "boilerplate":
		return BoilerplateCleaner{}, nil
	case "readability":
		return ReadabilityCleaner{Fallback: BoilerplateCleaner{}}, nil
	default:
		return nil, fmt.Errorf("unknown cleaner mode %q", mode)
	}
}
