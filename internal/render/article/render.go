// Package article turns the HTML content of a saved entry into wrapped,
// lightly styled terminal lines for the detail view.
package article

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	nethtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/glabrego/sitebag-cli/internal/sitebag"
)

var reANSI = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// ContentLines renders entry content wrapped to width. Entries without
// content fall back to their short text.
func ContentLines(entry sitebag.Entry, width int) []string {
	width = max(1, width)
	if content := strings.TrimSpace(entry.Content); content != "" {
		if lines := renderFragment(content, width); len(lines) > 0 {
			return lines
		}
	}
	if short := strings.TrimSpace(entry.ShortText); short != "" {
		return Wrap(short, width)
	}
	return nil
}

// PlainText is ContentLines without styling, joined by newlines.
func PlainText(entry sitebag.Entry, width int) string {
	return StripANSI(strings.Join(ContentLines(entry, width), "\n"))
}

func StripANSI(s string) string {
	return reANSI.ReplaceAllString(s, "")
}

func renderFragment(raw string, width int) []string {
	nodes, err := nethtml.ParseFragment(strings.NewReader(raw), &nethtml.Node{
		Type:     nethtml.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return Wrap(html.UnescapeString(raw), width)
	}
	r := &renderer{width: width}
	r.blocks(nodes, 0)
	r.flush()
	return compactBlank(r.out)
}

type renderer struct {
	width  int
	out    []string
	inline []string
}

func (r *renderer) emit(lines ...string) {
	if len(lines) == 0 {
		return
	}
	if n := len(r.out); n > 0 && r.out[n-1] != "" {
		r.out = append(r.out, "")
	}
	r.out = append(r.out, lines...)
}

func (r *renderer) flush() {
	text := collapse(strings.Join(r.inline, ""))
	r.inline = r.inline[:0]
	if text != "" {
		r.emit(Wrap(text, r.width)...)
	}
}

func (r *renderer) blocks(nodes []*nethtml.Node, depth int) {
	for _, n := range nodes {
		switch {
		case n.Type == nethtml.TextNode:
			r.inline = append(r.inline, n.Data)
		case n.Type == nethtml.ElementNode && isBlock(n.Data):
			r.flush()
			r.block(n, depth)
		case n.Type == nethtml.ElementNode:
			r.inline = append(r.inline, inlineText(n))
		}
	}
}

func (r *renderer) block(n *nethtml.Node, depth int) {
	switch tag := strings.ToLower(n.Data); tag {
	case "script", "style", "noscript", "iframe":
	case "h1", "h2", "h3", "h4", "h5", "h6":
		text := collapse(inlineChildren(n))
		if text == "" {
			return
		}
		prefix := strings.Repeat("#", int(tag[1]-'0')) + " "
		lines := wrapPrefixed(text, r.width, prefix, strings.Repeat(" ", len(prefix)))
		for i := range lines {
			lines[i] = headingStyle.Render(lines[i])
		}
		r.emit(lines...)
	case "ul", "ol":
		r.emit(r.list(n, tag == "ol", depth)...)
	case "blockquote":
		sub := &renderer{width: max(1, r.width-2)}
		sub.blocks(children(n), depth)
		sub.flush()
		lines := compactBlank(sub.out)
		for i, line := range lines {
			if line != "" {
				lines[i] = quoteBar + quoteStyle.Render(line)
			}
		}
		r.emit(lines...)
	case "pre":
		var lines []string
		for _, line := range strings.Split(strings.ReplaceAll(rawText(n), "\r\n", "\n"), "\n") {
			line = strings.TrimRight(line, " \t")
			if line == "" {
				lines = append(lines, "")
				continue
			}
			lines = append(lines, "    "+codeStyle.Render(line))
		}
		r.emit(compactBlank(lines)...)
	case "tr":
		var cells []string
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == nethtml.ElementNode && (c.Data == "td" || c.Data == "th") {
				cells = append(cells, collapse(inlineChildren(c)))
			}
		}
		if len(cells) > 0 {
			r.out = append(r.out, Wrap(strings.Join(cells, " | "), r.width)...)
		}
	case "hr":
		r.emit(strings.Repeat("─", min(r.width, 24)))
	case "img":
		alt := collapse(attr(n, "alt"))
		if alt == "" {
			alt = "image"
		}
		r.emit(imageStyle.Render("[" + alt + "]"))
	default:
		if hasBlockChild(n) {
			r.blocks(children(n), depth)
			r.flush()
			return
		}
		if text := collapse(inlineChildren(n)); text != "" {
			r.emit(Wrap(text, r.width)...)
		}
	}
}

func (r *renderer) list(n *nethtml.Node, ordered bool, depth int) []string {
	indent := strings.Repeat("  ", depth)
	var lines []string
	idx := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != nethtml.ElementNode || strings.ToLower(c.Data) != "li" {
			continue
		}
		idx++
		marker := "• "
		if ordered {
			marker = fmt.Sprintf("%d. ", idx)
		}
		var text strings.Builder
		var nested []string
		for gc := c.FirstChild; gc != nil; gc = gc.NextSibling {
			if gc.Type == nethtml.ElementNode && (gc.Data == "ul" || gc.Data == "ol") {
				nested = append(nested, r.list(gc, gc.Data == "ol", depth+1)...)
				continue
			}
			if gc.Type == nethtml.TextNode {
				text.WriteString(gc.Data)
			} else {
				text.WriteString(inlineText(gc))
			}
		}
		lines = append(lines, wrapPrefixed(collapse(text.String()), r.width, indent+marker, indent+strings.Repeat(" ", utf8.RuneCountInString(marker)))...)
		lines = append(lines, nested...)
	}
	return lines
}

func inlineChildren(n *nethtml.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == nethtml.TextNode {
			b.WriteString(c.Data)
			continue
		}
		b.WriteString(inlineText(c))
	}
	return b.String()
}

func inlineText(n *nethtml.Node) string {
	if n.Type == nethtml.TextNode {
		return n.Data
	}
	if n.Type != nethtml.ElementNode {
		return ""
	}
	switch strings.ToLower(n.Data) {
	case "script", "style", "noscript", "img":
		return ""
	case "br":
		return "\n"
	case "a":
		text := collapse(inlineChildren(n))
		href := attr(n, "href")
		switch {
		case href == "" || strings.HasPrefix(href, "#"):
			return text
		case text == "" || text == href:
			return linkStyle.Render(href)
		default:
			return text + " " + linkStyle.Render("("+href+")")
		}
	case "code", "kbd", "samp":
		if text := collapse(inlineChildren(n)); text != "" {
			return codeStyle.Render("`" + text + "`")
		}
		return ""
	default:
		return inlineChildren(n)
	}
}

func isBlock(tag string) bool {
	switch strings.ToLower(tag) {
	case "p", "div", "section", "article", "main", "header", "footer", "aside", "nav",
		"h1", "h2", "h3", "h4", "h5", "h6", "ul", "ol", "blockquote", "pre", "hr",
		"figure", "figcaption", "table", "thead", "tbody", "tfoot", "tr", "img", "script", "style", "noscript", "iframe":
		return true
	}
	return false
}

func hasBlockChild(n *nethtml.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == nethtml.ElementNode && isBlock(c.Data) {
			return true
		}
	}
	return false
}

func children(n *nethtml.Node) []*nethtml.Node {
	var out []*nethtml.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

func attr(n *nethtml.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func rawText(n *nethtml.Node) string {
	if n.Type == nethtml.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(rawText(c))
	}
	return b.String()
}

// collapse folds whitespace runs to single spaces but keeps explicit line
// breaks from <br>.
func collapse(s string) string {
	parts := strings.Split(html.UnescapeString(s), "\n")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.Join(strings.Fields(p), " "); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n")
}

// Wrap breaks text into lines of at most width visible runes, splitting
// words longer than a line.
func Wrap(text string, width int) []string {
	if width < 1 {
		return strings.Split(text, "\n")
	}
	var out []string
	for _, para := range strings.Split(text, "\n") {
		line, lineLen := "", 0
		for _, word := range strings.Fields(para) {
			wl := visibleLen(word)
			for wl > width && !strings.Contains(word, "\x1b") {
				if line != "" {
					out = append(out, line)
					line, lineLen = "", 0
				}
				cut := byteOffset(word, width)
				out = append(out, word[:cut])
				word = word[cut:]
				wl = visibleLen(word)
			}
			switch {
			case line == "":
				line, lineLen = word, wl
			case lineLen+1+wl <= width:
				line += " " + word
				lineLen += 1 + wl
			default:
				out = append(out, line)
				line, lineLen = word, wl
			}
		}
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

func wrapPrefixed(text string, width int, first, rest string) []string {
	if text == "" {
		return nil
	}
	lines := Wrap(text, max(1, width-utf8.RuneCountInString(first)))
	for i := range lines {
		if i == 0 {
			lines[i] = first + lines[i]
		} else {
			lines[i] = rest + lines[i]
		}
	}
	return lines
}

func compactBlank(lines []string) []string {
	var out []string
	for _, line := range lines {
		blank := strings.TrimSpace(StripANSI(line)) == ""
		if blank && (len(out) == 0 || out[len(out)-1] == "") {
			continue
		}
		if blank {
			line = ""
		}
		out = append(out, line)
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return out
}

func visibleLen(s string) int {
	return utf8.RuneCountInString(StripANSI(s))
}

func byteOffset(s string, runes int) int {
	i := 0
	for pos := range s {
		if i == runes {
			return pos
		}
		i++
	}
	return len(s)
}
