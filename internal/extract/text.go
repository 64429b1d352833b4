package extract

import (
	"context"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/encoding/charmap"
	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ExtractPlain returns the file contents as UTF-8. A byte order mark
// selects UTF-8 or UTF-16; other input that is not valid UTF-8 is read as
// Windows-1252.
func ExtractPlain(_ context.Context, filename string) (string, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return "", err
	}
	if utf8.Valid(data) {
		return strings.TrimPrefix(string(data), "\uFEFF"), nil
	}
	decoded, _, err := transform.Bytes(xunicode.BOMOverride(charmap.Windows1252.NewDecoder()), data)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// ExtractHTML returns the visible text of the document body. Script and
// style content is skipped and whitespace runs are collapsed.
func ExtractHTML(_ context.Context, filename string) (string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return "", err
	}
	defer f.Close()

	doc, err := html.Parse(f)
	if err != nil {
		return "", err
	}
	body := findElement(doc, atom.Body)
	if body == nil {
		body = doc
	}

	var words []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			words = append(words, strings.Fields(n.Data)...)
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template:
				return
			}
		case html.CommentNode:
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(body)
	return strings.Join(words, " "), nil
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}
