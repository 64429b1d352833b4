package search

import (
	"html"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/Aman-CERP/sitesearch/internal/fieldconfig"
)

// DefaultHighlightWords is the length of a highlighted excerpt.
const DefaultHighlightWords = 25

// Ellipsis marks text cut from an excerpt.
const Ellipsis = "..."

// Terms returns the plain words of a query string, lowercased, without
// operators, field prefixes, or quotes.
func Terms(query string) []string {
	var terms []string
	seen := make(map[string]bool)
	for _, tok := range strings.Fields(query) {
		tok = strings.TrimLeft(tok, "+-")
		if i := strings.IndexByte(tok, ':'); i >= 0 {
			tok = tok[i+1:]
		}
		tok = strings.ToLower(trimPunct(tok))
		if tok == "" || seen[tok] {
			continue
		}
		switch tok {
		case "and", "or", "not":
			continue
		}
		seen[tok] = true
		terms = append(terms, tok)
	}
	return terms
}

func trimPunct(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// Highlight returns an HTML excerpt of text with terms wrapped in <strong>.
// Markup in text is stripped and the remainder escaped. Text longer than
// numWords words is cut to numWords words starting two words before the
// first term found, with an ellipsis wherever text was cut.
func Highlight(text string, terms []string, numWords int) string {
	if numWords <= 0 {
		numWords = DefaultHighlightWords
	}
	words := strings.Fields(fieldconfig.StripTags(text))

	if len(words) > numWords {
		first := firstMatch(words, terms)
		from := max(0, first-2)
		to := min(from+numWords, len(words))
		excerpt := strings.Join(words[from:to], " ")
		if to < len(words) {
			excerpt += Ellipsis
		}
		if from > 0 {
			excerpt = Ellipsis + excerpt
		}
		words = []string{excerpt}
	}

	plain := strings.Join(words, " ")
	re := termPattern(terms)
	if re == nil {
		return html.EscapeString(plain)
	}

	var b strings.Builder
	last := 0
	for _, m := range re.FindAllStringIndex(plain, -1) {
		b.WriteString(html.EscapeString(plain[last:m[0]]))
		b.WriteString("<strong>")
		b.WriteString(html.EscapeString(plain[m[0]:m[1]]))
		b.WriteString("</strong>")
		last = m[1]
	}
	b.WriteString(html.EscapeString(plain[last:]))
	return b.String()
}

// termPattern matches any of terms as a whole word, ignoring case. Longer
// terms come first so a term never shadows one it prefixes.
func termPattern(terms []string) *regexp.Regexp {
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		if t != "" {
			quoted = append(quoted, regexp.QuoteMeta(t))
		}
	}
	if len(quoted) == 0 {
		return nil
	}
	sort.Slice(quoted, func(i, j int) bool { return len(quoted[i]) > len(quoted[j]) })
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// firstMatch returns the index of the first word equal to any term,
// ignoring case and surrounding punctuation, or 0.
func firstMatch(words, terms []string) int {
	want := make(map[string]bool, len(terms))
	for _, t := range terms {
		want[strings.ToLower(t)] = true
	}
	for i, w := range words {
		if want[strings.ToLower(trimPunct(w))] {
			return i
		}
	}
	return 0
}
