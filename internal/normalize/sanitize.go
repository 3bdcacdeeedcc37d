package normalize

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	tagPattern = regexp.MustCompile(`<[^>]*>`)

	// RE2's \s is ASCII only. Widgets send raw NBSP, em spaces and BOMs.
	whitespacePattern = regexp.MustCompile(`[\s\v\p{Zs}\x{2028}\x{2029}\x{FEFF}]+`)

	// entityReplacer decodes the fixed set of named entities chat widgets are
	// known to emit. A single Replacer pass never re-decodes its own output.
	entityReplacer = strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&#039;", "'",
		"&nbsp;", " ",
		"&apos;", "'",
		"&cent;", "¢",
		"&pound;", "£",
		"&yen;", "¥",
		"&euro;", "€",
		"&copy;", "©",
		"&reg;", "®",
	)
)

// Sanitize strips markup from a free-text message field and returns plain
// text: tags removed, known entities decoded, whitespace collapsed and
// trimmed. It never fails; anything it cannot parse is left as text.
//
// Decoding can surface new markup (&lt;b&gt;) or new entities (&amp;lt;),
// so the passes repeat until the text is stable. No pass lengthens the
// text, which bounds the loop by the input length.
func Sanitize(text string) string {
	if text == "" {
		return ""
	}

	out := text
	for {
		next := sanitizeOnce(out)
		if next == out {
			return out
		}
		out = next
	}
}

func sanitizeOnce(s string) string {
	s = tagPattern.ReplaceAllString(s, "")
	s = entityReplacer.Replace(s)
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimFunc(s, unicode.IsSpace)
}
