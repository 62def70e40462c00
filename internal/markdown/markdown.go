package markdown

import "strings"

// Taken from https://core.telegram.org/bots/api#markdownv2-style.
const (
	mdV2SpecialChars = `._[](){}#|!+-=*~>` + "`"
	mdV2CodeChars    = "`\\"
)

//nolint:gochecknoglobals // Lookup tables meant to be immutable.
var (
	mdV2Lookup   = lookup(mdV2SpecialChars + `\`)
	mdV2CodeLook = lookup(mdV2CodeChars)
)

// EscapeV2 escapes text for MarkdownV2 outside of entities.
func EscapeV2(input string) string {
	return escape(input, &mdV2Lookup)
}

// EscapeCode escapes text for the inside of a MarkdownV2 pre or code entity,
// where only backticks and backslashes are special.
func EscapeCode(input string) string {
	return escape(input, &mdV2CodeLook)
}

// CodeBlock wraps text into a pre block with a language hint, so Telegram
// shows it with a copy button.
func CodeBlock(language, text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(language) + 8)

	b.WriteString("```")
	b.WriteString(language)
	b.WriteByte('\n')
	b.WriteString(EscapeCode(text))
	b.WriteString("\n```")

	return b.String()
}

func escape(input string, table *[256]bool) string {
	charsToEscape := 0

	for i := range len(input) {
		if table[input[i]] {
			charsToEscape++
		}
	}
	if charsToEscape == 0 {
		return input
	}

	var b strings.Builder
	b.Grow(len(input) + charsToEscape)

	for i := range len(input) {
		c := input[i]
		if table[c] {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}

	return b.String()
}

func lookup(chars string) [256]bool {
	var m [256]bool
	for i := range len(chars) {
		m[chars[i]] = true
	}
	return m
}
