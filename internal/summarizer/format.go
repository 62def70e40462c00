package summarizer

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	linkSeparator = " — "
	codeFence     = "```"
)

var (
	ErrEmptyOutput     = errors.New("model returned empty output")
	ErrMalformedOutput = errors.New("model output does not match the summary format")
)

var (
	strictBodyRe = regexp.MustCompile(`^The \*\*[^*]+\*\* did \*\*[^*]+\*\* that has \*\*[^*]+\*\*\.$`)
	boldRe       = regexp.MustCompile(`\*\*[^*]+\*\*`)
)

// Format turns raw model output into the final summary line. The link
// destination is always replaced with url, so the result echoes it byte for
// byte; rewritten reports whether the model had changed it.
func (t Template) Format(output, url string) (summary string, rewritten bool, err error) {
	text := normalizeOutput(output)
	if text == "" {
		return "", false, ErrEmptyOutput
	}

	title, dest, body, ok := splitLink(text)
	if !ok {
		return "", false, fmt.Errorf(
			"%w: expected a leading [title](url) link followed by %q",
			ErrMalformedOutput,
			linkSeparator,
		)
	}

	if strings.Trim(title, "* ") == "" {
		return "", false, fmt.Errorf("%w: title is empty", ErrMalformedOutput)
	}

	if t.Strict {
		if !strictBodyRe.MatchString(body) {
			return "", false, fmt.Errorf("%w: sentence %q is not in the template shape", ErrMalformedOutput, body)
		}
	} else if !boldRe.MatchString(body) {
		return "", false, fmt.Errorf("%w: no bold text after the link", ErrMalformedOutput)
	}

	return "[" + title + "](" + url + ")" + linkSeparator + body, dest != url, nil
}

func normalizeOutput(output string) string {
	text := strings.TrimSpace(output)

	if strings.HasPrefix(text, codeFence) {
		if newline := strings.IndexByte(text, '\n'); newline >= 0 {
			text = text[newline+1:]
		} else {
			text = strings.TrimPrefix(text, codeFence)
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), codeFence)
	}

	return strings.Join(strings.Fields(text), " ")
}

func splitLink(text string) (title, dest, body string, ok bool) {
	if !strings.HasPrefix(text, "[") {
		return "", "", "", false
	}

	titleEnd := strings.Index(text[1:], "](")
	if titleEnd < 0 {
		return "", "", "", false
	}
	titleEnd++

	rest := text[titleEnd+len("]("):]
	destEnd := strings.Index(rest, ")"+linkSeparator)
	if destEnd < 0 {
		return "", "", "", false
	}

	return text[1:titleEnd], rest[:destEnd], rest[destEnd+len(")"+linkSeparator):], true
}
