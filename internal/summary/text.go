package summary

import (
	"regexp"
	"strings"
)

var wsRe = regexp.MustCompile(`\s+`)

// Preclean normalizes document text before any token counting: line endings
// become \n, all whitespace runs collapse to a single space, and the result
// is trimmed. Summaries of the same document are stable across extraction
// quirks because budgets and cache keys both see the cleaned form.
func Preclean(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = wsRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// bulletsToParagraphs rewrites a bullet list into one or two prose
// paragraphs. Used when the model leaves the detailed section empty and the
// only material available is a bulleted tier.
func bulletsToParagraphs(text string) string {
	var cleaned []string
	for _, line := range strings.Split(text, "\n") {
		s := strings.TrimSpace(line)
		if s == "" {
			continue
		}
		switch {
		case strings.HasPrefix(s, "- "):
			s = s[2:]
		case strings.HasPrefix(s, "* "):
			s = s[2:]
		case strings.HasPrefix(s, "• "):
			s = strings.TrimPrefix(s, "• ")
		}
		cleaned = append(cleaned, s)
	}

	if len(cleaned) == 0 {
		return ""
	}
	if len(cleaned) == 1 {
		return cleaned[0]
	}

	mid := len(cleaned) / 2
	if mid < 1 {
		mid = 1
	}
	para1 := strings.TrimSpace(strings.Join(cleaned[:mid], " "))
	para2 := strings.TrimSpace(strings.Join(cleaned[mid:], " "))
	if para2 == "" {
		return para1
	}
	return para1 + "\n\n" + para2
}
