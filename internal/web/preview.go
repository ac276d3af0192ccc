package web

import (
	"strings"

	"github.com/rivo/uniseg"
)

// DefaultPreviewGraphemes is where long content is cut when no limit is set
const DefaultPreviewGraphemes = 300

// Preview cuts content after limit user-perceived characters. The second
// result reports whether anything was cut, which shows the "Show more" link.
func Preview(content string, limit int) (string, bool) {
	if limit <= 0 {
		limit = DefaultPreviewGraphemes
	}
	if uniseg.GraphemeClusterCount(content) <= limit {
		return content, false
	}

	var b strings.Builder
	g := uniseg.NewGraphemes(content)
	for n := 0; n < limit && g.Next(); n++ {
		b.WriteString(g.Str())
	}
	return strings.TrimRightFunc(b.String(), isSpace) + "…", true
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t' || r == '\r'
}
