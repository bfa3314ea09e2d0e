package song

import (
	"fmt"
	"strings"
)

// Format renders a result as plain text for terminals.
func Format(r *Result) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "《%s》 [%s] %s · %s\n", r.Title, r.ID, r.Style, r.Mood)
	fmt.Fprintf(&sb, "cover: %s\n", r.Cover)
	for _, v := range r.Variants {
		fmt.Fprintf(&sb, "\n== %s: %s ==\n", v.Type, v.Label)
		sb.WriteString(v.Lyrics)
		fmt.Fprintf(&sb, "\n\n[Suno Prompt: %s]\n", v.SunoPrompt)
	}
	return sb.String()
}
