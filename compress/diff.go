package compress

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Diff returns a unified line-diff transforming old into new.
func Diff(old, new string) string {
	ud := difflib.UnifiedDiff{
		A:       difflib.SplitLines(old),
		B:       difflib.SplitLines(new),
		Context: 3,
	}
	text, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		// The writer is an in-memory buffer; this does not happen.
		return new
	}
	return strings.TrimSuffix(text, "\n")
}

// Apply restores the target side of a unified diff: context and added lines
// in hunk order. Lines outside the diff's context are not recoverable, so a
// full round trip needs a diff produced with enough context.
func Apply(delta string) string {
	var out []string
	inHunk := false
	for _, line := range strings.Split(delta, "\n") {
		switch {
		case strings.HasPrefix(line, "@@"):
			inHunk = true
		case !inHunk:
			continue
		case strings.HasPrefix(line, "+"):
			out = append(out, line[1:])
		case strings.HasPrefix(line, " "):
			out = append(out, line[1:])
		}
	}
	return strings.Join(out, "\n")
}
