package extract

import (
	"regexp"
	"strings"
)

// tocScanWindow bounds how deep into a document a table of contents is
// looked for. Real TOCs sit in the first few pages.
const tocScanWindow = 300

var (
	tocTitleRe       = regexp.MustCompile(`(?i)^#{0,6}\s*(table of contents|contents)\s*$`)
	dotLeaderRe      = regexp.MustCompile(`\.{3,}\s*\d+\s*$`)
	pageNumberLineRe = regexp.MustCompile(`(?i)^\s*(?:page\s+)?\d+(?:\s+(?:of|/)\s*\d+)?\s*$`)
	chapterHeadingRe = regexp.MustCompile(`^(?:#{1,6}\s+\S|\d+(?:\.\d+)*[.)]?\s+\S)`)
	excessiveBlankRe = regexp.MustCompile(`\n{4,}`)
)

// Cleanup removes the cover/TOC/preamble region and extraction artifacts
// from raw markdown: dot-leader TOC lines, bare page-number lines, trailing
// whitespace, and blank runs longer than two lines.
func Cleanup(markdown string) string {
	lines := strings.Split(markdown, "\n")
	lines = lines[contentStart(lines):]

	kept := lines[:0]
	for _, line := range lines {
		if dotLeaderRe.MatchString(line) || pageNumberLineRe.MatchString(line) {
			continue
		}
		kept = append(kept, strings.TrimRight(line, " \t"))
	}

	out := strings.Join(kept, "\n")
	out = excessiveBlankRe.ReplaceAllString(out, "\n\n\n")
	return strings.TrimSpace(out)
}

// contentStart returns the index of the first real content line: the first
// chapter heading after the table of contents, when one is found.
func contentStart(lines []string) int {
	lastTOC := -1
	window := len(lines)
	if window > tocScanWindow {
		window = tocScanWindow
	}
	for i := 0; i < window; i++ {
		trimmed := strings.TrimSpace(lines[i])
		if tocTitleRe.MatchString(trimmed) || dotLeaderRe.MatchString(lines[i]) {
			lastTOC = i
		}
	}

	for i := lastTOC + 1; i < len(lines); i++ {
		if chapterHeadingRe.MatchString(strings.TrimSpace(lines[i])) {
			return i
		}
	}
	if lastTOC >= 0 && lastTOC+1 < len(lines) {
		return lastTOC + 1
	}
	return 0
}
