package gitinspect

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"tributary.dev/cli/cmd/tributary/cli/ledger"
)

// changedRanges compares two text contents line by line and returns the
// coalesced ranges of lines in current that differ from baseline. Line
// numbers refer to current. Pure deletions leave no lines in current to
// point at, so they contribute nothing.
func changedRanges(baseline, current string) []ledger.LineRange {
	if baseline == current {
		return nil
	}
	if current == "" {
		return nil
	}
	if baseline == "" {
		n := countLinesStr(current)
		if n == 0 {
			return nil
		}
		return []ledger.LineRange{{Start: 1, End: n}}
	}

	dmp := diffmatchpatch.New()

	// Line-based diff via the DiffLinesToChars/DiffCharsToLines pattern.
	text1, text2, lineArray := dmp.DiffLinesToChars(baseline, current)
	diffs := dmp.DiffMain(text1, text2, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var ranges []ledger.LineRange
	line := 1 // next line number in current
	for _, d := range diffs {
		lines := countLinesStr(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			line += lines
		case diffmatchpatch.DiffInsert:
			if lines > 0 {
				ranges = append(ranges, ledger.LineRange{Start: line, End: line + lines - 1})
			}
			line += lines
		case diffmatchpatch.DiffDelete:
			// Removed lines do not exist in current.
		}
	}

	return ledger.NormalizeRanges(ranges)
}

// countLinesStr returns the number of lines in a string.
// An empty string has 0 lines. A string without a trailing newline still
// counts its final partial line.
func countLinesStr(content string) int {
	if content == "" {
		return 0
	}
	n := strings.Count(content, "\n")
	if !strings.HasSuffix(content, "\n") {
		n++
	}
	return n
}
