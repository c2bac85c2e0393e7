package files

import (
	"fmt"
	"strings"
)

// MatchStrategy names the cascade tier that located a match, reported back
// to the caller in ToolResult.metadata.data so the UI can explain a fuzzy
// match.
type MatchStrategy string

const (
	StrategyExact  MatchStrategy = "Exact"
	StrategyLine   MatchStrategy = "Line"
	StrategyBlock  MatchStrategy = "Block"
	StrategyAnchor MatchStrategy = "Anchor"
	StrategyIndent MatchStrategy = "Indent"
	StrategyHybrid MatchStrategy = "Hybrid"
)

// PatchErrorKind is the typed cause of a cascade match failure.
type PatchErrorKind string

const (
	PatchErrNotFound        PatchErrorKind = "NotFound"
	PatchErrNoMatch         PatchErrorKind = "NoMatch"
	PatchErrMultipleMatches PatchErrorKind = "MultipleMatches"
	PatchErrContextMismatch PatchErrorKind = "ContextMismatch"
)

// PatchError is the typed failure the cascade matcher returns, mapped onto
// ToolExecError by the caller.
type PatchError struct {
	Kind    PatchErrorKind
	Message string
}

func (e *PatchError) Error() string { return e.Message }

// matchSpan is a located occurrence of oldStr in content, named by the
// strategy that found it.
type matchSpan struct {
	Start, End int
	Strategy   MatchStrategy
}

// cascadeMatch runs the fixed strategy order for a targeted replace
// — exact, then line-trimmed, then block-anchor, then whitespace-
// normalized, then context-aware — stopping at the first strategy that
// yields at least one match. A strategy producing more than one match is
// reported as MultipleMatches immediately (the cascade does not fall through
// to a looser strategy just because a stricter one was ambiguous).
func cascadeMatch(content, oldStr string) ([]matchSpan, error) {
	if oldStr == "" {
		return nil, &PatchError{Kind: PatchErrNoMatch, Message: "old_str must not be empty"}
	}

	strategies := []struct {
		name MatchStrategy
		fn   func(string, string) []matchSpan
	}{
		{StrategyExact, exactMatches},
		{StrategyLine, lineTrimmedMatches},
		{StrategyBlock, blockAnchorMatches},
		{StrategyIndent, whitespaceNormalizedMatches},
		{StrategyAnchor, contextAwareMatches},
	}

	var tried []string
	for _, s := range strategies {
		tried = append(tried, string(s.name))
		matches := s.fn(content, oldStr)
		if len(matches) == 0 {
			continue
		}
		return matches, nil
	}

	return nil, &PatchError{
		Kind:    PatchErrNotFound,
		Message: fmt.Sprintf("no match for text (tried: %s)", strings.Join(tried, ", ")),
	}
}

// exactMatches is the literal substring search.
func exactMatches(content, oldStr string) []matchSpan {
	var spans []matchSpan
	start := 0
	for {
		idx := strings.Index(content[start:], oldStr)
		if idx < 0 {
			break
		}
		abs := start + idx
		spans = append(spans, matchSpan{Start: abs, End: abs + len(oldStr), Strategy: StrategyExact})
		start = abs + len(oldStr)
	}
	return spans
}

// lineTrimmedMatches compares old_str against every contiguous run of
// content lines of the same length, with each line's leading/trailing
// whitespace trimmed before comparison.
func lineTrimmedMatches(content, oldStr string) []matchSpan {
	return lineWiseMatches(content, oldStr, strings.TrimSpace, strings.TrimSpace)
}

// whitespaceNormalizedMatches additionally collapses internal whitespace
// runs to a single space, tolerating re-indentation and re-wrapped spacing.
func whitespaceNormalizedMatches(content, oldStr string) []matchSpan {
	normalize := func(s string) string {
		return strings.Join(strings.Fields(s), " ")
	}
	return lineWiseMatches(content, oldStr, normalize, normalize)
}

// lineWiseMatches is shared by the line-trim and whitespace-normalized
// tiers: split both content and oldStr into lines, normalize each line with
// normFn, and look for a contiguous run in content whose normalized lines
// equal oldStr's normalized lines exactly.
func lineWiseMatches(content, oldStr string, contentNorm, oldNorm func(string) string) []matchSpan {
	contentLines := splitLinesKeepOffsets(content)
	oldLines := strings.Split(oldStr, "\n")
	if len(oldLines) == 0 || len(contentLines) < len(oldLines) {
		return nil
	}

	normalizedOld := make([]string, len(oldLines))
	for i, l := range oldLines {
		normalizedOld[i] = oldNorm(l)
	}

	var spans []matchSpan
	for start := 0; start+len(oldLines) <= len(contentLines); start++ {
		match := true
		for i := 0; i < len(oldLines); i++ {
			if contentNorm(contentLines[start+i].text) != normalizedOld[i] {
				match = false
				break
			}
		}
		if !match {
			continue
		}
		first := contentLines[start]
		last := contentLines[start+len(oldLines)-1]
		spans = append(spans, matchSpan{Start: first.start, End: last.end, Strategy: StrategyLine})
	}
	return spans
}

// blockAnchorMatches anchors on the first and last non-blank line of
// oldStr (trimmed) matching the corresponding content lines, tolerating any
// difference in the lines between — useful when whitespace or trailing
// comments drift inside a block but the boundaries are stable.
func blockAnchorMatches(content, oldStr string) []matchSpan {
	oldLines := strings.Split(oldStr, "\n")
	if len(oldLines) < 2 {
		return nil
	}
	firstAnchor := strings.TrimSpace(oldLines[0])
	lastAnchor := strings.TrimSpace(oldLines[len(oldLines)-1])
	if firstAnchor == "" || lastAnchor == "" {
		return nil
	}

	contentLines := splitLinesKeepOffsets(content)
	want := len(oldLines)

	var spans []matchSpan
	for start := 0; start+want <= len(contentLines); start++ {
		if strings.TrimSpace(contentLines[start].text) != firstAnchor {
			continue
		}
		end := start + want - 1
		if strings.TrimSpace(contentLines[end].text) != lastAnchor {
			continue
		}
		spans = append(spans, matchSpan{
			Start:    contentLines[start].start,
			End:      contentLines[end].end,
			Strategy: StrategyBlock,
		})
	}
	return spans
}

// contextAwareMatches is the loosest tier: it anchors only on the first
// line, trimmed and whitespace-normalized, and accepts the block of
// len(oldLines) lines that follows regardless of inner content. It exists
// to recover a match when a line was inserted/removed inside a block that
// the model otherwise quoted faithfully from the start.
func contextAwareMatches(content, oldStr string) []matchSpan {
	oldLines := strings.Split(oldStr, "\n")
	if len(oldLines) == 0 {
		return nil
	}
	firstAnchor := strings.Join(strings.Fields(oldLines[0]), " ")
	if firstAnchor == "" {
		return nil
	}

	contentLines := splitLinesKeepOffsets(content)
	want := len(oldLines)

	var spans []matchSpan
	for start := 0; start+want <= len(contentLines); start++ {
		if strings.Join(strings.Fields(contentLines[start].text), " ") != firstAnchor {
			continue
		}
		spans = append(spans, matchSpan{
			Start:    contentLines[start].start,
			End:      contentLines[start+want-1].end,
			Strategy: StrategyAnchor,
		})
	}
	return spans
}

type lineOffset struct {
	text       string
	start, end int
}

// splitLinesKeepOffsets splits s into lines (without their newline
// terminators) alongside each line's byte offsets in s, so a matched line
// range can be sliced back out of the original content.
func splitLinesKeepOffsets(s string) []lineOffset {
	var lines []lineOffset
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, lineOffset{text: s[start:i], start: start, end: i})
			start = i + 1
		}
	}
	lines = append(lines, lineOffset{text: s[start:], start: start, end: len(s)})
	return lines
}
