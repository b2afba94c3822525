package redaction

import (
	"sort"
	"strings"

	"github.com/ternarybob/medguard/internal/models"
)

// mergeSpans sorts spans and unions every group that overlaps or touches.
// A merged span takes the kind with the highest priority among its members.
func mergeSpans(spans []models.RedactionSpan) []models.RedactionSpan {
	if len(spans) == 0 {
		return nil
	}

	sorted := make([]models.RedactionSpan, len(spans))
	copy(sorted, spans)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End > sorted[j].End
	})

	merged := []models.RedactionSpan{sorted[0]}
	for _, span := range sorted[1:] {
		last := &merged[len(merged)-1]
		if !last.Overlaps(span) {
			merged = append(merged, span)
			continue
		}
		if span.End > last.End {
			last.End = span.End
		}
		if span.Kind.Priority() > last.Kind.Priority() {
			last.Kind = span.Kind
		}
		if span.Source == models.SourceRule {
			last.Source = models.SourceRule
		}
		if span.Score > last.Score {
			last.Score = span.Score
		}
	}
	return merged
}

// maxRulePasses bounds resolveSpans. Every pass masks at least one more byte
// of the original, so real text settles in two or three.
const maxRulePasses = 16

// resolveSpans merges spans over text, then re-runs the rule layer on the
// substituted output until it finds nothing new. Substitution can expose a
// value, such as a date glued to a phone number or an ID label after a
// placeholder. The result is a fixed point: the rules find nothing in
// substitute(text, result). Spans stay in original-text coordinates.
func resolveSpans(text string, spans []models.RedactionSpan) []models.RedactionSpan {
	merged := mergeSpans(clampSpans(text, spans))
	for pass := 0; pass < maxRulePasses; pass++ {
		current := substitute(text, merged)
		found := clampSpans(current, ruleSpans(current))
		if len(found) == 0 {
			break
		}
		for i := range found {
			found[i].Start = originalOffset(found[i].Start, merged)
			found[i].End = originalOffset(found[i].End, merged)
		}
		merged = mergeSpans(append(found, merged...))
	}
	return merged
}

// originalOffset maps a byte offset in substitute(text, merged) back to text.
// pos must not fall inside a placeholder; clampSpans guarantees that.
func originalOffset(pos int, merged []models.RedactionSpan) int {
	delta := 0
	for _, span := range merged {
		if pos <= span.Start+delta {
			break
		}
		delta += len(span.Kind.Placeholder()) - span.Len()
	}
	return pos - delta
}

// substitute writes each merged span's placeholder in one pass over the original text
func substitute(text string, merged []models.RedactionSpan) string {
	if len(merged) == 0 {
		return text
	}

	var sb strings.Builder
	sb.Grow(len(text))
	pos := 0
	for _, span := range merged {
		sb.WriteString(text[pos:span.Start])
		sb.WriteString(span.Kind.Placeholder())
		pos = span.End
	}
	sb.WriteString(text[pos:])
	return sb.String()
}

// clampSpans drops spans that fall outside text, are empty, or overlap a
// placeholder left by an earlier pass.
func clampSpans(text string, spans []models.RedactionSpan) []models.RedactionSpan {
	existing := placeholderPattern.FindAllStringIndex(text, -1)

	out := spans[:0:0]
	for _, span := range spans {
		if span.Start < 0 {
			span.Start = 0
		}
		if span.End > len(text) {
			span.End = len(text)
		}
		if span.End <= span.Start {
			continue
		}
		if overlapsAny(span, existing) {
			continue
		}
		out = append(out, span)
	}
	return out
}

func overlapsAny(span models.RedactionSpan, ranges [][]int) bool {
	for _, r := range ranges {
		if span.Start < r[1] && r[0] < span.End {
			return true
		}
	}
	return false
}
