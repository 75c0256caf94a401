package usecase

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/agentrag/reasoning-engine/internal/core/domain"
)

// Citation markers follow the grammar '[' digits (',' digits)* ']',
// 1-based into the final context. Anything bracketed that does not
// match is recorded as unresolved rather than dropped, so a malformed
// reference is visible in the response.
var citationMarkerPattern = regexp.MustCompile(`\[([^\[\]]*)\]`)

const citationPreviewLen = 150

// resolveCitations scans the generated answer for citation markers and
// maps each one back to a chunk of the final context. Out-of-range
// indexes and non-numeric groups become unresolved citations; identical
// (index, chunk) pairs from repeated citations collapse to one entry.
func resolveCitations(answer string, finalContext []domain.Chunk) []domain.Citation {
	citations := make([]domain.Citation, 0, 4)
	if answer == "" {
		return citations
	}

	seen := make(map[string]struct{})
	emit := func(c domain.Citation) {
		var key string
		if c.Resolution == domain.CitationUnresolved {
			key = "u|" + c.Marker
		} else {
			key = fmt.Sprintf("%d|%s", c.Index, c.ChunkID)
		}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		citations = append(citations, c)
	}

	for _, match := range citationMarkerPattern.FindAllStringSubmatch(answer, -1) {
		marker, inner := match[0], match[1]

		indexes, exact, ok := parseMarkerIndexes(inner)
		if !ok {
			emit(domain.Citation{Marker: marker, Resolution: domain.CitationUnresolved})
			continue
		}

		resolution := domain.CitationExact
		if !exact {
			resolution = domain.CitationBestEffort
		}

		for _, idx := range indexes {
			if idx < 1 || idx > len(finalContext) {
				emit(domain.Citation{Marker: marker, Index: idx, Resolution: domain.CitationUnresolved})
				continue
			}
			chunk := finalContext[idx-1]
			emit(domain.Citation{
				Marker:     marker,
				Index:      idx,
				ChunkID:    chunk.ID,
				Label:      citationLabel(chunk),
				Preview:    contentPreview(chunk.Content),
				Resolution: resolution,
			})
		}
	}

	return citations
}

// parseMarkerIndexes parses the inside of one bracket group. exact is
// true only for the canonical single-number form with no extra
// whitespace; comma lists and padded digits resolve best-effort.
func parseMarkerIndexes(inner string) (indexes []int, exact bool, ok bool) {
	parts := strings.Split(inner, ",")
	indexes = make([]int, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			return nil, false, false
		}
		n, err := strconv.Atoi(trimmed)
		if err != nil || n < 0 {
			return nil, false, false
		}
		indexes = append(indexes, n)
	}
	exact = len(parts) == 1 && inner == strings.TrimSpace(inner) && inner == strconv.Itoa(indexes[0])
	return indexes, exact, true
}

func citationLabel(chunk domain.Chunk) string {
	source := chunk.Source
	if source == "" {
		source = "unknown"
	}
	if chunk.SectionTitle != "" {
		return source + " / " + chunk.SectionTitle
	}
	return fmt.Sprintf("%s #%d", source, chunk.ChunkIndex)
}

// contentPreview truncates to at most citationPreviewLen bytes without
// splitting a rune.
func contentPreview(content string) string {
	content = strings.TrimSpace(content)
	if len(content) <= citationPreviewLen {
		return content
	}
	cut := citationPreviewLen
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut]
}

func hasUnresolvedCitation(citations []domain.Citation) bool {
	for _, c := range citations {
		if c.Resolution == domain.CitationUnresolved {
			return true
		}
	}
	return false
}
