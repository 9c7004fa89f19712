package usecase

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"lexrag/internal/domain"
)

var (
	// markerRe matches citation markers like [1]. Bracketed years
	// ([2008]) have four digits and are deliberately excluded.
	markerRe = regexp.MustCompile(`\[(\d{1,3})\]`)

	// paragraphTailRe lifts a trailing paragraph reference off a
	// sources-section line, e.g. "Smith v Jones [2008] UKHL 12 at para 45".
	paragraphTailRe = regexp.MustCompile(`(?i)[,\s]+(?:at\s+)?para(?:graph)?\.?\s+(\d+)\s*$`)

	// paragraphLeadRe recognizes the same reference immediately after
	// an inline citation phrase.
	paragraphLeadRe = regexp.MustCompile(`(?i)^[,\s]*(?:at\s+)?para(?:graph)?\.?\s+(\d+)`)

	// sourcesHeadingRe locates the heading of a trailing sources
	// section the model was instructed to emit.
	sourcesHeadingRe = regexp.MustCompile(`(?i)(?:^|\n)\s*(?:sources|citations|references)\s*:[ \t]*\n?`)

	sourceLineRe = regexp.MustCompile(`^\s*\[(\d{1,3})\]\s*(.+)$`)
)

// lowercase words that legitimately appear inside case names.
var citationConnectors = map[string]bool{
	"v": true, "v.": true, "vs": true, "vs.": true,
	"re": true, "ex": true, "parte": true, "plc": true, "de": true,
}

// ExtractCitations scans finished answer text for bracketed citation
// markers and returns the citations found, sorted by marker number.
// Extraction is syntactic and heuristic: an id cited inline may have no
// entry in the sources section and vice versa, and ids need not
// correspond to the sources the answer was grounded on. It never
// fails; text with no recognizable citations yields an empty list.
func ExtractCitations(text string) []domain.Citation {
	found := make(map[int]domain.Citation)

	// Pass 1: markers followed inline by citation-shaped text. First
	// occurrence of an id wins.
	markers := markerRe.FindAllStringSubmatchIndex(text, -1)
	for i, loc := range markers {
		id, err := strconv.Atoi(text[loc[2]:loc[3]])
		if err != nil {
			continue
		}
		end := len(text)
		if i+1 < len(markers) {
			end = markers[i+1][0]
		}
		run := text[loc[1]:end]
		if nl := strings.IndexByte(run, '\n'); nl >= 0 {
			run = run[:nl]
		}
		citation, paragraph, ok := matchCitationPhrase(run)
		if !ok {
			continue
		}
		if _, seen := found[id]; !seen {
			found[id] = domain.Citation{ID: id, Citation: citation, Paragraph: paragraph}
		}
	}

	// Pass 2: a trailing "Sources:" style section, scanned per line
	// with no shape requirement on the text. Pass-1 ids win.
	for _, line := range sourcesSectionLines(text) {
		m := sourceLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		id, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if _, seen := found[id]; seen {
			continue
		}
		citation, paragraph := splitParagraphTail(strings.TrimSpace(m[2]))
		citation = trimCitationTail(citation)
		if citation == "" {
			continue
		}
		found[id] = domain.Citation{ID: id, Citation: citation, Paragraph: paragraph}
	}

	citations := make([]domain.Citation, 0, len(found))
	for _, c := range found {
		citations = append(citations, c)
	}
	sort.Slice(citations, func(i, j int) bool { return citations[i].ID < citations[j].ID })
	return citations
}

// matchCitationPhrase recognizes a citation-shaped phrase at the start
// of the run: a capital-letter-led sequence of name tokens, connectors,
// bracketed years, report numbers and parenthetical court
// abbreviations, ending at the first token of surrounding prose.
func matchCitationPhrase(run string) (string, *int, bool) {
	candidate := strings.TrimSpace(run)
	if candidate == "" {
		return "", nil, false
	}
	if first, _ := utf8.DecodeRuneInString(candidate); !unicode.IsUpper(first) {
		return "", nil, false
	}

	end := 0
	i := 0
	for i < len(candidate) {
		for i < len(candidate) && candidate[i] == ' ' {
			i++
		}
		start := i
		for i < len(candidate) && candidate[i] != ' ' {
			i++
		}
		if start == i || !citationToken(candidate[start:i]) {
			break
		}
		end = i
	}

	citation := trimCitationTail(strings.TrimSpace(candidate[:end]))
	if citation == "" {
		return "", nil, false
	}

	var paragraph *int
	if m := paragraphLeadRe.FindStringSubmatch(candidate[end:]); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			paragraph = &n
		}
	}
	return citation, paragraph, true
}

func citationToken(tok string) bool {
	if citationConnectors[tok] {
		return true
	}
	r, size := utf8.DecodeRuneInString(tok)
	switch {
	case unicode.IsUpper(r) || unicode.IsDigit(r):
		return true
	case r == '[' || r == '(':
		next, _ := utf8.DecodeRuneInString(tok[size:])
		return unicode.IsLetter(next) || unicode.IsDigit(next)
	}
	return false
}

func splitParagraphTail(citation string) (string, *int) {
	m := paragraphTailRe.FindStringSubmatchIndex(citation)
	if m == nil {
		return citation, nil
	}
	n, err := strconv.Atoi(citation[m[2]:m[3]])
	if err != nil {
		return citation, nil
	}
	return strings.TrimSpace(citation[:m[0]]), &n
}

// trimCitationTail drops trailing punctuation that belongs to the
// surrounding sentence, keeping closing brackets and parentheses that
// are part of the citation itself.
func trimCitationTail(citation string) string {
	return strings.TrimRightFunc(citation, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != ')' && r != ']'
	})
}

func sourcesSectionLines(text string) []string {
	headings := sourcesHeadingRe.FindAllStringIndex(text, -1)
	if len(headings) == 0 {
		return nil
	}
	// The instructed section is the trailing one; take the last heading.
	section := text[headings[len(headings)-1][1]:]
	if blank := strings.Index(section, "\n\n"); blank >= 0 {
		section = section[:blank]
	}
	return strings.Split(section, "\n")
}
