package domain

import (
	"strings"
	"unicode/utf8"
)

const (
	// MinParagraphLength is the minimum fragment length in runes.
	// Shorter paragraphs (headings, case numbers, signature lines) are
	// merged into a neighbor so they never surface as standalone
	// retrieval results.
	MinParagraphLength = 80
	// MaxParagraphLength is the maximum fragment length in runes.
	// Longer paragraphs are split at sentence boundaries.
	MaxParagraphLength = 1200
)

// SplitParagraphs breaks a legal document body into the paragraph-level
// units that become fragments. Paragraph numbers are the 0-based index
// of each unit in the returned slice.
func SplitParagraphs(body string) []string {
	normalized := strings.ReplaceAll(body, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	var paragraphs []string
	for _, part := range strings.Split(normalized, "\n\n") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}

	return splitLongParagraphs(mergeShortParagraphs(paragraphs))
}

// mergeShortParagraphs folds runs of short paragraphs into the nearest
// long neighbor, preferring the preceding one.
func mergeShortParagraphs(paragraphs []string) []string {
	if len(paragraphs) == 0 {
		return paragraphs
	}

	var merged []string
	var pending string

	flush := func(next string) string {
		if pending == "" {
			return next
		}
		if utf8.RuneCountInString(pending) >= MinParagraphLength {
			merged = append(merged, pending)
		} else if len(merged) > 0 {
			merged[len(merged)-1] += "\n\n" + pending
		} else {
			next = pending + "\n\n" + next
		}
		pending = ""
		return next
	}

	for _, para := range paragraphs {
		if utf8.RuneCountInString(para) >= MinParagraphLength {
			// flush may itself append to merged, so it must run before
			// the append reads the slice.
			para = flush(para)
			merged = append(merged, para)
			continue
		}
		if pending == "" {
			pending = para
		} else {
			pending += "\n\n" + para
		}
	}

	if pending != "" {
		if utf8.RuneCountInString(pending) < MinParagraphLength && len(merged) > 0 {
			merged[len(merged)-1] += "\n\n" + pending
		} else {
			merged = append(merged, pending)
		}
	}

	return merged
}

// splitLongParagraphs splits paragraphs over the budget at sentence
// boundaries, packing sentences greedily up to MaxParagraphLength.
func splitLongParagraphs(paragraphs []string) []string {
	var result []string
	for _, para := range paragraphs {
		if utf8.RuneCountInString(para) <= MaxParagraphLength {
			result = append(result, para)
			continue
		}

		var chunk string
		for _, sentence := range splitSentences(para) {
			chunkLen := utf8.RuneCountInString(chunk)
			if chunkLen > 0 && chunkLen+1+utf8.RuneCountInString(sentence) > MaxParagraphLength {
				result = append(result, chunk)
				chunk = sentence
				continue
			}
			if chunk != "" {
				chunk += " "
			}
			chunk += sentence
		}
		if chunk != "" {
			result = append(result, chunk)
		}
	}
	return result
}

func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(runes) && runes[i+1] != ' ' && runes[i+1] != '\n' {
			continue
		}
		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
